package editor

// NotificationKind identifies an editor lifecycle notification
type NotificationKind string

const (
	NotifyEditorChange NotificationKind = "editor_change"
	NotifyTextChange   NotificationKind = "text_change"
	NotifySave         NotificationKind = "save"
	NotifyWindowState  NotificationKind = "window_state"
)

// Valid reports whether k is a known notification kind
func (k NotificationKind) Valid() bool {
	switch k {
	case NotifyEditorChange, NotifyTextChange, NotifySave, NotifyWindowState:
		return true
	}
	return false
}

// Notification is a raw editor notification
type Notification struct {
	Kind     NotificationKind `json:"kind"`
	Document string           `json:"document,omitempty"`
	Changes  int              `json:"changes,omitempty"`
	Focused  bool             `json:"focused,omitempty"`
}

// Disposable releases a subscription
type Disposable interface {
	Dispose()
}

// DisposeFunc adapts a function to Disposable
type DisposeFunc func()

func (f DisposeFunc) Dispose() { f() }

// Source delivers editor notifications to subscribers
type Source interface {
	// Subscribe registers handler for notifications of kind.
	// Handlers may be invoked from any goroutine.
	Subscribe(kind NotificationKind, handler func(Notification)) Disposable
}

// Publisher accepts notifications from an editor bridge
type Publisher interface {
	Publish(n Notification)
}
