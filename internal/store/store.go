package store

import (
	"context"
	"errors"
	"fmt"
	"regexp"
)

// ErrNotFound is returned by Get when the document does not exist
var ErrNotFound = errors.New("document not found")

// Op is a comparison operator in a query filter
type Op string

const (
	OpEqual          Op = "=="
	OpLess           Op = "<"
	OpLessOrEqual    Op = "<="
	OpGreater        Op = ">"
	OpGreaterOrEqual Op = ">="
)

// Filter restricts a query to documents whose Field compares to Value
type Filter struct {
	Field string `json:"field"`
	Op    Op     `json:"op"`
	Value any    `json:"value"`
}

// Document is a stored record and its id
type Document struct {
	ID     string         `json:"id"`
	Fields map[string]any `json:"fields"`
}

// DocumentStore is a schemaless, failable remote record store
type DocumentStore interface {
	// Write stores fields under id in collection. An empty id asks the
	// store to generate one. The stored id is returned.
	Write(ctx context.Context, collection, id string, fields map[string]any) (string, error)
	Get(ctx context.Context, collection, id string) (map[string]any, error)
	Query(ctx context.Context, collection string, filters ...Filter) ([]Document, error)
	Close() error
}

var fieldName = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// Validate checks the filter's field name and operator
func (f Filter) Validate() error {
	if !fieldName.MatchString(f.Field) {
		return fmt.Errorf("invalid filter field %q", f.Field)
	}
	switch f.Op {
	case OpEqual, OpLess, OpLessOrEqual, OpGreater, OpGreaterOrEqual:
		return nil
	default:
		return fmt.Errorf("invalid filter operator %q", f.Op)
	}
}
