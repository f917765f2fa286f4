package store

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestFilterValidate(t *testing.T) {
	assert.NoError(t, Filter{Field: "userId", Op: OpEqual, Value: "u"}.Validate())
	assert.NoError(t, Filter{Field: "timestamp", Op: OpLessOrEqual, Value: "x"}.Validate())

	assert.Error(t, Filter{Field: "user') OR 1=1 --", Op: OpEqual}.Validate())
	assert.Error(t, Filter{Field: "", Op: OpEqual}.Validate())
	assert.Error(t, Filter{Field: "userId", Op: "LIKE"}.Validate())
}
