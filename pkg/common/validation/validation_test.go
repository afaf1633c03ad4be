package validation

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type item struct {
	Count *int `json:"count" validate:"omitempty,gte=0"`
}

type envelope struct {
	ID    string `json:"id" validate:"required,uuid"`
	Items []item `json:"items" validate:"required,min=1,dive"`
}

func TestCollectUsesJSONPaths(t *testing.T) {
	negative := -1
	err := New().Struct(envelope{
		ID:    "nope",
		Items: []item{{Count: &negative}},
	})
	require.Error(t, err)

	fields := FieldErrors{}
	Collect(err, fields)

	assert.Equal(t, []string{"must be a valid UUID"}, fields["id"])
	assert.Equal(t, []string{"must be greater than or equal to 0"}, fields["items[0].count"])
}

func TestCollectReportsMinItems(t *testing.T) {
	err := New().Struct(envelope{ID: "6f8c3c52-4e7b-4f4e-9a50-1b8d3b8c2f10", Items: []item{}})
	fields := FieldErrors{}
	Collect(err, fields)
	assert.Equal(t, []string{"must contain at least 1 item(s)"}, fields["items"])
}

func TestErrorIsDetectable(t *testing.T) {
	err := error(&Error{Message: "invalid payload", Fields: FieldErrors{"b": {"x"}, "a": {"y"}}})
	wrapped := errors.Join(errors.New("outer"), err)

	assert.True(t, IsValidationError(wrapped))
	assert.Equal(t, "invalid payload: a: y; b: x", err.Error())
	assert.False(t, IsValidationError(errors.New("plain")))
}

func TestCoversMatchesPathAndAncestors(t *testing.T) {
	fields := FieldErrors{}
	fields.Add("results[0]", "must be of type object")
	fields.Add("results[1].posts[0].likes", "must be of type number")

	assert.True(t, fields.Covers("results[0]"))
	assert.True(t, fields.Covers("results[0].userId"))
	assert.True(t, fields.Covers("results[1].posts[0].likes"))
	assert.False(t, fields.Covers("results[1].posts[0].comments"))
	assert.False(t, fields.Covers("results"))
	assert.False(t, fields.Covers("results[10].userId"))
}
