package validation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	domainerrors "github.com/narrateapp/narrate-server/internal/errors"
)

type createHighlightInput struct {
	Text        string `json:"text" validate:"required"`
	StartOffset int    `json:"start_offset" validate:"gte=0"`
	EndOffset   int    `json:"end_offset" validate:"gtfield=StartOffset"`
	Color       string `json:"color" validate:"oneof=yellow blue green pink"`
}

func TestValidate_Valid(t *testing.T) {
	v := New()
	err := v.Validate(createHighlightInput{
		Text:        "Hello",
		StartOffset: 0,
		EndOffset:   5,
		Color:       "yellow",
	})
	assert.NoError(t, err)
}

func TestValidate_ReturnsDomainError(t *testing.T) {
	v := New()
	err := v.Validate(createHighlightInput{
		Text:        "",
		StartOffset: 5,
		EndOffset:   2,
		Color:       "red",
	})
	require.Error(t, err)

	var derr *domainerrors.Error
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, domainerrors.CodeValidation, derr.Code)

	// Field names come from JSON tags, not Go names.
	details, ok := derr.Details.(map[string]string)
	require.True(t, ok)
	assert.Contains(t, details, "text")
	assert.Contains(t, details, "end_offset")
	assert.Contains(t, details, "color")
}
