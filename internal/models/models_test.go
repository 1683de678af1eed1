package models

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTags_ScanAndValue(t *testing.T) {
	t.Parallel()

	var tags Tags
	require.NoError(t, tags.Scan(nil))
	assert.Equal(t, Tags{}, tags)

	require.NoError(t, tags.Scan([]byte(`["sunset","beach"]`)))
	assert.Equal(t, Tags{"sunset", "beach"}, tags)

	require.NoError(t, tags.Scan("null"))
	assert.Equal(t, Tags{}, tags)

	require.NoError(t, tags.Scan(""))
	assert.Equal(t, Tags{}, tags)

	assert.Error(t, tags.Scan(42))

	v, err := Tags(nil).Value()
	require.NoError(t, err)
	assert.Equal(t, "[]", v)

	v, err = Tags{"a"}.Value()
	require.NoError(t, err)
	assert.Equal(t, `["a"]`, v)
}

func TestTags_MarshalNeverNull(t *testing.T) {
	t.Parallel()

	img := Image{Title: "x"}
	b, err := json.Marshal(img)
	require.NoError(t, err)
	assert.Contains(t, string(b), `"tags":[]`)
}

func TestParseTagList(t *testing.T) {
	t.Parallel()

	tests := []struct {
		in   string
		want Tags
	}{
		{"", Tags{}},
		{"a,b, c", Tags{"a", "b", "c"}},
		{`["x"," y ","x"]`, Tags{"x", "y"}},
		{" , ,", Tags{}},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, ParseTagList(tt.in), "input %q", tt.in)
	}
}

func TestStatusFor(t *testing.T) {
	t.Parallel()

	assert.Equal(t, http.StatusBadRequest, StatusFor(NewValidationError("bad")))
	assert.Equal(t, http.StatusUnauthorized, StatusFor(NewUnauthorizedError("no")))
	assert.Equal(t, http.StatusNotFound, StatusFor(NewNotFoundError("Image", 1)))
	assert.Equal(t, http.StatusConflict, StatusFor(NewConflictError("dup")))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(NewProcessingError("thumb", errors.New("x"))))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(NewInternalError(errors.New("db"))))
	assert.Equal(t, http.StatusInternalServerError, StatusFor(errors.New("plain")))
	assert.Equal(t, http.StatusNotFound, StatusFor(fmt.Errorf("wrapped: %w", NewNotFoundError("Image", 2))))
}

func TestNotFoundMessageDependsOnlyOnRequest(t *testing.T) {
	t.Parallel()

	// Same id yields the same message whether the row is missing or owned by someone else.
	a := NewNotFoundError("Category", 7)
	b := NewNotFoundError("Category", uint(7))
	assert.Equal(t, a.Message, b.Message)
	assert.Equal(t, "Category with ID 7 not found", a.Message)
}

func TestNewPagination(t *testing.T) {
	t.Parallel()

	p := NewPagination(21, 2, 10)
	assert.Equal(t, 3, p.TotalPages)
	assert.Equal(t, 2, p.CurrentPage)
	assert.Equal(t, 10, p.ItemsPerPage)

	assert.Equal(t, 0, NewPagination(0, 1, 10).TotalPages)
}
