package lifecycle

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestJournalRollsBackInReverseOrder(t *testing.T) {
	var list []string
	var j Journal[string]

	for _, v := range []string{"a", "b", "c"} {
		list = append(list, v)
		j.Push(v, func() { list = list[:len(list)-1] })
	}
	assert.Equal(t, 3, j.Len())

	got, ok := j.Rollback()
	assert.True(t, ok)
	assert.Equal(t, "c", got)
	assert.Equal(t, []string{"a", "b"}, list)

	got, ok = j.Commit()
	assert.True(t, ok)
	assert.Equal(t, "b", got)
	assert.Equal(t, []string{"a", "b"}, list, "commit must not undo")

	j.Rollback()
	assert.Equal(t, []string{"a"}, list)

	_, ok = j.Rollback()
	assert.False(t, ok)
	assert.Equal(t, 0, j.Len())
}

func TestValidateMessage(t *testing.T) {
	assert.ErrorIs(t, ValidateMessage("", 0), ErrEmptyMessage)
	assert.ErrorIs(t, ValidateMessage("   \n", 0), ErrEmptyMessage)
	assert.NoError(t, ValidateMessage("hello", 0))
	assert.NoError(t, ValidateMessage("", 1))
	assert.NoError(t, ValidateMessage("", 3))
	assert.ErrorIs(t, ValidateMessage("hi", 4), ErrTooManyFiles)
}
