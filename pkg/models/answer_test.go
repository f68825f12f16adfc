package models

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
)

func TestAnswerTypedValue(t *testing.T) {
	var a Answer
	a.SetValue(answer.Number(1200))
	assert.Equal(t, 1200.0, a.TypedValue(fieldtype.Number).Get(fieldtype.Number))

	t.Run("other columns are ignored", func(t *testing.T) {
		stale := "1200 miles"
		a.ValueText = &stale
		assert.Equal(t, answer.Number(1200), a.TypedValue(fieldtype.Number))
		assert.Equal(t, answer.Text("1200 miles"), a.TypedValue(fieldtype.Text))
	})

	t.Run("set value clears the previous column", func(t *testing.T) {
		a.SetValue(answer.JSON([]any{"a"}))
		assert.Nil(t, a.ValueNumber)
		assert.Nil(t, a.ValueText)
		assert.True(t, a.TypedValue(fieldtype.Number).IsEmpty())
		assert.Equal(t, answer.JSON([]any{"a"}), a.TypedValue(fieldtype.JSON))
	})
}
