package models

import (
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSubmissionStatus(t *testing.T) {
	assert.True(t, SubmissionStatusProcessing.Valid())
	assert.False(t, SubmissionStatus("archived").Valid())
	assert.Equal(t, "Completed", SubmissionStatusCompleted.Label())
	assert.True(t, SubmissionStatusRejected.IsTerminal())
	assert.False(t, SubmissionStatusSubmitted.IsTerminal())

	tests := []struct {
		from, to SubmissionStatus
		allowed  bool
	}{
		{SubmissionStatusDraft, SubmissionStatusSubmitted, true},
		{SubmissionStatusSubmitted, SubmissionStatusProcessing, true},
		{SubmissionStatusProcessing, SubmissionStatusRejected, true},
		{SubmissionStatusSubmitted, SubmissionStatusDraft, false},
		{SubmissionStatusCompleted, SubmissionStatusDraft, true},
		{SubmissionStatusDraft, SubmissionStatus("archived"), false},
	}
	for _, tt := range tests {
		t.Run(string(tt.from)+"->"+string(tt.to), func(t *testing.T) {
			assert.Equal(t, tt.allowed, tt.from.CanTransitionTo(tt.to))
		})
	}
}

func TestSubmissionPayloadKeepsOrder(t *testing.T) {
	body := `{
		"formType": "business",
		"sections": {
			"zeta": {"questionsAndAnswers": {"b": 1, "a": 2}},
			"alpha": {"sectionTitle": "Alpha", "questionsAndAnswers": null}
		}
	}`

	var payload SubmissionPayload
	require.NoError(t, json.Unmarshal([]byte(body), &payload))
	assert.Equal(t, []string{"zeta", "alpha"}, payload.Sections.Keys)
	assert.Equal(t, []string{"b", "a"}, payload.Sections.Items["zeta"].QuestionsAndAnswers.Keys)
	assert.Equal(t, "Alpha", payload.Sections.Items["alpha"].SectionTitle)
	assert.Zero(t, payload.Sections.Items["alpha"].QuestionsAndAnswers.Len())

	value, ok := payload.Sections.Items["zeta"].QuestionsAndAnswers.Get("a")
	assert.True(t, ok)
	assert.Equal(t, float64(2), value)
}

func TestSubmissionPayloadRejectsNonObjects(t *testing.T) {
	var payload SubmissionPayload
	assert.Error(t, json.Unmarshal([]byte(`{"formType": "x", "sections": []}`), &payload))
	assert.Error(t, json.Unmarshal([]byte(`{"formType": "x", "sections": {"a": {"questionsAndAnswers": [1]}}}`), &payload))
}

func TestSubmissionPatch(t *testing.T) {
	var patch SubmissionPatch
	require.NoError(t, json.Unmarshal([]byte(`{"status": "processing"}`), &patch))
	require.NotNil(t, patch.Status)
	assert.Equal(t, SubmissionStatusProcessing, *patch.Status)
	assert.Nil(t, patch.ProcessingNotes)
	assert.Nil(t, patch.Sections)
}

func TestNewOrderedMap(t *testing.T) {
	om := NewOrderedMap(map[string]any{"question": "List of Dependents", "answer": "[]"}, "question", "answer")
	assert.Equal(t, []string{"question", "answer"}, om.Keys)

	b, err := json.Marshal(om)
	require.NoError(t, err)
	assert.JSONEq(t, `{"question": "List of Dependents", "answer": "[]"}`, string(b))
}
