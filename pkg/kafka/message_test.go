package kafka

import (
	"testing"

	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseEvent(t *testing.T) {
	jsonData := `{
		"type": "submission.status",
		"tenant_id": "550e8400-e29b-41d4-a716-446655440000",
		"user_id": "user-1",
		"email": "ada@example.com",
		"submission_id": "a1b2c3d4-e5f6-7890-abcd-ef1234567890",
		"form_type": "personal",
		"status": "draft",
		"timestamp": "2025-01-15T10:30:00Z"
	}`

	evt, err := ParseEvent([]byte(jsonData))
	require.NoError(t, err)
	require.NoError(t, evt.Validate())

	assert.Equal(t, EventSubmissionStatus, evt.Type)
	assert.Equal(t, "ada@example.com", evt.Email)
	assert.Equal(t, "personal", evt.FormType)
	assert.Equal(t, "550e8400-e29b-41d4-a716-446655440000:a1b2c3d4-e5f6-7890-abcd-ef1234567890", evt.Key())
}

func TestEventValidate(t *testing.T) {
	tests := []struct {
		name    string
		evt     Event
		wantErr bool
	}{
		{"status event", Event{Type: EventSubmissionStatus, TenantID: "t", SubmissionID: "s", FormType: "personal", Status: "draft"}, false},
		{"status event without status", Event{Type: EventSubmissionStatus, TenantID: "t", SubmissionID: "s", FormType: "personal"}, true},
		{"tracker event", Event{Type: EventTrackerTag, TenantID: "t", UserID: "u", Tag: "Tracker Deleted"}, false},
		{"tracker event without tag", Event{Type: EventTrackerTag, TenantID: "t"}, true},
		{"missing tenant", Event{Type: EventTrackerTag, Tag: "x"}, true},
		{"unknown type", Event{Type: "other", TenantID: "t"}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.evt.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestTrackerEventKey(t *testing.T) {
	evt := Event{Type: EventTrackerTag, TenantID: "t1", UserID: "u1", Tag: "Tracker Completed"}
	assert.Equal(t, "t1:u1", evt.Key())
}

func TestParseMessage(t *testing.T) {
	t.Run("valid", func(t *testing.T) {
		received, err := parseMessage(kafka.Message{
			Topic:  "submission-events",
			Offset: 7,
			Value:  []byte(`{"type":"tracker.tag","tenant_id":"t1","user_id":"u1","tag":"Tracker Deleted"}`),
			Headers: []kafka.Header{
				{Key: "tenant_id", Value: []byte("t1")},
				{Key: "type", Value: []byte("tracker.tag")},
				{Key: "traceparent", Value: []byte("00-abc-def-01")},
			},
		})
		require.NoError(t, err)
		assert.Equal(t, int64(7), received.Offset)
		assert.Equal(t, "t1", received.Headers.TenantID)
		assert.Equal(t, "tracker.tag", received.Headers.EventType)
		assert.Equal(t, "00-abc-def-01", received.Headers.TraceParent)
		assert.Equal(t, "Tracker Deleted", received.Event.Tag)
	})

	t.Run("not json", func(t *testing.T) {
		_, err := parseMessage(kafka.Message{Value: []byte("nope")})
		assert.Error(t, err)
	})

	t.Run("invalid event", func(t *testing.T) {
		_, err := parseMessage(kafka.Message{Value: []byte(`{"type":"submission.status","tenant_id":"t1"}`)})
		assert.Error(t, err)
	})
}
