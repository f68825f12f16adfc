package kafka

import (
	"encoding/json"
	"fmt"
	"time"
)

type EventType string

const (
	// EventSubmissionStatus is emitted after a submission is created or its status changes.
	EventSubmissionStatus EventType = "submission.status"
	// EventTrackerTag asks the CRM sync to add a tag to the user's contact.
	EventTrackerTag EventType = "tracker.tag"
)

// Event is the message written to the submission events topic.
type Event struct {
	Type         EventType `json:"type"`
	TenantID     string    `json:"tenant_id"`
	UserID       string    `json:"user_id"`
	Email        string    `json:"email"`
	Name         string    `json:"name,omitempty"`
	SubmissionID string    `json:"submission_id,omitempty"`
	FormType     string    `json:"form_type,omitempty"`
	Status       string    `json:"status,omitempty"`
	Tag          string    `json:"tag,omitempty"`
	Timestamp    time.Time `json:"timestamp"`

	// Tracing
	TraceID string `json:"trace_id,omitempty"`
	SpanID  string `json:"span_id,omitempty"`
}

// Key partitions events so that every event of one submission, or one user's tracker, is
// consumed in order.
func (e *Event) Key() string {
	if e.SubmissionID != "" {
		return fmt.Sprintf("%s:%s", e.TenantID, e.SubmissionID)
	}
	return fmt.Sprintf("%s:%s", e.TenantID, e.UserID)
}

func (e *Event) Validate() error {
	switch e.Type {
	case EventSubmissionStatus:
		if e.SubmissionID == "" || e.FormType == "" || e.Status == "" {
			return fmt.Errorf("submission event requires submission_id, form_type and status")
		}
	case EventTrackerTag:
		if e.Tag == "" {
			return fmt.Errorf("tracker event requires a tag")
		}
	default:
		return fmt.Errorf("unknown event type %q", e.Type)
	}
	if e.TenantID == "" {
		return fmt.Errorf("event requires tenant_id")
	}
	return nil
}

func ParseEvent(data []byte) (*Event, error) {
	var evt Event
	if err := json.Unmarshal(data, &evt); err != nil {
		return nil, err
	}
	return &evt, nil
}

// Header is a message header detached from the kafka-go type.
type Header struct {
	Key   string
	Value []byte
}

// MessageHeaders are the headers the producer sets on every event.
type MessageHeaders struct {
	TenantID    string
	EventType   string
	TraceParent string
	TraceState  string
}

func ExtractHeaders(headers []Header) MessageHeaders {
	var h MessageHeaders
	for _, header := range headers {
		switch header.Key {
		case "tenant_id":
			h.TenantID = string(header.Value)
		case "type":
			h.EventType = string(header.Value)
		case "traceparent":
			h.TraceParent = string(header.Value)
		case "tracestate":
			h.TraceState = string(header.Value)
		}
	}
	return h
}
