package models

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// SubmissionPayload is the inbound body of create and full replace.
type SubmissionPayload struct {
	FormType       string         `json:"formType" validate:"required"`
	SubmissionDate string         `json:"submissionDate"`
	Sections       OrderedSection `json:"sections"`
}

type SectionPayload struct {
	SectionTitle        string     `json:"sectionTitle,omitempty"`
	QuestionsAndAnswers OrderedMap `json:"questionsAndAnswers"`
}

// OrderedSection keeps sections in the order they were sent so that new sections are numbered
// in that order.
type OrderedSection struct {
	Keys  []string
	Items map[string]SectionPayload
}

func (o OrderedSection) Len() int {
	return len(o.Keys)
}

func (o *OrderedSection) Set(key string, section SectionPayload) {
	if o.Items == nil {
		o.Items = map[string]SectionPayload{}
	}
	if _, ok := o.Items[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Items[key] = section
}

func (o *OrderedSection) UnmarshalJSON(b []byte) error {
	o.Keys, o.Items = nil, nil
	return decodeOrdered(b, func(key string, raw json.RawMessage) error {
		var section SectionPayload
		if err := json.Unmarshal(raw, &section); err != nil {
			return fmt.Errorf("section %q: %w", key, err)
		}
		o.Set(key, section)
		return nil
	})
}

func (o OrderedSection) MarshalJSON() ([]byte, error) {
	if o.Items == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.Items)
}

// OrderedMap is a JSON object that remembers its key order.
type OrderedMap struct {
	Keys   []string
	Values map[string]any
}

func NewOrderedMap(values map[string]any, keys ...string) OrderedMap {
	om := OrderedMap{}
	for _, key := range keys {
		om.Set(key, values[key])
	}
	for key, value := range values {
		if _, ok := om.Values[key]; !ok {
			om.Set(key, value)
		}
	}
	return om
}

func (o OrderedMap) Len() int {
	return len(o.Keys)
}

func (o *OrderedMap) Set(key string, value any) {
	if o.Values == nil {
		o.Values = map[string]any{}
	}
	if _, ok := o.Values[key]; !ok {
		o.Keys = append(o.Keys, key)
	}
	o.Values[key] = value
}

func (o OrderedMap) Get(key string) (any, bool) {
	value, ok := o.Values[key]
	return value, ok
}

func (o *OrderedMap) UnmarshalJSON(b []byte) error {
	o.Keys, o.Values = nil, nil
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		return nil
	}
	return decodeOrdered(b, func(key string, raw json.RawMessage) error {
		var value any
		if err := json.Unmarshal(raw, &value); err != nil {
			return err
		}
		o.Set(key, value)
		return nil
	})
}

func (o OrderedMap) MarshalJSON() ([]byte, error) {
	if o.Values == nil {
		return []byte("{}"), nil
	}
	return json.Marshal(o.Values)
}

func decodeOrdered(b []byte, fn func(key string, raw json.RawMessage) error) error {
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return err
	}
	if tok == nil {
		return nil
	}
	if delim, ok := tok.(json.Delim); !ok || delim != '{' {
		return fmt.Errorf("expected a JSON object")
	}

	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return err
		}
		key, ok := tok.(string)
		if !ok {
			return fmt.Errorf("expected an object key")
		}
		var raw json.RawMessage
		if err := dec.Decode(&raw); err != nil {
			return err
		}
		if err := fn(key, raw); err != nil {
			return err
		}
	}

	_, err = dec.Token()
	return err
}

// SubmissionPatch is the body of a partial update. Nil fields are left untouched.
type SubmissionPatch struct {
	Status          *SubmissionStatus `json:"status,omitempty"`
	ProcessingNotes *string           `json:"processing_notes,omitempty"`
	Sections        *OrderedSection   `json:"sections,omitempty"`
}
