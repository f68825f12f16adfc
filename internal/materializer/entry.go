package materializer

import (
	"encoding/json"
	"fmt"
	"strings"

	"github.com/Ramsey-B/organizer/pkg/models"
)

// splitEntry reads a questionsAndAnswers entry. An object carrying both "question" and
// "answer" supplies its own text; anything else is the answer itself under a humanized key.
func splitEntry(key string, entry any) (string, any) {
	if m, ok := entry.(map[string]any); ok {
		question, hasQuestion := m["question"]
		raw, hasAnswer := m["answer"]
		if hasQuestion && hasAnswer {
			text := strings.TrimSpace(fmt.Sprint(question))
			if question == nil || text == "" {
				text = models.Humanize(key)
			}
			return text, raw
		}
	}
	return models.Humanize(key), entry
}

// subPayload returns the answer part of an entry, unwrapping {"answer": ...} objects.
func subPayload(entry any) any {
	if m, ok := entry.(map[string]any); ok {
		if raw, ok := m["answer"]; ok {
			return raw
		}
	}
	return entry
}

// decodeList accepts an array, a JSON string of an array, or a JSON string of such a string.
// ok is false when raw does not describe a list at all.
func decodeList(raw any) (items []any, ok bool, err error) {
	for range 2 {
		s, isString := raw.(string)
		if !isString {
			break
		}
		if strings.TrimSpace(s) == "" {
			return nil, false, nil
		}
		var decoded any
		if err := json.Unmarshal([]byte(s), &decoded); err != nil {
			return nil, false, err
		}
		raw = decoded
	}

	list, isList := raw.([]any)
	if !isList {
		return nil, false, nil
	}
	return list, true, nil
}
