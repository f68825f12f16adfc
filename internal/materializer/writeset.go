package materializer

import (
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/models"
)

// AnswerWrite is one typed answer ready to be stored. Encrypted values already hold ciphertext.
type AnswerWrite struct {
	Question models.FormQuestion
	Value    answer.Value
}

// Structured holds the sub-entities parsed from a section. A nil slice leaves that kind
// untouched; a non-nil slice, even an empty one, replaces every stored row of that kind.
type Structured struct {
	Dependents    []models.Dependent
	Owners        []models.BusinessOwner
	Vehicles      []models.Vehicle
	Contributions []models.CharitableContribution
}

func (s Structured) IsEmpty() bool {
	return s.Dependents == nil && s.Owners == nil && s.Vehicles == nil && s.Contributions == nil
}

// WriteSet is everything one section payload writes, across all three representations.
type WriteSet struct {
	SubmissionID uuid.UUID
	Section      models.FormSection
	SectionData  models.SectionData
	Answers      []AnswerWrite
	Structured   Structured
	// Warnings are recoverable problems: the affected answer is stored empty or the affected
	// sub-entity kind is left untouched.
	Warnings []string
}

// BuildWriteSet derives the write-set of one section. questions must hold a resolved question
// for every key of qa. Only encryption failures are returned as errors.
func BuildWriteSet(submissionID uuid.UUID, section models.FormSection, qa models.OrderedMap, questions map[string]models.FormQuestion, cipher encryption.Cipher) (*WriteSet, error) {
	ws := &WriteSet{
		SubmissionID: submissionID,
		Section:      section,
		SectionData: models.SectionData{
			SubmissionID: submissionID,
			SectionID:    section.ID,
			SectionKey:   section.SectionKey,
			Data: database.NewJSONB(map[string]any{
				models.QuestionsAndAnswersKey: copyValues(qa),
			}),
		},
	}

	for _, key := range qa.Keys {
		question, ok := questions[key]
		if !ok {
			continue
		}
		_, raw := splitEntry(key, qa.Values[key])

		value, warning, err := buildValue(question, raw, cipher)
		if err != nil {
			return nil, err
		}
		if warning != "" {
			ws.Warnings = append(ws.Warnings, warning)
		}
		ws.Answers = append(ws.Answers, AnswerWrite{Question: question, Value: value})
	}

	structured, warnings, err := extractStructured(section.SectionKey, qa, cipher)
	if err != nil {
		return nil, err
	}
	ws.Structured = structured
	ws.Warnings = append(ws.Warnings, warnings...)

	return ws, nil
}

// buildValue coerces raw into the question's slot and encrypts it when the question is
// encrypted. A coercion failure yields an empty value and a warning.
func buildValue(question models.FormQuestion, raw any, cipher encryption.Cipher) (answer.Value, string, error) {
	var warning string
	value, err := answer.New(question.FieldType, raw)
	if err != nil {
		warning = question.QuestionKey + ": " + err.Error()
		value = answer.Empty()
	}

	value, err = value.WithCiphertext(cipher.Encrypt)
	if err != nil {
		return answer.Empty(), "", err
	}
	return value, warning, nil
}

// ToAnswer maps a write onto the answer row of submissionID.
func (w AnswerWrite) ToAnswer(submissionID uuid.UUID) models.Answer {
	a := models.Answer{
		SubmissionID: submissionID,
		QuestionID:   w.Question.ID,
		QuestionKey:  w.Question.QuestionKey,
	}
	a.SetValue(w.Value)
	return a
}

func copyValues(qa models.OrderedMap) map[string]any {
	values := make(map[string]any, len(qa.Values))
	for key, value := range qa.Values {
		values[key] = value
	}
	return values
}
