package models

import (
	"github.com/Ramsey-B/organizer/pkg/answer"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
)

// SubmissionSnapshot is a fully materialized submission with plaintext answers, as read by the
// formatted view and the PDF export.
type SubmissionSnapshot struct {
	Submission    Submission
	FormType      FormType
	Sections      []SectionSnapshot
	Dependents    []Dependent
	Owners        []BusinessOwner
	Vehicles      []Vehicle
	Contributions []CharitableContribution
}

type SectionSnapshot struct {
	Section FormSection
	Answers []AnswerSnapshot
}

type AnswerSnapshot struct {
	QuestionKey  string
	QuestionText string
	FieldType    fieldtype.FieldType
	IsSensitive  bool
	Value        answer.Value
}

// Display renders the answer with sensitive values masked.
func (a AnswerSnapshot) Display() string {
	return fieldtype.Mask(a.QuestionKey, a.Value.String())
}
