package submission

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const recentSubmissions = 5

// Detail is a submission with its raw section blobs.
type Detail struct {
	*models.Submission
	SectionData []models.SectionData `json:"section_data"`
}

type SubmissionInfo struct {
	ID             uuid.UUID  `json:"id"`
	FormType       string     `json:"form_type"`
	Status         string     `json:"status"`
	SubmissionDate time.Time  `json:"submission_date"`
	CreatedAt      time.Time  `json:"created_at"`
	ProcessedAt    *time.Time `json:"processed_at,omitempty"`
}

type FormattedQuestion struct {
	Question    string `json:"question"`
	Answer      any    `json:"answer"`
	FieldType   string `json:"field_type"`
	IsSensitive bool   `json:"is_sensitive"`
}

type FormattedSection struct {
	SectionKey string              `json:"section_key"`
	Title      string              `json:"title"`
	Order      int                 `json:"order"`
	Questions  []FormattedQuestion `json:"questions"`
}

type FormattedDependent struct {
	Name             string  `json:"name"`
	Relationship     string  `json:"relationship"`
	DateOfBirth      *string `json:"date_of_birth"`
	MonthsLived      int     `json:"months_lived"`
	IsStudent        bool    `json:"is_student"`
	ChildCareExpense float64 `json:"care_expense"`
}

type FormattedOwner struct {
	Name                string  `json:"name"`
	OwnershipPercentage float64 `json:"ownership_percentage"`
	Address             string  `json:"address"`
	Phone               string  `json:"phone"`
}

// Formatted is the read model of a submission for review screens, with decrypted answers.
type Formatted struct {
	SubmissionInfo SubmissionInfo       `json:"submission_info"`
	Sections       []FormattedSection   `json:"sections"`
	Dependents     []FormattedDependent `json:"dependents"`
	BusinessOwners []FormattedOwner     `json:"business_owners"`
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*Detail, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Get", tracing.Submission(id))
	defer span.End()

	submission, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}
	data, err := s.sectionData.ListBySubmission(ctx, submission.ID)
	if err != nil {
		return nil, err
	}
	return &Detail{Submission: submission, SectionData: data}, nil
}

// List returns the submissions matching filter. Callers who are not staff only ever see their own.
func (s *Service) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.List")
	defer span.End()

	actor := appctx.GetActor(ctx)
	if !actor.IsStaff {
		filter.UserID = actor.UserID
	}
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, badRequest("invalid status")
	}
	return s.submissions.List(ctx, filter)
}

// Snapshot loads a submission with every answer decrypted and its sub-entities.
func (s *Service) Snapshot(ctx context.Context, id uuid.UUID) (*models.SubmissionSnapshot, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Snapshot", tracing.Submission(id))
	defer span.End()

	submission, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}
	formType, err := s.formTypes.GetByID(ctx, submission.FormTypeID)
	if err != nil {
		return nil, err
	}
	sections, err := s.sections.ListByFormType(ctx, submission.FormTypeID)
	if err != nil {
		return nil, err
	}
	details, err := s.answers.ListDetails(ctx, submission.ID)
	if err != nil {
		return nil, err
	}

	bySection := map[string][]models.AnswerSnapshot{}
	for _, detail := range details {
		bySection[detail.SectionKey] = append(bySection[detail.SectionKey], models.AnswerSnapshot{
			QuestionKey:  detail.QuestionKey,
			QuestionText: detail.QuestionText,
			FieldType:    fieldtype.FieldType(detail.FieldType),
			IsSensitive:  detail.IsSensitive,
			Value:        s.materializer.Decrypt(detail.TypedValue(fieldtype.FieldType(detail.FieldType))),
		})
	}

	snapshot := &models.SubmissionSnapshot{Submission: *submission, FormType: *formType}
	for _, section := range sections {
		answers, ok := bySection[section.SectionKey]
		if !ok {
			continue
		}
		snapshot.Sections = append(snapshot.Sections, models.SectionSnapshot{Section: section, Answers: answers})
	}

	if snapshot.Dependents, err = s.structured.ListDependents(ctx, submission.ID); err != nil {
		return nil, err
	}
	if snapshot.Owners, err = s.structured.ListBusinessOwners(ctx, submission.ID); err != nil {
		return nil, err
	}
	if snapshot.Vehicles, err = s.structured.ListVehicles(ctx, submission.ID); err != nil {
		return nil, err
	}
	if snapshot.Contributions, err = s.structured.ListContributions(ctx, submission.ID); err != nil {
		return nil, err
	}
	return snapshot, nil
}

func (s *Service) Formatted(ctx context.Context, id uuid.UUID) (*Formatted, error) {
	snapshot, err := s.Snapshot(ctx, id)
	if err != nil {
		return nil, err
	}

	submission := snapshot.Submission
	out := &Formatted{
		SubmissionInfo: SubmissionInfo{
			ID:             submission.ID,
			FormType:       snapshot.FormType.DisplayName,
			Status:         submission.Status.Label(),
			SubmissionDate: submission.SubmissionDate,
			CreatedAt:      submission.CreatedAt,
		},
		Sections:       []FormattedSection{},
		Dependents:     []FormattedDependent{},
		BusinessOwners: []FormattedOwner{},
	}
	if processedAt := submission.ClientInfo.Data.ProcessedAt; !processedAt.IsZero() {
		out.SubmissionInfo.ProcessedAt = &processedAt
	}

	for _, section := range snapshot.Sections {
		formatted := FormattedSection{
			SectionKey: section.Section.SectionKey,
			Title:      section.Section.Title,
			Order:      section.Section.Order,
			Questions:  make([]FormattedQuestion, 0, len(section.Answers)),
		}
		for _, a := range section.Answers {
			formatted.Questions = append(formatted.Questions, FormattedQuestion{
				Question:    a.QuestionText,
				Answer:      a.Value.Interface(),
				FieldType:   string(a.FieldType),
				IsSensitive: a.IsSensitive,
			})
		}
		out.Sections = append(out.Sections, formatted)
	}

	for _, d := range snapshot.Dependents {
		dependent := FormattedDependent{
			Name:             d.FullName(),
			Relationship:     d.Relationship,
			MonthsLived:      d.MonthsLivedWithYou,
			IsStudent:        d.IsFullTimeStudent,
			ChildCareExpense: d.ChildCareExpense,
		}
		if d.DateOfBirth != nil {
			dob := d.DateOfBirth.Format(time.DateOnly)
			dependent.DateOfBirth = &dob
		}
		out.Dependents = append(out.Dependents, dependent)
	}

	for _, o := range snapshot.Owners {
		out.BusinessOwners = append(out.BusinessOwners, FormattedOwner{
			Name:                o.FullName(),
			OwnershipPercentage: o.OwnershipPercentage,
			Address:             formatAddress(o),
			Phone:               o.WorkPhone,
		})
	}

	return out, nil
}

// Statistics summarizes the tenant's submissions for staff and the caller's own otherwise.
func (s *Service) Statistics(ctx context.Context) (*models.SubmissionStatistics, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Statistics")
	defer span.End()

	actor := appctx.GetActor(ctx)
	userID := ""
	if !actor.IsStaff {
		userID = actor.UserID
	}
	return s.submissions.Statistics(ctx, userID, recentSubmissions)
}

// AuditHistory lists the audit entries of a submission, newest first.
func (s *Service) AuditHistory(ctx context.Context, id uuid.UUID) ([]models.AuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.AuditHistory", tracing.Submission(id))
	defer span.End()

	submission, err := s.visible(ctx, id)
	if err != nil {
		return nil, err
	}
	return s.recorder.ListBySubmission(ctx, submission.ID)
}

func formatAddress(o models.BusinessOwner) string {
	locality := strings.TrimSpace(fmt.Sprintf("%s %s", o.State, o.ZipCode))
	parts := []string{}
	for _, part := range []string{o.Address, o.City, locality} {
		if part != "" {
			parts = append(parts, part)
		}
	}
	return strings.Join(parts, ", ")
}
