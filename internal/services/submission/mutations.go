package submission

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectolinq"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/internal/materializer"
	"github.com/Ramsey-B/organizer/pkg/answer"
	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/fieldtype"
	"github.com/Ramsey-B/organizer/pkg/metrics"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const (
	dependentsQuestion = "List of Dependents"
	ownersQuestion     = "Business Owners Details"
)

// Create stores a new submitted form and materializes every section of the payload.
func (s *Service) Create(ctx context.Context, payload models.SubmissionPayload) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Create")
	defer span.End()
	start := time.Now()

	formTypeName := strings.TrimSpace(payload.FormType)
	if formTypeName == "" {
		return nil, badRequest("formType is required")
	}
	submissionDate, err := s.submissionDate(payload.SubmissionDate)
	if err != nil {
		return nil, err
	}

	actor := appctx.GetActor(ctx)
	if actor.UserID == "" {
		return nil, repositories.Unauthorized("authentication required")
	}

	submission := &models.Submission{
		ID:             uuid.New(),
		UserID:         actor.UserID,
		UserEmail:      actor.Email,
		Status:         models.SubmissionStatusSubmitted,
		SubmissionDate: submissionDate,
		ClientInfo: database.NewJSONB(models.ClientInfo{
			IPAddress:   actor.RemoteIP,
			UserAgent:   actor.UserAgent,
			ProcessedAt: s.now(),
		}),
	}

	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		formType, err := s.formTypes.GetOrCreate(ctx, formTypeName)
		if err != nil {
			return err
		}
		submission.FormTypeID = formType.ID
		submission.FormTypeName = formType.Name

		if err := s.submissions.Create(ctx, submission); err != nil {
			return err
		}
		if err := s.materializeAll(ctx, submission, payload.Sections); err != nil {
			return err
		}
		return s.recorder.Record(ctx, submission.ID, models.AuditActionCreated, map[string]any{
			"sections": sectionKeys(payload.Sections),
		})
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("form_type", formTypeName).Warn("Submission create rolled back")
		return nil, err
	}

	metrics.RecordMutation(submission.FormTypeName, "create", time.Since(start).Seconds())
	s.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submission.ID,
		"form_type":     submission.FormTypeName,
		"sections":      payload.Sections.Len(),
	}).Info("Created submission")

	s.publishStatus(ctx, submission)
	return submission, nil
}

// Replace deletes every child row of the submission and re-materializes the payload, so
// sections missing from it are gone afterwards. The audit trail is kept.
func (s *Service) Replace(ctx context.Context, id uuid.UUID, payload models.SubmissionPayload) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Replace", tracing.Submission(id))
	defer span.End()

	if strings.TrimSpace(payload.FormType) == "" {
		return nil, badRequest("formType is required")
	}
	submissionDate, err := s.submissionDate(payload.SubmissionDate)
	if err != nil {
		return nil, err
	}

	return s.mutate(ctx, id, "replace", func(ctx context.Context, submission *models.Submission) error {
		if err := s.submissions.DeleteChildren(ctx, submission.ID); err != nil {
			return err
		}

		submission.SubmissionDate = submissionDate
		if err := s.submissions.Update(ctx, submission); err != nil {
			return err
		}
		if err := s.materializeAll(ctx, submission, payload.Sections); err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionUpdated, map[string]any{
			"sections_updated": sectionKeys(payload.Sections),
			"timestamp":        s.now().Format(time.RFC3339),
		})
	})
}

// PartialUpdate applies the fields present in patch. Sections it names are re-materialized;
// every other section is left as stored.
func (s *Service) PartialUpdate(ctx context.Context, id uuid.UUID, patch models.SubmissionPatch) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.PartialUpdate", tracing.Submission(id))
	defer span.End()

	statusChanged := false
	submission, err := s.mutate(ctx, id, "partial_update", func(ctx context.Context, submission *models.Submission) error {
		updated := []string{}

		if patch.Status != nil {
			next := *patch.Status
			if err := checkTransition(submission.Status, next); err != nil {
				return err
			}
			updated = append(updated, fmt.Sprintf("status: %s → %s", submission.Status, next))
			statusChanged = submission.Status != next
			submission.Status = next
		}

		if patch.ProcessingNotes != nil {
			old := ""
			if submission.ProcessingNotes != nil {
				old = *submission.ProcessingNotes
			}
			updated = append(updated, fmt.Sprintf("processing_notes: %s → %s", old, *patch.ProcessingNotes))
			submission.ProcessingNotes = patch.ProcessingNotes
		}

		if patch.Sections != nil {
			if err := s.materializeAll(ctx, submission, *patch.Sections); err != nil {
				return err
			}
			for _, key := range patch.Sections.Keys {
				updated = append(updated, "Section: "+key)
			}
		}

		if err := s.submissions.Update(ctx, submission); err != nil {
			return err
		}
		return s.recorder.Record(ctx, submission.ID, models.AuditActionPartialUpdate, map[string]any{
			"updated_fields": updated,
		})
	})
	if err != nil {
		return nil, err
	}

	if statusChanged {
		s.publishStatus(ctx, submission)
	}
	return submission, nil
}

// UpdateSection re-materializes one section and returns its stored blob.
func (s *Service) UpdateSection(ctx context.Context, id uuid.UUID, sectionKey string, section models.SectionPayload) (*models.SectionData, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.UpdateSection", tracing.Submission(id), tracing.Section(sectionKey))
	defer span.End()

	if strings.TrimSpace(sectionKey) == "" {
		return nil, badRequest("section_key and section_data are required")
	}

	var data *models.SectionData
	_, err := s.mutate(ctx, id, "section_update", func(ctx context.Context, submission *models.Submission) error {
		result, err := s.materializer.MaterializeSection(ctx, submission, sectionKey, section)
		if err != nil {
			return err
		}
		if data, err = s.sectionData.Get(ctx, submission.ID, result.Section.ID); err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionSectionUpdated, map[string]any{
			"section_key":       sectionKey,
			"questions_updated": append([]string{}, section.QuestionsAndAnswers.Keys...),
		})
	})
	if err != nil {
		return nil, err
	}
	return data, nil
}

// UpdateQuestion overwrites one answer of an existing question. Sensitive values are masked in
// the audit entry.
func (s *Service) UpdateQuestion(ctx context.Context, id uuid.UUID, sectionKey, questionKey string, value any) (*materializer.QuestionResult, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.UpdateQuestion", tracing.Submission(id), tracing.Section(sectionKey), tracing.Question(questionKey))
	defer span.End()

	if strings.TrimSpace(sectionKey) == "" || strings.TrimSpace(questionKey) == "" {
		return nil, badRequest("question_key and section_key are required")
	}

	var result *materializer.QuestionResult
	_, err := s.mutate(ctx, id, "question_update", func(ctx context.Context, submission *models.Submission) error {
		var err error
		result, err = s.materializer.MaterializeQuestion(ctx, submission, sectionKey, questionKey, value)
		if err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionQuestionUpdated, map[string]any{
			"section_key":  sectionKey,
			"question_key": questionKey,
			"old_value":    auditValue(result.Question, result.Old),
			"new_value":    auditValue(result.Question, result.New),
		})
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// UpdateDependents replaces every dependent row and rewrites the dependents section blob to the
// given list.
func (s *Service) UpdateDependents(ctx context.Context, id uuid.UUID, items []map[string]any) ([]models.Dependent, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.UpdateDependents", tracing.Submission(id))
	defer span.End()

	var dependents []models.Dependent
	_, err := s.mutate(ctx, id, "dependents_update", func(ctx context.Context, submission *models.Submission) error {
		var err error
		dependents, err = materializer.ParseDependents(items, s.cipher)
		if err != nil {
			return s.encryptionFailed(ctx, submission, err)
		}
		if err := s.structured.ReplaceDependents(ctx, submission.ID, dependents); err != nil {
			return err
		}
		metrics.RecordStructuredRows("dependents", len(dependents))

		if err := s.writeListBlob(ctx, submission, materializer.DependentsSection, materializer.DependentsKey, dependentsQuestion, items); err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionDependentsUpdated, map[string]any{
			"dependents_count": len(dependents),
			"dependent_names":  ectolinq.Map(dependents, func(d models.Dependent) string { return d.FullName() }),
		})
	})
	if err != nil {
		return nil, err
	}
	return dependents, nil
}

// UpdateBusinessOwners replaces every owner row and rewrites the ownerInfo section blob to the
// given list.
func (s *Service) UpdateBusinessOwners(ctx context.Context, id uuid.UUID, items []map[string]any) ([]models.BusinessOwner, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.UpdateBusinessOwners", tracing.Submission(id))
	defer span.End()

	var owners []models.BusinessOwner
	_, err := s.mutate(ctx, id, "business_owners_update", func(ctx context.Context, submission *models.Submission) error {
		var err error
		owners, err = materializer.ParseBusinessOwners(items, s.cipher)
		if err != nil {
			return s.encryptionFailed(ctx, submission, err)
		}
		if err := s.structured.ReplaceBusinessOwners(ctx, submission.ID, owners); err != nil {
			return err
		}
		metrics.RecordStructuredRows("business_owners", len(owners))

		if err := s.writeListBlob(ctx, submission, materializer.OwnersSection, materializer.OwnersKey, ownersQuestion, items); err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionBusinessOwnersUpdated, map[string]any{
			"owners_count": len(owners),
			"owner_names":  ectolinq.Map(owners, func(o models.BusinessOwner) string { return o.FullName() }),
		})
	})
	if err != nil {
		return nil, err
	}
	return owners, nil
}

// UpdateStatus moves the submission to status, refusing submitted → draft.
func (s *Service) UpdateStatus(ctx context.Context, id uuid.UUID, status models.SubmissionStatus) (*models.Submission, error) {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.UpdateStatus", tracing.Submission(id))
	defer span.End()

	if !status.Valid() {
		return nil, badRequest("invalid status")
	}

	changed := false
	submission, err := s.mutate(ctx, id, "status_update", func(ctx context.Context, submission *models.Submission) error {
		old := submission.Status
		if err := checkTransition(old, status); err != nil {
			return err
		}
		changed = old != status
		submission.Status = status
		if err := s.submissions.Update(ctx, submission); err != nil {
			return err
		}

		return s.recorder.Record(ctx, submission.ID, models.AuditActionStatusUpdated, map[string]any{
			"old_status": old,
			"new_status": status,
		})
	})
	if err != nil {
		return nil, err
	}

	if changed {
		s.publishStatus(ctx, submission)
	}
	return submission, nil
}

// Delete removes the submission and, by cascade, every child row including its audit trail.
func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	ctx, span := tracing.StartSpan(ctx, "SubmissionService.Delete", tracing.Submission(id))
	defer span.End()

	_, err := s.mutate(ctx, id, "delete", func(ctx context.Context, submission *models.Submission) error {
		return s.submissions.Delete(ctx, submission.ID)
	})
	return err
}

func (s *Service) materializeAll(ctx context.Context, submission *models.Submission, sections models.OrderedSection) error {
	for _, key := range sections.Keys {
		if _, err := s.materializer.MaterializeSection(ctx, submission, key, sections.Items[key]); err != nil {
			return err
		}
	}
	return nil
}

// writeListBlob stores a list edited outside its section as the section's only question.
func (s *Service) writeListBlob(ctx context.Context, submission *models.Submission, sectionKey, questionKey, questionText string, items []map[string]any) error {
	section, err := s.sections.GetOrCreate(ctx, submission.FormTypeID, sectionKey, models.Humanize(sectionKey))
	if err != nil {
		return err
	}

	if items == nil {
		items = []map[string]any{}
	}
	encoded, err := json.Marshal(items)
	if err != nil {
		return badRequest("list items must be JSON objects")
	}

	return s.sectionData.Upsert(ctx, &models.SectionData{
		SubmissionID: submission.ID,
		SectionID:    section.ID,
		SectionKey:   sectionKey,
		Data: database.NewJSONB(map[string]any{
			models.QuestionsAndAnswersKey: map[string]any{
				questionKey: map[string]any{
					"question": questionText,
					"answer":   string(encoded),
				},
			},
		}),
	})
}

func (s *Service) encryptionFailed(ctx context.Context, submission *models.Submission, err error) error {
	s.logger.WithContext(ctx).WithError(err).WithField("submission_id", submission.ID).Error("failed to encrypt sensitive values")
	return httperror.NewHTTPError(http.StatusInternalServerError, "failed to save submission")
}

// submissionDate parses the payload date, defaulting to now.
func (s *Service) submissionDate(raw string) (time.Time, error) {
	if strings.TrimSpace(raw) == "" {
		return s.now(), nil
	}
	t, err := answer.ParseDate(raw)
	if err != nil {
		return time.Time{}, badRequest("submissionDate must be an ISO-8601 date")
	}
	return t.UTC(), nil
}

func checkTransition(current, next models.SubmissionStatus) error {
	if !next.Valid() {
		return badRequest("invalid status")
	}
	if !current.CanTransitionTo(next) {
		return badRequest(fmt.Sprintf("cannot change status from %s to %s", current, next))
	}
	return nil
}

func auditValue(question models.FormQuestion, v answer.Value) any {
	if v.IsEmpty() {
		return nil
	}
	if question.IsSensitive {
		return fieldtype.Mask(question.QuestionKey, v.String())
	}
	return v.String()
}

func sectionKeys(sections models.OrderedSection) []string {
	return append([]string{}, sections.Keys...)
}
