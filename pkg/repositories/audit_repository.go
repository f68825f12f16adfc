package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const formAuditLogsTable = "form_audit_logs"

var auditLogStruct = database.NewStruct(new(models.AuditLog))

// AuditRepository appends and reads submission audit entries. Entries are never updated.
type AuditRepository struct {
	*Repository
}

func NewAuditRepository(db database.DB, logger ectologger.Logger) *AuditRepository {
	return &AuditRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *AuditRepository) Create(ctx context.Context, entry *models.AuditLog) error {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.Create")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return err
	}

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}

	ib := database.NewInsertBuilder()
	ib.InsertInto(formAuditLogsTable).
		Cols("id", "submission_id", "action", "user_id", "timestamp", "changes", "ip_address", "user_agent").
		Values(entry.ID, entry.SubmissionID, entry.Action, entry.UserID, database.Now(), entry.Changes,
			entry.IPAddress, entry.UserAgent).
		Returning("timestamp")

	query, args := ib.Build()
	if err := r.exec(ctx).QueryRowxContext(ctx, query, args...).Scan(&entry.Timestamp); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": entry.SubmissionID,
			"action":        entry.Action,
		}).Error("failed to create audit log")
		return Internal("failed to create audit log")
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": entry.SubmissionID,
		"action":        entry.Action,
	}).Debugf("Created %s", formAuditLogsTable)
	return nil
}

// ListBySubmission returns a submission's audit entries, newest first.
func (r *AuditRepository) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.AuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "AuditRepository.ListBySubmission")
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return nil, err
	}

	sb := auditLogStruct.SelectFrom(formAuditLogsTable)
	sb.Where(sb.Equal("submission_id", submissionID))
	sb.OrderBy("timestamp").Desc()

	query, args := sb.Build()
	logs := []models.AuditLog{}
	if err := r.exec(ctx).SelectContext(ctx, &logs, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
		}).Error("failed to list audit logs")
		return nil, Internal("failed to list audit logs")
	}
	return logs, nil
}
