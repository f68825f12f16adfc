// Package audit appends the audit trail of submission mutations.
package audit

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/metrics"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

type Recorder struct {
	repo   repositories.AuditRepo
	logger ectologger.Logger
}

func NewRecorder(repo repositories.AuditRepo, logger ectologger.Logger) *Recorder {
	return &Recorder{repo: repo, logger: logger}
}

// Record appends one entry inside the transaction carried by ctx. The acting user, IP and user
// agent are taken from ctx. A failure is returned so the mutation rolls back with it.
func (r *Recorder) Record(ctx context.Context, submissionID uuid.UUID, action models.AuditAction, changes map[string]any) error {
	ctx, span := tracing.StartSpan(ctx, "Recorder.Record")
	defer span.End()

	actor := appctx.GetActor(ctx)
	if changes == nil {
		changes = map[string]any{}
	}

	entry := &models.AuditLog{
		SubmissionID: submissionID,
		Action:       action,
		UserID:       actor.UserID,
		Changes:      database.NewJSONB(changes),
		IPAddress:    optional(actor.RemoteIP),
		UserAgent:    optional(actor.UserAgent),
	}
	if err := r.repo.Create(ctx, entry); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
			"action":        action,
		}).Error("failed to record audit entry")
		return err
	}

	metrics.RecordAuditEntry(string(action))
	return nil
}

func (r *Recorder) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.AuditLog, error) {
	ctx, span := tracing.StartSpan(ctx, "Recorder.ListBySubmission")
	defer span.End()

	return r.repo.ListBySubmission(ctx, submissionID)
}

func optional(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
