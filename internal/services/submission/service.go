// Package submission owns the submission aggregate: creation, the full replace and partial
// update paths, the status graph and the reads built on the materialized children.
package submission

import (
	"context"
	"net/http"
	"time"

	"github.com/Gobusters/ectoerror/httperror"
	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/internal/materializer"
	"github.com/Ramsey-B/organizer/internal/services/audit"
	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/encryption"
	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/metrics"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

// Transactor runs fn in one transaction carried by its ctx.
type Transactor interface {
	WithinTx(ctx context.Context, fn func(ctx context.Context) error) error
}

// Locker serializes mutations of one submission. release must be called once.
type Locker interface {
	Hold(ctx context.Context, key string) (release func(), err error)
}

type EventPublisher interface {
	Publish(ctx context.Context, evt *kafka.Event) error
}

type nopLocker struct{}

func (nopLocker) Hold(context.Context, string) (func(), error) {
	return func() {}, nil
}

type Config struct {
	Transactor   Transactor
	FormTypes    repositories.FormTypeRepo
	Sections     repositories.SectionRepo
	Submissions  repositories.SubmissionRepo
	SectionData  repositories.SectionDataRepo
	Answers      repositories.AnswerRepo
	Structured   repositories.StructuredRepo
	Materializer *materializer.Materializer
	Recorder     *audit.Recorder
	Cipher       encryption.Cipher
	// Locker is optional; without it concurrent mutations of one submission are not serialized.
	Locker Locker
	// Events is optional; without it no status events are emitted.
	Events EventPublisher
	Logger ectologger.Logger
}

type Service struct {
	tx           Transactor
	formTypes    repositories.FormTypeRepo
	sections     repositories.SectionRepo
	submissions  repositories.SubmissionRepo
	sectionData  repositories.SectionDataRepo
	answers      repositories.AnswerRepo
	structured   repositories.StructuredRepo
	materializer *materializer.Materializer
	recorder     *audit.Recorder
	cipher       encryption.Cipher
	locker       Locker
	events       EventPublisher
	logger       ectologger.Logger
	now          func() time.Time
}

func New(cfg Config) *Service {
	locker := cfg.Locker
	if locker == nil {
		locker = nopLocker{}
	}
	return &Service{
		tx:           cfg.Transactor,
		formTypes:    cfg.FormTypes,
		sections:     cfg.Sections,
		submissions:  cfg.Submissions,
		sectionData:  cfg.SectionData,
		answers:      cfg.Answers,
		structured:   cfg.Structured,
		materializer: cfg.Materializer,
		recorder:     cfg.Recorder,
		cipher:       cfg.Cipher,
		locker:       locker,
		events:       cfg.Events,
		logger:       cfg.Logger,
		now:          func() time.Time { return time.Now().UTC() },
	}
}

func lockKey(id uuid.UUID) string {
	return "submission:" + id.String()
}

func forbidden() error {
	return httperror.NewHTTPError(http.StatusForbidden, "permission denied")
}

func badRequest(message string) error {
	return httperror.NewHTTPError(http.StatusBadRequest, message)
}

// canModify reports whether the caller owns the submission or is staff.
func canModify(actor appctx.Actor, submission *models.Submission) bool {
	return actor.IsStaff || submission.IsOwnedBy(actor.UserID)
}

// visible loads a submission the caller may read. Other users' submissions are reported as
// missing rather than forbidden.
func (s *Service) visible(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	submission, err := s.submissions.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if !canModify(appctx.GetActor(ctx), submission) {
		return nil, repositories.NotFound("submission %s does not exist", id)
	}
	return submission, nil
}

// mutate runs fn on a submission the caller may modify, holding the submission lock and one
// transaction around the load and fn. The transaction's view of the submission is passed to fn.
func (s *Service) mutate(ctx context.Context, id uuid.UUID, action string, fn func(ctx context.Context, submission *models.Submission) error) (*models.Submission, error) {
	start := time.Now()

	release, err := s.locker.Hold(ctx, lockKey(id))
	if err != nil {
		return nil, err
	}
	defer release()

	var submission *models.Submission
	err = s.tx.WithinTx(ctx, func(ctx context.Context) error {
		loaded, err := s.submissions.GetByID(ctx, id)
		if err != nil {
			return err
		}
		if !canModify(appctx.GetActor(ctx), loaded) {
			return forbidden()
		}
		submission = loaded
		return fn(ctx, loaded)
	})
	if err != nil {
		s.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": id,
			"action":        action,
		}).Warn("Submission mutation rolled back")
		return nil, err
	}

	metrics.RecordMutation(submission.FormTypeName, action, time.Since(start).Seconds())
	return submission, nil
}

// publishStatus emits the status event of submission. Failures are logged only.
func (s *Service) publishStatus(ctx context.Context, submission *models.Submission) {
	if s.events == nil {
		return
	}

	evt := &kafka.Event{
		Type:         kafka.EventSubmissionStatus,
		TenantID:     submission.TenantID.String(),
		UserID:       submission.UserID,
		Email:        submission.UserEmail,
		SubmissionID: submission.ID.String(),
		FormType:     submission.FormTypeName,
		Status:       string(submission.Status),
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("submission_id", submission.ID).
			Warn("Failed to publish submission status event")
	}
}
