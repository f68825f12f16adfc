// Package tracker keeps the personal finance tracker blob of each user and reports tracker
// activity to the CRM as tag events.
package tracker

import (
	"context"

	"github.com/Gobusters/ectologger"

	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

// CRM tags set on the contact of the tracker's owner.
const (
	TagSaved      = "Tracker Added/Updated"
	TagDeleted    = "Tracker Deleted"
	TagDownloaded = "Tracker Completed"
)

type EventPublisher interface {
	Publish(ctx context.Context, evt *kafka.Event) error
}

type Service struct {
	repo   repositories.TrackerRepo
	events EventPublisher
	logger ectologger.Logger
}

// NewService builds the tracker service. events may be nil.
func NewService(repo repositories.TrackerRepo, events EventPublisher, logger ectologger.Logger) *Service {
	return &Service{repo: repo, events: events, logger: logger}
}

func (s *Service) Get(ctx context.Context) (*models.FinanceTracker, error) {
	ctx, span := tracing.StartSpan(ctx, "TrackerService.Get")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, err
	}
	return s.repo.GetByUser(ctx, userID)
}

// Save creates or overwrites the caller's tracker. created reports whether it did not exist.
func (s *Service) Save(ctx context.Context, data map[string]any) (tracker *models.FinanceTracker, created bool, err error) {
	ctx, span := tracing.StartSpan(ctx, "TrackerService.Save")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return nil, false, err
	}
	if data == nil {
		data = map[string]any{}
	}

	tracker = &models.FinanceTracker{UserID: userID, Data: database.NewJSONB(data)}
	if created, err = s.repo.Upsert(ctx, tracker); err != nil {
		return nil, false, err
	}

	s.logger.WithContext(ctx).WithFields(map[string]any{
		"user_id": userID,
		"created": created,
	}).Info("Saved finance tracker")
	s.publishTag(ctx, TagSaved)
	return tracker, created, nil
}

func (s *Service) Delete(ctx context.Context) error {
	ctx, span := tracing.StartSpan(ctx, "TrackerService.Delete")
	defer span.End()

	userID, err := currentUser(ctx)
	if err != nil {
		return err
	}
	if err := s.repo.DeleteByUser(ctx, userID); err != nil {
		return err
	}
	s.publishTag(ctx, TagDeleted)
	return nil
}

// Downloaded records that the caller exported their tracker.
func (s *Service) Downloaded(ctx context.Context) error {
	_, err := currentUser(ctx)
	if err != nil {
		return err
	}
	s.publishTag(ctx, TagDownloaded)
	return nil
}

func (s *Service) publishTag(ctx context.Context, tag string) {
	if s.events == nil {
		return
	}

	actor := appctx.GetActor(ctx)
	evt := &kafka.Event{
		Type:     kafka.EventTrackerTag,
		TenantID: actor.TenantID,
		UserID:   actor.UserID,
		Email:    actor.Email,
		Tag:      tag,
	}
	if err := s.events.Publish(context.WithoutCancel(ctx), evt); err != nil {
		s.logger.WithContext(ctx).WithError(err).WithField("tag", tag).Warn("Failed to publish tracker event")
	}
}

func currentUser(ctx context.Context) (string, error) {
	userID := appctx.GetUserID(ctx)
	if userID == "" {
		return "", repositories.Unauthorized("authentication required")
	}
	return userID, nil
}
