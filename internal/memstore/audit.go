package memstore

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type auditRepo struct{ s *Store }

func (r auditRepo) Create(ctx context.Context, entry *models.AuditLog) error {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return err
	}
	if err := r.s.fail("Audit.Create"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	entry.Timestamp = now()
	stored := *entry
	stored.Changes = database.NewJSONB(cloneJSON(entry.Changes.Data))
	r.s.state.audit = append(r.s.state.audit, stored)
	return nil
}

func (r auditRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.AuditLog, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	logs := []models.AuditLog{}
	for i := len(r.s.state.audit) - 1; i >= 0; i-- {
		if entry := r.s.state.audit[i]; entry.SubmissionID == submissionID {
			logs = append(logs, entry)
		}
	}
	return logs, nil
}

type trackerRepo struct{ s *Store }

func trackerKey(tenantID uuid.UUID, userID string) string {
	return fmt.Sprintf("%s/%s", tenantID, userID)
}

func (r trackerRepo) GetByUser(ctx context.Context, userID string) (*models.FinanceTracker, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	tracker, ok := r.s.state.trackers[trackerKey(tenantID, userID)]
	if !ok {
		return nil, notFound("tracker data does not exist")
	}
	tracker.Data = database.NewJSONB(cloneJSON(tracker.Data.Data))
	return &tracker, nil
}

func (r trackerRepo) Upsert(ctx context.Context, tracker *models.FinanceTracker) (bool, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return false, err
	}
	if err := r.s.fail("Trackers.Upsert"); err != nil {
		return false, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := trackerKey(tenantID, tracker.UserID)
	existing, found := r.s.state.trackers[key]
	tracker.TenantID = tenantID
	tracker.UpdatedAt = now()
	if found {
		tracker.ID, tracker.CreatedAt = existing.ID, existing.CreatedAt
	} else {
		tracker.ID, tracker.CreatedAt = uuid.New(), tracker.UpdatedAt
	}
	stored := *tracker
	stored.Data = database.NewJSONB(cloneJSON(tracker.Data.Data))
	r.s.state.trackers[key] = stored
	return !found, nil
}

func (r trackerRepo) DeleteByUser(ctx context.Context, userID string) error {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	key := trackerKey(tenantID, userID)
	if _, ok := r.s.state.trackers[key]; !ok {
		return notFound("tracker data does not exist")
	}
	delete(r.s.state.trackers, key)
	return nil
}
