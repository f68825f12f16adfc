package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type submissionRepo struct{ s *Store }

// withFormType fills the joined form type name. Callers hold the lock.
func (r submissionRepo) withFormType(submission models.Submission) models.Submission {
	submission.FormTypeName = r.s.state.formTypes[submission.FormTypeID].Name
	return submission
}

func (r submissionRepo) Create(ctx context.Context, submission *models.Submission) error {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}
	if err := r.s.fail("Submissions.Create"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	submission.TenantID = tenantID
	if submission.ID == uuid.Nil {
		submission.ID = uuid.New()
	}
	submission.CreatedAt, submission.UpdatedAt = now(), now()
	r.s.state.submissions[submission.ID] = *submission
	return nil
}

func (r submissionRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	submission, ok := r.s.state.submissions[id]
	if !ok || submission.TenantID != tenantID {
		return nil, notFound("submission %s does not exist", id)
	}
	submission = r.withFormType(submission)
	return &submission, nil
}

func (r submissionRepo) List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	submissions := []models.Submission{}
	for _, submission := range r.s.state.submissions {
		submission = r.withFormType(submission)
		switch {
		case submission.TenantID != tenantID:
		case filter.UserID != "" && submission.UserID != filter.UserID:
		case filter.FormType != "" && submission.FormTypeName != filter.FormType:
		case filter.Status != "" && submission.Status != filter.Status:
		default:
			submissions = append(submissions, submission)
		}
	}
	slices.SortFunc(submissions, func(a, b models.Submission) int { return b.CreatedAt.Compare(a.CreatedAt) })

	if filter.Offset > 0 {
		submissions = submissions[min(filter.Offset, len(submissions)):]
	}
	if filter.Limit > 0 && len(submissions) > filter.Limit {
		submissions = submissions[:filter.Limit]
	}
	return submissions, nil
}

func (r submissionRepo) Update(ctx context.Context, submission *models.Submission) error {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}
	if err := r.s.fail("Submissions.Update"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.submissions[submission.ID]
	if !ok || stored.TenantID != tenantID {
		return notFound("submission %s does not exist", submission.ID)
	}
	stored.Status = submission.Status
	stored.SubmissionDate = submission.SubmissionDate
	stored.ClientInfo = submission.ClientInfo
	stored.ProcessingNotes = submission.ProcessingNotes
	stored.UpdatedAt = now()
	submission.UpdatedAt = stored.UpdatedAt
	r.s.state.submissions[submission.ID] = stored
	return nil
}

func (r submissionRepo) Delete(ctx context.Context, id uuid.UUID) error {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return err
	}
	if err := r.s.fail("Submissions.Delete"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.state.submissions[id]
	if !ok || stored.TenantID != tenantID {
		return notFound("submission %s does not exist", id)
	}
	delete(r.s.state.submissions, id)
	r.deleteChildren(id)
	r.s.state.audit = slices.DeleteFunc(r.s.state.audit, func(entry models.AuditLog) bool {
		return entry.SubmissionID == id
	})
	return nil
}

func (r submissionRepo) DeleteChildren(ctx context.Context, id uuid.UUID) error {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return err
	}
	if err := r.s.fail("Submissions.DeleteChildren"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.deleteChildren(id)
	return nil
}

func (r submissionRepo) deleteChildren(id uuid.UUID) {
	for key, data := range r.s.state.sectionData {
		if data.SubmissionID == id {
			delete(r.s.state.sectionData, key)
		}
	}
	for key, a := range r.s.state.answers {
		if a.SubmissionID == id {
			delete(r.s.state.answers, key)
		}
	}
	delete(r.s.state.dependents, id)
	delete(r.s.state.owners, id)
	delete(r.s.state.vehicles, id)
	delete(r.s.state.contributions, id)
}

func (r submissionRepo) Statistics(ctx context.Context, userID string, recent int) (*models.SubmissionStatistics, error) {
	all, err := r.List(ctx, models.SubmissionFilter{UserID: userID})
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stats := &models.SubmissionStatistics{
		Total:             len(all),
		ByStatus:          map[string]int{},
		ByFormType:        map[string]int{},
		RecentSubmissions: []models.SubmissionOverview{},
	}
	for i, submission := range all {
		stats.ByStatus[submission.Status.Label()]++
		stats.ByFormType[r.s.state.formTypes[submission.FormTypeID].DisplayName]++
		if i < recent {
			stats.RecentSubmissions = append(stats.RecentSubmissions, models.SubmissionOverview{
				ID:        submission.ID,
				FormType:  submission.FormTypeName,
				Status:    submission.Status,
				CreatedAt: submission.CreatedAt,
			})
		}
	}
	return stats, nil
}
