package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type structuredRepo struct{ s *Store }

func (r structuredRepo) replace(ctx context.Context, op string, fn func()) error {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return err
	}
	if err := r.s.fail(op); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	fn()
	return nil
}

func (r structuredRepo) ReplaceDependents(ctx context.Context, submissionID uuid.UUID, dependents []models.Dependent) error {
	return r.replace(ctx, "Structured.ReplaceDependents", func() {
		for i := range dependents {
			dependents[i].ID, dependents[i].SubmissionID, dependents[i].CreatedAt = uuid.New(), submissionID, now()
		}
		r.s.state.dependents[submissionID] = slices.Clone(dependents)
	})
}

func (r structuredRepo) ReplaceBusinessOwners(ctx context.Context, submissionID uuid.UUID, owners []models.BusinessOwner) error {
	return r.replace(ctx, "Structured.ReplaceBusinessOwners", func() {
		for i := range owners {
			owners[i].ID, owners[i].SubmissionID, owners[i].CreatedAt = uuid.New(), submissionID, now()
		}
		r.s.state.owners[submissionID] = slices.Clone(owners)
	})
}

func (r structuredRepo) ReplaceVehicles(ctx context.Context, submissionID uuid.UUID, vehicles []models.Vehicle) error {
	return r.replace(ctx, "Structured.ReplaceVehicles", func() {
		for i := range vehicles {
			vehicles[i].ID, vehicles[i].SubmissionID, vehicles[i].CreatedAt = uuid.New(), submissionID, now()
		}
		r.s.state.vehicles[submissionID] = slices.Clone(vehicles)
	})
}

func (r structuredRepo) ReplaceContributions(ctx context.Context, submissionID uuid.UUID, contributions []models.CharitableContribution) error {
	return r.replace(ctx, "Structured.ReplaceContributions", func() {
		for i := range contributions {
			contributions[i].ID, contributions[i].SubmissionID, contributions[i].CreatedAt = uuid.New(), submissionID, now()
		}
		r.s.state.contributions[submissionID] = slices.Clone(contributions)
	})
}

func (r structuredRepo) ListDependents(ctx context.Context, submissionID uuid.UUID) ([]models.Dependent, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.state.dependents[submissionID]), nil
}

func (r structuredRepo) ListBusinessOwners(ctx context.Context, submissionID uuid.UUID) ([]models.BusinessOwner, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.state.owners[submissionID]), nil
}

func (r structuredRepo) ListVehicles(ctx context.Context, submissionID uuid.UUID) ([]models.Vehicle, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.state.vehicles[submissionID]), nil
}

func (r structuredRepo) ListContributions(ctx context.Context, submissionID uuid.UUID) ([]models.CharitableContribution, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return slices.Clone(r.s.state.contributions[submissionID]), nil
}
