package repositories

import (
	"context"

	"github.com/Gobusters/ectologger"
	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

const (
	dependentsTable              = "dependents"
	businessOwnersTable          = "business_owners"
	vehiclesTable                = "vehicles"
	charitableContributionsTable = "charitable_contributions"
)

var (
	dependentStruct    = database.NewStruct(new(models.Dependent))
	ownerStruct        = database.NewStruct(new(models.BusinessOwner))
	vehicleStruct      = database.NewStruct(new(models.Vehicle))
	contributionStruct = database.NewStruct(new(models.CharitableContribution))
)

// StructuredRepository stores the relational sub-entities extracted from section payloads.
// Every kind is replaced wholesale: existing rows are deleted and the new set inserted.
// Rows keep their payload order in the position column.
type StructuredRepository struct {
	*Repository
}

func NewStructuredRepository(db database.DB, logger ectologger.Logger) *StructuredRepository {
	return &StructuredRepository{
		Repository: NewRepository(db, logger),
	}
}

func (r *StructuredRepository) ReplaceDependents(ctx context.Context, submissionID uuid.UUID, dependents []models.Dependent) error {
	ctx, span := tracing.StartSpan(ctx, "StructuredRepository.ReplaceDependents")
	defer span.End()

	columns := []string{"id", "submission_id", "first_name", "last_name", "ssn", "relationship", "date_of_birth",
		"months_lived_with_you", "is_full_time_student", "child_care_expense", "created_at"}
	return replaceRows(ctx, r.Repository, dependentsTable, submissionID, dependents, columns, func(d *models.Dependent) []any {
		if d.ID == uuid.Nil {
			d.ID = uuid.New()
		}
		d.SubmissionID = submissionID
		return []any{d.ID, d.SubmissionID, d.FirstName, d.LastName, d.SSN, d.Relationship, d.DateOfBirth,
			d.MonthsLivedWithYou, d.IsFullTimeStudent, d.ChildCareExpense, database.Now()}
	})
}

func (r *StructuredRepository) ReplaceBusinessOwners(ctx context.Context, submissionID uuid.UUID, owners []models.BusinessOwner) error {
	ctx, span := tracing.StartSpan(ctx, "StructuredRepository.ReplaceBusinessOwners")
	defer span.End()

	columns := []string{"id", "submission_id", "first_name", "initial", "last_name", "ssn", "address", "city", "state",
		"zip_code", "country", "work_phone", "ownership_percentage", "created_at"}
	return replaceRows(ctx, r.Repository, businessOwnersTable, submissionID, owners, columns, func(o *models.BusinessOwner) []any {
		if o.ID == uuid.Nil {
			o.ID = uuid.New()
		}
		o.SubmissionID = submissionID
		return []any{o.ID, o.SubmissionID, o.FirstName, o.Initial, o.LastName, o.SSN, o.Address, o.City, o.State,
			o.ZipCode, o.Country, o.WorkPhone, o.OwnershipPercentage, database.Now()}
	})
}

func (r *StructuredRepository) ReplaceVehicles(ctx context.Context, submissionID uuid.UUID, vehicles []models.Vehicle) error {
	ctx, span := tracing.StartSpan(ctx, "StructuredRepository.ReplaceVehicles")
	defer span.End()

	columns := []string{"id", "submission_id", "description", "date_placed_in_service", "total_miles", "business_miles", "created_at"}
	return replaceRows(ctx, r.Repository, vehiclesTable, submissionID, vehicles, columns, func(v *models.Vehicle) []any {
		if v.ID == uuid.Nil {
			v.ID = uuid.New()
		}
		v.SubmissionID = submissionID
		return []any{v.ID, v.SubmissionID, v.Description, v.DatePlacedInService, v.TotalMiles, v.BusinessMiles, database.Now()}
	})
}

func (r *StructuredRepository) ReplaceContributions(ctx context.Context, submissionID uuid.UUID, contributions []models.CharitableContribution) error {
	ctx, span := tracing.StartSpan(ctx, "StructuredRepository.ReplaceContributions")
	defer span.End()

	columns := []string{"id", "submission_id", "organization_name", "amount", "created_at"}
	return replaceRows(ctx, r.Repository, charitableContributionsTable, submissionID, contributions, columns, func(c *models.CharitableContribution) []any {
		if c.ID == uuid.Nil {
			c.ID = uuid.New()
		}
		c.SubmissionID = submissionID
		return []any{c.ID, c.SubmissionID, c.OrganizationName, c.Amount, database.Now()}
	})
}

func (r *StructuredRepository) ListDependents(ctx context.Context, submissionID uuid.UUID) ([]models.Dependent, error) {
	var dependents []models.Dependent
	err := listRows(ctx, r.Repository, "StructuredRepository.ListDependents", dependentStruct, dependentsTable, submissionID, &dependents)
	return dependents, err
}

func (r *StructuredRepository) ListBusinessOwners(ctx context.Context, submissionID uuid.UUID) ([]models.BusinessOwner, error) {
	var owners []models.BusinessOwner
	err := listRows(ctx, r.Repository, "StructuredRepository.ListBusinessOwners", ownerStruct, businessOwnersTable, submissionID, &owners)
	return owners, err
}

func (r *StructuredRepository) ListVehicles(ctx context.Context, submissionID uuid.UUID) ([]models.Vehicle, error) {
	var vehicles []models.Vehicle
	err := listRows(ctx, r.Repository, "StructuredRepository.ListVehicles", vehicleStruct, vehiclesTable, submissionID, &vehicles)
	return vehicles, err
}

func (r *StructuredRepository) ListContributions(ctx context.Context, submissionID uuid.UUID) ([]models.CharitableContribution, error) {
	var contributions []models.CharitableContribution
	err := listRows(ctx, r.Repository, "StructuredRepository.ListContributions", contributionStruct, charitableContributionsTable, submissionID, &contributions)
	return contributions, err
}

func replaceRows[T any](ctx context.Context, r *Repository, table string, submissionID uuid.UUID, rows []T, columns []string, values func(*T) []any) error {
	if _, err := GetTenantID(ctx); err != nil {
		return err
	}

	db := database.NewDeleteBuilder()
	db.DeleteFrom(table).Where(db.Equal("submission_id", submissionID))

	query, args := db.Build()
	if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
			"table":         table,
		}).Error("failed to delete structured rows")
		return Internal("failed to replace " + table)
	}

	position := 0
	for _, batch := range batches(rows, insertBatchSize) {
		ib := database.NewInsertBuilder()
		ib.InsertInto(table).Cols(append(columns, "position")...)
		for i := range batch {
			ib.Values(append(values(&batch[i]), position)...)
			position++
		}

		query, args := ib.Build()
		if _, err := r.exec(ctx).ExecContext(ctx, query, args...); err != nil {
			r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
				"submission_id": submissionID,
				"table":         table,
				"row_count":     len(batch),
			}).Error("failed to insert structured rows")
			return Internal("failed to replace " + table)
		}
	}

	r.logger.WithContext(ctx).WithFields(map[string]any{
		"submission_id": submissionID,
		"row_count":     len(rows),
	}).Debugf("Replaced %s", table)
	return nil
}

func listRows(ctx context.Context, r *Repository, spanName string, s *database.Struct, table string, submissionID uuid.UUID, dest any) error {
	ctx, span := tracing.StartSpan(ctx, spanName)
	defer span.End()

	if _, err := GetTenantID(ctx); err != nil {
		return err
	}

	sb := s.SelectFrom(table)
	sb.Where(sb.Equal("submission_id", submissionID))
	sb.OrderBy("position")

	query, args := sb.Build()
	if err := r.exec(ctx).SelectContext(ctx, dest, query, args...); err != nil {
		r.logger.WithContext(ctx).WithError(err).WithFields(map[string]any{
			"submission_id": submissionID,
			"table":         table,
		}).Error("failed to list structured rows")
		return Internal("failed to list " + table)
	}
	return nil
}
