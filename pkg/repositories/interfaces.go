package repositories

import (
	"context"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/models"
)

// FormTypeRepo defines the interface for form type repository operations
type FormTypeRepo interface {
	GetOrCreate(ctx context.Context, name string) (*models.FormType, error)
	GetByName(ctx context.Context, name string) (*models.FormType, error)
	GetByID(ctx context.Context, id uuid.UUID) (*models.FormType, error)
}

// SectionRepo defines the interface for form section repository operations
type SectionRepo interface {
	GetOrCreate(ctx context.Context, formTypeID uuid.UUID, sectionKey, title string) (*models.FormSection, error)
	GetByKey(ctx context.Context, formTypeID uuid.UUID, sectionKey string) (*models.FormSection, error)
	ListByFormType(ctx context.Context, formTypeID uuid.UUID) ([]models.FormSection, error)
}

// QuestionRepo defines the interface for form question repository operations
type QuestionRepo interface {
	Create(ctx context.Context, question *models.FormQuestion) (*models.FormQuestion, error)
	GetByKey(ctx context.Context, sectionID uuid.UUID, questionKey string) (*models.FormQuestion, error)
	Count(ctx context.Context, sectionID uuid.UUID) (int, error)
	ListBySection(ctx context.Context, sectionID uuid.UUID) ([]models.FormQuestion, error)
}

// SubmissionRepo defines the interface for submission repository operations
type SubmissionRepo interface {
	Create(ctx context.Context, submission *models.Submission) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Submission, error)
	List(ctx context.Context, filter models.SubmissionFilter) ([]models.Submission, error)
	Update(ctx context.Context, submission *models.Submission) error
	Delete(ctx context.Context, id uuid.UUID) error
	DeleteChildren(ctx context.Context, id uuid.UUID) error
	Statistics(ctx context.Context, userID string, recent int) (*models.SubmissionStatistics, error)
}

// SectionDataRepo defines the interface for raw section payload operations
type SectionDataRepo interface {
	Upsert(ctx context.Context, data *models.SectionData) error
	Get(ctx context.Context, submissionID, sectionID uuid.UUID) (*models.SectionData, error)
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.SectionData, error)
}

// AnswerRepo defines the interface for typed answer operations
type AnswerRepo interface {
	UpsertMany(ctx context.Context, answers []models.Answer) error
	Get(ctx context.Context, submissionID, questionID uuid.UUID) (*models.Answer, error)
	ListDetails(ctx context.Context, submissionID uuid.UUID) ([]models.AnswerDetail, error)
}

// StructuredRepo defines the interface for sub-entity operations
type StructuredRepo interface {
	ReplaceDependents(ctx context.Context, submissionID uuid.UUID, dependents []models.Dependent) error
	ReplaceBusinessOwners(ctx context.Context, submissionID uuid.UUID, owners []models.BusinessOwner) error
	ReplaceVehicles(ctx context.Context, submissionID uuid.UUID, vehicles []models.Vehicle) error
	ReplaceContributions(ctx context.Context, submissionID uuid.UUID, contributions []models.CharitableContribution) error
	ListDependents(ctx context.Context, submissionID uuid.UUID) ([]models.Dependent, error)
	ListBusinessOwners(ctx context.Context, submissionID uuid.UUID) ([]models.BusinessOwner, error)
	ListVehicles(ctx context.Context, submissionID uuid.UUID) ([]models.Vehicle, error)
	ListContributions(ctx context.Context, submissionID uuid.UUID) ([]models.CharitableContribution, error)
}

// AuditRepo defines the interface for audit log operations
type AuditRepo interface {
	Create(ctx context.Context, entry *models.AuditLog) error
	ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.AuditLog, error)
}

// TrackerRepo defines the interface for finance tracker operations
type TrackerRepo interface {
	GetByUser(ctx context.Context, userID string) (*models.FinanceTracker, error)
	Upsert(ctx context.Context, tracker *models.FinanceTracker) (bool, error)
	DeleteByUser(ctx context.Context, userID string) error
}

var (
	_ FormTypeRepo    = (*FormTypeRepository)(nil)
	_ SectionRepo     = (*SectionRepository)(nil)
	_ QuestionRepo    = (*QuestionRepository)(nil)
	_ SubmissionRepo  = (*SubmissionRepository)(nil)
	_ SectionDataRepo = (*SectionDataRepository)(nil)
	_ AnswerRepo      = (*AnswerRepository)(nil)
	_ StructuredRepo  = (*StructuredRepository)(nil)
	_ AuditRepo       = (*AuditRepository)(nil)
	_ TrackerRepo     = (*TrackerRepository)(nil)
)
