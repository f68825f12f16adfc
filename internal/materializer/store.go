package materializer

import (
	"context"

	"github.com/Gobusters/ectologger"

	"github.com/Ramsey-B/organizer/pkg/metrics"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
	"github.com/Ramsey-B/organizer/pkg/tracing"
)

// Store applies write-sets. It joins the transaction carried by ctx; callers open it.
type Store struct {
	sectionData repositories.SectionDataRepo
	answers     repositories.AnswerRepo
	structured  repositories.StructuredRepo
	logger      ectologger.Logger
}

func NewStore(sectionData repositories.SectionDataRepo, answers repositories.AnswerRepo, structured repositories.StructuredRepo, logger ectologger.Logger) *Store {
	return &Store{
		sectionData: sectionData,
		answers:     answers,
		structured:  structured,
		logger:      logger,
	}
}

func (s *Store) Apply(ctx context.Context, ws *WriteSet) error {
	ctx, span := tracing.StartSpan(ctx, "Store.Apply")
	defer span.End()

	if err := s.sectionData.Upsert(ctx, &ws.SectionData); err != nil {
		return err
	}

	answers := make([]models.Answer, 0, len(ws.Answers))
	for _, write := range ws.Answers {
		answers = append(answers, write.ToAnswer(ws.SubmissionID))
	}
	if err := s.answers.UpsertMany(ctx, answers); err != nil {
		return err
	}
	for _, write := range ws.Answers {
		metrics.RecordAnswer(write.Question.FieldType.String())
	}

	return s.applyStructured(ctx, ws)
}

func (s *Store) applyStructured(ctx context.Context, ws *WriteSet) error {
	st := ws.Structured
	if st.Dependents != nil {
		if err := s.structured.ReplaceDependents(ctx, ws.SubmissionID, st.Dependents); err != nil {
			return err
		}
		metrics.RecordStructuredRows("dependents", len(st.Dependents))
	}
	if st.Owners != nil {
		if err := s.structured.ReplaceBusinessOwners(ctx, ws.SubmissionID, st.Owners); err != nil {
			return err
		}
		metrics.RecordStructuredRows("business_owners", len(st.Owners))
	}
	if st.Vehicles != nil {
		if err := s.structured.ReplaceVehicles(ctx, ws.SubmissionID, st.Vehicles); err != nil {
			return err
		}
		metrics.RecordStructuredRows("vehicles", len(st.Vehicles))
	}
	if st.Contributions != nil {
		if err := s.structured.ReplaceContributions(ctx, ws.SubmissionID, st.Contributions); err != nil {
			return err
		}
		metrics.RecordStructuredRows("charitable_contributions", len(st.Contributions))
	}
	return nil
}
