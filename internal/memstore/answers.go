package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/database"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type sectionDataRepo struct{ s *Store }

func (r sectionDataRepo) Upsert(ctx context.Context, data *models.SectionData) error {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return err
	}
	if err := r.s.fail("SectionData.Upsert"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored := *data
	stored.Data = database.NewJSONB(cloneJSON(data.Data.Data))
	stored.UpdatedAt = now()
	stored.CreatedAt = stored.UpdatedAt
	for key, existing := range r.s.state.sectionData {
		if existing.SubmissionID == data.SubmissionID && existing.SectionID == data.SectionID {
			stored.ID, stored.CreatedAt = existing.ID, existing.CreatedAt
			delete(r.s.state.sectionData, key)
		}
	}
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	r.s.state.sectionData[stored.ID] = stored
	data.ID, data.CreatedAt, data.UpdatedAt = stored.ID, stored.CreatedAt, stored.UpdatedAt
	return nil
}

func (r sectionDataRepo) Get(ctx context.Context, submissionID, sectionID uuid.UUID) (*models.SectionData, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, data := range r.s.state.sectionData {
		if data.SubmissionID == submissionID && data.SectionID == sectionID {
			data.Data = database.NewJSONB(cloneJSON(data.Data.Data))
			return &data, nil
		}
	}
	return nil, notFound("section data for submission %s does not exist", submissionID)
}

func (r sectionDataRepo) ListBySubmission(ctx context.Context, submissionID uuid.UUID) ([]models.SectionData, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var out []models.SectionData
	for _, data := range r.s.state.sectionData {
		if data.SubmissionID == submissionID {
			data.Data = database.NewJSONB(cloneJSON(data.Data.Data))
			out = append(out, data)
		}
	}
	slices.SortFunc(out, func(a, b models.SectionData) int {
		return r.s.state.sections[a.SectionID].Order - r.s.state.sections[b.SectionID].Order
	})
	return out, nil
}

type answerRepo struct{ s *Store }

func (r answerRepo) UpsertMany(ctx context.Context, answers []models.Answer) error {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return err
	}
	if len(answers) == 0 {
		return nil
	}
	if err := r.s.fail("Answers.UpsertMany"); err != nil {
		return err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for i := range answers {
		stored := answers[i]
		stored.UpdatedAt = now()
		stored.CreatedAt = stored.UpdatedAt
		for key, existing := range r.s.state.answers {
			if existing.SubmissionID == stored.SubmissionID && existing.QuestionID == stored.QuestionID {
				stored.ID, stored.CreatedAt = existing.ID, existing.CreatedAt
				delete(r.s.state.answers, key)
			}
		}
		if stored.ID == uuid.Nil {
			stored.ID = uuid.New()
		}
		r.s.state.answers[stored.ID] = stored
		answers[i].ID = stored.ID
	}
	return nil
}

func (r answerRepo) Get(ctx context.Context, submissionID, questionID uuid.UUID) (*models.Answer, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, a := range r.s.state.answers {
		if a.SubmissionID == submissionID && a.QuestionID == questionID {
			return &a, nil
		}
	}
	return nil, notFound("answer for question %s does not exist", questionID)
}

func (r answerRepo) ListDetails(ctx context.Context, submissionID uuid.UUID) ([]models.AnswerDetail, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var details []models.AnswerDetail
	for _, a := range r.s.state.answers {
		if a.SubmissionID != submissionID {
			continue
		}
		question := r.s.state.questions[a.QuestionID]
		details = append(details, models.AnswerDetail{
			Answer:       a,
			SectionKey:   r.s.state.sections[question.SectionID].SectionKey,
			QuestionText: question.QuestionText,
			FieldType:    question.FieldType.String(),
			IsSensitive:  question.IsSensitive,
		})
	}
	slices.SortFunc(details, func(a, b models.AnswerDetail) int {
		qa, qb := r.s.state.questions[a.QuestionID], r.s.state.questions[b.QuestionID]
		if d := r.s.state.sections[qa.SectionID].Order - r.s.state.sections[qb.SectionID].Order; d != 0 {
			return d
		}
		return qa.Order - qb.Order
	})
	return details, nil
}
