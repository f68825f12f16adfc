package memstore

import (
	"context"
	"slices"

	"github.com/google/uuid"

	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/repositories"
)

type formTypeRepo struct{ s *Store }

func (r formTypeRepo) GetOrCreate(ctx context.Context, name string) (*models.FormType, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}
	if err := r.s.fail("FormTypes.GetOrCreate"); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ft := range r.s.state.formTypes {
		if ft.TenantID == tenantID && ft.Name == name {
			return &ft, nil
		}
	}
	ft := models.FormType{
		ID:          uuid.New(),
		TenantID:    tenantID,
		Name:        name,
		DisplayName: models.Humanize(name),
		IsActive:    true,
		CreatedAt:   now(),
		UpdatedAt:   now(),
	}
	r.s.state.formTypes[ft.ID] = ft
	return &ft, nil
}

func (r formTypeRepo) GetByName(ctx context.Context, name string) (*models.FormType, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, ft := range r.s.state.formTypes {
		if ft.TenantID == tenantID && ft.Name == name {
			return &ft, nil
		}
	}
	return nil, notFound("form type '%s' does not exist", name)
}

func (r formTypeRepo) GetByID(ctx context.Context, id uuid.UUID) (*models.FormType, error) {
	tenantID, err := repositories.GetTenantID(ctx)
	if err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	ft, ok := r.s.state.formTypes[id]
	if !ok || ft.TenantID != tenantID {
		return nil, notFound("form type %s does not exist", id)
	}
	return &ft, nil
}

type sectionRepo struct{ s *Store }

func (r sectionRepo) GetOrCreate(ctx context.Context, formTypeID uuid.UUID, sectionKey, title string) (*models.FormSection, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	if err := r.s.fail("Sections.GetOrCreate"); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, section := range r.s.state.sections {
		if section.FormTypeID != formTypeID {
			continue
		}
		if section.SectionKey == sectionKey {
			return &section, nil
		}
		count++
	}
	section := models.FormSection{
		ID:         uuid.New(),
		FormTypeID: formTypeID,
		SectionKey: sectionKey,
		Title:      title,
		Order:      count + 1,
		IsActive:   true,
		CreatedAt:  now(),
		UpdatedAt:  now(),
	}
	r.s.state.sections[section.ID] = section
	return &section, nil
}

func (r sectionRepo) GetByKey(ctx context.Context, formTypeID uuid.UUID, sectionKey string) (*models.FormSection, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, section := range r.s.state.sections {
		if section.FormTypeID == formTypeID && section.SectionKey == sectionKey {
			return &section, nil
		}
	}
	return nil, notFound("section '%s' does not exist", sectionKey)
}

func (r sectionRepo) ListByFormType(ctx context.Context, formTypeID uuid.UUID) ([]models.FormSection, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var sections []models.FormSection
	for _, section := range r.s.state.sections {
		if section.FormTypeID == formTypeID {
			sections = append(sections, section)
		}
	}
	slices.SortFunc(sections, func(a, b models.FormSection) int { return a.Order - b.Order })
	return sections, nil
}

type questionRepo struct{ s *Store }

func (r questionRepo) Create(ctx context.Context, question *models.FormQuestion) (*models.FormQuestion, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}
	if err := r.s.fail("Questions.Create"); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.state.questions {
		if existing.SectionID == question.SectionID && existing.QuestionKey == question.QuestionKey {
			return &existing, nil
		}
	}
	stored := *question
	if stored.ID == uuid.Nil {
		stored.ID = uuid.New()
	}
	stored.CreatedAt, stored.UpdatedAt = now(), now()
	r.s.state.questions[stored.ID] = stored
	return &stored, nil
}

func (r questionRepo) GetByKey(ctx context.Context, sectionID uuid.UUID, questionKey string) (*models.FormQuestion, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, question := range r.s.state.questions {
		if question.SectionID == sectionID && question.QuestionKey == questionKey {
			return &question, nil
		}
	}
	return nil, notFound("question '%s' does not exist", questionKey)
}

func (r questionRepo) Count(ctx context.Context, sectionID uuid.UUID) (int, error) {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	count := 0
	for _, question := range r.s.state.questions {
		if question.SectionID == sectionID {
			count++
		}
	}
	return count, nil
}

func (r questionRepo) ListBySection(ctx context.Context, sectionID uuid.UUID) ([]models.FormQuestion, error) {
	if _, err := repositories.GetTenantID(ctx); err != nil {
		return nil, err
	}

	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	var questions []models.FormQuestion
	for _, question := range r.s.state.questions {
		if question.SectionID == sectionID {
			questions = append(questions, question)
		}
	}
	slices.SortFunc(questions, func(a, b models.FormQuestion) int { return a.Order - b.Order })
	return questions, nil
}
