package handlers

import (
	"fmt"
	"net/http"

	"github.com/Gobusters/ectolinq"
	"github.com/Gobusters/ectologger"
	"github.com/labstack/echo/v4"

	"github.com/Ramsey-B/organizer/internal/pdf"
	"github.com/Ramsey-B/organizer/internal/services/submission"
	"github.com/Ramsey-B/organizer/pkg/models"
	"github.com/Ramsey-B/organizer/pkg/utils"
)

// SubmissionHandler handles submission API requests
type SubmissionHandler struct{}

// NewSubmissionHandler creates a new submission handler
func NewSubmissionHandler() *SubmissionHandler {
	return &SubmissionHandler{}
}

// ListSubmissionsQuery filters GET /submissions
type ListSubmissionsQuery struct {
	FormType string `query:"form_type"`
	Status   string `query:"status"`
	Limit    int    `query:"limit" validate:"gte=0,lte=500"`
	Offset   int    `query:"offset" validate:"gte=0"`
}

// UpdateSectionRequest is the body of POST /submissions/:id/sections
type UpdateSectionRequest struct {
	SectionKey  string                 `json:"section_key" validate:"required"`
	SectionData *models.SectionPayload `json:"section_data" validate:"required"`
}

// UpdateQuestionRequest is the body of POST /submissions/:id/questions
type UpdateQuestionRequest struct {
	SectionKey  string `json:"section_key" validate:"required"`
	QuestionKey string `json:"question_key" validate:"required"`
	Answer      any    `json:"answer"`
}

type UpdateDependentsRequest struct {
	Dependents []map[string]any `json:"dependents"`
}

type UpdateBusinessOwnersRequest struct {
	Owners []map[string]any `json:"owners"`
}

type UpdateStatusRequest struct {
	Status models.SubmissionStatus `json:"status" validate:"required"`
}

type SectionResponse struct {
	SectionKey string         `json:"section_key"`
	Data       map[string]any `json:"data"`
	Message    string         `json:"message"`
}

type QuestionResponse struct {
	Message     string `json:"message"`
	QuestionKey string `json:"question_key"`
	OldValue    any    `json:"old_value"`
	NewValue    any    `json:"new_value"`
}

// EntitySummary names one replaced dependent or owner.
type EntitySummary struct {
	ID        string `json:"id"`
	Name      string `json:"name"`
	Ownership string `json:"ownership,omitempty"`
}

type DependentsResponse struct {
	Message    string          `json:"message"`
	Count      int             `json:"dependents_count"`
	Dependents []EntitySummary `json:"dependents"`
}

type BusinessOwnersResponse struct {
	Message string          `json:"message"`
	Count   int             `json:"owners_count"`
	Owners  []EntitySummary `json:"owners"`
}

type StatusResponse struct {
	Status string `json:"status"`
}

// RegisterRoutes registers the submission routes
func (h *SubmissionHandler) RegisterRoutes(g *echo.Group) {
	submissions := g.Group("/submissions")
	submissions.POST("", h.Create)
	submissions.GET("", h.List)
	submissions.GET("/statistics", h.Statistics)
	submissions.GET("/:id", h.Get)
	submissions.PUT("/:id", h.Replace)
	submissions.PATCH("/:id", h.PartialUpdate)
	submissions.DELETE("/:id", h.Delete)
	submissions.GET("/:id/formatted", h.Formatted)
	submissions.GET("/:id/audit", h.Audit)
	submissions.GET("/:id/pdf", h.PDF)
	submissions.POST("/:id/sections", h.UpdateSection)
	submissions.POST("/:id/questions", h.UpdateQuestion)
	submissions.POST("/:id/dependents", h.UpdateDependents)
	submissions.POST("/:id/business-owners", h.UpdateBusinessOwners)
	submissions.POST("/:id/status", h.UpdateStatus)
}

// Create handles POST /submissions
func (h *SubmissionHandler) Create(c echo.Context) error {
	ctx := c.Request().Context()

	req, err := utils.BindRequest[models.SubmissionPayload](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	created, err := svc.Create(ctx, req)
	if err != nil {
		return err
	}

	return CreatedResponse(c, created)
}

// List handles GET /submissions
func (h *SubmissionHandler) List(c echo.Context) error {
	ctx := c.Request().Context()

	query, err := utils.BindRequest[ListSubmissionsQuery](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	submissions, err := svc.List(ctx, models.SubmissionFilter{
		FormType: query.FormType,
		Status:   models.SubmissionStatus(query.Status),
		Limit:    query.Limit,
		Offset:   query.Offset,
	})
	if err != nil {
		return err
	}
	if submissions == nil {
		submissions = []models.Submission{}
	}

	return SuccessResponse(c, submissions)
}

// Statistics handles GET /submissions/statistics
func (h *SubmissionHandler) Statistics(c echo.Context) error {
	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	stats, err := svc.Statistics(c.Request().Context())
	if err != nil {
		return err
	}
	return SuccessResponse(c, stats)
}

// Get handles GET /submissions/:id
func (h *SubmissionHandler) Get(c echo.Context) error {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	detail, err := svc.Get(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, detail)
}

// Replace handles PUT /submissions/:id
func (h *SubmissionHandler) Replace(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[models.SubmissionPayload](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	updated, err := svc.Replace(ctx, id, req)
	if err != nil {
		return err
	}

	return SuccessResponse(c, updated)
}

// PartialUpdate handles PATCH /submissions/:id
func (h *SubmissionHandler) PartialUpdate(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	patch, err := utils.BindRequest[models.SubmissionPatch](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	updated, err := svc.PartialUpdate(ctx, id, patch)
	if err != nil {
		return err
	}

	return SuccessResponse(c, updated)
}

// Delete handles DELETE /submissions/:id
func (h *SubmissionHandler) Delete(c echo.Context) error {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	if err := svc.Delete(c.Request().Context(), id); err != nil {
		return err
	}

	return NoContentResponse(c)
}

// Formatted handles GET /submissions/:id/formatted
func (h *SubmissionHandler) Formatted(c echo.Context) error {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	formatted, err := svc.Formatted(c.Request().Context(), id)
	if err != nil {
		return err
	}

	return SuccessResponse(c, formatted)
}

// Audit handles GET /submissions/:id/audit
func (h *SubmissionHandler) Audit(c echo.Context) error {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	entries, err := svc.AuditHistory(c.Request().Context(), id)
	if err != nil {
		return err
	}
	if entries == nil {
		entries = []models.AuditLog{}
	}

	return SuccessResponse(c, entries)
}

// PDF handles GET /submissions/:id/pdf
func (h *SubmissionHandler) PDF(c echo.Context) error {
	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}
	renderer, err := resolve[*pdf.Renderer](c)
	if err != nil {
		return err
	}
	logger, err := resolve[ectologger.Logger](c)
	if err != nil {
		return err
	}
	ctx := c.Request().Context()

	snapshot, err := svc.Snapshot(ctx, id)
	if err != nil {
		return err
	}

	content, err := renderer.Render(snapshot)
	if err != nil {
		logger.WithContext(ctx).WithError(err).WithField("submission_id", id).Error("failed to render submission pdf")
		return fmt.Errorf("failed to generate pdf: %w", err)
	}

	c.Response().Header().Set(echo.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", pdf.Filename(snapshot)))
	return c.Blob(http.StatusOK, "application/pdf", content)
}

// UpdateSection handles POST /submissions/:id/sections
func (h *SubmissionHandler) UpdateSection(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateSectionRequest](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	data, err := svc.UpdateSection(ctx, id, req.SectionKey, *req.SectionData)
	if err != nil {
		return err
	}

	return SuccessResponse(c, SectionResponse{
		SectionKey: req.SectionKey,
		Data:       data.Data.Data,
		Message:    fmt.Sprintf("Section %s updated successfully", req.SectionKey),
	})
}

// UpdateQuestion handles POST /submissions/:id/questions
func (h *SubmissionHandler) UpdateQuestion(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateQuestionRequest](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	result, err := svc.UpdateQuestion(ctx, id, req.SectionKey, req.QuestionKey, req.Answer)
	if err != nil {
		return err
	}

	return SuccessResponse(c, QuestionResponse{
		Message:     "Question updated successfully",
		QuestionKey: req.QuestionKey,
		OldValue:    result.Old.Interface(),
		NewValue:    result.New.Interface(),
	})
}

// UpdateDependents handles POST /submissions/:id/dependents
func (h *SubmissionHandler) UpdateDependents(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateDependentsRequest](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	dependents, err := svc.UpdateDependents(ctx, id, req.Dependents)
	if err != nil {
		return err
	}

	return SuccessResponse(c, DependentsResponse{
		Message: "Dependents updated successfully",
		Count:   len(dependents),
		Dependents: ectolinq.Map(dependents, func(d models.Dependent) EntitySummary {
			return EntitySummary{ID: d.ID.String(), Name: d.FullName()}
		}),
	})
}

// UpdateBusinessOwners handles POST /submissions/:id/business-owners
func (h *SubmissionHandler) UpdateBusinessOwners(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateBusinessOwnersRequest](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	owners, err := svc.UpdateBusinessOwners(ctx, id, req.Owners)
	if err != nil {
		return err
	}

	return SuccessResponse(c, BusinessOwnersResponse{
		Message: "Business owners updated successfully",
		Count:   len(owners),
		Owners: ectolinq.Map(owners, func(o models.BusinessOwner) EntitySummary {
			return EntitySummary{
				ID:        o.ID.String(),
				Name:      o.FullName(),
				Ownership: fmt.Sprintf("%g%%", o.OwnershipPercentage),
			}
		}),
	})
}

// UpdateStatus handles POST /submissions/:id/status
func (h *SubmissionHandler) UpdateStatus(c echo.Context) error {
	ctx := c.Request().Context()

	id, err := ParseUUID(c, "id")
	if err != nil {
		return err
	}

	req, err := utils.BindRequest[UpdateStatusRequest](c)
	if err != nil {
		return err
	}

	svc, err := resolve[*submission.Service](c)
	if err != nil {
		return err
	}

	updated, err := svc.UpdateStatus(ctx, id, req.Status)
	if err != nil {
		return err
	}

	return SuccessResponse(c, StatusResponse{Status: updated.Status.Label()})
}
