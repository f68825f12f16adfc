package pdf

import (
	"context"
	"fmt"

	"github.com/google/uuid"

	appctx "github.com/Ramsey-B/organizer/pkg/context"
	"github.com/Ramsey-B/organizer/pkg/kafka"
	"github.com/Ramsey-B/organizer/pkg/models"
)

type SnapshotLoader interface {
	Snapshot(ctx context.Context, id uuid.UUID) (*models.SubmissionSnapshot, error)
}

// Documents renders the submission named by a status event, read as the event's user.
type Documents struct {
	loader   SnapshotLoader
	renderer *Renderer
}

func NewDocuments(loader SnapshotLoader, renderer *Renderer) *Documents {
	return &Documents{loader: loader, renderer: renderer}
}

func (d *Documents) Document(ctx context.Context, evt *kafka.Event) ([]byte, string, error) {
	id, err := uuid.Parse(evt.SubmissionID)
	if err != nil {
		return nil, "", fmt.Errorf("invalid submission id %q: %w", evt.SubmissionID, err)
	}

	ctx = appctx.WithActor(ctx, appctx.Actor{
		TenantID: evt.TenantID,
		UserID:   evt.UserID,
		Email:    evt.Email,
	})
	snapshot, err := d.loader.Snapshot(ctx, id)
	if err != nil {
		return nil, "", err
	}

	content, err := d.renderer.Render(snapshot)
	if err != nil {
		return nil, "", err
	}
	return content, Filename(snapshot), nil
}
