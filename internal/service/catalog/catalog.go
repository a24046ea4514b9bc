package catalog

import (
	"context"
	"fmt"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// ---------------------------------------------------------------------------
// DTOs
// ---------------------------------------------------------------------------

// Entry describes a medium or an action. Renderer names a registered
// renderer; empty means the default one.
type Entry struct {
	Name        string
	DisplayName string
	Description string
	Renderer    string
}

// ---------------------------------------------------------------------------
// Interface
// ---------------------------------------------------------------------------

// Service owns the medium and action reference data.
type Service interface {
	EnsureMedium(ctx context.Context, e Entry) (*repo.Medium, error)
	EnsureAction(ctx context.Context, e Entry) (*repo.Action, error)
	MediumByName(ctx context.Context, name string) (*repo.Medium, error)
	ActionByName(ctx context.Context, name string) (*repo.Action, error)
	Mediums(ctx context.Context) ([]*repo.Medium, error)
	Actions(ctx context.Context) ([]*repo.Action, error)
}

// ---------------------------------------------------------------------------
// Implementation
// ---------------------------------------------------------------------------

type catalogService struct {
	db *repo.Client
}

func New(db *repo.Client) Service {
	return &catalogService{db: db}
}

// EnsureMedium returns the medium named e.Name, creating it when missing.
// An existing medium is returned as stored.
func (s *catalogService) EnsureMedium(ctx context.Context, e Entry) (*repo.Medium, error) {
	if e.Name == "" {
		return nil, ErrNameRequired
	}
	m, err := s.db.Medium.GetByName(ctx, e.Name)
	if err == nil {
		return m, nil
	}
	if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get medium: %w", err)
	}

	m, err = s.db.Medium.Create(ctx, &repo.Medium{
		Name:        e.Name,
		DisplayName: displayName(e),
		Description: e.Description,
		Renderer:    e.Renderer,
	})
	if repo.IsConstraintError(err) {
		// created concurrently
		return s.MediumByName(ctx, e.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("create medium: %w", err)
	}
	return m, nil
}

func (s *catalogService) EnsureAction(ctx context.Context, e Entry) (*repo.Action, error) {
	if e.Name == "" {
		return nil, ErrNameRequired
	}
	a, err := s.db.Action.GetByName(ctx, e.Name)
	if err == nil {
		return a, nil
	}
	if !repo.IsNotFound(err) {
		return nil, fmt.Errorf("get action: %w", err)
	}

	a, err = s.db.Action.Create(ctx, &repo.Action{
		Name:        e.Name,
		DisplayName: displayName(e),
		Description: e.Description,
		Renderer:    e.Renderer,
	})
	if repo.IsConstraintError(err) {
		return s.ActionByName(ctx, e.Name)
	}
	if err != nil {
		return nil, fmt.Errorf("create action: %w", err)
	}
	return a, nil
}

func (s *catalogService) MediumByName(ctx context.Context, name string) (*repo.Medium, error) {
	m, err := s.db.Medium.GetByName(ctx, name)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrMediumNotFound
		}
		return nil, fmt.Errorf("get medium: %w", err)
	}
	return m, nil
}

func (s *catalogService) ActionByName(ctx context.Context, name string) (*repo.Action, error) {
	a, err := s.db.Action.GetByName(ctx, name)
	if err != nil {
		if repo.IsNotFound(err) {
			return nil, ErrActionNotFound
		}
		return nil, fmt.Errorf("get action: %w", err)
	}
	return a, nil
}

func (s *catalogService) Mediums(ctx context.Context) ([]*repo.Medium, error) {
	ms, err := s.db.Medium.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("list mediums: %w", err)
	}
	return ms, nil
}

func (s *catalogService) Actions(ctx context.Context) ([]*repo.Action, error) {
	as, err := s.db.Action.Query(ctx)
	if err != nil {
		return nil, fmt.Errorf("list actions: %w", err)
	}
	return as, nil
}

func displayName(e Entry) string {
	if e.DisplayName != "" {
		return e.DisplayName
	}
	return e.Name
}
