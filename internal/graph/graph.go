// Package graph answers super/sub entity questions: which teams a user
// belongs to, which users a team contains.
package graph

import (
	"context"
	"fmt"

	"github.com/Alijeyrad/notifyhub/internal/repo"
)

// Client resolves entity relationships. Implementations must be safe for
// concurrent use.
type Client interface {
	// SuperEntities returns every entity e is a sub-entity of.
	SuperEntities(ctx context.Context, e repo.Entity) ([]repo.Entity, error)
	// SubEntities returns the sub-entities of e of the given type.
	SubEntities(ctx context.Context, e repo.Entity, typ string) ([]repo.Entity, error)
}

// Writer changes relationships.
type Writer interface {
	Link(ctx context.Context, super, sub repo.Entity) error
	Unlink(ctx context.Context, super, sub repo.Entity) error
}

// ReadWriter is a Client that can also change what it answers.
type ReadWriter interface {
	Client
	Writer
}

// Store is a Client backed by the entity_relationships table.
type Store struct {
	db *repo.Client
}

func NewStore(db *repo.Client) *Store {
	return &Store{db: db}
}

func (s *Store) SuperEntities(ctx context.Context, e repo.Entity) ([]repo.Entity, error) {
	supers, err := s.db.Relationship.Supers(ctx, e)
	if err != nil {
		return nil, fmt.Errorf("load super entities of %s: %w", e, err)
	}
	return supers, nil
}

func (s *Store) SubEntities(ctx context.Context, e repo.Entity, typ string) ([]repo.Entity, error) {
	subs, err := s.db.Relationship.Subs(ctx, e, typ)
	if err != nil {
		return nil, fmt.Errorf("load %s sub entities of %s: %w", typ, e, err)
	}
	return subs, nil
}

// Link records sub as a sub-entity of super.
func (s *Store) Link(ctx context.Context, super, sub repo.Entity) error {
	if err := s.db.Relationship.Create(ctx, super, sub); err != nil {
		return fmt.Errorf("link %s under %s: %w", sub, super, err)
	}
	return nil
}

func (s *Store) Unlink(ctx context.Context, super, sub repo.Entity) error {
	if err := s.db.Relationship.Delete(ctx, super, sub); err != nil {
		return fmt.Errorf("unlink %s from %s: %w", sub, super, err)
	}
	return nil
}

// Static is an in-memory Client, handy for wiring fixed hierarchies.
type Static struct {
	supers map[repo.Entity][]repo.Entity
	subs   map[repo.Entity][]repo.Entity
}

func NewStatic() *Static {
	return &Static{
		supers: make(map[repo.Entity][]repo.Entity),
		subs:   make(map[repo.Entity][]repo.Entity),
	}
}

// Link is not safe to call concurrently with lookups.
func (s *Static) Link(super repo.Entity, subs ...repo.Entity) *Static {
	for _, sub := range subs {
		s.supers[sub] = append(s.supers[sub], super)
		s.subs[super] = append(s.subs[super], sub)
	}
	return s
}

func (s *Static) SuperEntities(_ context.Context, e repo.Entity) ([]repo.Entity, error) {
	return s.supers[e], nil
}

func (s *Static) SubEntities(_ context.Context, e repo.Entity, typ string) ([]repo.Entity, error) {
	var out []repo.Entity
	for _, sub := range s.subs[e] {
		if typ == "" || sub.Type == typ {
			out = append(out, sub)
		}
	}
	return out, nil
}
