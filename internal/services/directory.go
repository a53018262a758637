// Package services – Directory
//
// Directory owns the crew directory used to resolve job creators. It follows
// the Catalog pattern: repo-backed writes, an immutable in-memory snapshot
// (search.Directory) swapped on every change, and users.changed notifications.
package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/rs/zerolog/log"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/gorm"

	"github.com/tbourn/go-jobsearch-backend/internal/domain"
	"github.com/tbourn/go-jobsearch-backend/internal/events"
	"github.com/tbourn/go-jobsearch-backend/internal/repo"
	"github.com/tbourn/go-jobsearch-backend/internal/search"
)

// Directory implements search.DirectorySource over the users table.
type Directory struct {
	DB       *gorm.DB
	Notifier ChangeNotifier

	hub    *events.Hub
	dir    atomic.Pointer[search.Directory]
	reload sync.Mutex
}

// NewDirectory returns an empty directory; call Reload to load users.
func NewDirectory(db *gorm.DB) *Directory {
	d := &Directory{DB: db, hub: events.NewHub()}
	empty := search.Directory{}
	d.dir.Store(&empty)
	return d
}

// Directory returns the current id -> contributor snapshot.
func (d *Directory) Directory() search.Directory { return *d.dir.Load() }

// Subscribe registers for users.changed events.
func (d *Directory) Subscribe() chan events.Event { return d.hub.Subscribe() }

// Unsubscribe releases a subscription.
func (d *Directory) Unsubscribe(ch chan events.Event) { d.hub.Unsubscribe(ch) }

// Reload loads all users and reports whether the directory changed.
func (d *Directory) Reload(ctx context.Context) (bool, error) {
	ctx, span := otel.Tracer("services/Directory").Start(ctx, "Reload")
	defer span.End()

	d.reload.Lock()
	defer d.reload.Unlock()

	users, err := repo.ListUsers(ctx, d.DB)
	if err != nil {
		return false, fmt.Errorf("load users: %w", err)
	}
	next := search.NewDirectory(users)
	if sameDirectory(*d.dir.Load(), next) {
		return false, nil
	}
	d.dir.Store(&next)
	span.SetAttributes(attribute.Int("directory.users", len(next)))
	d.hub.Publish(events.New(events.TypeUsersChanged, map[string]int{"users": len(next)}))
	return true, nil
}

func sameDirectory(a, b search.Directory) bool {
	if len(a) != len(b) {
		return false
	}
	for k, v := range a {
		if w, ok := b[k]; !ok || w != v {
			return false
		}
	}
	return true
}

func (d *Directory) changed(ctx context.Context) {
	if _, err := d.Reload(ctx); err != nil {
		log.Error().Err(err).Msg("directory reload after write failed")
	}
	if d.Notifier != nil {
		if err := d.Notifier.Notify(ctx, events.TypeUsersChanged); err != nil {
			log.Warn().Err(err).Str("type", events.TypeUsersChanged).Msg("change fan-out failed")
		}
	}
}

// Upsert creates or updates a user. The id and at least one name part are
// required.
func (d *Directory) Upsert(ctx context.Context, u domain.User) (*domain.User, error) {
	ctx, span := otel.Tracer("services/Directory").Start(ctx, "Upsert",
		trace.WithAttributes(attribute.String("user.id", u.ID)),
	)
	defer span.End()

	u.ID = strings.TrimSpace(u.ID)
	u.FirstName = strings.TrimSpace(u.FirstName)
	u.LastName = strings.TrimSpace(u.LastName)
	u.Position = strings.TrimSpace(u.Position)
	if u.ID == "" || u.FullName() == "" {
		return nil, ErrInvalidUser
	}
	if err := repo.UpsertUser(ctx, d.DB, &u); err != nil {
		return nil, err
	}
	d.changed(ctx)
	return &u, nil
}

// Delete removes a user. Jobs that reference it stop resolving a creator.
func (d *Directory) Delete(ctx context.Context, id string) error {
	if err := repo.DeleteUser(ctx, d.DB, id); err != nil {
		if errors.Is(err, repo.ErrNotFound) {
			return ErrUserNotFound
		}
		return err
	}
	d.changed(ctx)
	return nil
}

// Get fetches a user.
func (d *Directory) Get(ctx context.Context, id string) (*domain.User, error) {
	u, err := repo.GetUser(ctx, d.DB, id)
	if errors.Is(err, repo.ErrNotFound) {
		return nil, ErrUserNotFound
	}
	return u, err
}

// List returns all users.
func (d *Directory) List(ctx context.Context) ([]domain.User, error) {
	return repo.ListUsers(ctx, d.DB)
}
