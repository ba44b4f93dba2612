package tasks

import (
	"context"
	"fmt"
	"io"

	"github.com/charmbracelet/log"

	"github.com/desertthunder/ampsync/internal/models"
	"github.com/desertthunder/ampsync/internal/services"
	"github.com/desertthunder/ampsync/internal/shared"
)

// streamBuffer holds every emission a mutation can produce.
const streamBuffer = 4

// LocalCache is the slice of [models.Cache] a mutation touches.
type LocalCache interface {
	SetFlag(id string, flag int) error
	SetRating(id string, rating int) error
}

// MutationLog is the persisted append-only log of queued mutations.
type MutationLog interface {
	Enqueue(m *models.OfflineMutation) error
	All() ([]models.OfflineMutation, error)
	Remove(id string) error
}

// ModeStore reports whether offline mode is on.
type ModeStore interface {
	OfflineMode() (bool, error)
}

// SessionProvider hands out a valid session, renewing it when needed.
type SessionProvider interface {
	Session(ctx context.Context) (*models.Session, error)
}

// Pinger confirms the server is reachable.
type Pinger interface {
	Ping(ctx context.Context) (*models.ServerInfo, error)
}

// Options configures a [Mutator]. Caches maps each resource type to the table its flag and rating live in.
type Options struct {
	Caches   map[models.ResourceType]LocalCache
	Log      MutationLog
	Mode     ModeStore
	Service  services.Ampache
	Sessions SessionProvider
	Pinger   Pinger
	Logger   *log.Logger
}

// Mutator applies likes and ratings, queueing them while offline.
type Mutator struct {
	caches   map[models.ResourceType]LocalCache
	log      MutationLog
	mode     ModeStore
	service  services.Ampache
	sessions SessionProvider
	pinger   Pinger
	logger   *log.Logger
}

// NewMutator creates a Mutator from opts.
func NewMutator(opts Options) *Mutator {
	if opts.Logger == nil {
		opts.Logger = log.New(io.Discard)
	}

	return &Mutator{
		caches:   opts.Caches,
		log:      opts.Log,
		mode:     opts.Mode,
		service:  opts.Service,
		sessions: opts.Sessions,
		pinger:   opts.Pinger,
		logger:   opts.Logger,
	}
}

// sendProgress sends a progress update through the channel without blocking.
func sendProgress(progress chan<- ProgressUpdate, update ProgressUpdate) {
	if progress == nil {
		return
	}
	select {
	case progress <- update:
	default:
	}
}

// Like sets or clears the favourite flag on a record.
func (m *Mutator) Like(ctx context.Context, id string, liked bool, kind models.ResourceType) <-chan models.Resource[bool] {
	value := models.FlagValue(liked)

	return m.mutate(ctx, models.OfflineMutation{Kind: models.MutationLike, TargetID: id, Type: kind, Value: value},
		func(c LocalCache) error { return c.SetFlag(id, value) },
		func(sess models.Session) error { return m.service.Flag(ctx, sess, id, kind, liked) },
	)
}

// Rate sets a 0..5 rating on a record.
func (m *Mutator) Rate(ctx context.Context, id string, rating int, kind models.ResourceType) <-chan models.Resource[bool] {
	return m.mutate(ctx, models.OfflineMutation{Kind: models.MutationRate, TargetID: id, Type: kind, Value: rating},
		func(c LocalCache) error { return c.SetRating(id, rating) },
		func(sess models.Session) error { return m.service.Rate(ctx, sess, id, kind, rating) },
	)
}

// mutate applies local first, then either queues mutation or sends it with remote.
//
// A remote failure is reported but the local change is kept.
func (m *Mutator) mutate(
	ctx context.Context,
	mutation models.OfflineMutation,
	local func(LocalCache) error,
	remote func(models.Session) error,
) <-chan models.Resource[bool] {
	out := make(chan models.Resource[bool], streamBuffer)

	go func() {
		defer close(out)
		logger := m.logger.With("kind", mutation.Kind, "type", mutation.Type, "id", mutation.TargetID)

		fail := func(message string, err error) {
			logger.Warn("mutation failed", "error", err)
			out <- models.Failure[bool](message, err)
		}

		out <- models.Loading[bool](true)

		if err := mutation.Validate(); err != nil {
			fail(err.Error(), fmt.Errorf("%w: %v", shared.ErrInvalidInput, err))
			return
		}

		cache, ok := m.caches[mutation.Type]
		if !ok {
			err := fmt.Errorf("%w: no cache for type %s", shared.ErrInvalidInput, mutation.Type)
			fail(err.Error(), err)
			return
		}

		if err := local(cache); err != nil {
			fail("failed to update local cache", err)
			return
		}

		offline, err := m.mode.OfflineMode()
		if err != nil {
			fail("failed to read offline mode", err)
			return
		}

		if offline {
			if err := m.log.Enqueue(&mutation); err != nil {
				fail("failed to queue mutation", err)
				return
			}
			logger.Info("queued while offline", "sequence", mutation.Sequence)
			out <- models.Success(true)
			out <- models.Loading[bool](false)
			return
		}

		sess, err := m.sessions.Session(ctx)
		if err != nil {
			fail(services.ErrorMessage(err), err)
			return
		}

		if err := remote(*sess); err != nil {
			fail(services.ErrorMessage(err), err)
			return
		}

		logger.Debug("mutation sent")
		out <- models.Success(true)
		out <- models.Loading[bool](false)
	}()

	return out
}

// send replays one queued mutation against the server.
func (m *Mutator) send(ctx context.Context, sess models.Session, mutation models.OfflineMutation) error {
	switch mutation.Kind {
	case models.MutationLike:
		return m.service.Flag(ctx, sess, mutation.TargetID, mutation.Type, mutation.Value == 1)
	case models.MutationRate:
		return m.service.Rate(ctx, sess, mutation.TargetID, mutation.Type, mutation.Value)
	default:
		return fmt.Errorf("%w: unknown mutation kind %q", shared.ErrInvalidInput, mutation.Kind)
	}
}
