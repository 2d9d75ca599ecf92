// Package savings applies contribution mutations against the remote API
// and reconciles the local ledger afterwards. No optimistic patching: after
// a successful write the affected scopes are re-fetched wholesale, so the
// client can never drift from the server-computed totals.
package savings

import (
	"context"
	"sync"

	"golang.org/x/sync/errgroup"

	"pocketgrow/internal/core"
	"pocketgrow/internal/ledger"
	"pocketgrow/internal/log"
)

// Mutator is the write side of the remote API.
type Mutator interface {
	CreateContribution(ctx context.Context, fields core.Fields) (core.Contribution, error)
	UpdateContribution(ctx context.Context, id string, fields core.Fields) (core.Contribution, error)
	DeleteContribution(ctx context.Context, id string) error
}

// Coordinator owns the per-identity in-flight locks. At most one mutation
// may be outstanding per record; a second one is rejected locally with
// *core.ConflictError instead of being queued, which is what stops a
// double-submitted admin form from racing itself at the server.
type Coordinator struct {
	remote Mutator
	logger *log.Logger

	mu       sync.Mutex
	inflight map[string]struct{}
	stores   []*ledger.Store
	hooks    []func()
}

// NewCoordinator wires the coordinator to the remote API. Stores passed
// here (and via Watch) are refreshed after every successful mutation.
func NewCoordinator(remote Mutator, logger *log.Logger, stores ...*ledger.Store) *Coordinator {
	if logger == nil {
		logger = log.New(log.DefaultConfig())
	}
	return &Coordinator{
		remote:   remote,
		logger:   logger.WithComponent(log.ComponentSavings),
		inflight: make(map[string]struct{}),
		stores:   stores,
	}
}

// Watch registers another store for post-mutation refresh.
func (c *Coordinator) Watch(store *ledger.Store) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.stores = append(c.stores, store)
}

// OnMutation registers a hook run after every successful mutation, before
// the refresh. Used for cache invalidation.
func (c *Coordinator) OnMutation(fn func()) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.hooks = append(c.hooks, fn)
}

// Create validates fields and records a new contribution. Creates have no
// record identity yet, so they serialize per owner instead.
func (c *Coordinator) Create(ctx context.Context, fields core.Fields) (core.Contribution, error) {
	if err := fields.Validate(); err != nil {
		return core.Contribution{}, err
	}

	key := "create:" + fields.OwnerID
	if err := c.acquire(key); err != nil {
		return core.Contribution{}, err
	}
	defer c.release(key)

	rec, err := c.remote.CreateContribution(ctx, fields)
	if err != nil {
		return core.Contribution{}, err
	}

	c.logger.InfoContext(ctx, "Contribution created",
		log.FieldOperation, log.OpCreate,
		log.FieldRecordID, rec.ID,
		log.FieldOwnerID, rec.OwnerID,
		log.FieldAmount, rec.Amount)

	c.reconcile(ctx, rec.OwnerID)
	return rec, nil
}

// Update validates fields and patches the contribution at id. An edit can
// reassign the record to another owner, in which case the previous owner's
// scope must refresh too or it would keep the departed record.
func (c *Coordinator) Update(ctx context.Context, id string, fields core.Fields) (core.Contribution, error) {
	if err := fields.Validate(); err != nil {
		return core.Contribution{}, err
	}

	if err := c.acquire(id); err != nil {
		return core.Contribution{}, err
	}
	defer c.release(id)

	prevOwner, tracked := c.ownerOf(id)

	rec, err := c.remote.UpdateContribution(ctx, id, fields)
	if err != nil {
		return core.Contribution{}, err
	}

	c.logger.InfoContext(ctx, "Contribution updated",
		log.FieldOperation, log.OpUpdate,
		log.FieldRecordID, id,
		log.FieldOwnerID, rec.OwnerID,
		log.FieldAmount, rec.Amount)

	switch {
	case !tracked:
		c.reconcile(ctx)
	case prevOwner != rec.OwnerID:
		c.reconcile(ctx, prevOwner, rec.OwnerID)
	default:
		c.reconcile(ctx, rec.OwnerID)
	}
	return rec, nil
}

// Delete removes the contribution at id. The owner is unknown at this
// point, so every watched store is refreshed.
func (c *Coordinator) Delete(ctx context.Context, id string) error {
	if err := c.acquire(id); err != nil {
		return err
	}
	defer c.release(id)

	if err := c.remote.DeleteContribution(ctx, id); err != nil {
		return err
	}

	c.logger.InfoContext(ctx, "Contribution deleted",
		log.FieldOperation, log.OpDelete,
		log.FieldRecordID, id)

	c.reconcile(ctx)
	return nil
}

// acquire takes the in-flight lock for key, or fails with ConflictError.
func (c *Coordinator) acquire(key string) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if _, busy := c.inflight[key]; busy {
		return &core.ConflictError{Key: key}
	}
	c.inflight[key] = struct{}{}
	return nil
}

// release drops the lock. Deferred by every mutation so the lock is freed
// on every exit path, success or failure.
func (c *Coordinator) release(key string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	delete(c.inflight, key)
}

// reconcile re-fetches every watched store whose scope matches one of the
// given owners (all of them when no owner is named). The stores refresh
// concurrently; a failed refresh is logged but does not fail the mutation,
// which already succeeded at the server.
func (c *Coordinator) reconcile(ctx context.Context, owners ...string) {
	c.mu.Lock()
	stores := make([]*ledger.Store, 0, len(c.stores))
	for _, store := range c.stores {
		if len(owners) == 0 || matchesAny(store.Scope(), owners) {
			stores = append(stores, store)
		}
	}
	hooks := append([]func(){}, c.hooks...)
	c.mu.Unlock()

	for _, hook := range hooks {
		hook()
	}

	g, gctx := errgroup.WithContext(ctx)
	for _, store := range stores {
		g.Go(func() error {
			return store.Load(gctx)
		})
	}
	if err := g.Wait(); err != nil {
		c.logger.WarnContext(ctx, "Post-mutation refresh failed",
			log.FieldOperation, log.OpRefresh,
			log.FieldError, err.Error())
	}
}

// ownerOf asks the watched stores who currently holds the record, giving
// Update the pre-mutation owner when a reassignment is about to happen.
func (c *Coordinator) ownerOf(id string) (string, bool) {
	c.mu.Lock()
	stores := append([]*ledger.Store{}, c.stores...)
	c.mu.Unlock()

	for _, store := range stores {
		if owner, ok := store.OwnerOf(id); ok {
			return owner, true
		}
	}
	return "", false
}

func matchesAny(scope core.Scope, owners []string) bool {
	for _, owner := range owners {
		if scope.Matches(owner) {
			return true
		}
	}
	return false
}
