// Package cache implements the local read model of the election. It mirrors
// the ledger state in a snapshot that is replaced wholesale on every refresh:
// readers always observe either the previous complete snapshot or the new
// one, never a mix. Refreshes are strictly caller-triggered; there is no
// polling.
package cache

import (
	"context"
	"sync"

	"go.dedis.ch/dvote"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"golang.org/x/sync/errgroup"
	"golang.org/x/xerrors"
)

// Cache holds the last complete snapshot of the ledger state for the active
// identity. It is the only shared mutable state of the orchestration layer;
// full replacement of the snapshot is its substitute for finer locking.
type Cache struct {
	sync.RWMutex

	client   ledger.Client
	snap     *types.Snapshot
	identity string
	// generation counts the resets so that a refresh started before one can
	// detect that its triggering context is gone.
	generation uint64
	watcher    *identityWatcher
}

// NewCache creates an empty cache reading from the given client.
func NewCache(client ledger.Client) *Cache {
	return &Cache{
		client:  client,
		watcher: newIdentityWatcher(),
	}
}

// Current returns the latest complete snapshot, or false before the first
// successful refresh or after a reset.
func (c *Cache) Current() (types.Snapshot, bool) {
	c.RLock()
	defer c.RUnlock()

	if c.snap == nil {
		return types.Snapshot{}, false
	}

	return *c.snap, true
}

// CurrentFor returns the latest complete snapshot only when it was refreshed
// for the given identity, so that local checks never run against the state of
// another identity.
func (c *Cache) CurrentFor(identity string) (types.Snapshot, bool) {
	c.RLock()
	defer c.RUnlock()

	if c.snap == nil || c.identity != identity {
		return types.Snapshot{}, false
	}

	return *c.snap, true
}

// Refresh fetches the proposal set, the voter record of the identity and the
// voting status, then publishes them as one snapshot. The independent reads
// run concurrently but the snapshot only becomes visible after all of them
// succeeded; any failure leaves the previous snapshot untouched and the
// caller must re-attempt explicitly. A refresh that raced with a reset
// returns its result without publishing it: the session it was fetched for
// is gone and its snapshot must not resurface.
func (c *Cache) Refresh(ctx context.Context, identity string) (types.Snapshot, error) {
	c.RLock()
	generation := c.generation
	c.RUnlock()

	count, err := c.client.ProposalCount(ctx)
	if err != nil {
		return types.Snapshot{}, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read proposal count: %v", err),
		}
	}

	proposals := make([]types.Proposal, count)

	var voter types.Voter
	var period types.VotingPeriod

	group, gctx := errgroup.WithContext(ctx)

	group.Go(func() error {
		for i := uint64(0); i < count; i++ {
			proposal, err := c.client.Proposal(gctx, i)
			if err != nil {
				return xerrors.Errorf("failed to read proposal %d: %v", i, err)
			}

			proposals[i] = proposal
		}

		return nil
	})

	group.Go(func() error {
		var err error
		voter, err = c.client.Voter(gctx, identity)
		if err != nil {
			return xerrors.Errorf("failed to read voter record: %v", err)
		}

		return nil
	})

	group.Go(func() error {
		var err error
		period, err = c.client.VotingStatus(gctx)
		if err != nil {
			return xerrors.Errorf("failed to read voting status: %v", err)
		}

		return nil
	})

	err = group.Wait()
	if err != nil {
		return types.Snapshot{}, types.LedgerUnavailable{Err: err}
	}

	snap := types.Snapshot{
		Proposals: proposals,
		Voter:     &voter,
		Period:    period,
	}

	c.Lock()
	if c.generation != generation {
		c.Unlock()

		dvote.Logger.Debug().
			Str("identity", identity).
			Msg("dropping refresh for a reset session")

		return snap, nil
	}

	c.snap = &snap
	c.identity = identity
	c.Unlock()

	dvote.Logger.Debug().
		Str("identity", identity).
		Int("proposals", len(proposals)).
		Msg("snapshot refreshed")

	return snap, nil
}

// Reset discards the snapshot. It is called at logout and when the active
// identity changes, so that no state from a previous session leaks into the
// next one, not even through a refresh that was in flight when the session
// ended.
func (c *Cache) Reset() {
	c.Lock()
	c.snap = nil
	c.identity = ""
	c.generation++
	c.Unlock()
}
