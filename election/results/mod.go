// Package results implements the aggregation of the election tally. The
// aggregator is read-only and free of side effects, so it may run while
// submissions are in flight; the ledger offers no snapshot isolation though,
// so a vote submitted mid-fetch may or may not be reflected. This is an
// accepted eventual-consistency gap.
package results

import (
	"context"
	"sort"

	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
	"golang.org/x/xerrors"
)

// Result is one entry of the ranked tally. The percentage is relative to the
// total number of votes and zero when no vote was cast at all.
type Result struct {
	Index       uint64
	Name        string
	Description string
	VoteCount   uint64
	Percentage  float64
}

// Aggregator assembles the ranked tally from the sequential proposal reads.
type Aggregator struct {
	client ledger.Client
}

// NewAggregator creates an aggregator reading from the given client.
func NewAggregator(client ledger.Client) Aggregator {
	return Aggregator{client: client}
}

// Compute fetches every proposal and returns the tally sorted by vote count
// in descending order. Ties keep the original index ordering so the output
// is deterministic.
func (a Aggregator) Compute(ctx context.Context) ([]Result, error) {
	count, err := a.client.ProposalCount(ctx)
	if err != nil {
		return nil, types.LedgerUnavailable{
			Err: xerrors.Errorf("failed to read proposal count: %v", err),
		}
	}

	results := make([]Result, count)
	total := uint64(0)

	for i := uint64(0); i < count; i++ {
		proposal, err := a.client.Proposal(ctx, i)
		if err != nil {
			return nil, types.LedgerUnavailable{
				Err: xerrors.Errorf("failed to read proposal %d: %v", i, err),
			}
		}

		results[i] = Result{
			Index:       i,
			Name:        proposal.Name,
			Description: proposal.Description,
			VoteCount:   proposal.VoteCount,
		}

		total += proposal.VoteCount
	}

	if total > 0 {
		for i := range results {
			results[i].Percentage = float64(results[i].VoteCount) / float64(total) * 100
		}
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].VoteCount > results[j].VoteCount
	})

	return results, nil
}
