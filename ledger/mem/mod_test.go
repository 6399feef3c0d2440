package mem

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/ledger"
)

func TestLedger_Reads(t *testing.T) {
	ld := NewLedger()
	ctx := context.Background()

	count, err := ld.ProposalCount(ctx)
	require.NoError(t, err)
	require.Equal(t, uint64(0), count)

	_, err = ld.Proposal(ctx, 0)
	require.EqualError(t, err, "proposal '0' not found")
	require.ErrorAs(t, err, &types.NotFound{})

	voter, err := ld.Voter(ctx, "0xalice")
	require.NoError(t, err)
	require.Equal(t, "0xalice", voter.Address)
	require.False(t, voter.Registered)

	status, err := ld.VotingStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.IsOpen)
}

func TestLedger_Register(t *testing.T) {
	ld := NewLedger()
	ctx := context.Background()

	call := ledger.RegisterCall{Address: "0xalice", Name: "Alice"}

	receipt, err := ld.Submit(ctx, call, "0xadmin", 40)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)
	require.Equal(t, uint64(40), receipt.Cost)

	voter, err := ld.Voter(ctx, "0xalice")
	require.NoError(t, err)
	require.True(t, voter.Registered)
	require.Equal(t, "Alice", voter.DisplayName)

	_, err = ld.Submit(ctx, call, "0xadmin", 40)
	require.EqualError(t, err, "execution reverted: voter is already registered")

	empty := ledger.RegisterCall{Address: "0xbob"}
	_, err = ld.Submit(ctx, empty, "0xadmin", 40)
	require.EqualError(t, err, "execution reverted: empty voter field")
}

func TestLedger_VoteFlow(t *testing.T) {
	ld := makeElection(t)
	ctx := context.Background()

	err := ld.SimulateVote(ctx, "0xalice", 1)
	require.NoError(t, err)

	receipt, err := ld.Submit(ctx, ledger.VoteCall{Proposal: 1}, "0xalice", 60)
	require.NoError(t, err)
	require.NotEmpty(t, receipt.ID)

	proposal, err := ld.Proposal(ctx, 1)
	require.NoError(t, err)
	require.Equal(t, uint64(1), proposal.VoteCount)

	voter, err := ld.Voter(ctx, "0xalice")
	require.NoError(t, err)
	require.True(t, voter.HasVoted)
	require.Equal(t, uint64(1), voter.VotedProposal)

	err = ld.SimulateVote(ctx, "0xalice", 0)
	require.EqualError(t, err, "execution reverted: voter has already voted")
}

func TestLedger_VoteRules(t *testing.T) {
	ld := makeElection(t)
	ctx := context.Background()

	err := ld.SimulateVote(ctx, "0xstranger", 0)
	require.EqualError(t, err, "execution reverted: voter is not registered")

	err = ld.SimulateVote(ctx, "0xalice", 9)
	require.EqualError(t, err, "execution reverted: invalid proposal")

	// Closing the window turns every vote down.
	ld.SetClock(func() time.Time {
		return time.Date(2030, time.January, 1, 0, 0, 0, 0, time.UTC)
	})

	err = ld.SimulateVote(ctx, "0xalice", 0)
	require.EqualError(t, err, "execution reverted: voting is not open")
}

func TestLedger_CostLimit(t *testing.T) {
	ld := makeElection(t)
	ctx := context.Background()

	_, err := ld.Submit(ctx, ledger.VoteCall{Proposal: 0}, "0xalice", 10)
	require.EqualError(t, err, "execution reverted: cost limit 10 below required 50")

	estimate, err := ld.EstimateCost(ctx, ledger.VoteCall{Proposal: 0}, "0xalice")
	require.NoError(t, err)
	require.Equal(t, uint64(50), estimate)

	_, err = ld.EstimateCost(ctx, badCall{}, "0xalice")
	require.EqualError(t, err, "unknown method 'bad'")

	_, err = ld.Submit(ctx, badCall{}, "0xalice", 100)
	require.EqualError(t, err, "unknown method 'bad'")
}

func TestLedger_Period(t *testing.T) {
	ld := NewLedger()
	ctx := context.Background()

	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	ld.SetClock(func() time.Time { return now })

	call := ledger.PeriodCall{Start: now.Add(time.Hour), End: now.Add(-time.Hour)}
	_, err := ld.Submit(ctx, call, "0xadmin", 30)
	require.EqualError(t, err, "execution reverted: end must be after start")

	call = ledger.PeriodCall{Start: now.Add(-time.Hour), End: now.Add(time.Hour)}
	_, err = ld.Submit(ctx, call, "0xadmin", 30)
	require.NoError(t, err)

	status, err := ld.VotingStatus(ctx)
	require.NoError(t, err)
	require.True(t, status.IsOpen)

	// Last write wins when the window is reset.
	call = ledger.PeriodCall{Start: now.Add(time.Hour), End: now.Add(2 * time.Hour)}
	_, err = ld.Submit(ctx, call, "0xadmin", 30)
	require.NoError(t, err)

	status, err = ld.VotingStatus(ctx)
	require.NoError(t, err)
	require.False(t, status.IsOpen)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeElection(t *testing.T) *Ledger {
	t.Helper()

	ld := NewLedger()
	ctx := context.Background()

	now := time.Date(2024, time.June, 1, 12, 0, 0, 0, time.UTC)
	ld.SetClock(func() time.Time { return now })

	proposals := []ledger.ProposalCall{
		{Name: "A", Description: "first"},
		{Name: "B", Description: "second"},
	}

	for _, call := range proposals {
		_, err := ld.Submit(ctx, call, "0xadmin", 60)
		require.NoError(t, err)
	}

	_, err := ld.Submit(ctx,
		ledger.RegisterCall{Address: "0xalice", Name: "Alice"}, "0xadmin", 40)
	require.NoError(t, err)

	_, err = ld.Submit(ctx, ledger.PeriodCall{
		Start: now.Add(-time.Hour),
		End:   now.Add(time.Hour),
	}, "0xadmin", 30)
	require.NoError(t, err)

	return ld
}

type badCall struct{}

func (badCall) Method() string {
	return "bad"
}
