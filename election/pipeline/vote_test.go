package pipeline

import (
	"context"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.dedis.ch/dvote/election/cache"
	"go.dedis.ch/dvote/election/types"
	"go.dedis.ch/dvote/internal/testing/fake"
	"go.dedis.ch/dvote/ledger"
	"go.dedis.ch/dvote/session"
)

func TestVotePipeline_Cast(t *testing.T) {
	client := makeVotableLedger()
	client.Estimate = 100

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	outcome, err := p.Cast(context.Background(), makeSession(), 0)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", outcome.Receipt.ID)
	require.NoError(t, outcome.RefreshErr)

	// An estimate of 100 must be provisioned as exactly 120.
	last := client.Calls.Len() - 1
	for n := 0; n < client.Calls.Len(); n++ {
		if client.Calls.Get(n, 0) == "submit" {
			last = n
		}
	}

	require.Equal(t, ledger.VoteCall{Proposal: 0}, client.Calls.Get(last, 1))
	require.Equal(t, uint64(120), client.Calls.Get(last, 3))
}

func TestVotePipeline_Cast_MarginRoundsUp(t *testing.T) {
	require.Equal(t, uint64(120), withMargin(100))
	require.Equal(t, uint64(2), withMargin(1))
	require.Equal(t, uint64(0), withMargin(0))
	require.Equal(t, uint64(13), withMargin(11))

	// Huge estimates saturate instead of wrapping around.
	require.Equal(t, uint64(math.MaxUint64), withMargin(math.MaxUint64))
	require.Equal(t, uint64(math.MaxUint64), withMargin(math.MaxUint64/12+1))
	require.GreaterOrEqual(t, withMargin((math.MaxUint64-9)/12), uint64((math.MaxUint64-9)/12))
}

func TestVotePipeline_Cast_NoIdentity(t *testing.T) {
	client := makeVotableLedger()
	p := NewVotePipeline(client, cache.NewCache(client), nil)

	sess := session.Session{Username: "user", Role: session.RoleUser}

	_, err := p.Cast(context.Background(), sess, 0)
	require.EqualError(t, err, "validation failed: session has no ledger identity")
	require.Equal(t, 0, client.Calls.Len())
}

func TestVotePipeline_Cast_NoSnapshot(t *testing.T) {
	client := makeVotableLedger()
	p := NewVotePipeline(client, cache.NewCache(client), nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "validation failed: no local snapshot, refresh first")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_StaleIdentitySnapshot(t *testing.T) {
	client := makeVotableLedger()

	// The cache was last refreshed for another identity: the local check
	// must not trust that snapshot for this session.
	c := cache.NewCache(client)

	_, err := c.Refresh(context.Background(), "0xother")
	require.NoError(t, err)

	p := NewVotePipeline(client, c, nil)

	_, err = p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "validation failed: no local snapshot, refresh first")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_OutOfRange(t *testing.T) {
	client := makeVotableLedger()

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 42)
	require.EqualError(t, err, "validation failed: proposal index out of range")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_NotRegistered(t *testing.T) {
	client := makeVotableLedger()
	client.VoterRecord = types.Voter{Address: "0xalice"}

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "precondition failed: voter is not registered")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_AlreadyVoted(t *testing.T) {
	client := makeVotableLedger()
	client.VoterRecord = types.Voter{
		Address:       "0xalice",
		Registered:    true,
		HasVoted:      true,
		VotedProposal: 1,
	}

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "precondition failed: voter has already voted")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_InactiveProposal(t *testing.T) {
	client := makeVotableLedger()
	client.Proposals[1].IsActive = false

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 1)
	require.EqualError(t, err, "precondition failed: proposal is not active")
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_VotingClosed(t *testing.T) {
	client := makeVotableLedger()
	client.Status.IsOpen = false

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "precondition failed: voting period is not open")
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_RaceDetectedRemotely(t *testing.T) {
	client := makeVotableLedger()

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	// Another session voted since the last refresh: the local check passes
	// but the remote re-validation must catch it.
	client.VoterRecord.HasVoted = true

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "precondition failed: voter has already voted")
	require.Equal(t, 0, client.CountCalls("simulateVote"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_SimulationRejected(t *testing.T) {
	client := makeVotableLedger()
	client.ErrSimulate = fake.GetError()

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "simulation rejected: operation failed")
	require.Equal(t, 0, client.CountCalls("submit"))

	var rejection types.SimulationRejected
	require.ErrorAs(t, err, &rejection)
	require.Equal(t, "fake error", rejection.Raw)
}

func TestVotePipeline_Cast_EstimateFailure(t *testing.T) {
	client := makeVotableLedger()
	client.ErrEstimate = fake.GetError()

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err,
		"ledger unavailable: "+fake.Err("failed to estimate cost"))
	require.Equal(t, 0, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_SubmissionRejected(t *testing.T) {
	client := makeVotableLedger()
	client.ErrSubmit = fake.GetError()

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, nil)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.EqualError(t, err, "submission rejected: operation failed")

	// A failed or ambiguous submission is never resent.
	require.Equal(t, 1, client.CountCalls("submit"))
}

func TestVotePipeline_Cast_RefreshFailureReportedSeparately(t *testing.T) {
	inner := makeVotableLedger()
	client := &flakyCountLedger{Ledger: inner, budget: 1}

	c := cache.NewCache(client)

	_, err := c.Refresh(context.Background(), "0xalice")
	require.NoError(t, err)

	p := NewVotePipeline(client, c, nil)

	outcome, err := p.Cast(context.Background(), makeSession(), 0)
	require.NoError(t, err)
	require.Equal(t, "deadbeef", outcome.Receipt.ID)
	require.Error(t, outcome.RefreshErr)

	// The vote is committed: the failed refresh left the prior snapshot.
	_, ok := c.Current()
	require.True(t, ok)
}

func TestVotePipeline_Cast_Alerts(t *testing.T) {
	client := makeVotableLedger()

	notifier := NewNotifier()
	notifier.duration = time.Minute

	c := refreshedCache(t, client)
	p := NewVotePipeline(client, c, notifier)

	_, err := p.Cast(context.Background(), makeSession(), 0)
	require.NoError(t, err)

	alert, ok := notifier.Current()
	require.True(t, ok)
	require.Equal(t, AlertSuccess, alert.Kind)

	client.VoterRecord.HasVoted = true

	_, err = p.Cast(context.Background(), makeSession(), 0)
	require.Error(t, err)

	alert, ok = notifier.Current()
	require.True(t, ok)
	require.Equal(t, AlertError, alert.Kind)
}

// -----------------------------------------------------------------------------
// Utility functions

func makeVotableLedger() *fake.Ledger {
	client := fake.NewLedger()
	client.Proposals = []types.Proposal{
		{Index: 0, Name: "A", Description: "first", IsActive: true},
		{Index: 1, Name: "B", Description: "second", IsActive: true},
	}
	client.VoterRecord = types.Voter{
		Address:     "0xalice",
		Registered:  true,
		DisplayName: "Alice",
	}
	client.Status = types.VotingPeriod{IsOpen: true}
	client.Estimate = 50

	return client
}

func makeSession() session.Session {
	return session.Session{
		ID:       "test",
		Username: "user",
		Role:     session.RoleUser,
		Address:  "0xalice",
	}
}

func refreshedCache(t *testing.T, client *fake.Ledger) *cache.Cache {
	t.Helper()

	c := cache.NewCache(client)

	_, err := c.Refresh(context.Background(), "0xalice")
	require.NoError(t, err)

	return c
}

// flakyCountLedger fails the proposal count read once its budget is spent,
// which makes the refresh after a successful submission fail.
type flakyCountLedger struct {
	*fake.Ledger
	budget int
}

func (l *flakyCountLedger) ProposalCount(ctx context.Context) (uint64, error) {
	l.budget--
	if l.budget < 0 {
		return 0, fake.GetError()
	}

	return l.Ledger.ProposalCount(ctx)
}
