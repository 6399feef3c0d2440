// Package types defines the data model of the election as it is mirrored
// from the ledger. The ledger owns every entity; the structures here are
// read-only copies assembled into immutable snapshots.
package types

import "time"

// Proposal is a candidate option voters may select. The index is the ordinal
// position assigned by the ledger at creation; it is stable and never reused.
type Proposal struct {
	Index       uint64
	Name        string
	Description string
	VoteCount   uint64
	IsActive    bool
}

// Voter is the record of a registered identity. Registered and HasVoted only
// ever transition from false to true; VotedProposal is meaningful only once
// HasVoted is set.
type Voter struct {
	Address       string
	Registered    bool
	HasVoted      bool
	VotedProposal uint64
	DisplayName   string
}

// VotingPeriod is the window during which the ledger accepts votes. The
// cached copy is advisory only; whether a vote will succeed is decided by the
// ledger at submission time.
type VotingPeriod struct {
	Start  time.Time
	End    time.Time
	IsOpen bool
}

// Contains returns true when the instant falls inside the half-open window
// [start, end).
func (p VotingPeriod) Contains(t time.Time) bool {
	return !t.Before(p.Start) && t.Before(p.End)
}

// Snapshot is an internally consistent copy of the ledger state for one
// identity. It is created as a whole and never mutated: a refresh replaces
// the previous snapshot entirely so that readers never observe a mix of old
// and new state.
type Snapshot struct {
	Proposals []Proposal
	Voter     *Voter
	Period    VotingPeriod
}

// Proposal returns the proposal at the given index, or false when the index
// is outside the snapshot.
func (s Snapshot) Proposal(index uint64) (Proposal, bool) {
	if index >= uint64(len(s.Proposals)) {
		return Proposal{}, false
	}

	return s.Proposals[index], true
}

// TotalVotes returns the sum of the vote counts over all proposals.
func (s Snapshot) TotalVotes() uint64 {
	total := uint64(0)
	for _, proposal := range s.Proposals {
		total += proposal.VoteCount
	}

	return total
}
