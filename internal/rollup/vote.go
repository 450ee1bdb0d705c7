// Package rollup turns the ballots cast on a proposal into a VoteSummary:
// count-based percentages, weight-based quorum and majority flags, the
// largest voters and a set of textual insights.
package rollup

import (
	"errors"
	"fmt"
	"math"
	"time"
)

// ErrMalformedVote is returned when a vote cannot be rolled up. It signals a
// contract mismatch with the vote source, not a transient failure.
var ErrMalformedVote = errors.New("malformed vote")

// Support is the tri-state choice of a ballot.
type Support int

const (
	SupportAgainst Support = 0
	SupportFor     Support = 1
	SupportAbstain Support = 2
)

// Valid reports whether s is one of Against, For or Abstain.
func (s Support) Valid() bool {
	return s == SupportAgainst || s == SupportFor || s == SupportAbstain
}

func (s Support) String() string {
	switch s {
	case SupportAgainst:
		return "Against"
	case SupportFor:
		return "For"
	case SupportAbstain:
		return "Abstain"
	default:
		return fmt.Sprintf("Support(%d)", int(s))
	}
}

// Kind discriminates public ballots (voter address known) from private ones
// (only a proof id is published).
type Kind int

const (
	KindPublic Kind = iota
	KindPrivate
)

func (k Kind) String() string {
	switch k {
	case KindPublic:
		return "public"
	case KindPrivate:
		return "private"
	default:
		return fmt.Sprintf("Kind(%d)", int(k))
	}
}

// Vote is one cast ballot. Voter is set for KindPublic, ProofID for
// KindPrivate.
type Vote struct {
	Kind      Kind
	Voter     string
	ProofID   string
	Support   Support
	Weight    float64
	Timestamp time.Time
}

// PublicVote builds a ballot cast from a known address.
func PublicVote(voter string, support Support, weight float64, ts time.Time) Vote {
	return Vote{Kind: KindPublic, Voter: voter, Support: support, Weight: weight, Timestamp: ts}
}

// PrivateVote builds an anonymized ballot identified by its proof.
func PrivateVote(proofID string, support Support, weight float64, ts time.Time) Vote {
	return Vote{Kind: KindPrivate, ProofID: proofID, Support: support, Weight: weight, Timestamp: ts}
}

// Label is the identifier shown for the ballot in voter listings.
func (v Vote) Label() string {
	if v.Kind == KindPrivate {
		return "private:" + v.ProofID
	}
	return v.Voter
}

func (v Vote) validate() error {
	switch {
	case math.IsNaN(v.Weight) || math.IsInf(v.Weight, 0):
		return fmt.Errorf("non-finite weight %v", v.Weight)
	case v.Weight < 0:
		return fmt.Errorf("negative weight %v", v.Weight)
	case !v.Support.Valid():
		return fmt.Errorf("invalid support value %d", int(v.Support))
	}
	switch v.Kind {
	case KindPublic:
		if v.Voter == "" {
			return errors.New("public vote without voter")
		}
	case KindPrivate:
		if v.ProofID == "" {
			return errors.New("private vote without proof id")
		}
	default:
		return fmt.Errorf("unknown vote kind %d", int(v.Kind))
	}
	return nil
}

// Validate checks every vote and reports the first malformed one by index.
func Validate(votes []Vote) error {
	for i, v := range votes {
		if err := v.validate(); err != nil {
			return fmt.Errorf("%w: vote %d: %v", ErrMalformedVote, i, err)
		}
	}
	return nil
}
