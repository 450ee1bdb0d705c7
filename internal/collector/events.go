package collector

import (
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"governance-analytics/internal/rollup"
)

// Attributes of the vote_cast event emitted by the governance application.
// Every attribute is emitted for every ballot, empty when it does not apply,
// so the i-th value of each key belongs to the i-th ballot of the tx.
const (
	attrProposalID = "vote_cast.proposal_id"
	attrVoter      = "vote_cast.voter"
	attrProofID    = "vote_cast.proof_id"
	attrSupport    = "vote_cast.support"
	attrWeight     = "vote_cast.weight"
)

type ballot struct {
	ProposalID uint64
	Vote       rollup.Vote
}

// parseBallots extracts the ballots of a Tx event. Well-formed ballots are
// returned even when others fail to parse; the failures are joined in err.
func parseBallots(attrs map[string][]string, at time.Time) ([]ballot, error) {
	ids := attrs[attrProposalID]
	var (
		out  []ballot
		errs []error
	)
	for i := range ids {
		b, err := parseBallot(attrs, i, at)
		if err != nil {
			errs = append(errs, fmt.Errorf("vote_cast %d: %w", i, err))
			continue
		}
		out = append(out, b)
	}
	return out, errors.Join(errs...)
}

func parseBallot(attrs map[string][]string, i int, at time.Time) (ballot, error) {
	id, err := strconv.ParseUint(attrAt(attrs, attrProposalID, i), 10, 64)
	if err != nil {
		return ballot{}, fmt.Errorf("proposal_id: %w", err)
	}
	support, err := strconv.Atoi(attrAt(attrs, attrSupport, i))
	if err != nil {
		return ballot{}, fmt.Errorf("support: %w", err)
	}
	weight, err := strconv.ParseFloat(attrAt(attrs, attrWeight, i), 64)
	if err != nil {
		return ballot{}, fmt.Errorf("weight: %w", err)
	}

	var v rollup.Vote
	if proof := attrAt(attrs, attrProofID, i); proof != "" {
		v = rollup.PrivateVote(proof, rollup.Support(support), weight, at)
	} else {
		v = rollup.PublicVote(attrAt(attrs, attrVoter, i), rollup.Support(support), weight, at)
	}
	if err := rollup.Validate([]rollup.Vote{v}); err != nil {
		return ballot{}, err
	}
	return ballot{ProposalID: id, Vote: v}, nil
}

func attrAt(attrs map[string][]string, key string, i int) string {
	vals := attrs[key]
	if i >= len(vals) {
		return ""
	}
	return strings.TrimSpace(vals[i])
}

func parseHeight(s string) int64 {
	h, err := strconv.ParseInt(s, 10, 64)
	if err != nil {
		return 0
	}
	return h
}
