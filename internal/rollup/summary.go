package rollup

import (
	"sort"
	"time"
)

const (
	// DefaultQuorumThreshold is the total voting weight a proposal needs for
	// its outcome to count. Sources that know the live value override it.
	DefaultQuorumThreshold = 10.0
	// DefaultTopVoters is how many ballots are reported as largest voters.
	DefaultTopVoters = 3
	// StaleAfter is how long a stored summary is served without recompute.
	StaleAfter = 30 * time.Minute

	noVotesSummary = "This proposal has not received any votes yet."
	noVotesInsight = "No voting activity to analyze."
)

// Policy holds the thresholds a rollup is evaluated against.
type Policy struct {
	QuorumThreshold float64
	TopVoters       int
}

// DefaultPolicy returns the policy used when nothing else is configured.
func DefaultPolicy() Policy {
	return Policy{QuorumThreshold: DefaultQuorumThreshold, TopVoters: DefaultTopVoters}
}

// Voter is one entry of the largest-voters list.
type Voter struct {
	Address     string  `json:"address"`
	VotingPower float64 `json:"votingPower"`
	VoteType    string  `json:"voteType"`
}

// Trends holds the distribution of a proposal's ballots. Percentages are by
// ballot count, weights by voting power.
type Trends struct {
	ForPercentage     float64 `json:"forPercentage"`
	AgainstPercentage float64 `json:"againstPercentage"`
	AbstainPercentage float64 `json:"abstainPercentage"`
	TotalVotes        int     `json:"totalVotes"`
	ForWeight         float64 `json:"forWeight"`
	AgainstWeight     float64 `json:"againstWeight"`
	AbstainWeight     float64 `json:"abstainWeight"`
	TotalWeight       float64 `json:"totalWeight"`
	QuorumReached     bool    `json:"quorumReached"`
	MajorityReached   bool    `json:"majorityReached"`
}

// WhaleActivity describes how concentrated the voting power is.
type WhaleActivity struct {
	LargestVoters  []Voter `json:"largestVoters"`
	WhaleInfluence float64 `json:"whaleInfluence"`
}

// Summary is the cacheable snapshot of a proposal's votes.
type Summary struct {
	ProposalID    uint64        `json:"proposalId"`
	Summary       string        `json:"summary"`
	Insights      []string      `json:"insights"`
	VotingTrends  Trends        `json:"votingTrends"`
	WhaleActivity WhaleActivity `json:"whaleActivity"`
	Timestamp     time.Time     `json:"timestamp"`
	LastUpdated   time.Time     `json:"lastUpdated"`
}

// FreshAt reports whether s was recomputed less than ttl before now.
func (s Summary) FreshAt(now time.Time, ttl time.Duration) bool {
	return now.Sub(s.LastUpdated) < ttl
}

// Compute rolls up votes for one proposal. It has no side effects; storing
// the result is up to the caller.
func Compute(proposalID uint64, votes []Vote, policy Policy, now time.Time) (Summary, error) {
	if err := Validate(votes); err != nil {
		return Summary{}, err
	}
	if policy.TopVoters <= 0 {
		policy.TopVoters = DefaultTopVoters
	}

	out := Summary{
		ProposalID:    proposalID,
		Insights:      []string{},
		WhaleActivity: WhaleActivity{LargestVoters: []Voter{}},
		Timestamp:     now,
		LastUpdated:   now,
	}
	if len(votes) == 0 {
		out.Summary = noVotesSummary
		out.Insights = []string{noVotesInsight}
		return out, nil
	}

	var counts [3]int
	var weights [3]float64
	var totalWeight float64
	for _, v := range votes {
		counts[v.Support]++
		weights[v.Support] += v.Weight
		totalWeight += v.Weight
	}

	total := float64(len(votes))
	t := Trends{
		ForPercentage:     float64(counts[SupportFor]) / total * 100,
		AgainstPercentage: float64(counts[SupportAgainst]) / total * 100,
		AbstainPercentage: float64(counts[SupportAbstain]) / total * 100,
		TotalVotes:        len(votes),
		ForWeight:         weights[SupportFor],
		AgainstWeight:     weights[SupportAgainst],
		AbstainWeight:     weights[SupportAbstain],
		TotalWeight:       totalWeight,
		QuorumReached:     totalWeight >= policy.QuorumThreshold,
		MajorityReached:   weights[SupportFor] > weights[SupportAgainst],
	}

	largest, whaleWeight := largestVoters(votes, policy.TopVoters)
	var influence float64
	if totalWeight > 0 {
		influence = whaleWeight / totalWeight * 100
	}

	out.VotingTrends = t
	out.WhaleActivity = WhaleActivity{LargestVoters: largest, WhaleInfluence: influence}

	f := facts{trends: t, whaleInfluence: influence}
	out.Insights = evaluate(f)
	out.Summary = summaryText(f)
	return out, nil
}

// largestVoters returns the n heaviest ballots, ties kept in input order, and
// their combined weight.
func largestVoters(votes []Vote, n int) ([]Voter, float64) {
	sorted := make([]Vote, len(votes))
	copy(sorted, votes)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].Weight > sorted[j].Weight
	})
	if len(sorted) > n {
		sorted = sorted[:n]
	}

	out := make([]Voter, 0, len(sorted))
	var sum float64
	for _, v := range sorted {
		out = append(out, Voter{
			Address:     v.Label(),
			VotingPower: v.Weight,
			VoteType:    v.Support.String(),
		})
		sum += v.Weight
	}
	return out, sum
}
