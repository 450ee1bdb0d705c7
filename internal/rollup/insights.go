package rollup

import (
	"fmt"
	"math"
	"strings"
)

const (
	consensusThreshold   = 75.0
	closeRaceGap         = 10.0
	abstainInsightShare  = 20.0
	abstainSummaryShare  = 5.0
	lowParticipation     = 20
	whaleConcentrated    = 50.0
	whaleWellDistributed = 20.0
)

// facts are the already computed values insight rules are evaluated on.
type facts struct {
	trends         Trends
	whaleInfluence float64
}

func (f facts) gap() float64 {
	return math.Abs(f.trends.ForPercentage - f.trends.AgainstPercentage)
}

type category string

const (
	categoryDistribution  category = "distribution"
	categoryAbstain       category = "abstain"
	categoryParticipation category = "participation"
	categoryWhale         category = "whale"
	categoryOutcome       category = "outcome"
)

// rule emits message when when holds. Within a category only the first
// matching rule contributes.
type rule struct {
	category category
	when     func(facts) bool
	message  func(facts) string
}

func static(s string) func(facts) string {
	return func(facts) string { return s }
}

var insightRules = []rule{
	{
		category: categoryDistribution,
		when:     func(f facts) bool { return f.trends.ForPercentage > consensusThreshold },
		message: func(f facts) string {
			return fmt.Sprintf("Strong consensus in favor of the proposal with %.1f%% voting in support.", f.trends.ForPercentage)
		},
	},
	{
		category: categoryDistribution,
		when:     func(f facts) bool { return f.trends.AgainstPercentage > consensusThreshold },
		message: func(f facts) string {
			return fmt.Sprintf("Strong opposition to the proposal with %.1f%% voting against.", f.trends.AgainstPercentage)
		},
	},
	{
		category: categoryDistribution,
		when:     func(f facts) bool { return f.gap() < closeRaceGap },
		message: func(f facts) string {
			return fmt.Sprintf("The community is closely divided on this proposal with only %.1f%% difference between support and opposition.", f.gap())
		},
	},
	{
		category: categoryAbstain,
		when:     func(f facts) bool { return f.trends.AbstainPercentage > abstainInsightShare },
		message: func(f facts) string {
			return fmt.Sprintf("Significant number of voters (%.1f%%) have abstained, suggesting uncertainty or neutrality about this proposal.", f.trends.AbstainPercentage)
		},
	},
	{
		category: categoryParticipation,
		when:     func(f facts) bool { return !f.trends.QuorumReached },
		message:  static("Quorum has not been reached yet, indicating low participation relative to the required threshold."),
	},
	{
		category: categoryParticipation,
		when:     func(f facts) bool { return f.trends.TotalVotes < lowParticipation },
		message:  static("While quorum has been reached, overall participation remains relatively low."),
	},
	{
		category: categoryParticipation,
		when:     func(facts) bool { return true },
		message:  static("Strong participation has been observed for this proposal, with quorum being reached."),
	},
	{
		category: categoryWhale,
		when:     func(f facts) bool { return f.whaleInfluence > whaleConcentrated },
		message: func(f facts) string {
			return fmt.Sprintf("High concentration of voting power with top voters controlling %.1f%% of votes, raising centralization concerns.", f.whaleInfluence)
		},
	},
	{
		category: categoryWhale,
		when:     func(f facts) bool { return f.whaleInfluence < whaleWellDistributed },
		message: func(f facts) string {
			return fmt.Sprintf("Voting power is well distributed with top voters controlling only %.1f%% of votes.", f.whaleInfluence)
		},
	},
	{
		category: categoryOutcome,
		when:     func(f facts) bool { return f.trends.QuorumReached && f.trends.MajorityReached },
		message:  static("Based on current voting trends, this proposal is on track to pass."),
	},
	{
		category: categoryOutcome,
		when:     func(f facts) bool { return f.trends.QuorumReached && !f.trends.MajorityReached },
		message:  static("Based on current voting trends, this proposal is unlikely to pass."),
	},
}

func evaluate(f facts) []string {
	out := []string{}
	seen := make(map[category]bool, len(insightRules))
	for _, r := range insightRules {
		if seen[r.category] || !r.when(f) {
			continue
		}
		seen[r.category] = true
		out = append(out, r.message(f))
	}
	return out
}

func summaryText(f facts) string {
	t := f.trends
	var b strings.Builder
	fmt.Fprintf(&b, "This proposal has received votes from %d participants, with ", t.TotalVotes)
	if t.ForPercentage > t.AgainstPercentage {
		fmt.Fprintf(&b, "a majority (%.1f%%) voting in favor", t.ForPercentage)
	} else {
		fmt.Fprintf(&b, "a majority (%.1f%%) voting against", t.AgainstPercentage)
	}
	if t.AbstainPercentage > abstainSummaryShare {
		fmt.Fprintf(&b, " and %.1f%% choosing to abstain. ", t.AbstainPercentage)
	} else {
		b.WriteString(". ")
	}

	if t.QuorumReached {
		b.WriteString("The proposal has reached the required quorum for a valid vote. ")
	} else {
		b.WriteString("The proposal has not yet reached the required quorum. ")
	}

	switch {
	case t.QuorumReached && t.MajorityReached:
		b.WriteString("Based on the current votes, the proposal is likely to pass.")
	case t.QuorumReached:
		b.WriteString("Based on the current votes, the proposal is unlikely to pass.")
	default:
		b.WriteString("More votes are needed before the outcome can be determined.")
	}
	return b.String()
}
