package rollup

import (
	"fmt"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testNow = time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)

func pub(voter string, s Support, w float64) Vote {
	return PublicVote(voter, s, w, testNow)
}

func TestCompute_Scenario(t *testing.T) {
	votes := []Vote{
		pub("0xa", SupportFor, 10),
		pub("0xb", SupportAgainst, 5),
		pub("0xc", SupportAbstain, 1),
	}

	s, err := Compute(7, votes, DefaultPolicy(), testNow)
	require.NoError(t, err)

	assert.Equal(t, uint64(7), s.ProposalID)
	assert.InDelta(t, 33.33, s.VotingTrends.ForPercentage, 0.01)
	assert.InDelta(t, 33.33, s.VotingTrends.AgainstPercentage, 0.01)
	assert.InDelta(t, 33.33, s.VotingTrends.AbstainPercentage, 0.01)
	assert.Equal(t, 3, s.VotingTrends.TotalVotes)
	assert.Equal(t, 10.0, s.VotingTrends.ForWeight)
	assert.Equal(t, 5.0, s.VotingTrends.AgainstWeight)
	assert.Equal(t, 16.0, s.VotingTrends.TotalWeight)
	assert.True(t, s.VotingTrends.MajorityReached)
	assert.True(t, s.VotingTrends.QuorumReached)

	require.Len(t, s.WhaleActivity.LargestVoters, 3)
	assert.Equal(t, Voter{Address: "0xa", VotingPower: 10, VoteType: "For"}, s.WhaleActivity.LargestVoters[0])
	assert.Equal(t, Voter{Address: "0xb", VotingPower: 5, VoteType: "Against"}, s.WhaleActivity.LargestVoters[1])
	assert.Equal(t, Voter{Address: "0xc", VotingPower: 1, VoteType: "Abstain"}, s.WhaleActivity.LargestVoters[2])
	assert.InDelta(t, 100, s.WhaleActivity.WhaleInfluence, 1e-9)

	assert.Equal(t, []string{
		"The community is closely divided on this proposal with only 0.0% difference between support and opposition.",
		"Significant number of voters (33.3%) have abstained, suggesting uncertainty or neutrality about this proposal.",
		"While quorum has been reached, overall participation remains relatively low.",
		"High concentration of voting power with top voters controlling 100.0% of votes, raising centralization concerns.",
		"Based on current voting trends, this proposal is on track to pass.",
	}, s.Insights)
	assert.Equal(t,
		"This proposal has received votes from 3 participants, with a majority (33.3%) voting against and 33.3% choosing to abstain. "+
			"The proposal has reached the required quorum for a valid vote. "+
			"Based on the current votes, the proposal is likely to pass.",
		s.Summary)
	assert.Equal(t, testNow, s.Timestamp)
	assert.Equal(t, testNow, s.LastUpdated)
}

func TestCompute_Empty(t *testing.T) {
	for _, votes := range [][]Vote{nil, {}} {
		s, err := Compute(1, votes, DefaultPolicy(), testNow)
		require.NoError(t, err)

		assert.Equal(t, noVotesSummary, s.Summary)
		assert.Equal(t, []string{noVotesInsight}, s.Insights)
		assert.Zero(t, s.VotingTrends.ForPercentage)
		assert.Zero(t, s.VotingTrends.AgainstPercentage)
		assert.Zero(t, s.VotingTrends.AbstainPercentage)
		assert.Zero(t, s.VotingTrends.TotalVotes)
		assert.False(t, s.VotingTrends.QuorumReached)
		assert.False(t, s.VotingTrends.MajorityReached)
		assert.Empty(t, s.WhaleActivity.LargestVoters)
		assert.NotNil(t, s.WhaleActivity.LargestVoters)
		assert.Zero(t, s.WhaleActivity.WhaleInfluence)
	}
}

func TestCompute_Malformed(t *testing.T) {
	tests := []struct {
		name string
		vote Vote
		msg  string
	}{
		{"negative weight", pub("0xa", SupportFor, -1), "negative weight"},
		{"nan weight", pub("0xa", SupportFor, math.NaN()), "non-finite weight"},
		{"inf weight", pub("0xa", SupportFor, math.Inf(1)), "non-finite weight"},
		{"bad support", pub("0xa", Support(3), 1), "invalid support value 3"},
		{"public without voter", pub("", SupportFor, 1), "public vote without voter"},
		{"private without proof", PrivateVote("", SupportFor, 1, testNow), "private vote without proof id"},
		{"unknown kind", Vote{Kind: Kind(9), Voter: "x", Weight: 1}, "unknown vote kind 9"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			votes := []Vote{pub("0xok", SupportFor, 1), tt.vote}
			_, err := Compute(1, votes, DefaultPolicy(), testNow)
			require.Error(t, err)
			assert.ErrorIs(t, err, ErrMalformedVote)
			assert.Contains(t, err.Error(), "vote 1")
			assert.Contains(t, err.Error(), tt.msg)
		})
	}
}

func TestCompute_ZeroWeight(t *testing.T) {
	votes := []Vote{pub("0xa", SupportFor, 0), pub("0xb", SupportAgainst, 0)}

	s, err := Compute(1, votes, DefaultPolicy(), testNow)
	require.NoError(t, err)

	assert.Zero(t, s.WhaleActivity.WhaleInfluence)
	assert.False(t, math.IsNaN(s.WhaleActivity.WhaleInfluence))
	assert.False(t, s.VotingTrends.QuorumReached)
	assert.False(t, s.VotingTrends.MajorityReached)
	assert.InDelta(t, 50, s.VotingTrends.ForPercentage, 1e-9)
}

func TestCompute_LargestVotersTiesKeepInputOrder(t *testing.T) {
	votes := []Vote{
		pub("0x1", SupportFor, 5),
		pub("0x2", SupportAgainst, 7),
		PrivateVote("proof-3", SupportFor, 5, testNow),
		pub("0x4", SupportAbstain, 5),
	}

	s, err := Compute(1, votes, DefaultPolicy(), testNow)
	require.NoError(t, err)

	got := s.WhaleActivity.LargestVoters
	require.Len(t, got, 3)
	assert.Equal(t, "0x2", got[0].Address)
	assert.Equal(t, "0x1", got[1].Address)
	assert.Equal(t, "private:proof-3", got[2].Address)
	assert.InDelta(t, 17.0/22.0*100, s.WhaleActivity.WhaleInfluence, 1e-9)
	// input order is untouched
	assert.Equal(t, "0x1", votes[0].Voter)
}

func TestCompute_MajorityIsStrict(t *testing.T) {
	votes := []Vote{pub("0xa", SupportFor, 6), pub("0xb", SupportAgainst, 6)}

	s, err := Compute(1, votes, DefaultPolicy(), testNow)
	require.NoError(t, err)
	assert.False(t, s.VotingTrends.MajorityReached)
	assert.Contains(t, s.Insights, "Based on current voting trends, this proposal is unlikely to pass.")
}

func TestCompute_PolicyQuorum(t *testing.T) {
	votes := []Vote{pub("0xa", SupportFor, 60), pub("0xb", SupportFor, 30)}

	s, err := Compute(1, votes, Policy{QuorumThreshold: 100}, testNow)
	require.NoError(t, err)
	assert.False(t, s.VotingTrends.QuorumReached)
	assert.Contains(t, s.Summary, "has not yet reached the required quorum")
	assert.Contains(t, s.Summary, "More votes are needed")

	s, err = Compute(1, votes, Policy{QuorumThreshold: 90}, testNow)
	require.NoError(t, err)
	assert.True(t, s.VotingTrends.QuorumReached)
	assert.Len(t, s.WhaleActivity.LargestVoters, 2)
}

func TestCompute_Properties(t *testing.T) {
	supports := []Support{SupportFor, SupportAgainst, SupportAbstain}
	for n := 1; n <= 40; n++ {
		votes := make([]Vote, 0, n)
		for i := 0; i < n; i++ {
			w := float64((i*37)%11) + float64(i%3)/2
			votes = append(votes, pub(fmt.Sprintf("0x%02d", i), supports[(i*7+n)%3], w))
		}

		a, err := Compute(uint64(n), votes, DefaultPolicy(), testNow)
		require.NoError(t, err)

		tr := a.VotingTrends
		for _, p := range []float64{tr.ForPercentage, tr.AgainstPercentage, tr.AbstainPercentage} {
			assert.GreaterOrEqual(t, p, 0.0)
			assert.LessOrEqual(t, p, 100.0)
		}
		assert.InDelta(t, 100, tr.ForPercentage+tr.AgainstPercentage+tr.AbstainPercentage, 0.01)
		assert.Equal(t, tr.ForWeight > tr.AgainstWeight, tr.MajorityReached)

		lv := a.WhaleActivity.LargestVoters
		assert.Len(t, lv, min(3, n))
		for i := 1; i < len(lv); i++ {
			assert.GreaterOrEqual(t, lv[i-1].VotingPower, lv[i].VotingPower)
		}
		assert.GreaterOrEqual(t, a.WhaleActivity.WhaleInfluence, 0.0)
		assert.LessOrEqual(t, a.WhaleActivity.WhaleInfluence, 100.0+1e-9)

		b, err := Compute(uint64(n), votes, DefaultPolicy(), testNow.Add(time.Minute))
		require.NoError(t, err)
		assert.Equal(t, a.VotingTrends, b.VotingTrends)
		assert.Equal(t, a.WhaleActivity, b.WhaleActivity)
		assert.Equal(t, a.Insights, b.Insights)
		assert.NotEqual(t, a.LastUpdated, b.LastUpdated)
	}
}

func TestSummary_FreshAt(t *testing.T) {
	s := Summary{LastUpdated: testNow}
	assert.True(t, s.FreshAt(testNow.Add(29*time.Minute), StaleAfter))
	assert.False(t, s.FreshAt(testNow.Add(30*time.Minute), StaleAfter))
}
