package summary

import (
	"context"
	"errors"
	"testing"
	"time"

	"governance-analytics/internal/rollup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeProposals struct {
	proposals map[uint64]*Proposal
	err       error
	calls     int
}

func (f *fakeProposals) FetchProposal(_ context.Context, id uint64) (*Proposal, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.proposals[id], nil
}

type fakeVotes struct {
	votes map[uint64][]rollup.Vote
	err   error
	calls int
}

func (f *fakeVotes) FetchVotes(_ context.Context, id uint64) ([]rollup.Vote, error) {
	f.calls++
	if f.err != nil {
		return nil, f.err
	}
	return f.votes[id], nil
}

type fakeCache struct {
	items  map[uint64]rollup.Summary
	getErr error
	setErr error
	sets   int
}

func newFakeCache() *fakeCache {
	return &fakeCache{items: map[uint64]rollup.Summary{}}
}

func (f *fakeCache) Get(_ context.Context, id uint64) (*rollup.Summary, error) {
	if f.getErr != nil {
		return nil, f.getErr
	}
	s, ok := f.items[id]
	if !ok {
		return nil, nil
	}
	return &s, nil
}

func (f *fakeCache) Set(_ context.Context, id uint64, s rollup.Summary) error {
	f.sets++
	if f.setErr != nil {
		return f.setErr
	}
	f.items[id] = s
	return nil
}

type fixture struct {
	proposals *fakeProposals
	votes     *fakeVotes
	cache     *fakeCache
	now       time.Time
	svc       *Service
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	f := &fixture{
		proposals: &fakeProposals{proposals: map[uint64]*Proposal{
			1: {ID: 1, Title: "Fund the grants round"},
		}},
		votes: &fakeVotes{votes: map[uint64][]rollup.Vote{
			1: {
				rollup.PublicVote("0xa", rollup.SupportFor, 10, time.Time{}),
				rollup.PublicVote("0xb", rollup.SupportAgainst, 5, time.Time{}),
				rollup.PrivateVote("proof-1", rollup.SupportAbstain, 1, time.Time{}),
			},
		}},
		cache: newFakeCache(),
		now:   time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC),
	}
	f.svc = NewService(f.proposals, f.votes, f.cache, zap.NewNop(), WithClock(func() time.Time { return f.now }))
	return f
}

func TestGetVoteSummary_ComputesAndStores(t *testing.T) {
	f := newFixture(t)

	got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, uint64(1), got.ProposalID)
	assert.Equal(t, 3, got.VotingTrends.TotalVotes)
	assert.True(t, got.VotingTrends.MajorityReached)
	assert.Equal(t, f.now, got.Timestamp)
	assert.Equal(t, f.now, got.LastUpdated)
	assert.Equal(t, 1, f.cache.sets)
	assert.Equal(t, *got, f.cache.items[1])
}

func TestGetVoteSummary_CacheHit(t *testing.T) {
	f := newFixture(t)
	cached := rollup.Summary{
		ProposalID:  1,
		Summary:     "stored",
		Insights:    []string{"kept"},
		Timestamp:   f.now.Add(-2 * time.Hour),
		LastUpdated: f.now.Add(-29 * time.Minute),
	}
	f.cache.items[1] = cached

	got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, got)

	assert.Equal(t, cached, *got)
	assert.Zero(t, f.proposals.calls)
	assert.Zero(t, f.votes.calls)
	assert.Zero(t, f.cache.sets)
}

func TestGetVoteSummary_StaleOrForced(t *testing.T) {
	tests := []struct {
		name   string
		age    time.Duration
		forced bool
	}{
		{"stale", 31 * time.Minute, false},
		{"exactly at the window", 30 * time.Minute, false},
		{"forced while fresh", time.Minute, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			f := newFixture(t)
			first := f.now.Add(-48 * time.Hour)
			f.cache.items[1] = rollup.Summary{ProposalID: 1, Summary: "old", Timestamp: first, LastUpdated: f.now.Add(-tt.age)}

			got, err := f.svc.GetVoteSummary(context.Background(), 1, tt.forced)
			require.NoError(t, err)
			require.NotNil(t, got)

			assert.NotEqual(t, "old", got.Summary)
			assert.Equal(t, first, got.Timestamp, "first generation time is kept")
			assert.Equal(t, f.now, got.LastUpdated)
			assert.Equal(t, 1, f.proposals.calls)
			assert.Equal(t, 1, f.votes.calls)
			assert.Equal(t, *got, f.cache.items[1])
		})
	}
}

func TestGetVoteSummary_Unavailable(t *testing.T) {
	t.Run("proposal missing", func(t *testing.T) {
		f := newFixture(t)
		got, err := f.svc.GetVoteSummary(context.Background(), 99, false)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, f.votes.calls)
		assert.Zero(t, f.cache.sets)
	})

	t.Run("proposal fetch fails", func(t *testing.T) {
		f := newFixture(t)
		f.proposals.err = errors.New("rpc down")
		got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
		require.NoError(t, err)
		assert.Nil(t, got)
	})

	t.Run("votes fetch fails", func(t *testing.T) {
		f := newFixture(t)
		f.votes.err = errors.New("timeout")
		got, err := f.svc.GetVoteSummary(context.Background(), 1, true)
		require.NoError(t, err)
		assert.Nil(t, got)
		assert.Zero(t, f.cache.sets)
		assert.ErrorIs(t, f.svc.Refresh(context.Background(), 1), ErrUnavailable)
	})
}

func TestGetVoteSummary_NoVotesIsStored(t *testing.T) {
	f := newFixture(t)
	f.proposals.proposals[2] = &Proposal{ID: 2}

	got, err := f.svc.GetVoteSummary(context.Background(), 2, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, "This proposal has not received any votes yet.", got.Summary)
	assert.Equal(t, 1, f.cache.sets)
}

func TestGetVoteSummary_Malformed(t *testing.T) {
	f := newFixture(t)
	f.votes.votes[1] = append(f.votes.votes[1], rollup.PublicVote("0xbad", rollup.SupportFor, -4, time.Time{}))

	got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
	assert.Nil(t, got)
	require.Error(t, err)
	assert.ErrorIs(t, err, rollup.ErrMalformedVote)
	assert.Zero(t, f.cache.sets)
}

func TestGetVoteSummary_CacheFailuresAreNotFatal(t *testing.T) {
	f := newFixture(t)
	f.cache.getErr = errors.New("redis: connection refused")
	f.cache.setErr = errors.New("redis: connection refused")

	got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, 1, f.cache.sets)
	assert.NoError(t, f.svc.Refresh(context.Background(), 1))
}

func TestGetVoteSummary_ProposalQuorumOverridesPolicy(t *testing.T) {
	f := newFixture(t)
	f.proposals.proposals[1].Quorum = 1000

	got, err := f.svc.GetVoteSummary(context.Background(), 1, false)
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.False(t, got.VotingTrends.QuorumReached)

	f.proposals.proposals[1].Quorum = 0
	svc := NewService(f.proposals, f.votes, f.cache, zap.NewNop(),
		WithClock(func() time.Time { return f.now }),
		WithPolicy(rollup.Policy{QuorumThreshold: 16, TopVoters: 2}),
		WithTTL(time.Minute))
	got, err = svc.GetVoteSummary(context.Background(), 1, true)
	require.NoError(t, err)
	assert.True(t, got.VotingTrends.QuorumReached)
	assert.Len(t, got.WhaleActivity.LargestVoters, 2)
}
