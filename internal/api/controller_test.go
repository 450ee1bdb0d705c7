package api

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/notify"
	"governance-analytics/internal/rollup"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const voterA = "0x5aAeb6053F3E94C9b9A09f33669435E7Ef1BeAed"

type stubSummaries struct {
	summary *rollup.Summary
	err     error
	force   bool
	id      uint64
}

func (s *stubSummaries) GetVoteSummary(_ context.Context, id uint64, force bool) (*rollup.Summary, error) {
	s.id = id
	s.force = force
	return s.summary, s.err
}

type testEnv struct {
	router    http.Handler
	summaries *stubSummaries
	activity  *activity.Service
	notify    *notify.Service
	ctrl      *Controller
}

func setupTestController(t *testing.T) *testEnv {
	t.Helper()
	logger := zap.NewNop()
	env := &testEnv{
		summaries: &stubSummaries{},
		activity:  activity.NewService(activity.NewMemoryStore(), logger),
		notify:    notify.NewService(notify.NewMemoryStore(), logger),
	}
	env.ctrl = &Controller{
		Summaries:     env.summaries,
		Activity:      env.activity,
		Notifications: env.notify,
		Checks:        map[string]HealthCheck{},
		Logger:        logger,
	}
	env.router = env.ctrl.NewRouter()
	return env
}

func (e *testEnv) do(t *testing.T, method, target string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, nil)
	rec := httptest.NewRecorder()
	e.router.ServeHTTP(rec, req)
	return rec
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out), rec.Body.String())
	return out
}

func TestHandleHealth(t *testing.T) {
	env := setupTestController(t)

	rec := env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "application/json", rec.Header().Get("Content-Type"))
	assert.Equal(t, "ok", decode[map[string]string](t, rec)["status"])

	env.ctrl.Checks["redis"] = func(context.Context) error { return errors.New("connection refused") }
	rec = env.do(t, http.MethodGet, "/health")
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	assert.Contains(t, rec.Body.String(), "connection refused")
}

func TestHandleSummary(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	votes := []rollup.Vote{
		rollup.PublicVote("0xA", rollup.SupportFor, 30, now),
		rollup.PublicVote("0xB", rollup.SupportAgainst, 10, now),
	}
	s, err := rollup.Compute(7, votes, rollup.DefaultPolicy(), now)
	require.NoError(t, err)

	tests := []struct {
		name       string
		target     string
		summary    *rollup.Summary
		err        error
		wantStatus int
		wantForce  bool
		wantBody   string
	}{
		{name: "served", target: "/proposals/7/summary", summary: &s, wantStatus: http.StatusOK, wantBody: `"proposalId":7`},
		{name: "forced", target: "/proposals/7/summary?refresh=true", summary: &s, wantStatus: http.StatusOK, wantForce: true},
		{name: "unavailable", target: "/proposals/7/summary", wantStatus: http.StatusNotFound, wantBody: `"status":"unavailable"`},
		{name: "malformed", target: "/proposals/7/summary", err: fmt.Errorf("%w: vote 0: negative weight", rollup.ErrMalformedVote), wantStatus: http.StatusBadGateway},
		{name: "other error", target: "/proposals/7/summary", err: errors.New("boom"), wantStatus: http.StatusInternalServerError},
		{name: "bad id", target: "/proposals/abc/summary", wantStatus: http.StatusBadRequest},
		{name: "bad flag", target: "/proposals/7/summary?refresh=maybe", wantStatus: http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := setupTestController(t)
			env.summaries.summary = tt.summary
			env.summaries.err = tt.err

			rec := env.do(t, http.MethodGet, tt.target)
			assert.Equal(t, tt.wantStatus, rec.Code, rec.Body.String())
			if tt.wantStatus == http.StatusOK {
				assert.Equal(t, uint64(7), env.summaries.id)
				assert.Equal(t, tt.wantForce, env.summaries.force)
			}
			if tt.wantBody != "" {
				assert.Contains(t, rec.Body.String(), tt.wantBody)
			}
		})
	}
}

func TestHandleSummary_Body(t *testing.T) {
	now := time.Date(2026, 10, 15, 12, 0, 0, 0, time.UTC)
	s, err := rollup.Compute(1, nil, rollup.DefaultPolicy(), now)
	require.NoError(t, err)

	env := setupTestController(t)
	env.summaries.summary = &s
	rec := env.do(t, http.MethodGet, "/proposals/1/summary")
	require.Equal(t, http.StatusOK, rec.Code)

	got := decode[rollup.Summary](t, rec)
	assert.Equal(t, s.Summary, got.Summary)
	assert.Equal(t, []string{"No voting activity to analyze."}, got.Insights)
	assert.NotNil(t, got.WhaleActivity.LargestVoters)
}

func TestHandleFeedAndLeaderboard(t *testing.T) {
	env := setupTestController(t)
	ctx := context.Background()

	_, err := env.activity.Record(ctx, activity.Activity{Type: activity.VoteCast, UserAddress: voterA, ProposalID: 1})
	require.NoError(t, err)
	_, err = env.activity.Record(ctx, activity.Activity{Type: activity.ProposalCreated, UserAddress: voterA, ProposalID: 2})
	require.NoError(t, err)
	_, err = env.activity.Record(ctx, activity.Activity{Type: activity.CommentAdded, UserAddress: "0x1111111111111111111111111111111111111111"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/activity?limit=10&address="+strings.ToLower(voterA)+"&type=vote_cast,proposal_created")
	require.Equal(t, http.StatusOK, rec.Code)
	feed := decode[struct {
		Activities []activity.Activity `json:"activities"`
	}](t, rec)
	assert.Len(t, feed.Activities, 2)

	rec = env.do(t, http.MethodGet, "/activity?type=comment_added")
	feed = decode[struct {
		Activities []activity.Activity `json:"activities"`
	}](t, rec)
	require.Len(t, feed.Activities, 1)
	assert.Equal(t, 5, feed.Activities[0].Points)

	rec = env.do(t, http.MethodGet, "/leaderboard?limit=1")
	require.Equal(t, http.StatusOK, rec.Code)
	board := decode[struct {
		Leaderboard []activity.Ranked `json:"leaderboard"`
	}](t, rec)
	require.Len(t, board.Leaderboard, 1)
	assert.Equal(t, 1, board.Leaderboard[0].Rank)
	assert.Equal(t, 120, board.Leaderboard[0].Points)
	assert.Equal(t, 2, board.Leaderboard[0].Level)

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/activity?limit=-3").Code)
	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/leaderboard?limit=ten").Code)
}

func TestHandleUserStats(t *testing.T) {
	env := setupTestController(t)
	_, err := env.activity.Record(context.Background(), activity.Activity{Type: activity.VoteCast, UserAddress: voterA})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/users/"+strings.ToUpper(voterA[2:])+"/stats")
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = env.do(t, http.MethodGet, "/users/"+strings.ToLower(voterA)+"/stats")
	require.Equal(t, http.StatusOK, rec.Code)
	st := decode[activity.UserStats](t, rec)
	assert.Equal(t, 1, st.TotalVotes)
	assert.Equal(t, 20, st.Points)
}

func TestNotificationRoutes(t *testing.T) {
	env := setupTestController(t)
	ctx := context.Background()

	first, err := env.notify.Create(ctx, notify.Notification{UserID: "u1", Kind: notify.KindVote, Title: "Vote recorded"})
	require.NoError(t, err)
	_, err = env.notify.Create(ctx, notify.Notification{UserID: "u1", Kind: notify.KindProposal, Title: "New proposal"})
	require.NoError(t, err)

	rec := env.do(t, http.MethodGet, "/users/u1/notifications")
	require.Equal(t, http.StatusOK, rec.Code)
	list := decode[struct {
		Notifications []notify.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}](t, rec)
	assert.Len(t, list.Notifications, 2)
	assert.Equal(t, 2, list.Unread)

	rec = env.do(t, http.MethodPost, "/notifications/"+first+"/read")
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Equal(t, http.StatusNotFound, env.do(t, http.MethodPost, "/notifications/missing/read").Code)

	rec = env.do(t, http.MethodGet, "/users/u1/notifications?unread=true&type=proposal")
	list = decode[struct {
		Notifications []notify.Notification `json:"notifications"`
		Unread        int                   `json:"unread"`
	}](t, rec)
	require.Len(t, list.Notifications, 1)
	assert.Equal(t, "New proposal", list.Notifications[0].Title)
	assert.Equal(t, 1, list.Unread)

	rec = env.do(t, http.MethodPost, "/users/u1/notifications/read")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 1, decode[map[string]int](t, rec)["updated"])

	assert.Equal(t, http.StatusBadRequest, env.do(t, http.MethodGet, "/users/u1/notifications?unread=perhaps").Code)
}

func TestMetricsRoute(t *testing.T) {
	env := setupTestController(t)
	env.do(t, http.MethodGet, "/health")

	rec := env.do(t, http.MethodGet, "/metrics")
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "govdash_http_requests_total")
}

func TestMethodNotAllowed(t *testing.T) {
	env := setupTestController(t)
	assert.Equal(t, http.StatusMethodNotAllowed, env.do(t, http.MethodPost, "/leaderboard").Code)
}

func TestSplitList(t *testing.T) {
	assert.Equal(t, []string{"a", "b", "c"}, splitList([]string{"a, b", "", "c"}))
	assert.Nil(t, splitList(nil))
}
