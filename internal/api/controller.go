// Package api exposes vote summaries, the activity feed, the leaderboard and
// notifications over HTTP.
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"governance-analytics/internal/activity"
	"governance-analytics/internal/metrics"
	"governance-analytics/internal/notify"
	"governance-analytics/internal/rollup"

	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

const maxQueryLimit = 200

type SummaryService interface {
	GetVoteSummary(ctx context.Context, proposalID uint64, forceRefresh bool) (*rollup.Summary, error)
}

type ActivityService interface {
	Feed(ctx context.Context, q activity.FeedQuery) ([]activity.Activity, error)
	Leaderboard(ctx context.Context, limit int) ([]activity.Ranked, error)
	UserStats(ctx context.Context, addr string) (*activity.UserStats, error)
}

type NotificationService interface {
	List(ctx context.Context, userID string, opts notify.ListOptions) ([]notify.Notification, error)
	MarkRead(ctx context.Context, id string) error
	MarkAllRead(ctx context.Context, userID string) (int, error)
	CountUnread(ctx context.Context, userID string) (int, error)
}

// HealthCheck reports whether a backing service is reachable.
type HealthCheck func(ctx context.Context) error

type Controller struct {
	Summaries     SummaryService
	Activity      ActivityService
	Notifications NotificationService
	Checks        map[string]HealthCheck
	Logger        *zap.Logger
}

// NewRouter returns a router with every route of the dashboard API.
func (c *Controller) NewRouter() *mux.Router {
	r := mux.NewRouter()
	r.Use(c.instrument)

	r.HandleFunc("/health", c.HandleHealth).Methods("GET")
	r.Handle("/metrics", metrics.Handler()).Methods("GET")

	r.HandleFunc("/proposals/{id}/summary", c.HandleSummary).Methods("GET")

	r.HandleFunc("/activity", c.HandleFeed).Methods("GET")
	r.HandleFunc("/leaderboard", c.HandleLeaderboard).Methods("GET")
	r.HandleFunc("/users/{address}/stats", c.HandleUserStats).Methods("GET")

	r.HandleFunc("/users/{id}/notifications", c.HandleNotifications).Methods("GET")
	r.HandleFunc("/users/{id}/notifications/read", c.HandleMarkAllRead).Methods("POST")
	r.HandleFunc("/notifications/{id}/read", c.HandleMarkRead).Methods("POST")

	return r
}

// HandleHealth runs every registered check with a short deadline.
func (c *Controller) HandleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	failing := map[string]string{}
	for name, check := range c.Checks {
		if err := check(ctx); err != nil {
			failing[name] = err.Error()
		}
	}
	if len(failing) > 0 {
		c.writeJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "degraded", "failing": failing})
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// HandleSummary serves GET /proposals/{id}/summary. refresh=true bypasses
// the cache.
func (c *Controller) HandleSummary(w http.ResponseWriter, r *http.Request) {
	id, err := strconv.ParseUint(mux.Vars(r)["id"], 10, 64)
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid proposal id")
		return
	}
	force, err := parseBool(r.URL.Query().Get("refresh"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid refresh flag")
		return
	}

	s, err := c.Summaries.GetVoteSummary(r.Context(), id, force)
	switch {
	case errors.Is(err, rollup.ErrMalformedVote):
		c.writeError(w, http.StatusBadGateway, err.Error())
	case err != nil:
		c.Logger.Error("summary lookup failed", zap.Uint64("proposal_id", id), zap.Error(err))
		c.writeError(w, http.StatusInternalServerError, "internal error")
	case s == nil:
		c.writeJSON(w, http.StatusNotFound, map[string]string{"status": "unavailable"})
	default:
		c.writeJSON(w, http.StatusOK, s)
	}
}

func (c *Controller) HandleFeed(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	var types []activity.Type
	for _, t := range splitList(q["type"]) {
		types = append(types, activity.Type(t))
	}

	items, err := c.Activity.Feed(r.Context(), activity.FeedQuery{
		Limit:       limit,
		UserAddress: q.Get("address"),
		Types:       types,
	})
	if err != nil {
		c.internalError(w, "activity feed", err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"activities": items})
}

func (c *Controller) HandleLeaderboard(w http.ResponseWriter, r *http.Request) {
	limit, err := parseLimit(r.URL.Query().Get("limit"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	rows, err := c.Activity.Leaderboard(r.Context(), limit)
	if err != nil {
		c.internalError(w, "leaderboard", err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"leaderboard": rows})
}

func (c *Controller) HandleUserStats(w http.ResponseWriter, r *http.Request) {
	st, err := c.Activity.UserStats(r.Context(), mux.Vars(r)["address"])
	if errors.Is(err, activity.ErrNotFound) {
		c.writeError(w, http.StatusNotFound, "no activity for address")
		return
	}
	if err != nil {
		c.internalError(w, "user stats", err)
		return
	}
	c.writeJSON(w, http.StatusOK, st)
}

func (c *Controller) HandleNotifications(w http.ResponseWriter, r *http.Request) {
	userID := mux.Vars(r)["id"]
	q := r.URL.Query()

	limit, err := parseLimit(q.Get("limit"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	unread, err := parseBool(q.Get("unread"))
	if err != nil {
		c.writeError(w, http.StatusBadRequest, "invalid unread flag")
		return
	}
	var kinds []notify.Kind
	for _, k := range splitList(q["type"]) {
		kinds = append(kinds, notify.Kind(k))
	}

	items, err := c.Notifications.List(r.Context(), userID, notify.ListOptions{Limit: limit, Kinds: kinds, UnreadOnly: unread})
	if err != nil {
		c.internalError(w, "list notifications", err)
		return
	}
	count, err := c.Notifications.CountUnread(r.Context(), userID)
	if err != nil {
		c.internalError(w, "count notifications", err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]any{"notifications": items, "unread": count})
}

func (c *Controller) HandleMarkRead(w http.ResponseWriter, r *http.Request) {
	err := c.Notifications.MarkRead(r.Context(), mux.Vars(r)["id"])
	if errors.Is(err, notify.ErrNotFound) {
		c.writeError(w, http.StatusNotFound, err.Error())
		return
	}
	if err != nil {
		c.internalError(w, "mark notification read", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (c *Controller) HandleMarkAllRead(w http.ResponseWriter, r *http.Request) {
	n, err := c.Notifications.MarkAllRead(r.Context(), mux.Vars(r)["id"])
	if err != nil {
		c.internalError(w, "mark notifications read", err)
		return
	}
	c.writeJSON(w, http.StatusOK, map[string]int{"updated": n})
}

func (c *Controller) writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

func (c *Controller) writeError(w http.ResponseWriter, statusCode int, message string) {
	c.writeJSON(w, statusCode, map[string]string{"error": message})
}

func (c *Controller) internalError(w http.ResponseWriter, op string, err error) {
	c.Logger.Error(op+" failed", zap.Error(err))
	c.writeError(w, http.StatusInternalServerError, "internal error")
}

// parseLimit returns 0 for an empty value so services apply their default.
func parseLimit(s string) (int, error) {
	if s == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(s)
	if err != nil || n <= 0 {
		return 0, errors.New("limit must be a positive integer")
	}
	if n > maxQueryLimit {
		n = maxQueryLimit
	}
	return n, nil
}

func parseBool(s string) (bool, error) {
	if s == "" {
		return false, nil
	}
	return strconv.ParseBool(s)
}

// splitList accepts repeated and comma-separated values.
func splitList(values []string) []string {
	var out []string
	for _, v := range values {
		for _, part := range strings.Split(v, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
