package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strconv"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"
	"github.com/sirupsen/logrus/hooks/test"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"scorekeeper/internal/domain"
	"scorekeeper/internal/notify"
	"scorekeeper/internal/repository"
	"scorekeeper/internal/service"
	"scorekeeper/internal/storage"
	"scorekeeper/internal/utils"
)

var kickoff = time.Date(2025, 6, 1, 18, 0, 0, 0, time.UTC)

type fakePresigner struct{}

func (fakePresigner) PresignTeamImage(_ context.Context, contentType string) (*storage.Upload, error) {
	switch contentType {
	case "image/png":
		return &storage.Upload{UploadURL: "https://s3.test/put", ImageURL: "https://cdn.test/teams/x.png"}, nil
	case "boom":
		return nil, errors.New("s3 unreachable")
	}
	return nil, domain.NewValidationError("content_type", "unsupported image type")
}

type harness struct {
	t      *testing.T
	router *gin.Engine
	store  *repository.MemoryStore
	now    time.Time
	hook   *test.Hook
}

func newHarness(t *testing.T, images ImagePresigner) *harness {
	t.Helper()
	gin.SetMode(gin.TestMode)
	log, hook := test.NewNullLogger()
	h := &harness{t: t, store: repository.NewMemoryStore(), now: kickoff.Add(-24 * time.Hour), hook: hook}
	opts := service.Options{
		LockBuffer:   30 * time.Minute,
		StoreTimeout: time.Second,
		Now:          func() time.Time { return h.now },
	}
	locker := utils.NewKeyedMutex()
	svc := Services{
		Auth: service.NewAuthService(h.store, notify.LogSender{Log: log}, service.AuthOptions{
			JWTSecret:     "api-secret",
			JWTTTL:        time.Hour,
			ResetTokenTTL: 15 * time.Minute,
			BaseURL:       "http://localhost",
			BcryptCost:    bcrypt.MinCost,
		}, opts, log),
		Teams:       service.NewTeamService(h.store, nil, opts, log),
		Matches:     service.NewMatchService(h.store, locker, service.NewReconciler(log), opts, log),
		Predictions: service.NewPredictionService(h.store, locker, opts, log),
		Leaderboard: service.NewLeaderboardService(h.store, opts, log),
		Images:      images,
	}
	h.router = NewRouter(svc, log)
	return h
}

func (h *harness) do(method, path, token string, body any) *httptest.ResponseRecorder {
	h.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(h.t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	h.router.ServeHTTP(w, req)
	return w
}

func decode[T any](t *testing.T, w *httptest.ResponseRecorder) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}

// signup registers and logs in, optionally promoting to admin first
func (h *harness) signup(name string, admin bool) (uint, string) {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": name, "email": name + "@example.com", "password": "secret1"})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	user := decode[struct{ User domain.User }](h.t, w).User
	if admin {
		require.NoError(h.t, h.store.Users().SetRole(context.Background(), user.ID, domain.RoleAdmin))
	}
	w = h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": name + "@example.com", "password": "secret1"})
	require.Equal(h.t, http.StatusOK, w.Code, w.Body.String())
	return user.ID, decode[service.LoginResult](h.t, w).Token
}

func (h *harness) createTeam(token, name string) domain.Team {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/teams", token, gin.H{"name": name, "image_url": "https://img.test/" + name})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct{ Team domain.Team }](h.t, w).Team
}

func (h *harness) createMatch(token string, a, b domain.Team) domain.Match {
	h.t.Helper()
	w := h.do(http.MethodPost, "/api/matches", token, gin.H{"team_one_id": a.ID, "team_two_id": b.ID, "starts_at": kickoff})
	require.Equal(h.t, http.StatusCreated, w.Code, w.Body.String())
	return decode[struct{ Match domain.Match }](h.t, w).Match
}

func TestLeagueFlow(t *testing.T) {
	h := newHarness(t, nil)
	_, root := h.signup("root", true)
	aliceID, alice := h.signup("alice", false)
	_, bob := h.signup("bob", false)

	a, b := h.createTeam(root, "Alpha"), h.createTeam(root, "Bravo")
	m := h.createMatch(root, a, b)

	w := h.do(http.MethodPost, "/api/predictions", alice, gin.H{"match_id": m.ID, "team_id": b.ID})
	assert.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/api/predictions", alice, gin.H{"match_id": m.ID, "team_id": a.ID})
	assert.Equal(t, http.StatusOK, w.Code, w.Body.String())
	w = h.do(http.MethodPost, "/api/predictions", bob, gin.H{"match_id": m.ID, "team_id": b.ID})
	assert.Equal(t, http.StatusCreated, w.Code)

	w = h.do(http.MethodGet, "/api/matches", alice, nil)
	require.Equal(t, http.StatusOK, w.Code)
	views := decode[struct{ Matches []service.MatchView }](t, w).Matches
	require.Len(t, views, 1)
	assert.True(t, views[0].CanPredict)
	require.NotNil(t, views[0].UserPrediction)
	assert.Equal(t, a.ID, *views[0].UserPrediction)

	w = h.do(http.MethodGet, "/api/predictions/"+itoa(m.ID), "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	groups := decode[[]service.PredictionGroup](t, w)
	assert.Equal(t, []string{"alice"}, groups[0].Usernames)
	assert.Equal(t, []string{"bob"}, groups[1].Usernames)

	h.now = kickoff.Add(-10 * time.Minute)
	w = h.do(http.MethodPost, "/api/predictions", bob, gin.H{"match_id": m.ID, "team_id": a.ID})
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.JSONEq(t, `{"error":"prediction closed for this match"}`, w.Body.String())

	w = h.do(http.MethodPut, "/api/matches/declare/"+itoa(m.ID), alice, gin.H{"team_id": a.ID})
	assert.Equal(t, http.StatusForbidden, w.Code)
	w = h.do(http.MethodPut, "/api/matches/declare/"+itoa(m.ID), root, gin.H{"team_id": a.ID})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	res := decode[struct{ Reconciliation service.ReconcileResult }](t, w).Reconciliation
	assert.Equal(t, service.ReconcileResult{Scored: 2}, res)

	w = h.do(http.MethodGet, "/api/scoreboard", "", nil)
	require.Equal(t, http.StatusOK, w.Code)
	board := decode[[]domain.LeaderboardEntry](t, w)
	require.Len(t, board, 2)
	assert.Equal(t, domain.LeaderboardEntry{Rank: 1, UserID: aliceID, Username: "alice", TotalScore: 2}, board[0])
	assert.Equal(t, -1, board[1].TotalScore)

	w = h.do(http.MethodDelete, "/api/teams/"+itoa(a.ID), root, nil)
	assert.Equal(t, http.StatusConflict, w.Code)
	w = h.do(http.MethodDelete, "/api/matches/"+itoa(m.ID), root, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodDelete, "/api/teams/"+itoa(a.ID), root, nil)
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestRegister_Errors(t *testing.T) {
	h := newHarness(t, nil)
	h.signup("alice", false)

	w := h.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "x", "email": "ALICE@example.com", "password": "secret1"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = h.do(http.MethodPost, "/api/auth/register", "", gin.H{"username": "x", "email": "not-an-email", "password": "1"})
	require.Equal(t, http.StatusBadRequest, w.Code)
	body := decode[struct{ Fields map[string]string }](t, w)
	assert.Equal(t, "must be a valid email address", body.Fields["email"])
	assert.Equal(t, "must be at least 6 characters", body.Fields["password"])

	req := httptest.NewRequest(http.MethodPost, "/api/auth/register", bytes.NewBufferString("{"))
	rec := httptest.NewRecorder()
	h.router.ServeHTTP(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestAuthRoutes(t *testing.T) {
	h := newHarness(t, nil)
	id, token := h.signup("alice", false)

	w := h.do(http.MethodPost, "/api/auth/login", "", gin.H{"email": "alice@example.com", "password": "nope!!"})
	assert.Equal(t, http.StatusUnauthorized, w.Code)

	w = h.do(http.MethodGet, "/api/auth/verify", token, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, id, decode[struct{ User domain.Identity }](t, w).User.UserID)

	w = h.do(http.MethodPost, "/api/auth/forgot-password", "", gin.H{"email": "ghost@example.com"})
	assert.Equal(t, http.StatusOK, w.Code)

	w = h.do(http.MethodPost, "/api/auth/reset-password", "", gin.H{"token": "bogus", "new_password": "another1"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, w.Body.String(), "invalid or expired reset token")

	w = h.do(http.MethodPost, "/api/auth/logout-all", token, nil)
	assert.Equal(t, http.StatusOK, w.Code)
	w = h.do(http.MethodGet, "/api/auth/verify", token, nil)
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.Contains(t, w.Body.String(), "Session expired")
}

func TestAdminRoutes_RequireAdmin(t *testing.T) {
	h := newHarness(t, nil)
	_, root := h.signup("root", true)
	_, alice := h.signup("alice", false)

	assert.Equal(t, http.StatusUnauthorized, h.do(http.MethodGet, "/api/admin/users", "", nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodGet, "/api/admin/users", alice, nil).Code)
	assert.Equal(t, http.StatusForbidden, h.do(http.MethodPost, "/api/teams", alice, gin.H{"name": "X", "image_url": "x"}).Code)

	w := h.do(http.MethodGet, "/api/admin/users?page=1&page_size=1", root, nil)
	require.Equal(t, http.StatusOK, w.Code)
	page := decode[struct {
		Users      []domain.User
		Total      int64
		TotalPages int `json:"total_pages"`
	}](t, w)
	assert.Len(t, page.Users, 1)
	assert.Equal(t, int64(2), page.Total)
	assert.Equal(t, 2, page.TotalPages)
	assert.NotContains(t, w.Body.String(), "password")
}

func TestMatchRoutes_Errors(t *testing.T) {
	h := newHarness(t, nil)
	_, root := h.signup("root", true)
	a := h.createTeam(root, "Alpha")

	w := h.do(http.MethodPost, "/api/matches", root, gin.H{"team_one_id": a.ID, "team_two_id": a.ID, "starts_at": kickoff})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPut, "/api/matches/declare/abc", root, gin.H{"team_id": a.ID})
	assert.Equal(t, http.StatusBadRequest, w.Code)
	w = h.do(http.MethodPut, "/api/matches/declare/77", root, gin.H{"team_id": a.ID})
	assert.Equal(t, http.StatusNotFound, w.Code)
	w = h.do(http.MethodGet, "/api/predictions/77", "", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestTeamImageUpload(t *testing.T) {
	h := newHarness(t, nil)
	_, root := h.signup("root", true)
	w := h.do(http.MethodPost, "/api/teams/image-upload", root, gin.H{"content_type": "image/png"})
	assert.Equal(t, http.StatusServiceUnavailable, w.Code)

	h = newHarness(t, fakePresigner{})
	_, root = h.signup("root", true)
	w = h.do(http.MethodPost, "/api/teams/image-upload", root, gin.H{"content_type": "image/png"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "https://cdn.test/teams/x.png", decode[storage.Upload](t, w).ImageURL)

	w = h.do(http.MethodPost, "/api/teams/image-upload", root, gin.H{"content_type": "text/plain"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = h.do(http.MethodPost, "/api/teams/image-upload", root, gin.H{"content_type": "boom"})
	assert.Equal(t, http.StatusInternalServerError, w.Code)
	assert.JSONEq(t, `{"error":"Internal server error"}`, w.Body.String())
	var logged bool
	for _, e := range h.hook.AllEntries() {
		if e.Level == logrus.ErrorLevel && e.Data["error"] == "s3 unreachable" {
			logged = true
		}
	}
	assert.True(t, logged)
}

func itoa(id uint) string { return strconv.FormatUint(uint64(id), 10) }
