package api

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/middleware"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/repository"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/service"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/internal/storage"
	"github.com/Codewithsubhasree/PRAGATIPATH1234/pkg/auth"

	"github.com/gin-gonic/gin"
	"github.com/goccy/go-json"
	"github.com/spf13/afero"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"
)

const (
	adminUsername = "admin"
	adminSecret   = "admin-secret"
)

type testServer struct {
	t      *testing.T
	router *gin.Engine
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	repo := repository.NewMemoryRepository()
	files, err := storage.NewFileStore(afero.NewMemMapFs(), "proofs")
	require.NoError(t, err)

	users := service.NewUserService(repo, repo, auth.NewBcryptHasher(bcrypt.MinCost))
	tasks := service.NewTaskService(repo, repo, repo, service.TaskConfig{})
	proofs := service.NewProofService(repo, repo, tasks, repo, files, nil)
	withdrawals := service.NewWithdrawalService(repo, repo, repo, nil, service.WithdrawalConfig{})

	_, err = users.Bootstrap(context.Background(), service.AdminSeed{
		Username: adminUsername,
		Name:     "Root Admin",
		Secret:   adminSecret,
	})
	require.NoError(t, err)

	router := gin.New()
	Register(router.Group("/api/v1"), Deps{
		Users:       users,
		Tasks:       tasks,
		Proofs:      proofs,
		Withdrawals: withdrawals,
		Sessions:    auth.NewSessionAuth("test-secret", time.Hour),
		Authz:       middleware.NewAuthorization(users),
		Limiter:     middleware.NewRateLimiter(middleware.RedisConfig{}),
		LoginLimit:  5,
		LoginWindow: time.Minute,
	})

	return &testServer{t: t, router: router}
}

func (s *testServer) do(method, path, token string, body any) *httptest.ResponseRecorder {
	s.t.Helper()

	var reader *bytes.Reader
	if body != nil {
		raw, err := json.Marshal(body)
		require.NoError(s.t, err)
		reader = bytes.NewReader(raw)
	} else {
		reader = bytes.NewReader(nil)
	}

	req := httptest.NewRequest(method, "/api/v1"+path, reader)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) upload(token, title, filename string, data []byte) *httptest.ResponseRecorder {
	s.t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	require.NoError(s.t, mw.WriteField("task_title", title))
	part, err := mw.CreateFormFile("file", filename)
	require.NoError(s.t, err)
	_, err = part.Write(data)
	require.NoError(s.t, err)
	require.NoError(s.t, mw.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/proofs", &buf)
	req.Header.Set("Content-Type", mw.FormDataContentType())
	req.Header.Set("Authorization", "Bearer "+token)

	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) login(username, secret string) string {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/login", "", LoginRequest{Username: username, Secret: secret})
	require.Equal(s.t, http.StatusOK, w.Code, w.Body.String())

	var resp LoginResponse
	decode(s.t, w, &resp)
	return resp.Token
}

func (s *testServer) register(token string, req RegisterRequest) RegisterResponse {
	s.t.Helper()
	w := s.do(http.MethodPost, "/auth/register", token, req)
	require.Equal(s.t, http.StatusCreated, w.Code, w.Body.String())

	var resp RegisterResponse
	decode(s.t, w, &resp)
	return resp
}

func decode(t *testing.T, w *httptest.ResponseRecorder, v any) {
	t.Helper()
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), v))
}

func TestAPI_ReferralScenario(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(adminUsername, adminSecret)

	coadmin := s.register("", RegisterRequest{Name: "Co", Username: "coadmin", Secret: "pw", ReferralID: "PRG1001"})
	assert.Equal(t, "PRG1002", coadmin.RefID)
	assert.Equal(t, "coadmin", string(coadmin.Role))

	member := s.register("", RegisterRequest{Name: "Mem", Username: "m1", Secret: "pw", ReferralID: coadmin.RefID})
	assert.Equal(t, "PRG1003", member.RefID)
	assert.Equal(t, "member", string(member.Role))

	coToken := s.login("coadmin", "pw")
	memberToken := s.login("m1", "pw")

	var wallet walletResponse
	w := s.do(http.MethodGet, "/users/me/wallet", coToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &wallet)
	assert.Equal(t, int64(20), wallet.AffiliateIncome)

	w = s.do(http.MethodPost, "/tasks", coToken, CreateTaskRequest{Title: "Follow", Payout: 100})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	w = s.upload(memberToken, "Follow", "shot.PNG", []byte("proof-bytes"))
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var submitted struct {
		Key string `json:"key"`
	}
	decode(t, w, &submitted)
	require.NotEmpty(t, submitted.Key)

	w = s.upload(memberToken, "Follow", "again.png", []byte("proof-bytes"))
	assert.Equal(t, http.StatusConflict, w.Code)

	var tasks []taskResponse
	w = s.do(http.MethodGet, "/tasks", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &tasks)
	require.Len(t, tasks, 1)
	require.NotNil(t, tasks[0].SubmissionStatus)
	assert.Equal(t, "Pending", string(*tasks[0].SubmissionStatus))

	var pending []proofResponse
	w = s.do(http.MethodGet, "/proofs/pending", coToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &pending)
	require.Len(t, pending, 1)
	assert.Equal(t, submitted.Key, pending[0].Key)

	w = s.do(http.MethodPost, "/proofs/"+submitted.Key+"/decision", coToken, DecisionRequest{Decision: "approve"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/proofs/"+submitted.Key+"/decision", coToken, DecisionRequest{Decision: "deny"})
	assert.Equal(t, http.StatusConflict, w.Code)

	w = s.do(http.MethodGet, "/users/me/wallet", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &wallet)
	assert.Equal(t, int64(100), wallet.TaskIncome)
	assert.Equal(t, int64(100), wallet.Total)

	w = s.do(http.MethodGet, "/proofs/"+submitted.Key+"/file", memberToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "proof-bytes", w.Body.String())

	w = s.do(http.MethodPost, "/proofs/"+submitted.Key+"/confirm", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	w = s.do(http.MethodPost, "/withdrawals", memberToken, WithdrawalRequest{Destination: "upi:m1@bank"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())
	var withdrawal withdrawalResponse
	decode(t, w, &withdrawal)
	assert.Equal(t, int64(100), withdrawal.Amount)
	assert.Equal(t, "Pending", string(withdrawal.Status))

	w = s.do(http.MethodPost, "/withdrawals", memberToken, WithdrawalRequest{Destination: "upi:m1@bank"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(http.MethodPost, "/withdrawals/"+withdrawal.RequestID+"/settle", adminToken, SettleRequest{Outcome: "paid"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var processed []withdrawalResponse
	w = s.do(http.MethodGet, "/withdrawals/processed", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &processed)
	require.Len(t, processed, 1)
	assert.Equal(t, "Paid", string(processed[0].Status))

	var team struct {
		TeamSize int `json:"team_size"`
	}
	w = s.do(http.MethodGet, "/referrals/PRG1001/team", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &team)
	assert.Equal(t, 2, team.TeamSize)
}

func TestAPI_AddMember(t *testing.T) {
	s := newTestServer(t)
	s.register("", RegisterRequest{Name: "Co", Username: "coadmin", Secret: "pw", ReferralID: "PRG1001"})
	coToken := s.login("coadmin", "pw")

	w := s.do(http.MethodPost, "/users/me/members", coToken, AddMemberRequest{Name: "New", Username: "fresh"})
	require.Equal(t, http.StatusCreated, w.Code, w.Body.String())

	var added struct {
		Username string `json:"username"`
		Role     string `json:"role"`
		Secret   string `json:"secret"`
	}
	decode(t, w, &added)
	assert.Equal(t, "member", added.Role)
	assert.Len(t, added.Secret, 6)

	s.login("fresh", added.Secret)

	var members []userResponse
	w = s.do(http.MethodGet, "/users/me/members", coToken, nil)
	require.Equal(t, http.StatusOK, w.Code)
	decode(t, w, &members)
	require.Len(t, members, 1)
	assert.Equal(t, "fresh", members[0].Username)
}

func TestAPI_ExplicitRole(t *testing.T) {
	s := newTestServer(t)
	adminToken := s.login(adminUsername, adminSecret)

	resp := s.register(adminToken, RegisterRequest{Name: "M", Username: "direct", Secret: "pw", ReferralID: "PRG1001", Role: "member"})
	assert.Equal(t, "member", string(resp.Role))

	w := s.do(http.MethodPost, "/auth/register", "", RegisterRequest{Name: "X", Username: "x", Secret: "pw", ReferralID: "PRG1001", Role: "member"})
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestAPI_ErrorStatuses(t *testing.T) {
	s := newTestServer(t)
	s.register("", RegisterRequest{Name: "Co", Username: "coadmin", Secret: "pw", ReferralID: "PRG1001"})
	s.register("", RegisterRequest{Name: "Mem", Username: "m1", Secret: "pw", ReferralID: "PRG1002"})
	memberToken := s.login("m1", "pw")
	coToken := s.login("coadmin", "pw")

	tests := []struct {
		name   string
		method string
		path   string
		token  string
		body   any
		want   int
	}{
		{name: "missing session", method: http.MethodGet, path: "/users/me", want: http.StatusUnauthorized},
		{name: "garbage token", method: http.MethodGet, path: "/users/me", token: "nope", want: http.StatusUnauthorized},
		{name: "bad credentials", method: http.MethodPost, path: "/auth/login", body: LoginRequest{Username: "m1", Secret: "wrong"}, want: http.StatusUnauthorized},
		{name: "unknown login", method: http.MethodPost, path: "/auth/login", body: LoginRequest{Username: "ghost", Secret: "pw"}, want: http.StatusUnauthorized},
		{name: "register under root", method: http.MethodPost, path: "/auth/register", body: RegisterRequest{Name: "R", Username: "r", Secret: "pw", ReferralID: "ROOT"}, want: http.StatusBadRequest},
		{name: "unknown referral", method: http.MethodPost, path: "/auth/register", body: RegisterRequest{Name: "R", Username: "r", Secret: "pw", ReferralID: "PRG9999"}, want: http.StatusBadRequest},
		{name: "duplicate username", method: http.MethodPost, path: "/auth/register", body: RegisterRequest{Name: "R", Username: "m1", Secret: "pw", ReferralID: "PRG1001"}, want: http.StatusConflict},
		{name: "missing fields", method: http.MethodPost, path: "/auth/register", body: map[string]string{"username": "r"}, want: http.StatusBadRequest},
		{name: "member creates task", method: http.MethodPost, path: "/tasks", token: memberToken, body: CreateTaskRequest{Title: "T", Payout: 50}, want: http.StatusForbidden},
		{name: "payout out of range", method: http.MethodPost, path: "/tasks", token: coToken, body: CreateTaskRequest{Title: "T", Payout: 5001}, want: http.StatusBadRequest},
		{name: "member lists coadmins", method: http.MethodGet, path: "/users/coadmins", token: memberToken, want: http.StatusForbidden},
		{name: "member settles", method: http.MethodPost, path: "/withdrawals/WDR1-x/settle", token: memberToken, body: SettleRequest{Outcome: "paid"}, want: http.StatusForbidden},
		{name: "unknown proof file", method: http.MethodGet, path: "/proofs/missing/file", token: memberToken, want: http.StatusNotFound},
		{name: "unknown proof decision", method: http.MethodPost, path: "/proofs/missing/decision", token: coToken, body: DecisionRequest{Decision: "approve"}, want: http.StatusNotFound},
		{name: "invalid depth", method: http.MethodGet, path: "/referrals/PRG1002/team?depth=abc", token: coToken, want: http.StatusBadRequest},
		{name: "own team", method: http.MethodGet, path: "/referrals/PRG1002/team", token: coToken, want: http.StatusOK},
		{name: "team of another user", method: http.MethodGet, path: "/referrals/PRG1001/team", token: memberToken, want: http.StatusForbidden},
		{name: "team of upline", method: http.MethodGet, path: "/referrals/PRG1002/team", token: memberToken, want: http.StatusForbidden},
		{name: "nearest coadmin", method: http.MethodGet, path: "/users/m1/coadmin", token: memberToken, want: http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := s.do(tt.method, tt.path, tt.token, tt.body)
			assert.Equal(t, tt.want, w.Code, w.Body.String())
		})
	}
}

func TestAPI_Tree(t *testing.T) {
	s := newTestServer(t)
	s.register("", RegisterRequest{Name: "Co", Username: "coadmin", Secret: "pw", ReferralID: "PRG1001"})
	adminToken := s.login(adminUsername, adminSecret)

	w := s.do(http.MethodGet, "/referrals/tree", adminToken, nil)
	require.Equal(t, http.StatusOK, w.Code)

	var tree struct {
		RefID    string `json:"ref_id"`
		Children []struct {
			Username string `json:"username"`
		} `json:"children"`
	}
	decode(t, w, &tree)
	assert.Equal(t, "PRG1001", tree.RefID)
	require.Len(t, tree.Children, 1)
	assert.Equal(t, "coadmin", tree.Children[0].Username)
}
