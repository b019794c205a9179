package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stemsi/exstem-practice/internal/apperror"
	"github.com/stemsi/exstem-practice/internal/config"
	"github.com/stemsi/exstem-practice/internal/middleware"
	"github.com/stemsi/exstem-practice/internal/model"
	"github.com/stemsi/exstem-practice/internal/practice"
	"github.com/stemsi/exstem-practice/internal/service"
	"github.com/stemsi/exstem-practice/internal/validator"
	ws "github.com/stemsi/exstem-practice/internal/websocket"
)

func init() {
	gin.SetMode(gin.TestMode)
	validator.Setup()
}

// memorySessions is a single-owner in-memory PracticeSessions.
type memorySessions struct {
	mu      sync.Mutex
	owner   string
	session *model.Session
}

func newMemorySessions() *memorySessions {
	return &memorySessions{
		owner: "learner-1",
		session: &model.Session{
			ID:       "s-1",
			ExamSlug: "a-level-math",
			UserID:   "learner-1",
			Status:   model.SessionStatusInProgress,
			Questions: []model.QuestionAttempt{
				{QuestionID: "q1", OrderIndex: 0, SelectedAnswers: []int{}, Question: model.Question{
					ID: "q1", Stem: "1+1?", Difficulty: model.DifficultyEasy,
					Choices:          []model.Choice{{ID: "q1-a", Label: "A", Text: "2"}, {ID: "q1-b", Label: "B", Text: "3"}},
					CorrectChoiceIDs: []string{"q1-a"},
				}},
				{QuestionID: "q2", OrderIndex: 1, SelectedAnswers: []int{}, Question: model.Question{
					ID: "q2", Stem: "2+2?", Difficulty: model.DifficultyHard,
					Choices:          []model.Choice{{ID: "q2-a", Label: "A", Text: "4"}, {ID: "q2-b", Label: "B", Text: "5"}},
					CorrectChoiceIDs: []string{"q2-a"},
				}},
			},
		},
	}
}

func (m *memorySessions) Start(_ context.Context, _, slug string) (*model.StartSessionResult, error) {
	if slug != "a-level-math" {
		return nil, apperror.NotFound("exam", slug)
	}
	return &model.StartSessionResult{SessionID: "s-1"}, nil
}

func (m *memorySessions) lookup(userID, id string) (*model.Session, error) {
	if id != m.session.ID || userID != m.owner {
		return nil, apperror.NotFound("session", id)
	}
	return m.session, nil
}

func (m *memorySessions) Get(_ context.Context, userID, id string) (*model.ApiResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	resp := practice.ToWireFormat(s)
	return &resp, nil
}

func (m *memorySessions) View(ctx context.Context, userID, id string) (*model.ClientSession, error) {
	resp, err := m.Get(ctx, userID, id)
	if err != nil {
		return nil, err
	}
	cs := practice.ToViewModel(*resp)
	return &cs, nil
}

func (m *memorySessions) Apply(_ context.Context, userID, id string, op model.Operation) (*model.ApiResponse, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	s, err := m.lookup(userID, id)
	if err != nil {
		return nil, err
	}
	next, err := practice.Apply(s, op)
	if err != nil {
		return nil, err
	}
	m.session = next
	resp := practice.ToWireFormat(next)
	return &resp, nil
}

type stubExplainer struct {
	err  error
	last service.ExplanationInput
}

func (s *stubExplainer) RequestExplanation(_ context.Context, in service.ExplanationInput) (*model.ExplanationResponse, error) {
	s.last = in
	if s.err != nil {
		return nil, s.err
	}
	return &model.ExplanationResponse{
		Explanation:        model.ExplanationDocument{Summary: "2 is correct", KeyPoints: []string{}, Steps: []string{}, Confidence: model.ConfidenceHigh},
		RateLimitRemaining: 4,
	}, nil
}

type testEnv struct {
	router    *gin.Engine
	auth      *service.AuthService
	sessions  *memorySessions
	explainer *stubExplainer
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	auth := service.NewAuthService(&config.Config{JWTSecret: "handler-secret"})
	sessions := newMemorySessions()
	explainer := &stubExplainer{}
	log := zerolog.Nop()

	practiceH := NewPracticeSessionHandler(sessions, log)
	explanationH := NewExplanationHandler(explainer, log)
	wsH := NewWSHandler(sessions, log, nil)

	r := gin.New()
	authed := r.Group("/api/v1/practice", middleware.RequireJWT(auth))
	authed.POST("/exams/:slug/sessions", practiceH.StartSession)
	authed.GET("/sessions/:id", practiceH.GetSession)
	authed.GET("/sessions/:id/view", practiceH.GetSessionView)
	authed.PATCH("/sessions/:id", practiceH.ApplyOperation)
	authed.POST("/explanations", explanationH.RequestExplanation)
	r.GET("/ws/v1/practice/sessions/:id/stream", middleware.RequireWSAuth(auth), wsH.SessionStream)

	return &testEnv{router: r, auth: auth, sessions: sessions, explainer: explainer}
}

func (e *testEnv) token(t *testing.T, userID string) string {
	t.Helper()
	token, err := e.auth.IssueToken(userID, time.Hour)
	require.NoError(t, err)
	return token
}

func (e *testEnv) do(t *testing.T, method, path, userID, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if userID != "" {
		req.Header.Set("Authorization", "Bearer "+e.token(t, userID))
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

type envelope struct {
	Data  json.RawMessage `json:"data"`
	Error *struct {
		Code    string            `json:"code"`
		Message string            `json:"message"`
		Fields  map[string]string `json:"fields"`
	} `json:"error"`
}

func decode(t *testing.T, w *httptest.ResponseRecorder) envelope {
	t.Helper()
	var env envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &env))
	return env
}

func TestStartAndGetSession(t *testing.T) {
	env := newTestEnv(t)

	w := env.do(t, http.MethodPost, "/api/v1/practice/exams/a-level-math/sessions", "learner-1", "")
	require.Equal(t, http.StatusCreated, w.Code)
	assert.Contains(t, w.Body.String(), `"sessionId":"s-1"`)

	w = env.do(t, http.MethodPost, "/api/v1/practice/exams/unknown/sessions", "learner-1", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "NO_QUESTIONS", decode(t, w).Error.Code)

	w = env.do(t, http.MethodGet, "/api/v1/practice/sessions/s-1", "learner-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	var resp model.ApiResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	assert.Equal(t, 2, resp.Session.TotalQuestions)
	assert.Equal(t, "E • H", resp.Exam.DifficultyMix)

	w = env.do(t, http.MethodGet, "/api/v1/practice/sessions/s-1/view", "learner-1", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"activeQuestion"`)

	w = env.do(t, http.MethodGet, "/api/v1/practice/sessions/s-1", "someone-else", "")
	assert.Equal(t, http.StatusNotFound, w.Code)
	assert.Equal(t, "SESSION_NOT_FOUND", decode(t, w).Error.Code)

	w = env.do(t, http.MethodGet, "/api/v1/practice/sessions/s-1", "", "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestApplyOperation(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/practice/sessions/s-1"

	w := env.do(t, http.MethodPatch, path, "learner-1", `{"operation":"record-answer","questionId":"q1","selectedAnswers":[0]}`)
	require.Equal(t, http.StatusOK, w.Code)
	w = env.do(t, http.MethodPatch, path, "learner-1", `{"operation":"submit-answer","questionId":"q1"}`)
	require.Equal(t, http.StatusOK, w.Code)

	var resp model.ApiResponse
	require.NoError(t, json.Unmarshal(decode(t, w).Data, &resp))
	require.NotNil(t, resp.Questions[0].IsCorrect)
	assert.True(t, *resp.Questions[0].IsCorrect)
	assert.Equal(t, []string{"q1"}, resp.Session.SubmittedQuestionIDs)
}

func TestApplyOperationRejections(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/practice/sessions/s-1"

	tests := []struct {
		name   string
		body   string
		status int
		code   string
		field  string
	}{
		{"unknown operation", `{"operation":"teleport"}`, http.StatusBadRequest, "INVALID_OPERATION", "operation"},
		{"missing discriminator", `{"questionId":"q1"}`, http.StatusBadRequest, "INVALID_OPERATION", "operation"},
		{"malformed json", `{"operation":`, http.StatusBadRequest, "VALIDATION_ERROR", "detail"},
		{"missing question id", `{"operation":"toggle-flag"}`, http.StatusBadRequest, "VALIDATION_ERROR", "questionId"},
		{"unknown question", `{"operation":"toggle-flag","questionId":"nope","flagged":true}`, http.StatusBadRequest, "VALIDATION_ERROR", "questionId"},
		{"toggle without target value", `{"operation":"toggle-flag","questionId":"q1"}`, http.StatusBadRequest, "VALIDATION_ERROR", "flagged"},
		{"index out of range", `{"operation":"advance","currentQuestionIndex":7}`, http.StatusBadRequest, "VALIDATION_ERROR", "currentQuestionIndex"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := env.do(t, http.MethodPatch, path, "learner-1", tt.body)
			assert.Equal(t, tt.status, w.Code)
			body := decode(t, w)
			require.NotNil(t, body.Error)
			assert.Equal(t, tt.code, body.Error.Code)
			assert.Contains(t, body.Error.Fields, tt.field)
		})
	}
}

func TestTimerOnCompletedSessionIsConflict(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/practice/sessions/s-1"

	w := env.do(t, http.MethodPatch, path, "learner-1", `{"operation":"complete-session"}`)
	require.Equal(t, http.StatusOK, w.Code)

	w = env.do(t, http.MethodPatch, path, "learner-1", `{"operation":"update-timer","remainingSeconds":10}`)
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, "SESSION_COMPLETED", decode(t, w).Error.Code)
}

func TestRequestExplanation(t *testing.T) {
	env := newTestEnv(t)
	path := "/api/v1/practice/explanations"

	w := env.do(t, http.MethodPost, path, "learner-1", `{"questionId":"q1","selectedChoiceIds":["q1-b"],"locale":"en-GB"}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"rateLimitRemaining":4`)
	assert.Equal(t, "learner-1", env.explainer.last.UserID)
	assert.Equal(t, "en-GB", env.explainer.last.Locale)

	w = env.do(t, http.MethodPost, path, "learner-1", `{"questionId":"q1","selectedChoiceIds":[]}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Fields, "selectedChoiceIds")

	w = env.do(t, http.MethodPost, path, "learner-1", `{"questionId":"q1","selectedChoiceIds":["a"],"locale":"klingon"}`)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Contains(t, decode(t, w).Error.Fields, "locale")
}

func TestRequestExplanationErrorMapping(t *testing.T) {
	tests := []struct {
		name       string
		err        error
		status     int
		code       string
		retryAfter string
	}{
		{"rate limited", &apperror.RateLimitError{Remaining: 0, RetryAfter: 42 * time.Second}, http.StatusTooManyRequests, "RATE_LIMIT_EXCEEDED", "42"},
		{"unknown question", apperror.NotFound("question", "q9"), http.StatusNotFound, "QUESTION_NOT_FOUND", ""},
		{"dependency", apperror.Dependency("completion provider", nil), http.StatusServiceUnavailable, "DEPENDENCY_UNAVAILABLE", ""},
		{"invalid", apperror.Invalid("selectedChoiceIds", "choice %q is foreign", "x"), http.StatusBadRequest, "VALIDATION_ERROR", ""},
		{"unexpected", context.DeadlineExceeded, http.StatusInternalServerError, "INTERNAL_ERROR", ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t)
			env.explainer.err = tt.err

			w := env.do(t, http.MethodPost, "/api/v1/practice/explanations", "learner-1", `{"questionId":"q1","selectedChoiceIds":["q1-a"]}`)
			assert.Equal(t, tt.status, w.Code)
			assert.Equal(t, tt.code, decode(t, w).Error.Code)
			assert.Equal(t, tt.retryAfter, w.Header().Get("Retry-After"))
		})
	}
}

func TestRateLimitBodyCarriesRemaining(t *testing.T) {
	env := newTestEnv(t)
	env.explainer.err = &apperror.RateLimitError{Remaining: 0, RetryAfter: 1500 * time.Millisecond}

	w := env.do(t, http.MethodPost, "/api/v1/practice/explanations", "learner-1", `{"questionId":"q1","selectedChoiceIds":["q1-a"]}`)
	body := decode(t, w)
	assert.Equal(t, "0", body.Error.Fields["remaining"])
	assert.Equal(t, "2", body.Error.Fields["retry_after_seconds"])
}

func TestSessionStream(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/practice/sessions/s-1/stream?token=" + env.token(t, "learner-1")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	send := func(msg string) map[string]json.RawMessage {
		require.NoError(t, conn.WriteMessage(websocket.TextMessage, []byte(msg)))
		_, data, err := conn.ReadMessage()
		require.NoError(t, err)
		var reply map[string]json.RawMessage
		require.NoError(t, json.Unmarshal(data, &reply))
		return reply
	}

	reply := send(`{"operation":"ping"}`)
	assert.JSONEq(t, `"pong"`, string(reply["event"]))

	reply = send(`{"operation":"toggle-bookmark","questionId":"q2","bookmarked":true}`)
	assert.JSONEq(t, `"session"`, string(reply["event"]))
	var resp model.ApiResponse
	require.NoError(t, json.Unmarshal(reply["data"], &resp))
	assert.Equal(t, []string{"q2"}, resp.Session.BookmarkedQuestionIDs)

	reply = send(`{"operation":"advance","currentQuestionIndex":-1}`)
	assert.JSONEq(t, `"error"`, string(reply["event"]))
	assert.True(t, bytes.Contains(reply["error"], []byte("VALIDATION_ERROR")))

	reply = send(`{"operation":"bogus"}`)
	assert.True(t, bytes.Contains(reply["error"], []byte("INVALID_OPERATION")))
}

func TestPongToDeadConnectionEndsStream(t *testing.T) {
	upgrader := buildUpgrader(nil)
	result := make(chan bool, 1)
	var logs bytes.Buffer
	log := zerolog.New(&logs)

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			result <- true
			return
		}
		_ = conn.UnderlyingConn().Close()
		result <- writeOrDrop(log, func() error { return ws.WritePong(conn) })
	}))
	defer srv.Close()

	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	defer conn.Close()

	select {
	case ok := <-result:
		assert.False(t, ok)
	case <-time.After(5 * time.Second):
		t.Fatal("server never wrote the pong")
	}
	assert.Contains(t, logs.String(), "Write failed")
}

func TestSessionStreamRefusesForeignSession(t *testing.T) {
	env := newTestEnv(t)
	srv := httptest.NewServer(env.router)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws/v1/practice/sessions/s-1/stream?token=" + env.token(t, "intruder")
	_, resp, err := websocket.DefaultDialer.Dial(url, nil)
	require.Error(t, err)
	require.NotNil(t, resp)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)
}
