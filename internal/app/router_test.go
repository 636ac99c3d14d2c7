package app

import (
	"bytes"
	"coder_edu_assessment/internal/config"
	"coder_edu_assessment/internal/model"
	"coder_edu_assessment/internal/testutil"
	"coder_edu_assessment/internal/util"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const testSecret = "router-test-secret"

type envelope struct {
	Code    int             `json:"code"`
	Message string          `json:"message"`
	Kind    string          `json:"kind"`
	Data    json.RawMessage `json:"data"`
}

type testServer struct {
	t      *testing.T
	router *gin.Engine
	db     *gorm.DB
}

func newTestServer(t *testing.T) *testServer {
	t.Helper()
	gin.SetMode(gin.TestMode)

	cfg := &config.Config{
		JWT:       config.JWTConfig{Secret: testSecret},
		RateLimit: config.RateLimitConfig{MaxRequests: 10000, WindowMinutes: 1},
	}
	db := testutil.NewDB(t)
	a := &App{Config: cfg, DB: db, stop: make(chan struct{})}
	t.Cleanup(func() { close(a.stop) })

	repos := a.initRepositories(db)
	svcs := a.initServices(repos, cfg, nil)
	ctrls := a.initControllers(svcs, db, nil)

	router := gin.New()
	a.setupMiddlewares(router, cfg)
	a.registerRoutes(router, ctrls, cfg)
	return &testServer{t: t, router: router, db: db}
}

func (s *testServer) token(userID uint, role model.UserRole) string {
	s.t.Helper()
	tok, err := util.GenerateJWT(userID, role, testSecret, time.Hour)
	if err != nil {
		s.t.Fatalf("token: %v", err)
	}
	return tok
}

func (s *testServer) do(method, path, token string, body interface{}) (int, envelope) {
	s.t.Helper()
	var buf bytes.Buffer
	if body != nil {
		if raw, ok := body.(string); ok {
			buf.WriteString(raw)
		} else if err := json.NewEncoder(&buf).Encode(body); err != nil {
			s.t.Fatalf("encode: %v", err)
		}
	}
	req := httptest.NewRequest(method, path, &buf)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)

	var env envelope
	if w.Body.Len() > 0 {
		if err := json.Unmarshal(w.Body.Bytes(), &env); err != nil {
			s.t.Fatalf("decode %s: %v", w.Body.String(), err)
		}
	}
	return w.Code, env
}

func submitBody(questionID string, answer interface{}) map[string]interface{} {
	return map[string]interface{}{
		"answers": []map[string]interface{}{{"questionId": questionID, "answer": answer}},
	}
}

func TestSubmitEndpoint(t *testing.T) {
	s := newTestServer(t)
	a := testutil.SeedAssessment(t, s.db, model.AssessmentPublished, 1, 7,
		testutil.SingleChoice("Pick B", "B", 2, "A", "B", "C"))
	student := s.token(42, model.Student)
	path := "/api/assessments/" + a.ID + "/submit"

	if code, _ := s.do(http.MethodPost, path, "", submitBody(a.Questions[0].ID, "B")); code != http.StatusUnauthorized {
		t.Fatalf("expected 401 without token, got %d", code)
	}

	code, env := s.do(http.MethodPost, path, student, submitBody(a.Questions[0].ID, "B"))
	if code != http.StatusOK {
		t.Fatalf("expected 200, got %d (%+v)", code, env)
	}
	var res struct {
		TotalScore int `json:"totalScore"`
		MaxScore   int `json:"maxScore"`
		Submission struct {
			StudentID uint `json:"studentId"`
			Answers   []struct {
				Correct       *bool  `json:"correct"`
				PointsAwarded int    `json:"pointsAwarded"`
				Feedback      string `json:"feedback"`
			} `json:"answers"`
		} `json:"submission"`
	}
	if err := json.Unmarshal(env.Data, &res); err != nil {
		t.Fatalf("decode data: %v", err)
	}
	if res.TotalScore != 2 || res.MaxScore != 2 || res.Submission.StudentID != 42 {
		t.Fatalf("unexpected result %+v", res)
	}
	if ans := res.Submission.Answers[0]; ans.Correct == nil || !*ans.Correct || ans.Feedback != "Correct!" {
		t.Fatalf("unexpected answer %+v", ans)
	}

	code, env = s.do(http.MethodPost, path, student, submitBody(a.Questions[0].ID, "B"))
	if code != http.StatusBadRequest || env.Kind != "attempt_limit_exceeded" {
		t.Fatalf("expected 400 attempt_limit_exceeded, got %d %+v", code, env)
	}
}

func TestSubmitEndpointErrors(t *testing.T) {
	s := newTestServer(t)
	published := testutil.SeedAssessment(t, s.db, model.AssessmentPublished, 3, 7,
		testutil.SingleChoice("Pick B", "B", 2, "A", "B"))
	draft := testutil.SeedAssessment(t, s.db, model.AssessmentDraft, 1, 7,
		testutil.SingleChoice("Pick B", "B", 2, "A", "B"))
	student := s.token(42, model.Student)

	tests := []struct {
		name string
		path string
		body interface{}
		code int
		kind string
	}{
		{name: "unknown assessment", path: "/api/assessments/missing/submit", body: submitBody("q", "B"), code: http.StatusNotFound, kind: "not_found"},
		{name: "draft assessment", path: "/api/assessments/" + draft.ID + "/submit", body: submitBody(draft.Questions[0].ID, "B"), code: http.StatusBadRequest, kind: "unpublished_assessment"},
		{name: "unknown question", path: "/api/assessments/" + published.ID + "/submit", body: submitBody("nope", "B"), code: http.StatusNotFound, kind: "not_found"},
		{name: "empty answers", path: "/api/assessments/" + published.ID + "/submit", body: map[string]interface{}{"answers": []interface{}{}}, code: http.StatusBadRequest, kind: "validation"},
		{name: "missing answer", path: "/api/assessments/" + published.ID + "/submit", body: `{"answers":[{"questionId":"x"}]}`, code: http.StatusBadRequest, kind: "validation"},
		{name: "malformed json", path: "/api/assessments/" + published.ID + "/submit", body: `{"answers":`, code: http.StatusBadRequest, kind: "validation"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			code, env := s.do(http.MethodPost, tc.path, student, tc.body)
			if code != tc.code || env.Kind != tc.kind {
				t.Fatalf("expected %d %s, got %d %+v", tc.code, tc.kind, code, env)
			}
		})
	}
}

func TestTeacherRoutes(t *testing.T) {
	s := newTestServer(t)
	teacher := s.token(7, model.Teacher)
	other := s.token(8, model.Teacher)
	student := s.token(42, model.Student)

	if code, _ := s.do(http.MethodPost, "/api/teacher/assessments", student, map[string]interface{}{"title": "x"}); code != http.StatusForbidden {
		t.Fatalf("expected student to be forbidden from teacher routes, got %d", code)
	}

	code, env := s.do(http.MethodPost, "/api/teacher/assessments", teacher, map[string]interface{}{
		"title":           "Geography",
		"attemptsAllowed": 2,
		"questions": []map[string]interface{}{
			{"type": "short_answer", "text": "Capital of France", "correctAnswer": "Paris", "points": 3},
		},
	})
	if code != http.StatusCreated {
		t.Fatalf("create: %d %+v", code, env)
	}
	var created model.Assessment
	if err := json.Unmarshal(env.Data, &created); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if created.TotalPoints != 3 || created.Status != model.AssessmentDraft {
		t.Fatalf("unexpected assessment %+v", created)
	}

	code, env = s.do(http.MethodPost, "/api/teacher/assessments/"+created.ID+"/questions", other,
		map[string]interface{}{"type": "free_response", "text": "Explain"})
	if code != http.StatusForbidden || env.Kind != "permission_denied" {
		t.Fatalf("expected permission_denied, got %d %+v", code, env)
	}

	code, env = s.do(http.MethodPost, "/api/teacher/assessments/"+created.ID+"/questions", teacher,
		map[string]interface{}{"type": "single_choice", "text": "Pick", "options": []string{"A"}, "correctAnswer": "A"})
	if code != http.StatusBadRequest || env.Kind != "validation" {
		t.Fatalf("expected validation error, got %d %+v", code, env)
	}

	if code, env = s.do(http.MethodGet, "/api/assessments/"+created.ID, student, nil); code != http.StatusBadRequest {
		t.Fatalf("expected draft to be hidden from students, got %d %+v", code, env)
	}
	if code, env = s.do(http.MethodPost, "/api/teacher/assessments/"+created.ID+"/publish", teacher, nil); code != http.StatusOK {
		t.Fatalf("publish: %d %+v", code, env)
	}

	code, env = s.do(http.MethodGet, "/api/assessments/"+created.ID, student, nil)
	if code != http.StatusOK {
		t.Fatalf("student view: %d %+v", code, env)
	}
	if bytes.Contains(env.Data, []byte("Paris")) {
		t.Fatalf("student view must not leak correct answers: %s", env.Data)
	}

	code, env = s.do(http.MethodGet, "/api/assessments/"+created.ID+"/attempts", student, nil)
	if code != http.StatusOK {
		t.Fatalf("attempts: %d %+v", code, env)
	}
	var info struct {
		AttemptsUsed int `json:"attemptsUsed"`
		Remaining    int `json:"remaining"`
	}
	json.Unmarshal(env.Data, &info)
	if info.AttemptsUsed != 0 || info.Remaining != 2 {
		t.Fatalf("unexpected attempt info %+v", info)
	}
}

func TestHealth(t *testing.T) {
	s := newTestServer(t)
	code, env := s.do(http.MethodGet, "/api/health", "", nil)
	if code != http.StatusOK || env.Code != http.StatusOK {
		t.Fatalf("expected healthy, got %d %+v", code, env)
	}
}
