package util

import (
	"coder_edu_assessment/internal/apperr"
	"coder_edu_assessment/internal/model"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func TestJWTRoundTrip(t *testing.T) {
	tok, err := GenerateJWT(9, model.Teacher, "secret", time.Minute)
	if err != nil {
		t.Fatalf("generate: %v", err)
	}
	claims, err := ParseJWT(tok, "secret")
	if err != nil {
		t.Fatalf("parse: %v", err)
	}
	if claims.UserID != 9 || claims.Role != model.Teacher {
		t.Fatalf("unexpected claims %+v", claims)
	}

	if _, err := ParseJWT(tok, "other-secret"); err == nil {
		t.Fatal("expected signature mismatch to fail")
	}
	expired, _ := GenerateJWT(9, model.Teacher, "secret", -time.Minute)
	if _, err := ParseJWT(expired, "secret"); err == nil {
		t.Fatal("expected expired token to fail")
	}
	anonymous, _ := GenerateJWT(0, model.Student, "secret", time.Minute)
	if _, err := ParseJWT(anonymous, "secret"); !errors.Is(err, ErrInvalidToken) {
		t.Fatalf("expected ErrInvalidToken for missing subject, got %v", err)
	}
}

func TestRespondError(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name    string
		err     error
		status  int
		kind    string
		field   string
		message string
	}{
		{name: "validation", err: apperr.Validation("answers", "must not be empty"), status: http.StatusBadRequest, kind: "validation", field: "answers"},
		{name: "not found", err: apperr.NotFound("question"), status: http.StatusNotFound, kind: "not_found"},
		{name: "unpublished", err: apperr.Unpublished("a1"), status: http.StatusBadRequest, kind: "unpublished_assessment"},
		{name: "attempt limit", err: apperr.AttemptLimitExceeded(2), status: http.StatusBadRequest, kind: "attempt_limit_exceeded"},
		{name: "permission", err: apperr.Permission("not yours"), status: http.StatusForbidden, kind: "permission_denied"},
		{name: "persistence hides cause", err: apperr.Persistence("append", errors.New("disk full")), status: http.StatusInternalServerError, kind: "persistence", message: "Internal server error"},
		{name: "untyped error", err: errors.New("boom"), status: http.StatusInternalServerError, kind: "persistence", message: "Internal server error"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest(http.MethodGet, "/", nil)

			RespondError(c, tc.err)

			if w.Code != tc.status {
				t.Fatalf("expected status %d, got %d", tc.status, w.Code)
			}
			var resp Response
			if err := json.Unmarshal(w.Body.Bytes(), &resp); err != nil {
				t.Fatalf("decode: %v", err)
			}
			if resp.Kind != tc.kind || resp.Field != tc.field || resp.Code != tc.status {
				t.Fatalf("unexpected response %+v", resp)
			}
			if tc.message != "" && resp.Message != tc.message {
				t.Fatalf("expected message %q, got %q", tc.message, resp.Message)
			}
		})
	}
}

func TestParsePage(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		query string
		page  int
		limit int
	}{
		{"", 1, 20},
		{"?page=3&limit=10", 3, 10},
		{"?page=-1&limit=1000", 1, 100},
		{"?page=abc&limit=x", 1, 20},
	}
	for _, tc := range tests {
		c, _ := gin.CreateTestContext(httptest.NewRecorder())
		c.Request = httptest.NewRequest(http.MethodGet, "/"+tc.query, nil)
		page, limit := ParsePage(c)
		if page != tc.page || limit != tc.limit {
			t.Fatalf("%q: expected %d/%d, got %d/%d", tc.query, tc.page, tc.limit, page, limit)
		}
	}
}
