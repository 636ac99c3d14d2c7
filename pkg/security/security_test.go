package security

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
)

func newLimitedRouter(rl *RateLimiter) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(CORS([]string{"https://edu.example.com"}), Secure(), rl.Middleware())
	r.GET("/ping", func(c *gin.Context) { c.String(http.StatusOK, "pong") })
	return r
}

func hit(r *gin.Engine) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.RemoteAddr = "10.0.0.1:1234"
	req.Header.Set("Origin", "https://edu.example.com")
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	return w
}

func TestRateLimiterBurstAndUpdate(t *testing.T) {
	rl := NewRateLimiter(2, time.Hour)
	r := newLimitedRouter(rl)

	for i := 0; i < 2; i++ {
		if w := hit(r); w.Code != http.StatusOK {
			t.Fatalf("request %d: expected 200, got %d", i, w.Code)
		}
	}
	if w := hit(r); w.Code != http.StatusTooManyRequests {
		t.Fatalf("expected 429 after burst, got %d", w.Code)
	}

	// 热更新后已有访客按新的突发量放行
	rl.Update(10, time.Second)
	time.Sleep(300 * time.Millisecond)
	if w := hit(r); w.Code != http.StatusOK {
		t.Fatalf("expected 200 after update, got %d", w.Code)
	}
}

func TestCORSAndSecureHeaders(t *testing.T) {
	r := newLimitedRouter(NewRateLimiter(100, time.Minute))
	w := hit(r)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://edu.example.com" {
		t.Fatalf("unexpected allow origin %q", got)
	}
	if w.Header().Get("X-Content-Type-Options") != "nosniff" {
		t.Fatal("missing nosniff header")
	}

	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	w = httptest.NewRecorder()
	r.ServeHTTP(w, req)
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "" {
		t.Fatalf("unexpected origin echoed: %q", got)
	}
}
