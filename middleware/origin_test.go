package middleware

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
)

func TestAllowedOrigin(t *testing.T) {
	// 白名单为空：开发部署，放行一切
	if !AllowedOrigin("http://anywhere.example", nil) {
		t.Fatalf("empty allow list must accept any origin")
	}

	allow := []string{"https://erp.sysafari.com", "https://ops.sysafari.com/"}
	if !AllowedOrigin("https://erp.sysafari.com", allow) {
		t.Fatalf("listed origin rejected")
	}
	if !AllowedOrigin("https://ops.sysafari.com", allow) {
		t.Fatalf("trailing slash in allow list should not matter")
	}
	if AllowedOrigin("https://evil.example", allow) {
		t.Fatalf("unlisted origin accepted")
	}
	if AllowedOrigin("", allow) {
		t.Fatalf("missing origin must not pass a fixed allow list")
	}
}

func TestCorsHeaders(t *testing.T) {
	gin.SetMode(gin.TestMode)
	allow := []string{"https://erp.sysafari.com"}

	r := gin.New()
	r.Use(Cors(allow))
	r.GET("/ping", func(c *gin.Context) { c.String(200, "pong") })

	// 白名单内：回显来源并允许携带凭据
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://erp.sysafari.com")
	r.ServeHTTP(w, req)
	if w.Code != 200 {
		t.Fatalf("status = %d", w.Code)
	}
	if got := w.Header().Get("Access-Control-Allow-Origin"); got != "https://erp.sysafari.com" {
		t.Fatalf("allow-origin = %q", got)
	}
	if got := w.Header().Get("Access-Control-Allow-Credentials"); got != "true" {
		t.Fatalf("allow-credentials = %q", got)
	}

	// 白名单外：403
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusForbidden {
		t.Fatalf("unlisted origin status = %d, want 403", w.Code)
	}

	// 预检直接 204
	w = httptest.NewRecorder()
	req = httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://erp.sysafari.com")
	r.ServeHTTP(w, req)
	if w.Code != http.StatusNoContent {
		t.Fatalf("preflight status = %d, want 204", w.Code)
	}
}
