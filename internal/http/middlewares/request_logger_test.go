package middlewares_test

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

func TestRequestLogger(t *testing.T) {
	var buf bytes.Buffer
	log := slog.New(slog.NewJSONHandler(&buf, nil))

	r := gin.New()
	r.Use(middlewares.RequestID(), middlewares.RequestLogger(log))
	r.GET("/healthz", func(c *gin.Context) { c.Status(http.StatusOK) })
	r.GET("/items/:id", func(c *gin.Context) { c.Status(http.StatusNotFound) })

	for _, path := range []string{"/healthz", "/items/42"} {
		req := httptest.NewRequest(http.MethodGet, path, nil)
		req.Header.Set("X-Request-Id", "req-1")
		r.ServeHTTP(httptest.NewRecorder(), req)
	}

	lines := strings.Split(strings.TrimSpace(buf.String()), "\n")
	if len(lines) != 1 {
		t.Fatalf("expected one record (probe skipped), got %d: %s", len(lines), buf.String())
	}

	var rec map[string]any
	if err := json.Unmarshal([]byte(lines[0]), &rec); err != nil {
		t.Fatalf("decode: %v", err)
	}
	if rec["level"] != "WARN" || rec["route"] != "/items/:id" || rec["request_id"] != "req-1" {
		t.Fatalf("unexpected record %v", rec)
	}
	if rec["status"] != float64(http.StatusNotFound) {
		t.Fatalf("unexpected status %v", rec["status"])
	}
}
