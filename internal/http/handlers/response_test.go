package handlers

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/tbourn/go-grocery-backend/internal/services"
)

func Test_fail_500_LogsAndBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	// capture logs from LoggerFrom(c)
	var buf bytes.Buffer
	logger := zerolog.New(&buf)

	// simulate the request-scoped logger the Logger middleware installs
	r.Use(func(c *gin.Context) {
		c.Set("logger", &logger)
		c.Next()
	})

	r.GET("/boom", func(c *gin.Context) {
		fail(c, http.StatusInternalServerError, ErrCodeInternal, "kaboom", nil)
	})

	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/boom", nil)
	r.ServeHTTP(w, req)

	if w.Code != http.StatusInternalServerError {
		t.Fatalf("status=%d", w.Code)
	}

	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != ErrCodeInternal || env.Error.Message != "kaboom" {
		t.Fatalf("unexpected body: %s", w.Body.String())
	}

	// ensure something was logged at error level
	if !strings.Contains(buf.String(), `"level":"error"`) {
		t.Fatalf("expected error log, got: %s", buf.String())
	}
}

func Test_SuccessHelpers(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()

	r.GET("/one", func(c *gin.Context) {
		ok(c, http.StatusOK, gin.H{"hello": "world"})
	})
	r.GET("/page", func(c *gin.Context) {
		okPage(c, []string{"a", "b"}, 7, 2, 4)
	})
	r.NoRoute(func(c *gin.Context) {
		Fail(c, http.StatusNotFound, ErrCodeNotFound, "resource not found")
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/one", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("ok: status=%d", w.Code)
	}
	var one struct {
		Data map[string]string `json:"data"`
	}
	if err := json.Unmarshal(w.Body.Bytes(), &one); err != nil || one.Data["hello"] != "world" {
		t.Fatalf("unexpected data envelope: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/page", nil))
	env := decodeEnvelope(t, w)
	if env.Pagination == nil || env.Pagination.Total != 7 || env.Pagination.Limit != 2 || env.Pagination.Offset != 4 {
		t.Fatalf("unexpected pagination: %s", w.Body.String())
	}

	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/nope", nil))
	if w.Code != http.StatusNotFound {
		t.Fatalf("NoRoute: status=%d", w.Code)
	}
	if e := decodeEnvelope(t, w).Error; e == nil || e.Code != ErrCodeNotFound {
		t.Fatalf("unexpected NoRoute body: %s", w.Body.String())
	}
}

func Test_failErr_Mapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(func(c *gin.Context) {
		lg := zerolog.Nop()
		c.Set("logger", &lg)
		c.Next()
	})
	r.GET("/domain", func(c *gin.Context) {
		failErr(c, services.InsufficientStock("not enough").WithDetails(map[string]any{"missing_items": []string{"p1"}}))
	})
	r.GET("/opaque", func(c *gin.Context) {
		failErr(c, context.DeadlineExceeded)
	})

	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/domain", nil))
	if w.Code != http.StatusConflict {
		t.Fatalf("domain error: status=%d", w.Code)
	}
	env := decodeEnvelope(t, w)
	if env.Error == nil || env.Error.Code != "INSUFFICIENT_STOCK" || env.Error.Details["missing_items"] == nil {
		t.Fatalf("unexpected domain envelope: %s", w.Body.String())
	}

	// Non-domain errors collapse to an opaque 500.
	w = httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/opaque", nil))
	if w.Code != http.StatusInternalServerError {
		t.Fatalf("opaque error: status=%d", w.Code)
	}
	if e := decodeEnvelope(t, w).Error; e == nil || e.Code != ErrCodeInternal || e.Message != "internal error" {
		t.Fatalf("unexpected opaque envelope: %s", w.Body.String())
	}
}
