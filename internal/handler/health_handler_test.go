package handler

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
)

type fakePinger struct {
	err error
}

func (f *fakePinger) Ping(ctx context.Context) error { return f.err }

func TestNewHealthHandler(t *testing.T) {
	handler := NewHealthHandler(nil, nil)

	if handler == nil {
		t.Fatal("NewHealthHandler() returned nil")
	}
}

func TestHealthHandler_KeepAlive(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHealthHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/", nil)

	handler.KeepAlive(c)

	if w.Code != http.StatusOK {
		t.Errorf("KeepAlive() status = %d, want %d", w.Code, http.StatusOK)
	}
	if !strings.Contains(w.Body.String(), "I am alive!") {
		t.Errorf("KeepAlive() body = %q, want fixed alive response", w.Body.String())
	}
}

func TestHealthHandler_LivenessProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	handler := NewHealthHandler(nil, nil)

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = httptest.NewRequest("GET", "/healthz", nil)

	handler.LivenessProbe(c)

	if w.Code != http.StatusOK {
		t.Errorf("LivenessProbe() status = %d, want %d", w.Code, http.StatusOK)
	}

	// Check response contains status
	body := w.Body.String()
	if body == "" {
		t.Error("LivenessProbe() returned empty body")
	}
}

func TestHealthHandler_ReadinessProbe(t *testing.T) {
	gin.SetMode(gin.TestMode)

	tests := []struct {
		name     string
		pinger   Pinger
		wantCode int
	}{
		{"healthy database", &fakePinger{}, http.StatusOK},
		{"database down", &fakePinger{err: errors.New("connection refused")}, http.StatusServiceUnavailable},
		{"no database wired", nil, http.StatusOK},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			handler := NewHealthHandler(tt.pinger, nil)

			w := httptest.NewRecorder()
			c, _ := gin.CreateTestContext(w)
			c.Request = httptest.NewRequest("GET", "/readyz", nil)

			handler.ReadinessProbe(c)

			if w.Code != tt.wantCode {
				t.Errorf("ReadinessProbe() status = %d, want %d", w.Code, tt.wantCode)
			}
		})
	}
}
