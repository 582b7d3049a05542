package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"luckyenvelope/internal/models"
	"luckyenvelope/internal/services"
	"luckyenvelope/internal/store"

	"github.com/gin-gonic/gin"
)

func newTestRouter(t *testing.T, mem *store.Memory, prizes []models.Prize) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)
	svc := services.NewEnvelopeService(mem, prizes, services.Options{Seed: 1})
	t.Cleanup(svc.Close)

	r := gin.New()
	r.Use(RequestIDMiddleware())
	NewHTTPHandler(svc, http.NotFoundHandler()).RegisterRoutes(r)
	return r
}

func do(r http.Handler, method, target, body string) (*httptest.ResponseRecorder, map[string]any) {
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	w := httptest.NewRecorder()
	r.ServeHTTP(w, req)
	out := map[string]any{}
	_ = json.Unmarshal(w.Body.Bytes(), &out)
	return w, out
}

func TestHTTPHandler(t *testing.T) {
	mem := store.NewMemory()
	for code, status := range map[string]models.Status{
		"ABC21": models.StatusInvited,
		"OLD01": models.StatusExpired,
		"LATE1": models.StatusInvited,
	} {
		_, _ = mem.Put(models.Participant{Code: code, Status: status})
	}
	r := newTestRouter(t, mem, []models.Prize{{ID: "prize-3", Name: "5.000 F-point", Limit: 1}})

	t.Run("Test health", func(t *testing.T) {
		w, _ := do(r, http.MethodGet, "/health", "")
		if w.Code != http.StatusOK || w.Body.String() != "OK" {
			t.Errorf("Expected 200 OK, got %d %q", w.Code, w.Body.String())
		}
		if w.Header().Get("X-Request-ID") == "" {
			t.Error("Expected a request id header")
		}
	})

	t.Run("Test check", func(t *testing.T) {
		w, body := do(r, http.MethodGet, "/api/check?code=ABC21", "")
		if w.Code != http.StatusOK || body["valid"] != true || body["status"] != "INVITED" {
			t.Errorf("Unexpected response %d %v", w.Code, body)
		}
		w, body = do(r, http.MethodGet, "/check?code=ZZZ99", "")
		if w.Code != http.StatusOK || body["valid"] != false {
			t.Errorf("Unexpected response %d %v", w.Code, body)
		}
		if w, _ := do(r, http.MethodGet, "/check", ""); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for missing code, got %d", w.Code)
		}
		if w, _ := do(r, http.MethodGet, "/check?code=a-b", ""); w.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for bad code, got %d", w.Code)
		}
	})

	t.Run("Test update flow", func(t *testing.T) {
		w, body := do(r, http.MethodPost, "/api/update", `{"code":"ABC21","status":"OPENNING"}`)
		if w.Code != http.StatusOK || body["success"] != true || body["status"] != "OPENNING" {
			t.Fatalf("Unexpected open response %d %v", w.Code, body)
		}

		w, body = do(r, http.MethodPost, "/api/update", `{"code":"ABC21","status":"PLAYER"}`)
		if w.Code != http.StatusOK || body["prizeId"] != "prize-3" || body["prize"] != "5.000 F-point" {
			t.Fatalf("Unexpected play response %d %v", w.Code, body)
		}
		if _, ok := body["isExisting"]; ok {
			t.Error("Expected a fresh grant not to be flagged existing")
		}

		w, body = do(r, http.MethodPost, "/update", `{"code":"ABC21"}`)
		if w.Code != http.StatusOK || body["isExisting"] != true || body["prizeId"] != "prize-3" {
			t.Errorf("Unexpected replay response %d %v", w.Code, body)
		}

		w, body = do(r, http.MethodPost, "/update", `{"code":"ABC21","status":"OPENNING"}`)
		if w.Code != http.StatusConflict || body["currentStatus"] != "PLAYER" || body["prizeId"] != "prize-3" {
			t.Errorf("Unexpected conflict response %d %v", w.Code, body)
		}
	})

	t.Run("Test update errors", func(t *testing.T) {
		cases := []struct {
			body string
			code int
		}{
			{`{"status":"PLAYER"}`, http.StatusBadRequest},
			{`not json`, http.StatusBadRequest},
			{`{"code":"a b"}`, http.StatusBadRequest},
			{`{"code":"NOPE1"}`, http.StatusNotFound},
			{`{"code":"OLD01","status":"PLAYER"}`, http.StatusConflict},
			{`{"code":"LATE1","status":"PLAYER"}`, http.StatusUnprocessableEntity},
		}
		for _, c := range cases {
			if w, body := do(r, http.MethodPost, "/api/update", c.body); w.Code != c.code {
				t.Errorf("%s: expected %d, got %d %v", c.body, c.code, w.Code, body)
			}
		}
	})
}

type stubEnvelope struct {
	err error
}

func (s stubEnvelope) Check(context.Context, string) (*models.CheckResult, error) {
	return nil, s.err
}

func (s stubEnvelope) UpdateStatus(context.Context, string, string) (*models.UpdateResult, error) {
	return nil, s.err
}

func TestHTTPHandler_ErrorMapping(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	NewHTTPHandler(stubEnvelope{err: services.ErrBusy}, nil).RegisterRoutes(r)
	if w, _ := do(r, http.MethodPost, "/update", `{"code":"ABC21"}`); w.Code != http.StatusTooManyRequests {
		t.Errorf("Expected 429, got %d", w.Code)
	}

	r = gin.New()
	NewHTTPHandler(stubEnvelope{err: services.ErrStore}, nil).RegisterRoutes(r)
	if w, _ := do(r, http.MethodPost, "/update", `{"code":"ABC21"}`); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
	if w, _ := do(r, http.MethodGet, "/check?code=ABC21", ""); w.Code != http.StatusInternalServerError {
		t.Errorf("Expected 500, got %d", w.Code)
	}
}
