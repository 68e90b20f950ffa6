package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/middleware"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/token"
	"github.com/labstack/echo/v4"
)

// newTestEcho returns an echo instance configured like the server
func newTestEcho() *echo.Echo {
	e := echo.New()
	e.Validator = NewValidator()
	return e
}

// newJSONContext builds a context for a JSON request. An empty body sends no payload.
func newJSONContext(e *echo.Echo, method, target, body string) (echo.Context, *httptest.ResponseRecorder) {
	var req *http.Request
	if body == "" {
		req = httptest.NewRequest(method, target, nil)
	} else {
		req = httptest.NewRequest(method, target, strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	return e.NewContext(req, rec), rec
}

// setActor puts verified claims for the given user into the request context, as the
// auth middleware does
func setActor(c echo.Context, id int32, rol domain.Rol) {
	claims := &token.Claims{UsuarioID: id, Rol: rol, Email: "tester@example.com"}
	ctx := context.WithValue(c.Request().Context(), middleware.ClaimsKey, claims)
	c.SetRequest(c.Request().WithContext(ctx))
}

func setIDParam(c echo.Context, names []string, values ...string) {
	c.SetParamNames(names...)
	c.SetParamValues(values...)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) ProblemDetails {
	t.Helper()
	var p ProblemDetails
	if err := json.Unmarshal(rec.Body.Bytes(), &p); err != nil {
		t.Fatalf("Failed to unmarshal problem details: %v (body %s)", err, rec.Body.String())
	}
	return p
}

func decodeJSON(t *testing.T, rec *httptest.ResponseRecorder, v any) {
	t.Helper()
	if err := json.Unmarshal(rec.Body.Bytes(), v); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, rec.Body.String())
	}
}

func decodeMap(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("Failed to unmarshal response: %v (body %s)", err, rec.Body.String())
	}
	return m
}

func expectStatus(t *testing.T, rec *httptest.ResponseRecorder, want int) {
	t.Helper()
	if rec.Code != want {
		t.Fatalf("Expected status %d, got %d: %s", want, rec.Code, rec.Body.String())
	}
}
