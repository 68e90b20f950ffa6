package handler

import (
	"net/http"
	"testing"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/testutil"
)

func setupPersonaHandler() (*PersonaHandler, *testutil.MockPersonaRepository) {
	repo := testutil.NewMockPersonaRepository()
	return NewPersonaHandler(service.NewPersonaService(repo)), repo
}

func TestCreatePersona_Handler(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
	}{
		{"valid", `{"cuit":"30-71234567-8","razon_social":"Acme SA"}`, http.StatusCreated},
		{"missing razon social", `{"cuit":"30-71234567-8"}`, http.StatusBadRequest},
		{"blank cuit", `{"cuit":"  ","razon_social":"Acme SA"}`, http.StatusBadRequest},
		{"duplicate cuit", `{"cuit":"20-11111111-1","razon_social":"Otra"}`, http.StatusConflict},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			h, repo := setupPersonaHandler()
			repo.Personas[1] = &domain.Persona{ID: 1, CUIT: "20-11111111-1", RazonSocial: "Existente"}
			repo.NextID = 2

			c, rec := newJSONContext(e, http.MethodPost, "/api/personas", tt.body)
			if err := h.CreatePersona(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			expectStatus(t, rec, tt.wantStatus)
		})
	}
}

func TestPersona_HandlerLifecycle(t *testing.T) {
	e := newTestEcho()
	h, repo := setupPersonaHandler()
	repo.Personas[1] = &domain.Persona{ID: 1, CUIT: "20-11111111-1", RazonSocial: "Acme SA"}
	repo.Personas[2] = &domain.Persona{ID: 2, CUIT: "27-22222222-2", RazonSocial: "Globex SRL"}
	repo.NextID = 3

	c, rec := newJSONContext(e, http.MethodGet, "/api/personas?razon_social=globex", "")
	if err := h.ListPersonas(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	if resp := decodeMap(t, rec); resp["total"] != float64(1) {
		t.Errorf("Expected one persona, got %v", resp["total"])
	}

	c, rec = newJSONContext(e, http.MethodPatch, "/api/persona/2", `{"razon_social":"Globex SA"}`)
	setIDParam(c, []string{"id"}, "2")
	if err := h.UpdatePersona(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)
	var updated domain.Persona
	decodeJSON(t, rec, &updated)
	if updated.RazonSocial != "Globex SA" || updated.CUIT != "27-22222222-2" {
		t.Errorf("Unexpected persona %+v", updated)
	}

	c, rec = newJSONContext(e, http.MethodPatch, "/api/persona/2", `{}`)
	setIDParam(c, []string{"id"}, "2")
	_ = h.UpdatePersona(c)
	expectStatus(t, rec, http.StatusBadRequest)

	repo.DeleteFn = func(id int32) error { return domain.ErrInUse }
	c, rec = newJSONContext(e, http.MethodDelete, "/api/persona/1", "")
	setIDParam(c, []string{"id"}, "1")
	_ = h.DeletePersona(c)
	expectStatus(t, rec, http.StatusConflict)

	c, rec = newJSONContext(e, http.MethodGet, "/api/persona/5", "")
	setIDParam(c, []string{"id"}, "5")
	_ = h.GetPersona(c)
	expectStatus(t, rec, http.StatusNotFound)
}
