package handler

import (
	"errors"
	"net/http"
	"strings"
	"testing"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/service"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/testutil"
	"github.com/shopspring/decimal"
)

func setupOperacionHandler() (*OperacionHandler, *testutil.MemOperacionRepository, *testutil.MockAttachmentStorage) {
	repo := testutil.NewMemOperacionRepository()
	store := testutil.NewMockAttachmentStorage()
	svc := service.NewOperacionService(repo, store)
	svc.SetEventPublisher(&testutil.RecordingPublisher{})
	return NewOperacionHandler(svc), repo, store
}

func seedOperacion(repo *testutil.MemOperacionRepository, id, creator int32, fecha string) *domain.Operacion {
	f, _ := time.Parse(domain.DateLayout, fecha)
	return repo.AddOperacion(&domain.Operacion{
		ID:             id,
		Fecha:          f,
		Tipo:           domain.TipoEgreso,
		Caracter:       "ordinario",
		Naturaleza:     "servicio",
		IDPersona:      1,
		Option:         "A",
		Codigo:         "C-001",
		MetodoDePago:   "transferencia",
		MontoTotal:     decimal.NewFromInt(-150),
		IDSubcategoria: 1,
		IDUsuario:      creator,
	})
}

func TestListOperaciones_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	for i, fecha := range []string{"2024-01-05", "2024-02-10", "2024-03-15"} {
		seedOperacion(repo, int32(i+1), 10, fecha)
	}

	c, rec := newJSONContext(e, http.MethodGet, "/api/operaciones?fecha=2024-02:2024-03&per_page=1", "")
	setActor(c, 20, domain.RolSupervisor)

	if err := h.ListOperaciones(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	resp := decodeMap(t, rec)
	if resp["total"] != float64(2) {
		t.Errorf("Expected total 2, got %v", resp["total"])
	}
	if resp["pages"] != float64(2) {
		t.Errorf("Expected 2 pages, got %v", resp["pages"])
	}
	if resp["per_page"] != float64(1) {
		t.Errorf("Expected per_page 1, got %v", resp["per_page"])
	}
	ops, ok := resp["operaciones"].([]any)
	if !ok || len(ops) != 1 {
		t.Fatalf("Expected one operation in the page, got %v", resp["operaciones"])
	}
	first := ops[0].(map[string]any)
	if first["fecha"] != "2024-02-10" {
		t.Errorf("Expected fecha 2024-02-10, got %v", first["fecha"])
	}
	if first["monto_total"] != "-150.00" {
		t.Errorf("Expected monto_total -150.00, got %v", first["monto_total"])
	}
	if first["comprobante"] != nil {
		t.Errorf("Expected null comprobante, got %v", first["comprobante"])
	}
}

func TestListOperaciones_InvalidInput(t *testing.T) {
	tests := []struct {
		name   string
		target string
	}{
		{"invalid date", "/api/operaciones?fecha=ayer"},
		{"invalid page", "/api/operaciones?page=abc"},
		{"zero per_page", "/api/operaciones?per_page=0"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			h, _, _ := setupOperacionHandler()
			c, rec := newJSONContext(e, http.MethodGet, tt.target, "")

			if err := h.ListOperaciones(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			expectStatus(t, rec, http.StatusBadRequest)
			if p := decodeProblem(t, rec); p.Type != ErrorTypeValidation {
				t.Errorf("Expected validation problem, got %s", p.Type)
			}
		})
	}
}

func TestExportOperaciones_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")
	seedOperacion(repo, 2, 10, "2025-01-05")

	c, rec := newJSONContext(e, http.MethodGet, "/api/operaciones/excel?fecha=2024", "")
	if err := h.ExportOperaciones(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	if ct := rec.Header().Get("Content-Type"); ct != service.XLSXContentType {
		t.Errorf("Expected spreadsheet content type, got %s", ct)
	}
	if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, "operaciones_") || !strings.HasSuffix(cd, `.xlsx"`) {
		t.Errorf("Unexpected Content-Disposition %q", cd)
	}
	if n := rec.Header().Get("X-Total-Count"); n != "1" {
		t.Errorf("Expected X-Total-Count 1, got %s", n)
	}
	if rec.Body.Len() == 0 {
		t.Error("Expected a workbook in the body")
	}
}

func TestGetOperacion_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")

	c, rec := newJSONContext(e, http.MethodGet, "/api/operacion/1", "")
	setIDParam(c, []string{"id"}, "1")
	if err := h.GetOperacion(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	c, rec = newJSONContext(e, http.MethodGet, "/api/operacion/7", "")
	setIDParam(c, []string{"id"}, "7")
	_ = h.GetOperacion(c)
	expectStatus(t, rec, http.StatusNotFound)

	c, rec = newJSONContext(e, http.MethodGet, "/api/operacion/x", "")
	setIDParam(c, []string{"id"}, "x")
	_ = h.GetOperacion(c)
	expectStatus(t, rec, http.StatusBadRequest)
}

func TestUpdateOperacion_Handler(t *testing.T) {
	tests := []struct {
		name       string
		actorID    int32
		rol        domain.Rol
		id         string
		body       string
		wantStatus int
	}{
		{"owner updates", 10, domain.RolAdmin, "1", `{"codigo":"C-9","desconocido":1}`, http.StatusOK},
		{"supervisor updates", 20, domain.RolSupervisor, "1", `{"observaciones":"ok"}`, http.StatusOK},
		{"other admin forbidden", 99, domain.RolAdmin, "1", `{"codigo":"C-9"}`, http.StatusForbidden},
		{"missing operation", 20, domain.RolSupervisor, "5", `{"codigo":"C-9"}`, http.StatusNotFound},
		{"no editable fields", 10, domain.RolAdmin, "1", `{"id_usuario":3}`, http.StatusBadRequest},
		{"invalid value", 10, domain.RolAdmin, "1", `{"fecha":"31/01/2024"}`, http.StatusBadRequest},
		{"not an object", 10, domain.RolAdmin, "1", `[1,2]`, http.StatusBadRequest},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			h, repo, _ := setupOperacionHandler()
			seedOperacion(repo, 1, 10, "2024-01-05")

			c, rec := newJSONContext(e, http.MethodPatch, "/api/operacion/"+tt.id, tt.body)
			setIDParam(c, []string{"id"}, tt.id)
			setActor(c, tt.actorID, tt.rol)

			if err := h.UpdateOperacion(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			expectStatus(t, rec, tt.wantStatus)
		})
	}
}

func TestUpdateOperacion_ResponseBody(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")

	c, rec := newJSONContext(e, http.MethodPatch, "/api/operacion/1", `{"codigo":"C-9"}`)
	setIDParam(c, []string{"id"}, "1")
	setActor(c, 20, domain.RolSupervisor)

	if err := h.UpdateOperacion(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	resp := decodeMap(t, rec)
	if resp["modificado_por_otro"] != true {
		t.Errorf("Expected modificado_por_otro true, got %v", resp["modificado_por_otro"])
	}
	campos, _ := resp["campos_actualizados"].([]any)
	if len(campos) != 1 || campos[0] != "codigo" {
		t.Errorf("Expected campos_actualizados [codigo], got %v", resp["campos_actualizados"])
	}
	if repo.Snapshot(1).Codigo != "C-9" {
		t.Error("Expected the change to be stored")
	}
}

func TestUpdateOperacion_RequiresActor(t *testing.T) {
	e := newTestEcho()
	h, _, _ := setupOperacionHandler()
	c, rec := newJSONContext(e, http.MethodPatch, "/api/operacion/1", `{"codigo":"C-9"}`)
	setIDParam(c, []string{"id"}, "1")

	_ = h.UpdateOperacion(c)
	expectStatus(t, rec, http.StatusUnauthorized)
}

func TestBulkUpdateOperaciones_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")
	seedOperacion(repo, 2, 30, "2024-01-06")

	c, rec := newJSONContext(e, http.MethodPatch, "/api/operaciones/bulk",
		`[{"id":1,"codigo":"B-1"},{"id":2,"codigo":"B-2"},{"id":8,"codigo":"B-8"},{"id":1,"codigo":"B-1"}]`)
	setActor(c, 10, domain.RolAdmin)

	if err := h.BulkUpdateOperaciones(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusOK)

	var result service.BulkResult
	decodeJSON(t, rec, &result)
	if len(result.Updated) != 1 || result.Updated[0].ID != 1 {
		t.Errorf("Expected operation 1 updated, got %+v", result.Updated)
	}
	if len(result.Forbidden) != 1 || result.Forbidden[0] != 2 {
		t.Errorf("Expected operation 2 forbidden, got %v", result.Forbidden)
	}
	if len(result.NotFound) != 1 || result.NotFound[0] != 8 {
		t.Errorf("Expected operation 8 not found, got %v", result.NotFound)
	}
	if len(result.SinCambios) != 1 || result.SinCambios[0] != 1 {
		t.Errorf("Expected repeated item without changes, got %v", result.SinCambios)
	}
	if repo.Snapshot(2).Codigo != "C-001" {
		t.Error("Expected forbidden operation to stay unchanged")
	}
}

func TestBulkUpdateOperaciones_InvalidBody(t *testing.T) {
	for _, body := range []string{`{"id":1}`, `null`, `[]`, `[{"codigo":"X"}]`, `nope`} {
		e := newTestEcho()
		h, _, _ := setupOperacionHandler()
		c, rec := newJSONContext(e, http.MethodPatch, "/api/operaciones/bulk", body)
		setActor(c, 20, domain.RolSupervisor)

		if err := h.BulkUpdateOperaciones(c); err != nil {
			t.Fatalf("Expected no error, got %v", err)
		}
		if rec.Code != http.StatusBadRequest {
			t.Errorf("Body %s: expected status 400, got %d", body, rec.Code)
		}
	}
}

func TestBulkUpdateOperaciones_CommitFailure(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")
	repo.CommitErr = errors.New("serialization failure")

	c, rec := newJSONContext(e, http.MethodPatch, "/api/operaciones/bulk", `[{"id":1,"codigo":"B-1"},{"id":4,"codigo":"B-4"}]`)
	setActor(c, 20, domain.RolSupervisor)

	if err := h.BulkUpdateOperaciones(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusInternalServerError)

	resp := decodeMap(t, rec)
	if resp["error"] == nil {
		t.Error("Expected an error message")
	}
	if nf, _ := resp["not_found"].([]any); len(nf) != 1 || nf[0] != float64(4) {
		t.Errorf("Expected not_found [4], got %v", resp["not_found"])
	}
	if strings.Contains(rec.Body.String(), "serialization failure") {
		t.Error("Expected the storage error to stay out of the response")
	}
	if repo.Snapshot(1).Codigo != "C-001" {
		t.Error("Expected rollback")
	}
}

func TestCreateOperacion_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, _ := setupOperacionHandler()
	repo.Personas[1] = &domain.Persona{ID: 1, CUIT: "20-1", RazonSocial: "Acme"}
	repo.Subcategorias[2] = &domain.Subcategoria{ID: 2, Nombre: "Internet", IDCategoria: 1}

	body := `{"fecha":"2024-04-01","tipo":"ingreso","caracter":"ordinario","naturaleza":"venta",
		"id_persona":1,"option":"B","codigo":"V-1","metodo_de_pago":"efectivo","monto_total":"1200.5",
		"id_subcategoria":2,"id_usuario":10}`
	c, rec := newJSONContext(e, http.MethodPost, "/api/operaciones", body)
	setActor(c, 10, domain.RolAdmin)

	if err := h.CreateOperacion(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusCreated)

	var resp OperacionResponse
	decodeJSON(t, rec, &resp)
	if resp.ID == 0 || resp.MontoTotal != "1200.50" || resp.Fecha != "2024-04-01" {
		t.Errorf("Unexpected response %+v", resp)
	}
}

func TestCreateOperacion_Validation(t *testing.T) {
	tests := []struct {
		name       string
		body       string
		wantStatus int
		wantDetail string
	}{
		{"missing fields", `{"fecha":"2024-04-01"}`, http.StatusBadRequest, "Missing required fields"},
		{"bad date", `{"fecha":"01-04-2024","tipo":"ingreso","caracter":"o","naturaleza":"n","id_persona":1,"option":"A","codigo":"X","metodo_de_pago":"e","monto_total":1,"id_subcategoria":2,"id_usuario":10}`, http.StatusBadRequest, "Invalid date"},
		{"bad amount", `{"fecha":"2024-04-01","tipo":"ingreso","caracter":"o","naturaleza":"n","id_persona":1,"option":"A","codigo":"X","metodo_de_pago":"e","monto_total":"mucho","id_subcategoria":2,"id_usuario":10}`, http.StatusBadRequest, ""},
		{"unknown persona", `{"fecha":"2024-04-01","tipo":"ingreso","caracter":"o","naturaleza":"n","id_persona":9,"option":"A","codigo":"X","metodo_de_pago":"e","monto_total":1,"id_subcategoria":2,"id_usuario":10}`, http.StatusNotFound, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			e := newTestEcho()
			h, repo, _ := setupOperacionHandler()
			repo.Personas[1] = &domain.Persona{ID: 1}
			repo.Subcategorias[2] = &domain.Subcategoria{ID: 2}

			c, rec := newJSONContext(e, http.MethodPost, "/api/operaciones", tt.body)
			if err := h.CreateOperacion(c); err != nil {
				t.Fatalf("Expected no error, got %v", err)
			}
			expectStatus(t, rec, tt.wantStatus)
			if tt.wantDetail != "" {
				if p := decodeProblem(t, rec); !strings.HasPrefix(p.Detail, tt.wantDetail) {
					t.Errorf("Expected detail starting with %q, got %q", tt.wantDetail, p.Detail)
				}
			}
		})
	}
}

func TestDeleteOperacion_Handler(t *testing.T) {
	e := newTestEcho()
	h, repo, store := setupOperacionHandler()
	seedOperacion(repo, 1, 10, "2024-01-05")
	repo.Operaciones[1].Comprobante = &domain.Archivo{Path: "operaciones/1/f.pdf", Tipo: "application/pdf"}
	store.Objects["operaciones/1/f.pdf"] = []byte("x")

	c, rec := newJSONContext(e, http.MethodDelete, "/api/operacion/1", "")
	setIDParam(c, []string{"id"}, "1")
	if err := h.DeleteOperacion(c); err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}
	expectStatus(t, rec, http.StatusNoContent)

	if _, ok := repo.Operaciones[1]; ok {
		t.Error("Expected the operation to be removed")
	}
	if len(store.Deleted) != 1 {
		t.Errorf("Expected the attachment to be removed, got %v", store.Deleted)
	}
}
