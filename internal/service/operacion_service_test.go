package service

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/testutil"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

var (
	owner      = domain.Actor{ID: 10, Rol: domain.RolUsuario}
	supervisor = domain.Actor{ID: 20, Rol: domain.RolSupervisor}
	stranger   = domain.Actor{ID: 30, Rol: domain.RolUsuario}
	admin      = domain.Actor{ID: 40, Rol: domain.RolAdmin}
)

func date(s string) time.Time {
	t, err := time.Parse(domain.DateLayout, s)
	if err != nil {
		panic(err)
	}
	return t
}

func newOperacion(id, creator int32) *domain.Operacion {
	return &domain.Operacion{
		ID:             id,
		Fecha:          date("2024-02-10"),
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
	}
}

func body(t *testing.T, v map[string]any) map[string]json.RawMessage {
	t.Helper()
	raw, err := json.Marshal(v)
	require.NoError(t, err)
	var out map[string]json.RawMessage
	require.NoError(t, json.Unmarshal(raw, &out))
	return out
}

func setupOperacionService() (*OperacionService, *testutil.MemOperacionRepository, *testutil.MockAttachmentStorage, *testutil.RecordingPublisher) {
	repo := testutil.NewMemOperacionRepository()
	store := testutil.NewMockAttachmentStorage()
	pub := &testutil.RecordingPublisher{}
	svc := NewOperacionService(repo, store)
	svc.SetEventPublisher(pub)
	return svc, repo, store, pub
}

func TestUpdateOperacion_OwnerUpdatesFields(t *testing.T) {
	svc, repo, _, pub := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	result, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{
		"codigo":        "C-002",
		"observaciones": "revisado",
	}))
	require.NoError(t, err)

	assert.Equal(t, int32(1), result.ID)
	assert.Equal(t, []domain.Campo{domain.CampoCodigo, domain.CampoObservaciones}, result.CamposActualizados)
	assert.False(t, result.ModificadoPorOtro)

	stored := repo.Snapshot(1)
	assert.Equal(t, "C-002", stored.Codigo)
	assert.Equal(t, "revisado", stored.Observaciones)
	assert.Equal(t, 1, repo.Commits)
	assert.Equal(t, []string{"operacion.updated"}, pub.Types())
}

func TestUpdateOperacion_NoWhitelistedFields(t *testing.T) {
	inputs := []map[string]any{
		{},
		{"id_usuario": 99},
		{"comprobante_path": "x", "desconocido": true},
	}

	for _, in := range inputs {
		svc, repo, _, pub := setupOperacionService()
		repo.AddOperacion(newOperacion(1, owner.ID))

		_, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, in))
		assert.ErrorIs(t, err, domain.ErrNoValidFields)
		assert.ErrorIs(t, err, domain.ErrValidation)
		assert.Equal(t, 0, repo.Updates, "no write expected for %v", in)
		assert.Equal(t, 0, repo.Commits)
		assert.Empty(t, pub.Events)
	}
}

func TestUpdateOperacion_Forbidden(t *testing.T) {
	for _, actor := range []domain.Actor{stranger, admin} {
		svc, repo, _, _ := setupOperacionService()
		original := newOperacion(1, owner.ID)
		repo.AddOperacion(original)

		_, err := svc.UpdateOperacion(context.Background(), actor, 1, body(t, map[string]any{"codigo": "X"}))
		assert.ErrorIs(t, err, domain.ErrForbidden)
		assert.ErrorIs(t, err, domain.ErrEditNotAllowed)
		assert.Equal(t, original, repo.Snapshot(1), "entity must be unchanged for actor %+v", actor)
		assert.Equal(t, 0, repo.Commits)
	}
}

func TestUpdateOperacion_FlagTransitions(t *testing.T) {
	tests := []struct {
		name     string
		actor    domain.Actor
		creator  int32
		prior    bool
		wantErr  error
		wantFlag bool
	}{
		{"owner not supervisor clears flag", owner, owner.ID, true, nil, false},
		{"supervisor not owner sets flag", supervisor, owner.ID, false, nil, true},
		// owner who is also supervisor keeps the prior value on purpose
		{"owner and supervisor keeps true", supervisor, supervisor.ID, true, nil, true},
		{"owner and supervisor keeps false", supervisor, supervisor.ID, false, nil, false},
		{"neither owner nor supervisor", stranger, owner.ID, true, domain.ErrForbidden, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, repo, _, _ := setupOperacionService()
			op := newOperacion(1, tt.creator)
			op.ModificadoPorOtro = tt.prior
			repo.AddOperacion(op)

			result, err := svc.UpdateOperacion(context.Background(), tt.actor, 1, body(t, map[string]any{"codigo": "Z"}))
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
			} else {
				require.NoError(t, err)
				assert.Equal(t, tt.wantFlag, result.ModificadoPorOtro)
			}
			assert.Equal(t, tt.wantFlag, repo.Snapshot(1).ModificadoPorOtro)
		})
	}
}

func TestUpdateOperacion_NotFound(t *testing.T) {
	svc, _, _, _ := setupOperacionService()

	_, err := svc.UpdateOperacion(context.Background(), owner, 404, body(t, map[string]any{"codigo": "X"}))
	assert.ErrorIs(t, err, domain.ErrOperacionNotFound)
	assert.ErrorIs(t, err, domain.ErrNotFound)
}

func TestUpdateOperacion_InvalidValue(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	_, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"monto_total": "abc"}))
	var fieldErr *domain.FieldError
	require.ErrorAs(t, err, &fieldErr)
	assert.Equal(t, "monto_total", fieldErr.Field)
	assert.ErrorIs(t, err, domain.ErrValidation)
	assert.Equal(t, 0, repo.Updates)
}

func TestUpdateOperacion_TypeTransition(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	calls := 0
	svc.SetTypeTransition(func(op *domain.Operacion, nuevo domain.TipoOperacion) {
		calls++
		domain.DefaultTypeTransition(op, nuevo)
	})

	result, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"tipo": "ingreso"}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []domain.Campo{domain.CampoTipo}, result.CamposActualizados)

	stored := repo.Snapshot(1)
	assert.Equal(t, domain.TipoIngreso, stored.Tipo)
	assert.True(t, stored.MontoTotal.Equal(decimal.NewFromInt(150)), "got %s", stored.MontoTotal)

	// same tipo again is a no-op
	_, err = svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"tipo": "ingreso"}))
	assert.ErrorIs(t, err, domain.ErrNoValidFields)
	assert.Equal(t, 1, calls)

	result, err = svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"tipo": "ingreso", "codigo": "N"}))
	require.NoError(t, err)
	assert.Equal(t, 1, calls)
	assert.Equal(t, []domain.Campo{domain.CampoCodigo}, result.CamposActualizados)
}

func TestUpdateOperacion_CommitFailureRollsBack(t *testing.T) {
	svc, repo, _, pub := setupOperacionService()
	original := newOperacion(1, supervisor.ID+1)
	repo.AddOperacion(original)
	repo.CommitErr = errors.New("connection reset")

	_, err := svc.UpdateOperacion(context.Background(), supervisor, 1, body(t, map[string]any{"codigo": "X"}))
	assert.ErrorIs(t, err, domain.ErrPersistence)

	var persistErr *domain.PersistenceError
	require.ErrorAs(t, err, &persistErr)
	assert.Contains(t, persistErr.Error(), "connection reset")

	assert.Equal(t, original, repo.Snapshot(1))
	assert.Empty(t, pub.Events)
}

func TestUpdateOperacion_BeginFailure(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))
	repo.BeginErr = errors.New("pool closed")

	_, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"codigo": "X"}))
	assert.ErrorIs(t, err, domain.ErrPersistence)
}

func bulkItems(t *testing.T, items ...map[string]any) []map[string]json.RawMessage {
	t.Helper()
	out := make([]map[string]json.RawMessage, len(items))
	for i, item := range items {
		out[i] = body(t, item)
	}
	return out
}

func TestBulkUpdate_PartialNotFound(t *testing.T) {
	svc, repo, _, pub := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))
	repo.AddOperacion(newOperacion(3, owner.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "B1"},
		map[string]any{"id": 2, "codigo": "B2"},
		map[string]any{"id": 3, "naturaleza": "bien"},
	))
	require.NoError(t, err)

	require.Len(t, result.Updated, 2)
	assert.Equal(t, BulkUpdated{ID: 1, CamposActualizados: []domain.Campo{domain.CampoCodigo}}, result.Updated[0])
	assert.Equal(t, BulkUpdated{ID: 3, CamposActualizados: []domain.Campo{domain.CampoNaturaleza}}, result.Updated[1])
	assert.Equal(t, []int32{2}, result.NotFound)
	assert.Empty(t, result.Forbidden)

	assert.Equal(t, 1, repo.Commits)
	assert.Nil(t, repo.Snapshot(2))
	assert.Equal(t, "B1", repo.Snapshot(1).Codigo)
	assert.Equal(t, "bien", repo.Snapshot(3).Naturaleza)
	assert.Equal(t, []string{"operacion.bulk_updated"}, pub.Types())
}

func TestBulkUpdate_UnknownIDsDoNotFailTheBatch(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "B1"},
		map[string]any{"id": -5, "codigo": "B2"},
		map[string]any{"id": 0, "codigo": "B3"},
		map[string]any{"id": "abc", "codigo": "B4"},
	))
	require.NoError(t, err)

	require.Len(t, result.Updated, 1)
	assert.Equal(t, int32(1), result.Updated[0].ID)
	assert.Equal(t, []int32{-5, 0}, result.NotFound)
	require.Len(t, result.InvalidIDs, 1)
	assert.JSONEq(t, `"abc"`, string(result.InvalidIDs[0]))

	assert.Equal(t, 1, repo.Commits)
	assert.Equal(t, "B1", repo.Snapshot(1).Codigo)
}

func TestBulkUpdate_ClassifiesForbidden(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))
	repo.AddOperacion(newOperacion(2, stranger.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "ok"},
		map[string]any{"id": 2, "codigo": "nope"},
	))
	require.NoError(t, err)

	assert.Len(t, result.Updated, 1)
	assert.Equal(t, []int32{2}, result.Forbidden)
	assert.Equal(t, "C-001", repo.Snapshot(2).Codigo)
}

func TestBulkUpdate_CommitFailureRollsBackEverything(t *testing.T) {
	svc, repo, _, pub := setupOperacionService()
	first := newOperacion(1, owner.ID)
	second := newOperacion(2, owner.ID)
	repo.AddOperacion(first)
	repo.AddOperacion(second)
	repo.AddOperacion(newOperacion(5, stranger.ID))
	repo.CommitErr = errors.New("serialization failure")

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "X1"},
		map[string]any{"id": 9, "codigo": "X9"},
		map[string]any{"id": 5, "codigo": "X5"},
		map[string]any{"id": 2, "tipo": "ingreso"},
	))
	assert.ErrorIs(t, err, domain.ErrPersistence)
	require.NotNil(t, result)

	assert.Empty(t, result.Updated)
	assert.Equal(t, []int32{9}, result.NotFound)
	assert.Equal(t, []int32{5}, result.Forbidden)

	assert.Equal(t, first, repo.Snapshot(1))
	assert.Equal(t, second, repo.Snapshot(2))
	assert.Empty(t, pub.Events)
}

func TestBulkUpdate_NothingUpdatedSkipsCommit(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, stranger.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "X"},
		map[string]any{"id": 7, "codigo": "Y"},
	))
	require.NoError(t, err)
	assert.Empty(t, result.Updated)
	assert.Equal(t, 0, repo.Commits)
	assert.Equal(t, 0, repo.Updates)
}

func TestBulkUpdate_MissingIDFailsBatch(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "X"},
		map[string]any{"codigo": "Y"},
	))
	assert.Nil(t, result)
	assert.ErrorIs(t, err, domain.ErrBulkItemWithoutID)
	assert.Equal(t, "C-001", repo.Snapshot(1).Codigo)
	assert.Equal(t, 0, repo.Commits)
}

func TestBulkUpdate_SinCambiosDiscardsFlag(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	op := newOperacion(1, owner.ID)
	repo.AddOperacion(op)

	result, err := svc.BulkUpdate(context.Background(), supervisor, bulkItems(t,
		map[string]any{"id": 1, "tipo": "egreso"},
	))
	require.NoError(t, err)
	assert.Equal(t, []int32{1}, result.SinCambios)
	assert.Empty(t, result.Updated)
	assert.Equal(t, 0, repo.Commits)
	assert.False(t, repo.Snapshot(1).ModificadoPorOtro)
}

func TestBulkUpdate_RepeatedIDLastWriteWins(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	result, err := svc.BulkUpdate(context.Background(), owner, bulkItems(t,
		map[string]any{"id": 1, "codigo": "first", "option": "B"},
		map[string]any{"id": 1, "codigo": "second"},
	))
	require.NoError(t, err)
	assert.Len(t, result.Updated, 2)
	assert.Equal(t, 1, repo.Updates)

	stored := repo.Snapshot(1)
	assert.Equal(t, "second", stored.Codigo)
	assert.Equal(t, "B", stored.Option)
}

// Two requests touching the same operation are not serialized; the later commit wins.
func TestUpdateOperacion_ConcurrentLastCommitWins(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	repo.AddOperacion(newOperacion(1, owner.ID))

	_, err := svc.UpdateOperacion(context.Background(), owner, 1, body(t, map[string]any{"codigo": "A"}))
	require.NoError(t, err)
	_, err = svc.UpdateOperacion(context.Background(), supervisor, 1, body(t, map[string]any{"codigo": "B"}))
	require.NoError(t, err)

	stored := repo.Snapshot(1)
	assert.Equal(t, "B", stored.Codigo)
	assert.True(t, stored.ModificadoPorOtro)
}

func seedListing(repo *testutil.MemOperacionRepository) {
	repo.Personas[1] = &domain.Persona{ID: 1, CUIT: "20-11111111-1", RazonSocial: "Acme SA"}
	repo.Personas[2] = &domain.Persona{ID: 2, CUIT: "27-22222222-2", RazonSocial: "Globex SRL"}
	repo.Conceptos[1] = &domain.Concepto{ID: 1, Nombre: "Operativo"}
	repo.Categorias[1] = &domain.Categoria{ID: 1, Nombre: "Servicios", IDConcepto: 1}
	repo.Subcategorias[1] = &domain.Subcategoria{ID: 1, Nombre: "Internet", IDCategoria: 1}
	repo.Usuarios[owner.ID] = &domain.Usuario{ID: owner.ID, Nombre: "Ana", Apellido: "Gómez"}

	for i, fecha := range []string{"2023-12-31", "2024-01-01", "2024-02-15", "2024-03-31", "2024-04-01"} {
		op := newOperacion(int32(i+1), owner.ID)
		op.Fecha = date(fecha)
		if i%2 == 0 {
			op.IDPersona = 2
		}
		repo.AddOperacion(op)
	}
}

func TestListOperaciones_DateRange(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	page, err := svc.ListOperaciones(context.Background(), map[string]string{"fecha": "2024-01:2024-03"}, domain.Pagination{})
	require.NoError(t, err)

	assert.Equal(t, int64(3), page.Total)
	var fechas []string
	for _, op := range page.Data {
		fechas = append(fechas, op.Fecha.Format(domain.DateLayout))
	}
	assert.Equal(t, []string{"2024-01-01", "2024-02-15", "2024-03-31"}, fechas)
}

func TestListOperaciones_DateText(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	page, err := svc.ListOperaciones(context.Background(), map[string]string{"fecha": "2024"}, domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(4), page.Total)
}

func TestListOperaciones_InvalidDate(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	_, err := svc.ListOperaciones(context.Background(), map[string]string{"fecha": "ayer:hoy"}, domain.Pagination{})
	assert.ErrorIs(t, err, domain.ErrInvalidDate)
}

func TestListOperaciones_Pagination(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	page, err := svc.ListOperaciones(context.Background(), map[string]string{"page": "2"}, domain.Pagination{Page: 2, PerPage: 2})
	require.NoError(t, err)
	assert.Equal(t, int64(5), page.Total)
	assert.Equal(t, int32(3), page.Pages)
	require.Len(t, page.Data, 2)
	assert.Equal(t, int32(3), page.Data[0].ID)

	page, err = svc.ListOperaciones(context.Background(), nil, domain.Pagination{PerPage: 1000})
	require.NoError(t, err)
	assert.Equal(t, int32(domain.MaxPerPage), page.PerPage)
	assert.Equal(t, int32(1), page.Page)
}

func TestListOperaciones_RelatedPersona(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	page, err := svc.ListOperaciones(context.Background(), map[string]string{"persona": "globex"}, domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(3), page.Total)

	page, err = svc.ListOperaciones(context.Background(), map[string]string{"persona": "20-111"}, domain.Pagination{})
	require.NoError(t, err)
	assert.Equal(t, int64(2), page.Total)
}

func TestExportOperaciones_RowCountMatchesListing(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)
	svc.now = func() time.Time { return time.Date(2024, 5, 6, 7, 8, 9, 0, time.UTC) }

	for _, params := range []map[string]string{
		{},
		{"fecha": "2024-01:2024-03"},
		{"persona": "acme", "fecha": "2024"},
		{"codigo": "no-existe"},
	} {
		listing, err := svc.ListOperaciones(context.Background(), params, domain.Pagination{})
		require.NoError(t, err)

		export, err := svc.ExportOperaciones(context.Background(), params)
		require.NoError(t, err)
		assert.Equal(t, "operaciones_2024-05-06_07-08-09.xlsx", export.Filename)
		assert.Equal(t, int(listing.Total), export.Rows)

		f, err := excelize.OpenReader(bytes.NewReader(export.Content))
		require.NoError(t, err)
		rows, err := f.GetRows("Operaciones")
		require.NoError(t, err)
		assert.Len(t, rows, int(listing.Total)+1, "params %v", params)
		f.Close()
	}
}

func TestExportOperaciones_ResolvedNames(t *testing.T) {
	svc, repo, _, _ := setupOperacionService()
	seedListing(repo)

	export, err := svc.ExportOperaciones(context.Background(), map[string]string{"id": "2"})
	require.NoError(t, err)

	f, err := excelize.OpenReader(bytes.NewReader(export.Content))
	require.NoError(t, err)
	defer f.Close()
	rows, err := f.GetRows("Operaciones")
	require.NoError(t, err)
	require.Len(t, rows, 2)

	row := rows[1]
	assert.Equal(t, "2", row[0])
	assert.Equal(t, "2024-01-01", row[1])
	assert.Equal(t, "Acme SA", row[6])
	assert.Equal(t, "Operativo", row[12])
	assert.Equal(t, "Servicios", row[13])
	assert.Equal(t, "Internet", row[14])
	assert.Equal(t, "Ana Gómez", row[15])
}

func TestCreateOperacion(t *testing.T) {
	svc, repo, _, pub := setupOperacionService()

	created, err := svc.CreateOperacion(context.Background(), CreateOperacionInput{
		Fecha:          date("2024-06-01"),
		Tipo:           domain.TipoIngreso,
		Caracter:       "ordinario",
		Naturaleza:     "bien",
		IDPersona:      1,
		Option:         "A",
		Codigo:         "N-1",
		MetodoDePago:   "efectivo",
		MontoTotal:     decimal.RequireFromString("99.90"),
		IDSubcategoria: 1,
		IDUsuario:      owner.ID,
	})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Empty(t, created.ArchivoPaths())
	assert.False(t, created.ModificadoPorOtro)
	assert.NotNil(t, repo.Snapshot(created.ID))
	assert.Equal(t, []string{"operacion.created"}, pub.Types())
}

func TestDeleteOperacion_RemovesAttachments(t *testing.T) {
	svc, repo, store, pub := setupOperacionService()
	op := newOperacion(1, owner.ID)
	op.Comprobante = &domain.Archivo{Path: "operaciones/1/a_factura.pdf", Tipo: "application/pdf"}
	op.Archivo2 = &domain.Archivo{Path: "operaciones/1/b_foto.png", Tipo: "image/png"}
	repo.AddOperacion(op)

	require.NoError(t, svc.DeleteOperacion(context.Background(), 1))
	assert.ElementsMatch(t, []string{"operaciones/1/a_factura.pdf", "operaciones/1/b_foto.png"}, store.Deleted)
	assert.Nil(t, repo.Snapshot(1))
	assert.Equal(t, []string{"operacion.deleted"}, pub.Types())

	err := svc.DeleteOperacion(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrOperacionNotFound)
}

func TestDeleteOperacion_StorageFailureKeepsRecord(t *testing.T) {
	svc, repo, store, _ := setupOperacionService()
	op := newOperacion(1, owner.ID)
	op.Archivo1 = &domain.Archivo{Path: "operaciones/1/x.pdf", Tipo: "application/pdf"}
	repo.AddOperacion(op)
	store.DeleteErr = errors.New("s3 unavailable")

	err := svc.DeleteOperacion(context.Background(), 1)
	assert.ErrorIs(t, err, domain.ErrPersistence)
	assert.NotNil(t, repo.Snapshot(1))
}
