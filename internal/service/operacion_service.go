package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/repository/storage"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/websocket"
	"github.com/rs/zerolog/log"
	"github.com/shopspring/decimal"
)

// OperacionService handles operation queries and edits
type OperacionService struct {
	repo           domain.OperacionRepository
	storage        storage.AttachmentStorage
	transition     domain.TypeTransition
	eventPublisher websocket.EventPublisher
	now            func() time.Time
}

// NewOperacionService creates a new OperacionService
func NewOperacionService(repo domain.OperacionRepository, storage storage.AttachmentStorage) *OperacionService {
	return &OperacionService{
		repo:       repo,
		storage:    storage,
		transition: domain.DefaultTypeTransition,
		now:        time.Now,
	}
}

// SetTypeTransition replaces the rule applied when an update changes tipo
func (s *OperacionService) SetTypeTransition(transition domain.TypeTransition) {
	s.transition = transition
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *OperacionService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

// publishEvent publishes a WebSocket event if a publisher is configured
func (s *OperacionService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// UpdateResult is the outcome of a single update
type UpdateResult struct {
	ID                 int32          `json:"id"`
	CamposActualizados []domain.Campo `json:"campos_actualizados"`
	ModificadoPorOtro  bool           `json:"modificado_por_otro"`
}

// UpdateOperacion applies the whitelisted fields of body to one operation on behalf of
// actor. Nothing is written when authorization fails or no field changes.
func (s *OperacionService) UpdateOperacion(ctx context.Context, actor domain.Actor, id int32, body map[string]json.RawMessage) (*UpdateResult, error) {
	patch, err := domain.ParseOperacionPatch(body)
	if err != nil {
		return nil, err
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer uow.Rollback(ctx)

	op, err := uow.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("load operacion", err)
	}

	if err := domain.AuthorizeEdit(op, actor); err != nil {
		log.Debug().Int32("operacion_id", id).Int32("usuario_id", actor.ID).Msg("Edit not allowed")
		return nil, err
	}

	changed := patch.ApplyTo(op, s.transition)
	if len(changed) == 0 {
		return nil, domain.ErrNoValidFields
	}

	if err := uow.Update(ctx, op); err != nil {
		log.Error().Err(err).Int32("operacion_id", id).Msg("Failed to update operacion")
		return nil, domain.NewPersistenceError("update operacion", err)
	}
	if err := uow.Commit(ctx); err != nil {
		log.Error().Err(err).Int32("operacion_id", id).Msg("Failed to commit operacion update")
		return nil, domain.NewPersistenceError("commit", err)
	}

	result := &UpdateResult{
		ID:                 op.ID,
		CamposActualizados: changed,
		ModificadoPorOtro:  op.ModificadoPorOtro,
	}

	log.Info().
		Int32("operacion_id", op.ID).
		Int32("usuario_id", actor.ID).
		Int("campos", len(changed)).
		Msg("Operacion updated")

	s.publishEvent(websocket.OperacionUpdated(op.IDUsuario, result))
	return result, nil
}

// BulkUpdated reports the fields changed on one operation of a bulk update
type BulkUpdated struct {
	ID                 int32          `json:"id"`
	CamposActualizados []domain.Campo `json:"campos_actualizados"`
}

// BulkResult classifies every item of a bulk update. InvalidIDs echoes ids that are not
// integers; integer ids without an operation go to NotFound.
type BulkResult struct {
	Updated    []BulkUpdated     `json:"updated"`
	NotFound   []int32           `json:"not_found"`
	Forbidden  []int32           `json:"forbidden"`
	SinCambios []int32           `json:"sin_cambios"`
	InvalidIDs []json.RawMessage `json:"ids_invalidos"`
}

func newBulkResult() *BulkResult {
	return &BulkResult{
		Updated:    []BulkUpdated{},
		NotFound:   []int32{},
		Forbidden:  []int32{},
		SinCambios: []int32{},
		InvalidIDs: []json.RawMessage{},
	}
}

// BulkUpdate applies a list of per-operation patches in a single unit of work.
//
// Items are classified in request order. All updated operations are committed together
// or not at all; when the commit fails the result still carries the not found and
// forbidden classifications, with Updated emptied.
func (s *OperacionService) BulkUpdate(ctx context.Context, actor domain.Actor, items []map[string]json.RawMessage) (*BulkResult, error) {
	parsed, err := domain.ParseBulkItems(items)
	if err != nil {
		return nil, err
	}

	uow, err := s.repo.Begin(ctx)
	if err != nil {
		return nil, domain.NewPersistenceError("begin", err)
	}
	defer uow.Rollback(ctx)

	result := newBulkResult()
	loaded := make(map[int32]*domain.Operacion)
	var dirty []int32

	for _, item := range parsed {
		if !item.Resolvable() {
			result.InvalidIDs = append(result.InvalidIDs, item.RawID)
			continue
		}
		op, ok := loaded[item.ID]
		if !ok {
			if item.ID <= 0 {
				result.NotFound = append(result.NotFound, item.ID)
				continue
			}
			op, err = uow.GetByID(ctx, item.ID)
			if errors.Is(err, domain.ErrNotFound) {
				result.NotFound = append(result.NotFound, item.ID)
				continue
			}
			if err != nil {
				return nil, domain.NewPersistenceError("load operacion", err)
			}
			loaded[item.ID] = op
		}

		before := op.Clone()
		if err := domain.AuthorizeEdit(op, actor); err != nil {
			result.Forbidden = append(result.Forbidden, item.ID)
			continue
		}

		changed := item.Patch.ApplyTo(op, s.transition)
		if len(changed) == 0 {
			*op = *before
			result.SinCambios = append(result.SinCambios, item.ID)
			continue
		}

		if !containsID(dirty, item.ID) {
			dirty = append(dirty, item.ID)
		}
		result.Updated = append(result.Updated, BulkUpdated{ID: item.ID, CamposActualizados: changed})
	}

	if len(dirty) == 0 {
		return result, nil
	}

	for _, id := range dirty {
		if err := uow.Update(ctx, loaded[id]); err != nil {
			log.Error().Err(err).Int32("operacion_id", id).Msg("Failed to update operacion in bulk")
			result.Updated = []BulkUpdated{}
			return result, domain.NewPersistenceError("update operacion", err)
		}
	}
	if err := uow.Commit(ctx); err != nil {
		log.Error().Err(err).Int("operaciones", len(dirty)).Msg("Failed to commit bulk update")
		result.Updated = []BulkUpdated{}
		return result, domain.NewPersistenceError("commit", err)
	}

	log.Info().
		Int32("usuario_id", actor.ID).
		Int("actualizadas", len(result.Updated)).
		Int("no_encontradas", len(result.NotFound)).
		Int("sin_permiso", len(result.Forbidden)).
		Msg("Bulk update committed")

	s.publishEvent(websocket.OperacionesBulkUpdated(result.Updated))
	return result, nil
}

func containsID(ids []int32, id int32) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}
	return false
}

// GetOperacion retrieves one operation
func (s *OperacionService) GetOperacion(ctx context.Context, id int32) (*domain.Operacion, error) {
	op, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get operacion", err)
	}
	return op, nil
}

// ListOperaciones returns one page of the operations matching params
func (s *OperacionService) ListOperaciones(ctx context.Context, params map[string]string, page domain.Pagination) (*domain.Paginated[domain.Operacion], error) {
	filters, err := domain.BuildOperacionFilters(params)
	if err != nil {
		return nil, err
	}
	result, err := s.repo.List(ctx, filters, page.Normalize())
	if err != nil {
		log.Error().Err(err).Msg("Failed to list operaciones")
		return nil, domain.NewPersistenceError("list operaciones", err)
	}
	return result, nil
}

// CreateOperacionInput holds the input for creating an operation
type CreateOperacionInput struct {
	Fecha          time.Time
	Tipo           domain.TipoOperacion
	Caracter       string
	Naturaleza     string
	IDPersona      int32
	Option         string
	Codigo         string
	Observaciones  string
	MetodoDePago   string
	MontoTotal     decimal.Decimal
	IDSubcategoria int32
	IDUsuario      int32
}

// CreateOperacion registers a new operation with every attachment slot empty
func (s *OperacionService) CreateOperacion(ctx context.Context, input CreateOperacionInput) (*domain.Operacion, error) {
	if len(input.Observaciones) > domain.MaxObservacionesLength {
		return nil, domain.NewFieldError(string(domain.CampoObservaciones), "too long")
	}

	op := &domain.Operacion{
		Fecha:          input.Fecha,
		Tipo:           input.Tipo,
		Caracter:       input.Caracter,
		Naturaleza:     input.Naturaleza,
		IDPersona:      input.IDPersona,
		Option:         input.Option,
		Codigo:         input.Codigo,
		Observaciones:  input.Observaciones,
		MetodoDePago:   input.MetodoDePago,
		MontoTotal:     input.MontoTotal,
		IDSubcategoria: input.IDSubcategoria,
		IDUsuario:      input.IDUsuario,
	}

	created, err := s.repo.Create(ctx, op)
	if err != nil {
		log.Error().Err(err).Msg("Failed to create operacion")
		return nil, domain.NewPersistenceError("create operacion", err)
	}

	log.Info().Int32("operacion_id", created.ID).Int32("usuario_id", created.IDUsuario).Msg("Operacion created")
	s.publishEvent(websocket.OperacionCreated(created.IDUsuario, created))
	return created, nil
}

// DeleteOperacion removes the stored attachments of an operation and then the operation
func (s *OperacionService) DeleteOperacion(ctx context.Context, id int32) error {
	op, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return domain.NewPersistenceError("get operacion", err)
	}

	for _, path := range op.ArchivoPaths() {
		if err := s.storage.Delete(ctx, path); err != nil {
			log.Error().Err(err).Int32("operacion_id", id).Str("path", path).Msg("Failed to delete attachment")
			return domain.NewPersistenceError("delete archivo", err)
		}
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		log.Error().Err(err).Int32("operacion_id", id).Msg("Failed to delete operacion")
		return domain.NewPersistenceError("delete operacion", err)
	}

	log.Info().Int32("operacion_id", id).Msg("Operacion deleted")
	s.publishEvent(websocket.OperacionDeleted(op.IDUsuario, map[string]int32{"id": id}))
	return nil
}
