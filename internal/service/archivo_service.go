package service

import (
	"context"
	"errors"
	"fmt"
	"io"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/repository/storage"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/websocket"
	"github.com/rs/zerolog/log"
)

const (
	// MaxArchivoSize is the largest accepted attachment
	MaxArchivoSize = 10 * 1024 * 1024 // 10MB
	// DefaultPresignExpiry is used when no expiry is configured
	DefaultPresignExpiry = 15 * time.Minute
)

var (
	ErrArchivoTooLarge = fmt.Errorf("%w: file too large. Maximum size is 10MB", domain.ErrValidation)
	ErrArchivoEmpty    = fmt.Errorf("%w: empty file", domain.ErrValidation)
	ErrNoArchivos      = fmt.Errorf("%w: no files sent", domain.ErrValidation)
)

// ArchivoUpload is one file received for an attachment slot
type ArchivoUpload struct {
	Filename    string
	ContentType string
	Size        int64
	Content     io.Reader
}

func (u ArchivoUpload) validate() error {
	if u.Filename == "" || u.Size == 0 {
		return ErrArchivoEmpty
	}
	if u.Size > MaxArchivoSize {
		return ErrArchivoTooLarge
	}
	return nil
}

// ArchivoResult is the outcome of replacing one attachment
type ArchivoResult struct {
	ArchivoActualizado domain.ArchivoSlot `json:"archivo_actualizado"`
	ModificadoPorOtro  bool               `json:"modificado_por_otro"`
}

// ArchivoService manages the attachment slots of operations
type ArchivoService struct {
	repo           domain.OperacionRepository
	storage        storage.AttachmentStorage
	presignExpiry  time.Duration
	eventPublisher websocket.EventPublisher
}

// NewArchivoService creates a new ArchivoService
func NewArchivoService(repo domain.OperacionRepository, storage storage.AttachmentStorage, presignExpiry time.Duration) *ArchivoService {
	if presignExpiry <= 0 {
		presignExpiry = DefaultPresignExpiry
	}
	return &ArchivoService{repo: repo, storage: storage, presignExpiry: presignExpiry}
}

// SetEventPublisher sets the event publisher for real-time updates
func (s *ArchivoService) SetEventPublisher(publisher websocket.EventPublisher) {
	s.eventPublisher = publisher
}

func (s *ArchivoService) publishEvent(event websocket.Event) {
	if s.eventPublisher != nil {
		s.eventPublisher.Publish(event)
	}
}

// UpdateArchivo replaces the file stored in one slot. The same ownership rule as field
// edits applies, including its effect on modificado_por_otro. The previous object is
// removed once the new path is committed.
func (s *ArchivoService) UpdateArchivo(ctx context.Context, actor domain.Actor, id int32, campo string, upload ArchivoUpload) (*ArchivoResult, error) {
	slot, err := domain.ParseArchivoSlot(campo)
	if err != nil {
		return nil, err
	}
	if err := upload.validate(); err != nil {
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
		return nil, err
	}

	previous := op.Archivo(slot)
	path, err := s.upload(ctx, id, upload)
	if err != nil {
		return nil, err
	}
	op.SetArchivo(slot, &domain.Archivo{Path: path, Tipo: upload.ContentType})

	if err := s.commit(ctx, uow, op, []string{path}); err != nil {
		return nil, err
	}
	if previous != nil {
		s.deleteObject(ctx, id, previous.Path)
	}

	result := &ArchivoResult{ArchivoActualizado: slot, ModificadoPorOtro: op.ModificadoPorOtro}
	log.Info().
		Int32("operacion_id", id).
		Int32("usuario_id", actor.ID).
		Str("campo", string(slot)).
		Msg("Archivo updated")
	s.publishEvent(websocket.ArchivoUpdated(op.IDUsuario, map[string]interface{}{
		"id":                  id,
		"archivo_actualizado": slot,
		"modificado_por_otro": op.ModificadoPorOtro,
	}))
	return result, nil
}

// AttachArchivos stores several slots of one operation at once. It does not touch
// modificado_por_otro.
func (s *ArchivoService) AttachArchivos(ctx context.Context, id int32, uploads map[domain.ArchivoSlot]ArchivoUpload) ([]domain.ArchivoSlot, error) {
	if len(uploads) == 0 {
		return nil, ErrNoArchivos
	}
	for _, u := range uploads {
		if err := u.validate(); err != nil {
			return nil, err
		}
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

	var (
		attached []domain.ArchivoSlot
		uploaded []string
		replaced []string
	)
	for _, slot := range domain.ArchivoSlots {
		u, ok := uploads[slot]
		if !ok {
			continue
		}
		path, err := s.upload(ctx, id, u)
		if err != nil {
			s.cleanup(ctx, id, uploaded)
			return nil, err
		}
		uploaded = append(uploaded, path)
		if prev := op.Archivo(slot); prev != nil {
			replaced = append(replaced, prev.Path)
		}
		op.SetArchivo(slot, &domain.Archivo{Path: path, Tipo: u.ContentType})
		attached = append(attached, slot)
	}

	if err := s.commit(ctx, uow, op, uploaded); err != nil {
		return nil, err
	}
	for _, path := range replaced {
		s.deleteObject(ctx, id, path)
	}

	log.Info().Int32("operacion_id", id).Int("archivos", len(attached)).Msg("Archivos attached")
	s.publishEvent(websocket.ArchivoUpdated(op.IDUsuario, map[string]interface{}{
		"id":       id,
		"archivos": attached,
	}))
	return attached, nil
}

// ArchivoURL returns a temporary download URL for the file stored in a slot
func (s *ArchivoService) ArchivoURL(ctx context.Context, id int32, campo string) (string, error) {
	slot, err := domain.ParseArchivoSlot(campo)
	if err != nil {
		return "", err
	}
	op, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", domain.NewPersistenceError("get operacion", err)
	}
	a := op.Archivo(slot)
	if a == nil || a.Path == "" {
		return "", domain.ErrArchivoNotFound
	}
	url, err := s.storage.PresignedURL(ctx, a.Path, s.presignExpiry)
	if err != nil {
		log.Error().Err(err).Int32("operacion_id", id).Str("path", a.Path).Msg("Failed to presign archivo")
		return "", domain.NewPersistenceError("presign archivo", err)
	}
	return url, nil
}

func (s *ArchivoService) upload(ctx context.Context, id int32, u ArchivoUpload) (string, error) {
	contentType := u.ContentType
	if contentType == "" {
		contentType = "application/octet-stream"
	}
	path, err := s.storage.Upload(ctx, storage.AttachmentObjectPath(id, u.Filename), u.Content, contentType, u.Size)
	if err != nil {
		log.Error().Err(err).Int32("operacion_id", id).Msg("Failed to upload archivo")
		return "", domain.NewPersistenceError("upload archivo", err)
	}
	return path, nil
}

// commit persists op, removing the freshly uploaded objects when the write fails
func (s *ArchivoService) commit(ctx context.Context, uow domain.OperacionUnitOfWork, op *domain.Operacion, uploaded []string) error {
	err := uow.Update(ctx, op)
	if err == nil {
		err = uow.Commit(ctx)
	}
	if err != nil {
		log.Error().Err(err).Int32("operacion_id", op.ID).Msg("Failed to save archivo paths")
		s.cleanup(ctx, op.ID, uploaded)
		if errors.Is(err, domain.ErrNotFound) {
			return err
		}
		return domain.NewPersistenceError("save archivo", err)
	}
	return nil
}

func (s *ArchivoService) cleanup(ctx context.Context, id int32, paths []string) {
	for _, p := range paths {
		s.deleteObject(ctx, id, p)
	}
}

func (s *ArchivoService) deleteObject(ctx context.Context, id int32, path string) {
	if err := s.storage.Delete(ctx, path); err != nil {
		log.Warn().Err(err).Int32("operacion_id", id).Str("path", path).Msg("Failed to delete archivo object")
	}
}
