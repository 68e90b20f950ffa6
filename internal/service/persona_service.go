package service

import (
	"context"
	"strings"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// PersonaService handles the counterparties of operations
type PersonaService struct {
	personaRepo domain.PersonaRepository
}

// NewPersonaService creates a new PersonaService
func NewPersonaService(personaRepo domain.PersonaRepository) *PersonaService {
	return &PersonaService{personaRepo: personaRepo}
}

// PersonaInput holds the editable persona fields; nil means unchanged on update
type PersonaInput struct {
	CUIT        *string
	RazonSocial *string
}

func validatePersonaField(field string, v *string) (string, error) {
	s := strings.TrimSpace(*v)
	if s == "" {
		return "", domain.NewFieldError(field, "is required")
	}
	if len(s) > domain.MaxNombreLength {
		return "", domain.NewFieldError(field, "too long")
	}
	return s, nil
}

// CreatePersona registers a new persona. CUITs are unique.
func (s *PersonaService) CreatePersona(ctx context.Context, input PersonaInput) (*domain.Persona, error) {
	if input.CUIT == nil {
		return nil, domain.NewFieldError("cuit", "is required")
	}
	if input.RazonSocial == nil {
		return nil, domain.NewFieldError("razon_social", "is required")
	}
	cuit, err := validatePersonaField("cuit", input.CUIT)
	if err != nil {
		return nil, err
	}
	razon, err := validatePersonaField("razon_social", input.RazonSocial)
	if err != nil {
		return nil, err
	}

	p, err := s.personaRepo.Create(ctx, &domain.Persona{CUIT: cuit, RazonSocial: razon})
	if err != nil {
		return nil, domain.NewPersistenceError("create persona", err)
	}
	log.Info().Int32("persona_id", p.ID).Msg("Persona created")
	return p, nil
}

// GetPersona retrieves a persona by ID
func (s *PersonaService) GetPersona(ctx context.Context, id int32) (*domain.Persona, error) {
	p, err := s.personaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get persona", err)
	}
	return p, nil
}

// ListPersonas returns one page of the personas matching params
func (s *PersonaService) ListPersonas(ctx context.Context, params map[string]string, page domain.Pagination) (*domain.Paginated[domain.Persona], error) {
	result, err := s.personaRepo.List(ctx, domain.BuildFieldMatches(params, domain.PersonaSearchFields), page.Normalize())
	if err != nil {
		return nil, domain.NewPersistenceError("list personas", err)
	}
	return result, nil
}

// UpdatePersona applies the present fields of input
func (s *PersonaService) UpdatePersona(ctx context.Context, id int32, input PersonaInput) (*domain.Persona, error) {
	existing, err := s.personaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get persona", err)
	}
	if input.CUIT == nil && input.RazonSocial == nil {
		return nil, domain.ErrNoValidFields
	}

	updated := *existing
	if input.CUIT != nil {
		if updated.CUIT, err = validatePersonaField("cuit", input.CUIT); err != nil {
			return nil, err
		}
	}
	if input.RazonSocial != nil {
		if updated.RazonSocial, err = validatePersonaField("razon_social", input.RazonSocial); err != nil {
			return nil, err
		}
	}

	p, err := s.personaRepo.Update(ctx, &updated)
	if err != nil {
		return nil, domain.NewPersistenceError("update persona", err)
	}
	log.Info().Int32("persona_id", id).Msg("Persona updated")
	return p, nil
}

// DeletePersona removes a persona that no operation references
func (s *PersonaService) DeletePersona(ctx context.Context, id int32) error {
	if err := s.personaRepo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete persona", err)
	}
	log.Info().Int32("persona_id", id).Msg("Persona deleted")
	return nil
}
