package service

import (
	"context"
	"strings"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
)

// CatalogoService handles the concepto > categoria > subcategoria classification tree
type CatalogoService struct {
	conceptoRepo     domain.ConceptoRepository
	categoriaRepo    domain.CategoriaRepository
	subcategoriaRepo domain.SubcategoriaRepository
}

// NewCatalogoService creates a new CatalogoService
func NewCatalogoService(conceptoRepo domain.ConceptoRepository, categoriaRepo domain.CategoriaRepository, subcategoriaRepo domain.SubcategoriaRepository) *CatalogoService {
	return &CatalogoService{
		conceptoRepo:     conceptoRepo,
		categoriaRepo:    categoriaRepo,
		subcategoriaRepo: subcategoriaRepo,
	}
}

// CatalogoInput holds the editable fields of a catalog entry; nil means unchanged on
// update. ParentID is ignored for conceptos.
type CatalogoInput struct {
	Nombre   *string
	ParentID *int32
}

func validateNombre(nombre *string) (string, error) {
	if nombre == nil {
		return "", domain.NewFieldError("nombre", "is required")
	}
	n := strings.TrimSpace(*nombre)
	if n == "" {
		return "", domain.NewFieldError("nombre", "is required")
	}
	if len(n) > domain.MaxNombreLength {
		return "", domain.NewFieldError("nombre", "too long")
	}
	return n, nil
}

func validateParent(field string, id *int32) (int32, error) {
	if id == nil || *id <= 0 {
		return 0, domain.NewFieldError(field, "must be a positive integer")
	}
	return *id, nil
}

// catalogoFilter builds the list filter from query params. parentID zero lists every parent.
func catalogoFilter(params map[string]string, parentID int32) domain.CatalogoFilter {
	return domain.CatalogoFilter{
		Matches:  domain.BuildFieldMatches(params, domain.CatalogoSearchFields),
		ParentID: parentID,
	}
}

// CreateConcepto creates a top level entry
func (s *CatalogoService) CreateConcepto(ctx context.Context, input CatalogoInput) (*domain.Concepto, error) {
	nombre, err := validateNombre(input.Nombre)
	if err != nil {
		return nil, err
	}
	c, err := s.conceptoRepo.Create(ctx, &domain.Concepto{Nombre: nombre})
	if err != nil {
		return nil, domain.NewPersistenceError("create concepto", err)
	}
	log.Info().Int32("concepto_id", c.ID).Msg("Concepto created")
	return c, nil
}

// GetConcepto retrieves a concepto by ID
func (s *CatalogoService) GetConcepto(ctx context.Context, id int32) (*domain.Concepto, error) {
	c, err := s.conceptoRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get concepto", err)
	}
	return c, nil
}

// ListConceptos returns one page of conceptos
func (s *CatalogoService) ListConceptos(ctx context.Context, params map[string]string, page domain.Pagination) (*domain.Paginated[domain.Concepto], error) {
	result, err := s.conceptoRepo.List(ctx, catalogoFilter(params, 0), page.Normalize())
	if err != nil {
		return nil, domain.NewPersistenceError("list conceptos", err)
	}
	return result, nil
}

// UpdateConcepto renames a concepto
func (s *CatalogoService) UpdateConcepto(ctx context.Context, id int32, input CatalogoInput) (*domain.Concepto, error) {
	nombre, err := validateNombre(input.Nombre)
	if err != nil {
		return nil, err
	}
	c, err := s.conceptoRepo.Update(ctx, &domain.Concepto{ID: id, Nombre: nombre})
	if err != nil {
		return nil, domain.NewPersistenceError("update concepto", err)
	}
	return c, nil
}

// DeleteConcepto removes a concepto without categorias
func (s *CatalogoService) DeleteConcepto(ctx context.Context, id int32) error {
	if err := s.conceptoRepo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete concepto", err)
	}
	log.Info().Int32("concepto_id", id).Msg("Concepto deleted")
	return nil
}

// CreateCategoria creates a categoria under an existing concepto
func (s *CatalogoService) CreateCategoria(ctx context.Context, input CatalogoInput) (*domain.Categoria, error) {
	nombre, err := validateNombre(input.Nombre)
	if err != nil {
		return nil, err
	}
	parent, err := validateParent("id_concepto", input.ParentID)
	if err != nil {
		return nil, err
	}
	c, err := s.categoriaRepo.Create(ctx, &domain.Categoria{Nombre: nombre, IDConcepto: parent})
	if err != nil {
		return nil, domain.NewPersistenceError("create categoria", err)
	}
	log.Info().Int32("categoria_id", c.ID).Msg("Categoria created")
	return c, nil
}

// GetCategoria retrieves a categoria by ID
func (s *CatalogoService) GetCategoria(ctx context.Context, id int32) (*domain.Categoria, error) {
	c, err := s.categoriaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get categoria", err)
	}
	return c, nil
}

// ListCategorias returns one page of categorias, optionally of one concepto
func (s *CatalogoService) ListCategorias(ctx context.Context, params map[string]string, idConcepto int32, page domain.Pagination) (*domain.Paginated[domain.Categoria], error) {
	result, err := s.categoriaRepo.List(ctx, catalogoFilter(params, idConcepto), page.Normalize())
	if err != nil {
		return nil, domain.NewPersistenceError("list categorias", err)
	}
	return result, nil
}

// UpdateCategoria renames a categoria or moves it to another concepto
func (s *CatalogoService) UpdateCategoria(ctx context.Context, id int32, input CatalogoInput) (*domain.Categoria, error) {
	existing, err := s.categoriaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get categoria", err)
	}
	if input.Nombre == nil && input.ParentID == nil {
		return nil, domain.ErrNoValidFields
	}
	updated := *existing
	if input.Nombre != nil {
		if updated.Nombre, err = validateNombre(input.Nombre); err != nil {
			return nil, err
		}
	}
	if input.ParentID != nil {
		if updated.IDConcepto, err = validateParent("id_concepto", input.ParentID); err != nil {
			return nil, err
		}
	}
	c, err := s.categoriaRepo.Update(ctx, &updated)
	if err != nil {
		return nil, domain.NewPersistenceError("update categoria", err)
	}
	return c, nil
}

// DeleteCategoria removes a categoria without subcategorias
func (s *CatalogoService) DeleteCategoria(ctx context.Context, id int32) error {
	if err := s.categoriaRepo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete categoria", err)
	}
	log.Info().Int32("categoria_id", id).Msg("Categoria deleted")
	return nil
}

// CreateSubcategoria creates a subcategoria under an existing categoria
func (s *CatalogoService) CreateSubcategoria(ctx context.Context, input CatalogoInput) (*domain.Subcategoria, error) {
	nombre, err := validateNombre(input.Nombre)
	if err != nil {
		return nil, err
	}
	parent, err := validateParent("id_categoria", input.ParentID)
	if err != nil {
		return nil, err
	}
	sub, err := s.subcategoriaRepo.Create(ctx, &domain.Subcategoria{Nombre: nombre, IDCategoria: parent})
	if err != nil {
		return nil, domain.NewPersistenceError("create subcategoria", err)
	}
	log.Info().Int32("subcategoria_id", sub.ID).Msg("Subcategoria created")
	return sub, nil
}

// GetSubcategoria retrieves a subcategoria by ID
func (s *CatalogoService) GetSubcategoria(ctx context.Context, id int32) (*domain.Subcategoria, error) {
	sub, err := s.subcategoriaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get subcategoria", err)
	}
	return sub, nil
}

// ListSubcategorias returns one page of subcategorias, optionally of one categoria
func (s *CatalogoService) ListSubcategorias(ctx context.Context, params map[string]string, idCategoria int32, page domain.Pagination) (*domain.Paginated[domain.Subcategoria], error) {
	result, err := s.subcategoriaRepo.List(ctx, catalogoFilter(params, idCategoria), page.Normalize())
	if err != nil {
		return nil, domain.NewPersistenceError("list subcategorias", err)
	}
	return result, nil
}

// UpdateSubcategoria renames a subcategoria or moves it to another categoria
func (s *CatalogoService) UpdateSubcategoria(ctx context.Context, id int32, input CatalogoInput) (*domain.Subcategoria, error) {
	existing, err := s.subcategoriaRepo.GetByID(ctx, id)
	if err != nil {
		return nil, domain.NewPersistenceError("get subcategoria", err)
	}
	if input.Nombre == nil && input.ParentID == nil {
		return nil, domain.ErrNoValidFields
	}
	updated := *existing
	if input.Nombre != nil {
		if updated.Nombre, err = validateNombre(input.Nombre); err != nil {
			return nil, err
		}
	}
	if input.ParentID != nil {
		if updated.IDCategoria, err = validateParent("id_categoria", input.ParentID); err != nil {
			return nil, err
		}
	}
	sub, err := s.subcategoriaRepo.Update(ctx, &updated)
	if err != nil {
		return nil, domain.NewPersistenceError("update subcategoria", err)
	}
	return sub, nil
}

// DeleteSubcategoria removes a subcategoria that no operation references
func (s *CatalogoService) DeleteSubcategoria(ctx context.Context, id int32) error {
	if err := s.subcategoriaRepo.Delete(ctx, id); err != nil {
		return domain.NewPersistenceError("delete subcategoria", err)
	}
	log.Info().Int32("subcategoria_id", id).Msg("Subcategoria deleted")
	return nil
}
