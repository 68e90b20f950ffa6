package domain

import "context"

// Concepto is the top level of the classification tree.
type Concepto struct {
	ID     int32  `json:"id"`
	Nombre string `json:"nombre"`
}

// Categoria belongs to exactly one Concepto.
type Categoria struct {
	ID         int32  `json:"id"`
	Nombre     string `json:"nombre"`
	IDConcepto int32  `json:"id_concepto"`
}

// Subcategoria belongs to exactly one Categoria and is what operations reference.
type Subcategoria struct {
	ID          int32  `json:"id"`
	Nombre      string `json:"nombre"`
	IDCategoria int32  `json:"id_categoria"`
}

// CatalogoSearchFields are the list filters accepted for every catalog level.
var CatalogoSearchFields = []string{"id", "nombre"}

// CatalogoFilter narrows a catalog listing. ParentID is zero when unset.
type CatalogoFilter struct {
	Matches  []FieldMatch
	ParentID int32
}

type ConceptoRepository interface {
	Create(ctx context.Context, c *Concepto) (*Concepto, error)
	GetByID(ctx context.Context, id int32) (*Concepto, error)
	List(ctx context.Context, filter CatalogoFilter, page Pagination) (*Paginated[Concepto], error)
	Update(ctx context.Context, c *Concepto) (*Concepto, error)
	Delete(ctx context.Context, id int32) error
}

type CategoriaRepository interface {
	Create(ctx context.Context, c *Categoria) (*Categoria, error)
	GetByID(ctx context.Context, id int32) (*Categoria, error)
	List(ctx context.Context, filter CatalogoFilter, page Pagination) (*Paginated[Categoria], error)
	Update(ctx context.Context, c *Categoria) (*Categoria, error)
	Delete(ctx context.Context, id int32) error
}

type SubcategoriaRepository interface {
	Create(ctx context.Context, s *Subcategoria) (*Subcategoria, error)
	GetByID(ctx context.Context, id int32) (*Subcategoria, error)
	List(ctx context.Context, filter CatalogoFilter, page Pagination) (*Paginated[Subcategoria], error)
	Update(ctx context.Context, s *Subcategoria) (*Subcategoria, error)
	Delete(ctx context.Context, id int32) error
}
