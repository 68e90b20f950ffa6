package domain

import (
	"context"
	"time"

	"github.com/shopspring/decimal"
)

type TipoOperacion string

const (
	TipoIngreso TipoOperacion = "ingreso"
	TipoEgreso  TipoOperacion = "egreso"
)

// DateLayout is the wire and text representation of Operacion.Fecha.
const DateLayout = "2006-01-02"

// Archivo is one attachment slot. A nil *Archivo means the slot is empty; path and MIME
// type are never set independently.
type Archivo struct {
	Path string `json:"path"`
	Tipo string `json:"tipo"`
}

type ArchivoSlot string

const (
	SlotComprobante ArchivoSlot = "comprobante"
	SlotArchivo1    ArchivoSlot = "archivo1"
	SlotArchivo2    ArchivoSlot = "archivo2"
	SlotArchivo3    ArchivoSlot = "archivo3"
)

// ArchivoSlots lists every attachment slot in storage order.
var ArchivoSlots = []ArchivoSlot{SlotComprobante, SlotArchivo1, SlotArchivo2, SlotArchivo3}

// ParseArchivoSlot validates an attachment slot name.
func ParseArchivoSlot(s string) (ArchivoSlot, error) {
	for _, slot := range ArchivoSlots {
		if string(slot) == s {
			return slot, nil
		}
	}
	return "", ErrInvalidArchivoSlot
}

// Operacion is a financial operation owned by the user that created it.
type Operacion struct {
	ID                int32           `json:"id"`
	Fecha             time.Time       `json:"fecha"`
	Tipo              TipoOperacion   `json:"tipo"`
	Caracter          string          `json:"caracter"`
	Naturaleza        string          `json:"naturaleza"`
	IDPersona         int32           `json:"id_persona"`
	Option            string          `json:"option"`
	Codigo            string          `json:"codigo"`
	Observaciones     string          `json:"observaciones"`
	MetodoDePago      string          `json:"metodo_de_pago"`
	MontoTotal        decimal.Decimal `json:"monto_total"`
	IDSubcategoria    int32           `json:"id_subcategoria"`
	IDUsuario         int32           `json:"id_usuario"`
	Comprobante       *Archivo        `json:"comprobante,omitempty"`
	Archivo1          *Archivo        `json:"archivo1,omitempty"`
	Archivo2          *Archivo        `json:"archivo2,omitempty"`
	Archivo3          *Archivo        `json:"archivo3,omitempty"`
	ModificadoPorOtro bool            `json:"modificado_por_otro"`
}

// Archivo returns the attachment stored in slot, or nil.
func (o *Operacion) Archivo(slot ArchivoSlot) *Archivo {
	switch slot {
	case SlotComprobante:
		return o.Comprobante
	case SlotArchivo1:
		return o.Archivo1
	case SlotArchivo2:
		return o.Archivo2
	case SlotArchivo3:
		return o.Archivo3
	}
	return nil
}

// SetArchivo replaces the attachment stored in slot. Passing nil empties the slot.
func (o *Operacion) SetArchivo(slot ArchivoSlot, a *Archivo) {
	switch slot {
	case SlotComprobante:
		o.Comprobante = a
	case SlotArchivo1:
		o.Archivo1 = a
	case SlotArchivo2:
		o.Archivo2 = a
	case SlotArchivo3:
		o.Archivo3 = a
	}
}

// ArchivoPaths returns the storage paths of every non-empty slot.
func (o *Operacion) ArchivoPaths() []string {
	var paths []string
	for _, slot := range ArchivoSlots {
		if a := o.Archivo(slot); a != nil && a.Path != "" {
			paths = append(paths, a.Path)
		}
	}
	return paths
}

// Clone returns a deep copy.
func (o *Operacion) Clone() *Operacion {
	c := *o
	for _, slot := range ArchivoSlots {
		if a := o.Archivo(slot); a != nil {
			cp := *a
			c.SetArchivo(slot, &cp)
		}
	}
	return &c
}

// ActualizarTipo moves the operation to a new type. Income amounts are kept
// non-negative and expense amounts non-positive; other codes keep the amount untouched.
func (o *Operacion) ActualizarTipo(nuevo TipoOperacion) {
	o.Tipo = nuevo
	switch nuevo {
	case TipoIngreso:
		o.MontoTotal = o.MontoTotal.Abs()
	case TipoEgreso:
		o.MontoTotal = o.MontoTotal.Abs().Neg()
	}
}

// TypeTransition applies the side effects of a type change to an operation.
type TypeTransition func(op *Operacion, nuevo TipoOperacion)

// DefaultTypeTransition delegates to Operacion.ActualizarTipo.
var DefaultTypeTransition TypeTransition = (*Operacion).ActualizarTipo

// OperacionDetalle is an operation with its related entities resolved to names, used for
// tabular export.
type OperacionDetalle struct {
	Operacion
	PersonaCUIT        string
	PersonaRazonSocial string
	SubcategoriaNombre string
	CategoriaNombre    string
	ConceptoNombre     string
	UsuarioNombre      string
	UsuarioApellido    string
}

const (
	DefaultPage    = 1
	DefaultPerPage = 10
	MaxPerPage     = 100
)

// Pagination is a 1-based page request.
type Pagination struct {
	Page    int32
	PerPage int32
}

// Normalize fills defaults and caps the page size.
func (p Pagination) Normalize() Pagination {
	if p.Page < 1 {
		p.Page = DefaultPage
	}
	if p.PerPage < 1 {
		p.PerPage = DefaultPerPage
	}
	if p.PerPage > MaxPerPage {
		p.PerPage = MaxPerPage
	}
	return p
}

// Offset is the number of rows skipped before the page.
func (p Pagination) Offset() int32 {
	return (p.Page - 1) * p.PerPage
}

// TotalPages computes the page count for total rows.
func (p Pagination) TotalPages(total int64) int32 {
	pages := int32(total / int64(p.PerPage))
	if total%int64(p.PerPage) > 0 {
		pages++
	}
	return pages
}

// Paginated is one page of a listing.
type Paginated[T any] struct {
	Data    []*T
	Total   int64
	Pages   int32
	Page    int32
	PerPage int32
}

// NewPaginated assembles a page from its rows and the unpaginated total.
func NewPaginated[T any](data []*T, total int64, page Pagination) *Paginated[T] {
	if data == nil {
		data = []*T{}
	}
	return &Paginated[T]{
		Data:    data,
		Total:   total,
		Pages:   page.TotalPages(total),
		Page:    page.Page,
		PerPage: page.PerPage,
	}
}

// OperacionUnitOfWork is a transactional view over operations. Changes made through
// Update are only visible to other readers after Commit. Rollback is safe to call after
// Commit and is a no-op then.
type OperacionUnitOfWork interface {
	GetByID(ctx context.Context, id int32) (*Operacion, error)
	Update(ctx context.Context, op *Operacion) error
	Commit(ctx context.Context) error
	Rollback(ctx context.Context) error
}

type OperacionRepository interface {
	Begin(ctx context.Context) (OperacionUnitOfWork, error)
	Create(ctx context.Context, op *Operacion) (*Operacion, error)
	GetByID(ctx context.Context, id int32) (*Operacion, error)
	Delete(ctx context.Context, id int32) error
	List(ctx context.Context, filters []FilterPredicate, page Pagination) (*Paginated[Operacion], error)
	ListDetalle(ctx context.Context, filters []FilterPredicate) ([]*OperacionDetalle, error)
}
