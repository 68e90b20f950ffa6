package testutil

import (
	"context"
	"errors"
	"sort"
	"strconv"
	"sync"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
)

// ErrTxDone is returned when a finished unit of work is used again
var ErrTxDone = errors.New("unit of work already finished")

// MemOperacionRepository is an in-memory domain.OperacionRepository with transactional
// units of work. Readers only ever receive copies, so changes are visible only after a
// successful Commit.
type MemOperacionRepository struct {
	mu          sync.Mutex
	Operaciones map[int32]*domain.Operacion
	NextID      int32

	// Related entities resolved by filters and ListDetalle
	Personas      map[int32]*domain.Persona
	Subcategorias map[int32]*domain.Subcategoria
	Categorias    map[int32]*domain.Categoria
	Conceptos     map[int32]*domain.Concepto
	Usuarios      map[int32]*domain.Usuario

	// Failure injection
	BeginErr  error
	UpdateErr error
	CommitErr error
	CreateErr error
	DeleteErr error

	Commits int
	Updates int
}

// NewMemOperacionRepository creates an empty store
func NewMemOperacionRepository() *MemOperacionRepository {
	return &MemOperacionRepository{
		Operaciones:   make(map[int32]*domain.Operacion),
		NextID:        1,
		Personas:      make(map[int32]*domain.Persona),
		Subcategorias: make(map[int32]*domain.Subcategoria),
		Categorias:    make(map[int32]*domain.Categoria),
		Conceptos:     make(map[int32]*domain.Concepto),
		Usuarios:      make(map[int32]*domain.Usuario),
	}
}

// AddOperacion seeds an operation, assigning an id when it has none
func (m *MemOperacionRepository) AddOperacion(op *domain.Operacion) *domain.Operacion {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op.ID == 0 {
		op.ID = m.NextID
	}
	if op.ID >= m.NextID {
		m.NextID = op.ID + 1
	}
	m.Operaciones[op.ID] = op.Clone()
	return op
}

// Snapshot returns a copy of the committed state of id, or nil
func (m *MemOperacionRepository) Snapshot(id int32) *domain.Operacion {
	m.mu.Lock()
	defer m.mu.Unlock()
	if op, ok := m.Operaciones[id]; ok {
		return op.Clone()
	}
	return nil
}

// Begin starts a unit of work
func (m *MemOperacionRepository) Begin(ctx context.Context) (domain.OperacionUnitOfWork, error) {
	if m.BeginErr != nil {
		return nil, m.BeginErr
	}
	return &memUnitOfWork{repo: m, staged: make(map[int32]*domain.Operacion)}, nil
}

// Create stores a new operation
func (m *MemOperacionRepository) Create(ctx context.Context, op *domain.Operacion) (*domain.Operacion, error) {
	if m.CreateErr != nil {
		return nil, m.CreateErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Personas[op.IDPersona]; len(m.Personas) > 0 && !ok {
		return nil, domain.ErrPersonaNotFound
	}
	if _, ok := m.Subcategorias[op.IDSubcategoria]; len(m.Subcategorias) > 0 && !ok {
		return nil, domain.ErrSubcategoriaNotFound
	}
	stored := op.Clone()
	stored.ID = m.NextID
	m.NextID++
	m.Operaciones[stored.ID] = stored
	return stored.Clone(), nil
}

// GetByID returns a copy of the committed operation
func (m *MemOperacionRepository) GetByID(ctx context.Context, id int32) (*domain.Operacion, error) {
	if op := m.Snapshot(id); op != nil {
		return op, nil
	}
	return nil, domain.ErrOperacionNotFound
}

// Delete removes an operation
func (m *MemOperacionRepository) Delete(ctx context.Context, id int32) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.Operaciones[id]; !ok {
		return domain.ErrOperacionNotFound
	}
	delete(m.Operaciones, id)
	return nil
}

// List returns one page of the matching operations ordered by id
func (m *MemOperacionRepository) List(ctx context.Context, filters []domain.FilterPredicate, page domain.Pagination) (*domain.Paginated[domain.Operacion], error) {
	page = page.Normalize()
	matched := m.filter(filters)
	total := int64(len(matched))

	start := int(page.Offset())
	end := start + int(page.PerPage)
	if start > len(matched) {
		start = len(matched)
	}
	if end > len(matched) {
		end = len(matched)
	}
	return domain.NewPaginated(matched[start:end], total, page), nil
}

// ListDetalle returns every matching operation with related names resolved
func (m *MemOperacionRepository) ListDetalle(ctx context.Context, filters []domain.FilterPredicate) ([]*domain.OperacionDetalle, error) {
	matched := m.filter(filters)

	m.mu.Lock()
	defer m.mu.Unlock()
	rows := make([]*domain.OperacionDetalle, 0, len(matched))
	for _, op := range matched {
		d := &domain.OperacionDetalle{Operacion: *op}
		if p, ok := m.Personas[op.IDPersona]; ok {
			d.PersonaCUIT = p.CUIT
			d.PersonaRazonSocial = p.RazonSocial
		}
		if s, ok := m.Subcategorias[op.IDSubcategoria]; ok {
			d.SubcategoriaNombre = s.Nombre
			if c, ok := m.Categorias[s.IDCategoria]; ok {
				d.CategoriaNombre = c.Nombre
				if k, ok := m.Conceptos[c.IDConcepto]; ok {
					d.ConceptoNombre = k.Nombre
				}
			}
		}
		if u, ok := m.Usuarios[op.IDUsuario]; ok {
			d.UsuarioNombre = u.Nombre
			d.UsuarioApellido = u.Apellido
		}
		rows = append(rows, d)
	}
	return rows, nil
}

func (m *MemOperacionRepository) filter(filters []domain.FilterPredicate) []*domain.Operacion {
	m.mu.Lock()
	defer m.mu.Unlock()

	var matched []*domain.Operacion
	for _, op := range m.Operaciones {
		if m.matchesAll(op, filters) {
			matched = append(matched, op.Clone())
		}
	}
	sort.Slice(matched, func(i, j int) bool { return matched[i].ID < matched[j].ID })
	return matched
}

func (m *MemOperacionRepository) matchesAll(op *domain.Operacion, filters []domain.FilterPredicate) bool {
	for _, f := range filters {
		if !m.matches(op, f) {
			return false
		}
	}
	return true
}

func (m *MemOperacionRepository) matches(op *domain.Operacion, f domain.FilterPredicate) bool {
	switch f.Kind {
	case domain.FilterSubstring:
		return domain.ContainsFold(columnText(op, f.Column), f.Value)
	case domain.FilterDateRange:
		return !op.Fecha.Before(f.From) && !op.Fecha.After(f.To)
	case domain.FilterRelatedSubstring:
		switch f.Related {
		case domain.RelatedPersona:
			p, ok := m.Personas[op.IDPersona]
			return ok && (domain.ContainsFold(p.CUIT, f.Value) || domain.ContainsFold(p.RazonSocial, f.Value))
		case domain.RelatedSubcategoria:
			s, ok := m.Subcategorias[op.IDSubcategoria]
			return ok && domain.ContainsFold(s.Nombre, f.Value)
		case domain.RelatedUsuario:
			u, ok := m.Usuarios[op.IDUsuario]
			return ok && domain.ContainsFold(u.Nombre, f.Value)
		}
	}
	return false
}

func columnText(op *domain.Operacion, column domain.FilterColumn) string {
	switch column {
	case domain.ColumnID:
		return strconv.Itoa(int(op.ID))
	case domain.ColumnFecha:
		return op.Fecha.Format(domain.DateLayout)
	case domain.ColumnTipo:
		return string(op.Tipo)
	case domain.ColumnNaturaleza:
		return op.Naturaleza
	case domain.ColumnCaracter:
		return op.Caracter
	case domain.ColumnOption:
		return op.Option
	case domain.ColumnCodigo:
		return op.Codigo
	case domain.ColumnObservaciones:
		return op.Observaciones
	case domain.ColumnMetodoDePago:
		return op.MetodoDePago
	case domain.ColumnMontoTotal:
		return op.MontoTotal.StringFixed(2)
	}
	return ""
}

// memUnitOfWork stages updates until Commit
type memUnitOfWork struct {
	repo   *MemOperacionRepository
	staged map[int32]*domain.Operacion
	order  []int32
	done   bool
}

func (u *memUnitOfWork) GetByID(ctx context.Context, id int32) (*domain.Operacion, error) {
	if u.done {
		return nil, ErrTxDone
	}
	if op, ok := u.staged[id]; ok {
		return op.Clone(), nil
	}
	return u.repo.GetByID(ctx, id)
}

func (u *memUnitOfWork) Update(ctx context.Context, op *domain.Operacion) error {
	if u.done {
		return ErrTxDone
	}
	if u.repo.UpdateErr != nil {
		return u.repo.UpdateErr
	}
	if u.repo.Snapshot(op.ID) == nil {
		return domain.ErrOperacionNotFound
	}
	if _, ok := u.staged[op.ID]; !ok {
		u.order = append(u.order, op.ID)
	}
	u.staged[op.ID] = op.Clone()
	u.repo.mu.Lock()
	u.repo.Updates++
	u.repo.mu.Unlock()
	return nil
}

func (u *memUnitOfWork) Commit(ctx context.Context) error {
	if u.done {
		return ErrTxDone
	}
	if u.repo.CommitErr != nil {
		return u.repo.CommitErr
	}
	u.repo.mu.Lock()
	defer u.repo.mu.Unlock()
	for _, id := range u.order {
		u.repo.Operaciones[id] = u.staged[id]
	}
	u.repo.Commits++
	u.done = true
	return nil
}

func (u *memUnitOfWork) Rollback(ctx context.Context) error {
	u.staged = nil
	u.order = nil
	u.done = true
	return nil
}
