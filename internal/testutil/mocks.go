package testutil

import (
	"context"
	"fmt"
	"io"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/gestionfin/operaciones/operaciones-backend/internal/websocket"
)

// paginate slices rows into one page after normalizing it
func paginate[T any](rows []*T, page domain.Pagination) *domain.Paginated[T] {
	page = page.Normalize()
	start := int(page.Offset())
	end := start + int(page.PerPage)
	if start > len(rows) {
		start = len(rows)
	}
	if end > len(rows) {
		end = len(rows)
	}
	return domain.NewPaginated(rows[start:end], int64(len(rows)), page)
}

// matchFields applies FieldMatch conditions through a field accessor
func matchFields(matches []domain.FieldMatch, field func(name string) (string, bool)) bool {
	for _, m := range matches {
		v, ok := field(m.Field)
		if ok && !domain.ContainsFold(v, m.Value) {
			return false
		}
	}
	return true
}

// MockUsuarioRepository is a mock implementation of domain.UsuarioRepository
type MockUsuarioRepository struct {
	Usuarios map[int32]*domain.Usuario
	NextID   int32
	CreateFn func(u *domain.Usuario) (*domain.Usuario, error)
	DeleteFn func(id int32) error
	ClearErr error
}

// NewMockUsuarioRepository creates a new MockUsuarioRepository
func NewMockUsuarioRepository() *MockUsuarioRepository {
	return &MockUsuarioRepository{Usuarios: make(map[int32]*domain.Usuario), NextID: 1}
}

// AddUsuario adds a user directly to the mock
func (m *MockUsuarioRepository) AddUsuario(u *domain.Usuario) *domain.Usuario {
	if u.ID == 0 {
		u.ID = m.NextID
	}
	if u.ID >= m.NextID {
		m.NextID = u.ID + 1
	}
	m.Usuarios[u.ID] = u
	return u
}

func (m *MockUsuarioRepository) Create(ctx context.Context, u *domain.Usuario) (*domain.Usuario, error) {
	if m.CreateFn != nil {
		return m.CreateFn(u)
	}
	if _, err := m.GetByEmail(ctx, u.Email); err == nil {
		return nil, domain.ErrEmailTaken
	}
	cp := *u
	return m.AddUsuario(&cp), nil
}

func (m *MockUsuarioRepository) GetByID(ctx context.Context, id int32) (*domain.Usuario, error) {
	if u, ok := m.Usuarios[id]; ok {
		return u, nil
	}
	return nil, domain.ErrUsuarioNotFound
}

func (m *MockUsuarioRepository) GetByEmail(ctx context.Context, email string) (*domain.Usuario, error) {
	for _, u := range m.Usuarios {
		if strings.EqualFold(u.Email, email) {
			return u, nil
		}
	}
	return nil, domain.ErrUsuarioNotFound
}

func (m *MockUsuarioRepository) GetByResetToken(ctx context.Context, token string) (*domain.Usuario, error) {
	for _, u := range m.Usuarios {
		if u.ResetToken != nil && *u.ResetToken == token {
			return u, nil
		}
	}
	return nil, domain.ErrUsuarioNotFound
}

func (m *MockUsuarioRepository) List(ctx context.Context, filters []domain.FieldMatch, page domain.Pagination) (*domain.Paginated[domain.Usuario], error) {
	var rows []*domain.Usuario
	for _, u := range m.Usuarios {
		u := u
		ok := matchFields(filters, func(name string) (string, bool) {
			switch name {
			case "id":
				return strconv.Itoa(int(u.ID)), true
			case "nombre":
				return u.Nombre, true
			case "apellido":
				return u.Apellido, true
			case "email":
				return u.Email, true
			case "rol":
				return string(u.Rol), true
			}
			return "", false
		})
		if ok {
			rows = append(rows, u)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, page), nil
}

func (m *MockUsuarioRepository) Update(ctx context.Context, id int32, upd domain.UsuarioUpdate) (*domain.Usuario, error) {
	u, ok := m.Usuarios[id]
	if !ok {
		return nil, domain.ErrUsuarioNotFound
	}
	if upd.Email != nil {
		if other, err := m.GetByEmail(ctx, *upd.Email); err == nil && other.ID != id {
			return nil, domain.ErrEmailTaken
		}
		u.Email = *upd.Email
	}
	if upd.Nombre != nil {
		u.Nombre = *upd.Nombre
	}
	if upd.Apellido != nil {
		u.Apellido = *upd.Apellido
	}
	if upd.Rol != nil {
		u.Rol = *upd.Rol
	}
	return u, nil
}

func (m *MockUsuarioRepository) SetResetToken(ctx context.Context, id int32, token string, expiration time.Time) error {
	u, ok := m.Usuarios[id]
	if !ok {
		return domain.ErrUsuarioNotFound
	}
	u.ResetToken = &token
	u.TokenExpiration = &expiration
	return nil
}

func (m *MockUsuarioRepository) UpdatePassword(ctx context.Context, id int32, passwordHash string) error {
	u, ok := m.Usuarios[id]
	if !ok {
		return domain.ErrUsuarioNotFound
	}
	u.PasswordHash = passwordHash
	u.ResetToken = nil
	u.TokenExpiration = nil
	return nil
}

func (m *MockUsuarioRepository) ClearExpiredResetTokens(ctx context.Context, now time.Time) (int64, error) {
	if m.ClearErr != nil {
		return 0, m.ClearErr
	}
	var n int64
	for _, u := range m.Usuarios {
		if u.ResetToken != nil && u.TokenExpiration != nil && u.TokenExpiration.Before(now) {
			u.ResetToken = nil
			u.TokenExpiration = nil
			n++
		}
	}
	return n, nil
}

func (m *MockUsuarioRepository) Delete(ctx context.Context, id int32) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(id)
	}
	if _, ok := m.Usuarios[id]; !ok {
		return domain.ErrUsuarioNotFound
	}
	delete(m.Usuarios, id)
	return nil
}

// MockPersonaRepository is a mock implementation of domain.PersonaRepository
type MockPersonaRepository struct {
	Personas map[int32]*domain.Persona
	NextID   int32
	DeleteFn func(id int32) error
}

// NewMockPersonaRepository creates a new MockPersonaRepository
func NewMockPersonaRepository() *MockPersonaRepository {
	return &MockPersonaRepository{Personas: make(map[int32]*domain.Persona), NextID: 1}
}

func (m *MockPersonaRepository) cuitTaken(cuit string, except int32) bool {
	for _, p := range m.Personas {
		if p.CUIT == cuit && p.ID != except {
			return true
		}
	}
	return false
}

func (m *MockPersonaRepository) Create(ctx context.Context, p *domain.Persona) (*domain.Persona, error) {
	if m.cuitTaken(p.CUIT, 0) {
		return nil, domain.ErrCUITTaken
	}
	cp := *p
	cp.ID = m.NextID
	m.NextID++
	m.Personas[cp.ID] = &cp
	return &cp, nil
}

func (m *MockPersonaRepository) GetByID(ctx context.Context, id int32) (*domain.Persona, error) {
	if p, ok := m.Personas[id]; ok {
		return p, nil
	}
	return nil, domain.ErrPersonaNotFound
}

func (m *MockPersonaRepository) List(ctx context.Context, filters []domain.FieldMatch, page domain.Pagination) (*domain.Paginated[domain.Persona], error) {
	var rows []*domain.Persona
	for _, p := range m.Personas {
		p := p
		ok := matchFields(filters, func(name string) (string, bool) {
			switch name {
			case "id":
				return strconv.Itoa(int(p.ID)), true
			case "cuit":
				return p.CUIT, true
			case "razon_social":
				return p.RazonSocial, true
			}
			return "", false
		})
		if ok {
			rows = append(rows, p)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].ID < rows[j].ID })
	return paginate(rows, page), nil
}

func (m *MockPersonaRepository) Update(ctx context.Context, p *domain.Persona) (*domain.Persona, error) {
	if _, ok := m.Personas[p.ID]; !ok {
		return nil, domain.ErrPersonaNotFound
	}
	if m.cuitTaken(p.CUIT, p.ID) {
		return nil, domain.ErrCUITTaken
	}
	cp := *p
	m.Personas[p.ID] = &cp
	return &cp, nil
}

func (m *MockPersonaRepository) Delete(ctx context.Context, id int32) error {
	if m.DeleteFn != nil {
		return m.DeleteFn(id)
	}
	if _, ok := m.Personas[id]; !ok {
		return domain.ErrPersonaNotFound
	}
	delete(m.Personas, id)
	return nil
}

// catalogoStore is the shared in-memory storage of the three catalog levels
type catalogoStore[T any] struct {
	rows     map[int32]*T
	nextID   int32
	notFound error
	id       func(*T) *int32
	nombre   func(*T) string
	parent   func(*T) int32
}

func (s *catalogoStore[T]) create(v *T) *T {
	cp := *v
	*s.id(&cp) = s.nextID
	s.nextID++
	s.rows[*s.id(&cp)] = &cp
	return &cp
}

func (s *catalogoStore[T]) get(id int32) (*T, error) {
	if v, ok := s.rows[id]; ok {
		return v, nil
	}
	return nil, s.notFound
}

func (s *catalogoStore[T]) list(filter domain.CatalogoFilter, page domain.Pagination) *domain.Paginated[T] {
	var rows []*T
	for _, v := range s.rows {
		v := v
		if filter.ParentID != 0 && (s.parent == nil || s.parent(v) != filter.ParentID) {
			continue
		}
		ok := matchFields(filter.Matches, func(name string) (string, bool) {
			switch name {
			case "id":
				return strconv.Itoa(int(*s.id(v))), true
			case "nombre":
				return s.nombre(v), true
			}
			return "", false
		})
		if ok {
			rows = append(rows, v)
		}
	}
	sort.Slice(rows, func(i, j int) bool { return *s.id(rows[i]) < *s.id(rows[j]) })
	return paginate(rows, page)
}

func (s *catalogoStore[T]) update(v *T) (*T, error) {
	if _, ok := s.rows[*s.id(v)]; !ok {
		return nil, s.notFound
	}
	cp := *v
	s.rows[*s.id(v)] = &cp
	return &cp, nil
}

func (s *catalogoStore[T]) delete(id int32) error {
	if _, ok := s.rows[id]; !ok {
		return s.notFound
	}
	delete(s.rows, id)
	return nil
}

// MockCatalogo implements the concept, category and subcategory repositories over one
// in-memory tree. Deleting a node that still has children fails with domain.ErrInUse.
type MockCatalogo struct {
	conceptos     *catalogoStore[domain.Concepto]
	categorias    *catalogoStore[domain.Categoria]
	subcategorias *catalogoStore[domain.Subcategoria]
}

// NewMockCatalogo creates an empty catalog
func NewMockCatalogo() *MockCatalogo {
	return &MockCatalogo{
		conceptos: &catalogoStore[domain.Concepto]{
			rows: make(map[int32]*domain.Concepto), nextID: 1, notFound: domain.ErrConceptoNotFound,
			id:     func(c *domain.Concepto) *int32 { return &c.ID },
			nombre: func(c *domain.Concepto) string { return c.Nombre },
		},
		categorias: &catalogoStore[domain.Categoria]{
			rows: make(map[int32]*domain.Categoria), nextID: 1, notFound: domain.ErrCategoriaNotFound,
			id:     func(c *domain.Categoria) *int32 { return &c.ID },
			nombre: func(c *domain.Categoria) string { return c.Nombre },
			parent: func(c *domain.Categoria) int32 { return c.IDConcepto },
		},
		subcategorias: &catalogoStore[domain.Subcategoria]{
			rows: make(map[int32]*domain.Subcategoria), nextID: 1, notFound: domain.ErrSubcategoriaNotFound,
			id:     func(s *domain.Subcategoria) *int32 { return &s.ID },
			nombre: func(s *domain.Subcategoria) string { return s.Nombre },
			parent: func(s *domain.Subcategoria) int32 { return s.IDCategoria },
		},
	}
}

// Conceptos returns the concept level as a domain.ConceptoRepository
func (m *MockCatalogo) Conceptos() *MockConceptoRepository { return &MockConceptoRepository{m} }

// Categorias returns the category level as a domain.CategoriaRepository
func (m *MockCatalogo) Categorias() *MockCategoriaRepository { return &MockCategoriaRepository{m} }

// Subcategorias returns the subcategory level as a domain.SubcategoriaRepository
func (m *MockCatalogo) Subcategorias() *MockSubcategoriaRepository {
	return &MockSubcategoriaRepository{m}
}

// MockConceptoRepository is the concept level of MockCatalogo
type MockConceptoRepository struct{ c *MockCatalogo }

func (r *MockConceptoRepository) Create(ctx context.Context, c *domain.Concepto) (*domain.Concepto, error) {
	return r.c.conceptos.create(c), nil
}

func (r *MockConceptoRepository) GetByID(ctx context.Context, id int32) (*domain.Concepto, error) {
	return r.c.conceptos.get(id)
}

func (r *MockConceptoRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Concepto], error) {
	return r.c.conceptos.list(filter, page), nil
}

func (r *MockConceptoRepository) Update(ctx context.Context, c *domain.Concepto) (*domain.Concepto, error) {
	return r.c.conceptos.update(c)
}

func (r *MockConceptoRepository) Delete(ctx context.Context, id int32) error {
	for _, cat := range r.c.categorias.rows {
		if cat.IDConcepto == id {
			return domain.ErrInUse
		}
	}
	return r.c.conceptos.delete(id)
}

// MockCategoriaRepository is the category level of MockCatalogo
type MockCategoriaRepository struct{ c *MockCatalogo }

func (r *MockCategoriaRepository) Create(ctx context.Context, c *domain.Categoria) (*domain.Categoria, error) {
	if _, err := r.c.conceptos.get(c.IDConcepto); err != nil {
		return nil, err
	}
	return r.c.categorias.create(c), nil
}

func (r *MockCategoriaRepository) GetByID(ctx context.Context, id int32) (*domain.Categoria, error) {
	return r.c.categorias.get(id)
}

func (r *MockCategoriaRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Categoria], error) {
	return r.c.categorias.list(filter, page), nil
}

func (r *MockCategoriaRepository) Update(ctx context.Context, c *domain.Categoria) (*domain.Categoria, error) {
	if _, err := r.c.conceptos.get(c.IDConcepto); err != nil {
		return nil, err
	}
	return r.c.categorias.update(c)
}

func (r *MockCategoriaRepository) Delete(ctx context.Context, id int32) error {
	for _, s := range r.c.subcategorias.rows {
		if s.IDCategoria == id {
			return domain.ErrInUse
		}
	}
	return r.c.categorias.delete(id)
}

// MockSubcategoriaRepository is the subcategory level of MockCatalogo
type MockSubcategoriaRepository struct{ c *MockCatalogo }

func (r *MockSubcategoriaRepository) Create(ctx context.Context, s *domain.Subcategoria) (*domain.Subcategoria, error) {
	if _, err := r.c.categorias.get(s.IDCategoria); err != nil {
		return nil, err
	}
	return r.c.subcategorias.create(s), nil
}

func (r *MockSubcategoriaRepository) GetByID(ctx context.Context, id int32) (*domain.Subcategoria, error) {
	return r.c.subcategorias.get(id)
}

func (r *MockSubcategoriaRepository) List(ctx context.Context, filter domain.CatalogoFilter, page domain.Pagination) (*domain.Paginated[domain.Subcategoria], error) {
	return r.c.subcategorias.list(filter, page), nil
}

func (r *MockSubcategoriaRepository) Update(ctx context.Context, s *domain.Subcategoria) (*domain.Subcategoria, error) {
	if _, err := r.c.categorias.get(s.IDCategoria); err != nil {
		return nil, err
	}
	return r.c.subcategorias.update(s)
}

func (r *MockSubcategoriaRepository) Delete(ctx context.Context, id int32) error {
	return r.c.subcategorias.delete(id)
}

// MockAttachmentStorage keeps uploaded objects in memory
type MockAttachmentStorage struct {
	mu        sync.Mutex
	Objects   map[string][]byte
	Types     map[string]string
	Deleted   []string
	UploadErr error
	DeleteErr error
}

// NewMockAttachmentStorage creates an empty MockAttachmentStorage
func NewMockAttachmentStorage() *MockAttachmentStorage {
	return &MockAttachmentStorage{
		Objects: make(map[string][]byte),
		Types:   make(map[string]string),
	}
}

func (m *MockAttachmentStorage) Upload(ctx context.Context, objectPath string, data io.Reader, contentType string, size int64) (string, error) {
	if m.UploadErr != nil {
		return "", m.UploadErr
	}
	b, err := io.ReadAll(data)
	if err != nil {
		return "", err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Objects[objectPath] = b
	m.Types[objectPath] = contentType
	return objectPath, nil
}

func (m *MockAttachmentStorage) Delete(ctx context.Context, objectPath string) error {
	if m.DeleteErr != nil {
		return m.DeleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Objects, objectPath)
	delete(m.Types, objectPath)
	m.Deleted = append(m.Deleted, objectPath)
	return nil
}

func (m *MockAttachmentStorage) PresignedURL(ctx context.Context, objectPath string, expiry time.Duration) (string, error) {
	return fmt.Sprintf("https://storage.test/%s?expires=%d", objectPath, int(expiry.Seconds())), nil
}

// SentMail is one message captured by MockMailer
type SentMail struct {
	Kind  string
	To    string
	Value string
}

// MockMailer records outgoing mail instead of sending it
type MockMailer struct {
	Sent []SentMail
	Err  error
}

func (m *MockMailer) SendWelcome(ctx context.Context, u *domain.Usuario, password string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{Kind: "welcome", To: u.Email, Value: password})
	return nil
}

func (m *MockMailer) SendPasswordReset(ctx context.Context, u *domain.Usuario, resetURL string) error {
	if m.Err != nil {
		return m.Err
	}
	m.Sent = append(m.Sent, SentMail{Kind: "reset", To: u.Email, Value: resetURL})
	return nil
}

// RecordingPublisher captures published websocket events
type RecordingPublisher struct {
	mu     sync.Mutex
	Events []websocket.Event
}

// Publish records event
func (p *RecordingPublisher) Publish(event websocket.Event) {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.Events = append(p.Events, event)
}

// Types returns the type of every recorded event in order
func (p *RecordingPublisher) Types() []string {
	p.mu.Lock()
	defer p.mu.Unlock()
	types := make([]string, len(p.Events))
	for i, e := range p.Events {
		types[i] = e.Type
	}
	return types
}
