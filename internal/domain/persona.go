package domain

import "context"

// Persona is the counterparty of an operation.
type Persona struct {
	ID          int32  `json:"id"`
	CUIT        string `json:"cuit"`
	RazonSocial string `json:"razon_social"`
}

// PersonaSearchFields are the list filters accepted for persons.
var PersonaSearchFields = []string{"id", "cuit", "razon_social"}

type PersonaRepository interface {
	Create(ctx context.Context, p *Persona) (*Persona, error)
	GetByID(ctx context.Context, id int32) (*Persona, error)
	List(ctx context.Context, filters []FieldMatch, page Pagination) (*Paginated[Persona], error)
	Update(ctx context.Context, p *Persona) (*Persona, error)
	Delete(ctx context.Context, id int32) error
}
