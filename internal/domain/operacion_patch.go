package domain

import (
	"bytes"
	"encoding/json"
	"strconv"
	"time"

	"github.com/shopspring/decimal"
)

// Campo names an editable operation field as it appears in request bodies.
type Campo string

const (
	CampoFecha          Campo = "fecha"
	CampoTipo           Campo = "tipo"
	CampoCaracter       Campo = "caracter"
	CampoNaturaleza     Campo = "naturaleza"
	CampoIDPersona      Campo = "id_persona"
	CampoOption         Campo = "option"
	CampoCodigo         Campo = "codigo"
	CampoObservaciones  Campo = "observaciones"
	CampoMetodoDePago   Campo = "metodo_de_pago"
	CampoMontoTotal     Campo = "monto_total"
	CampoIDSubcategoria Campo = "id_subcategoria"
)

// CamposEditables is the update whitelist, in the order changes are reported.
// Keys outside this list are ignored by ParseOperacionPatch.
var CamposEditables = []Campo{
	CampoFecha,
	CampoTipo,
	CampoCaracter,
	CampoNaturaleza,
	CampoIDPersona,
	CampoOption,
	CampoCodigo,
	CampoObservaciones,
	CampoMetodoDePago,
	CampoMontoTotal,
	CampoIDSubcategoria,
}

// OperacionPatch holds the decoded whitelisted fields of an update request. A nil field
// was not present in the request.
type OperacionPatch struct {
	Fecha          *time.Time
	Tipo           *TipoOperacion
	Caracter       *string
	Naturaleza     *string
	IDPersona      *int32
	Option         *string
	Codigo         *string
	Observaciones  *string
	MetodoDePago   *string
	MontoTotal     *decimal.Decimal
	IDSubcategoria *int32
}

var patchDecoders = map[Campo]func(p *OperacionPatch, raw json.RawMessage) error{
	CampoFecha: func(p *OperacionPatch, raw json.RawMessage) error {
		t, err := decodeFecha(raw)
		p.Fecha = &t
		return err
	},
	CampoTipo: func(p *OperacionPatch, raw json.RawMessage) error {
		s, err := decodeString(CampoTipo, raw)
		tipo := TipoOperacion(s)
		p.Tipo = &tipo
		return err
	},
	CampoCaracter: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.Caracter, err = decodeStringPtr(CampoCaracter, raw)
		return err
	},
	CampoNaturaleza: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.Naturaleza, err = decodeStringPtr(CampoNaturaleza, raw)
		return err
	},
	CampoIDPersona: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.IDPersona, err = decodeID(CampoIDPersona, raw)
		return err
	},
	CampoOption: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.Option, err = decodeStringPtr(CampoOption, raw)
		return err
	},
	CampoCodigo: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.Codigo, err = decodeStringPtr(CampoCodigo, raw)
		return err
	},
	CampoObservaciones: func(p *OperacionPatch, raw json.RawMessage) error {
		// null clears the observations
		s := ""
		if !isNull(raw) {
			if err := json.Unmarshal(raw, &s); err != nil {
				return NewFieldError(string(CampoObservaciones), "must be a string")
			}
		}
		if len(s) > MaxObservacionesLength {
			return NewFieldError(string(CampoObservaciones), "too long")
		}
		p.Observaciones = &s
		return nil
	},
	CampoMetodoDePago: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.MetodoDePago, err = decodeStringPtr(CampoMetodoDePago, raw)
		return err
	},
	CampoMontoTotal: func(p *OperacionPatch, raw json.RawMessage) error {
		d, err := DecodeMonto(raw)
		if err != nil {
			return err
		}
		p.MontoTotal = &d
		return nil
	},
	CampoIDSubcategoria: func(p *OperacionPatch, raw json.RawMessage) (err error) {
		p.IDSubcategoria, err = decodeID(CampoIDSubcategoria, raw)
		return err
	},
}

// ParseOperacionPatch decodes the whitelisted keys of body. Unknown keys are ignored; a
// whitelisted key holding a value of the wrong shape is a *FieldError.
func ParseOperacionPatch(body map[string]json.RawMessage) (*OperacionPatch, error) {
	p := &OperacionPatch{}
	for _, campo := range CamposEditables {
		raw, ok := body[string(campo)]
		if !ok {
			continue
		}
		if err := patchDecoders[campo](p, raw); err != nil {
			return nil, err
		}
	}
	return p, nil
}

// ApplyTo mutates op with the patch and returns the changed fields, each listed once.
//
// A tipo different from the current one goes through transition and is reported first.
// A tipo equal to the current one is a no-op. Every other present field is assigned as
// given and reported even when the value did not change.
func (p *OperacionPatch) ApplyTo(op *Operacion, transition TypeTransition) []Campo {
	var changed []Campo
	if p.Tipo != nil && *p.Tipo != op.Tipo {
		transition(op, *p.Tipo)
		changed = append(changed, CampoTipo)
	}

	if p.Fecha != nil {
		op.Fecha = *p.Fecha
		changed = append(changed, CampoFecha)
	}
	if p.Caracter != nil {
		op.Caracter = *p.Caracter
		changed = append(changed, CampoCaracter)
	}
	if p.Naturaleza != nil {
		op.Naturaleza = *p.Naturaleza
		changed = append(changed, CampoNaturaleza)
	}
	if p.IDPersona != nil {
		op.IDPersona = *p.IDPersona
		changed = append(changed, CampoIDPersona)
	}
	if p.Option != nil {
		op.Option = *p.Option
		changed = append(changed, CampoOption)
	}
	if p.Codigo != nil {
		op.Codigo = *p.Codigo
		changed = append(changed, CampoCodigo)
	}
	if p.Observaciones != nil {
		op.Observaciones = *p.Observaciones
		changed = append(changed, CampoObservaciones)
	}
	if p.MetodoDePago != nil {
		op.MetodoDePago = *p.MetodoDePago
		changed = append(changed, CampoMetodoDePago)
	}
	if p.MontoTotal != nil {
		op.MontoTotal = *p.MontoTotal
		changed = append(changed, CampoMontoTotal)
	}
	if p.IDSubcategoria != nil {
		op.IDSubcategoria = *p.IDSubcategoria
		changed = append(changed, CampoIDSubcategoria)
	}
	return changed
}

// BulkItem is one entry of a bulk update request.
type BulkItem struct {
	ID int32
	// RawID holds the request id when it is not an integer. Such an item cannot match
	// any operation.
	RawID json.RawMessage
	Patch *OperacionPatch
}

// Resolvable reports whether the item id can name an operation.
func (b BulkItem) Resolvable() bool { return b.RawID == nil }

// ParseBulkItems validates a whole bulk request before anything is loaded. A missing id in
// any item fails the batch with ErrBulkItemWithoutID. Ids that are present but do not
// name an operation (zero, negative, non numeric) are left for the caller to classify.
func ParseBulkItems(items []map[string]json.RawMessage) ([]BulkItem, error) {
	for _, item := range items {
		if _, ok := item["id"]; !ok {
			return nil, ErrBulkItemWithoutID
		}
	}

	parsed := make([]BulkItem, 0, len(items))
	for _, item := range items {
		patch, err := ParseOperacionPatch(item)
		if err != nil {
			return nil, err
		}
		bi := BulkItem{Patch: patch}
		if id, ok := decodeBulkID(item["id"]); ok {
			bi.ID = id
		} else {
			bi.RawID = compactRaw(item["id"])
		}
		parsed = append(parsed, bi)
	}
	return parsed, nil
}

// decodeBulkID accepts an integer or a numeric string in the int32 range.
func decodeBulkID(raw json.RawMessage) (int32, bool) {
	var n json.Number
	if isNull(raw) || json.Unmarshal(raw, &n) != nil {
		return 0, false
	}
	id, err := strconv.ParseInt(n.String(), 10, 32)
	if err != nil {
		return 0, false
	}
	return int32(id), true
}

func compactRaw(raw json.RawMessage) json.RawMessage {
	var buf bytes.Buffer
	if len(raw) == 0 || json.Compact(&buf, raw) != nil {
		return json.RawMessage("null")
	}
	return json.RawMessage(buf.Bytes())
}

// DecodeMonto accepts a JSON number or a numeric string.
func DecodeMonto(raw json.RawMessage) (decimal.Decimal, error) {
	if isNull(raw) {
		return decimal.Zero, NewFieldError(string(CampoMontoTotal), "must not be null")
	}
	var d decimal.Decimal
	if err := d.UnmarshalJSON(raw); err != nil {
		return decimal.Zero, NewFieldError(string(CampoMontoTotal), "must be a valid decimal number")
	}
	return d, nil
}

// ParseFecha parses a YYYY-MM-DD date, also accepting RFC 3339 timestamps.
func ParseFecha(s string) (time.Time, error) {
	if t, err := time.Parse(DateLayout, s); err == nil {
		return t, nil
	}
	t, err := time.Parse(time.RFC3339, s)
	if err != nil {
		return time.Time{}, err
	}
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC), nil
}

func decodeFecha(raw json.RawMessage) (time.Time, error) {
	s, err := decodeString(CampoFecha, raw)
	if err != nil {
		return time.Time{}, err
	}
	t, err := ParseFecha(s)
	if err != nil {
		return time.Time{}, NewFieldError(string(CampoFecha), "must be in YYYY-MM-DD format")
	}
	return t, nil
}

func decodeString(campo Campo, raw json.RawMessage) (string, error) {
	var s string
	if isNull(raw) || json.Unmarshal(raw, &s) != nil {
		return "", NewFieldError(string(campo), "must be a string")
	}
	return s, nil
}

func decodeStringPtr(campo Campo, raw json.RawMessage) (*string, error) {
	s, err := decodeString(campo, raw)
	if err != nil {
		return nil, err
	}
	return &s, nil
}

func decodeID(campo Campo, raw json.RawMessage) (*int32, error) {
	var id int32
	if isNull(raw) || json.Unmarshal(raw, &id) != nil || id <= 0 {
		return nil, NewFieldError(string(campo), "must be a positive integer")
	}
	return &id, nil
}

func isNull(raw json.RawMessage) bool {
	return bytes.Equal(bytes.TrimSpace(raw), []byte("null"))
}
