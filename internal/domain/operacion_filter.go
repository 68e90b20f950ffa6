package domain

import (
	"sort"
	"strings"
	"time"
)

// FilterKind tags the variant of a FilterPredicate.
type FilterKind int

const (
	// FilterSubstring matches a case-insensitive substring of a column's text.
	FilterSubstring FilterKind = iota + 1
	// FilterDateRange matches fecha within [From, To], both days inclusive.
	FilterDateRange
	// FilterRelatedSubstring matches a substring of a related entity's text columns.
	FilterRelatedSubstring
)

// FilterColumn is an operation column a substring predicate can target.
type FilterColumn string

const (
	ColumnID            FilterColumn = "id"
	ColumnFecha         FilterColumn = "fecha"
	ColumnTipo          FilterColumn = "tipo"
	ColumnNaturaleza    FilterColumn = "naturaleza"
	ColumnCaracter      FilterColumn = "caracter"
	ColumnOption        FilterColumn = "option"
	ColumnCodigo        FilterColumn = "codigo"
	ColumnObservaciones FilterColumn = "observaciones"
	ColumnMetodoDePago  FilterColumn = "metodo_de_pago"
	ColumnMontoTotal    FilterColumn = "monto_total"
)

// RelatedEntity is the entity a related-substring predicate searches.
type RelatedEntity int

const (
	// RelatedPersona matches the person's cuit or razon_social.
	RelatedPersona RelatedEntity = iota + 1
	// RelatedSubcategoria matches the subcategory name.
	RelatedSubcategoria
	// RelatedUsuario matches the creator's name.
	RelatedUsuario
)

// FilterPredicate is one condition over operations. Stores compile predicates into their
// own query language; all predicates of a request are combined with AND.
type FilterPredicate struct {
	Kind    FilterKind
	Column  FilterColumn
	Related RelatedEntity
	Value   string
	From    time.Time
	To      time.Time
}

func substringFilter(column FilterColumn) func(string) (FilterPredicate, error) {
	return func(value string) (FilterPredicate, error) {
		return FilterPredicate{Kind: FilterSubstring, Column: column, Value: value}, nil
	}
}

func relatedFilter(entity RelatedEntity) func(string) (FilterPredicate, error) {
	return func(value string) (FilterPredicate, error) {
		return FilterPredicate{Kind: FilterRelatedSubstring, Related: entity, Value: value}, nil
	}
}

var operacionFilters = map[string]func(value string) (FilterPredicate, error){
	"id":            substringFilter(ColumnID),
	"fecha":         fechaFilter,
	"tipo":          substringFilter(ColumnTipo),
	"naturaleza":    substringFilter(ColumnNaturaleza),
	"caracter":      substringFilter(ColumnCaracter),
	"option":        substringFilter(ColumnOption),
	"codigo":        substringFilter(ColumnCodigo),
	"observaciones": substringFilter(ColumnObservaciones),
	"pago":          substringFilter(ColumnMetodoDePago),
	"monto":         substringFilter(ColumnMontoTotal),
	"persona":       relatedFilter(RelatedPersona),
	"categoria":     relatedFilter(RelatedSubcategoria),
	"usuario":       relatedFilter(RelatedUsuario),
}

// BuildOperacionFilters translates query parameters into predicates. Unrecognized keys
// are ignored; the result is ordered by key.
func BuildOperacionFilters(params map[string]string) ([]FilterPredicate, error) {
	keys := make([]string, 0, len(params))
	for k := range params {
		if _, ok := operacionFilters[k]; ok {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)

	filters := make([]FilterPredicate, 0, len(keys))
	for _, k := range keys {
		f, err := operacionFilters[k](params[k])
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, nil
}

// fechaFilter builds an inclusive range for "from:to" and a text match otherwise.
func fechaFilter(value string) (FilterPredicate, error) {
	if !strings.Contains(value, ":") {
		return FilterPredicate{Kind: FilterSubstring, Column: ColumnFecha, Value: value}, nil
	}

	parts := strings.Split(value, ":")
	if len(parts) != 2 {
		return FilterPredicate{}, ErrInvalidDate
	}
	from, _, err := ParsePeriodo(parts[0])
	if err != nil {
		return FilterPredicate{}, err
	}
	_, to, err := ParsePeriodo(parts[1])
	if err != nil {
		return FilterPredicate{}, err
	}
	return FilterPredicate{Kind: FilterDateRange, Column: ColumnFecha, From: from, To: to}, nil
}

var periodoLayouts = []struct {
	layout string
	next   func(time.Time) time.Time
}{
	{"2006-01-02", func(t time.Time) time.Time { return t.AddDate(0, 0, 1) }},
	{"2006-01", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"200601", func(t time.Time) time.Time { return t.AddDate(0, 1, 0) }},
	{"2006", func(t time.Time) time.Time { return t.AddDate(1, 0, 0) }},
}

// ParsePeriodo parses a full or partial date and returns the first and last day of the
// period it denotes.
func ParsePeriodo(s string) (first, last time.Time, err error) {
	s = strings.TrimSpace(s)
	for _, p := range periodoLayouts {
		t, err := time.Parse(p.layout, s)
		if err != nil {
			continue
		}
		return t, p.next(t).AddDate(0, 0, -1), nil
	}
	return time.Time{}, time.Time{}, ErrInvalidDate
}

// ContainsFold reports whether needle is a case-insensitive substring of haystack.
func ContainsFold(haystack, needle string) bool {
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}
