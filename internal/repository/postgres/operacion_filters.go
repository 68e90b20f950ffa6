package postgres

import (
	"fmt"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
)

// operacionColumnExpr renders each filterable column as text, matching how values are
// shown to users.
var operacionColumnExpr = map[domain.FilterColumn]string{
	domain.ColumnID:            "o.id::text",
	domain.ColumnFecha:         "to_char(o.fecha, 'YYYY-MM-DD')",
	domain.ColumnTipo:          "o.tipo",
	domain.ColumnNaturaleza:    "o.naturaleza",
	domain.ColumnCaracter:      "o.caracter",
	domain.ColumnOption:        `o."option"`,
	domain.ColumnCodigo:        "o.codigo",
	domain.ColumnObservaciones: "o.observaciones",
	domain.ColumnMetodoDePago:  "o.metodo_de_pago",
	domain.ColumnMontoTotal:    "o.monto_total::text",
}

// relatedSubqueries are EXISTS templates; %[1]s is the pattern placeholder.
var relatedSubqueries = map[domain.RelatedEntity]string{
	domain.RelatedPersona:      "EXISTS (SELECT 1 FROM personas p WHERE p.id = o.id_persona AND (p.cuit ILIKE %[1]s OR p.razon_social ILIKE %[1]s))",
	domain.RelatedSubcategoria: "EXISTS (SELECT 1 FROM subcategorias s WHERE s.id = o.id_subcategoria AND s.nombre ILIKE %[1]s)",
	domain.RelatedUsuario:      "EXISTS (SELECT 1 FROM usuarios u WHERE u.id = o.id_usuario AND u.nombre ILIKE %[1]s)",
}

// compileOperacionFilters turns predicates into a WHERE over "operaciones o".
func compileOperacionFilters(filters []domain.FilterPredicate) (*whereBuilder, error) {
	w := &whereBuilder{}
	for _, f := range filters {
		switch f.Kind {
		case domain.FilterSubstring:
			expr, ok := operacionColumnExpr[f.Column]
			if !ok {
				return nil, fmt.Errorf("unknown filter column %q", f.Column)
			}
			w.add(fmt.Sprintf("%s ILIKE %s", expr, w.arg(containsPattern(f.Value))))
		case domain.FilterDateRange:
			from := w.arg(toPgDate(f.From))
			to := w.arg(toPgDate(f.To))
			w.add(fmt.Sprintf("o.fecha BETWEEN %s AND %s", from, to))
		case domain.FilterRelatedSubstring:
			tmpl, ok := relatedSubqueries[f.Related]
			if !ok {
				return nil, fmt.Errorf("unknown related filter %d", f.Related)
			}
			w.add(fmt.Sprintf(tmpl, w.arg(containsPattern(f.Value))))
		default:
			return nil, fmt.Errorf("unknown filter kind %d", f.Kind)
		}
	}
	return w, nil
}
