package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/gestionfin/operaciones/operaciones-backend/internal/domain"
	"github.com/rs/zerolog/log"
	"github.com/xuri/excelize/v2"
)

const (
	exportSheet          = "Operaciones"
	exportFilenameLayout = "2006-01-02_15-04-05"
	// XLSXContentType is the MIME type of the generated spreadsheet
	XLSXContentType = "application/vnd.openxmlformats-officedocument.spreadsheetml.sheet"
)

var exportHeader = []interface{}{
	"ID", "Fecha", "Tipo", "Carácter", "Naturaleza", "CUIT", "Razón Social", "Opción",
	"Código", "Observaciones", "Método de Pago", "Monto Total", "Concepto", "Categoría",
	"Subcategoría", "Usuario", "Modificado por otro",
}

// Export is a generated spreadsheet ready to be sent
type Export struct {
	Filename string
	Content  []byte
	Rows     int
}

// ExportOperaciones renders every operation matching params into an xlsx workbook with
// one row per operation.
func (s *OperacionService) ExportOperaciones(ctx context.Context, params map[string]string) (*Export, error) {
	filters, err := domain.BuildOperacionFilters(params)
	if err != nil {
		return nil, err
	}

	rows, err := s.repo.ListDetalle(ctx, filters)
	if err != nil {
		log.Error().Err(err).Msg("Failed to load operaciones for export")
		return nil, domain.NewPersistenceError("list operaciones", err)
	}

	content, err := renderOperacionesXLSX(rows)
	if err != nil {
		log.Error().Err(err).Msg("Failed to render operaciones export")
		return nil, err
	}

	log.Info().Int("rows", len(rows)).Msg("Operaciones exported")
	return &Export{
		Filename: fmt.Sprintf("operaciones_%s.xlsx", s.now().Format(exportFilenameLayout)),
		Content:  content,
		Rows:     len(rows),
	}, nil
}

func renderOperacionesXLSX(rows []*domain.OperacionDetalle) ([]byte, error) {
	f := excelize.NewFile()
	defer f.Close()

	if err := f.SetSheetName("Sheet1", exportSheet); err != nil {
		return nil, fmt.Errorf("failed to name sheet: %w", err)
	}

	sw, err := f.NewStreamWriter(exportSheet)
	if err != nil {
		return nil, fmt.Errorf("failed to open sheet writer: %w", err)
	}
	if err := sw.SetRow("A1", exportHeader); err != nil {
		return nil, fmt.Errorf("failed to write header: %w", err)
	}

	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+2)
		if err != nil {
			return nil, err
		}
		if err := sw.SetRow(cell, exportRow(row)); err != nil {
			return nil, fmt.Errorf("failed to write row %d: %w", i+2, err)
		}
	}
	if err := sw.Flush(); err != nil {
		return nil, fmt.Errorf("failed to flush sheet: %w", err)
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, fmt.Errorf("failed to write workbook: %w", err)
	}
	return buf.Bytes(), nil
}

func exportRow(d *domain.OperacionDetalle) []interface{} {
	usuario := strings.TrimSpace(d.UsuarioNombre + " " + d.UsuarioApellido)
	modificado := "No"
	if d.ModificadoPorOtro {
		modificado = "Sí"
	}
	return []interface{}{
		d.ID,
		d.Fecha.Format(domain.DateLayout),
		string(d.Tipo),
		d.Caracter,
		d.Naturaleza,
		d.PersonaCUIT,
		d.PersonaRazonSocial,
		d.Option,
		d.Codigo,
		d.Observaciones,
		d.MetodoDePago,
		d.MontoTotal.InexactFloat64(),
		d.ConceptoNombre,
		d.CategoriaNombre,
		d.SubcategoriaNombre,
		usuario,
		modificado,
	}
}
