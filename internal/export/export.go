// Package export renders technological routes into downloadable documents:
// a JSON dump, a spreadsheet-compatible CSV operations sheet, and a printed
// PDF route sheet rendered through headless Chrome.
package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

// Export formats.
const (
	FormatJSON  = "json"
	FormatPDF   = "pdf"
	FormatExcel = "excel"
)

// ValidFormat reports whether f is a supported export format.
func ValidFormat(f string) bool {
	return f == FormatJSON || f == FormatPDF || f == FormatExcel
}

// Document is a rendered export ready to be sent to the client.
type Document struct {
	Filename    string
	ContentType string
	Data        []byte
}

// Exporter renders routes into export documents.
type Exporter struct {
	cfg      config.ExportConfig
	renderer *PDFRenderer
}

// New creates an exporter. The PDF renderer is initialized lazily on first
// use so deployments without Chrome still serve JSON and spreadsheet
// exports.
func New(cfg config.ExportConfig) *Exporter {
	return &Exporter{cfg: cfg}
}

// Close releases the PDF renderer if one was started.
func (e *Exporter) Close() error {
	if e.renderer != nil {
		return e.renderer.Close()
	}
	return nil
}

// Export renders a route in the requested format.
func (e *Exporter) Export(ctx context.Context, route *models.TechnologicalRoute, format string) (*Document, error) {
	switch format {
	case FormatJSON:
		return e.exportJSON(route)
	case FormatExcel:
		return e.exportSheet(route)
	case FormatPDF:
		return e.exportPDF(ctx, route)
	default:
		return nil, fmt.Errorf("unsupported export format: %s", format)
	}
}

func baseFilename(route *models.TechnologicalRoute) string {
	code := strings.ReplaceAll(route.RouteCode, "/", "-")
	return fmt.Sprintf("route_%s_v%d", code, route.VersionNumber)
}

// exportJSON dumps the full route payload including the graph.
func (e *Exporter) exportJSON(route *models.TechnologicalRoute) (*Document, error) {
	payload := struct {
		models.RouteInfo
		ExportedAt time.Time `json:"exported_at"`
	}{
		RouteInfo:  route.Info(),
		ExportedAt: time.Now().UTC(),
	}

	data, err := json.MarshalIndent(payload, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshal route export: %w", err)
	}
	return &Document{
		Filename:    baseFilename(route) + ".json",
		ContentType: "application/json",
		Data:        data,
	}, nil
}

// exportSheet writes the route's operations as CSV. The content type is the
// Excel one so browsers hand the file to a spreadsheet application.
func (e *Exporter) exportSheet(route *models.TechnologicalRoute) (*Document, error) {
	doc, err := route.Graph()
	if err != nil {
		return nil, fmt.Errorf("decode route graph: %w", err)
	}

	var buf bytes.Buffer
	w := csv.NewWriter(&buf)

	header := []string{"#", "Operation", "Code", "Type", "Setup Time (min)", "Operation Time (min)", "Total Time (min)", "Equipment", "Skills"}
	if err := w.Write(header); err != nil {
		return nil, err
	}

	var totalSetup, totalWork float64
	row := 0
	for _, node := range doc.OperationNodes() {
		op := node.Data.Operation
		if op == nil {
			continue
		}
		row++
		totalSetup += op.SetupTime
		totalWork += op.OperationTime
		record := []string{
			fmt.Sprintf("%d", row),
			op.Name,
			op.OperationCode,
			op.OperationType,
			fmt.Sprintf("%.1f", op.SetupTime),
			fmt.Sprintf("%.1f", op.OperationTime),
			fmt.Sprintf("%.1f", op.SetupTime+op.OperationTime),
			strings.Join(op.RequiredEquipment, "; "),
			strings.Join(op.RequiredSkills, "; "),
		}
		if err := w.Write(record); err != nil {
			return nil, err
		}
	}

	total := []string{"", "Total", "", "",
		fmt.Sprintf("%.1f", totalSetup),
		fmt.Sprintf("%.1f", totalWork),
		fmt.Sprintf("%.1f", totalSetup+totalWork),
		"", ""}
	if err := w.Write(total); err != nil {
		return nil, err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return nil, err
	}

	return &Document{
		Filename:    baseFilename(route) + ".csv",
		ContentType: "application/vnd.ms-excel",
		Data:        buf.Bytes(),
	}, nil
}

// exportPDF renders the HTML route sheet to PDF through headless Chrome.
func (e *Exporter) exportPDF(ctx context.Context, route *models.TechnologicalRoute) (*Document, error) {
	if e.cfg.DisablePDF {
		return nil, fmt.Errorf("pdf export is disabled")
	}

	if e.renderer == nil {
		r, err := NewPDFRenderer(e.cfg)
		if err != nil {
			return nil, err
		}
		e.renderer = r
	}

	html, err := RenderSheetHTML(route, e.cfg)
	if err != nil {
		return nil, err
	}

	data, err := e.renderer.Render(ctx, html)
	if err != nil {
		return nil, err
	}
	return &Document{
		Filename:    baseFilename(route) + ".pdf",
		ContentType: "application/pdf",
		Data:        data,
	}, nil
}
