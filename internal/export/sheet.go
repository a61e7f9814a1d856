package export

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
	"time"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/models"
)

//go:embed sheet.html.tmpl
var sheetTemplate string

var sheetTmpl = template.Must(template.New("sheet").Funcs(template.FuncMap{
	"minutes": func(v float64) string { return fmt.Sprintf("%.1f", v) },
}).Parse(sheetTemplate))

type sheetRow struct {
	Index         int
	Name          string
	Code          string
	Type          string
	SetupTime     float64
	OperationTime float64
	TotalTime     float64
}

type sheetData struct {
	Company     string
	Footnote    string
	Route       models.RouteInfo
	Rows        []sheetRow
	TotalSetup  float64
	TotalWork   float64
	Total       float64
	GeneratedAt string
}

// RenderSheetHTML fills the route sheet template for PDF printing.
func RenderSheetHTML(route *models.TechnologicalRoute, cfg config.ExportConfig) (string, error) {
	doc, err := route.Graph()
	if err != nil {
		return "", fmt.Errorf("decode route graph: %w", err)
	}

	data := sheetData{
		Company:     cfg.CompanyName,
		Footnote:    cfg.SheetFootnote,
		Route:       route.Info(),
		GeneratedAt: time.Now().UTC().Format("2006-01-02 15:04 MST"),
	}

	for _, node := range doc.OperationNodes() {
		op := node.Data.Operation
		if op == nil {
			continue
		}
		row := sheetRow{
			Index:         len(data.Rows) + 1,
			Name:          op.Name,
			Code:          op.OperationCode,
			Type:          op.OperationType,
			SetupTime:     op.SetupTime,
			OperationTime: op.OperationTime,
			TotalTime:     op.SetupTime + op.OperationTime,
		}
		data.Rows = append(data.Rows, row)
		data.TotalSetup += op.SetupTime
		data.TotalWork += op.OperationTime
	}
	data.Total = data.TotalSetup + data.TotalWork

	var buf bytes.Buffer
	if err := sheetTmpl.Execute(&buf, data); err != nil {
		return "", fmt.Errorf("render route sheet: %w", err)
	}
	return buf.String(), nil
}
