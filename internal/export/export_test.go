package export

import (
	"context"
	"encoding/csv"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"github.com/mesfabric/routecraft/internal/config"
	"github.com/mesfabric/routecraft/internal/graph"
	"github.com/mesfabric/routecraft/internal/models"
)

func testRoute(t *testing.T) *models.TechnologicalRoute {
	t.Helper()
	doc := &graph.Document{
		Nodes: []graph.Node{
			{ID: "start-1", Type: graph.NodeStart, Data: graph.NodeData{Label: "Start"}},
			{ID: "op-1", Type: graph.NodeOperation, Data: graph.NodeData{
				Label: "Milling",
				Operation: &graph.OperationData{
					Name:              "Milling",
					OperationCode:     "OP-010",
					OperationType:     "machining",
					SetupTime:         15,
					OperationTime:     45,
					TotalTime:         60,
					RequiredEquipment: []string{"VMC-850"},
					RequiredSkills:    []string{"CNC operator"},
				},
			}},
			{ID: "op-2", Type: graph.NodeOperation, Data: graph.NodeData{
				Label: "Deburring",
				Operation: &graph.OperationData{
					Name:          "Deburring",
					OperationCode: "OP-020",
					OperationType: "manual",
					SetupTime:     5,
					OperationTime: 10,
					TotalTime:     15,
				},
			}},
			{ID: "end-1", Type: graph.NodeEnd, Data: graph.NodeData{Label: "End"}},
		},
		Edges: []graph.Edge{
			{ID: "e1", Source: "start-1", Target: "op-1"},
			{ID: "e2", Source: "op-1", Target: "op-2"},
			{ID: "e3", Source: "op-2", Target: "end-1"},
		},
	}
	raw, err := json.Marshal(doc)
	if err != nil {
		t.Fatalf("marshal graph: %v", err)
	}
	return &models.TechnologicalRoute{
		ID:            1,
		Name:          "Bracket machining",
		RouteCode:     "RT-7/1",
		Status:        models.RouteStatusActive,
		RouteData:     string(raw),
		VersionNumber: 3,
	}
}

func TestExportJSON(t *testing.T) {
	e := New(config.ExportConfig{})
	defer e.Close()

	doc, err := e.Export(context.Background(), testRoute(t), FormatJSON)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	// Slashes in the route code must not produce nested paths.
	if doc.Filename != "route_RT-7-1_v3.json" {
		t.Errorf("filename = %q", doc.Filename)
	}
	if doc.ContentType != "application/json" {
		t.Errorf("content type = %q", doc.ContentType)
	}

	var payload map[string]interface{}
	if err := json.Unmarshal(doc.Data, &payload); err != nil {
		t.Fatalf("export is not valid JSON: %v", err)
	}
	if payload["route_code"] != "RT-7/1" {
		t.Errorf("route_code = %v", payload["route_code"])
	}
	if payload["exported_at"] == nil {
		t.Error("exported_at missing")
	}
	if payload["route_data"] == nil {
		t.Error("graph payload missing from JSON export")
	}
}

func TestExportSheet(t *testing.T) {
	e := New(config.ExportConfig{})
	defer e.Close()

	doc, err := e.Export(context.Background(), testRoute(t), FormatExcel)
	if err != nil {
		t.Fatalf("export: %v", err)
	}
	if doc.ContentType != "application/vnd.ms-excel" {
		t.Errorf("content type = %q", doc.ContentType)
	}
	if !strings.HasSuffix(doc.Filename, ".csv") {
		t.Errorf("filename = %q", doc.Filename)
	}

	records, err := csv.NewReader(strings.NewReader(string(doc.Data))).ReadAll()
	if err != nil {
		t.Fatalf("parse csv: %v", err)
	}
	// Header, two operations, totals.
	if len(records) != 4 {
		t.Fatalf("got %d rows, want 4", len(records))
	}
	if records[1][1] != "Milling" || records[1][2] != "OP-010" {
		t.Errorf("first row = %v", records[1])
	}
	if records[1][7] != "VMC-850" {
		t.Errorf("equipment = %q", records[1][7])
	}
	if records[2][1] != "Deburring" {
		t.Errorf("second row = %v", records[2])
	}
	totals := records[3]
	if totals[1] != "Total" || totals[4] != "20.0" || totals[5] != "55.0" || totals[6] != "75.0" {
		t.Errorf("totals row = %v", totals)
	}
}

func TestExportPDFDisabled(t *testing.T) {
	e := New(config.ExportConfig{DisablePDF: true})
	defer e.Close()

	_, err := e.Export(context.Background(), testRoute(t), FormatPDF)
	if err == nil || !strings.Contains(err.Error(), "disabled") {
		t.Fatalf("err = %v, want pdf disabled", err)
	}
}

func TestExportUnknownFormat(t *testing.T) {
	e := New(config.ExportConfig{})
	defer e.Close()

	if _, err := e.Export(context.Background(), testRoute(t), "docx"); err == nil {
		t.Fatal("unknown format must be rejected")
	}
	if ValidFormat("docx") {
		t.Error("docx is not a valid format")
	}
	for _, f := range []string{FormatJSON, FormatPDF, FormatExcel} {
		if !ValidFormat(f) {
			t.Errorf("%s should be valid", f)
		}
	}
}

func TestRenderSheetHTML(t *testing.T) {
	route := testRoute(t)
	html, err := RenderSheetHTML(route, config.ExportConfig{
		CompanyName:   "Vostok Machining",
		SheetFootnote: "Controlled document",
	})
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Vostok Machining",
		"Controlled document",
		"Bracket machining",
		"RT-7/1",
		"Milling",
		"OP-020",
	} {
		if !strings.Contains(html, want) {
			t.Errorf("sheet html missing %q", want)
		}
	}
}

func TestPDFRendererHonorsCallerContext(t *testing.T) {
	// A remote allocator pointing nowhere keeps the test from launching a
	// real browser; a canceled caller context must stop the run promptly.
	r, err := NewPDFRenderer(config.ExportConfig{ChromeURL: "ws://127.0.0.1:1/", RenderTimeout: 30})
	if err != nil {
		t.Fatalf("new renderer: %v", err)
	}
	defer r.Close()

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	start := time.Now()
	if _, err := r.Render(ctx, "<html></html>"); err == nil {
		t.Fatal("render with a canceled context must fail")
	}
	if elapsed := time.Since(start); elapsed > 5*time.Second {
		t.Fatalf("render did not stop promptly, took %v", elapsed)
	}
}
