package registry

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"enrolsight/config"
	"enrolsight/internal/datasets"
	"enrolsight/internal/metrics"
	"enrolsight/pkg/toolerr"
	"enrolsight/pkg/validation"
)

// ExportTableInput defines parameters for exporting filtered rows to CSV.
type ExportTableInput struct {
	DatasetID string   `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID"`
	Table     string   `json:"table,omitempty" validate:"tablename" jsonschema_description:"Table to export: enrolment (default), biometric, or demographic"`
	Columns   []string `json:"columns,omitempty" jsonschema_description:"Restrict the export to these columns, in order"`
	States    []string `json:"states,omitempty" jsonschema_description:"Restrict to these states (case-insensitive)"`
	From      string   `json:"from,omitempty" validate:"datefmt" jsonschema_description:"Inclusive start date, DD-MM-YYYY"`
	To        string   `json:"to,omitempty" validate:"datefmt" jsonschema_description:"Inclusive end date, DD-MM-YYYY"`
	SortBy    string   `json:"sort_by,omitempty" jsonschema_description:"Column to sort by before writing; numeric cells compare numerically"`
	Desc      bool     `json:"desc,omitempty" jsonschema_description:"Sort descending"`
}

// ExportTableOutput documents the written file.
type ExportTableOutput struct {
	Path    string `json:"path" jsonschema_description:"Path of the written CSV file"`
	Rows    int    `json:"rows" jsonschema_description:"Data rows written"`
	Columns int    `json:"columns" jsonschema_description:"Columns written"`
}

// RegisterExportTools wires export_table. Discovery of this tool is gated by
// ExportToolFilter, so it stays hidden unless ENROLSIGHT_ENABLE_EXPORT is set.
func RegisterExportTools(s *server.MCPServer, reg *Registry, mgr *datasets.Manager, settings *config.Settings) {
	tool := mcp.NewTool(
		"export_table",
		mcp.WithDescription("Write the filtered table to a timestamped CSV file in the configured export directory and return its path. The filename follows <export_prefix>_<YYYYMMDD_HHMMSS>.csv."),
		mcp.WithInputSchema[ExportTableInput](),
		mcp.WithOutputSchema[ExportTableOutput](),
	)
	s.AddTool(tool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ExportTableInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		filter, errRes := parseFilter(MetricsInput{DatasetID: in.DatasetID, States: in.States, From: in.From, To: in.To})
		if errRes != nil {
			return errRes, nil
		}

		var out ExportTableOutput
		err := mgr.WithRead(in.DatasetID, func(b *datasets.Bundle) error {
			name := strings.ToLower(strings.TrimSpace(in.Table))
			if name == "" {
				name = datasets.TableEnrolment
			}
			t := b.Table(name)
			if t == nil {
				return fmt.Errorf("table %s not loaded: %w", name, metrics.ErrInsufficientData)
			}
			var werr error
			out, werr = WriteExport(t, in.Columns, filter, in.SortBy, in.Desc, settings)
			return werr
		})
		if err != nil {
			switch {
			case errors.Is(err, datasets.ErrHandleNotFound):
				return toolerr.Wrapf(toolerr.InvalidHandle, "unknown dataset handle %s", in.DatasetID), nil
			case errors.Is(err, metrics.ErrInsufficientData):
				return toolerr.Wrapf(toolerr.NotFound, "%v", err), nil
			default:
				return toolerr.Wrapf(toolerr.ExportFailed, "%v", err), nil
			}
		}

		summary := fmt.Sprintf("wrote %s (%d rows)", out.Path, out.Rows)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(tool)
}

// WriteExport applies the filter, an optional sort, and an optional projection,
// then writes the CSV.
func WriteExport(t *datasets.Table, columns []string, filter metrics.Filter, sortBy string, desc bool, settings *config.Settings) (ExportTableOutput, error) {
	filtered, _, err := metrics.Prepare(t, settings.Columns, filter)
	if err != nil {
		return ExportTableOutput{}, err
	}
	if sortBy != "" {
		col := filtered.ColumnIndex(sortBy)
		if col < 0 {
			return ExportTableOutput{}, fmt.Errorf("sort column %q not found: %w", sortBy, metrics.ErrInsufficientData)
		}
		filtered = filtered.Sorted(col, !desc)
	}
	if len(columns) > 0 {
		filtered = filtered.Project(columns)
		if len(filtered.Columns) == 0 {
			return ExportTableOutput{}, fmt.Errorf("no requested columns exist: %w", metrics.ErrInsufficientData)
		}
	}

	prefix := settings.ExportPrefix
	if prefix == "" {
		prefix = config.DefaultExportPrefix
	}
	dir := settings.ExportDir
	if dir == "" {
		dir = "."
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return ExportTableOutput{}, err
	}
	path := filepath.Join(dir, fmt.Sprintf("%s_%s.csv", prefix, time.Now().Format("20060102_150405")))

	f, err := os.Create(path)
	if err != nil {
		return ExportTableOutput{}, err
	}
	defer f.Close()

	w := csv.NewWriter(f)
	if err := w.Write(filtered.Columns); err != nil {
		return ExportTableOutput{}, err
	}
	for _, row := range filtered.Rows {
		if err := w.Write(row); err != nil {
			return ExportTableOutput{}, err
		}
	}
	w.Flush()
	if err := w.Error(); err != nil {
		return ExportTableOutput{}, err
	}
	return ExportTableOutput{Path: path, Rows: filtered.NumRows(), Columns: len(filtered.Columns)}, nil
}
