package registry

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/mark3labs/mcp-go/mcp"
	"github.com/mark3labs/mcp-go/server"

	"enrolsight/config"
	"enrolsight/internal/datasets"
	"enrolsight/internal/runtime"
	"enrolsight/internal/schema"
	"enrolsight/pkg/pagination"
	"enrolsight/pkg/toolerr"
	"enrolsight/pkg/validation"
)

// --- Input / Output Schemas (typed for discovery) ---

// OpenDatasetInput defines parameters for opening a data directory.
type OpenDatasetInput struct {
	Dir string `json:"dir,omitempty" jsonschema_description:"Data directory with enrolment/biometric/demographic extracts; defaults to the configured data_dir"`
}

// FileInfo records one loaded source file.
type FileInfo struct {
	Name string `json:"name" jsonschema_description:"Source file name"`
	Kind string `json:"kind" jsonschema_description:"Classified table: enrolment, biometric, or demographic"`
	Rows int    `json:"rows" jsonschema_description:"Data rows loaded from this file"`
}

// TableInfo summarizes a loaded table without row data.
type TableInfo struct {
	Name        string   `json:"name" jsonschema_description:"Table name"`
	RowCount    int      `json:"rowCount" jsonschema_description:"Row count"`
	ColumnCount int      `json:"columnCount" jsonschema_description:"Column count"`
	Headers     []string `json:"headers,omitempty" jsonschema_description:"Column headers"`
}

// OpenDatasetOutput documents the response for open_dataset.
type OpenDatasetOutput struct {
	DatasetID       string      `json:"dataset_id" jsonschema_description:"Server-assigned dataset handle ID"`
	ContentHash     string      `json:"content_hash" jsonschema_description:"SHA-256 over the source files; identical content reuses the parsed bundle"`
	Files           []FileInfo  `json:"files"`
	Tables          []TableInfo `json:"tables"`
	PreviewRowLimit int         `json:"previewRowLimit" jsonschema_description:"Default row limit for previews"`
}

// CloseDatasetInput defines parameters for closing a dataset handle.
type CloseDatasetInput struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID to close"`
}

// CloseDatasetOutput documents the response for close_dataset.
type CloseDatasetOutput struct {
	Success bool `json:"success" jsonschema_description:"True when the handle was closed"`
}

// ListStructureInput defines parameters for structure discovery.
type ListStructureInput struct {
	DatasetID string `json:"dataset_id" validate:"required" jsonschema_description:"Dataset handle ID"`
}

// TableStructure describes one table with its resolved semantic columns.
type TableStructure struct {
	Name          string              `json:"name"`
	RowCount      int                 `json:"rowCount"`
	ColumnCount   int                 `json:"columnCount"`
	Headers       []string            `json:"headers"`
	Roles         map[string]string   `json:"roles,omitempty" jsonschema_description:"Resolved semantic columns (date, state, district, total, gender)"`
	Unresolved    []string            `json:"unresolved_roles,omitempty" jsonschema_description:"Roles with no matching column; dependent metrics degrade"`
	Ambiguous     map[string][]string `json:"ambiguous_roles,omitempty" jsonschema_description:"Roles matched by more than one column; the first match wins"`
	AgeColumns    []string            `json:"age_columns,omitempty"`
	BioAgeColumns []string            `json:"bio_age_columns,omitempty"`
}

// ListStructureOutput summarizes bundle structure.
type ListStructureOutput struct {
	DatasetID string           `json:"dataset_id"`
	Tables    []TableStructure `json:"tables"`
}

// PreviewTableInput defines parameters for previewing table rows.
type PreviewTableInput struct {
	DatasetID string `json:"dataset_id,omitempty" jsonschema_description:"Dataset handle ID (omit when paging with a cursor)"`
	Table     string `json:"table,omitempty" validate:"tablename" jsonschema_description:"Table to preview: enrolment (default), biometric, or demographic"`
	Rows      int    `json:"rows,omitempty" jsonschema_description:"Max rows per page (bounded)"`
	Cursor    string `json:"cursor,omitempty" validate:"cursor" jsonschema_description:"Opaque pagination cursor from a previous call"`
}

// PageMeta captures paging and truncation metadata.
type PageMeta struct {
	Total      int    `json:"total"`
	Returned   int    `json:"returned"`
	Truncated  bool   `json:"truncated"`
	NextCursor string `json:"nextCursor,omitempty"`
}

// PreviewTableOutput documents the preview payload.
type PreviewTableOutput struct {
	DatasetID string     `json:"dataset_id"`
	Table     string     `json:"table"`
	Columns   []string   `json:"columns"`
	Rows      [][]string `json:"rows"`
	Meta      PageMeta   `json:"meta"`
}

// RegisterDatasetTools wires dataset lifecycle and inspection tools.
func RegisterDatasetTools(s *server.MCPServer, reg *Registry, limits runtime.Limits, mgr *datasets.Manager, settings *config.Settings) {
	// open_dataset
	openTool := mcp.NewTool(
		"open_dataset",
		mcp.WithDescription("Scan a data directory for enrolment, biometric, and demographic extracts (.csv, .xlsx), load them into an in-memory bundle, and return a handle ID. Files with the same classification are unioned row-wise; a synthetic total column is derived from age buckets when no total column exists. Reopening unchanged files reuses the parsed bundle via content hash."),
		mcp.WithString("dir", mcp.Description("Data directory; defaults to the configured data_dir")),
		mcp.WithOutputSchema[OpenDatasetOutput](),
	)
	s.AddTool(openTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in OpenDatasetInput) (*mcp.CallToolResult, error) {
		dir := strings.TrimSpace(in.Dir)
		if dir == "" {
			dir = settings.DataDir
		}
		id, bundle, err := mgr.Open(ctx, dir)
		if err != nil {
			switch {
			case errors.Is(err, datasets.ErrNoDataDir):
				return toolerr.Wrapf(toolerr.OpenFailed, "data directory not found: %s", dir), nil
			case errors.Is(err, datasets.ErrNoDatasets):
				return toolerr.Wrapf(toolerr.LoadFailed, "no loadable enrolment files in %s", dir), nil
			case errors.Is(err, context.DeadlineExceeded):
				return toolerr.New(toolerr.Timeout, ""), nil
			default:
				return toolerr.Wrapf(toolerr.OpenFailed, "%v", err), nil
			}
		}

		out := OpenDatasetOutput{
			DatasetID:       id,
			ContentHash:     bundle.Hash,
			PreviewRowLimit: limits.PreviewRowLimit,
		}
		for _, f := range bundle.Files {
			out.Files = append(out.Files, FileInfo{Name: f.Name, Kind: f.Kind, Rows: f.Rows})
		}
		for _, name := range []string{datasets.TableEnrolment, datasets.TableBiometric, datasets.TableDemographic} {
			t := bundle.Table(name)
			if t == nil {
				continue
			}
			out.Tables = append(out.Tables, TableInfo{
				Name:        name,
				RowCount:    t.NumRows(),
				ColumnCount: len(t.Columns),
				Headers:     t.Columns,
			})
		}
		summary := fmt.Sprintf("dataset_id=%s files=%d tables=%d", id, len(out.Files), len(out.Tables))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(openTool)

	// close_dataset
	closeTool := mcp.NewTool(
		"close_dataset",
		mcp.WithDescription("Close a previously opened dataset handle and free its slot. The parsed bundle stays cached by content hash for fast reopening."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset handle ID")),
		mcp.WithOutputSchema[CloseDatasetOutput](),
	)
	s.AddTool(closeTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in CloseDatasetInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		if err := mgr.CloseHandle(ctx, in.DatasetID); err != nil {
			return toolerr.Wrapf(toolerr.InvalidHandle, "unknown dataset handle %s", in.DatasetID), nil
		}
		summary := "closed " + in.DatasetID
		res := mcp.NewToolResultStructured(CloseDatasetOutput{Success: true}, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(closeTool)

	// list_structure
	listTool := mcp.NewTool(
		"list_structure",
		mcp.WithDescription("Return bundle structure: tables, dimensions, headers, and the resolved semantic columns (date, state, district, total, gender, age buckets) used by the metric tools. No row data."),
		mcp.WithString("dataset_id", mcp.Required(), mcp.Description("Dataset handle ID")),
		mcp.WithOutputSchema[ListStructureOutput](),
	)
	s.AddTool(listTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in ListStructureInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		out := ListStructureOutput{DatasetID: in.DatasetID}
		err := mgr.WithRead(in.DatasetID, func(b *datasets.Bundle) error {
			for _, name := range []string{datasets.TableEnrolment, datasets.TableBiometric, datasets.TableDemographic} {
				t := b.Table(name)
				if t == nil {
					continue
				}
				out.Tables = append(out.Tables, tableStructure(name, t))
			}
			return nil
		})
		if err != nil {
			return toolerr.Wrapf(toolerr.InvalidHandle, "unknown dataset handle %s", in.DatasetID), nil
		}
		summary := fmt.Sprintf("dataset_id=%s tables=%d", in.DatasetID, len(out.Tables))
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(listTool)

	// preview_table
	previewTool := mcp.NewTool(
		"preview_table",
		mcp.WithDescription("Return a bounded page of table rows with an opaque cursor for continuation. Pass dataset_id and table for the first page, then only the cursor. Cursors bind to the bundle content hash and are rejected when the source files changed."),
		mcp.WithString("dataset_id", mcp.Description("Dataset handle ID (omit when paging with a cursor)")),
		mcp.WithString("table", mcp.DefaultString(datasets.TableEnrolment), mcp.Enum(datasets.TableEnrolment, datasets.TableBiometric, datasets.TableDemographic), mcp.Description("Table to preview")),
		mcp.WithNumber("rows", mcp.DefaultNumber(float64(limits.PreviewRowLimit)), mcp.Min(1), mcp.Max(float64(config.DefaultMaxPreviewRows)), mcp.Description("Max rows per page")),
		mcp.WithString("cursor", mcp.Description("Opaque pagination cursor from a previous call")),
		mcp.WithOutputSchema[PreviewTableOutput](),
	)
	s.AddTool(previewTool, mcp.NewTypedToolHandler(func(ctx context.Context, req mcp.CallToolRequest, in PreviewTableInput) (*mcp.CallToolResult, error) {
		if msg := validation.ValidateStruct(in); msg != "" {
			return toolerr.FromText(msg), nil
		}
		out, errRes := previewPage(mgr, limits, in)
		if errRes != nil {
			return errRes, nil
		}
		summary := fmt.Sprintf("table=%s returned=%d total=%d truncated=%v", out.Table, out.Meta.Returned, out.Meta.Total, out.Meta.Truncated)
		res := mcp.NewToolResultStructured(out, summary)
		res.Content = []mcp.Content{mcp.NewTextContent(summary)}
		return res, nil
	}))
	reg.Register(previewTool)
}

// previewPage resolves the page window from either explicit inputs or a cursor.
func previewPage(mgr *datasets.Manager, limits runtime.Limits, in PreviewTableInput) (PreviewTableOutput, *mcp.CallToolResult) {
	datasetID := strings.TrimSpace(in.DatasetID)
	table := strings.ToLower(strings.TrimSpace(in.Table))
	offset := 0
	pageSize := in.Rows
	var boundHash string

	if c := strings.TrimSpace(in.Cursor); c != "" {
		cur, err := pagination.DecodeCursor(c)
		if err != nil {
			return PreviewTableOutput{}, toolerr.Wrapf(toolerr.CursorInvalid, "%v", err)
		}
		datasetID = cur.Did
		table = cur.T
		offset = cur.Off
		pageSize = cur.Ps
		boundHash = cur.Ch
	}
	if datasetID == "" {
		return PreviewTableOutput{}, toolerr.New(toolerr.Validation, "dataset_id or cursor is required")
	}
	if table == "" {
		table = datasets.TableEnrolment
	}
	if pageSize <= 0 {
		pageSize = limits.PreviewRowLimit
	}
	if pageSize > config.DefaultMaxPreviewRows {
		pageSize = config.DefaultMaxPreviewRows
	}

	out := PreviewTableOutput{DatasetID: datasetID, Table: table}
	var errRes *mcp.CallToolResult
	err := mgr.WithRead(datasetID, func(b *datasets.Bundle) error {
		if boundHash != "" && boundHash != b.Hash {
			errRes = toolerr.New(toolerr.CursorInvalid, "source files changed since the cursor was issued")
			return nil
		}
		t := b.Table(table)
		if t == nil {
			errRes = toolerr.Wrapf(toolerr.NotFound, "table %s not loaded in this bundle", table)
			return nil
		}
		total := t.NumRows()
		if offset > total {
			offset = total
		}
		end := offset + pageSize
		if end > total {
			end = total
		}
		out.Columns = t.Columns
		out.Rows = t.Rows[offset:end]
		out.Meta = PageMeta{Total: total, Returned: end - offset, Truncated: end < total}
		if end < total {
			token, err := pagination.EncodeCursor(pagination.Cursor{
				V:   1,
				Did: datasetID,
				T:   table,
				Off: pagination.NextOffset(offset, end-offset),
				Ps:  pageSize,
				Ch:  b.Hash,
				Iat: time.Now().Unix(),
			})
			if err != nil {
				return err
			}
			out.Meta.NextCursor = token
		}
		return nil
	})
	if err != nil {
		if errors.Is(err, datasets.ErrHandleNotFound) {
			return out, toolerr.Wrapf(toolerr.InvalidHandle, "unknown dataset handle %s", datasetID)
		}
		return out, toolerr.Wrapf(toolerr.AnalysisFailed, "%v", err)
	}
	return out, errRes
}

func tableStructure(name string, t *datasets.Table) TableStructure {
	res := schema.Resolve(t.Columns)
	roles := map[string]string{}
	if res.Date != "" {
		roles[string(schema.RoleDate)] = res.Date
	}
	if res.State != "" {
		roles[string(schema.RoleState)] = res.State
	}
	if res.District != "" {
		roles[string(schema.RoleDistrict)] = res.District
	}
	if res.EnrolTotal != "" {
		roles[string(schema.RoleTotal)] = res.EnrolTotal
	}
	if res.Gender != "" {
		roles[string(schema.RoleGender)] = res.Gender
	}
	var unresolved []string
	for _, r := range res.Unresolved() {
		unresolved = append(unresolved, string(r))
	}
	var ambiguous map[string][]string
	if len(res.Ambiguous) > 0 {
		ambiguous = map[string][]string{}
		for r, cands := range res.Ambiguous {
			ambiguous[string(r)] = cands
		}
	}
	return TableStructure{
		Name:          name,
		RowCount:      t.NumRows(),
		ColumnCount:   len(t.Columns),
		Headers:       t.Columns,
		Roles:         roles,
		Unresolved:    unresolved,
		Ambiguous:     ambiguous,
		AgeColumns:    res.AgeColumns,
		BioAgeColumns: res.BioAgeColumns,
	}
}
