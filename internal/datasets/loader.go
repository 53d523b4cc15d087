package datasets

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/csv"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/rs/zerolog"
	"github.com/xuri/excelize/v2"
	"golang.org/x/sync/errgroup"
)

// Bundle groups the three source tables loaded from one data directory. Biometric
// and demographic tables are optional; Enrolment is always present.
type Bundle struct {
	Dir         string
	Hash        string
	Enrolment   *Table
	Biometric   *Table
	Demographic *Table
	Files       []SourceFile
}

// SourceFile records one scanned input and its classification.
type SourceFile struct {
	Name string
	Kind string // enrolment, biometric, demographic
	Rows int
	data []byte
}

// ErrNoDataDir indicates the configured data directory does not exist.
var ErrNoDataDir = errors.New("datasets: data directory not found")

// ErrNoDatasets indicates no loadable enrolment files were found.
var ErrNoDatasets = errors.New("datasets: no enrolment files found")

// Table names within a bundle.
const (
	TableEnrolment   = "enrolment"
	TableBiometric   = "biometric"
	TableDemographic = "demographic"
)

// Table returns the named table, or nil.
func (b *Bundle) Table(name string) *Table {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", TableEnrolment:
		return b.Enrolment
	case TableBiometric:
		return b.Biometric
	case TableDemographic:
		return b.Demographic
	}
	return nil
}

// ScanDir lists CSV/XLSX files in dir classified by filename substring, sorted by
// name, with contents read eagerly so the bundle hash can be computed before parsing.
func ScanDir(dir string) ([]SourceFile, error) {
	info, err := os.Stat(dir)
	if err != nil || !info.IsDir() {
		return nil, fmt.Errorf("%w: %s", ErrNoDataDir, dir)
	}
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("datasets: read dir %s: %w", dir, err)
	}

	var files []SourceFile
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		name := e.Name()
		low := strings.ToLower(name)
		ext := filepath.Ext(low)
		if ext != ".csv" && ext != ".xlsx" {
			continue
		}
		kind := ""
		switch {
		case strings.Contains(low, TableEnrolment):
			kind = TableEnrolment
		case strings.Contains(low, TableBiometric):
			kind = TableBiometric
		case strings.Contains(low, TableDemographic):
			kind = TableDemographic
		default:
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, name))
		if err != nil {
			return nil, fmt.Errorf("datasets: read %s: %w", name, err)
		}
		files = append(files, SourceFile{Name: name, Kind: kind, data: data})
	}
	sort.Slice(files, func(i, j int) bool { return files[i].Name < files[j].Name })
	return files, nil
}

// HashFiles computes the bundle content hash: SHA-256 over every scanned file's
// bytes in name order. This is the cache key for bundle reuse.
func HashFiles(files []SourceFile) string {
	h := sha256.New()
	for _, f := range files {
		_, _ = io.WriteString(h, f.Name)
		_, _ = h.Write(f.data)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// BuildBundle parses scanned files into a Bundle. The three dataset groups parse
// concurrently. A file that fails to parse is logged at warn level and skipped;
// an enrolment group with zero surviving files is a blocking error.
func BuildBundle(ctx context.Context, dir string, files []SourceFile, logger zerolog.Logger) (*Bundle, error) {
	b := &Bundle{Dir: dir, Hash: HashFiles(files)}

	byKind := map[string][]SourceFile{}
	for _, f := range files {
		byKind[f.Kind] = append(byKind[f.Kind], f)
	}

	var mu sync.Mutex
	g, ctx := errgroup.WithContext(ctx)
	for _, kind := range []string{TableEnrolment, TableBiometric, TableDemographic} {
		kind := kind
		group := byKind[kind]
		if len(group) == 0 {
			continue
		}
		g.Go(func() error {
			if err := ctx.Err(); err != nil {
				return err
			}
			t, loaded := parseGroup(kind, group, logger)
			mu.Lock()
			defer mu.Unlock()
			switch kind {
			case TableEnrolment:
				b.Enrolment = t
			case TableBiometric:
				b.Biometric = t
			case TableDemographic:
				b.Demographic = t
			}
			b.Files = append(b.Files, loaded...)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	if b.Enrolment == nil || len(b.Enrolment.Rows) == 0 {
		return nil, ErrNoDatasets
	}
	ensureTotalColumn(b.Enrolment)

	sort.Slice(b.Files, func(i, j int) bool { return b.Files[i].Name < b.Files[j].Name })
	return b, nil
}

// parseGroup parses every file of one kind and unions the rows.
func parseGroup(kind string, group []SourceFile, logger zerolog.Logger) (*Table, []SourceFile) {
	t := &Table{Name: kind}
	var loaded []SourceFile
	for _, f := range group {
		cols, rows, err := parseFile(f)
		if err != nil {
			logger.Warn().Str("file", f.Name).Err(err).Msg("skipping unreadable source file")
			continue
		}
		appendUnion(t, cols, rows)
		f.Rows = len(rows)
		f.data = nil
		loaded = append(loaded, f)
	}
	if len(loaded) == 0 {
		return nil, nil
	}
	return t, loaded
}

// appendUnion merges a file's rows into the table with column-union semantics:
// new columns extend the header, missing cells stay empty.
func appendUnion(t *Table, cols []string, rows [][]string) {
	idx := make([]int, len(cols))
	for i, c := range cols {
		pos := t.ColumnIndex(c)
		if pos < 0 {
			pos = len(t.Columns)
			t.Columns = append(t.Columns, c)
		}
		idx[i] = pos
	}
	for _, src := range rows {
		row := make([]string, len(t.Columns))
		for i := range src {
			if i < len(idx) {
				row[idx[i]] = strings.TrimSpace(src[i])
			}
		}
		t.Rows = append(t.Rows, row)
	}
	// Backfill older rows when the header grew.
	for r, row := range t.Rows {
		if len(row) < len(t.Columns) {
			grown := make([]string, len(t.Columns))
			copy(grown, row)
			t.Rows[r] = grown
		}
	}
}

func parseFile(f SourceFile) ([]string, [][]string, error) {
	switch filepath.Ext(strings.ToLower(f.Name)) {
	case ".csv":
		return parseCSV(f.data)
	case ".xlsx":
		return parseXLSX(f.data)
	}
	return nil, nil, fmt.Errorf("datasets: unsupported format: %s", f.Name)
}

func parseCSV(data []byte) ([]string, [][]string, error) {
	r := csv.NewReader(bytes.NewReader(data))
	r.FieldsPerRecord = -1
	r.TrimLeadingSpace = true
	records, err := r.ReadAll()
	if err != nil {
		return nil, nil, err
	}
	if len(records) == 0 {
		return nil, nil, errors.New("datasets: empty file")
	}
	cols := make([]string, len(records[0]))
	for i, c := range records[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return cols, records[1:], nil
}

func parseXLSX(data []byte) ([]string, [][]string, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, nil, err
	}
	defer f.Close()
	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, nil, errors.New("datasets: workbook has no sheets")
	}
	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return nil, nil, err
	}
	if len(rows) == 0 {
		return nil, nil, errors.New("datasets: empty sheet")
	}
	cols := make([]string, len(rows[0]))
	for i, c := range rows[0] {
		cols[i] = strings.TrimSpace(c)
	}
	return cols, rows[1:], nil
}

// ensureTotalColumn appends a synthetic per-row total (sum of all age-bucket
// columns) when the table has age columns but no total column.
func ensureTotalColumn(t *Table) {
	hasTotal := false
	var ageCols []int
	for i, c := range t.Columns {
		low := strings.ToLower(c)
		if strings.Contains(low, "total") {
			hasTotal = true
		}
		if strings.Contains(low, "age") {
			ageCols = append(ageCols, i)
		}
	}
	if hasTotal || len(ageCols) == 0 {
		return
	}
	t.Columns = append(t.Columns, "total")
	for r := range t.Rows {
		var sum float64
		for _, c := range ageCols {
			if v, ok := t.Float(r, c); ok {
				sum += v
			}
		}
		t.Rows[r] = append(t.Rows[r], strconv.FormatFloat(sum, 'f', -1, 64))
	}
}
