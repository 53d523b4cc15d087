package datasets

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"
)

func writeCSV(t *testing.T, dir, name, content string) {
	t.Helper()
	require.NoError(t, os.WriteFile(filepath.Join(dir, name), []byte(content), 0o644))
}

func writeXLSX(t *testing.T, dir, name string, rows [][]any) {
	t.Helper()
	f := excelize.NewFile()
	defer f.Close()
	sheet := f.GetSheetName(0)
	for i, row := range rows {
		cell, err := excelize.CoordinatesToCellName(1, i+1)
		require.NoError(t, err)
		require.NoError(t, f.SetSheetRow(sheet, cell, &row))
	}
	require.NoError(t, f.SaveAs(filepath.Join(dir, name)))
}

func fixtureDir(t *testing.T) string {
	t.Helper()
	dir := t.TempDir()
	writeCSV(t, dir, "enrolment_jan.csv",
		"date,state,district,age_0_5,age_5_18,total\n"+
			"01-01-2025,Kerala,Ernakulam,10,20,30\n"+
			"02-01-2025,Bihar,Patna,5,15,20\n")
	writeCSV(t, dir, "biometric_jan.csv",
		"date,state,bioage_5_18\n"+
			"01-01-2025,Kerala,12\n")
	writeCSV(t, dir, "notes.txt", "not a dataset")
	writeCSV(t, dir, "misc.csv", "a,b\n1,2\n")
	return dir
}

func TestScanDirClassifiesBySubstring(t *testing.T) {
	dir := fixtureDir(t)
	files, err := ScanDir(dir)
	require.NoError(t, err)
	require.Len(t, files, 2)
	require.Equal(t, "biometric_jan.csv", files[0].Name)
	require.Equal(t, TableBiometric, files[0].Kind)
	require.Equal(t, "enrolment_jan.csv", files[1].Name)
	require.Equal(t, TableEnrolment, files[1].Kind)
}

func TestScanDirMissing(t *testing.T) {
	_, err := ScanDir(filepath.Join(t.TempDir(), "nope"))
	require.ErrorIs(t, err, ErrNoDataDir)
}

func TestHashFilesDeterministic(t *testing.T) {
	dir := fixtureDir(t)
	files, err := ScanDir(dir)
	require.NoError(t, err)
	h1 := HashFiles(files)

	again, err := ScanDir(dir)
	require.NoError(t, err)
	require.Equal(t, h1, HashFiles(again))

	writeCSV(t, dir, "enrolment_feb.csv", "date,state,total\n03-01-2025,Assam,7\n")
	changed, err := ScanDir(dir)
	require.NoError(t, err)
	require.NotEqual(t, h1, HashFiles(changed))
}

func TestBuildBundleLoadsTables(t *testing.T) {
	dir := fixtureDir(t)
	files, err := ScanDir(dir)
	require.NoError(t, err)

	b, err := BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.NoError(t, err)
	require.NotNil(t, b.Enrolment)
	require.NotNil(t, b.Biometric)
	require.Nil(t, b.Demographic)
	require.Equal(t, 2, b.Enrolment.NumRows())
	require.Equal(t, 1, b.Biometric.NumRows())
	require.NotEmpty(t, b.Hash)
	require.Len(t, b.Files, 2)
	require.Equal(t, 1, b.Files[0].Rows)
	require.Equal(t, 2, b.Files[1].Rows)
}

func TestBuildBundleColumnUnion(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "enrolment_a.csv",
		"date,state,total\n01-01-2025,Kerala,30\n")
	writeCSV(t, dir, "enrolment_b.csv",
		"date,state,district,total\n02-01-2025,Bihar,Patna,20\n")

	files, err := ScanDir(dir)
	require.NoError(t, err)
	b, err := BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.NoError(t, err)

	tab := b.Enrolment
	require.Equal(t, []string{"date", "state", "total", "district"}, tab.Columns)
	require.Equal(t, 2, tab.NumRows())
	// Row from the narrower file is backfilled with empty cells.
	require.Equal(t, "", tab.Cell(0, 3))
	require.Equal(t, "Patna", tab.Cell(1, 3))
}

func TestBuildBundleSyntheticTotal(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "enrolment.csv",
		"date,state,age_0_5,age_5_18\n"+
			"01-01-2025,Kerala,10,20\n"+
			"02-01-2025,Bihar,,5\n")

	files, err := ScanDir(dir)
	require.NoError(t, err)
	b, err := BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.NoError(t, err)

	tab := b.Enrolment
	idx := tab.ColumnIndex("total")
	require.GreaterOrEqual(t, idx, 0)
	require.Equal(t, "30", tab.Cell(0, idx))
	require.Equal(t, "5", tab.Cell(1, idx))
}

func TestBuildBundleXLSX(t *testing.T) {
	dir := t.TempDir()
	writeXLSX(t, dir, "enrolment_march.xlsx", [][]any{
		{"date", "state", "total"},
		{"05-03-2025", "Assam", 12},
		{"06-03-2025", "Assam", 18},
	})

	files, err := ScanDir(dir)
	require.NoError(t, err)
	b, err := BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 2, b.Enrolment.NumRows())
	v, ok := b.Enrolment.Float(1, 2)
	require.True(t, ok)
	require.Equal(t, 18.0, v)
}

func TestBuildBundleSkipsUnreadable(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "enrolment_good.csv",
		"date,state,total\n01-01-2025,Kerala,30\n")
	writeCSV(t, dir, "enrolment_bad.xlsx", "this is not a workbook")

	files, err := ScanDir(dir)
	require.NoError(t, err)
	b, err := BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.NoError(t, err)
	require.Equal(t, 1, b.Enrolment.NumRows())
	require.Len(t, b.Files, 1)
	require.Equal(t, "enrolment_good.csv", b.Files[0].Name)
}

func TestBuildBundleNoEnrolment(t *testing.T) {
	dir := t.TempDir()
	writeCSV(t, dir, "biometric.csv", "date,bioage_5_18\n01-01-2025,3\n")

	files, err := ScanDir(dir)
	require.NoError(t, err)
	_, err = BuildBundle(context.Background(), dir, files, zerolog.Nop())
	require.ErrorIs(t, err, ErrNoDatasets)
}

func TestBundleTableLookup(t *testing.T) {
	b := &Bundle{Enrolment: &Table{Name: TableEnrolment}, Biometric: &Table{Name: TableBiometric}}
	require.Equal(t, b.Enrolment, b.Table(""))
	require.Equal(t, b.Enrolment, b.Table("Enrolment"))
	require.Equal(t, b.Biometric, b.Table(TableBiometric))
	require.Nil(t, b.Table(TableDemographic))
	require.Nil(t, b.Table("unknown"))
}
