package sheet

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/a3tai/tabledrop/internal/table"
)

func TestWriteAndRead(t *testing.T) {
	t.Run("round-trip preserves header and rows", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")

		src := &table.Table{
			Columns: []string{"Nº", "Valor", "Extra"},
			Rows: [][]string{
				{"1", "10", "x"},
				{"2", "20", "y"},
			},
		}
		require.NoError(t, Write(src, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, src.Columns, got.Columns)
		assert.Equal(t, src.Rows, got.Rows)
	})

	t.Run("round-trip preserves empty cells", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")

		src := &table.Table{
			Columns: []string{"a", "b", "c"},
			Rows: [][]string{
				{"1", "", "x"},
				{"", "2", ""},
			},
		}
		require.NoError(t, Write(src, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, src.Columns, got.Columns)
		assert.Equal(t, src.Rows, got.Rows)
	})

	t.Run("header-only table round-trips", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")

		src := &table.Table{Columns: []string{"a", "b"}}
		require.NoError(t, Write(src, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"a", "b"}, got.Columns)
		assert.Equal(t, 0, got.NumRows())
	})

	t.Run("overwriting an existing file works", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")

		first := &table.Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}}
		second := &table.Table{Columns: []string{"b"}, Rows: [][]string{{"2"}}}
		require.NoError(t, Write(first, path))
		require.NoError(t, Write(second, path))

		got, err := Read(path)
		require.NoError(t, err)
		assert.Equal(t, []string{"b"}, got.Columns)
	})

	t.Run("no leftover temporary files", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "out.xlsx")

		src := &table.Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}}
		require.NoError(t, Write(src, path))

		entries, err := os.ReadDir(dir)
		require.NoError(t, err)
		require.Len(t, entries, 1)
		assert.Equal(t, "out.xlsx", entries[0].Name())
	})
}

func TestWrite_Errors(t *testing.T) {
	t.Run("nil table", func(t *testing.T) {
		dir := t.TempDir()
		err := Write(nil, filepath.Join(dir, "out.xlsx"))
		assert.Error(t, err)
	})

	t.Run("table without columns", func(t *testing.T) {
		dir := t.TempDir()
		err := Write(&table.Table{}, filepath.Join(dir, "out.xlsx"))
		assert.Error(t, err)
	})

	t.Run("destination directory does not exist", func(t *testing.T) {
		src := &table.Table{Columns: []string{"a"}, Rows: [][]string{{"1"}}}
		err := Write(src, "/non/existent/dir/out.xlsx")
		assert.Error(t, err)
	})
}

func TestRead_Errors(t *testing.T) {
	t.Run("missing file", func(t *testing.T) {
		_, err := Read("/non/existent/out.xlsx")
		assert.Error(t, err)
	})

	t.Run("not a workbook", func(t *testing.T) {
		dir := t.TempDir()
		path := filepath.Join(dir, "garbage.xlsx")
		require.NoError(t, os.WriteFile(path, []byte("not a workbook"), 0o644))

		_, err := Read(path)
		assert.Error(t, err)
	})
}
