package table

import (
	"fmt"
	"strings"
)

// Missing is the marker stored in cells that hold no value. A row whose
// cells are all Missing is considered empty.
const Missing = ""

// Table is a rectangular grid of string cells with a header row of column
// names. Names need not be unique. Every row has exactly len(Columns) cells.
type Table struct {
	Columns []string
	Rows    [][]string
}

// New builds a table from a raw grid where the first row is the header and
// the remaining rows are data. Rows shorter than the header are padded with
// missing cells; longer rows are truncated to the header width. A grid with
// no rows yields nil.
func New(grid [][]string) *Table {
	if len(grid) == 0 {
		return nil
	}

	header := append([]string(nil), grid[0]...)
	width := len(header)

	rows := make([][]string, 0, len(grid)-1)
	for _, raw := range grid[1:] {
		row := make([]string, width)
		for i := range row {
			if i < len(raw) {
				row[i] = raw[i]
			} else {
				row[i] = Missing
			}
		}
		rows = append(rows, row)
	}

	return &Table{Columns: header, Rows: rows}
}

// NumColumns returns the number of columns.
func (t *Table) NumColumns() int {
	if t == nil {
		return 0
	}
	return len(t.Columns)
}

// NumRows returns the number of data rows.
func (t *Table) NumRows() int {
	if t == nil {
		return 0
	}
	return len(t.Rows)
}

// IsEmpty reports whether the table has no columns at all.
func (t *Table) IsEmpty() bool {
	return t.NumColumns() == 0
}

// Clone returns a deep copy of the table.
func (t *Table) Clone() *Table {
	if t == nil {
		return nil
	}
	out := &Table{
		Columns: append([]string(nil), t.Columns...),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, row := range t.Rows {
		out.Rows[i] = append([]string(nil), row...)
	}
	return out
}

// selectColumns returns a new table keeping only the columns at the given
// indices, in the given order.
func (t *Table) selectColumns(keep []int) *Table {
	out := &Table{
		Columns: make([]string, len(keep)),
		Rows:    make([][]string, len(t.Rows)),
	}
	for i, idx := range keep {
		out.Columns[i] = t.Columns[idx]
	}
	for r, row := range t.Rows {
		cells := make([]string, len(keep))
		for i, idx := range keep {
			cells[i] = row[idx]
		}
		out.Rows[r] = cells
	}
	return out
}

// DropUnnamed returns a new table without the columns whose name is empty.
// Dropping a column removes its header cell and every data cell beneath it.
func (t *Table) DropUnnamed() *Table {
	if t == nil {
		return nil
	}
	keep := make([]int, 0, len(t.Columns))
	for i, name := range t.Columns {
		if name != "" {
			keep = append(keep, i)
		}
	}
	return t.selectColumns(keep)
}

// DropNamed returns a new table without any column whose name appears in
// names. Every occurrence of a listed name is removed, so it must run before
// DedupColumns to catch duplicates under their original name.
func (t *Table) DropNamed(names []string) *Table {
	if t == nil {
		return nil
	}
	drop := make(map[string]bool, len(names))
	for _, n := range names {
		drop[n] = true
	}
	keep := make([]int, 0, len(t.Columns))
	for i, name := range t.Columns {
		if !drop[name] {
			keep = append(keep, i)
		}
	}
	return t.selectColumns(keep)
}

// DedupColumns returns a new table whose column names are deduplicated.
// For each name occurring more than once, the first occurrence keeps its
// name and the k-th occurrence (k >= 2) becomes "name_<k-1>". The suffix
// counts occurrences of that one name rather than renames overall, and
// renamed columns are not re-checked against pre-existing names:
// ["x","x","x_1"] becomes ["x","x_1","x_1"]. Row data is never touched.
func (t *Table) DedupColumns() *Table {
	if t == nil {
		return nil
	}
	out := t.Clone()

	occurrences := make(map[string][]int, len(t.Columns))
	for i, name := range t.Columns {
		occurrences[name] = append(occurrences[name], i)
	}

	done := make(map[string]bool, len(t.Columns))
	for _, name := range t.Columns {
		if done[name] {
			continue
		}
		done[name] = true
		idxs := occurrences[name]
		if len(idxs) < 2 {
			continue
		}
		for k, idx := range idxs {
			if k == 0 {
				continue
			}
			out.Columns[idx] = fmt.Sprintf("%s_%d", name, k)
		}
	}
	return out
}

// MergeSide concatenates left and right horizontally, pairing rows by
// position. Row k of left sits beside row k of right; when the sides have
// unequal row counts the longer side keeps its rows and the shorter side is
// padded with missing cells. A nil right returns left unchanged.
func MergeSide(left, right *Table) *Table {
	if right == nil || right.IsEmpty() {
		return left.Clone()
	}
	if left == nil || left.IsEmpty() {
		return right.Clone()
	}

	out := &Table{
		Columns: make([]string, 0, len(left.Columns)+len(right.Columns)),
	}
	out.Columns = append(out.Columns, left.Columns...)
	out.Columns = append(out.Columns, right.Columns...)

	height := len(left.Rows)
	if len(right.Rows) > height {
		height = len(right.Rows)
	}

	out.Rows = make([][]string, height)
	for r := 0; r < height; r++ {
		row := make([]string, len(out.Columns))
		for i := range row {
			row[i] = Missing
		}
		if r < len(left.Rows) {
			copy(row, left.Rows[r])
		}
		if r < len(right.Rows) {
			copy(row[len(left.Columns):], right.Rows[r])
		}
		out.Rows[r] = row
	}
	return out
}

// columnKey identifies one occurrence of a column name: the ord-th column
// called name within a single table.
type columnKey struct {
	name string
	ord  int
}

// Stack concatenates blocks vertically in order. The result's header is the
// union of the block headers in first-appearance order; a block's j-th
// occurrence of a duplicated name lines up with the result's j-th occurrence
// of that name. Cells for columns a block does not have are missing. Nil and
// column-less blocks contribute nothing. Stacking no blocks yields nil.
func Stack(blocks []*Table) *Table {
	index := make(map[columnKey]int)
	var columns []string

	for _, b := range blocks {
		if b.IsEmpty() {
			continue
		}
		seen := make(map[string]int, len(b.Columns))
		for _, name := range b.Columns {
			key := columnKey{name: name, ord: seen[name]}
			seen[name]++
			if _, ok := index[key]; !ok {
				index[key] = len(columns)
				columns = append(columns, name)
			}
		}
	}
	if len(columns) == 0 {
		return nil
	}

	out := &Table{Columns: columns}
	for _, b := range blocks {
		if b.IsEmpty() {
			continue
		}

		// Map each source column to its slot in the union header.
		dest := make([]int, len(b.Columns))
		seen := make(map[string]int, len(b.Columns))
		for i, name := range b.Columns {
			dest[i] = index[columnKey{name: name, ord: seen[name]}]
			seen[name]++
		}

		for _, row := range b.Rows {
			cells := make([]string, len(columns))
			for i := range cells {
				cells[i] = Missing
			}
			for i, v := range row {
				cells[dest[i]] = v
			}
			out.Rows = append(out.Rows, cells)
		}
	}
	return out
}

// PruneEmptyRows returns a new table without the rows whose cells are all
// missing.
func (t *Table) PruneEmptyRows() *Table {
	if t == nil {
		return nil
	}
	out := &Table{Columns: append([]string(nil), t.Columns...)}
	for _, row := range t.Rows {
		empty := true
		for _, cell := range row {
			if cell != Missing {
				empty = false
				break
			}
		}
		if !empty {
			out.Rows = append(out.Rows, append([]string(nil), row...))
		}
	}
	return out
}

// String renders a compact single-line summary, useful in log output.
func (t *Table) String() string {
	if t == nil {
		return "table(nil)"
	}
	return fmt.Sprintf("table(%d cols, %d rows: %s)",
		t.NumColumns(), t.NumRows(), strings.Join(t.Columns, ", "))
}
