package pdf

import (
	"fmt"

	"github.com/ledongthuc/pdf"

	"github.com/a3tai/tabledrop/internal/table"
)

// Detection tuning, in PDF points. Fragments within the row tolerance of a
// band share a row; ruling edges within the snap tolerance collapse to one
// boundary; rectangles within the join tolerance form one region; fragments
// closer than spaceFactor times the font size join into one word.
const (
	defaultRowTolerance  = 3.0
	defaultSnapTolerance = 3.0
	defaultJoinTolerance = 3.0
	defaultSpaceFactor   = 0.3
	defaultClusterWidth  = 5.0

	minTableRows    = 2
	minTableColumns = 2
)

// Extractor turns PDF pages into tables using the document's positioned
// text and ruling lines. Ruled tables are cut along their drawn column
// boundaries; unruled pages fall back to word-alignment clustering.
type Extractor struct {
	validator *Validator

	rowTolerance  float64
	snapTolerance float64
	joinTolerance float64
	spaceFactor   float64
	clusterWidth  float64
}

// NewExtractor creates an extractor with the default detection tuning and
// the specified file size limit.
func NewExtractor(maxFileSize int64) *Extractor {
	return &Extractor{
		validator:     NewValidator(maxFileSize),
		rowTolerance:  defaultRowTolerance,
		snapTolerance: defaultSnapTolerance,
		joinTolerance: defaultJoinTolerance,
		spaceFactor:   defaultSpaceFactor,
		clusterWidth:  defaultClusterWidth,
	}
}

// ExtractTables extracts at most one table per page and returns one entry
// per page in document order. A page that yields no table produces a nil
// entry; entries never shift position, so page pairing can rely on the
// indices.
func (e *Extractor) ExtractTables(filePath string) ([]*table.Table, error) {
	if err := e.validator.Validate(filePath); err != nil {
		return nil, err
	}

	f, reader, err := pdf.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("failed to open PDF: %w", err)
	}
	defer f.Close()

	totalPages := reader.NumPage()
	tables := make([]*table.Table, 0, totalPages)
	for pageNum := 1; pageNum <= totalPages; pageNum++ {
		page := reader.Page(pageNum)
		if page.V.IsNull() {
			tables = append(tables, nil)
			continue
		}
		tables = append(tables, e.pageTable(page))
	}
	return tables, nil
}

// pageTable runs the detection pipeline on one page. The first grid row is
// the header; a grid smaller than the minimum table size counts as no table.
func (e *Extractor) pageTable(page pdf.Page) *table.Table {
	content := page.Content()

	lines := extractLines(content.Text, e.rowTolerance, e.spaceFactor)
	if len(lines) == 0 {
		return nil
	}

	grid := e.latticeGrid(lines, content.Rect)
	if grid == nil {
		grid = e.textGrid(lines)
	}
	if len(grid) < minTableRows {
		return nil
	}
	if len(grid[0]) < minTableColumns {
		return nil
	}
	return table.New(grid)
}
