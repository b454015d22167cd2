package convert

import (
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/a3tai/tabledrop/internal/sheet"
	"github.com/a3tai/tabledrop/internal/table"
)

// TableSource extracts per-page tables from a PDF file, one entry per page
// in document order, nil for pages without a table.
type TableSource interface {
	ExtractTables(path string) ([]*table.Table, error)
}

// Options control the page-pair assembly.
type Options struct {
	// ExcludeColumns are dropped from right pages before deduplication,
	// so every occurrence of a listed name goes.
	ExcludeColumns []string

	// FailOnMissingTable fails the whole file when the left page of a
	// pair has no detectable table. When false such a pair contributes
	// no rows.
	FailOnMissingTable bool
}

// Converter turns a PDF laid out as left/right page pairs into one flat
// spreadsheet. Pages at even index i and i+1 form a pair. The pages are
// merged side by side and the pairs stacked in order, then rows that end
// up entirely empty are dropped.
type Converter struct {
	source TableSource
	opts   Options
	logger *logrus.Logger
}

// NewConverter creates a converter on top of the given table source.
func NewConverter(source TableSource, opts Options, logger *logrus.Logger) *Converter {
	return &Converter{
		source: source,
		opts:   opts,
		logger: logger,
	}
}

// Convert extracts, merges and writes one PDF. The destination file is
// only written once the whole result table is assembled; on error no
// output exists at the destination path.
func (c *Converter) Convert(req ConvertRequest) (*ConvertResult, error) {
	tables, err := c.source.ExtractTables(req.PDFPath)
	if err != nil {
		return nil, fmt.Errorf("extraction failed: %w", err)
	}

	blocks, emptyPairs, err := c.buildBlocks(tables)
	if err != nil {
		return nil, err
	}

	result := table.Stack(blocks)
	if result == nil {
		return nil, fmt.Errorf("no table data found in %s", req.PDFPath)
	}
	result = result.PruneEmptyRows()

	if err := sheet.Write(result, req.OutputPath); err != nil {
		return nil, fmt.Errorf("failed to write spreadsheet: %w", err)
	}

	return &ConvertResult{
		PDFPath:    req.PDFPath,
		OutputPath: req.OutputPath,
		Pages:      len(tables),
		Pairs:      (len(tables) + 1) / 2,
		EmptyPairs: emptyPairs,
		Rows:       result.NumRows(),
		Columns:    result.NumColumns(),
	}, nil
}

// buildBlocks walks the page pairs and produces one merged block per pair.
// The left table keeps all named columns; the right table additionally
// loses the excluded columns. Both sides are deduplicated independently
// before the side-by-side merge.
func (c *Converter) buildBlocks(tables []*table.Table) ([]*table.Table, int, error) {
	var blocks []*table.Table
	emptyPairs := 0

	for i := 0; i < len(tables); i += 2 {
		left := tables[i]
		if left.IsEmpty() {
			if c.opts.FailOnMissingTable {
				return nil, 0, fmt.Errorf("page %d has no detectable table", i+1)
			}
			c.logger.WithField("page", i+1).Warn("No table on left page, pair skipped")
			emptyPairs++
			continue
		}
		left = left.DropUnnamed().DedupColumns()

		var right *table.Table
		if i+1 < len(tables) && !tables[i+1].IsEmpty() {
			right = tables[i+1].DropUnnamed().DropNamed(c.opts.ExcludeColumns).DedupColumns()
		}

		blocks = append(blocks, table.MergeSide(left, right))
	}
	return blocks, emptyPairs, nil
}

// Process is the boolean facade around Convert: every internal error is
// logged and swallowed, and callers check the return value instead.
func (c *Converter) Process(pdfPath, outputPath string) bool {
	c.logger.WithField("file", pdfPath).Info("Processing PDF")

	result, err := c.Convert(ConvertRequest{PDFPath: pdfPath, OutputPath: outputPath})
	if err != nil {
		c.logger.WithError(err).WithField("file", pdfPath).Error("Failed to convert PDF")
		return false
	}

	c.logger.WithFields(logrus.Fields{
		"file": result.OutputPath,
		"rows": result.Rows,
	}).Info("Spreadsheet saved")
	return true
}
