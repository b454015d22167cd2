package convert

// ConvertRequest names the source PDF and the spreadsheet destination for
// one conversion.
type ConvertRequest struct {
	PDFPath    string
	OutputPath string
}

// ConvertResult summarizes a finished conversion.
type ConvertResult struct {
	PDFPath    string
	OutputPath string
	Pages      int
	Pairs      int
	EmptyPairs int
	Rows       int
	Columns    int
}
