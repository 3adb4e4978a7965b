package ports

// ReportDataset is a tabular report ready for export.
type ReportDataset struct {
	Sheet   string
	Headers []string
	Rows    [][]interface{}
}

// ReportWriter persists a coordinator report to a file.
type ReportWriter interface {
	Write(path string, dataset ReportDataset) error
}
