package fat

import "github.com/gocarina/gocsv"

// DiagnosticRow is one anomaly observed while parsing a FAT image: a
// sanity-clamped chain entry, a chain truncated on a free entry, a boot
// sector recovered from the backup copy, or an XTAF fallback table hit.
type DiagnosticRow struct {
	Kind    string `csv:"kind"`
	Cluster uint32 `csv:"cluster"`
	Sector  uint64 `csv:"sector"`
	Detail  string `csv:"detail"`
}

// DiagnosticsSink receives one DiagnosticRow per anomaly recovered during a
// walk. It never aborts the walk; a nil sink (or NopDiagnostics) silently
// drops every row.
type DiagnosticsSink interface {
	Record(row DiagnosticRow)
}

// NopDiagnostics discards every row. It is the default sink when
// OpenOptions.Diagnostics is unset.
type NopDiagnostics struct{}

func (NopDiagnostics) Record(DiagnosticRow) {}

// CSVDiagnostics accumulates rows in memory and can render them as a CSV
// report, so a caller auditing a suspect image gets a machine-readable
// anomaly log.
type CSVDiagnostics struct {
	rows []DiagnosticRow
}

func (s *CSVDiagnostics) Record(row DiagnosticRow) {
	s.rows = append(s.rows, row)
}

// Rows returns the accumulated diagnostic rows in recorded order.
func (s *CSVDiagnostics) Rows() []DiagnosticRow {
	return s.rows
}

// CSV renders all accumulated rows as a CSV document.
func (s *CSVDiagnostics) CSV() (string, error) {
	return gocsv.MarshalString(&s.rows)
}
