package registry

import "github.com/gocarina/gocsv"

// RegistryDiagnosticsRow is one anomaly observed while parsing a hive: an
// oversized cell length, a cell overrunning its HBIN page, or a zeroed cell
// header.
type RegistryDiagnosticsRow struct {
	Kind   string `csv:"kind"`
	Inum   uint64 `csv:"inum"`
	Detail string `csv:"detail"`
}

// DiagnosticsSink receives one RegistryDiagnosticsRow per anomaly. Recording
// never suppresses the corruption error itself; the sink exists so a caller
// auditing a suspect hive keeps a machine-readable log of what was wrong and
// where. A nil sink (or NopDiagnostics) silently drops every row.
type DiagnosticsSink interface {
	Record(row RegistryDiagnosticsRow)
}

// NopDiagnostics discards every row. It is the default sink when
// OpenOptions.Diagnostics is unset.
type NopDiagnostics struct{}

func (NopDiagnostics) Record(RegistryDiagnosticsRow) {}

// CSVDiagnostics accumulates rows in memory and can render them as a CSV
// report.
type CSVDiagnostics struct {
	rows []RegistryDiagnosticsRow
}

func (s *CSVDiagnostics) Record(row RegistryDiagnosticsRow) {
	s.rows = append(s.rows, row)
}

// Rows returns the accumulated diagnostic rows in recorded order.
func (s *CSVDiagnostics) Rows() []RegistryDiagnosticsRow {
	return s.rows
}

// CSV renders all accumulated rows as a CSV document.
func (s *CSVDiagnostics) CSV() (string, error) {
	return gocsv.MarshalString(&s.rows)
}
