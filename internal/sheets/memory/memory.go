package memory

import (
	"context"
	"fmt"
	"sync"

	ports "moneta/internal/sheets"
)

// Exporter keeps exported rows in memory. It stands in for Google Sheets in
// local runs and tests.
type Exporter struct {
	mu   sync.Mutex
	rows []ports.ExportRow
	err  error
}

var _ ports.TransactionExporter = (*Exporter)(nil)

func New() *Exporter {
	return &Exporter{}
}

// Export stores the row and returns a synthetic row reference.
func (e *Exporter) Export(_ context.Context, row ports.ExportRow) (string, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	if e.err != nil {
		return "", e.err
	}
	e.rows = append(e.rows, row)
	return fmt.Sprintf("mem:%d", len(e.rows)), nil
}

// Rows returns a copy of everything exported so far.
func (e *Exporter) Rows() []ports.ExportRow {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]ports.ExportRow(nil), e.rows...)
}

// FailWith makes subsequent exports return err. A nil err restores normal behavior.
func (e *Exporter) FailWith(err error) {
	e.mu.Lock()
	e.err = err
	e.mu.Unlock()
}
