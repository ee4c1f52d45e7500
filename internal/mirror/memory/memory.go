// Package memory holds an in-memory GridMirror used in tests and when no
// spreadsheet is configured.
package memory

import (
	"context"
	"fmt"
	"slices"
	"sync"

	"esgrec/internal/core"
	ports "esgrec/internal/mirror"
)

type Mirror struct {
	mu    sync.Mutex
	grids map[string][]core.GridRow
	err   error
}

var _ ports.GridMirror = (*Mirror)(nil)

func NewMirror() *Mirror {
	return &Mirror{grids: make(map[string][]core.GridRow)}
}

// Fail makes subsequent publishes return err. Pass nil to recover.
func (m *Mirror) Fail(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

func (m *Mirror) PublishGrid(_ context.Context, companyID int64, year int, rows []core.GridRow) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.grids[key(companyID, year)] = slices.Clone(rows)
	return nil
}

// Grid returns the last published grid for a scope, or nil.
func (m *Mirror) Grid(companyID int64, year int) []core.GridRow {
	m.mu.Lock()
	defer m.mu.Unlock()
	return slices.Clone(m.grids[key(companyID, year)])
}

func key(companyID int64, year int) string {
	return fmt.Sprintf("%d/%d", companyID, year)
}
