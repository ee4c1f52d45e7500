package mirror

import (
	"context"

	"esgrec/internal/core"
)

// GridMirror pushes a reconciled dense grid to an external read-only surface.
// Mirrors are best-effort: the store is the source of truth and a failed push
// is retried on the next matrix-saved message.
type GridMirror interface {
	PublishGrid(ctx context.Context, companyID int64, year int, rows []core.GridRow) error
}
