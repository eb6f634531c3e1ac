package tracker

import (
	"errors"

	"github.com/ridgelee/AI-Agent---Care-Plan/internal/model"
)

// ErrNotExportable means the active order has no completed care plan.
var ErrNotExportable = errors.New("tracker: no completed care plan to export")

// Exporter derives the download reference for the active order.
type Exporter struct {
	urls  interface{ DownloadURL(orderID string) string }
	store *Store
}

// NewExporter constructs an Exporter.
func NewExporter(urls interface{ DownloadURL(orderID string) string }, store *Store) *Exporter {
	return &Exporter{urls: urls, store: store}
}

// Available reports whether the active order has a downloadable artifact.
func (e *Exporter) Available() bool {
	_, ok := e.Reference()
	return ok
}

// Reference is the download location of the active order's care plan. It
// depends only on the order id and exists only once the order completed.
func (e *Exporter) Reference() (string, bool) {
	rec, ok := e.store.Active()
	if !ok || rec.OrderID == "" || rec.Status != model.StatusCompleted {
		return "", false
	}
	return e.urls.DownloadURL(rec.OrderID), true
}

// Resolve is Reference with ErrNotExportable in place of false.
func (e *Exporter) Resolve() (string, error) {
	ref, ok := e.Reference()
	if !ok {
		return "", ErrNotExportable
	}
	return ref, nil
}

// Export hands the reference to navigate and returns whether it did. Errors
// after that point belong to navigate.
func (e *Exporter) Export(navigate func(ref string)) bool {
	ref, ok := e.Reference()
	if !ok {
		return false
	}
	navigate(ref)
	return true
}
