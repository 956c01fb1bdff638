// Package monitor defines the optional record-collections monitor
// boundary (§6): an external collaborator notified once per successful
// DBO execution that touched at least one record type. Expressed as a
// narrow interface per the DESIGN NOTES ("interface over duck-typed
// monitors"), matching the teacher's convention of defining consumed
// collaborators as small interfaces in their own package (cf.
// dialect/sql/stats.go's Driver decorator boundary).
package monitor

import "context"

// RecordCollectionsMonitor is notified after a successful DBO
// execution with the set of record-type names whose storage changed.
type RecordCollectionsMonitor interface {
	CollectionsUpdated(ctx context.Context, updatedTypeNames map[string]bool) error
}

// Func adapts a plain function to RecordCollectionsMonitor.
type Func func(ctx context.Context, updatedTypeNames map[string]bool) error

func (f Func) CollectionsUpdated(ctx context.Context, updatedTypeNames map[string]bool) error {
	return f(ctx, updatedTypeNames)
}
