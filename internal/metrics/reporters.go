package metrics

// CleanerReporter adapts the global counters to the cleaner's Metrics
// interface.
type CleanerReporter struct{}

func (CleanerReporter) FileDeleted()  { FilesDeletedTotal.Inc() }
func (CleanerReporter) DeleteFailed() { DeleteFailuresTotal.Inc() }

// PrunerReporter adapts the global counters to the retention pruner's Metrics
// interface.
type PrunerReporter struct{}

func (PrunerReporter) Pruned()      { DirsPrunedTotal.Inc() }
func (PrunerReporter) PruneFailed() { PruneFailuresTotal.Inc() }
