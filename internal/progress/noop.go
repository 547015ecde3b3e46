package progress

// NoopReporter discards every event. Used by tests and by any caller that
// wants the orchestrator's core behavior without a logging dependency.
type NoopReporter struct{}

func (NoopReporter) FolderStarted(string)  {}
func (NoopReporter) ItemListed(int)        {}
func (NoopReporter) DownloadScheduled()    {}
func (NoopReporter) DownloadFinished(bool) {}
func (NoopReporter) SkippedDuplicate()     {}
func (NoopReporter) Conflict(string)       {}
func (NoopReporter) Summary(Summary)       {}
