package domain

// BatchJobStatus is the remote lifecycle state of one managed-scrape
// submission.
type BatchJobStatus string

const (
	BatchJobReady     BatchJobStatus = "READY"
	BatchJobRunning   BatchJobStatus = "RUNNING"
	BatchJobSucceeded BatchJobStatus = "SUCCEEDED"
	BatchJobFailed    BatchJobStatus = "FAILED"
	BatchJobAborted   BatchJobStatus = "ABORTED"
	BatchJobTimedOut  BatchJobStatus = "TIMED_OUT"
)

// Terminal reports whether the remote job has stopped transitioning.
func (s BatchJobStatus) Terminal() bool {
	switch s {
	case BatchJobSucceeded, BatchJobFailed, BatchJobAborted, BatchJobTimedOut:
		return true
	}
	return false
}

// BatchJob represents one managed-scrape submission. Lifecycle: created on
// submission, polled until a terminal status or the poll ceiling, result
// records fetched exactly once on success, then discarded.
type BatchJob struct {
	JobID         string
	TargetIDs     []string
	Status        BatchJobStatus
	ResultLocator string
}

// BatchResult is one entry of the id → media map the batch pipeline
// returns for immediate in-memory merge by the caller.
type BatchResult struct {
	MediaURL  string    `json:"media_url"`
	MediaType MediaType `json:"media_type"`
	// Durable is false when the durable-copy step failed and MediaURL is
	// still the original ephemeral CDN URL.
	Durable bool `json:"durable"`
}
