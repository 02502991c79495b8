package ingest

// BatchResult aggregates the per-message outcomes of one invocation. The
// queueing layer redelivers exactly the messages named by
// FailedDeliveryIDs; everything else is acknowledged.
type BatchResult struct {
	Outcomes []Outcome
}

// FailedDeliveryIDs returns the delivery identifiers with retryable work
// outstanding, preserving input order.
func (r BatchResult) FailedDeliveryIDs() []string {
	var failed []string
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			failed = append(failed, outcome.DeliveryID)
		}
	}
	return failed
}

// FailureCount reports how many messages must be redelivered.
func (r BatchResult) FailureCount() int {
	count := 0
	for _, outcome := range r.Outcomes {
		if outcome.Status == StatusFailed {
			count++
		}
	}
	return count
}
