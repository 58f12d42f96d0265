package executor

// Inline runs every task on the submitting goroutine. It is meant for tests
// and for callers that already run on a dedicated goroutine.
type Inline struct{}

// Submit runs task and returns nil.
func (Inline) Submit(task func()) error {
	if task != nil {
		task()
	}
	return nil
}
