package pipeline

// ValidationError marks a request rejected before any side effect; callers
// surface it as HTTP 400 with the specific reason.
type ValidationError struct {
	Err error
}

func (e *ValidationError) Error() string { return e.Err.Error() }
func (e *ValidationError) Unwrap() error { return e.Err }

// QuotaExceededError marks a request rejected by the rate limiter or an
// exhausted free tier; callers surface it as HTTP 429. The message is
// user-actionable: wait for the daily reset or upgrade.
type QuotaExceededError struct {
	Message string
}

func (e *QuotaExceededError) Error() string { return e.Message }
