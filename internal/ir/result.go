package ir

// Result is the outcome of one step: ok with optional topics, or fail
// with a message and optional topics.
type Result struct {
	OK      bool   `json:"ok"`
	Message string `json:"message,omitempty"`
	Topics  Object `json:"topics,omitempty"`
}

// OK returns a successful result.
func OK(topics Object) Result {
	return Result{OK: true, Topics: topics}
}

// Fail returns a failed result.
func Fail(message string, topics Object) Result {
	return Result{OK: false, Message: message, Topics: topics}
}
