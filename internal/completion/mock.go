package completion

import "context"

// MockCompleter is a canned completer for tests. It records the last request
// and returns a fixed answer.
type MockCompleter struct {
	Answer  string
	Err     error
	LastReq Request
	Calls   int
}

// Complete returns the canned answer or error.
func (m *MockCompleter) Complete(ctx context.Context, req Request) (string, error) {
	m.LastReq = req
	m.Calls++
	if m.Err != nil {
		return "", m.Err
	}
	if m.Answer == "" {
		return "mock answer", nil
	}
	return m.Answer, nil
}
