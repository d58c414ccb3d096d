package push

import (
	"context"
	"errors"
	"sync"
)

// ErrUnregistered is what FakeSender reports for tokens marked invalid
var ErrUnregistered = errors.New("requested entity was not found")

// FakeSender records calls and answers from a configured token table. Local runs without
// Firebase credentials use it too.
type FakeSender struct {
	mu sync.Mutex
	// Invalid tokens fail with InvalidToken set.
	Invalid map[string]bool
	// Failing tokens fail without being invalid.
	Failing map[string]error
	// TransportErrs are returned, in order, by the first calls.
	TransportErrs []error
	Calls         []FakeCall
}

// FakeCall is one recorded multicast
type FakeCall struct {
	Tokens  []string
	Message Message
}

func NewFakeSender() *FakeSender {
	return &FakeSender{Invalid: map[string]bool{}, Failing: map[string]error{}}
}

func (f *FakeSender) SendMulticast(_ context.Context, tokens []string, msg Message) ([]TokenResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()

	f.Calls = append(f.Calls, FakeCall{Tokens: append([]string(nil), tokens...), Message: msg})
	if len(f.TransportErrs) > 0 {
		err := f.TransportErrs[0]
		f.TransportErrs = f.TransportErrs[1:]
		if err != nil {
			return nil, err
		}
	}

	results := make([]TokenResult, len(tokens))
	for i, token := range tokens {
		results[i] = TokenResult{Token: token}
		switch {
		case f.Invalid[token]:
			results[i].Err = ErrUnregistered
			results[i].InvalidToken = true
		case f.Failing[token] != nil:
			results[i].Err = f.Failing[token]
		default:
			results[i].MessageID = "msg-" + token
		}
	}
	return results, nil
}

// CallCount returns how many multicasts were attempted
func (f *FakeSender) CallCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.Calls)
}
