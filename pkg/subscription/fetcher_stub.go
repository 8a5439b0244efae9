package subscription

import (
	"context"
	"sync"
)

// StubFetcher is a Fetcher for tests. It returns a canned body or error,
// counts calls and can be gated so a fetch blocks until released.
type StubFetcher struct {
	mu    sync.Mutex
	body  string
	err   error
	calls int
	gate  chan struct{}
}

func NewStubFetcher(body string) *StubFetcher {
	return &StubFetcher{body: body}
}

func (f *StubFetcher) Fetch(ctx context.Context, url string) (string, error) {
	f.mu.Lock()
	f.calls++
	gate := f.gate
	f.mu.Unlock()

	if gate != nil {
		select {
		case <-gate:
		case <-ctx.Done():
			return "", ctx.Err()
		}
	}

	f.mu.Lock()
	defer f.mu.Unlock()
	return f.body, f.err
}

// Respond makes subsequent (and currently blocked) fetches return body.
func (f *StubFetcher) Respond(body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.body = body
	f.err = nil
}

// Fail makes subsequent (and currently blocked) fetches return err.
func (f *StubFetcher) Fail(err error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.err = err
}

func (f *StubFetcher) Calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

// Block makes fetches wait until Release is called.
func (f *StubFetcher) Block() {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.gate = make(chan struct{})
}

// Release unblocks all fetches waiting since Block.
func (f *StubFetcher) Release() {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.gate != nil {
		close(f.gate)
		f.gate = nil
	}
}
