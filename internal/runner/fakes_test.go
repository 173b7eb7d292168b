package runner_test

import (
	"bufio"
	"context"
	"io"
	"net"
	"net/http"
	"sync"

	"github.com/torosent/canary/internal/model"
)

// pipeConn returns the client end of a pipe whose server end answers one
// request with response and closes.
func pipeConn(response string) net.Conn {
	client, server := net.Pipe()
	go func() {
		defer server.Close()
		if _, err := http.ReadRequest(bufio.NewReader(server)); err != nil {
			return
		}
		_, _ = io.WriteString(server, response)
	}()
	return client
}

const canaryResponse = "HTTP/1.0 200 OK\r\nContent-Type: text/plain\r\n\r\nYeah!\n"

type fakeEstablisher struct {
	mu        sync.Mutex
	response  string
	err       error
	block     bool // wait for ctx instead of connecting
	started   chan struct{}
	calls     []string
	teardowns int
}

func (f *fakeEstablisher) Establish(ctx context.Context, spec model.TransportSpec, serverIP string) (net.Conn, error) {
	f.mu.Lock()
	f.calls = append(f.calls, spec.Name)
	block, started := f.block, f.started
	f.mu.Unlock()

	if block {
		if started != nil {
			close(started)
		}
		<-ctx.Done()
		return nil, ctx.Err()
	}
	if f.err != nil {
		return nil, f.err
	}
	resp := f.response
	if resp == "" {
		resp = canaryResponse
	}
	return pipeConn(resp), nil
}

func (f *fakeEstablisher) Teardown(context.Context) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.teardowns++
	return nil
}

type fakeWriter struct {
	mu      sync.Mutex
	results []model.TestResult
}

func (w *fakeWriter) Write(r model.TestResult) error {
	w.mu.Lock()
	defer w.mu.Unlock()
	w.results = append(w.results, r)
	return nil
}

type fakeRecorder struct {
	mu      sync.Mutex
	events  []string
	results []*model.TestResult
}

func (r *fakeRecorder) Start(_ context.Context, subject model.Subject, _ string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "start "+subject.Name())
	return nil
}

func (r *fakeRecorder) Stop(_ context.Context, result *model.TestResult) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, "stop")
	r.results = append(r.results, result)
	return nil
}

type fakeArchiver struct{ calls int }

func (a *fakeArchiver) Archive(context.Context) (string, error) {
	a.calls++
	return "", nil
}

type fakeWeb struct{ response string }

func (w fakeWeb) DialWeb(context.Context, model.WebTarget) (net.Conn, error) {
	return pipeConn(w.response), nil
}
