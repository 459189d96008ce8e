// fake_backend.go - In-process analysis backend for tests
package testutil

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"
)

// Response is a canned reply for one backend route.
type Response struct {
	Status      int
	Body        string
	ContentType string
	Delay       time.Duration
}

// Call records a request the fake backend received.
type Call struct {
	Method      string
	Path        string
	Body        []byte
	Filename    string // multipart "file" field, if any
	ContentType string // content type of the "file" part
}

// FakeBackend stands in for the analysis service. Unconfigured routes answer
// 404.
type FakeBackend struct {
	*httptest.Server

	mu        sync.Mutex
	responses map[string]Response
	calls     []Call
}

// NewFakeBackend starts a fake backend that is closed when t finishes.
func NewFakeBackend(t testing.TB) *FakeBackend {
	t.Helper()

	f := &FakeBackend{responses: make(map[string]Response)}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Server.Close)
	return f
}

// Respond configures the reply for path.
func (f *FakeBackend) Respond(path string, resp Response) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if resp.Status == 0 {
		resp.Status = http.StatusOK
	}
	f.responses[path] = resp
}

// RespondJSON configures a 200 JSON reply for path.
func (f *FakeBackend) RespondJSON(path, body string) {
	f.Respond(path, Response{Body: body, ContentType: "application/json"})
}

// Calls returns a copy of the recorded requests.
func (f *FakeBackend) Calls() []Call {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]Call, len(f.calls))
	copy(out, f.calls)
	return out
}

// CallCount returns how many requests hit path.
func (f *FakeBackend) CallCount(path string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, c := range f.calls {
		if c.Path == path {
			n++
		}
	}
	return n
}

func (f *FakeBackend) serve(w http.ResponseWriter, r *http.Request) {
	call := Call{Method: r.Method, Path: r.URL.Path}

	if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/form-data") {
		if file, header, err := r.FormFile("file"); err == nil {
			call.Body, _ = io.ReadAll(file)
			call.Filename = header.Filename
			call.ContentType = header.Header.Get("Content-Type")
			file.Close()
		}
	} else {
		call.Body, _ = io.ReadAll(r.Body)
	}

	f.mu.Lock()
	f.calls = append(f.calls, call)
	resp, ok := f.responses[r.URL.Path]
	f.mu.Unlock()

	if !ok {
		http.NotFound(w, r)
		return
	}
	if resp.Delay > 0 {
		select {
		case <-time.After(resp.Delay):
		case <-r.Context().Done():
			return
		}
	}
	if resp.ContentType != "" {
		w.Header().Set("Content-Type", resp.ContentType)
	}
	w.WriteHeader(resp.Status)
	io.WriteString(w, resp.Body)
}
