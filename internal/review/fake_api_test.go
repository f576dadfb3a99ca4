package review

import (
	"context"
	"encoding/json"
	"net/url"
	"sync"

	"github.com/nurpe/lab-review/internal/gateway"
)

type apiCall struct {
	Method string
	Path   string
	Query  url.Values
	Body   []byte
}

type apiReply struct {
	body string
	err  error
}

// fakeAPI answers gateway calls from canned replies keyed by path.
type fakeAPI struct {
	mu      sync.Mutex
	replies map[string]apiReply
	calls   []apiCall
	block   chan struct{}
}

func newFakeAPI() *fakeAPI {
	return &fakeAPI{replies: make(map[string]apiReply)}
}

func (f *fakeAPI) reply(path, body string) *fakeAPI {
	f.replies[path] = apiReply{body: body}
	return f
}

func (f *fakeAPI) fail(path string, err error) *fakeAPI {
	f.replies[path] = apiReply{err: err}
	return f
}

func (f *fakeAPI) Get(ctx context.Context, path string, query url.Values) (*gateway.Response, error) {
	return f.answer(apiCall{Method: "GET", Path: path, Query: query})
}

func (f *fakeAPI) PostJSON(ctx context.Context, path string, body any) (*gateway.Response, error) {
	payload, err := json.Marshal(body)
	if err != nil {
		return nil, err
	}
	if f.block != nil {
		<-f.block
	}
	return f.answer(apiCall{Method: "POST", Path: path, Body: payload})
}

func (f *fakeAPI) answer(call apiCall) (*gateway.Response, error) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	reply, ok := f.replies[call.Path]
	f.mu.Unlock()
	if !ok {
		return nil, &gateway.APIError{StatusCode: 404, Message: "not found"}
	}
	if reply.err != nil {
		return nil, reply.err
	}
	return &gateway.Response{StatusCode: 200, Body: []byte(reply.body)}, nil
}

func (f *fakeAPI) callsTo(path string) []apiCall {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []apiCall
	for _, call := range f.calls {
		if call.Path == path {
			out = append(out, call)
		}
	}
	return out
}

func (f *fakeAPI) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}
