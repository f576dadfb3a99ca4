package http

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nurpe/lab-review/internal/documents"
	"github.com/nurpe/lab-review/internal/excel"
	"github.com/nurpe/lab-review/internal/gateway"
	"github.com/nurpe/lab-review/internal/http/middleware"
	"github.com/nurpe/lab-review/internal/model"
	"github.com/nurpe/lab-review/internal/pdf"
	"github.com/nurpe/lab-review/internal/review"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type tokenTable map[string]model.Role

func (t tokenTable) Parse(token string) (model.Principal, error) {
	role, ok := t[token]
	if !ok {
		return model.Principal{}, review.ErrPermissionDenied
	}
	return model.Principal{UserID: token, Role: role, Token: token}, nil
}

type remoteCall struct {
	method string
	path   string
	query  string
	token  string
	body   string
}

// remoteAPI is a scripted stand-in for the laboratory backend.
type remoteAPI struct {
	mu     sync.Mutex
	calls  []remoteCall
	routes map[string]func(w http.ResponseWriter, r *http.Request)
}

func (a *remoteAPI) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	a.mu.Lock()
	a.calls = append(a.calls, remoteCall{
		method: r.Method,
		path:   r.URL.Path,
		query:  r.URL.RawQuery,
		token:  r.Header.Get("Authorization"),
		body:   string(body),
	})
	route, ok := a.routes[r.Method+" "+r.URL.Path]
	a.mu.Unlock()
	if !ok {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message": "no such route"}`))
		return
	}
	r.Body = io.NopCloser(bytes.NewReader(body))
	route(w, r)
}

func (a *remoteAPI) callsTo(method, path string) []remoteCall {
	a.mu.Lock()
	defer a.mu.Unlock()
	var out []remoteCall
	for _, call := range a.calls {
		if call.method == method && call.path == path {
			out = append(out, call)
		}
	}
	return out
}

func jsonRoute(status int, body string) func(w http.ResponseWriter, r *http.Request) {
	return func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(status)
		_, _ = w.Write([]byte(body))
	}
}

type auditStub struct {
	records []model.DecisionRecord
}

func (a *auditStub) Record(_ context.Context, record model.DecisionRecord) error {
	a.records = append(a.records, record)
	return nil
}

func (a *auditStub) ListByContract(_ context.Context, contractID model.ID, _ int) ([]model.DecisionRecord, error) {
	var out []model.DecisionRecord
	for _, record := range a.records {
		if record.ContractID == int64(contractID) {
			out = append(out, record)
		}
	}
	return out, nil
}

type testEnv struct {
	router *gin.Engine
	remote *remoteAPI
	audit  *auditStub
}

func newTestEnv(t *testing.T, routes map[string]func(w http.ResponseWriter, r *http.Request)) *testEnv {
	t.Helper()
	remote := &remoteAPI{routes: routes}
	server := httptest.NewServer(remote)
	t.Cleanup(server.Close)

	log := zerolog.Nop()
	client := gateway.New(server.URL, 5*time.Second, log)
	audit := &auditStub{}
	controller := review.NewController(
		review.NewFetcher(client, log),
		review.NewSubmitter(client, true, log),
		review.NewLister(client),
		audit,
		10,
		log,
	)
	handler := NewHandler(Dependencies{
		Reviews:   controller,
		Documents: documents.NewExchange(client, log),
		PDF:       pdf.NewGenerator(),
		Excel:     excel.NewGenerator(),
		Audit:     audit,
		ListLimit: 10,
	}, log)

	parser := tokenTable{"dir": model.RoleDirector, "lab": model.RoleLaboratory}
	router := NewRouter(handler, middleware.Auth(parser), "test", nil, log)
	return &testEnv{router: router, remote: remote, audit: audit}
}

func (e *testEnv) do(method, path, token string, body io.Reader, contentType string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, body)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if contentType != "" {
		req.Header.Set("Content-Type", contentType)
	}
	w := httptest.NewRecorder()
	e.router.ServeHTTP(w, req)
	return w
}

const waitingInfo = `{"data": {"final_document": {"document_id": 5}, "task_info": {"tasks": [{"task_id": 1, "task_item": [{"comments": "no"}]}, {"task_id": 2, "task_item": []}]}}}`

func TestHandler_Healthz(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/healthz", "", nil, "")
	assert.Equal(t, http.StatusOK, w.Code)
}

func TestHandler_RequiresToken(t *testing.T) {
	env := newTestEnv(t, nil)
	w := env.do(http.MethodGet, "/contracts", "", nil, "")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}

func TestHandler_ListContracts(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/all/list": jsonRoute(http.StatusOK, `{"data": {"result": {"items": [
			{"id": 1, "final_document": null},
			{"id": 2, "final_document": {"document_id": 8}, "task_info": {"tasks": []}}
		], "total": 2}}}`),
	})

	w := env.do(http.MethodGet, "/contracts?stage=new&page=2&limit=5&search=acme", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	var page model.ContractPage
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &page))
	require.Len(t, page.Items, 2)
	assert.Equal(t, model.ResultNone, page.Items[0].ResultStatus)
	assert.Equal(t, model.ResultWaiting, page.Items[1].ResultStatus)

	calls := env.remote.callsTo(http.MethodGet, "/appointment/all/list")
	require.Len(t, calls, 1)
	assert.Contains(t, calls[0].query, "contract_status=2")
	assert.Contains(t, calls[0].query, "page=2")
	assert.Contains(t, calls[0].query, "limit=5")
	assert.Equal(t, "Bearer lab", calls[0].token)
}

func TestHandler_ListContractsBadQuery(t *testing.T) {
	env := newTestEnv(t, nil)
	for _, query := range []string{"stage=archived", "page=0", "limit=abc"} {
		w := env.do(http.MethodGet, "/contracts?"+query, "lab", nil, "")
		assert.Equal(t, http.StatusBadRequest, w.Code, query)
	}
}

func TestHandler_ExportContracts(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/all/list": jsonRoute(http.StatusOK, `[{"id": 1, "number": "N-1"}]`),
	})

	w := env.do(http.MethodGet, "/contracts/export?stage=completed", "dir", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Header().Get("Content-Disposition"), "contracts-completed-p1-")
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("PK")))
}

func TestHandler_OpenReview(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/info": jsonRoute(http.StatusOK, waitingInfo),
	})

	w := env.do(http.MethodGet, "/contracts/7/review", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var session review.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Equal(t, model.ResultWaiting, session.Status)
	require.NotNil(t, session.ActionableTaskID)
	assert.Equal(t, model.ID(2), *session.ActionableTaskID)
	assert.True(t, session.CanDecide)

	calls := env.remote.callsTo(http.MethodGet, "/appointment/info")
	require.Len(t, calls, 1)
	assert.Equal(t, "contract_id=7", calls[0].query)
}

func TestHandler_OpenReviewUpstreamFailure(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/info": jsonRoute(http.StatusInternalServerError, `{"message": "boom"}`),
	})

	w := env.do(http.MethodGet, "/contracts/7/review", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)

	var session review.Session
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &session))
	assert.Nil(t, session.ActionableTaskID)
	assert.False(t, session.CanDecide)
}

func TestHandler_ReviewPDF(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/info": jsonRoute(http.StatusOK, waitingInfo),
	})

	w := env.do(http.MethodGet, "/contracts/7/review/pdf", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.True(t, bytes.HasPrefix(w.Body.Bytes(), []byte("%PDF-")))
}

func TestHandler_RejectFlow(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/info":           jsonRoute(http.StatusOK, waitingInfo),
		"POST /appointment/cancel/result": jsonRoute(http.StatusOK, `{"data": {"success": true}}`),
		"GET /appointment/all/list":       jsonRoute(http.StatusOK, `{"result": {"items": [], "total": 0}}`),
	})

	w := env.do(http.MethodPost, "/contracts/7/review/reject", "dir", strings.NewReader(`{"comments": "  wrong sample  "}`), "application/json")
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())

	posts := env.remote.callsTo(http.MethodPost, "/appointment/cancel/result")
	require.Len(t, posts, 1)
	assert.JSONEq(t, `{"contract_id": 7, "task_id": 2, "comments": "wrong sample"}`, posts[0].body)
	assert.Equal(t, "Bearer dir", posts[0].token)

	lists := env.remote.callsTo(http.MethodGet, "/appointment/all/list")
	require.Len(t, lists, 1)
	assert.Contains(t, lists[0].query, "contract_status=5")

	require.Len(t, env.audit.records, 1)
	assert.True(t, env.audit.records[0].Succeeded)

	w = env.do(http.MethodGet, "/contracts/7/decisions", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"Decision":"reject"`)
}

func TestHandler_DecisionErrors(t *testing.T) {
	tests := []struct {
		name   string
		token  string
		path   string
		body   string
		routes map[string]func(w http.ResponseWriter, r *http.Request)
		status int
	}{
		{
			name:   "laboratory cannot accept",
			token:  "lab",
			path:   "/contracts/7/review/accept",
			body:   `{"comments": "ok"}`,
			status: http.StatusForbidden,
		},
		{
			name:  "missing comment",
			token: "dir",
			path:  "/contracts/7/review/reject",
			body:  `{"comments": " "}`,
			routes: map[string]func(w http.ResponseWriter, r *http.Request){
				"GET /appointment/info": jsonRoute(http.StatusOK, waitingInfo),
			},
			status: http.StatusBadRequest,
		},
		{
			name:  "server refuses",
			token: "dir",
			path:  "/contracts/7/review/accept",
			body:  `{"comments": "fine"}`,
			routes: map[string]func(w http.ResponseWriter, r *http.Request){
				"GET /appointment/info":           jsonRoute(http.StatusOK, waitingInfo),
				"POST /appointment/accept/result": jsonRoute(http.StatusBadRequest, `{"message": "task is closed"}`),
			},
			status: http.StatusUnprocessableEntity,
		},
		{
			name:  "upstream down",
			token: "dir",
			path:  "/contracts/7/review/accept",
			body:  `{"comments": "fine"}`,
			routes: map[string]func(w http.ResponseWriter, r *http.Request){
				"GET /appointment/info":           jsonRoute(http.StatusOK, waitingInfo),
				"POST /appointment/accept/result": jsonRoute(http.StatusInternalServerError, ``),
			},
			status: http.StatusBadGateway,
		},
		{
			name:   "bad id",
			token:  "dir",
			path:   "/contracts/abc/review/accept",
			body:   `{"comments": "fine"}`,
			status: http.StatusBadRequest,
		},
		{
			name:   "bad json",
			token:  "dir",
			path:   "/contracts/7/review/accept",
			body:   `{"comments": `,
			status: http.StatusBadRequest,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			env := newTestEnv(t, tt.routes)
			w := env.do(http.MethodPost, tt.path, tt.token, strings.NewReader(tt.body), "application/json")
			assert.Equal(t, tt.status, w.Code, w.Body.String())
		})
	}
}

func TestHandler_ServerRefusalMessageSurfaces(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /appointment/info":           jsonRoute(http.StatusOK, waitingInfo),
		"POST /appointment/accept/result": jsonRoute(http.StatusOK, `{"success": false, "message": "deadline passed"}`),
	})

	w := env.do(http.MethodPost, "/contracts/7/review/accept", "dir", strings.NewReader(`{"comments": "ok"}`), "application/json")
	assert.Equal(t, http.StatusUnprocessableEntity, w.Code)
	assert.JSONEq(t, `{"error": "deadline passed"}`, w.Body.String())
}

func multipartBody(t *testing.T, fileName, contentType string, content []byte) (*bytes.Buffer, string) {
	t.Helper()
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	header := make(textproto.MIMEHeader)
	header.Set("Content-Disposition", `form-data; name="file"; filename="`+fileName+`"`)
	header.Set("Content-Type", contentType)
	part, err := writer.CreatePart(header)
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	require.NoError(t, writer.Close())
	return &buf, writer.FormDataContentType()
}

func TestHandler_UploadResult(t *testing.T) {
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"POST /contracts/upload-pdf/7": jsonRoute(http.StatusOK, `{"message": "stored"}`),
	})

	body, contentType := multipartBody(t, "result.pdf", "application/pdf", []byte("%PDF-1.7\n%%EOF\n"))
	w := env.do(http.MethodPost, "/contracts/7/result", "lab", body, contentType)
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	assert.Len(t, env.remote.callsTo(http.MethodPost, "/contracts/upload-pdf/7"), 1)
}

func TestHandler_UploadRejectsText(t *testing.T) {
	env := newTestEnv(t, nil)

	body, contentType := multipartBody(t, "notes.txt", "text/plain", []byte("hello"))
	w := env.do(http.MethodPost, "/contracts/7/result", "lab", body, contentType)
	assert.Equal(t, http.StatusBadRequest, w.Code)
	assert.Empty(t, env.remote.callsTo(http.MethodPost, "/contracts/upload-pdf/7"))

	w = env.do(http.MethodPost, "/contracts/7/result", "lab", strings.NewReader(""), "multipart/form-data; boundary=x")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestHandler_UploadRequiresLaboratory(t *testing.T) {
	env := newTestEnv(t, nil)
	body, contentType := multipartBody(t, "result.pdf", "application/pdf", []byte("%PDF-1.7\n"))
	w := env.do(http.MethodPost, "/contracts/7/result", "dir", body, contentType)
	assert.Equal(t, http.StatusForbidden, w.Code)
}

func TestHandler_Downloads(t *testing.T) {
	png := []byte{0x89, 'P', 'N', 'G', '\r', '\n', 0x1a, '\n'}
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /contracts/qrcode/7": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "image/png")
			_, _ = w.Write(png)
		},
		"GET /appointment/result/pdf/31": func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Type", "application/octet-stream")
			_, _ = w.Write([]byte("%PDF-1.4"))
		},
	})

	w := env.do(http.MethodGet, "/contracts/7/qrcode?number=LAB-7", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "image/png", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="qrcode-LAB-7.png"`, w.Header().Get("Content-Disposition"))
	assert.Equal(t, png, w.Body.Bytes())

	w = env.do(http.MethodGet, "/documents/31/pdf", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, "application/pdf", w.Header().Get("Content-Type"))
	assert.Equal(t, `attachment; filename="document_31.pdf"`, w.Header().Get("Content-Disposition"))

	w = env.do(http.MethodGet, "/contracts/8/pdf", "lab", nil, "")
	assert.Equal(t, http.StatusBadGateway, w.Code)
}

func TestHandler_ActivityWhileDownloading(t *testing.T) {
	release := make(chan struct{})
	started := make(chan struct{})
	env := newTestEnv(t, map[string]func(w http.ResponseWriter, r *http.Request){
		"GET /contracts/pdf/4": func(w http.ResponseWriter, r *http.Request) {
			close(started)
			<-release
			_, _ = w.Write([]byte("%PDF-1.4"))
		},
	})

	done := make(chan int)
	go func() {
		done <- env.do(http.MethodGet, "/contracts/4/pdf", "lab", nil, "").Code
	}()
	<-started

	w := env.do(http.MethodGet, "/contracts/4/activity", "lab", nil, "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.JSONEq(t, `{"submitting": false, "uploading": false, "downloading": {
		"contract-qr": false, "appointment-qr": false, "contract-pdf": true, "result-pdf": false}}`, w.Body.String())

	w = env.do(http.MethodGet, "/contracts/4/pdf", "lab", nil, "")
	assert.Equal(t, http.StatusConflict, w.Code)

	close(release)
	assert.Equal(t, http.StatusOK, <-done)

	w = env.do(http.MethodGet, "/contracts/4/activity", "lab", nil, "")
	assert.Contains(t, w.Body.String(), `"contract-pdf":false`)
}
