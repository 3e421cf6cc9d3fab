package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/Lllllllleong/documentqaflow/internal/config"
	"github.com/Lllllllleong/documentqaflow/internal/docid"
	"github.com/Lllllllleong/documentqaflow/internal/models"
	"github.com/Lllllllleong/documentqaflow/internal/records"
	"github.com/Lllllllleong/documentqaflow/internal/services"
)

type memObjects struct {
	objects map[string][]byte
	signErr error
}

func (o *memObjects) SignedPutURL(_ context.Context, key, _ string, _ time.Duration) (string, error) {
	if o.signErr != nil {
		return "", o.signErr
	}
	return "https://storage.example/" + url.PathEscape(key) + "?sig=x", nil
}

func (o *memObjects) Fetch(_ context.Context, key string) ([]byte, error) {
	data, ok := o.objects[key]
	if !ok {
		return nil, errors.New("object not found")
	}
	return data, nil
}

type textExtractor struct{}

func (textExtractor) ExtractPages(data []byte) ([]string, error) {
	return []string{string(data)}, nil
}

type echoGenerator struct {
	err error
}

func (g echoGenerator) Generate(_ context.Context, prompt string, _ int32) (string, error) {
	if g.err != nil {
		return "", g.err
	}
	if strings.Contains(prompt, "User question:") {
		return "answer", nil
	}
	return "summary", nil
}

type testEnv struct {
	objects *memObjects
	store   *records.Memory
	server  *httptest.Server
}

func newTestEnv(t *testing.T, gen echoGenerator, routes func(*Handler) http.Handler) *testEnv {
	t.Helper()
	env := &testEnv{
		objects: &memObjects{objects: map[string][]byte{}},
		store:   records.NewMemory(),
	}
	cfg := &config.Config{
		UploadBucket:    "uploads",
		SignedURLTTL:    time.Hour,
		MaxTextChars:    15000,
		MaxOutputTokens: 1000,
		SummaryLanguage: "Korean",
		HistoryTurns:    2,
	}
	rt := services.NewRuntimeWith(cfg, services.Deps{
		Objects:   env.objects,
		Extractor: textExtractor{},
		Generator: gen,
		Records:   env.store,
	})
	env.server = httptest.NewServer(routes(NewHandler(rt)))
	t.Cleanup(env.server.Close)
	return env
}

func (env *testEnv) do(t *testing.T, method, path string, body any) (*http.Response, []byte) {
	t.Helper()
	var rdr *bytes.Reader
	switch b := body.(type) {
	case nil:
		rdr = bytes.NewReader(nil)
	case string:
		rdr = bytes.NewReader([]byte(b))
	default:
		raw, err := json.Marshal(b)
		if err != nil {
			t.Fatalf("marshal: %v", err)
		}
		rdr = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, env.server.URL+path, rdr)
	if err != nil {
		t.Fatalf("NewRequest: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("%s %s: %v", method, path, err)
	}
	defer resp.Body.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(resp.Body)
	return resp, buf.Bytes()
}

func decode[T any](t *testing.T, raw []byte) T {
	t.Helper()
	var v T
	if err := json.Unmarshal(raw, &v); err != nil {
		t.Fatalf("unmarshal %s: %v", raw, err)
	}
	return v
}

func allRoutes(h *Handler) http.Handler { return h.Routes() }

func TestUploadURL(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)

	resp, raw := env.do(t, http.MethodPost, "/upload-url", models.UploadURLRequest{Filename: "report.pdf", UserID: "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %s", resp.StatusCode, raw)
	}
	out := decode[models.UploadURLResponse](t, raw)
	if out.UploadURL == "" {
		t.Error("empty upload_url")
	}
	if id := docid.Decode(out.FileID); id.OwnerID != "u1" || id.Filename != "report.pdf" {
		t.Errorf("file_id %q decodes to %+v", out.FileID, id)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("Access-Control-Allow-Origin = %q", got)
	}
}

func TestUploadURL_Errors(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)

	resp, raw := env.do(t, http.MethodPost, "/upload-url", models.UploadURLRequest{UserID: "u1"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing filename status = %d", resp.StatusCode)
	}
	if e := decode[models.ErrorResponse](t, raw); e.Error != "filename is required" {
		t.Errorf("error = %q", e.Error)
	}

	resp, _ = env.do(t, http.MethodPost, "/upload-url", "{not json")
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad JSON status = %d", resp.StatusCode)
	}

	env.objects.signErr = errors.New("signing key unavailable")
	resp, _ = env.do(t, http.MethodPost, "/upload-url", models.UploadURLRequest{Filename: "a.pdf", UserID: "u1"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("sign failure status = %d", resp.StatusCode)
	}
}

func TestSummaryListChatFlow(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)
	id := docid.Encode("u1", "report.pdf")
	env.objects.objects[id.Key] = []byte("Revenue grew.")
	summaryPath := "/summary?user_id=u1&file_id=" + url.QueryEscape(id.Key)

	resp, raw := env.do(t, http.MethodGet, summaryPath, nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("summary status = %d", resp.StatusCode)
	}
	if s := decode[models.SummaryResponse](t, raw); s.Status != models.StatusProcessing {
		t.Errorf("status before processing = %s", s.Status)
	}

	resp, raw = env.do(t, http.MethodPost, "/process", models.ProcessRequest{Bucket: "uploads", Key: url.QueryEscape(id.Key)})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("process status = %d, body %s", resp.StatusCode, raw)
	}
	if p := decode[models.ProcessResponse](t, raw); p.Status != models.StatusCompleted || p.OwnerID != "u1" || p.DocumentID != id.Key {
		t.Errorf("process response = %+v", p)
	}

	resp, raw = env.do(t, http.MethodPost, "/chat", models.ChatRequest{FileID: id.Key, Question: "what is this about?", UserID: "u1"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("chat status = %d, body %s", resp.StatusCode, raw)
	}
	if c := decode[models.ChatResponse](t, raw); c.Answer != "answer" {
		t.Errorf("answer = %q", c.Answer)
	}

	_, raw = env.do(t, http.MethodGet, summaryPath, nil)
	s := decode[models.SummaryResponse](t, raw)
	if s.Status != models.StatusCompleted || s.SummaryText != "summary" || len(s.ChatHistory) != 1 {
		t.Errorf("summary after chat = %+v", s)
	}

	resp, raw = env.do(t, http.MethodGet, "/list?user_id=u1", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("list status = %d", resp.StatusCode)
	}
	list := decode[models.ListResponse](t, raw)
	if len(list.Files) != 1 || list.Files[0].Filename != "report.pdf" || list.Files[0].OwnerID != "u1" {
		t.Errorf("list = %+v", list)
	}
}

func TestList_RequiresUser(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)
	resp, _ := env.do(t, http.MethodGet, "/list", nil)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestChat_Errors(t *testing.T) {
	env := newTestEnv(t, echoGenerator{err: errors.New("model overloaded")}, allRoutes)

	resp, _ := env.do(t, http.MethodPost, "/chat", models.ChatRequest{Question: "q"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing file_id status = %d", resp.StatusCode)
	}

	id := docid.Encode("u1", "a.pdf")
	env.objects.objects[id.Key] = []byte("text")
	resp, raw := env.do(t, http.MethodPost, "/chat", models.ChatRequest{FileID: id.Key, Question: "q"})
	if resp.StatusCode != http.StatusInternalServerError {
		t.Errorf("generation failure status = %d", resp.StatusCode)
	}
	if e := decode[models.ErrorResponse](t, raw); !strings.Contains(e.Error, "model overloaded") {
		t.Errorf("error = %q", e.Error)
	}
}

func TestProcess_Errors(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)

	resp, _ := env.do(t, http.MethodPost, "/process", models.ProcessRequest{})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("missing key status = %d", resp.StatusCode)
	}
	resp, _ = env.do(t, http.MethodPost, "/process", models.ProcessRequest{Key: "%zz"})
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("bad encoding status = %d", resp.StatusCode)
	}

	resp, raw := env.do(t, http.MethodPost, "/process", models.ProcessRequest{Bucket: "elsewhere", Key: "u1_____t_____a.pdf"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("skipped status = %d", resp.StatusCode)
	}
	if p := decode[models.ProcessResponse](t, raw); !p.Skipped || p.Recorded {
		t.Errorf("skipped response = %+v", p)
	}

	// Missing object: recorded as FAILED, still a 200 for the trigger.
	resp, raw = env.do(t, http.MethodPost, "/process", models.ProcessRequest{Key: "u1_____t_____gone.pdf"})
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("failed-run status = %d", resp.StatusCode)
	}
	p := decode[models.ProcessResponse](t, raw)
	if p.Status != models.StatusFailed || !p.Recorded || p.Error == "" {
		t.Errorf("failed-run response = %+v", p)
	}
}

func TestCORSAndUnmatchedRoutes(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)

	resp, raw := env.do(t, http.MethodOptions, "/upload-url", nil)
	if resp.StatusCode != http.StatusOK || len(raw) != 0 {
		t.Errorf("preflight = %d %q", resp.StatusCode, raw)
	}
	if got := resp.Header.Get("Access-Control-Allow-Methods"); got != "GET, POST, OPTIONS" {
		t.Errorf("Access-Control-Allow-Methods = %q", got)
	}
	if got := resp.Header.Get("Access-Control-Allow-Headers"); got != "Content-Type" {
		t.Errorf("Access-Control-Allow-Headers = %q", got)
	}

	for _, tc := range []struct {
		method, path string
		status       int
		msg          string
	}{
		{http.MethodGet, "/nope", http.StatusNotFound, "Not Found"},
		{http.MethodPost, "/nope", http.StatusNotFound, "Not Found"},
		{http.MethodDelete, "/list", http.StatusMethodNotAllowed, "Method Not Allowed"},
		{http.MethodGet, "/chat", http.StatusMethodNotAllowed, "Method Not Allowed"},
	} {
		resp, raw := env.do(t, tc.method, tc.path, nil)
		if resp.StatusCode != tc.status {
			t.Errorf("%s %s status = %d, want %d", tc.method, tc.path, resp.StatusCode, tc.status)
		}
		if e := decode[models.ErrorResponse](t, raw); e.Error != tc.msg {
			t.Errorf("%s %s error = %q", tc.method, tc.path, e.Error)
		}
		if resp.Header.Get("Access-Control-Allow-Origin") != "*" {
			t.Errorf("%s %s missing CORS header", tc.method, tc.path)
		}
	}
}

func TestHealthzAndMetrics(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, allRoutes)
	env.do(t, http.MethodGet, "/list?user_id=u1", nil)

	resp, _ := env.do(t, http.MethodGet, "/healthz", nil)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("healthz status = %d", resp.StatusCode)
	}
	resp, raw := env.do(t, http.MethodGet, "/metrics", nil)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("metrics status = %d", resp.StatusCode)
	}
	if !strings.Contains(string(raw), `docqa_http_requests_total{method="GET",route="/list",status="200"}`) {
		t.Error("metrics output lacks the /list request counter")
	}
}

func TestChatRoutes(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, func(h *Handler) http.Handler { return h.ChatRoutes() })
	id := docid.Encode("u1", "a.pdf")
	env.objects.objects[id.Key] = []byte("text")

	for _, path := range []string{"/", "/chat"} {
		resp, raw := env.do(t, http.MethodPost, path, models.ChatRequest{FileID: id.Key, Question: "q"})
		if resp.StatusCode != http.StatusOK {
			t.Errorf("POST %s status = %d, body %s", path, resp.StatusCode, raw)
		}
	}
	if resp, _ := env.do(t, http.MethodGet, "/list?user_id=u1", nil); resp.StatusCode != http.StatusNotFound {
		t.Errorf("chat deployment serves /list: %d", resp.StatusCode)
	}
}

func TestDocumentRoutes(t *testing.T) {
	env := newTestEnv(t, echoGenerator{}, func(h *Handler) http.Handler { return h.DocumentRoutes() })
	if resp, _ := env.do(t, http.MethodGet, "/summary?user_id=u1&file_id=x", nil); resp.StatusCode != http.StatusOK {
		t.Errorf("summary status = %d", resp.StatusCode)
	}
	if resp, _ := env.do(t, http.MethodPost, "/process", models.ProcessRequest{Key: "x"}); resp.StatusCode != http.StatusNotFound {
		t.Errorf("document deployment serves /process: %d", resp.StatusCode)
	}
}
