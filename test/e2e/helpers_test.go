package e2e_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/helixml/trialdex"
	"github.com/helixml/trialdex/infrastructure/api"
	apimiddleware "github.com/helixml/trialdex/infrastructure/api/middleware"
	"github.com/helixml/trialdex/infrastructure/provider"
)

// TestServer runs the full HTTP stack against a file-backed client whose
// registry is a local fake.
type TestServer struct {
	t          *testing.T
	client     *trialdex.Client
	registry   *fakeRegistry
	httpServer *httptest.Server
}

// NewTestServer creates a client backed by SQLite, the topic embedder and a
// fake registry, and serves it the way the serve command does.
func NewTestServer(t *testing.T) *TestServer {
	t.Helper()

	registry := newFakeRegistry()
	registrySrv := httptest.NewServer(registry)
	t.Cleanup(registrySrv.Close)

	client, err := trialdex.New(
		trialdex.WithSQLite(filepath.Join(t.TempDir(), "trialdex.db")),
		trialdex.WithEmbeddingProvider(topicEmbedder{}),
		trialdex.WithRegistryURL(registrySrv.URL),
		trialdex.WithPageDelay(0),
	)
	if err != nil {
		t.Fatalf("create trialdex client: %v", err)
	}

	logger := client.Logger()
	apiServer := api.NewAPIServer(client, "e2e", logger)
	router := apiServer.Router()
	router.Use(apimiddleware.CORS(nil))
	router.Use(apimiddleware.Logging(logger))
	apiServer.MountRoutes()

	server := api.NewServer(":0", logger)
	server.Router().Mount("/", router)

	ts := &TestServer{
		t:          t,
		client:     client,
		registry:   registry,
		httpServer: httptest.NewServer(server.Router()),
	}
	t.Cleanup(ts.Close)
	return ts
}

// URL returns the base URL of the test server.
func (ts *TestServer) URL() string {
	return ts.httpServer.URL
}

// Close shuts down the test server.
func (ts *TestServer) Close() {
	ts.httpServer.Close()
	_ = ts.client.Close()
}

// GET performs a GET request and returns the response.
func (ts *TestServer) GET(path string) *http.Response {
	ts.t.Helper()
	resp, err := http.Get(ts.URL() + path)
	if err != nil {
		ts.t.Fatalf("GET %s: %v", path, err)
	}
	return resp
}

// POSTMCP sends a JSON-RPC message to the MCP endpoint.
func (ts *TestServer) POSTMCP(sessionID string, msg map[string]any) *http.Response {
	ts.t.Helper()
	body, err := json.Marshal(msg)
	if err != nil {
		ts.t.Fatalf("marshal body: %v", err)
	}
	req, err := http.NewRequest(http.MethodPost, ts.URL()+"/mcp", bytes.NewReader(body))
	if err != nil {
		ts.t.Fatalf("create request: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	if sessionID != "" {
		req.Header.Set("Mcp-Session-Id", sessionID)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		ts.t.Fatalf("POST /mcp: %v", err)
	}
	return resp
}

// DecodeJSON decodes the response body as JSON into v.
func (ts *TestServer) DecodeJSON(resp *http.Response, v any) {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	if err := json.NewDecoder(resp.Body).Decode(v); err != nil {
		ts.t.Fatalf("decode response: %v", err)
	}
}

// ReadBody reads and returns the response body as a string.
func (ts *TestServer) ReadBody(resp *http.Response) string {
	ts.t.Helper()
	defer func() {
		_ = resp.Body.Close()
	}()
	body, err := io.ReadAll(resp.Body)
	if err != nil {
		ts.t.Fatalf("read body: %v", err)
	}
	return string(body)
}

// Ingest runs an ingestion through the client and fails the test on a
// store reset error.
func (ts *TestServer) Ingest(target int, priorityIDs ...string) {
	ts.t.Helper()
	if _, err := ts.client.Ingest(context.Background(), target, priorityIDs); err != nil {
		ts.t.Fatalf("ingest: %v", err)
	}
}

// topicEmbedder scores texts on a handful of medical topics.
type topicEmbedder struct{}

var topics = []string{"oncology", "cardiac", "dementia", "insulin"}

func (topicEmbedder) Embed(_ context.Context, req provider.EmbeddingRequest) (provider.EmbeddingResponse, error) {
	texts := req.Texts()
	vectors := make([][]float64, len(texts))
	for i, text := range texts {
		lower := strings.ToLower(text)
		v := make([]float64, len(topics)+1)
		for j, topic := range topics {
			v[j] = float64(strings.Count(lower, topic))
		}
		v[len(topics)] = 0.05
		vectors[i] = v
	}
	return provider.NewEmbeddingResponse(vectors, provider.NewUsage(0, 0)), nil
}

func (topicEmbedder) Capacity() int { return 16 }

func (topicEmbedder) Close() error { return nil }

// fakeRegistry serves a fixed catalogue in pages of the requested size.
type fakeRegistry struct {
	studies []map[string]any
}

func newFakeRegistry() *fakeRegistry {
	r := &fakeRegistry{}
	r.add("NCT10000001", "Targeted Oncology Therapy", "Lung Cancer", "oncology")
	r.add("NCT10000002", "Cardiac Rehabilitation Programme", "Heart Failure", "cardiac")
	r.add("NCT10000003", "Dementia Caregiver Support", "Alzheimer Disease", "dementia")
	r.add("NCT10000004", "Closed Loop Insulin Delivery", "Type 1 Diabetes", "insulin")
	r.add("NCT10000005", "Radiation Oncology Outcomes", "Breast Cancer", "oncology")
	return r
}

func (r *fakeRegistry) add(id, title, condition, topic string) {
	r.studies = append(r.studies, map[string]any{
		"protocolSection": map[string]any{
			"identificationModule": map[string]any{"nctId": id, "briefTitle": title},
			"statusModule":         map[string]any{"overallStatus": "RECRUITING"},
			"designModule":         map[string]any{"phases": []string{"PHASE3"}},
			"conditionsModule":     map[string]any{"conditions": []string{condition}},
			"descriptionModule":    map[string]any{"detailedDescription": "A multicentre " + topic + " study measuring outcomes over one year."},
			"eligibilityModule":    map[string]any{"eligibilityCriteria": "Inclusion: adults referred to " + topic + " services."},
		},
	})
}

func (r *fakeRegistry) ServeHTTP(w http.ResponseWriter, req *http.Request) {
	q := req.URL.Query()
	w.Header().Set("Content-Type", "application/json")

	if ids := q.Get("filter.ids"); ids != "" {
		wanted := map[string]bool{}
		for _, id := range strings.Split(ids, ",") {
			wanted[id] = true
		}
		var found []map[string]any
		for _, s := range r.studies {
			if wanted[nctID(s)] {
				found = append(found, s)
			}
		}
		_ = json.NewEncoder(w).Encode(map[string]any{"studies": found})
		return
	}

	offset := 0
	if token := q.Get("pageToken"); token != "" {
		if err := json.Unmarshal([]byte(token), &offset); err != nil {
			http.Error(w, "bad token", http.StatusBadRequest)
			return
		}
	}
	size := 2
	if n := q.Get("pageSize"); n != "" {
		_ = json.Unmarshal([]byte(n), &size)
	}

	end := min(offset+size, len(r.studies))
	body := map[string]any{"studies": r.studies[offset:end]}
	if end < len(r.studies) {
		next, _ := json.Marshal(end)
		body["nextPageToken"] = string(next)
	}
	_ = json.NewEncoder(w).Encode(body)
}

func nctID(study map[string]any) string {
	section := study["protocolSection"].(map[string]any)
	return section["identificationModule"].(map[string]any)["nctId"].(string)
}
