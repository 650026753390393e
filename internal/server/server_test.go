package server

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"path/filepath"
	"strings"
	"testing"

	"github.com/TobiSchelling/GEOMonitor/internal/batch"
	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/llm"
	"github.com/TobiSchelling/GEOMonitor/internal/runner"
	"github.com/TobiSchelling/GEOMonitor/internal/suggest"
)

func openTestDB(t *testing.T) *database.DB {
	t.Helper()
	db, err := database.Open(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("failed to open test db: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

// echoAdapter answers every prompt with the same text, or fails.
type echoAdapter struct {
	name   string
	answer string
	fail   bool
}

func (e *echoAdapter) Name() string     { return e.name }
func (e *echoAdapter) Configured() bool { return true }

func (e *echoAdapter) Invoke(_ context.Context, in llm.Input) (*llm.Output, error) {
	if e.fail {
		return nil, &llm.ProviderError{Provider: e.name, StatusCode: 503, Message: "overloaded"}
	}
	return &llm.Output{AnswerText: e.answer, Meta: llm.Meta{Provider: e.name}}, nil
}

func newTestServer(t *testing.T, db *database.DB) *Server {
	t.Helper()
	reg, _ := llm.NewRegistry(nil)
	reg.Register("openai", &echoAdapter{name: "openai", answer: "Dior is great. See https://dior.com/about"})
	reg.Register("anthropic", &echoAdapter{name: "anthropic", fail: true})

	exec := runner.New(db, reg, runner.Options{})
	coord := batch.New(db, exec, batch.Options{DefaultProvider: "openai"})
	sugg := suggest.New(reg, suggest.Options{Provider: "openai"})

	srv, err := New(db, coord, sugg)
	if err != nil {
		t.Fatalf("failed to create server: %v", err)
	}
	return srv
}

func do(t *testing.T, srv *Server, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	rec := httptest.NewRecorder()
	srv.Handler().ServeHTTP(rec, req)
	return rec
}

func seed(t *testing.T, db *database.DB) (string, string) {
	t.Helper()
	projectID, _ := db.InsertProject("Dior", "dior.com", nil, nil, []string{"Chanel"})
	promptID, _ := db.InsertPrompt(projectID, "Is Dior good?", database.SourceUser)
	return projectID, promptID
}

func TestIndexRoute(t *testing.T) {
	db := openTestDB(t)
	seed(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "GET", "/", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "Dior") {
		t.Error("expected project in response body")
	}
}

func TestUnknownPath(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))
	if rec := do(t, srv, "GET", "/nope", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestCreateAndListProjects(t *testing.T) {
	db := openTestDB(t)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/api/projects", `{"brand_name":"Dior","domain":"dior.com","competitors":["Chanel"]}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d: %s", rec.Code, rec.Body.String())
	}
	var created projectView
	json.Unmarshal(rec.Body.Bytes(), &created)
	if created.ID == "" || created.Competitors[0] != "Chanel" {
		t.Errorf("unexpected project %+v", created)
	}

	rec = do(t, srv, "GET", "/api/projects", "")
	var projects []projectView
	json.Unmarshal(rec.Body.Bytes(), &projects)
	if len(projects) != 1 {
		t.Errorf("expected 1 project, got %d", len(projects))
	}

	if rec := do(t, srv, "POST", "/api/projects", `{"brand_name":"Dior"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing domain, got %d", rec.Code)
	}
	if rec := do(t, srv, "POST", "/api/projects", `not json`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad JSON, got %d", rec.Code)
	}
}

func TestCreatePrompt(t *testing.T) {
	db := openTestDB(t)
	projectID, _ := seed(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/api/projects/"+projectID+"/prompts", `{"prompt_text":"Is Dior safe?"}`)
	if rec.Code != http.StatusCreated {
		t.Fatalf("expected 201, got %d", rec.Code)
	}

	rec = do(t, srv, "GET", "/api/projects/"+projectID, "")
	var body struct {
		Prompts []promptView `json:"prompts"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Prompts) != 2 {
		t.Errorf("expected 2 prompts, got %d", len(body.Prompts))
	}

	if rec := do(t, srv, "POST", "/api/projects/missing/prompts", `{"prompt_text":"x"}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestRunBatchRoute(t *testing.T) {
	db := openTestDB(t)
	projectID, promptID := seed(t, db)
	srv := newTestServer(t, db)

	rec := do(t, srv, "POST", "/api/runs",
		`{"project_id":"`+projectID+`","prompt_ids":["`+promptID+`"],"providers":["openai","anthropic"]}`)
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d: %s", rec.Code, rec.Body.String())
	}

	var body struct {
		BatchID string           `json:"batch_id"`
		Status  string           `json:"status"`
		Results []runner.Outcome `json:"results"`
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &body); err != nil {
		t.Fatalf("invalid JSON: %v", err)
	}
	if body.BatchID == "" || body.Status != "partial" {
		t.Errorf("unexpected batch %q %q", body.BatchID, body.Status)
	}
	if len(body.Results) != 2 || body.Results[0].Status != database.RunDone || body.Results[1].Status != database.RunError {
		t.Errorf("unexpected results %+v", body.Results)
	}
	if body.Results[1].Error == "" {
		t.Error("expected error message on the failed run")
	}

	rec = do(t, srv, "GET", "/api/runs?project_id="+projectID+"&limit=10", "")
	var runs []runView
	json.Unmarshal(rec.Body.Bytes(), &runs)
	if len(runs) != 2 {
		t.Fatalf("expected 2 runs, got %d", len(runs))
	}
	for _, r := range runs {
		if r.Status == "done" && (r.Score == nil || r.Score.MentionScore != 1) {
			t.Errorf("expected score on done run, got %+v", r.Score)
		}
		if r.Status == "error" && r.Score != nil {
			t.Error("expected no score on error run")
		}
	}
}

func TestRunBatchRouteErrors(t *testing.T) {
	db := openTestDB(t)
	projectID, _ := seed(t, db)
	srv := newTestServer(t, db)

	if rec := do(t, srv, "POST", "/api/runs", `{"project_id":"`+projectID+`"}`); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing prompts, got %d", rec.Code)
	}
	if rec := do(t, srv, "POST", "/api/runs", `{"project_id":"missing","prompt_ids":["x"]}`); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404 for unknown project, got %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/api/runs", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for missing project_id, got %d", rec.Code)
	}
	if rec := do(t, srv, "GET", "/api/runs?project_id=x&limit=abc", ""); rec.Code != http.StatusBadRequest {
		t.Errorf("expected 400 for bad limit, got %d", rec.Code)
	}
}

func TestAutoPromptsRoute(t *testing.T) {
	db := openTestDB(t)
	projectID, _ := seed(t, db)
	srv := newTestServer(t, db)

	// The stub answer is not a JSON array, so the fallback prompts are used.
	rec := do(t, srv, "POST", "/api/projects/"+projectID+"/auto-prompts", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var body struct {
		Suggestions []struct {
			ID         string `json:"id"`
			PromptText string `json:"prompt_text"`
			Source     string `json:"source"`
		} `json:"suggestions"`
	}
	json.Unmarshal(rec.Body.Bytes(), &body)
	if len(body.Suggestions) != 5 || body.Suggestions[0].Source != database.SourceFallback {
		t.Errorf("unexpected suggestions %+v", body.Suggestions)
	}
}

func TestKPIsAndSourcesRoutes(t *testing.T) {
	db := openTestDB(t)
	projectID, promptID := seed(t, db)
	srv := newTestServer(t, db)
	do(t, srv, "POST", "/api/runs", `{"project_id":"`+projectID+`","prompt_ids":["`+promptID+`"]}`)

	rec := do(t, srv, "GET", "/api/projects/"+projectID+"/kpis", "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	var kpis struct {
		KPIs struct {
			MentionRate int `json:"mention_rate"`
			TotalRuns   int `json:"total_runs"`
		} `json:"kpis"`
		Trend []json.RawMessage `json:"trend"`
	}
	json.Unmarshal(rec.Body.Bytes(), &kpis)
	if kpis.KPIs.TotalRuns != 1 || kpis.KPIs.MentionRate != 100 {
		t.Errorf("unexpected KPIs %+v", kpis.KPIs)
	}
	if len(kpis.Trend) != 14 {
		t.Errorf("expected 14 trend points, got %d", len(kpis.Trend))
	}

	rec = do(t, srv, "GET", "/api/projects/"+projectID+"/sources", "")
	if !strings.Contains(rec.Body.String(), `"domain":"dior.com"`) {
		t.Errorf("expected dior.com source, got %s", rec.Body.String())
	}
}

func TestReportRoute(t *testing.T) {
	db := openTestDB(t)
	projectID, promptID := seed(t, db)
	srv := newTestServer(t, db)
	do(t, srv, "POST", "/api/runs", `{"project_id":"`+projectID+`","prompt_ids":["`+promptID+`"]}`)

	rec := do(t, srv, "GET", "/reports/"+projectID, "")
	if rec.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rec.Code)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "<h1>Dior visibility report</h1>") {
		t.Error("expected rendered report heading")
	}
	if !strings.Contains(body, "<table>") {
		t.Error("expected markdown tables rendered as HTML")
	}

	if rec := do(t, srv, "GET", "/reports/missing", ""); rec.Code != http.StatusNotFound {
		t.Errorf("expected 404, got %d", rec.Code)
	}
}

func TestStaticRoute(t *testing.T) {
	srv := newTestServer(t, openTestDB(t))

	rec := do(t, srv, "GET", "/static/style.css", "")
	if rec.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rec.Code)
	}
	if !strings.Contains(rec.Body.String(), "font-sans") {
		t.Error("expected CSS content")
	}
}
