package server

import (
	"encoding/json"
	"log"
	"net/http"
	"strconv"
	"strings"

	"github.com/TobiSchelling/GEOMonitor/internal/database"
	"github.com/TobiSchelling/GEOMonitor/internal/report"
	"github.com/TobiSchelling/GEOMonitor/internal/runner"
)

const maxBodyBytes = 1 << 20

type projectView struct {
	ID          string   `json:"id"`
	BrandName   string   `json:"brand_name"`
	Domain      string   `json:"domain"`
	Country     *string  `json:"country"`
	Language    *string  `json:"language"`
	Competitors []string `json:"competitors"`
	CreatedAt   *string  `json:"created_at"`
}

type promptView struct {
	ID         string  `json:"id"`
	ProjectID  string  `json:"project_id"`
	PromptText string  `json:"prompt_text"`
	Source     string  `json:"source"`
	IsActive   bool    `json:"is_active"`
	CreatedAt  *string `json:"created_at"`
}

type scoreView struct {
	MentionScore     int            `json:"mention_score"`
	CitationScore    int            `json:"citation_score"`
	SentimentScore   float64        `json:"sentiment_score"`
	SentimentLabel   string         `json:"sentiment_label"`
	ShareOfVoice     float64        `json:"share_of_voice"`
	RiskFlags        []string       `json:"risk_flags"`
	Citations        []string       `json:"citations"`
	BrandCount       int            `json:"brand_count"`
	CompetitorCounts map[string]int `json:"competitor_counts"`
}

type runView struct {
	ID           string     `json:"id"`
	ProjectID    string     `json:"project_id"`
	PromptID     string     `json:"prompt_id"`
	PromptText   string     `json:"prompt_text"`
	BatchID      *string    `json:"run_batch_id"`
	Provider     string     `json:"provider"`
	Model        *string    `json:"model"`
	Status       string     `json:"status"`
	ErrorMessage *string    `json:"error_message"`
	CreatedAt    *string    `json:"created_at"`
	CompletedAt  *string    `json:"completed_at"`
	Score        *scoreView `json:"run_scores"`
}

func toProjectView(p database.Project) projectView {
	competitors := p.Competitors
	if competitors == nil {
		competitors = []string{}
	}
	return projectView{
		ID:          p.ID,
		BrandName:   p.BrandName,
		Domain:      p.Domain,
		Country:     p.Country,
		Language:    p.Language,
		Competitors: competitors,
		CreatedAt:   p.CreatedAt,
	}
}

func toPromptView(p database.Prompt) promptView {
	return promptView{
		ID:         p.ID,
		ProjectID:  p.ProjectID,
		PromptText: p.PromptText,
		Source:     p.Source,
		IsActive:   p.IsActive,
		CreatedAt:  p.CreatedAt,
	}
}

func toRunView(d database.RunDetail) runView {
	v := runView{
		ID:           d.ID,
		ProjectID:    d.ProjectID,
		PromptID:     d.PromptID,
		PromptText:   d.PromptText,
		BatchID:      d.BatchID,
		Provider:     d.Provider,
		Model:        d.Model,
		Status:       string(d.Status),
		ErrorMessage: d.ErrorMessage,
		CreatedAt:    d.CreatedAt,
		CompletedAt:  d.CompletedAt,
	}
	if s := d.Score; s != nil {
		v.Score = &scoreView{
			MentionScore:     s.MentionScore,
			CitationScore:    s.CitationScore,
			SentimentScore:   s.SentimentScore,
			SentimentLabel:   s.SentimentLabel,
			ShareOfVoice:     s.ShareOfVoice,
			RiskFlags:        s.RiskFlags,
			Citations:        s.Citations,
			BrandCount:       s.BrandCount,
			CompetitorCounts: s.CompetitorCounts,
		}
	}
	return v
}

func (s *Server) handleListProjects(w http.ResponseWriter, r *http.Request) {
	projects, err := s.db.GetAllProjects()
	if err != nil {
		s.internalError(w, err)
		return
	}
	views := make([]projectView, len(projects))
	for i, p := range projects {
		views[i] = toProjectView(p)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleCreateProject(w http.ResponseWriter, r *http.Request) {
	var body struct {
		BrandName   string   `json:"brand_name"`
		Domain      string   `json:"domain"`
		Country     *string  `json:"country"`
		Language    *string  `json:"language"`
		Competitors []string `json:"competitors"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	body.BrandName = strings.TrimSpace(body.BrandName)
	body.Domain = strings.TrimSpace(body.Domain)
	if body.BrandName == "" || body.Domain == "" {
		writeError(w, http.StatusBadRequest, "brand_name and domain are required")
		return
	}

	id, err := s.db.InsertProject(body.BrandName, body.Domain, body.Country, body.Language, body.Competitors)
	if err != nil {
		s.internalError(w, err)
		return
	}
	project, err := s.db.GetProject(id)
	if err != nil || project == nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toProjectView(*project))
}

func (s *Server) handleGetProject(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	prompts, err := s.db.GetProjectPrompts(project.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	views := make([]promptView, len(prompts))
	for i, p := range prompts {
		views[i] = toPromptView(p)
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"project": toProjectView(*project),
		"prompts": views,
	})
}

func (s *Server) handleCreatePrompt(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	var body struct {
		PromptText string `json:"prompt_text"`
		Source     string `json:"source"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}
	body.PromptText = strings.TrimSpace(body.PromptText)
	if body.PromptText == "" {
		writeError(w, http.StatusBadRequest, "prompt_text is required")
		return
	}
	if body.Source != database.SourceAIGenerated {
		body.Source = database.SourceUser
	}

	id, err := s.db.InsertPrompt(project.ID, body.PromptText, body.Source)
	if err != nil {
		s.internalError(w, err)
		return
	}
	prompt, err := s.db.GetPrompt(id)
	if err != nil || prompt == nil {
		s.internalError(w, err)
		return
	}
	writeJSON(w, http.StatusCreated, toPromptView(*prompt))
}

func (s *Server) handleAutoPrompts(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	if s.suggester == nil {
		writeError(w, http.StatusServiceUnavailable, "prompt suggestions are not configured")
		return
	}

	suggestions, err := s.suggester.Suggest(r.Context(), s.db, project)
	if err != nil {
		s.internalError(w, err)
		return
	}

	type suggestionView struct {
		ID         string `json:"id"`
		PromptText string `json:"prompt_text"`
		Source     string `json:"source"`
	}
	views := make([]suggestionView, len(suggestions))
	for i, sg := range suggestions {
		views[i] = suggestionView{ID: sg.ID, PromptText: sg.PromptText, Source: sg.Source}
	}
	writeJSON(w, http.StatusOK, map[string]any{"suggestions": views})
}

func (s *Server) handleKPIs(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	runs, err := s.db.GetDoneRunsForProject(project.ID, report.KPIRunLimit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	prompts, err := s.db.GetProjectPrompts(project.ID)
	if err != nil {
		s.internalError(w, err)
		return
	}
	active := 0
	for _, p := range prompts {
		if p.IsActive {
			active++
		}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"kpis":                report.ComputeKPIs(runs),
		"trend":               report.Trend(runs, s.now(), report.TrendDays),
		"prompt_count":        len(prompts),
		"active_prompt_count": active,
	})
}

func (s *Server) handleSources(w http.ResponseWriter, r *http.Request) {
	project, ok := s.loadProject(w, r)
	if !ok {
		return
	}
	runs, err := s.db.GetDoneRunsForProject(project.ID, report.SourceRunLimit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	citations := report.Citations(runs)
	sources := report.Sources(runs)
	if citations == nil {
		citations = []report.CitationRow{}
	}
	if sources == nil {
		sources = []report.SourceRow{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"citations": citations,
		"sources":   sources,
	})
}

func (s *Server) handleListRuns(w http.ResponseWriter, r *http.Request) {
	projectID := r.URL.Query().Get("project_id")
	if projectID == "" {
		writeError(w, http.StatusBadRequest, "project_id required")
		return
	}
	limit := 50
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n <= 0 {
			writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		limit = n
	}

	runs, err := s.db.GetRunsForProject(projectID, limit)
	if err != nil {
		s.internalError(w, err)
		return
	}
	views := make([]runView, len(runs))
	for i, d := range runs {
		views[i] = toRunView(d)
	}
	writeJSON(w, http.StatusOK, views)
}

func (s *Server) handleRunBatch(w http.ResponseWriter, r *http.Request) {
	var body struct {
		ProjectID string   `json:"project_id"`
		PromptIDs []string `json:"prompt_ids"`
		Providers []string `json:"providers"`
	}
	if !decodeJSON(w, r, &body) {
		return
	}

	result, err := s.batches.RunBatch(r.Context(), body.ProjectID, body.PromptIDs, body.Providers)
	if err != nil {
		status := statusFor(err)
		if status == http.StatusInternalServerError {
			log.Printf("Batch failed: %v", err)
		}
		writeError(w, status, err.Error())
		return
	}

	results := result.Results
	if results == nil {
		results = []runner.Outcome{}
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"batch_id": result.BatchID,
		"status":   result.Status,
		"results":  results,
	})
}

func (s *Server) loadProject(w http.ResponseWriter, r *http.Request) (*database.Project, bool) {
	project, err := s.db.GetProject(r.PathValue("id"))
	if err != nil {
		s.internalError(w, err)
		return nil, false
	}
	if project == nil {
		writeError(w, http.StatusNotFound, "Project not found")
		return nil, false
	}
	return project, true
}

func (s *Server) internalError(w http.ResponseWriter, err error) {
	log.Printf("Internal error: %v", err)
	writeError(w, http.StatusInternalServerError, "Internal server error")
}

func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body")
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		log.Printf("Error encoding response: %v", err)
	}
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
