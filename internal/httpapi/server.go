// Package httpapi serves the decision core over HTTP: dispatch, standalone
// risk and guardrail checks, graph inspection and reload, and the recorded
// checkpoint and decision trails.
package httpapi

import (
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"strings"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"

	"github.com/rahlplx/workforce/internal/alerts"
	"github.com/rahlplx/workforce/internal/audit"
	"github.com/rahlplx/workforce/internal/config"
	"github.com/rahlplx/workforce/internal/executor"
	"github.com/rahlplx/workforce/internal/graph"
	"github.com/rahlplx/workforce/internal/guardrail"
	"github.com/rahlplx/workforce/internal/pipeline"
	"github.com/rahlplx/workforce/internal/risk"
	"github.com/rahlplx/workforce/internal/router"
	"github.com/rahlplx/workforce/internal/store"
	"github.com/rahlplx/workforce/internal/store/postgres"
	"github.com/rahlplx/workforce/pkg/models"
)

// limitBody wraps r.Body with http.MaxBytesReader so handlers cannot read more than maxBytes.
func limitBody(w http.ResponseWriter, r *http.Request, maxBytes int64) {
	r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
}

// bodyLimitMiddleware limits request body size for POST, PUT, PATCH to prevent OOM.
func bodyLimitMiddleware(maxBytes int64, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method == http.MethodPost || r.Method == http.MethodPut || r.Method == http.MethodPatch {
			limitBody(w, r, maxBytes)
		}
		next.ServeHTTP(w, r)
	})
}

// corsMiddleware sets CORS headers for dev mode.
func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, PATCH, DELETE, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type, X-API-Key")
		if r.Method == http.MethodOptions {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// ServerOptions configures the HTTP server.
type ServerOptions struct {
	Home           string
	Addr           string
	Dev            bool
	APIKey         string            // if set, require X-API-Key header or query api_key
	DBDriver       string            // "sqlite" (default) or "postgres"
	DBURL          string            // for postgres: connection string (or set DATABASE_URL env)
	MetricsHandler http.Handler      // if set, used for /metrics (e.g. OTel Prometheus handler)
	UseOtelHTTP    bool              // if true, wrap handler with otelhttp for request metrics
	Executor       executor.Executor // nil uses the stub executor
}

// App holds the HTTP server, SSE hub, store, decision engine, and home path.
type App struct {
	Server  *http.Server
	Hub     *SSEHub
	Store   store.Store
	Engine  *pipeline.Engine
	Graphs  *graph.Holder
	Alerts  *alerts.Registry
	Ruleset config.Ruleset
	Home    string
}

// defaultGraphYAML backs /graph when <home>/graph.yaml does not exist yet, so
// a fresh install can serve and dispatch before any graph is authored.
const defaultGraphYAML = `
version: "1"
nodes:
  - id: coordinator
    kind: orchestrator
    domain: [general]
    capabilities: [dispatch]
edges: []
`

// NewApp creates the HTTP app (server, hub, store, engine) and registers all routes.
func NewApp(opts ServerOptions) (*App, error) {
	hub := NewSSEHub()
	mux := http.NewServeMux()

	var st store.Store
	var err error
	if opts.DBDriver == "postgres" {
		st, err = postgres.Open(opts.DBURL)
	} else {
		st, err = store.Open(opts.Home)
	}
	if err != nil {
		return nil, err
	}

	graphPath := config.GraphPath(opts.Home)
	g, err := graph.LoadFile(graphPath)
	if err != nil {
		if !os.IsNotExist(err) {
			_ = st.Close()
			return nil, fmt.Errorf("load graph %s: %w", graphPath, err)
		}
		g, err = graph.Load(strings.NewReader(defaultGraphYAML))
		if err != nil {
			_ = st.Close()
			return nil, err
		}
	}
	holder := graph.NewHolder(g)

	rs, err := config.LoadRuleset(config.RulesetPath(opts.Home))
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	assessor, err := risk.NewAssessor(rs.Risk)
	if err != nil {
		_ = st.Close()
		return nil, err
	}
	guards, err := guardrail.New(rs)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	reg := alerts.NewRegistry()
	if u := os.Getenv("SLACK_WEBHOOK_URL"); u != "" {
		reg.Register("slack", alerts.SlackWebhook{WebhookURL: u})
	}
	if u := os.Getenv("ALERT_WEBHOOK_URL"); u != "" {
		reg.Register("webhook", alerts.WebhookNotifier{URL: u})
	}

	engine := &pipeline.Engine{
		Graphs:      holder,
		Assessor:    assessor,
		Guards:      guards,
		Checkpoints: &risk.CheckpointManager{Dir: config.CheckpointsDir(opts.Home), Store: st},
		Exec:        opts.Executor,
		Journal:     &audit.Journal{Home: opts.Home},
		Store:       st,
		Alerts:      reg,
		Emit:        func(ev executor.Event) { hub.PublishJSON(ev) },
	}

	app := &App{
		Hub:     hub,
		Store:   st,
		Engine:  engine,
		Graphs:  holder,
		Alerts:  reg,
		Ruleset: rs,
		Home:    opts.Home,
	}

	mux.HandleFunc("/health", func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, map[string]any{"ok": true})
	})

	if opts.MetricsHandler != nil {
		mux.Handle("/metrics", opts.MetricsHandler)
	}

	mux.HandleFunc("/config", func(w http.ResponseWriter, r *http.Request) {
		execName := "stub"
		if opts.Executor != nil {
			execName = opts.Executor.Name()
		}
		writeJSON(w, map[string]any{
			"home":            opts.Home,
			"graph_path":      graphPath,
			"ruleset_version": rs.Version,
			"executor":        execName,
		})
	})

	mux.HandleFunc("/stream", hub.Handler())

	mux.HandleFunc("/dispatch", app.handleDispatch)
	mux.HandleFunc("/analyze", app.handleAnalyze)
	mux.HandleFunc("/validate", app.handleValidate)
	mux.HandleFunc("/route", app.handleRoute)
	mux.HandleFunc("/graph", app.handleGraph)
	mux.HandleFunc("/graph/find", app.handleGraphFind)
	mux.HandleFunc("/graph/hierarchy/", app.handleGraphHierarchy)
	mux.HandleFunc("/graph/reload", func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
			return
		}
		if err := holder.ReloadFile(graphPath); err != nil {
			writeJSONError(w, http.StatusBadRequest, err.Error())
			return
		}
		hub.PublishJSON(map[string]any{"type": "graph_reloaded", "version": holder.Current().Version})
		writeJSON(w, graphSummary(holder.Current()))
	})
	mux.HandleFunc("/checkpoints", app.handleCheckpoints)
	mux.HandleFunc("/checkpoints/", app.handleCheckpointByID)
	mux.HandleFunc("/decisions", app.handleDecisions)
	mux.HandleFunc("/journal", app.handleJournal)

	var handler http.Handler = mux
	handler = bodyLimitMiddleware(models.DefaultMaxRequestBodyBytes, handler)
	if opts.Dev {
		handler = corsMiddleware(handler)
	}
	if opts.APIKey != "" {
		handler = apiKeyMiddleware(opts.APIKey, handler)
	}
	handler = requestLogMiddleware(handler)
	if opts.UseOtelHTTP {
		handler = otelhttp.NewHandler(handler, "workforce")
	}
	srv := &http.Server{
		Addr:              opts.Addr,
		Handler:           handler,
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	srv.RegisterOnShutdown(func() {
		_ = st.Close()
	})
	app.Server = srv
	return app, nil
}

func (a *App) handleDispatch(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body models.DispatchRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Instruction == "" {
		writeJSONError(w, http.StatusBadRequest, "instruction required")
		return
	}

	// Confirmation is a per-request grant, so the engine is copied with the
	// caller's answer rather than mutated in place.
	eng := *a.Engine
	if body.Confirm {
		eng.Confirm = func(risk.Profile) bool { return true }
	}
	resp, err := eng.Dispatch(r.Context(), pipeline.Request{
		Instruction: body.Instruction,
		TargetFiles: body.TargetFiles,
		TargetPath:  body.TargetPath,
		Intent:      router.Intent{Type: body.Intent.Type, Context: body.Intent.Context},
	})
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, toDispatchResponse(resp))
}

func (a *App) handleAnalyze(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body models.AnalyzeRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	if body.Instruction == "" {
		writeJSONError(w, http.StatusBadRequest, "instruction required")
		return
	}
	p := a.Engine.Assessor.Analyze(risk.Request{Instruction: body.Instruction, TargetFiles: body.TargetFiles})
	writeJSON(w, toRiskProfile(p))
}

func (a *App) handleValidate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body models.ValidateRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	var res guardrail.Result
	switch body.Level {
	case models.GuardrailReasoning:
		res = a.Engine.Guards.ValidateReasoning(body.Text)
	case models.GuardrailAction:
		res = a.Engine.Guards.ValidateAction(guardrail.Action{Type: body.Type, Target: body.Target, Payload: body.Payload})
	case models.GuardrailOutput:
		res = a.Engine.Guards.ValidateOutput(body.Text)
	default:
		writeJSONError(w, http.StatusBadRequest, "level must be reasoning, action, or output")
		return
	}
	writeJSON(w, models.GuardrailResult{Passed: res.Passed, Level: string(res.Level), Reason: res.Reason})
}

func (a *App) handleRoute(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	var body models.RouteRequest
	if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
		writeJSONError(w, http.StatusBadRequest, "invalid json")
		return
	}
	workers := router.Route(a.Graphs.Current(), router.Intent{Type: body.Intent.Type, Context: body.Intent.Context})
	out := models.RouteResponse{Workers: []models.Worker{}}
	for _, wk := range workers {
		out.Workers = append(out.Workers, toWorker(wk))
	}
	writeJSON(w, out)
}

func (a *App) handleGraph(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g := a.Graphs.Current()
	workers := []models.Worker{}
	teams := []map[string]any{}
	for _, n := range g.Nodes() {
		if n.Worker != nil {
			workers = append(workers, toWorker(*n.Worker))
		}
		if n.Team != nil {
			teams = append(teams, map[string]any{
				"id":      n.Team.ID,
				"purpose": n.Team.Purpose,
				"leader":  n.Team.LeaderID,
				"members": n.Team.MemberIDs,
			})
		}
	}
	writeJSON(w, map[string]any{
		"summary": graphSummary(g),
		"workers": workers,
		"teams":   teams,
	})
}

func (a *App) handleGraphFind(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	g := a.Graphs.Current()
	var found []graph.WorkerNode
	switch {
	case r.URL.Query().Get("domain") != "":
		found = g.FindByDomain(r.URL.Query().Get("domain"))
	case r.URL.Query().Get("capability") != "":
		found = g.FindByCapability(r.URL.Query().Get("capability"))
	default:
		writeJSONError(w, http.StatusBadRequest, "domain or capability query required")
		return
	}
	out := []models.Worker{}
	for _, wk := range found {
		out = append(out, toWorker(wk))
	}
	writeJSON(w, out)
}

func (a *App) handleGraphHierarchy(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/graph/hierarchy/")
	if id == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	chain := a.Graphs.Current().Hierarchy(id)
	if chain == nil {
		writeJSONError(w, http.StatusNotFound, "unknown node "+id)
		return
	}
	out := []map[string]string{}
	for _, n := range chain {
		out = append(out, map[string]string{"id": n.ID(), "kind": string(n.Kind())})
	}
	writeJSON(w, out)
}

func (a *App) handleCheckpoints(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	cps, err := a.Store.ListCheckpoints(r.Context(), queryLimit(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []models.Checkpoint{}
	for _, cp := range cps {
		out = append(out, toCheckpoint(cp))
	}
	writeJSON(w, out)
}

func (a *App) handleCheckpointByID(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	id := strings.TrimPrefix(r.URL.Path, "/checkpoints/")
	if id == "" {
		writeJSONError(w, http.StatusNotFound, "not found")
		return
	}
	cp, err := a.Store.GetCheckpoint(r.Context(), id)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if cp == nil {
		writeJSONError(w, http.StatusNotFound, "checkpoint not found")
		return
	}
	writeJSON(w, toCheckpoint(*cp))
}

func (a *App) handleDecisions(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	ds, err := a.Store.ListDecisions(r.Context(), queryLimit(r))
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	out := []models.Decision{}
	for _, d := range ds {
		out = append(out, models.Decision{
			DecisionID:    d.DecisionID,
			Instruction:   d.Instruction,
			State:         d.State,
			HaltReason:    d.HaltReason,
			RiskLevel:     d.RiskLevel,
			RiskScore:     d.RiskScore,
			RoutedWorkers: d.RoutedWorkers,
			CreatedAt:     d.CreatedAt,
		})
	}
	writeJSON(w, out)
}

// handleJournal serves the markdown decision journal as-is. ?limit= caps the
// response to that many bytes from the end of the file.
func (a *App) handleJournal(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeJSONError(w, http.StatusMethodNotAllowed, "method not allowed")
		return
	}
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, _ := fmt.Sscanf(l, "%d", &limit); n != 1 || limit < 0 {
			writeJSONError(w, http.StatusBadRequest, "invalid limit")
			return
		}
	}
	text, err := a.Engine.Journal.Read(r.Context(), limit)
	if err != nil {
		writeJSONError(w, http.StatusInternalServerError, err.Error())
		return
	}
	w.Header().Set("Content-Type", "text/markdown; charset=utf-8")
	_, _ = w.Write([]byte(text))
}

func queryLimit(r *http.Request) int {
	limit := 0
	if l := r.URL.Query().Get("limit"); l != "" {
		if n, _ := fmt.Sscanf(l, "%d", &limit); n != 1 || limit < 0 {
			limit = 0
		}
	}
	if limit == 0 || limit > models.DefaultListLimit {
		limit = models.DefaultListLimit
	}
	return limit
}

func graphSummary(g *graph.Graph) models.GraphSummary {
	s := models.GraphSummary{Version: g.Version, Nodes: len(g.Nodes()), Edges: len(g.Edges())}
	for _, n := range g.Nodes() {
		if n.Worker != nil {
			s.Workers++
		} else {
			s.Teams++
		}
	}
	return s
}

func toWorker(w graph.WorkerNode) models.Worker {
	return models.Worker{
		ID:           w.ID,
		Kind:         string(w.Kind),
		Domain:       w.Domain,
		Capabilities: w.Capabilities,
		SkillRef:     w.SkillRef,
	}
}

func toRiskProfile(p risk.Profile) models.RiskProfile {
	return models.RiskProfile{
		Level:                string(p.Level),
		Score:                p.Score,
		RequiresConfirmation: p.RequiresConfirmation,
		RequiresBackup:       p.RequiresBackup,
		Reasons:              p.Reasons,
	}
}

func toCheckpoint(cp store.Checkpoint) models.Checkpoint {
	return models.Checkpoint{
		ID:         cp.ID,
		CreatedAt:  cp.CreatedAt,
		TargetPath: cp.TargetPath,
		Files:      cp.Files,
		Success:    cp.Success,
	}
}

func toDispatchResponse(resp pipeline.Response) models.DispatchResponse {
	out := models.DispatchResponse{
		State:               string(resp.State),
		HaltReason:          resp.HaltReason,
		Risk:                toRiskProfile(resp.Risk),
		RoutedWorkers:       resp.RoutedWorkers,
		CheckpointID:        resp.CheckpointID,
		PendingConfirmation: resp.PendingConfirmation,
	}
	for _, g := range resp.Guardrails {
		out.Guardrails = append(out.Guardrails, models.GuardrailResult{
			Passed: g.Passed,
			Level:  string(g.Level),
			Reason: g.Reason,
		})
	}
	if resp.Executor != nil {
		out.Executor = &models.ExecutorResult{
			Success: resp.Executor.Success,
			Output:  resp.Executor.Output,
			Error:   resp.Executor.Err,
		}
	}
	return out
}

// responseRecorder captures status code for logging and forwards Flusher if supported.
type responseRecorder struct {
	http.ResponseWriter
	status int
}

func (r *responseRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (r *responseRecorder) Flush() {
	if f, ok := r.ResponseWriter.(http.Flusher); ok {
		f.Flush()
	}
}

func apiKeyMiddleware(apiKey string, next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		path := r.URL.Path
		if path == "/health" || path == "/metrics" {
			next.ServeHTTP(w, r)
			return
		}
		key := r.Header.Get("X-API-Key")
		if key == "" {
			key = r.URL.Query().Get("api_key")
		}
		if key != apiKey {
			writeJSONError(w, http.StatusUnauthorized, "invalid or missing API key")
			return
		}
		next.ServeHTTP(w, r)
	})
}

func requestLogMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, req *http.Request) {
		start := time.Now()
		rec := &responseRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, req)
		slog.Info("request",
			"method", req.Method,
			"path", req.URL.Path,
			"status", rec.status,
			"duration_ms", time.Since(start).Milliseconds())
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}

// writeJSONError sends a JSON body {"error": "message"} with the given status code.
func writeJSONError(w http.ResponseWriter, code int, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]any{"error": message})
}
