// ABOUTME: REST JSON server over the pipeline service
// ABOUTME: Serves CRUD, lifecycle operations, reports, /metrics and /healthz on localhost:8080
package web

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/harperreed/funnel/crm"
	"github.com/harperreed/funnel/importer"
	"github.com/harperreed/funnel/models"
	"github.com/harperreed/funnel/viz"
)

const maxBodyBytes = 1 << 20

type Server struct {
	svc      *crm.Service
	logger   *slog.Logger
	gatherer prometheus.Gatherer
	mux      *http.ServeMux
}

// NewServer wires the routes. gatherer backs /metrics; nil uses the default
// registry.
func NewServer(svc *crm.Service, logger *slog.Logger, gatherer prometheus.Gatherer) *Server {
	if logger == nil {
		logger = slog.Default()
	}
	if gatherer == nil {
		gatherer = prometheus.DefaultGatherer
	}
	s := &Server{svc: svc, logger: logger, gatherer: gatherer, mux: http.NewServeMux()}
	s.routes()
	return s
}

func (s *Server) routes() {
	m := s.mux
	m.HandleFunc("GET /{$}", s.handleDashboard)
	m.HandleFunc("GET /healthz", s.handleHealth)
	m.Handle("GET /metrics", promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{}))

	m.HandleFunc("GET /contacts", s.handleListContacts)
	m.HandleFunc("POST /contacts", s.handleCreateContact)
	m.HandleFunc("GET /contacts/{id}", s.handleGetContact)
	m.HandleFunc("PATCH /contacts/{id}", s.handleUpdateContact)
	m.HandleFunc("PUT /contacts/{id}", s.handleUpdateContact)
	m.HandleFunc("DELETE /contacts/{id}", s.handleDeleteContact)
	m.HandleFunc("PUT /contacts/{id}/stage", s.handleUpdateStage)
	m.HandleFunc("POST /contacts/{id}/activities", s.handleAddActivity)
	m.HandleFunc("GET /contacts/{id}/tasks", s.handleListTasks)
	m.HandleFunc("POST /contacts/{id}/tasks", s.handleAddTask)
	m.HandleFunc("POST /contacts/{id}/tasks/{taskID}/complete", s.handleCompleteTask)

	m.HandleFunc("GET /leads", s.handleListLeads)
	m.HandleFunc("POST /leads", s.handleCreateLead)
	m.HandleFunc("POST /leads/import", s.handleImportLeads)
	m.HandleFunc("GET /leads/{id}", s.handleGetLead)
	m.HandleFunc("PATCH /leads/{id}", s.handleUpdateLead)
	m.HandleFunc("PUT /leads/{id}", s.handleUpdateLead)
	m.HandleFunc("DELETE /leads/{id}", s.handleDeleteLead)
	m.HandleFunc("POST /leads/{id}/convert", s.handleConvertLead)

	m.HandleFunc("GET /campaigns", s.handleListCampaigns)
	m.HandleFunc("POST /campaigns", s.handleCreateCampaign)
	m.HandleFunc("GET /campaigns/{id}", s.handleGetCampaign)
	m.HandleFunc("PATCH /campaigns/{id}", s.handleUpdateCampaign)
	m.HandleFunc("PUT /campaigns/{id}", s.handleUpdateCampaign)
	m.HandleFunc("DELETE /campaigns/{id}", s.handleDeleteCampaign)
	m.HandleFunc("POST /campaigns/{id}/send", s.handleSendCampaign)

	m.HandleFunc("GET /documents", s.handleListDocuments)
	m.HandleFunc("POST /documents", s.handleAddDocument)
	m.HandleFunc("DELETE /documents/{id}", s.handleDeleteDocument)

	m.HandleFunc("GET /reports/summary", s.handleSummary)
	m.HandleFunc("GET /reports/conversion", s.handleConversion)
	m.HandleFunc("GET /reports/stages", s.handleStages)
	m.HandleFunc("GET /graphs/stages", s.handleStageGraph)
}

// Handler returns the routes wrapped in the standard middleware.
func (s *Server) Handler() http.Handler {
	return Chain(s.mux, RequestID(), AccessLog(s.logger), RecoverPanic(s.logger))
}

// Start serves on addr until ctx is cancelled, then shuts down gracefully.
func (s *Server) Start(ctx context.Context, addr string) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting web server", "addr", "http://"+addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	}
}

// statusFor maps service errors onto HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, models.ErrNotPermitted):
		return http.StatusForbidden
	case errors.Is(err, models.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, models.ErrAlreadyConverted),
		errors.Is(err, models.ErrAlreadyCompleted),
		errors.Is(err, crm.ErrDuplicateLead):
		return http.StatusConflict
	case errors.Is(err, models.ErrInvalidTransition):
		return http.StatusUnprocessableEntity
	case errors.Is(err, models.ErrValidation), errors.Is(err, errBadRequest):
		return http.StatusBadRequest
	default:
		return http.StatusInternalServerError
	}
}

var errBadRequest = errors.New("bad request")

func writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(payload)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}

func (s *Server) fail(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	if status == http.StatusInternalServerError {
		s.logger.Error("request failed", "path", r.URL.Path, "request_id", RequestIDFrom(r.Context()), "error", err)
	}
	writeError(w, status, err.Error())
}

func decode(r *http.Request, v any) error {
	dec := json.NewDecoder(io.LimitReader(r.Body, maxBodyBytes))
	dec.DisallowUnknownFields()
	if err := dec.Decode(v); err != nil {
		return fmt.Errorf("%w: invalid JSON body: %v", errBadRequest, err)
	}
	return nil
}

func pathID(r *http.Request, name string) (int, error) {
	id, err := strconv.Atoi(r.PathValue(name))
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("%w: invalid %s %q", errBadRequest, name, r.PathValue(name))
	}
	return id, nil
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	stats := viz.GenerateDashboardStats(r.Context(), s.svc, time.Now())
	w.Header().Set("Content-Type", "text/plain; charset=utf-8")
	_, _ = io.WriteString(w, viz.RenderDashboard(stats))
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	body := map[string]any{"status": "ok", "degraded": s.svc.Degraded(), "role": s.svc.Role()}
	if err := s.svc.LastFlushError(); err != nil {
		body["last_flush_error"] = err.Error()
	}
	writeJSON(w, http.StatusOK, body)
}

// Contacts

func (s *Server) handleListContacts(w http.ResponseWriter, r *http.Request) {
	contacts := s.svc.FindContacts(r.Context(), r.URL.Query().Get("q"))
	if stage := r.URL.Query().Get("stage"); stage != "" {
		want, err := models.ParseStage(stage)
		if err != nil {
			s.fail(w, r, err)
			return
		}
		filtered := []*models.Contact{}
		for _, c := range contacts {
			if st, err := models.ParseStage(string(c.SalesStage)); err == nil && st == want {
				filtered = append(filtered, c)
			}
		}
		contacts = filtered
	}
	writeJSON(w, http.StatusOK, contacts)
}

func (s *Server) handleCreateContact(w http.ResponseWriter, r *http.Request) {
	var in models.ContactInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.CreateContact(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.GetContact(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch crm.ContactPatch
	if err := decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.UpdateContact(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteContact(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteContact(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleUpdateStage(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var body struct {
		Stage string `json:"stage"`
	}
	if err := decode(r, &body); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.UpdateStage(r.Context(), id, body.Stage)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleAddActivity(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in models.ActivityInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	a, err := s.svc.AddActivity(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, a)
}

func (s *Server) handleListTasks(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	tasks, err := s.svc.PendingTasks(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, tasks)
}

func (s *Server) handleAddTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in models.TaskInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.AddTask(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, t)
}

func (s *Server) handleCompleteTask(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	taskID, err := pathID(r, "taskID")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	t, err := s.svc.CompleteTask(r.Context(), id, taskID)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

// Leads

func (s *Server) handleListLeads(w http.ResponseWriter, r *http.Request) {
	all, _ := strconv.ParseBool(r.URL.Query().Get("all"))
	writeJSON(w, http.StatusOK, s.svc.ListLeads(r.Context(), crm.LeadFilter{IncludeConverted: all}))
}

func (s *Server) handleCreateLead(w http.ResponseWriter, r *http.Request) {
	var in models.LeadInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.svc.CreateLead(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, l)
}

// handleImportLeads accepts external records as JSON, or YAML when the
// Content-Type says so.
func (s *Server) handleImportLeads(w http.ResponseWriter, r *http.Request) {
	format := "json"
	if strings.Contains(r.Header.Get("Content-Type"), "yaml") {
		format = "yaml"
	}
	records, err := importer.Decode(io.LimitReader(r.Body, maxBodyBytes), format)
	if err != nil {
		s.fail(w, r, fmt.Errorf("%w: %v", errBadRequest, err))
		return
	}
	inputs := make([]models.LeadInput, len(records))
	for i, rec := range records {
		inputs[i] = rec.LeadInput()
	}
	res, err := s.svc.ImportLeads(r.Context(), inputs)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}

func (s *Server) handleGetLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.svc.GetLead(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleUpdateLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch crm.LeadPatch
	if err := decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	l, err := s.svc.UpdateLead(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, l)
}

func (s *Server) handleDeleteLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteLead(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleConvertLead(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var in crm.ConvertInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.ConvertLead(r.Context(), id, in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

// Campaigns

func (s *Server) handleListCampaigns(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListCampaigns(r.Context()))
}

func (s *Server) handleCreateCampaign(w http.ResponseWriter, r *http.Request) {
	var in models.CampaignInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.CreateCampaign(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, c)
}

func (s *Server) handleGetCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.GetCampaign(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleUpdateCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	var patch crm.CampaignPatch
	if err := decode(r, &patch); err != nil {
		s.fail(w, r, err)
		return
	}
	c, err := s.svc.UpdateCampaign(r.Context(), id, patch)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleDeleteCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteCampaign(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleSendCampaign(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	res, err := s.svc.SendCampaign(r.Context(), id)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if res.Recipients == nil {
		res.Recipients = []int{}
	}
	writeJSON(w, http.StatusOK, res)
}

// Documents

func (s *Server) handleListDocuments(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ListDocuments(r.Context()))
}

func (s *Server) handleAddDocument(w http.ResponseWriter, r *http.Request) {
	var in models.DocumentInput
	if err := decode(r, &in); err != nil {
		s.fail(w, r, err)
		return
	}
	d, err := s.svc.AddDocument(r.Context(), in)
	if err != nil {
		s.fail(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, d)
}

func (s *Server) handleDeleteDocument(w http.ResponseWriter, r *http.Request) {
	id, err := pathID(r, "id")
	if err != nil {
		s.fail(w, r, err)
		return
	}
	if err := s.svc.DeleteDocument(r.Context(), id); err != nil {
		s.fail(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// Reports

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.Summary(r.Context()))
}

func (s *Server) handleConversion(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.ConversionReport(r.Context()))
}

func (s *Server) handleStages(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.svc.StageReport(r.Context()))
}

func (s *Server) handleStageGraph(w http.ResponseWriter, r *http.Request) {
	dot, err := viz.NewGraphGenerator(s.svc).GenerateStageGraph(r.Context())
	if err != nil {
		s.fail(w, r, err)
		return
	}
	w.Header().Set("Content-Type", "text/vnd.graphviz; charset=utf-8")
	_, _ = io.WriteString(w, dot)
}
