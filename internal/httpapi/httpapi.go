// Package httpapi is the thin JSON HTTP surface (spec §6), wrapping
// Producer and StatusAPI. Grounded on the teacher's router package
// (internal/router/router.go, internal/router/api/tasks.go): a stdlib
// http.ServeMux with Go 1.22's method+path patterns and
// request.PathValue, and the same fireOkResp/fireErrResp response-
// envelope shape (internal/router/helper.go), generalized into request-
// scoped methods on a Server instead of a Repo embedding a validator.
//
// No third-party router is wired here: none of the example pack's
// router libraries (chi, gin, httprouter, ...) appear anywhere in the
// teacher's own go.mod, which reaches for net/http.ServeMux directly —
// the teacher's own idiom already covers this surface, so this stays
// the one place that follows it rather than reaching into the rest of
// the pack.
package httpapi

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/ChiaYuChang/hydrosearch/internal/broker"
	"github.com/ChiaYuChang/hydrosearch/internal/producer"
	"github.com/ChiaYuChang/hydrosearch/internal/statusapi"
	"github.com/ChiaYuChang/hydrosearch/internal/taskstore"
	ec "github.com/ChiaYuChang/hydrosearch/pkgs/errors"
	"github.com/google/uuid"
	"github.com/rs/zerolog"
)

const requestTimeout = 10 * time.Second

// Server wires Producer and StatusAPI into handlers (spec §6).
type Server struct {
	Producer *producer.Producer
	Status   *statusapi.StatusAPI
	Store    *taskstore.Store
	Broker   *broker.Broker
	Logger   zerolog.Logger
}

func New(p *producer.Producer, s *statusapi.StatusAPI, store *taskstore.Store, br *broker.Broker, logger zerolog.Logger) *Server {
	return &Server{Producer: p, Status: s, Store: store, Broker: br, Logger: logger}
}

// NewRouter builds the six-endpoint mux (spec §6 table).
func (s *Server) NewRouter() *http.ServeMux {
	mux := http.NewServeMux()
	mux.HandleFunc("POST /api/", s.handleCreate)
	mux.HandleFunc("POST /api/batch", s.handleCreateBatch)
	mux.HandleFunc("GET /api/task/{id}", s.handleGetTask)
	mux.HandleFunc("POST /api/task/{id}/cancel", s.handleCancel)
	mux.HandleFunc("GET /api/download/{id}", s.handleDownload)
	mux.HandleFunc("GET /api/health", s.handleHealth)
	return mux
}

type createRequest struct {
	Query    string         `json:"query"`
	Text     string         `json:"text"`
	Priority *int           `json:"priority,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

type createResponse struct {
	TaskID string `json:"task_id"`
	Status string `json:"status"`
	Type   string `json:"type,omitempty"`
}

func (s *Server) handleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, ec.ErrBadRequest.Clone().WithDetails("malformed JSON body").Warp(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := s.Producer.Admit(ctx, req.Query, priorityOrDefault(req.Priority), req.Metadata)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.writeOK(w, r, createResponse{TaskID: task.ID.String(), Status: string(task.Status)})
}

type batchRequest struct {
	Text     string         `json:"text"`
	Priority *int           `json:"priority,omitempty"`
	Metadata map[string]any `json:"metadata,omitempty"`
}

func (s *Server) handleCreateBatch(w http.ResponseWriter, r *http.Request) {
	var req batchRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		s.writeErr(w, r, ec.ErrBadRequest.Clone().WithDetails("malformed JSON body").Warp(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := s.Producer.AdmitBatch(ctx, req.Text, priorityOrDefault(req.Priority), req.Metadata)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.writeOK(w, r, createResponse{TaskID: task.ID.String(), Status: string(task.Status), Type: "batch"})
}

type taskResponse struct {
	TaskID     string `json:"task_id"`
	Status     string `json:"status"`
	Result     any    `json:"result,omitempty"`
	AgeSeconds int64  `json:"age_seconds,omitempty"`
	Kind       string `json:"kind,omitempty"`
	Message    string `json:"message,omitempty"`
}

func (s *Server) handleGetTask(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, ec.ErrBadRequest.Clone().WithDetails("invalid task id").Warp(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	got, err := s.Status.Get(ctx, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.writeOK(w, r, taskResponse{
		TaskID:     got.Task.ID.String(),
		Status:     string(got.Task.Status),
		Result:     got.Task.Result,
		AgeSeconds: got.AgeSeconds,
		Kind:       string(got.Task.ErrorKind),
		Message:    got.Task.ErrorMsg,
	})
}

func (s *Server) handleCancel(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, ec.ErrBadRequest.Clone().WithDetails("invalid task id").Warp(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	task, err := s.Status.Cancel(ctx, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	s.writeOK(w, r, taskResponse{TaskID: task.ID.String(), Status: string(task.Status)})
}

func (s *Server) handleDownload(w http.ResponseWriter, r *http.Request) {
	id, err := uuid.Parse(r.PathValue("id"))
	if err != nil {
		s.writeErr(w, r, ec.ErrBadRequest.Clone().WithDetails("invalid task id").Warp(err))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	data, err := s.Status.Download(ctx, id)
	if err != nil {
		s.writeErr(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", `attachment; filename="`+id.String()+`.csv"`)
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(data)
}

type healthResponse struct {
	Status   string            `json:"status"`
	Services map[string]string `json:"services"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), requestTimeout)
	defer cancel()

	cache := s.Store.Health(ctx)
	brokerStatus := "healthy"
	if s.Broker == nil || !s.Broker.Connected() {
		brokerStatus = "unhealthy"
	}

	status := "healthy"
	if cache.Status != "healthy" || brokerStatus != "healthy" {
		status = "degraded"
	}

	s.writeOK(w, r, healthResponse{
		Status: status,
		Services: map[string]string{
			"cache":  cache.Status,
			"broker": brokerStatus,
		},
	})
}

func priorityOrDefault(p *int) int {
	if p == nil {
		return 0
	}
	return *p
}

// writeOK and writeErr mirror the teacher's fireOkResp/fireErrResp
// (internal/router/helper.go): a single structured log line plus a JSON
// body, the error path additionally carrying the Error's HTTP status.
func (s *Server) writeOK(w http.ResponseWriter, r *http.Request, data any) {
	body, err := json.Marshal(data)
	if err != nil {
		s.writeErr(w, r, ec.ErrInternalServerError.Clone().WithDetails("failed to marshal response").Warp(err))
		return
	}

	s.Logger.Info().
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Int("http_status_code", http.StatusOK).
		Msg("request handled")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(body)
}

func (s *Server) writeErr(w http.ResponseWriter, r *http.Request, err error) {
	e, ok := err.(*ec.Error)
	if !ok {
		e = ec.ErrInternalServerError.Clone().Warp(err)
	}

	s.Logger.Error().
		Str("path", r.URL.Path).
		Str("method", r.Method).
		Int("http_status_code", e.HttpStatusCode).
		Strs("details", e.Details).
		Err(e.Unwrap()).
		Msg("request failed")

	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(e.HttpStatusCode)
	_ = e.MarshalAndWriteTo(w)
}
