// Package api serves entity filters over HTTP.
package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/satishbabariya/celquery/internal/debug"
	filter "github.com/satishbabariya/celquery/internal/core/filter/domain"
	"github.com/satishbabariya/celquery/internal/service"
)

// APIPrefix is the path every entity route lives under.
const APIPrefix = "/api"

// FilterRequest is the POST body of a filter request.
type FilterRequest struct {
	Filter string `json:"filter"`
}

// ErrorResponse is the body of every non-2xx response.
type ErrorResponse struct {
	Status  int    `json:"status"`
	Message string `json:"message"`
	// Kind is the translation error kind, when there is one.
	Kind string `json:"kind,omitempty"`
}

// CountResponse is the body of a count request.
type CountResponse struct {
	Count int64 `json:"count"`
}

// Server exposes the registered entity services.
type Server struct {
	services *service.Registry
	metrics  http.Handler
}

// NewServer creates a server. metrics may be nil to omit /metrics.
func NewServer(services *service.Registry, metrics http.Handler) *Server {
	return &Server{services: services, metrics: metrics}
}

// Register attaches handlers to the given mux.
func (s *Server) Register(mux *http.ServeMux) {
	mux.HandleFunc("GET "+APIPrefix+"/{entity}", s.handleList)
	mux.HandleFunc("POST "+APIPrefix+"/{entity}", s.handleFilter)
	mux.HandleFunc("GET "+APIPrefix+"/{entity}/count", s.handleCount)
	mux.HandleFunc("GET "+APIPrefix+"/{entity}/{id}", s.handleGet)

	if s.metrics != nil {
		mux.Handle("GET /metrics", s.metrics)
	}
}

// Handler returns the routes wrapped in request id and access log middleware.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.Register(mux)
	return requestIDMiddleware(accessLogMiddleware(mux))
}

func (s *Server) handleList(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	opts, err := queryOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	expr := r.URL.Query().Get("filter")
	debug.FromContext(r.Context()).Info("list", "entity", svc.Name(), "filter", expr)

	var rows []map[string]any
	if strings.TrimSpace(expr) == "" {
		rows, err = svc.FindAll(r.Context(), opts...)
	} else {
		rows, err = svc.Filter(r.Context(), expr, opts...)
	}
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleFilter(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}
	opts, err := queryOptions(r)
	if err != nil {
		writeError(w, err)
		return
	}

	var req FilterRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: "Error processing request: invalid JSON body",
		})
		return
	}
	if strings.TrimSpace(req.Filter) == "" {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{Status: http.StatusBadRequest, Message: "Filter cannot be empty"})
		return
	}

	rows, err := svc.Filter(r.Context(), req.Filter, opts...)
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, rows)
}

func (s *Server) handleCount(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}

	n, err := svc.Count(r.Context(), r.URL.Query().Get("filter"))
	if err != nil {
		writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, CountResponse{Count: n})
}

func (s *Server) handleGet(w http.ResponseWriter, r *http.Request) {
	svc, ok := s.service(w, r)
	if !ok {
		return
	}

	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, ErrorResponse{
			Status:  http.StatusBadRequest,
			Message: fmt.Sprintf("Error processing request: invalid id %q", r.PathValue("id")),
		})
		return
	}

	row, found, err := svc.FindByID(r.Context(), id)
	if err != nil {
		writeError(w, err)
		return
	}
	if !found {
		writeJSON(w, http.StatusNotFound, ErrorResponse{
			Status:  http.StatusNotFound,
			Message: fmt.Sprintf("%s %d not found", svc.Name(), id),
		})
		return
	}
	writeJSON(w, http.StatusOK, row)
}

func (s *Server) service(w http.ResponseWriter, r *http.Request) (*service.EntityService, bool) {
	svc, err := s.services.Get(r.PathValue("entity"))
	if err != nil {
		writeError(w, err)
		return nil, false
	}
	return svc, true
}

// queryOptions reads order (repeatable, "field[:desc]"), take and skip.
func queryOptions(r *http.Request) ([]service.QueryOption, error) {
	q := r.URL.Query()

	var opts []service.QueryOption
	for _, order := range q["order"] {
		opt, err := service.ParseOrder(order)
		if err != nil {
			return nil, err
		}
		opts = append(opts, opt)
	}

	for _, p := range []struct {
		name string
		opt  func(int) service.QueryOption
	}{
		{"take", service.WithTake},
		{"skip", service.WithSkip},
	} {
		raw := q.Get(p.name)
		if raw == "" {
			continue
		}
		n, err := strconv.Atoi(raw)
		if err != nil {
			return nil, fmt.Errorf("%w: %s must be an integer", service.ErrInvalidOption, p.name)
		}
		opts = append(opts, p.opt(n))
	}
	return opts, nil
}

// statusOf maps service errors to HTTP statuses. Caller mistakes are 400,
// schema problems and database failures are 500.
func statusOf(err error) int {
	switch {
	case errors.Is(err, service.ErrUnknownEntity),
		errors.Is(err, service.ErrEmptyFilter),
		errors.Is(err, service.ErrInvalidOption),
		filter.IsClientError(err):
		return http.StatusBadRequest
	}
	return http.StatusInternalServerError
}

func writeError(w http.ResponseWriter, err error) {
	resp := ErrorResponse{
		Status:  statusOf(err),
		Message: "Error processing request: " + err.Error(),
	}
	if kind, ok := filter.KindOf(err); ok {
		resp.Kind = string(kind)
	}
	writeJSON(w, resp.Status, resp)
}

// writeJSON writes data as JSON with proper headers.
func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	enc := json.NewEncoder(w)
	enc.SetEscapeHTML(false)
	_ = enc.Encode(v)
}
