package server

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"github.com/KaramelBytes/skyscope/internal/dashboard"
	"github.com/KaramelBytes/skyscope/internal/dataset"
	"github.com/KaramelBytes/skyscope/internal/pipeline"
)

type errorBody struct {
	Error string `json:"error"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps pipeline errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, dashboard.ErrBadRequest):
		return http.StatusBadRequest
	case errors.Is(err, pipeline.ErrUnparsableHeight):
		return http.StatusUnprocessableEntity
	case errors.Is(err, dataset.ErrDataUnavailable):
		return http.StatusServiceUnavailable
	default:
		return http.StatusInternalServerError
	}
}

func (s *Server) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= 500 {
		s.log.Error("request failed", "status", status, "err", err)
	}
	writeJSON(w, status, errorBody{Error: err.Error()})
}

func (s *Server) handleCities(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"cities": pipeline.ListCities(ds)})
}

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseRequest(r)
	if err != nil {
		s.writeError(w, err)
		return
	}
	d, err := s.Dashboard(req)
	if err != nil {
		s.writeError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleSummary(w http.ResponseWriter, r *http.Request) {
	ds, _ := s.snapshot()
	writeJSON(w, http.StatusOK, pipeline.Summarize(ds, s.opt.SummaryTopN))
}

func (s *Server) handleReload(w http.ResponseWriter, r *http.Request) {
	if err := s.Reload(r.Context()); err != nil {
		s.writeError(w, err)
		return
	}
	ds, gen := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"dataset": ds.Name, "rows": ds.Len(), "generation": gen})
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	ds, gen := s.snapshot()
	writeJSON(w, http.StatusOK, map[string]any{"status": "ok", "rows": ds.Len(), "generation": gen})
}

// parseRequest reads city (repeatable), max_floors, min_year, view and color.
func (s *Server) parseRequest(r *http.Request) (dashboard.Request, error) {
	q := r.URL.Query()
	req := s.opt.Defaults
	req.Criteria.Cities = nil
	for _, c := range q["city"] {
		if c = strings.TrimSpace(c); c != "" {
			req.Criteria.Cities = append(req.Criteria.Cities, c)
		}
	}
	if v := q.Get("max_floors"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: max_floors must be an integer", dashboard.ErrBadRequest)
		}
		req.Criteria.MaxFloors = n
	}
	if v := q.Get("min_year"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return req, fmt.Errorf("%w: min_year must be an integer", dashboard.ErrBadRequest)
		}
		req.Criteria.MinYear = n
	}
	if v := q.Get("view"); v != "" {
		req.MapView = dashboard.MapMode(v)
	}
	if v := q.Get("color"); v != "" {
		req.BarColor = v
	}
	return req, nil
}
