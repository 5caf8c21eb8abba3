package api

import (
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/kbruxvoort/file-renamer/internal/config"
	"github.com/kbruxvoort/file-renamer/internal/logging"
	"github.com/kbruxvoort/file-renamer/internal/media"
	"github.com/kbruxvoort/file-renamer/internal/scanner"
	"github.com/kbruxvoort/file-renamer/internal/service"
	"github.com/kbruxvoort/file-renamer/internal/undo"
)

const maxBodyBytes = 1 << 20

type ScanRequest struct {
	Path      string   `json:"path"`
	Paths     []string `json:"paths"`
	MinSizeMB *float64 `json:"min_size_mb"`
}

type ScanResponse struct {
	Results []scanner.Result `json:"results"`
}

type ExecuteRequest struct {
	Files []service.ExecuteItem `json:"files"`
}

type ConfigUpdate struct {
	Key   string `json:"key"`
	Value string `json:"value"`
}

type PreviewRequest struct {
	Path      string           `json:"original_path"`
	Candidate *media.Candidate `json:"selected_candidate"`
}

type PreviewResponse struct {
	ProposedPath string `json:"proposed_path"`
}

type SearchResponse struct {
	Candidates []media.Candidate `json:"candidates"`
}

type HistoryResponse struct {
	Batches []undo.Batch `json:"batches"`
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current().Health())
}

func (s *Server) handleGetConfig(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, s.current().Config().Redacted())
}

func (s *Server) handleSetConfig(w http.ResponseWriter, r *http.Request) {
	if s.configPath == "" {
		writeError(w, http.StatusNotImplemented, "config updates are disabled")
		return
	}

	var req ConfigUpdate
	if !decodeBody(w, r, &req) {
		return
	}
	if strings.TrimSpace(req.Key) == "" {
		writeError(w, http.StatusBadRequest, "key is required")
		return
	}

	cfg, err := config.Set(s.configPath, req.Key, req.Value)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	if s.reload != nil {
		backend, err := s.reload(cfg)
		if err != nil {
			s.logger.Error("api", "Failed to apply new config", err, logging.F("key", req.Key))
			writeError(w, http.StatusInternalServerError, err.Error())
			return
		}
		s.swap(backend)
	}
	s.logger.Info("api", "Config updated", logging.F("key", req.Key))
	writeJSON(w, http.StatusOK, cfg.Redacted())
}

func (s *Server) handleScan(w http.ResponseWriter, r *http.Request) {
	var req ScanRequest
	if !decodeBody(w, r, &req) {
		return
	}

	roots := req.Paths
	if req.Path != "" {
		roots = append([]string{req.Path}, roots...)
	}
	minSize := -1.0
	if req.MinSizeMB != nil {
		if *req.MinSizeMB < 0 {
			writeError(w, http.StatusBadRequest, "min_size_mb must not be negative")
			return
		}
		minSize = *req.MinSizeMB
	}

	results, err := s.current().Scan(r.Context(), roots, minSize)
	if err != nil {
		if errors.Is(err, service.ErrNoSource) || errors.Is(err, service.ErrPathNotFound) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if results == nil {
		results = []scanner.Result{}
	}
	writeJSON(w, http.StatusOK, ScanResponse{Results: results})
}

func (s *Server) handleExecute(w http.ResponseWriter, r *http.Request) {
	var req ExecuteRequest
	if !decodeBody(w, r, &req) {
		return
	}
	if len(req.Files) == 0 {
		writeError(w, http.StatusBadRequest, "files must not be empty")
		return
	}
	for _, f := range req.Files {
		if strings.TrimSpace(f.Path) == "" {
			writeError(w, http.StatusBadRequest, "original_path is required for every file")
			return
		}
	}

	report, err := s.current().Execute(r.Context(), req.Files)
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleUndo(w http.ResponseWriter, r *http.Request) {
	report, err := s.current().Undo(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleHistory(w http.ResponseWriter, r *http.Request) {
	batches, err := s.current().History()
	if err != nil {
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, HistoryResponse{Batches: batches})
}

func (s *Server) handleSearch(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	query := q.Get("q")
	if query == "" {
		query = q.Get("query")
	}

	year := 0
	if raw := q.Get("year"); raw != "" {
		y, err := strconv.Atoi(raw)
		if err != nil {
			writeError(w, http.StatusBadRequest, "year must be a number")
			return
		}
		year = y
	}

	candidates, err := s.current().Search(r.Context(), query, media.ParseType(q.Get("type")), year)
	if err != nil {
		if errors.Is(err, service.ErrEmptyQuery) || errors.Is(err, service.ErrUnknownType) {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}
	if candidates == nil {
		candidates = []media.Candidate{}
	}
	writeJSON(w, http.StatusOK, SearchResponse{Candidates: candidates})
}

func (s *Server) handlePreview(w http.ResponseWriter, r *http.Request) {
	var req PreviewRequest
	if !decodeBody(w, r, &req) {
		return
	}
	proposed, err := s.current().Preview(req.Path, req.Candidate)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, PreviewResponse{ProposedPath: proposed})
}

func decodeBody(w http.ResponseWriter, r *http.Request, v interface{}) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		writeError(w, http.StatusBadRequest, "invalid JSON body: "+err.Error())
		return false
	}
	return true
}

func writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, map[string]string{"error": message})
}
