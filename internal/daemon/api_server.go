package daemon

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"sheetlingo/internal/api"
	"sheetlingo/internal/config"
	"sheetlingo/internal/logging"
	"sheetlingo/internal/pipeline"
	"sheetlingo/internal/services"
	"sheetlingo/internal/store"
	"sheetlingo/internal/table"
)

// maxUploadBytes bounds POST /api/jobs bodies.
const maxUploadBytes = 64 << 20

type apiServer struct {
	bind   string
	logger *slog.Logger
	daemon *Daemon

	mu       sync.Mutex
	listener net.Listener
	server   *http.Server
}

func newAPIServer(cfg *config.Config, d *Daemon, logger *slog.Logger) *apiServer {
	bind := strings.TrimSpace(cfg.Paths.APIBind)
	if bind == "" {
		return nil
	}
	srv := &apiServer{
		bind:   bind,
		logger: logging.NewComponentLogger(logger, "api-server"),
		daemon: d,
	}
	srv.server = &http.Server{
		Handler:           srv.routes(strings.TrimSpace(cfg.Paths.APIToken)),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      60 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
	return srv
}

func (s *apiServer) routes(token string) http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/status", authMiddleware(token, s.handleStatus))
	mux.HandleFunc("POST /api/jobs", authMiddleware(token, s.handleSubmit))
	mux.HandleFunc("GET /api/jobs", authMiddleware(token, s.handleListJobs))
	mux.HandleFunc("GET /api/jobs/{id}", authMiddleware(token, s.handleJob))
	mux.HandleFunc("GET /api/jobs/{id}/artifacts/{name}", authMiddleware(token, s.handleArtifact))
	return requestIDMiddleware(mux)
}

// requestIDMiddleware stamps every request context with a correlation ID,
// reusing the caller's X-Request-ID when present.
func requestIDMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := strings.TrimSpace(r.Header.Get("X-Request-ID"))
		if id == "" {
			id = uuid.NewString()
		}
		w.Header().Set("X-Request-ID", id)
		next.ServeHTTP(w, r.WithContext(services.WithRequestID(r.Context(), id)))
	})
}

func (s *apiServer) start(ctx context.Context) error {
	if s == nil {
		return nil
	}
	listener, err := net.Listen("tcp", s.bind)
	if err != nil {
		return fmt.Errorf("api listen: %w", err)
	}
	s.mu.Lock()
	s.listener = listener
	s.mu.Unlock()

	go func() {
		if err := s.server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("api server error", logging.Error(err))
		}
	}()

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		_ = s.server.Shutdown(shutdownCtx)
	}()

	s.logger.Info("api server listening", logging.String("address", listener.Addr().String()))
	return nil
}

func (s *apiServer) stop() {
	if s == nil {
		return
	}
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	_ = s.server.Shutdown(shutdownCtx)

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener != nil {
		_ = s.listener.Close()
		s.listener = nil
	}
}

func (s *apiServer) address() string {
	if s == nil {
		return ""
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listener == nil {
		return ""
	}
	return s.listener.Addr().String()
}

func (s *apiServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	status := s.daemon.Status(r.Context())
	s.writeJSON(w, http.StatusOK, api.DaemonStatus{
		Running:      status.Running,
		PID:          status.PID,
		DatabasePath: status.DatabasePath,
		LockFilePath: status.LockFilePath,
		APIAddress:   status.APIAddress,
		Workflow:     api.FromStatusSummary(status.Workflow),
	})
}

func (s *apiServer) handleSubmit(w http.ResponseWriter, r *http.Request) {
	data, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxUploadBytes))
	if err != nil {
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			s.writeError(w, http.StatusRequestEntityTooLarge, "upload exceeds size limit", "")
			return
		}
		s.writeError(w, http.StatusBadRequest, "read upload: "+err.Error(), "")
		return
	}
	if len(data) == 0 {
		s.writeError(w, http.StatusBadRequest, "request body must contain the catalog file", services.Kind(services.ErrValidation))
		return
	}

	query := r.URL.Query()
	in := pipeline.Input{
		UserID:          query.Get("user"),
		FileName:        query.Get("filename"),
		MIMEType:        r.Header.Get("Content-Type"),
		Data:            data,
		SourceLanguage:  query.Get("from"),
		TargetLanguages: splitList(query["to"]),
		Tone:            query.Get("tone"),
		ProtectedTerms:  query["term"],
	}
	if format := strings.TrimSpace(query.Get("format")); format != "" {
		parsed, err := table.ParseFormat(format)
		if err != nil {
			s.writeError(w, http.StatusBadRequest, err.Error(), services.Kind(services.ErrValidation))
			return
		}
		in.Format = parsed
	}

	rec, err := s.daemon.Submit(r.Context(), in)
	switch {
	case err != nil && rec != nil:
		s.writeError(w, http.StatusUnprocessableEntity, err.Error(), services.Kind(err))
		return
	case err != nil:
		s.writeError(w, http.StatusInternalServerError, err.Error(), services.Kind(err))
		return
	}
	logging.WithContext(r.Context(), s.logger).Info("job submitted via api",
		logging.String(logging.FieldJobID, rec.ID),
		logging.String("source", rec.SourceName),
	)
	s.writeJSON(w, http.StatusAccepted, api.JobResponse{
		Job:       api.FromJob(rec),
		Errors:    []api.JobError{},
		Artifacts: []api.Artifact{},
	})
}

func (s *apiServer) handleListJobs(w http.ResponseWriter, r *http.Request) {
	var statuses []pipeline.Status
	for _, value := range splitList(r.URL.Query()["status"]) {
		statuses = append(statuses, pipeline.Status(strings.ToLower(value)))
	}
	jobs, err := s.daemon.store.ListJobs(r.Context(), statuses...)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobListResponse{Jobs: api.FromJobs(jobs)})
}

func (s *apiServer) handleJob(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	ctx := r.Context()
	jobErrors, err := s.daemon.store.JobErrors(ctx, job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	artifacts, err := s.daemon.store.JobArtifacts(ctx, job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	s.writeJSON(w, http.StatusOK, api.JobResponse{
		Job:       api.FromJob(job),
		Errors:    api.FromJobErrors(jobErrors),
		Artifacts: api.FromArtifacts(job.ID, artifacts),
	})
}

func (s *apiServer) handleArtifact(w http.ResponseWriter, r *http.Request) {
	job, ok := s.lookupJob(w, r)
	if !ok {
		return
	}
	artifacts, err := s.daemon.store.JobArtifacts(r.Context(), job.ID)
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	name := r.PathValue("name")
	var match *store.Artifact
	for i := range artifacts {
		if artifacts[i].Name == name {
			match = &artifacts[i]
			break
		}
	}
	if match == nil {
		s.writeError(w, http.StatusNotFound, "artifact not found", services.Kind(services.ErrNotFound))
		return
	}

	file, err := os.Open(match.Path)
	if err != nil {
		s.writeError(w, http.StatusGone, "artifact file unavailable", services.Kind(services.ErrNotFound))
		return
	}
	defer file.Close()
	info, err := file.Stat()
	if err != nil {
		s.writeError(w, http.StatusInternalServerError, err.Error(), "")
		return
	}
	w.Header().Set("Content-Type", job.Format.ContentType())
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", match.Name))
	http.ServeContent(w, r, match.Name, info.ModTime(), file)
}

func (s *apiServer) lookupJob(w http.ResponseWriter, r *http.Request) (*store.Job, bool) {
	job, err := s.daemon.store.FindJob(r.Context(), r.PathValue("id"))
	if err != nil {
		s.writeError(w, http.StatusBadRequest, err.Error(), "")
		return nil, false
	}
	if job == nil {
		s.writeError(w, http.StatusNotFound, "job not found", services.Kind(services.ErrNotFound))
		return nil, false
	}
	return job, true
}

func (s *apiServer) writeJSON(w http.ResponseWriter, status int, payload any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if payload == nil {
		return
	}
	if err := json.NewEncoder(w).Encode(payload); err != nil {
		s.logger.Error("failed to encode response", logging.Error(err))
	}
}

func (s *apiServer) writeError(w http.ResponseWriter, status int, message, kind string) {
	s.writeJSON(w, status, api.ErrorResponse{Error: message, Kind: kind})
}

// splitList flattens repeated and comma-separated query values.
func splitList(values []string) []string {
	var out []string
	for _, value := range values {
		for _, part := range strings.Split(value, ",") {
			if part = strings.TrimSpace(part); part != "" {
				out = append(out, part)
			}
		}
	}
	return out
}
