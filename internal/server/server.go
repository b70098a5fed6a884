// Package server exposes a read-only HTTP API over a pipeline artifact bundle,
// shaped for the interactive front end: precomputed wind roses, segments and
// diagnostics, never recomputation.
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/wxarchive/windprep/internal/artifact"
	"github.com/wxarchive/windprep/internal/types"
	"github.com/wxarchive/windprep/pkg/responseformat"
)

// Server serves one artifact bundle, loaded at startup.
type Server struct {
	addr      string
	logger    *zap.SugaredLogger
	formatter *responseformat.Formatter

	byStation   map[string]*types.PipelineResult
	stations    []types.Station
	diagnostics []types.StationDiagnostics
}

// New builds a server over a loaded artifact.
func New(addr string, data *artifact.Data, logger *zap.SugaredLogger) *Server {
	s := &Server{
		addr:        addr,
		logger:      logger,
		formatter:   responseformat.NewFormatter(),
		byStation:   make(map[string]*types.PipelineResult, len(data.Results)),
		diagnostics: data.Diagnostics,
	}
	for i := range data.Results {
		res := &data.Results[i]
		s.byStation[res.StationID] = res
		s.stations = append(s.stations, res.Station)
	}
	return s
}

// Router returns the HTTP routes.
func (s *Server) Router() *mux.Router {
	router := mux.NewRouter()
	api := router.PathPrefix("/api").Subrouter()
	api.HandleFunc("/stations", s.handleStations).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/rose", s.handleRose).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/segments", s.handleSegments).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/calms", s.handleCalms).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/crosswinds", s.handleCrosswinds).Methods(http.MethodGet)
	api.HandleFunc("/stations/{id}/energy", s.handleEnergy).Methods(http.MethodGet)
	api.HandleFunc("/diagnostics", s.handleDiagnostics).Methods(http.MethodGet)
	return router
}

// ListenAndServe blocks until ctx is cancelled, then shuts down gracefully.
func (s *Server) ListenAndServe(ctx context.Context) error {
	srv := &http.Server{
		Addr:         s.addr,
		Handler:      s.Router(),
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Infof("artifact server listening on %s", s.addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	}
}
