package server

import (
	"net/http"

	"github.com/gorilla/mux"

	"github.com/wxarchive/windprep/internal/types"
)

func (s *Server) handleStations(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, s.stations)
}

func (s *Server) handleRose(w http.ResponseWriter, r *http.Request) {
	res, ok := s.station(w, r)
	if !ok {
		return
	}
	roses := res.Roses
	// Optional period filter, e.g. ?period=m07 or ?period=all.
	if period := r.URL.Query().Get("period"); period != "" {
		filtered := make([]types.WindRose, 0, len(roses))
		for _, rose := range roses {
			if rose.PeriodKey == period {
				filtered = append(filtered, rose)
			}
		}
		roses = filtered
	}
	s.write(w, r, roses)
}

func (s *Server) handleSegments(w http.ResponseWriter, r *http.Request) {
	res, ok := s.station(w, r)
	if !ok {
		return
	}
	s.write(w, r, res.Segments)
}

func (s *Server) handleCalms(w http.ResponseWriter, r *http.Request) {
	res, ok := s.station(w, r)
	if !ok {
		return
	}
	s.write(w, r, res.Calms)
}

func (s *Server) handleCrosswinds(w http.ResponseWriter, r *http.Request) {
	res, ok := s.station(w, r)
	if !ok {
		return
	}
	s.write(w, r, res.Crosswinds)
}

func (s *Server) handleEnergy(w http.ResponseWriter, r *http.Request) {
	res, ok := s.station(w, r)
	if !ok {
		return
	}
	s.write(w, r, res.Energy)
}

func (s *Server) handleDiagnostics(w http.ResponseWriter, r *http.Request) {
	s.write(w, r, s.diagnostics)
}

func (s *Server) station(w http.ResponseWriter, r *http.Request) (*types.PipelineResult, bool) {
	id := mux.Vars(r)["id"]
	res, ok := s.byStation[id]
	if !ok {
		http.Error(w, "unknown station", http.StatusNotFound)
		return nil, false
	}
	return res, true
}

func (s *Server) write(w http.ResponseWriter, r *http.Request, data any) {
	if err := s.formatter.WriteResponse(w, r, data); err != nil {
		s.logger.Errorf("writing response: %v", err)
	}
}
