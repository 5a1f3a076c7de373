package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"

	"github.com/gorilla/mux"

	"github.com/laddvakt/laddvakt/core/vehicle"
)

type climateRequest struct {
	// Action is "start" or "stop".
	Action string `json:"action"`
}

func (s *Server) postClimate(w http.ResponseWriter, r *http.Request) {
	id := mux.Vars(r)["id"]
	v, ok := s.deps.Vehicles[id]
	if !ok {
		http.Error(w, fmt.Sprintf("unknown vehicle %q", id), http.StatusNotFound)
		return
	}

	var req climateRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		http.Error(w, "invalid climate body: "+err.Error(), http.StatusBadRequest)
		return
	}

	var err error
	switch req.Action {
	case "start":
		err = v.StartClimate(r.Context())
	case "stop":
		err = v.StopClimate(r.Context())
	default:
		http.Error(w, fmt.Sprintf("unknown climate action %q", req.Action), http.StatusBadRequest)
		return
	}

	switch {
	case errors.Is(err, vehicle.ErrUnsupported):
		http.Error(w, err.Error(), http.StatusNotImplemented)
	case err != nil:
		s.log.Errorf("climate %s for %s: %v", req.Action, id, err)
		http.Error(w, err.Error(), http.StatusBadGateway)
	default:
		s.log.Infof("climate %s requested for %s", req.Action, id)
		w.WriteHeader(http.StatusNoContent)
	}
}
