package httpengine

import (
	"encoding/json"
	"net/http"

	"github.com/banshee-data/broadside/internal/engine/slots"
	"github.com/banshee-data/broadside/internal/httputil"
	"github.com/banshee-data/broadside/internal/tuning"
)

// Handler serves eng over the REST protocol Client speaks. Engine failures
// are 502 replies with a JSON error body.
func Handler(eng tuning.Engine) http.Handler {
	h := &handler{eng: eng}
	mux := http.NewServeMux()
	mux.HandleFunc("/weights", h.handleWeights)
	mux.HandleFunc("/tournament", h.handleTournament)
	mux.HandleFunc("/tournament/tick", h.handleTick)
	return mux
}

type handler struct {
	eng tuning.Engine
}

func (h *handler) engineError(w http.ResponseWriter, err error) {
	httputil.WriteJSONError(w, http.StatusBadGateway, err.Error())
}

func (h *handler) handleWeights(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		cur, err := h.eng.CurrentWeights(r.Context())
		if err != nil {
			h.engineError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, WeightsBody{Weights: slots.PackSlice(cur)})
	case http.MethodPut:
		var body WeightsBody
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReplyBytes)).Decode(&body); err != nil {
			httputil.BadRequest(w, "invalid request: "+err.Error())
			return
		}
		next, err := slots.UnpackSlice(body.Weights)
		if err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		if err := h.eng.ConfigureWeights(r.Context(), next); err != nil {
			h.engineError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (h *handler) handleTournament(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		done, err := h.eng.IsComplete(r.Context())
		if err != nil {
			h.engineError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, StatusReply{Complete: done})
	case http.MethodPost:
		var req TournamentRequest
		if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxReplyBytes)).Decode(&req); err != nil {
			httputil.BadRequest(w, "invalid request: "+err.Error())
			return
		}
		if err := h.eng.StartTournament(r.Context(), req.Players, req.Games); err != nil {
			h.engineError(w, err)
			return
		}
		httputil.WriteJSON(w, http.StatusOK, map[string]string{"status": "started"})
	default:
		httputil.MethodNotAllowed(w)
	}
}

func (h *handler) handleTick(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w)
		return
	}
	msg, err := h.eng.Tick(r.Context())
	if err != nil {
		h.engineError(w, err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, TickReply{Message: msg})
}
