package httpapi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"

	"github.com/flighthook/flighthook/internal/bus"
	"github.com/flighthook/flighthook/internal/config"
	"github.com/flighthook/flighthook/internal/shot"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, map[string]string{"error": msg})
}

// statusResponse is the GET /api/status wire shape.
type statusResponse struct {
	Mode   string                 `json:"mode,omitempty"`
	Actors map[string]actorStatus `json:"actors"`
}

func (s *Server) handleStatus(w http.ResponseWriter, r *http.Request) {
	_, resolved := s.system.Snapshot()

	s.mu.RLock()
	actors := make(map[string]actorStatus, len(resolved.Actors))
	for _, spec := range resolved.Actors {
		st, ok := s.statuses[spec.GlobalID]
		if !ok {
			st = actorStatus{Status: string(bus.StatusStarting)}
		}
		st.Name = spec.Name
		actors[spec.GlobalID] = st
	}
	s.mu.RUnlock()

	resp := statusResponse{Actors: actors}
	if mode := s.state.Snapshot().Mode; mode != nil {
		resp.Mode = string(*mode)
	}
	writeJSON(w, http.StatusOK, resp)
}

func (s *Server) handleShots(w http.ResponseWriter, r *http.Request) {
	limit := 0
	if raw := r.URL.Query().Get("limit"); raw != "" {
		n, err := strconv.Atoi(raw)
		if err != nil || n < 0 {
			writeError(w, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = n
	}

	shots := s.ring.snapshot(limit)

	if units := r.URL.Query().Get("units"); units != "" {
		converted, err := convertAll(shots, shot.UnitSystem(units))
		if err != nil {
			writeError(w, http.StatusBadRequest, err.Error())
			return
		}
		shots = converted
	}

	writeJSON(w, http.StatusOK, shots)
}

func convertAll(shots []shot.Data, system shot.UnitSystem) ([]shot.Data, error) {
	out := make([]shot.Data, len(shots))
	for i, d := range shots {
		converted, err := shot.ConvertUnits(d, system)
		if err != nil {
			return nil, err
		}
		out[i] = converted
	}
	return out, nil
}

func (s *Server) handleShotsConvert(w http.ResponseWriter, r *http.Request) {
	system := shot.UnitSystem(r.URL.Query().Get("units"))
	if system == "" {
		writeError(w, http.StatusBadRequest, "units query parameter is required")
		return
	}

	var data shot.Data
	if err := json.NewDecoder(r.Body).Decode(&data); err != nil {
		writeError(w, http.StatusBadRequest, "malformed shot data")
		return
	}

	converted, err := shot.ConvertUnits(data, system)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	writeJSON(w, http.StatusOK, converted)
}

type setModeRequest struct {
	Mode string `json:"mode"`
}

func (s *Server) handleSetMode(w http.ResponseWriter, r *http.Request) {
	var req setModeRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Mode == "" {
		writeError(w, http.StatusBadRequest, "malformed mode request")
		return
	}
	_ = s.sender.Send(bus.GameStateCommandEvent{CommandKind: bus.CommandSetMode, Mode: req.Mode}, nil)
	w.WriteHeader(http.StatusAccepted)
}

func (s *Server) handleGetSettings(w http.ResponseWriter, r *http.Request) {
	cfg, _ := s.system.Snapshot()
	writeJSON(w, http.StatusOK, cfg)
}

// settingsOutcome is the POST /api/settings success wire shape.
type settingsOutcome struct {
	RestartRequired bool     `json:"restart_required"`
	Restarted       []string `json:"restarted,omitempty"`
	Stopped         []string `json:"stopped,omitempty"`
	Started         []string `json:"started,omitempty"`
}

// handlePostSettings implements the §4.8 request/reply pattern: a
// request ID is generated, the receiver subscribes before the command
// is published so no outcome can be missed, and the handler waits up
// to settingsTimeout before giving up with a 504.
func (s *Server) handlePostSettings(w http.ResponseWriter, r *http.Request) {
	scope := r.URL.Query().Get("scope")

	action, err := s.buildAction(scope, r.Body)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	requestID := uuid.NewString()
	action.RequestID = requestID

	receiver := s.sender.Subscribe(nil)
	defer receiver.Close()

	if err := s.sender.Send(bus.ConfigCommandEvent{RequestID: requestID, Action: action}, nil); err != nil {
		writeError(w, http.StatusInternalServerError, "failed to publish config command")
		return
	}

	outcome, err := awaitOutcome(r.Context(), receiver, requestID)
	if err != nil {
		writeError(w, http.StatusGatewayTimeout, "timed out waiting for configuration outcome")
		return
	}
	if outcome.Error != "" {
		writeError(w, http.StatusBadRequest, outcome.Error)
		return
	}

	writeJSON(w, http.StatusOK, settingsOutcome{
		RestartRequired: outcome.RestartRequired,
		Restarted:       outcome.Restarted,
		Stopped:         outcome.Stopped,
		Started:         outcome.Started,
	})
}

func (s *Server) buildAction(scope string, body interface{ Read([]byte) (int, error) }) (config.Action, error) {
	if scope == "" {
		var cfg config.FlighthookConfig
		if err := json.NewDecoder(body).Decode(&cfg); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionReplaceAll, ReplaceAll: &cfg}, nil
	}

	typePrefix, index, err := config.ParseGlobalID(scope)
	if err != nil {
		return config.Action{}, err
	}

	switch typePrefix {
	case "mevo":
		var sect config.MevoSection
		if err := json.NewDecoder(body).Decode(&sect); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionUpsertMevo, Index: index, Mevo: &sect}, nil
	case "gspro":
		var sect config.GsProSection
		if err := json.NewDecoder(body).Decode(&sect); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionUpsertGsPro, Index: index, GsPro: &sect}, nil
	case "webserver":
		var sect config.WebserverSection
		if err := json.NewDecoder(body).Decode(&sect); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionUpsertWebserver, Index: index, Webserver: &sect}, nil
	case "mock_monitor":
		var sect config.MockMonitorSection
		if err := json.NewDecoder(body).Decode(&sect); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionUpsertMockMonitor, Index: index, MockMonitor: &sect}, nil
	case "random_club":
		var sect config.RandomClubSection
		if err := json.NewDecoder(body).Decode(&sect); err != nil {
			return config.Action{}, err
		}
		return config.Action{Kind: config.ActionUpsertRandomClub, Index: index, RandomClub: &sect}, nil
	default:
		return config.Action{}, fmt.Errorf("unknown scope type %q", typePrefix)
	}
}

func awaitOutcome(ctx context.Context, receiver *bus.Receiver, requestID string) (bus.ConfigOutcomeEvent, error) {
	deadline := time.NewTimer(settingsTimeout)
	defer deadline.Stop()
	poll := time.NewTicker(pollInterval)
	defer poll.Stop()

	for {
		select {
		case <-ctx.Done():
			return bus.ConfigOutcomeEvent{}, ctx.Err()
		case <-deadline.C:
			return bus.ConfigOutcomeEvent{}, context.DeadlineExceeded
		case <-poll.C:
			env, err := receiver.Poll()
			if err != nil {
				continue
			}
			outcome, ok := env.Event.(bus.ConfigOutcomeEvent)
			if !ok || outcome.RequestID != requestID {
				continue
			}
			return outcome, nil
		}
	}
}
