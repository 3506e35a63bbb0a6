package config

import (
	"fmt"
)

// ActionKind discriminates the config mutation Action variants.
type ActionKind string

const (
	ActionReplaceAll        ActionKind = "replace_all"
	ActionUpsertMevo        ActionKind = "upsert_mevo"
	ActionUpsertGsPro       ActionKind = "upsert_gspro"
	ActionUpsertWebserver   ActionKind = "upsert_webserver"
	ActionUpsertMockMonitor ActionKind = "upsert_mock_monitor"
	ActionUpsertRandomClub  ActionKind = "upsert_random_club"
	ActionRemove            ActionKind = "remove"
)

// Action is a single config mutation request, as carried by a
// config_command bus event. Exactly the fields relevant to Kind are
// populated.
type Action struct {
	Kind ActionKind `json:"kind"`

	// RequestID correlates this Action's eventual config_outcome, if set.
	RequestID string `json:"request_id,omitempty"`

	ReplaceAll  *FlighthookConfig  `json:"replace_all,omitempty"`
	Index       string             `json:"index,omitempty"`
	Mevo        *MevoSection       `json:"mevo,omitempty"`
	GsPro       *GsProSection      `json:"gspro,omitempty"`
	Webserver   *WebserverSection  `json:"webserver,omitempty"`
	MockMonitor *MockMonitorSection `json:"mock_monitor,omitempty"`
	RandomClub  *RandomClubSection `json:"random_club,omitempty"`
	RemoveID    string             `json:"remove_id,omitempty"`
}

// Apply mutates cfg in place per the action table in the component
// design. It returns an error for a malformed Remove ID rather than
// silently ignoring it, since that is a Config-kind failure the caller
// must reject the whole action for.
func Apply(cfg *FlighthookConfig, action Action) error {
	switch action.Kind {
	case ActionReplaceAll:
		if action.ReplaceAll == nil {
			return fmt.Errorf("config: replace_all action missing config")
		}
		*cfg = *action.ReplaceAll.Clone()

	case ActionUpsertMevo:
		if action.Mevo == nil {
			return fmt.Errorf("config: upsert_mevo action missing section")
		}
		if cfg.Mevo == nil {
			cfg.Mevo = make(map[string]MevoSection)
		}
		cfg.Mevo[action.Index] = *action.Mevo

	case ActionUpsertGsPro:
		if action.GsPro == nil {
			return fmt.Errorf("config: upsert_gspro action missing section")
		}
		if cfg.GsPro == nil {
			cfg.GsPro = make(map[string]GsProSection)
		}
		cfg.GsPro[action.Index] = *action.GsPro

	case ActionUpsertWebserver:
		if action.Webserver == nil {
			return fmt.Errorf("config: upsert_webserver action missing section")
		}
		if cfg.Webserver == nil {
			cfg.Webserver = make(map[string]WebserverSection)
		}
		cfg.Webserver[action.Index] = *action.Webserver

	case ActionUpsertMockMonitor:
		if action.MockMonitor == nil {
			return fmt.Errorf("config: upsert_mock_monitor action missing section")
		}
		if cfg.MockMonitor == nil {
			cfg.MockMonitor = make(map[string]MockMonitorSection)
		}
		cfg.MockMonitor[action.Index] = *action.MockMonitor

	case ActionUpsertRandomClub:
		if action.RandomClub == nil {
			return fmt.Errorf("config: upsert_random_club action missing section")
		}
		if cfg.RandomClub == nil {
			cfg.RandomClub = make(map[string]RandomClubSection)
		}
		cfg.RandomClub[action.Index] = *action.RandomClub

	case ActionRemove:
		typePrefix, index, err := ParseGlobalID(action.RemoveID)
		if err != nil {
			return fmt.Errorf("config: remove action: %w", err)
		}
		switch typePrefix {
		case "webserver":
			delete(cfg.Webserver, index)
		case "mevo":
			delete(cfg.Mevo, index)
		case "mock_monitor":
			delete(cfg.MockMonitor, index)
		case "gspro":
			delete(cfg.GsPro, index)
		case "random_club":
			delete(cfg.RandomClub, index)
		default:
			return fmt.Errorf("config: remove action: unknown actor type %q", typePrefix)
		}

	default:
		return fmt.Errorf("config: unknown action kind %q", action.Kind)
	}
	return nil
}

// WebserverBindDiff reports whether the webserver bind set changed
// between old and new resolved configs, used to set restart_required.
func WebserverBindDiff(oldResolved, newResolved Resolved) bool {
	if len(oldResolved.WebserverBinds) != len(newResolved.WebserverBinds) {
		return true
	}
	for id, bind := range oldResolved.WebserverBinds {
		if newResolved.WebserverBinds[id] != bind {
			return true
		}
	}
	return false
}
