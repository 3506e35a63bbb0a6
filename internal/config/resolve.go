package config

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
)

// ActorSpec is one resolved, type-prefixed actor definition.
type ActorSpec struct {
	GlobalID string // "{type}.{index}"
	Type     string // webserver | mevo | mock_monitor | gspro | random_club
	Index    string
	Name     string
	Section  any // the concrete *Section value for this type
}

// Resolved is the flat, derived view of a FlighthookConfig used by the
// registry and reconciler: one ActorSpec per non-system actor, plus the
// webserver bind set used to compute restart_required.
type Resolved struct {
	Actors         []ActorSpec
	WebserverBinds map[string]string // global_id -> bind address
}

// IDs returns the set of global actor IDs in this resolved config.
func (r Resolved) IDs() map[string]struct{} {
	out := make(map[string]struct{}, len(r.Actors))
	for _, a := range r.Actors {
		out[a.GlobalID] = struct{}{}
	}
	return out
}

// Spec returns the ActorSpec for a global ID, if present.
func (r Resolved) Spec(globalID string) (ActorSpec, bool) {
	for _, a := range r.Actors {
		if a.GlobalID == globalID {
			return a, true
		}
	}
	return ActorSpec{}, false
}

// Resolve derives the flat actor list from a FlighthookConfig. name is
// required on every section; a missing name is a config error.
func Resolve(cfg *FlighthookConfig) (Resolved, error) {
	r := Resolved{WebserverBinds: make(map[string]string)}

	for _, idx := range sortedKeys(cfg.Webserver) {
		sect := cfg.Webserver[idx]
		if strings.TrimSpace(sect.Name) == "" {
			return Resolved{}, fmt.Errorf("config: webserver.%s: name is required", idx)
		}
		id := globalID("webserver", idx)
		r.Actors = append(r.Actors, ActorSpec{GlobalID: id, Type: "webserver", Index: idx, Name: sect.Name, Section: sect})
		r.WebserverBinds[id] = sect.Bind
	}
	for _, idx := range sortedKeys(cfg.Mevo) {
		sect := cfg.Mevo[idx]
		if strings.TrimSpace(sect.Name) == "" {
			return Resolved{}, fmt.Errorf("config: mevo.%s: name is required", idx)
		}
		r.Actors = append(r.Actors, ActorSpec{GlobalID: globalID("mevo", idx), Type: "mevo", Index: idx, Name: sect.Name, Section: sect})
	}
	for _, idx := range sortedKeys(cfg.MockMonitor) {
		sect := cfg.MockMonitor[idx]
		if strings.TrimSpace(sect.Name) == "" {
			return Resolved{}, fmt.Errorf("config: mock_monitor.%s: name is required", idx)
		}
		r.Actors = append(r.Actors, ActorSpec{GlobalID: globalID("mock_monitor", idx), Type: "mock_monitor", Index: idx, Name: sect.Name, Section: sect})
	}
	for _, idx := range sortedKeys(cfg.GsPro) {
		sect := cfg.GsPro[idx]
		if strings.TrimSpace(sect.Name) == "" {
			return Resolved{}, fmt.Errorf("config: gspro.%s: name is required", idx)
		}
		r.Actors = append(r.Actors, ActorSpec{GlobalID: globalID("gspro", idx), Type: "gspro", Index: idx, Name: sect.Name, Section: sect})
	}
	for _, idx := range sortedKeys(cfg.RandomClub) {
		sect := cfg.RandomClub[idx]
		if strings.TrimSpace(sect.Name) == "" {
			return Resolved{}, fmt.Errorf("config: random_club.%s: name is required", idx)
		}
		r.Actors = append(r.Actors, ActorSpec{GlobalID: globalID("random_club", idx), Type: "random_club", Index: idx, Name: sect.Name, Section: sect})
	}
	return r, nil
}

func globalID(typePrefix, index string) string {
	return typePrefix + "." + index
}

// ParseGlobalID splits a "{type}.{index}" global ID into its parts.
func ParseGlobalID(id string) (typePrefix, index string, err error) {
	parts := strings.SplitN(id, ".", 2)
	if len(parts) != 2 {
		return "", "", fmt.Errorf("config: malformed global id %q", id)
	}
	return parts[0], parts[1], nil
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Slice(keys, func(i, j int) bool {
		ni, erri := strconv.Atoi(keys[i])
		nj, errj := strconv.Atoi(keys[j])
		if erri == nil && errj == nil {
			return ni < nj
		}
		return keys[i] < keys[j]
	})
	return keys
}
