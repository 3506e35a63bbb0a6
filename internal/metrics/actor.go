package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// ActorStatus reports each actor's current ActorStatusEvent status as
	// a 0/1 gauge per (global_id, status) pair, so exactly one series per
	// actor is 1 at a time.
	ActorStatus = promauto.NewGaugeVec(prometheus.GaugeOpts{
		Name: "flighthook_actor_status",
		Help: "Current actor status (1 = active) by global actor ID and status label",
	}, []string{"global_id", "status"})

	// ShotsTotal counts accepted shots by source and estimated/final.
	ShotsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flighthook_shots_total",
		Help: "Total number of shots accepted by the accumulator, by source and estimated flag",
	}, []string{"source", "estimated"})

	// ReconcileActorsTotal counts reconciler-driven actor lifecycle
	// transitions by verb (started/stopped/restarted).
	ReconcileActorsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "flighthook_reconcile_actors_total",
		Help: "Total actor lifecycle transitions driven by the reconciler, by verb",
	}, []string{"verb"})
)

// SetActorStatus records status as the only active series for
// globalID, zeroing any previously-reported status for the same actor.
var knownStatuses = []string{"starting", "disconnected", "connected", "reconnecting"}

func SetActorStatus(globalID, status string) {
	for _, s := range knownStatuses {
		if s == status {
			ActorStatus.WithLabelValues(globalID, s).Set(1)
		} else {
			ActorStatus.WithLabelValues(globalID, s).Set(0)
		}
	}
}

// IncShot records one accepted shot.
func IncShot(source string, estimated bool) {
	label := "false"
	if estimated {
		label = "true"
	}
	ShotsTotal.WithLabelValues(source, label).Inc()
}

// IncReconcileActors records a batch of reconciler transitions for one
// verb (e.g. "started").
func IncReconcileActors(verb string, count int) {
	if count <= 0 {
		return
	}
	ReconcileActorsTotal.WithLabelValues(verb).Add(float64(count))
}
