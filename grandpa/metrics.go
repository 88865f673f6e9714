package grandpa

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics are registered via promauto as package-level vars and incremented
// inline at the call site, never passed around as parameters.
var (
	importedBlocksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_import_imported_blocks_total",
		Help: "Total number of blocks successfully delegated to the inner importer.",
	})

	alreadyInChainTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_import_already_in_chain_total",
		Help: "Total number of import_block calls short-circuited by the de-dup check.",
	})

	appliedChangesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grandpa_import_applied_changes_total",
		Help: "Count of authority-set change resolutions by kind.",
	}, []string{"kind"})

	guardRollbacksTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_import_guard_rollbacks_total",
		Help: "Total number of pending-change guard rollbacks (change resolution failed, or inner import failed or returned non-Imported).",
	})

	voterCommandsSentTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "grandpa_import_voter_commands_sent_total",
		Help: "Count of voter commands sent, by kind.",
	}, []string{"kind"})

	voterCommandSendFailuresTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "grandpa_import_voter_command_send_failures_total",
		Help: "Count of non-fatal voter-command channel send failures (voter task gone).",
	})

	pendingStandardChangesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grandpa_authority_set_pending_standard_changes",
		Help: "Current number of pending standard changes tracked across all forks.",
	})

	pendingForcedChangesGauge = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "grandpa_authority_set_pending_forced_changes",
		Help: "Current number of pending forced changes tracked.",
	})
)

func recordAppliedChange(a AppliedChanges) {
	switch {
	case a.IsNone():
		appliedChangesTotal.WithLabelValues("none").Inc()
	case a.kind == appliedStandard:
		appliedChangesTotal.WithLabelValues("standard").Inc()
	case a.kind == appliedForced:
		appliedChangesTotal.WithLabelValues("forced").Inc()
	}
}
