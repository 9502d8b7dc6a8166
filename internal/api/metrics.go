package api

import (
	"net/http"

	"github.com/heysubinoy/kvweb/internal/store"
)

// MetricsHandler returns current store metrics as JSON.
func MetricsHandler(instrumentedStore *store.InstrumentedStore) http.HandlerFunc {
	return func(w http.ResponseWriter, _ *http.Request) {
		metrics := instrumentedStore.GetMetrics()

		response := map[string]interface{}{
			"operations": map[string]uint64{
				store.OpGet:    metrics.GetCount,
				store.OpSet:    metrics.SetCount,
				store.OpDelete: metrics.DeleteCount,
				store.OpKeys:   metrics.KeysCount,
			},
			"errors": metrics.ErrorCount,
			"avg_latency": map[string]string{
				store.OpGet:    metrics.GetAvgLatency.String(),
				store.OpSet:    metrics.SetAvgLatency.String(),
				store.OpDelete: metrics.DeleteAvgLatency.String(),
				store.OpKeys:   metrics.KeysAvgLatency.String(),
			},
		}

		writeJSON(w, http.StatusOK, response)
	}
}
