package server

import (
	"encoding/json"
	"net/http"

	"github.com/caasmo/litepool/pool"
	"github.com/caasmo/litepool/topk"
	"github.com/julienschmidt/httprouter"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Status is the body of GET /stats.
type Status struct {
	Pool pool.DoublePoolStats `json:"pool"`
	Top  []topk.Item          `json:"top"`
}

// StatusFunc returns the current status.
type StatusFunc func() Status

// NewRouter serves:
//
//	GET /metrics       Prometheus exposition of gatherer
//	GET /stats         Status as JSON
//	GET /stats/:role   pool stats of "writer" or "reader"
func NewRouter(gatherer prometheus.Gatherer, status StatusFunc) http.Handler {
	r := httprouter.New()
	r.Handler(http.MethodGet, "/metrics", promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{}))

	r.GET("/stats", func(w http.ResponseWriter, _ *http.Request, _ httprouter.Params) {
		writeJSON(w, http.StatusOK, status())
	})

	r.GET("/stats/:role", func(w http.ResponseWriter, _ *http.Request, ps httprouter.Params) {
		st := status().Pool
		switch ps.ByName("role") {
		case "writer":
			writeJSON(w, http.StatusOK, st.Writer)
		case "reader":
			writeJSON(w, http.StatusOK, st.Reader)
		default:
			writeJSON(w, http.StatusNotFound, map[string]string{"error": "unknown role"})
		}
	})
	return r
}

func writeJSON(w http.ResponseWriter, code int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(v)
}
