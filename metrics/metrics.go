package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	TradesTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pump_trades_total", Help: "Trades by direction and terminal state"},
		[]string{"direction", "state"},
	)
	TransitionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pump_state_transitions_total", Help: "Orchestrator state transitions"},
		[]string{"state"},
	)
	RelaySubmissionsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pump_relay_submissions_total", Help: "Relay submissions by relay and result"},
		[]string{"relay", "result"},
	)
	CurveCacheTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{Name: "pump_curve_cache_total", Help: "Curve state cache lookups"},
		[]string{"result"},
	)
	DetectionsTotal = prometheus.NewCounter(
		prometheus.CounterOpts{Name: "pump_detections_total", Help: "Token launches detected"},
	)
	StageSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "pump_stage_seconds",
			Help:    "Time spent per orchestrator stage",
			Buckets: []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10},
		},
		[]string{"state"},
	)
)

func init() {
	prometheus.MustRegister(TradesTotal, TransitionsTotal, RelaySubmissionsTotal, CurveCacheTotal, DetectionsTotal, StageSeconds)
}

func Serve(addr string) *http.Server {
	mux := http.NewServeMux()
	mux.Handle("/metrics", promhttp.Handler())
	srv := &http.Server{Addr: addr, Handler: mux}
	go func() { _ = srv.ListenAndServe() }()
	return srv
}
