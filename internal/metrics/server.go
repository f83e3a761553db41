package metrics

import (
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"media-enricher/internal/logging"
)

// Serve exposes /metrics and /healthz on the given port. It blocks, so
// callers run it in a goroutine. Errors are logged rather than returned
// because a broken metrics listener must not stop enrichment.
func Serve(port string) {
	r := mux.NewRouter()
	r.Handle("/metrics", promhttp.Handler()).Methods("GET")
	r.HandleFunc("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write([]byte("ok")); err != nil {
			logging.Debug("healthz write failed: %v", err)
		}
	}).Methods("GET")

	srv := &http.Server{
		Addr:         ":" + port,
		Handler:      r,
		ReadTimeout:  5 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	logging.Info("Metrics listening on port %s", port)
	if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		logging.Error("Metrics server stopped: %v", err)
	}
}
