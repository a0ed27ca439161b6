package server

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"autotrader/src/executor"

	"github.com/go-chi/chi/v5"
	logger "github.com/sirupsen/logrus"
)

// ReportSource exposes the last completed cycle for the status endpoint.
// The coordinator satisfies this.
type ReportSource interface {
	LastReport() *executor.CycleReport
}

// StartServer runs the thin observability surface: a liveness check and the
// last cycle report. It blocks until SIGINT or SIGTERM.
func StartServer(port string, reports ReportSource) {
	// Router with middleware
	r := chi.NewRouter()

	// Public routes
	r.Get("/healthcheck", func(w http.ResponseWriter, r *http.Request) {
		if _, err := w.Write([]byte("OK")); err != nil {
			logger.WithError(err).Error("\"/healthcheck\" error")
		}
	})

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")

		resp := map[string]any{"status": "ok"}
		if reports != nil {
			resp["last_cycle"] = reports.LastReport()
		}

		if err := json.NewEncoder(w).Encode(resp); err != nil {
			logger.WithError(err).Error("\"/status\" error")
		}
	})

	// Graceful server
	addr := ":" + port
	srv := &http.Server{
		Addr:    addr,
		Handler: r,
	}

	// Start server in goroutine
	go func() {
		logger.Infof("Listening on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			logger.WithError(err).Fatal("Server crashed")
		}
	}()

	// Shutdown on SIGINT or SIGTERM
	stop := make(chan os.Signal, 1)
	signal.Notify(stop, syscall.SIGINT, syscall.SIGTERM)
	<-stop

	logger.Info("Shutting down gracefully...")
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		logger.WithError(err).Error("Shutdown error")
	}
}
