// Package routes
package routes

import (
	"net/http"

	"github.com/ntentasd/fitmetrics-api/pkg/utils"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

func NewMux(app *App) http.Handler {
	mux := http.NewServeMux()

	// health check
	app.handle(mux, "GET /healthz", app.healthHandler)

	// metrics
	mux.Handle("GET /metrics", promhttp.Handler())

	// aggregates
	app.handle(mux, "GET /v1/metrics/summary", app.summaryHandler)
	app.handle(mux, "GET /v1/metrics/timeline", app.timelineHandler)

	// workouts
	app.handle(mux, "POST /v1/workouts", app.createWorkoutHandler)
	app.handle(mux, "GET /v1/workouts", app.listWorkoutsHandler)

	return utils.WithCORS(mux)
}

func (app *App) handle(mux *http.ServeMux, pattern string, h http.HandlerFunc) {
	mux.Handle(pattern, app.instrument(pattern, h))
}
