package routes

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/google/uuid"
	"github.com/ntentasd/fitmetrics-api/internal/service"
	"github.com/ntentasd/fitmetrics-api/pkg/types"
	"github.com/ntentasd/fitmetrics-api/pkg/utils"
)

const (
	ownerHeader   = "X-User-ID"
	maxBodyBytes  = 1 << 20
	healthTimeout = 2 * time.Second
)

var errNoOwner = errors.New("missing " + ownerHeader + " header")

func (app *App) healthHandler(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), healthTimeout)
	defer cancel()

	checks := map[string]bool{
		"database": app.Store.Ping(ctx) == nil,
	}
	if app.Cache != nil {
		checks["cache"] = app.Cache.HealthCheck(ctx)
	}

	status, code := "ok", http.StatusOK
	for _, ok := range checks {
		if !ok {
			status, code = "error", http.StatusServiceUnavailable
		}
	}

	utils.ReplyJSON(w, code, utils.Body{
		"status": status,
		"checks": checks,
	})
}

func (app *App) summaryHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := app.owner(w, r)
	if !ok {
		return
	}

	days, err := intParam(r, "days", service.DefaultSummaryDays)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid days")
		return
	}

	summary, err := app.Metrics.Summary(r.Context(), owner, days)
	if err != nil {
		app.replyServiceError(w, err)
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": summary,
	})
}

func (app *App) timelineHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := app.owner(w, r)
	if !ok {
		return
	}

	days, err := intParam(r, "days", service.DefaultTimelineDays)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid days")
		return
	}

	rows, err := app.Metrics.Timeline(r.Context(), owner, days)
	if err != nil {
		app.replyServiceError(w, err)
		return
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": rows,
	})
}

func (app *App) createWorkoutHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := app.owner(w, r)
	if !ok {
		return
	}

	var req types.WorkoutInput
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		utils.ReplyBadRequest(w, "invalid request body")
		return
	}

	workout, err := app.Workouts.Record(r.Context(), owner, req)
	if err != nil {
		app.replyServiceError(w, err)
		return
	}

	utils.ReplyJSON(w, http.StatusCreated, utils.Body{
		"data": workout,
	})
}

func (app *App) listWorkoutsHandler(w http.ResponseWriter, r *http.Request) {
	owner, ok := app.owner(w, r)
	if !ok {
		return
	}

	limit, err := intParam(r, "limit", service.DefaultPageSize)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid limit")
		return
	}
	offset, err := intParam(r, "offset", 0)
	if err != nil {
		utils.ReplyBadRequest(w, "invalid offset")
		return
	}

	workouts, err := app.Workouts.List(r.Context(), owner, limit, offset)
	if err != nil {
		app.replyServiceError(w, err)
		return
	}
	if workouts == nil {
		workouts = []types.Workout{}
	}

	utils.ReplyJSON(w, http.StatusOK, utils.Body{
		"data": workouts,
	})
}

// owner reads the caller's id, set upstream by the auth gateway.
func (app *App) owner(w http.ResponseWriter, r *http.Request) (uuid.UUID, bool) {
	raw := r.Header.Get(ownerHeader)
	if raw == "" {
		utils.ReplyJSON(w, http.StatusUnauthorized, utils.Body{
			"error": errNoOwner.Error(),
		})
		return uuid.Nil, false
	}

	id, err := uuid.Parse(raw)
	if err != nil || id == uuid.Nil {
		utils.ReplyBadRequest(w, "invalid "+ownerHeader+" header")
		return uuid.Nil, false
	}
	return id, true
}

func (app *App) replyServiceError(w http.ResponseWriter, err error) {
	var verr *service.ValidationError
	if errors.As(err, &verr) {
		utils.ReplyBadRequest(w, verr.Error())
		return
	}

	app.logger.Error().Err(err).Msg("request failed")
	utils.ReplyInternalServerError(w, "internal error")
}

func intParam(r *http.Request, name string, def int) (int, error) {
	raw := r.URL.Query().Get(name)
	if raw == "" {
		return def, nil
	}
	return strconv.Atoi(raw)
}
