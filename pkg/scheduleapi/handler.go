// Package scheduleapi wires scheduler.Service to HTTP: request
// decode/validate, audit logging, optional Slack notification, and
// Prometheus instrumentation — none of which the algorithm depends on
// (spec.md §4.8, SPEC_FULL.md §4.8/§6.2).
package scheduleapi

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/covermd/dutyplanner/internal/audit"
	"github.com/covermd/dutyplanner/internal/httpserver"
	"github.com/covermd/dutyplanner/internal/telemetry"
	"github.com/covermd/dutyplanner/pkg/notify"
	"github.com/covermd/dutyplanner/pkg/scheduler"
)

// Handler mounts the scheduling HTTP endpoints.
type Handler struct {
	service  *scheduler.Service
	auditDB  *pgxpool.Pool
	writer   *audit.Writer
	notifier *notify.SlackNotifier
	logger   *slog.Logger
}

// NewHandler builds a Handler. auditDB/writer/notifier may all be nil: a
// nil writer disables the audit trail, a nil auditDB makes GET /runs
// always return an empty page and GET /runs/{id} always 404, and a nil
// (or disabled) notifier skips Slack entirely.
func NewHandler(service *scheduler.Service, auditDB *pgxpool.Pool, writer *audit.Writer, notifier *notify.SlackNotifier, logger *slog.Logger) *Handler {
	return &Handler{service: service, auditDB: auditDB, writer: writer, notifier: notifier, logger: logger}
}

// Routes returns the chi router for the /schedules subtree.
func (h *Handler) Routes() chi.Router {
	r := chi.NewRouter()
	r.Post("/", h.handleCreate)
	r.Post("/validate", h.handleValidate)
	r.Get("/runs", h.handleListRuns)
	r.Get("/runs/{id}", h.handleGetRun)
	return r
}

func (h *Handler) handleCreate(w http.ResponseWriter, r *http.Request) {
	var input scheduler.Input
	if !httpserver.DecodeAndValidate(w, r, &input) {
		return
	}

	runID := uuid.New()
	seed := seedFromQuery(r)
	start := time.Now()

	out, err := h.service.Run(r.Context(), input, seed)
	duration := time.Since(start)
	if err != nil {
		h.logger.Error("scheduling run failed", "run_id", runID, "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "scheduling run failed")
		return
	}

	outcome := outcomeLabel(out)
	telemetry.RunsTotal.WithLabelValues(outcome).Inc()
	telemetry.RunDuration.WithLabelValues(outcome).Observe(duration.Seconds())
	telemetry.SearchStepsTotal.WithLabelValues(outcome).Observe(float64(out.SearchSteps))
	telemetry.SearchExpansionsTotal.WithLabelValues(outcome).Observe(float64(out.SearchExpansions))
	telemetry.SearchWideningRestartsTotal.WithLabelValues(outcome).Add(float64(out.SearchWideningRestarts))
	for range out.Errors {
		telemetry.ValidationErrorsTotal.WithLabelValues("preflight").Inc()
	}

	h.recordAudit(runID, input, out, seed, duration)
	h.notifyOutcome(runID, input, out)

	status := http.StatusCreated
	switch {
	case len(out.Errors) > 0:
		status = http.StatusUnprocessableEntity
	case !out.WereAllDutiesSet:
		status = http.StatusOK
	}

	httpserver.Respond(w, status, out)
}

func (h *Handler) handleValidate(w http.ResponseWriter, r *http.Request) {
	var input scheduler.Input
	if !httpserver.DecodeAndValidate(w, r, &input) {
		return
	}

	errs := h.service.ValidateOnly(input)
	for range errs {
		telemetry.ValidationErrorsTotal.WithLabelValues("preflight").Inc()
	}

	httpserver.Respond(w, http.StatusOK, struct {
		Errors []string `json:"errors"`
	}{Errors: errs})
}

func (h *Handler) handleListRuns(w http.ResponseWriter, r *http.Request) {
	if h.auditDB == nil {
		httpserver.Respond(w, http.StatusOK, httpserver.CursorPage[audit.Record]{Items: []audit.Record{}})
		return
	}

	params, err := httpserver.ParseCursorParams(r)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", err.Error())
		return
	}

	records, err := audit.List(r.Context(), h.auditDB, params)
	if err != nil {
		h.logger.Error("listing scheduling runs", "error", err)
		httpserver.RespondError(w, http.StatusInternalServerError, "internal_error", "listing scheduling runs failed")
		return
	}

	httpserver.Respond(w, http.StatusOK, httpserver.NewCursorPage(records, params.Limit, audit.Cursor))
}

func (h *Handler) handleGetRun(w http.ResponseWriter, r *http.Request) {
	idParam := chi.URLParam(r, "id")
	id, err := uuid.Parse(idParam)
	if err != nil {
		httpserver.RespondError(w, http.StatusBadRequest, "bad_request", "id must be a valid UUID")
		return
	}

	if h.auditDB == nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "no such scheduling run")
		return
	}

	rec, err := audit.Get(r.Context(), h.auditDB, id)
	if err != nil {
		httpserver.RespondError(w, http.StatusNotFound, "not_found", "no such scheduling run")
		return
	}

	httpserver.Respond(w, http.StatusOK, rec)
}

func (h *Handler) recordAudit(runID uuid.UUID, input scheduler.Input, out scheduler.Output, seed int64, duration time.Duration) {
	if h.writer == nil {
		return
	}
	h.writer.Log(audit.Entry{
		RunID:            runID,
		InputDigest:      digestInput(input),
		Seed:             seed,
		Year:             input.Year,
		Month:            input.Month,
		DoctorCount:      len(input.Doctors),
		WereAnyDutiesSet: out.WereAnyDutiesSet,
		WereAllDutiesSet: out.WereAllDutiesSet,
		ErrorCount:       len(out.Errors),
		DurationMS:       duration.Milliseconds(),
	})
}

func (h *Handler) notifyOutcome(runID uuid.UUID, input scheduler.Input, out scheduler.Output) {
	if h.notifier == nil || !h.notifier.IsEnabled() {
		return
	}
	// Fire-and-forget: notification failures never affect the HTTP response.
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = h.notifier.NotifyRunComplete(ctx, notify.RunSummary{
			RunID:            runID.String(),
			Year:             input.Year,
			Month:            input.Month,
			WereAnyDutiesSet: out.WereAnyDutiesSet,
			WereAllDutiesSet: out.WereAllDutiesSet,
			Errors:           out.Errors,
		})
	}()
}

func outcomeLabel(out scheduler.Output) string {
	switch {
	case len(out.Errors) > 0:
		return "validation_failed"
	case out.WereAllDutiesSet:
		return "filled"
	default:
		return "partial"
	}
}

func digestInput(input scheduler.Input) string {
	b, _ := json.Marshal(input)
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// seedFromQuery reads ?seed=N, defaulting to 0 (callers that want
// reproducible runs across retries should pass their own seed).
func seedFromQuery(r *http.Request) int64 {
	q := r.URL.Query().Get("seed")
	if q == "" {
		return 0
	}
	var seed int64
	if _, err := fmt.Sscanf(q, "%d", &seed); err != nil {
		return 0
	}
	return seed
}
