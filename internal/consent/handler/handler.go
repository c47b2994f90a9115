package handler

import (
	"context"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"

	"attrconsent/internal/consent/models"
	consentService "attrconsent/internal/consent/service"
	"attrconsent/internal/platform/middleware"
	"attrconsent/internal/tracer"
	dErrors "attrconsent/pkg/domain-errors"
	"attrconsent/pkg/platform/httputil"
)

// Service defines the consent operations exposed over HTTP: the approval
// flow of the attribute release prompt and principals managing their own
// decisions.
type Service interface {
	Evaluate(ctx context.Context, principal, service string, attrs models.AttributeMap) (*consentService.Evaluation, error)
	StoreConsentDecision(ctx context.Context, principal, service string, attrs models.AttributeMap, options models.ReminderOption, reminder int64, unit models.TimeUnit) (*models.Decision, error)
	FindConsentDecisions(ctx context.Context, principal string) ([]*models.Decision, error)
	AttributeNames(decision *models.Decision) ([]string, error)
	DeleteConsentDecision(ctx context.Context, principal, service string) error
	DeleteConsentDecisions(ctx context.Context, principal string) (int, error)
}

// Handler handles the "manage my consents" endpoints.
type Handler struct {
	logger  *slog.Logger
	consent Service
}

// New creates a new consent Handler.
func New(consent Service, logger *slog.Logger) *Handler {
	if logger == nil {
		logger = slog.New(slog.DiscardHandler)
	}
	return &Handler{
		logger:  logger,
		consent: consent,
	}
}

// Register registers the consent routes with the chi router.
func (h *Handler) Register(r chi.Router) {
	r.Get("/consents/{principal}", h.handleListConsents)
	r.Delete("/consents/{principal}", h.handleRevokeAll)
	r.Put("/consents/{principal}/{service}", h.handleStore)
	r.Delete("/consents/{principal}/{service}", h.handleRevoke)
	r.Post("/consents/{principal}/{service}/evaluate", h.handleEvaluate)
}

func (h *Handler) handleStore(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	principal, ok := h.pathParam(w, r, "principal")
	if !ok {
		return
	}
	service, ok := h.pathParam(w, r, "service")
	if !ok {
		return
	}
	req, ok := httputil.DecodeAndPrepare[StoreRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	stored, err := h.consent.StoreConsentDecision(ctx, principal, service, req.Attributes,
		models.ReminderOption(req.Options), req.Reminder, models.TimeUnit(req.ReminderTimeUnit))
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to store consent decision",
			"request_id", requestID,
			"principal", tracer.HashPrincipal(principal),
			"service", service,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusCreated, toConsent(stored, req.Attributes.Names()))
}

func (h *Handler) handleEvaluate(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	principal, ok := h.pathParam(w, r, "principal")
	if !ok {
		return
	}
	service, ok := h.pathParam(w, r, "service")
	if !ok {
		return
	}
	req, ok := httputil.DecodeJSON[EvaluateRequest](w, r, h.logger, requestID)
	if !ok {
		return
	}

	ev, err := h.consent.Evaluate(ctx, principal, service, req.Attributes)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to evaluate consent",
			"request_id", requestID,
			"principal", tracer.HashPrincipal(principal),
			"service", service,
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res := EvaluateResponse{Required: ev.Required, Reason: string(ev.Reason)}
	if ev.Decision != nil {
		res.Decision = toConsent(ev.Decision, nil)
	}
	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleListConsents(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	principal, ok := h.pathParam(w, r, "principal")
	if !ok {
		return
	}

	decisions, err := h.consent.FindConsentDecisions(ctx, principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to list consent decisions",
			"request_id", requestID,
			"principal", tracer.HashPrincipal(principal),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	res := ListResponse{Consents: make([]*Consent, 0, len(decisions))}
	for _, d := range decisions {
		names, err := h.consent.AttributeNames(d)
		if err != nil {
			// Listed anyway so the principal can still revoke it.
			h.logger.WarnContext(ctx, "consent decision payload unreadable",
				"request_id", requestID,
				"decision_id", d.ID.String(),
				"error", err,
			)
			names = nil
		}
		res.Consents = append(res.Consents, toConsent(d, names))
	}

	httputil.WriteJSON(w, http.StatusOK, res)
}

func (h *Handler) handleRevoke(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	principal, ok := h.pathParam(w, r, "principal")
	if !ok {
		return
	}
	service, ok := h.pathParam(w, r, "service")
	if !ok {
		return
	}

	if err := h.consent.DeleteConsentDecision(ctx, principal, service); err != nil {
		if !dErrors.HasCode(err, dErrors.CodeNotFound) {
			h.logger.ErrorContext(ctx, "failed to revoke consent decision",
				"request_id", requestID,
				"principal", tracer.HashPrincipal(principal),
				"service", service,
				"error", err,
			)
		}
		httputil.WriteError(w, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

func (h *Handler) handleRevokeAll(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := middleware.GetRequestID(ctx)

	principal, ok := h.pathParam(w, r, "principal")
	if !ok {
		return
	}

	count, err := h.consent.DeleteConsentDecisions(ctx, principal)
	if err != nil {
		h.logger.ErrorContext(ctx, "failed to revoke consent decisions",
			"request_id", requestID,
			"principal", tracer.HashPrincipal(principal),
			"error", err,
		)
		httputil.WriteError(w, err)
		return
	}

	httputil.WriteJSON(w, http.StatusOK, RevokeAllResponse{Deleted: count})
}

func (h *Handler) pathParam(w http.ResponseWriter, r *http.Request, name string) (string, bool) {
	value, err := url.PathUnescape(chi.URLParam(r, name))
	value = strings.TrimSpace(value)
	if err != nil || value == "" {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, name+" is required"))
		return "", false
	}
	return value, true
}
