package handler

import (
	"context"
	"encoding/json"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"

	"carreg/internal/registration/models"
	dErrors "carreg/pkg/domain-errors"
	"carreg/pkg/email"
	"carreg/pkg/platform/httputil"
	"carreg/pkg/platform/middleware/admin"
	"carreg/pkg/platform/middleware/auth"
	"carreg/pkg/platform/middleware/metadata"
	request "carreg/pkg/platform/middleware/request"
	"carreg/pkg/requestcontext"
)

const maxBodyBytes = 1 << 20

// Service is the registration coordinator as used by the HTTP surface.
type Service interface {
	RegisterCars(ctx context.Context, req models.RegisterCarsRequest) (models.ServiceResult, error)
	History(ctx context.Context, vin string) ([]models.HistoryEntry, error)
	HandleRevert(ctx context.Context, ids []int64, actor string, onlyForced bool)
}

// Handler serves the registration endpoints.
type Handler struct {
	logger       *slog.Logger
	registration Service
	jwtValidator auth.JWTValidator
	adminToken   string
	timeout      time.Duration
	middleware   []func(http.Handler) http.Handler
}

type Option func(*Handler)

// WithAdminToken guards the revert endpoint with an operator token.
func WithAdminToken(token string) Option {
	return func(h *Handler) {
		h.adminToken = token
	}
}

// WithRequestTimeout bounds the time spent serving one request.
func WithRequestTimeout(d time.Duration) Option {
	return func(h *Handler) {
		if d > 0 {
			h.timeout = d
		}
	}
}

// WithMiddleware appends middleware that runs before authentication, such
// as HTTP metrics.
func WithMiddleware(mw ...func(http.Handler) http.Handler) Option {
	return func(h *Handler) {
		h.middleware = append(h.middleware, mw...)
	}
}

// New creates a registration Handler.
func New(registration Service, logger *slog.Logger, jwtValidator auth.JWTValidator, opts ...Option) *Handler {
	h := &Handler{
		logger:       logger,
		registration: registration,
		jwtValidator: jwtValidator,
		timeout:      60 * time.Second,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Register mounts the registration routes on r.
func (h *Handler) Register(r chi.Router) {
	router := chi.NewRouter()
	router.Use(chimw.Recoverer)
	router.Use(request.RequestID)
	router.Use(request.RequestTime)
	router.Use(metadata.ClientMetadata)
	router.Use(request.Logger(h.logger))
	router.Use(chimw.Timeout(h.timeout))
	for _, mw := range h.middleware {
		router.Use(mw)
	}
	router.Use(auth.RequireAuth(h.jwtValidator, h.logger))

	router.Post("/registrations", h.handleRegisterCars)
	router.Get("/vehicles/{vin}/history", h.handleHistory)
	router.Group(func(r chi.Router) {
		if h.adminToken != "" {
			r.Use(admin.RequireAdminToken(h.adminToken, h.logger))
		}
		r.Post("/vehicles/revert", h.handleRevert)
	})

	r.Mount("/", router)
}

func (h *Handler) handleRegisterCars(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req models.RegisterCarsRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid register cars request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if err := prepareRegisterRequest(&req); err != nil {
		httputil.WriteError(w, err)
		return
	}
	req.Actor = requestcontext.Actor(ctx)

	result, err := h.registration.RegisterCars(ctx, req)
	if err != nil {
		if dErrors.HasCode(err, dErrors.CodeBadRequest) {
			h.logger.WarnContext(ctx, "rejected register cars request",
				"request_id", requestID,
				"error", err.Error(),
			)
		} else {
			h.logger.ErrorContext(ctx, "register cars failed",
				"request_id", requestID,
				"client_ip", metadata.GetClientIP(ctx),
				"user_agent", metadata.GetUserAgent(ctx),
				"error", err.Error(),
			)
		}
		httputil.WriteError(w, err)
		return
	}

	h.logger.InfoContext(ctx, "register cars handled",
		"request_id", requestID,
		"cars", len(req.Cars),
		"message", result.Message,
		"transaction_id", result.TransactionID,
	)
	httputil.WriteJSON(w, http.StatusOK, result)
}

// prepareRegisterRequest trims string fields and normalizes the address
// lists of every car.
func prepareRegisterRequest(req *models.RegisterCarsRequest) error {
	sanitize(req)
	for _, car := range req.Cars {
		if car == nil {
			return dErrors.New(dErrors.CodeBadRequest, "cars must not contain null entries")
		}
		sanitize(car)
		car.EmailAddresses = email.NormalizeList(car.EmailAddresses)
		if invalid := email.Invalid(car.EmailAddresses); len(invalid) > 0 {
			return dErrors.New(dErrors.CodeValidation,
				"invalid email addresses for "+car.VIN+": "+strings.Join(invalid, ","))
		}
	}
	return nil
}

type historyResponse struct {
	VIN     string                `json:"vin"`
	Entries []models.HistoryEntry `json:"entries"`
}

func (h *Handler) handleHistory(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	vin := models.NormalizeVIN(chi.URLParam(r, "vin"))

	entries, err := h.registration.History(ctx, vin)
	if err != nil {
		h.logger.WarnContext(ctx, "history lookup failed",
			"request_id", request.GetRequestID(ctx),
			"vin", vin,
			"error", err.Error(),
		)
		httputil.WriteError(w, err)
		return
	}
	if entries == nil {
		entries = []models.HistoryEntry{}
	}
	httputil.WriteJSON(w, http.StatusOK, historyResponse{VIN: vin, Entries: entries})
}

type revertRequest struct {
	IDs        []int64 `json:"ids"`
	OnlyForced bool    `json:"only_forced"`
}

type revertResponse struct {
	Accepted int `json:"accepted"`
}

// handleRevert answers 202 because reverts are best effort and their
// per-vehicle outcome is only visible in the history.
func (h *Handler) handleRevert(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := request.GetRequestID(ctx)

	var req revertRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.WarnContext(ctx, "invalid revert request",
			"request_id", requestID,
			"error", err.Error(),
		)
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "invalid request body"))
		return
	}
	if len(req.IDs) == 0 {
		httputil.WriteError(w, dErrors.New(dErrors.CodeBadRequest, "ids are required"))
		return
	}

	actor := requestcontext.Actor(ctx)
	h.registration.HandleRevert(ctx, req.IDs, actor, req.OnlyForced)
	h.logger.InfoContext(ctx, "revert requested",
		"request_id", requestID,
		"actor", actor,
		"ids", req.IDs,
		"only_forced", req.OnlyForced,
	)
	httputil.WriteJSON(w, http.StatusAccepted, revertResponse{Accepted: len(req.IDs)})
}
