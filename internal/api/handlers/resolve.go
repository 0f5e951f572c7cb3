package handlers

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/formnav/formnav/internal/domain"
	"github.com/formnav/formnav/internal/service"
	"github.com/formnav/formnav/pkg/httputil"
)

// Resolver is the resolution entry point consumed by the HTTP layer
type Resolver interface {
	ResolveFormURL(ctx context.Context, text string, opts service.Options) (*domain.ResolutionResult, error)
}

// ResolutionStore reads back recorded resolutions
type ResolutionStore interface {
	GetByID(ctx context.Context, id uuid.UUID) (*domain.ResolutionResult, error)
	List(ctx context.Context, limit, offset int) ([]*domain.ResolutionResult, int, error)
}

// ResolveHandler handles resolution requests
type ResolveHandler struct {
	resolver Resolver
	store    ResolutionStore
	logger   *zap.Logger
}

// NewResolveHandler creates a resolve handler. store may be nil when no
// audit database is configured; history endpoints then return 404.
func NewResolveHandler(resolver Resolver, store ResolutionStore, logger *zap.Logger) *ResolveHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ResolveHandler{resolver: resolver, store: store, logger: logger}
}

// resolveRequest is the POST /resolve body
type resolveRequest struct {
	Text           string `json:"text"`
	Verify         bool   `json:"verify"`
	Navigate       bool   `json:"navigate"`
	TimeoutSeconds int    `json:"timeout_seconds,omitempty"`
}

// Resolve handles POST /api/v1/resolve. The API always runs headless;
// interactive login recovery is a CLI affair.
func (h *ResolveHandler) Resolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if err := httputil.DecodeJSON(r, &req); err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	if strings.TrimSpace(req.Text) == "" {
		httputil.ErrorFromDomain(w, domain.ErrValidationField("text", "text is required"))
		return
	}

	opts := service.Options{
		Verify:   req.Verify,
		Navigate: req.Navigate,
		Headless: true,
	}
	if req.TimeoutSeconds > 0 {
		opts.Timeout = time.Duration(req.TimeoutSeconds) * time.Second
	}

	res, err := h.resolver.ResolveFormURL(r.Context(), req.Text, opts)
	if err != nil {
		h.logger.Error("resolution failed", zap.String("text", req.Text), zap.Error(err))
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}

// Get handles GET /api/v1/resolutions/{id}
func (h *ResolveHandler) Get(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httputil.JSONError(w, http.StatusNotFound, domain.ErrCodeBadRequest, "resolution history is not enabled", nil)
		return
	}

	id, err := uuid.Parse(chi.URLParam(r, "id"))
	if err != nil {
		httputil.ErrorFromDomain(w, domain.ErrValidationField("id", "must be a UUID"))
		return
	}

	res, err := h.store.GetByID(r.Context(), id)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSON(w, http.StatusOK, res)
}

// List handles GET /api/v1/resolutions
func (h *ResolveHandler) List(w http.ResponseWriter, r *http.Request) {
	if h.store == nil {
		httputil.JSONError(w, http.StatusNotFound, domain.ErrCodeBadRequest, "resolution history is not enabled", nil)
		return
	}

	p := httputil.GetPagination(r, 20, 100)

	results, total, err := h.store.List(r.Context(), p.PerPage, p.Offset)
	if err != nil {
		httputil.ErrorFromDomain(w, err)
		return
	}

	httputil.JSONWithMeta(w, http.StatusOK, results, &httputil.Meta{
		Page:       p.Page,
		PerPage:    p.PerPage,
		Total:      total,
		TotalPages: httputil.CalculateTotalPages(total, p.PerPage),
	})
}
