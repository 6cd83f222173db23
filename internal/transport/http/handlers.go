package http

import (
	"encoding/json"
	"errors"
	"net"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/joshdurbin/shortlink/internal/domain"
	"github.com/joshdurbin/shortlink/internal/metrics"
	"github.com/joshdurbin/shortlink/internal/service"
)

// maxBodyBytes caps a shorten request body
const maxBodyBytes = 1 << 20

var statusByCode = map[domain.ErrorCode]int{
	domain.ErrCodeBadJSON:       http.StatusBadRequest,
	domain.ErrCodeRateLimited:   http.StatusTooManyRequests,
	domain.ErrCodeInvalidURL:    http.StatusBadRequest,
	domain.ErrCodeURLNotAllowed: http.StatusBadRequest,
	domain.ErrCodeShortInUse:    http.StatusConflict,
	domain.ErrCodeInvalidShort:  http.StatusBadRequest,
	domain.ErrCodeInvalidExpiry: http.StatusBadRequest,
	domain.ErrCodeNotFound:      http.StatusNotFound,
	domain.ErrCodeInternal:      http.StatusInternalServerError,
}

// StatusFor returns the HTTP status sent for an error code
func StatusFor(code domain.ErrorCode) int {
	if status, ok := statusByCode[code]; ok {
		return status
	}
	return http.StatusInternalServerError
}

// Handler holds the HTTP handlers for the URL shortener
type Handler struct {
	shortener service.URLShortener
	metrics   *metrics.Metrics
	logger    *zap.Logger
}

// NewHandler creates a new HTTP handler
func NewHandler(shortener service.URLShortener, m *metrics.Metrics, logger *zap.Logger) *Handler {
	return &Handler{
		shortener: shortener,
		metrics:   m,
		logger:    logger,
	}
}

// Shorten handles POST /shorten
func (h *Handler) Shorten(w http.ResponseWriter, r *http.Request) {
	var req domain.ShortenRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&req); err != nil {
		h.logger.Debug("invalid JSON in shorten request", zap.Error(err), zap.String("request_id", RequestIDFrom(r.Context())))
		h.writeShortenError(w, r, &service.ShortenError{Code: domain.ErrCodeBadJSON, Err: err})
		return
	}

	resp, err := h.shortener.Shorten(r.Context(), req, clientKey(r))
	if err != nil {
		var shortenErr *service.ShortenError
		if !errors.As(err, &shortenErr) {
			shortenErr = &service.ShortenError{Code: domain.ErrCodeInternal, Err: err}
		}
		h.writeShortenError(w, r, shortenErr)
		return
	}

	h.metrics.ObserveShorten(metrics.OutcomeOK)
	h.writeJSON(w, http.StatusOK, resp)
}

func (h *Handler) writeShortenError(w http.ResponseWriter, r *http.Request, err *service.ShortenError) {
	status := StatusFor(err.Code)
	if status >= http.StatusInternalServerError {
		h.logger.Error("shorten request failed",
			zap.Error(err),
			zap.String("request_id", RequestIDFrom(r.Context())))
	}
	if err.Code == domain.ErrCodeRateLimited && err.RateLimitReset > 0 {
		w.Header().Set("Retry-After", strconv.Itoa(err.RateLimitReset*60))
	}

	h.metrics.ObserveShorten(string(err.Code))
	h.writeJSON(w, status, err.Response())
}

// Redirect handles GET /{short}
func (h *Handler) Redirect(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "short")

	originalURL, err := h.shortener.GetOriginalURL(r.Context(), shortCode)
	if err != nil {
		h.metrics.ObserveRedirect(false)
		if errors.Is(err, service.ErrNotFound) {
			http.NotFound(w, r)
			return
		}
		h.logger.Error("failed to resolve short code", zap.String("short_code", shortCode), zap.Error(err))
		http.Error(w, "Internal server error", http.StatusInternalServerError)
		return
	}

	h.metrics.ObserveRedirect(true)
	http.Redirect(w, r, originalURL, http.StatusFound)
}

// GetURL handles GET /api/urls/{short}
func (h *Handler) GetURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "short")

	entry, err := h.shortener.GetURLInfo(r.Context(), shortCode)
	if err != nil {
		h.writeLookupError(w, shortCode, err)
		return
	}

	h.writeJSON(w, http.StatusOK, entry)
}

// DeleteURL handles DELETE /api/urls/{short}
func (h *Handler) DeleteURL(w http.ResponseWriter, r *http.Request) {
	shortCode := chi.URLParam(r, "short")

	if err := h.shortener.DeleteShortURL(r.Context(), shortCode); err != nil {
		h.writeLookupError(w, shortCode, err)
		return
	}

	w.WriteHeader(http.StatusNoContent)
}

// ListURLs handles GET /api/urls
func (h *Handler) ListURLs(w http.ResponseWriter, r *http.Request) {
	entries, err := h.shortener.GetAllURLs(r.Context())
	if err != nil {
		h.logger.Error("failed to list URLs", zap.Error(err))
		h.writeJSON(w, http.StatusInternalServerError, domain.NewErrorResponse(domain.ErrCodeInternal))
		return
	}

	h.writeJSON(w, http.StatusOK, entries)
}

// Health handles GET /healthz
func (h *Handler) Health(w http.ResponseWriter, _ *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeLookupError(w http.ResponseWriter, shortCode string, err error) {
	code := domain.ErrCodeInternal
	if errors.Is(err, service.ErrNotFound) {
		code = domain.ErrCodeNotFound
	} else {
		h.logger.Error("admin lookup failed", zap.String("short_code", shortCode), zap.Error(err))
	}
	h.writeJSON(w, StatusFor(code), domain.NewErrorResponse(code))
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, body any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(body); err != nil {
		h.logger.Warn("error encoding response", zap.Error(err))
	}
}

// clientKey identifies the caller for rate limiting. Behind RealIP the
// remote address is already a bare IP.
func clientKey(r *http.Request) string {
	host, _, err := net.SplitHostPort(r.RemoteAddr)
	if err != nil {
		return r.RemoteAddr
	}
	return host
}
