package api

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"

	"github.com/itstheanurag/ligo-compiler-api/internal/executor"
	"github.com/itstheanurag/ligo-compiler-api/internal/operations"
	"github.com/itstheanurag/ligo-compiler-api/internal/queue"
	"github.com/itstheanurag/ligo-compiler-api/internal/sandbox"
	"github.com/itstheanurag/ligo-compiler-api/internal/share"
	"github.com/rs/zerolog"
)

// Dispatcher runs an operation on the worker pool.
type Dispatcher interface {
	Dispatch(ctx context.Context, opts executor.ExecuteOptions) (*executor.ExecutionResult, error)
}

type OperationResponse struct {
	Result string `json:"result"`
	Error  bool   `json:"error"`
}

type ErrorResponse struct {
	Error   bool   `json:"error"`
	Message string `json:"message"`
}

type ShareResponse struct {
	Hash string `json:"hash"`
}

type Handler struct {
	dispatcher Dispatcher
	registry   *operations.Registry
	store      share.Store
	logger     *zerolog.Logger
	maxBody    int64
}

func NewHandler(d Dispatcher, registry *operations.Registry, store share.Store, maxBody int64, logger *zerolog.Logger) *Handler {
	return &Handler{
		dispatcher: d,
		registry:   registry,
		store:      store,
		logger:     logger,
		maxBody:    maxBody,
	}
}

// Register mounts one POST route per registered operation plus the share
// routes. Middleware wraps the operation routes only.
func (h *Handler) Register(mux *http.ServeMux, middleware ...func(http.Handler) http.Handler) {
	for _, op := range h.registry.List() {
		var route http.Handler = h.Operation(op)
		for _, mw := range middleware {
			route = mw(route)
		}
		mux.Handle("POST /api/"+op.ID, route)
	}
	mux.HandleFunc("POST /api/share", h.CreateShare)
	mux.HandleFunc("GET /api/share/{hash}", h.GetShare)
}

func (h *Handler) Operation(op operations.Operation) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req operations.Request
		if err := h.decode(w, r, &req); err != nil {
			writeError(w, statusForDecode(err), "invalid request body")
			return
		}
		if missing := op.Missing(req); len(missing) > 0 {
			writeError(w, http.StatusBadRequest, "missing required fields: "+strings.Join(missing, ", "))
			return
		}

		res, err := h.dispatcher.Dispatch(r.Context(), executor.ExecuteOptions{
			Operation: op.ID,
			Request:   req,
		})
		if err != nil {
			h.handleDispatchError(w, r, op.ID, err)
			return
		}

		writeJSON(w, http.StatusOK, OperationResponse{
			Result: res.Result,
			Error:  res.Failed(),
		})
	}
}

func (h *Handler) handleDispatchError(w http.ResponseWriter, r *http.Request, op string, err error) {
	var timeoutErr *sandbox.TimeoutError

	switch {
	case errors.Is(err, context.Canceled) && r.Context().Err() != nil:
		h.logger.Debug().Str("operation", op).Msg("client went away")
	case errors.As(err, &timeoutErr):
		writeError(w, http.StatusGatewayTimeout, timeoutErr.Error())
	case errors.Is(err, queue.ErrQueueFull):
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, err.Error())
	default:
		h.logger.Error().Err(err).Str("operation", op).Msg("operation failed")
		writeError(w, http.StatusInternalServerError, err.Error())
	}
}

// CreateShare stores the posted JSON object and returns its hash.
func (h *Handler) CreateShare(w http.ResponseWriter, r *http.Request) {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, h.maxBody))
	if err != nil {
		writeError(w, statusForDecode(err), "invalid request body")
		return
	}

	var compact bytes.Buffer
	if err := json.Compact(&compact, body); err != nil || !bytes.HasPrefix(compact.Bytes(), []byte("{")) {
		writeError(w, http.StatusBadRequest, "body must be a JSON object")
		return
	}

	hash, err := h.store.Save(r.Context(), compact.Bytes())
	if err != nil {
		h.logger.Error().Err(err).Msg("failed to save snapshot")
		writeError(w, http.StatusInternalServerError, "failed to save snapshot")
		return
	}

	writeJSON(w, http.StatusCreated, ShareResponse{Hash: hash})
}

func (h *Handler) GetShare(w http.ResponseWriter, r *http.Request) {
	hash := r.PathValue("hash")

	snap, err := h.store.Get(r.Context(), hash)
	if errors.Is(err, share.ErrNotFound) {
		writeError(w, http.StatusNotFound, fmt.Sprintf("snapshot %s not found", hash))
		return
	}
	if err != nil {
		h.logger.Error().Err(err).Str("hash", hash).Msg("failed to load snapshot")
		writeError(w, http.StatusInternalServerError, "failed to load snapshot")
		return
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	_, _ = w.Write(snap.Payload)
}

func (h *Handler) decode(w http.ResponseWriter, r *http.Request, v any) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, h.maxBody))
	return dec.Decode(v)
}

func statusForDecode(err error) int {
	var tooLarge *http.MaxBytesError
	if errors.As(err, &tooLarge) {
		return http.StatusRequestEntityTooLarge
	}
	return http.StatusBadRequest
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, message string) {
	writeJSON(w, status, ErrorResponse{Error: true, Message: message})
}
