package vault

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"teamvault/internal/vault/model"
	"teamvault/internal/vault/service"
	"teamvault/middleware"
	"teamvault/pkg/logger"
	"teamvault/pkg/metrics"
)

type VaultHandler struct {
	Service      *service.VaultService
	Metrics      *metrics.Metrics
	MaxBodyBytes int64
}

func NewVaultHandler(service *service.VaultService, m *metrics.Metrics, maxBodyBytes int64) *VaultHandler {
	return &VaultHandler{Service: service, Metrics: m, MaxBodyBytes: maxBodyBytes}
}

// ServeDB routes /api/db by method. OPTIONS never gets here, CORS answers it.
func (h *VaultHandler) ServeDB(w http.ResponseWriter, r *http.Request) {
	switch r.Method {
	case http.MethodGet:
		h.GetDocument(w, r)
	case http.MethodPost:
		h.SaveDocument(w, r)
	default:
		writeError(w, http.StatusNotFound, "not found")
	}
}

func (h *VaultHandler) GetDocument(w http.ResponseWriter, r *http.Request) {
	doc, err := h.Service.Read(r.Context())
	if err != nil {
		logger.Sugar.Errorw("Handler: Failed to read document", "request_id", middleware.RequestID(r.Context()), "error", err)
		h.recordRead(metrics.ResultError)
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.recordRead(metrics.ResultOK)
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	w.Write(doc)
}

func (h *VaultHandler) SaveDocument(w http.ResponseWriter, r *http.Request) {
	// Chunked bodies have no length, and a request without the header reads
	// as an empty body. Both are refused before touching storage.
	if r.ContentLength < 0 || (r.ContentLength == 0 && r.Header.Get("Content-Length") == "") {
		h.recordWrite(metrics.ResultInvalid)
		writeError(w, http.StatusLengthRequired, "Content-Length header is required")
		return
	}
	if h.MaxBodyBytes > 0 && r.ContentLength > h.MaxBodyBytes {
		h.recordWrite(metrics.ResultInvalid)
		writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
		return
	}

	var body io.Reader = r.Body
	if h.MaxBodyBytes > 0 {
		body = http.MaxBytesReader(w, r.Body, h.MaxBodyBytes)
	}
	data, err := io.ReadAll(body)
	if err != nil {
		h.recordWrite(metrics.ResultInvalid)
		var tooLarge *http.MaxBytesError
		if errors.As(err, &tooLarge) {
			writeError(w, http.StatusRequestEntityTooLarge, "request body too large")
			return
		}
		logger.Sugar.Warnw("Handler: Failed to read request body", "request_id", middleware.RequestID(r.Context()), "error", err)
		writeError(w, http.StatusBadRequest, "failed to read request body: "+err.Error())
		return
	}

	if err := h.Service.Write(r.Context(), data); err != nil {
		if errors.Is(err, model.ErrInvalidDocument) {
			h.recordWrite(metrics.ResultInvalid)
		} else {
			logger.Sugar.Errorw("Handler: Failed to save document", "request_id", middleware.RequestID(r.Context()), "error", err)
			h.recordWrite(metrics.ResultError)
		}
		writeError(w, http.StatusInternalServerError, err.Error())
		return
	}

	h.recordWrite(metrics.ResultOK)
	writeJSON(w, http.StatusOK, model.WriteResponse{Success: true})
}

func (h *VaultHandler) recordRead(result string) {
	if h.Metrics != nil {
		h.Metrics.DocumentRead(result)
	}
}

func (h *VaultHandler) recordWrite(result string) {
	if h.Metrics != nil {
		h.Metrics.DocumentWrite(result)
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, model.ErrorResponse{Error: msg})
}
