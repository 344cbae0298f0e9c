package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/ErickPolzin/Crud/internal/catalog"
	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse is the body of every non-2xx API response. Kind is stable
// and meant for programs; Error and Message are for people.
type ErrorResponse struct {
	Error     string       `json:"error,omitempty"`
	Message   string       `json:"message,omitempty"`
	Field     string       `json:"field,omitempty"`
	Kind      catalog.Kind `json:"kind"`
	RequestID string       `json:"requestId,omitempty"`
}

// MessageResponse carries a plain confirmation message.
type MessageResponse struct {
	Message string `json:"message"`
}

const internalErrorMessage = "internal server error"

func writeJSON(w http.ResponseWriter, status int, body interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body)
}

// statusFor maps a service error kind onto an HTTP status code.
func statusFor(kind catalog.Kind) int {
	switch kind {
	case catalog.KindValidation:
		return http.StatusBadRequest
	case catalog.KindNotFound:
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

// writeError renders a service error. Store failures are logged with the
// request id and replaced by a generic message.
func (s *Server) writeError(w http.ResponseWriter, r *http.Request, err error) {
	kind := catalog.KindOf(err)
	status := statusFor(kind)

	switch kind {
	case catalog.KindValidation:
		var cerr *catalog.Error
		resp := ErrorResponse{Error: err.Error(), Kind: kind}
		if errors.As(err, &cerr) {
			resp.Error = cerr.Message
			resp.Field = cerr.Field
		}
		writeJSON(w, status, resp)
	case catalog.KindNotFound:
		writeJSON(w, status, ErrorResponse{Message: catalog.ErrNotFound.Message, Kind: kind})
	default:
		requestID := middleware.GetReqID(r.Context())
		s.log.Error("Request failed",
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
			zap.String("request_id", requestID),
			zap.Error(err),
		)
		writeJSON(w, status, ErrorResponse{Error: internalErrorMessage, Kind: catalog.KindStore, RequestID: requestID})
	}
}

func writeValidation(w http.ResponseWriter, status int, field, message string) {
	writeJSON(w, status, ErrorResponse{Error: message, Field: field, Kind: catalog.KindValidation})
}
