package middleware

import (
	"encoding/json"
	"net/http"
	"time"

	"catalog-api/internal/apperror"

	"github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"
)

// ErrorResponse represents a structured error response
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code      string                 `json:"code"`
	Message   string                 `json:"message"`
	Details   map[string]interface{} `json:"details,omitempty"`
	Timestamp string                 `json:"timestamp"`
}

// RespondWithError sends a structured error response
func RespondWithError(w http.ResponseWriter, statusCode int, message string) {
	RespondWithErrorDetails(w, statusCode, message, nil)
}

// RespondWithErrorDetails sends a structured error response with additional details
func RespondWithErrorDetails(w http.ResponseWriter, statusCode int, message string, details map[string]interface{}) {
	response := ErrorResponse{
		Error: ErrorDetail{
			Code:      http.StatusText(statusCode),
			Message:   message,
			Details:   details,
			Timestamp: time.Now().UTC().Format(time.RFC3339),
		},
	}

	RespondWithJSON(w, statusCode, response)
}

// RespondWithValidationErrors sends a 422 listing every field violation
func RespondWithValidationErrors(w http.ResponseWriter, message string, fields []apperror.FieldError) {
	details := map[string]interface{}{
		"validation_errors": fields,
	}

	RespondWithErrorDetails(w, http.StatusUnprocessableEntity, message, details)
}

// RespondWithAppError renders err. Classified errors keep their status and
// message; anything else is logged and hidden behind a generic 500.
func RespondWithAppError(w http.ResponseWriter, r *http.Request, err error, logger *zap.Logger) {
	appErr, ok := apperror.As(err)
	if !ok || appErr.Type == apperror.Internal {
		logger.Error("Request failed",
			zap.Error(err),
			zap.String("request_id", middleware.GetReqID(r.Context())),
			zap.String("method", r.Method),
			zap.String("path", r.URL.Path),
		)
		RespondWithError(w, http.StatusInternalServerError, "internal server error")
		return
	}

	logger.Debug("Request rejected",
		zap.Error(err),
		zap.Int("status", appErr.StatusCode()),
		zap.String("path", r.URL.Path),
	)

	if appErr.Type == apperror.Validation {
		RespondWithValidationErrors(w, appErr.Message, appErr.Fields)
		return
	}

	RespondWithError(w, appErr.StatusCode(), appErr.Message)
}

// ErrorHandlingMiddleware catches panics and converts them to 500 errors
func ErrorHandlingMiddleware(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if err := recover(); err != nil {
					if err == http.ErrAbortHandler {
						panic(err)
					}

					logger.Error("Panic recovered",
						zap.Any("error", err),
						zap.String("path", r.URL.Path),
						zap.String("method", r.Method),
						zap.Stack("stack"),
					)

					RespondWithError(w, http.StatusInternalServerError, "internal server error")
				}
			}()

			next.ServeHTTP(w, r)
		})
	}
}

// RespondWithJSON sends a JSON response
func RespondWithJSON(w http.ResponseWriter, statusCode int, payload interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	json.NewEncoder(w).Encode(payload)
}
