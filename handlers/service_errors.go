package handlers

import (
	"errors"
	"net/http"

	"github.com/upb/book-tracker/services"
	"github.com/upb/book-tracker/utils"
	"go.uber.org/zap"
)

// HandleServiceError maps domain errors to HTTP responses
func HandleServiceError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if err == nil {
		return
	}

	details := services.GetErrorDetails(err)
	message := services.GetErrorMessage(err)

	var writeErr error
	switch {
	case services.IsNotFoundError(err):
		writeErr = utils.WriteNotFound(w, message)

	case services.IsValidationError(err):
		writeErr = utils.WriteBadRequest(w, message, details)

	case services.IsTokenExpiredError(err):
		writeErr = utils.WriteUnauthorized(w, "Token Expired")

	case services.IsUnauthorizedError(err):
		writeErr = utils.WriteUnauthorized(w, message)

	case services.IsForbiddenError(err):
		writeErr = utils.WriteForbidden(w, message)

	case services.IsConflictError(err):
		writeErr = utils.WriteConflict(w, message, details)

	case services.IsInvalidCredentialsError(err):
		// Bad logins share the 500 status with server faults.
		logger.Debug("invalid credentials")
		writeErr = utils.WriteInternalServerError(w, message)

	case services.IsInternalError(err):
		logger.Error("internal server error", zap.Error(err))
		writeErr = utils.WriteInternalServerError(w, "An internal error occurred")

	default:
		logger.Error("unhandled error type",
			zap.Error(err),
			zap.String("error_type", string(services.GetErrorType(err))))
		writeErr = utils.WriteInternalServerError(w, "An unexpected error occurred")
	}

	if writeErr != nil {
		logger.Error("failed to write error response", zap.Error(writeErr))
	}

	var domainErr *services.DomainError
	if errors.As(err, &domainErr) {
		logger.Debug("handled service error",
			zap.String("type", string(domainErr.Type)),
			zap.String("message", domainErr.Message),
			zap.Any("details", domainErr.Details))
	}
}

// HandleValidationError handles validation errors from request parsing
func HandleValidationError(w http.ResponseWriter, err error, logger *zap.Logger) {
	if utils.IsValidationError(err) {
		fields := utils.GetValidationFields(err)
		details := make(map[string]interface{}, len(fields))
		for k, v := range fields {
			details[k] = v
		}
		message := "Validation failed"
		var verr *utils.ValidationError
		if errors.As(err, &verr) && verr.MissingFields() {
			message = "Missing required fields"
		}
		if err := utils.WriteBadRequest(w, message, details); err != nil {
			logger.Error("failed to write validation error response", zap.Error(err))
		}
		return
	}

	message := err.Error()
	if errors.Is(err, utils.ErrEmptyBody) {
		message = "Missing required fields"
	}
	if err := utils.WriteBadRequest(w, message, nil); err != nil {
		logger.Error("failed to write validation error response", zap.Error(err))
	}
}

// DecodeAndValidate reads a JSON body into v and validates it, writing a
// 400 and returning false when either step fails
func DecodeAndValidate(w http.ResponseWriter, r *http.Request, v interface{}, logger *zap.Logger) bool {
	if err := utils.DecodeJSON(r, v); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	if err := utils.ValidateStruct(v); err != nil {
		HandleValidationError(w, err, logger)
		return false
	}
	return true
}
