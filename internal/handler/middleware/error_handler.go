package middleware

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/go-playground/validator/v10"
	"github.com/makkenzo/spendwise-api/internal/handler/dto"
	"github.com/makkenzo/spendwise-api/internal/ierr"
	"go.uber.org/zap"
)

const (
	missingCredentialMessage = "Missing API key. Provide via Authorization: Bearer <key> or X-API-Key header."
	rateLimitMessage         = "Rate limit exceeded. Please try again later."
)

func ErrorHandlerMiddleware(logger *zap.Logger) gin.HandlerFunc {
	log := logger.Named("ErrorHandler")
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 {
			return
		}

		err := c.Errors.Last().Err
		status, errResponse := classify(err)
		errResponse.RequestID = GetRequestID(c)

		if status >= http.StatusInternalServerError {
			log.Error("Request failed", zap.String("request_id", errResponse.RequestID), zap.Error(err))
		} else {
			log.Debug("Request rejected", zap.Int("status", status), zap.String("code", errResponse.Code), zap.Error(err))
		}

		c.AbortWithStatusJSON(status, errResponse)
	}
}

func classify(err error) (int, dto.APIErrorResponse) {
	var ve validator.ValidationErrors
	if errors.As(err, &ve) {
		return http.StatusBadRequest, dto.APIErrorResponse{
			Code:    "VALIDATION_ERROR",
			Message: "Input validation failed.",
			Details: buildValidationErrors(ve),
		}
	}

	var scopeErr *ierr.ScopeError

	switch {
	case errors.Is(err, ierr.ErrMissingCredential):
		return http.StatusUnauthorized, dto.APIErrorResponse{Code: "UNAUTHORIZED", Message: missingCredentialMessage}
	case errors.Is(err, ierr.ErrInvalidFormat):
		return http.StatusUnauthorized, dto.APIErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid API key format"}
	case errors.Is(err, ierr.ErrInvalidCredential):
		return http.StatusUnauthorized, dto.APIErrorResponse{Code: "UNAUTHORIZED", Message: "Invalid API key"}
	case errors.Is(err, ierr.ErrKeyDisabled):
		return http.StatusForbidden, dto.APIErrorResponse{Code: "FORBIDDEN", Message: "API key is disabled"}
	case errors.Is(err, ierr.ErrKeyExpired):
		return http.StatusForbidden, dto.APIErrorResponse{Code: "FORBIDDEN", Message: "API key has expired"}
	case errors.As(err, &scopeErr):
		return http.StatusForbidden, dto.APIErrorResponse{Code: "FORBIDDEN", Message: scopeErr.Error()}
	case errors.Is(err, ierr.ErrInsufficientScope):
		return http.StatusForbidden, dto.APIErrorResponse{Code: "FORBIDDEN", Message: "API key lacks the required permission"}
	case errors.Is(err, ierr.ErrRateLimitExceeded):
		return http.StatusTooManyRequests, dto.APIErrorResponse{Code: "RATE_LIMIT_EXCEEDED", Message: rateLimitMessage}
	case errors.Is(err, ierr.ErrValidation):
		return http.StatusBadRequest, dto.APIErrorResponse{Code: "VALIDATION_ERROR", Message: err.Error()}
	case errors.Is(err, ierr.ErrUnauthorized), errors.Is(err, ierr.ErrInvalidCredentials), errors.Is(err, ierr.ErrInvalidToken):
		return http.StatusUnauthorized, dto.APIErrorResponse{Code: "UNAUTHORIZED", Message: "Authentication required or failed."}
	case errors.Is(err, ierr.ErrForbidden):
		return http.StatusForbidden, dto.APIErrorResponse{Code: "FORBIDDEN", Message: "Access denied."}
	case errors.Is(err, ierr.ErrNotFound):
		return http.StatusNotFound, dto.APIErrorResponse{Code: "NOT_FOUND", Message: "The requested resource was not found."}
	case errors.Is(err, ierr.ErrConflict):
		return http.StatusConflict, dto.APIErrorResponse{Code: "CONFLICT", Message: err.Error()}
	default:
		return http.StatusInternalServerError, dto.APIErrorResponse{Code: "INTERNAL_ERROR", Message: "An unexpected error occurred."}
	}
}

func buildValidationErrors(ve validator.ValidationErrors) []dto.FieldError {
	details := make([]dto.FieldError, len(ve))
	for i, fe := range ve {
		details[i] = dto.FieldError{
			Field:   fe.Field(),
			Message: getValidationErrorMsg(fe),
		}
	}
	return details
}

func getValidationErrorMsg(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("Field '%s' is required", fe.Field())
	case "oneof":
		return fmt.Sprintf("Field '%s' must be one of [%s]", fe.Field(), fe.Param())
	case "max":
		return fmt.Sprintf("Field '%s' must be at most %s characters", fe.Field(), fe.Param())
	case "gt":
		return fmt.Sprintf("Field '%s' must be greater than %s", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("Field '%s' failed validation on the '%s' tag", fe.Field(), fe.Tag())
	}
}
