package apiutil

import (
	"net/http"

	"github.com/Aidin1998/accounts/pkg/errors"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// ErrorMiddleware renders the last error attached to the context as an
// RFC 7807 problem document.
func ErrorMiddleware(log *zap.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Next()

		if len(c.Errors) == 0 || c.Writer.Written() {
			return
		}

		err := c.Errors.Last()
		instance := c.Request.URL.Path

		var problem *errors.ProblemDetails
		if err.Type == gin.ErrorTypeBind {
			problem = errors.NewProblemDetails(errors.TypeValidationError, errors.TitleValidationError,
				http.StatusBadRequest, "Malformed request body: "+err.Error(), instance)
		} else {
			problem = errors.ToProblem(err.Err, instance)
		}

		if problem.Status >= http.StatusInternalServerError {
			log.Error("request failed", zap.String("path", instance), zap.Error(err.Err))
		}

		RFC7807ErrorResponse(c, problem)
	}
}

// GetTraceID returns the request id set by RequestID.
func GetTraceID(c *gin.Context) string {
	if traceID, exists := c.Get(RequestIDKey); exists {
		if id, ok := traceID.(string); ok {
			return id
		}
	}
	return c.GetHeader(RequestIDHeader)
}

// RFC7807ErrorResponse writes problemDetails with the problem+json content type.
func RFC7807ErrorResponse(c *gin.Context, problemDetails *errors.ProblemDetails) {
	if traceID := GetTraceID(c); traceID != "" {
		problemDetails.WithTraceID(traceID)
	}

	c.Header("Content-Type", "application/problem+json")
	c.AbortWithStatusJSON(problemDetails.Status, problemDetails)
}

// RFC7807RateLimitResponse writes a rate limit error response
func RFC7807RateLimitResponse(c *gin.Context, detail string) {
	RFC7807ErrorResponse(c, errors.NewRateLimitError(detail, c.Request.URL.Path))
}
