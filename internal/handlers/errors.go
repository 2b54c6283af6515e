package handlers

import (
	"errors"
	"net/http"

	"github.com/farmconnect/contracts-api/internal/middleware"
	"github.com/farmconnect/contracts-api/internal/services"
	"github.com/farmconnect/contracts-api/pkg/logger"
	"github.com/gin-gonic/gin"
)

// statusFor maps a service error kind to an HTTP status
func statusFor(kind services.Kind) int {
	switch kind {
	case services.KindValidation:
		return http.StatusBadRequest
	case services.KindNotFound:
		return http.StatusNotFound
	case services.KindConflict:
		return http.StatusConflict
	case services.KindAuthorization:
		return http.StatusForbidden
	case services.KindInvalidTransition:
		return http.StatusUnprocessableEntity
	case services.KindDependencyTimeout:
		return http.StatusGatewayTimeout
	case services.KindDependencyUnavailable:
		return http.StatusServiceUnavailable
	}
	return http.StatusInternalServerError
}

// errorBody renders err the way every endpoint reports failures
func errorBody(err error) gin.H {
	body := gin.H{"error": err.Error(), "kind": services.KindOf(err)}
	var serr *services.Error
	if errors.As(err, &serr) {
		body["error"] = serr.Reason
		if serr.Code != "" {
			body["code"] = serr.Code
		}
		if len(serr.Steps) > 0 {
			body["completedSteps"] = serr.Steps
		}
	}
	return body
}

func respondError(c *gin.Context, err error) {
	status := statusFor(services.KindOf(err))
	if status >= http.StatusInternalServerError {
		logger.Error("request failed", "path", c.FullPath(), "error", err)
		_ = c.Error(err)
	}
	c.JSON(status, errorBody(err))
}

// respondPartial reports a partial failure together with what was written
func respondPartial(c *gin.Context, err error, key string, value interface{}) {
	body := errorBody(err)
	body[key] = value
	_ = c.Error(err)
	c.JSON(statusFor(services.KindOf(err)), body)
}

func badRequest(c *gin.Context, msg string) {
	c.JSON(http.StatusBadRequest, gin.H{"error": msg, "kind": services.KindValidation})
}

// actorFrom builds the engine actor from the verified token claims
func actorFrom(c *gin.Context) services.Actor {
	return services.Actor{
		ID:       middleware.GetUserID(c),
		Username: middleware.GetUsername(c),
		Role:     middleware.GetUserRole(c),
	}
}
