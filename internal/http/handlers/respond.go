package handlers

import (
	"context"
	"net/http"
	"time"

	"github.com/geocoder89/crimewatch/internal/http/middlewares"
	"github.com/gin-gonic/gin"
)

type APIError struct {
	Code      string      `json:"code"`
	Message   string      `json:"message"`
	RequestID string      `json:"requestId,omitempty"`
	Details   interface{} `json:"details,omitempty"`
}

func requestIDFrom(ctx *gin.Context) string {
	if id := ctx.GetString(middlewares.CtxRequestID); id != "" {
		return id
	}
	return ctx.GetHeader("X-Request-Id")
}

func RespondError(ctx *gin.Context, status int, code, message string, details interface{}) {
	ctx.JSON(status, gin.H{
		"error": APIError{
			Code:      code,
			Message:   message,
			RequestID: requestIDFrom(ctx),
			Details:   details,
		},
	})
}

func RespondBadRequest(ctx *gin.Context, message string, details interface{}) {
	RespondError(ctx, http.StatusBadRequest, "invalid_request", message, details)
}

func RespondInternal(ctx *gin.Context, message string) {
	RespondError(ctx, http.StatusInternalServerError, "internal_error", message, nil)
}

// redirectWithFlash ends a form submission the way a browser expects: a
// one-shot message and a 302 to the next page.
func redirectWithFlash(ctx *gin.Context, location, category, message string) {
	middlewares.SetFlash(ctx, category, message)
	ctx.Redirect(http.StatusFound, location)
}

// withFlash adds the pending flash message, if any, to a read payload.
func withFlash(ctx *gin.Context, payload gin.H) gin.H {
	if f, ok := middlewares.PopFlash(ctx); ok {
		payload["flash"] = f
	}
	return payload
}

func requestContext(ctx *gin.Context, d time.Duration) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx.Request.Context(), d)
}
