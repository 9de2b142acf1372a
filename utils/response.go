package utils

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// JSONResponse defines the uniform structure for API responses.
type JSONResponse struct {
	Code    int         `json:"code"`
	Message string      `json:"message"`
	Data    interface{} `json:"data,omitempty"`
}

// Respond writes a JSON response with the given status code.
func Respond(ctx *gin.Context, status int, code int, message string, data interface{}) {
	ctx.JSON(status, JSONResponse{
		Code:    code,
		Message: message,
		Data:    data,
	})
}

// Success returns a standard success response.
func Success(ctx *gin.Context, data interface{}) {
	Respond(ctx, http.StatusOK, 0, "success", data)
}

// Error returns a standard error response.
func Error(ctx *gin.Context, status int, code int, message string) {
	Respond(ctx, status, code, message, nil)
}

// WantsJSON reports whether the client prefers JSON over HTML.
func WantsJSON(ctx *gin.Context) bool {
	return ctx.NegotiateFormat(gin.MIMEHTML, gin.MIMEJSON) == gin.MIMEJSON
}

// NotFound renders the uniform not-found outcome and aborts the chain.
func NotFound(ctx *gin.Context) {
	if WantsJSON(ctx) {
		Error(ctx, http.StatusNotFound, 40400, "not found")
	} else {
		ctx.HTML(http.StatusNotFound, "404.html", gin.H{"path": ctx.Request.URL.Path})
	}
	ctx.Abort()
}

// ServerError logs err and renders the uniform internal-error outcome.
func ServerError(ctx *gin.Context, err error) {
	if err != nil {
		Sugar.Errorw("request failed",
			"method", ctx.Request.Method,
			"path", ctx.Request.URL.Path,
			"request_id", ctx.GetString(RequestIDKey),
			"error", err,
		)
	}
	InternalError(ctx)
}

// InternalError renders the 500 page without logging, for the recovery middleware.
func InternalError(ctx *gin.Context) {
	if WantsJSON(ctx) {
		Error(ctx, http.StatusInternalServerError, 50000, "internal server error")
	} else {
		ctx.HTML(http.StatusInternalServerError, "500.html", gin.H{})
	}
	ctx.Abort()
}
