package handlers

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/staffdir/staffdir/pkg/apperr"
)

// envelope is the uniform response shape. Business failures ride on HTTP 400
// with their own code; anything unexpected becomes 999.
type envelope struct {
	Code     string `json:"code"`
	Message  string `json:"message"`
	Data     any    `json:"data,omitempty"`
	Metadata any    `json:"metadata,omitempty"`
}

func respondOK(c *gin.Context, data any) {
	c.JSON(http.StatusOK, envelope{Code: apperr.CodeSuccess, Message: "success", Data: data})
}

func respondPage(c *gin.Context, data, metadata any) {
	c.JSON(http.StatusOK, envelope{Code: apperr.CodeSuccess, Message: "success", Data: data, Metadata: metadata})
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	if appErr, ok := apperr.As(err); ok {
		c.JSON(http.StatusBadRequest, envelope{Code: appErr.Code, Message: appErr.Message})
		return
	}
	logger.Error("request failed",
		zap.String("request_id", c.GetString("request_id")),
		zap.String("path", c.Request.URL.Path),
		zap.Error(err))
	c.JSON(http.StatusInternalServerError, envelope{
		Code:    apperr.CodeInternal,
		Message: "internal error",
	})
}

func respondBadRequest(c *gin.Context, message string) {
	c.JSON(http.StatusBadRequest, envelope{Code: apperr.ErrInvalidField.Code, Message: message})
}

func pathID(c *gin.Context, name string) (int64, bool) {
	id, err := strconv.ParseInt(c.Param(name), 10, 64)
	if err != nil || id <= 0 {
		respondBadRequest(c, "invalid "+name)
		return 0, false
	}
	return id, true
}
