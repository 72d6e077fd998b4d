package controllers

import (
	"net/http"

	"github.com/beego/beego/v2/server/web"
	"go.uber.org/zap"

	apperrors "github.com/aihub/pdfqa-go/internal/errors"
	"github.com/aihub/pdfqa-go/internal/logger"
)

// BaseController provides helpers for consistent JSON responses.
type BaseController struct {
	web.Controller
}

// JSON writes a JSON response with the supplied HTTP status code.
func (c *BaseController) JSON(status int, payload interface{}) {
	c.Ctx.Output.SetStatus(status)
	c.Data["json"] = payload
	c.ServeJSON()
}

// JSONSuccess writes a standard success envelope with message.
func (c *BaseController) JSONSuccess(message string) {
	c.JSON(http.StatusOK, map[string]interface{}{
		"status":  "success",
		"message": message,
	})
}

// JSONError writes an error envelope with message.
func (c *BaseController) JSONError(status int, message string) {
	c.JSON(status, map[string]interface{}{
		"status":  "error",
		"message": message,
	})
}

// JSONPipelineError 把流水线错误转换成边界处的错误信封
// 未识别的错误一律500，消息保留给排障
func (c *BaseController) JSONPipelineError(err error) {
	if pipeErr := apperrors.AsPipelineError(err); pipeErr != nil {
		c.JSONError(pipeErr.HTTPStatus(), pipeErr.Message)
		return
	}
	logger.Error("unclassified pipeline error",
		zap.String("path", c.Ctx.Request.RequestURI),
		zap.Error(err))
	c.JSONError(http.StatusInternalServerError, err.Error())
}

// sessionID 从请求头取会话标识，缺省时所有客户端共享default会话
func (c *BaseController) sessionID() string {
	return c.Ctx.Input.Header("X-Session-Id")
}
