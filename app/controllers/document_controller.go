package controllers

import (
	"fmt"
	"io"
	"net/http"

	"go.uber.org/zap"

	"github.com/aihub/pdfqa-go/internal/logger"
)

// maxUploadBytes 上传大小上限
const maxUploadBytes = 50 << 20

// DocumentController handles document upload and lifecycle.
type DocumentController struct {
	BaseController
}

// Upload 处理POST /upload-pdf/
// 成功响应的message报告块数量，失败统一走错误信封
func (c *DocumentController) Upload() {
	file, header, err := c.GetFile("file")
	if err != nil {
		c.JSONError(http.StatusBadRequest, "file field is required")
		return
	}
	defer file.Close()

	if header.Size > maxUploadBytes {
		c.JSONError(http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSONError(http.StatusBadRequest, "failed to read uploaded file")
		return
	}

	chunkCount, err := qaService.UploadDocument(c.Ctx.Request.Context(), c.sessionID(), header.Filename, data)
	if err != nil {
		logger.Error("document upload failed",
			zap.String("filename", header.Filename),
			zap.Error(err))
		c.JSONPipelineError(err)
		return
	}

	c.JSONSuccess(fmt.Sprintf("PDF processed. %d chunks created.", chunkCount))
}

// IndexStats 处理GET /index-stats/
func (c *DocumentController) IndexStats() {
	stats, err := qaService.IndexStats(c.Ctx.Request.Context())
	if err != nil {
		c.JSONPipelineError(err)
		return
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"status": "success",
		"stats":  stats,
	})
}

// DeleteSession 处理DELETE /session/，清除会话文档及其向量
func (c *DocumentController) DeleteSession() {
	if !qaService.DeleteSession(c.Ctx.Request.Context(), c.sessionID()) {
		c.JSONError(http.StatusNotFound, "no document in session")
		return
	}
	c.JSONSuccess("session cleared")
}
