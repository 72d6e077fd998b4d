package controllers

import (
	"net/http"

	"github.com/aihub/pdfqa-go/internal/services"
)

var qaService *services.QAService

// Setup 注入控制器共享的问答服务，必须在路由注册前调用
func Setup(service *services.QAService) {
	qaService = service
}

// RootController serves the API root.
type RootController struct {
	BaseController
}

// Index 根路径探活
func (c *RootController) Index() {
	c.JSON(http.StatusOK, map[string]interface{}{
		"message": "PDF Q&A Chatbot Backend",
		"status":  "running",
	})
}

// HealthController reports service and collaborator health.
type HealthController struct {
	BaseController
}

// Health 健康检查，下游不可用时报degraded但不返回错误状态码
func (c *HealthController) Health() {
	status := "healthy"
	ready := qaService != nil && qaService.Ready()
	if !ready {
		status = "degraded"
	}
	c.JSON(http.StatusOK, map[string]interface{}{
		"status": status,
		"ready":  ready,
	})
}
