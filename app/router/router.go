package router

import (
	"github.com/beego/beego/v2/server/web"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/aihub/pdfqa-go/app/controllers"
	"github.com/aihub/pdfqa-go/app/middleware"
)

// Init registers all routes. Must be called after bootstrap wires the services.
func Init() {
	web.InsertFilter("/*", web.BeforeRouter, middleware.CORSMiddleware)

	web.Router("/", &controllers.RootController{}, "get:Index")
	web.Router("/health", &controllers.HealthController{}, "get:Health")

	documentController := &controllers.DocumentController{}
	web.Router("/upload-pdf/", documentController, "post:Upload")
	web.Router("/index-stats/", documentController, "get:IndexStats")
	web.Router("/session/", documentController, "delete:DeleteSession")

	web.Router("/ask-question/", &controllers.QuestionController{}, "post:Ask")

	web.Handler("/metrics", promhttp.Handler())
}
