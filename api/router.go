package api

import (
	"context"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/use-agent/htmlrender/api/handler"
	"github.com/use-agent/htmlrender/api/middleware"
	"github.com/use-agent/htmlrender/config"
	"github.com/use-agent/htmlrender/engine"
	"github.com/use-agent/htmlrender/invoice"
	"github.com/use-agent/htmlrender/renderer"
)

// NewRouter creates a configured Gin engine with all routes and middleware.
//
// Middleware chain:
//
//	Global:  Recovery → RequestID → Logger → SecureHeaders → CORS → RateLimit
//	Convert: BodyLimit → ErrorHandler
//	Invoice: BodyLimit → ErrorHandler
//
// Health sits outside the body limit and error handler; it never fails.
// Background work started by the middleware stops when ctx is done.
func NewRouter(ctx context.Context, pdf *renderer.PDFService, img *renderer.ImageService, inv *invoice.Service, h *engine.Handle, cfg *config.Config, startTime time.Time) *gin.Engine {
	gin.SetMode(cfg.Server.Mode)

	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(middleware.RequestID())
	r.Use(gin.Logger())
	r.Use(middleware.SecureHeaders())
	r.Use(middleware.CORS(cfg.CORS.AllowedOrigins))
	r.Use(middleware.RateLimit(ctx, cfg.RateLimit))

	api := r.Group("/api")
	api.GET("/health", handler.Health(h, startTime))

	convert := api.Group("")
	convert.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	convert.Use(middleware.ErrorHandler())

	convert.POST("/pdf/convert", handler.ConvertPDF(pdf))
	convert.POST("/image/convert", handler.ConvertImage(img))

	generate := r.Group("/generate")
	generate.Use(middleware.BodyLimit(cfg.Server.MaxBodyBytes))
	generate.Use(middleware.ErrorHandler())

	generate.POST("/invoice", handler.GenerateInvoice(inv))

	return r
}
