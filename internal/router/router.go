package router

import (
	"github.com/gin-gonic/gin"

	"invoxtract/internal/handler"
	"invoxtract/internal/middleware"
)

// Setup configures the Gin engine with all routes and middleware.
func Setup(
	invoiceH *handler.InvoiceHandler,
	jobH *handler.JobHandler,
	healthH *handler.HealthHandler,
	corsOrigins []string,
) *gin.Engine {
	r := gin.New()

	// Global middleware
	r.Use(middleware.Recovery())
	r.Use(middleware.CORS(corsOrigins))
	r.Use(middleware.RequestID())
	r.Use(middleware.Logger())

	// Health checks
	r.GET("/healthz", healthH.Liveness)
	r.GET("/readyz", healthH.Readiness)

	v1 := r.Group("/api/v1")
	v1.Use(middleware.RequireUser())

	invoices := v1.Group("/invoices")
	invoices.POST("/process", invoiceH.Process)
	invoices.GET("", invoiceH.List)
	invoices.GET("/export", invoiceH.Export)
	invoices.GET("/:id", invoiceH.GetByID)

	jobs := v1.Group("/jobs")
	jobs.POST("", jobH.Submit)
	jobs.GET("/:id", jobH.GetByID)

	return r
}
