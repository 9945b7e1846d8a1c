package controller

import (
	"strconv"

	"github.com/gin-gonic/gin"

	"cataid-backend/internal/catalog"
	"cataid-backend/internal/service"
	"cataid-backend/pkg/metrics"
	"cataid-backend/pkg/middleware"
	"cataid-backend/utilities"
)

// Services bundles what the routes depend on.
type Services struct {
	Auth       service.AuthService
	Candidate  service.CandidateService
	Assessment service.AssessmentService
	Report     service.ReportService
	Progress   service.ProgressService
	Catalog    *catalog.Catalog
	Library    *catalog.Library
	PageSize   int
	// ExportLimiter throttles report rendering per client; nil disables it.
	ExportLimiter *middleware.RateLimiter
}

func RegisterRoutes(r *gin.Engine, s Services) {
	// Auth routes.
	authCtrl := NewAuthController(s.Auth)
	authRoutes := r.Group("/auth")
	{
		authRoutes.POST("/login", authCtrl.Login)
		authRoutes.POST("/refresh", authCtrl.Refresh)
	}
	r.POST("/staff", authCtrl.RegisterStaff)

	r.GET("/metrics", gin.WrapH(metrics.Handler()))

	catalogCtrl := NewCatalogController(s.Catalog, s.Library)
	r.GET("/catalog", catalogCtrl.GetCatalog)

	// Candidate routes.
	candidateCtrl := NewCandidateController(s.Candidate, s.Progress)
	progressExport := s.limited(candidateCtrl.ExportProgress)
	candidateRoutes := r.Group("/candidates")
	{
		candidateRoutes.POST("", candidateCtrl.CreateCandidate)
		candidateRoutes.GET("/:id", candidateCtrl.GetCandidate)
		candidateRoutes.GET("/:id/progress", candidateCtrl.GetProgress)
		candidateRoutes.GET("/:id/progress/export/:format", progressExport...)
		candidateRoutes.POST("/:id/progress/export/:format", progressExport...)
	}

	// Assessment routes.
	assessmentCtrl := NewAssessmentController(s.Assessment, s.PageSize)
	reportCtrl := NewReportController(s.Report)
	exportHandlers := s.limited(reportCtrl.ExportReport)

	assessRoutes := r.Group("/assessments")
	{
		assessRoutes.POST("", assessmentCtrl.CreateAssessment)
		assessRoutes.GET("", assessmentCtrl.ListAssessments)
		assessRoutes.GET("/stats", assessmentCtrl.GetStats)
		assessRoutes.GET("/:id", assessmentCtrl.GetAssessment)
		assessRoutes.PUT("/:id/answers", assessmentCtrl.SaveAnswers)
		assessRoutes.POST("/:id/submit", assessmentCtrl.SubmitAssessment)
		assessRoutes.POST("/:id/review", assessmentCtrl.ReviewAssessment)
		assessRoutes.POST("/:id/assign", assessmentCtrl.AssignAssessment)
		assessRoutes.POST("/:id/lead-edit", assessmentCtrl.LeadEdit)
		assessRoutes.GET("/:id/score", assessmentCtrl.GetScore)
		assessRoutes.GET("/:id/recommendations", assessmentCtrl.GetRecommendations)
		assessRoutes.POST("/:id/export/:format", exportHandlers...)
	}
	r.GET("/reports/formats", reportCtrl.GetFormats)
}

// limited puts the export rate limiter, when configured, in front of h.
func (s Services) limited(h gin.HandlerFunc) []gin.HandlerFunc {
	if s.ExportLimiter == nil {
		return []gin.HandlerFunc{h}
	}
	return []gin.HandlerFunc{middleware.RateLimitMiddleware(s.ExportLimiter, exportKey), h}
}

// exportKey limits per staff member when authenticated, else per client IP.
func exportKey(c *gin.Context) string {
	if actor, ok := utilities.ActorFromContext(c); ok {
		return "staff:" + strconv.FormatUint(uint64(actor.ID), 10)
	}
	return "ip:" + c.ClientIP()
}
