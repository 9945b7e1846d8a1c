package main

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/common-nighthawk/go-figure"
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"golang.org/x/term"

	"cataid-backend/cmd/app/internal/controller"
	"cataid-backend/internal/catalog"
	"cataid-backend/internal/config"
	"cataid-backend/internal/db"
	"cataid-backend/internal/export"
	"cataid-backend/internal/model"
	"cataid-backend/internal/recommend"
	"cataid-backend/internal/repository"
	"cataid-backend/internal/service"
	"cataid-backend/pkg/middleware"
	"cataid-backend/utilities"
)

const version = "1.0.0"

func main() {
	printStartUpBanner()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	if err := utilities.SetupLogging(cfg.Logging); err != nil {
		log.Fatalf("failed to set up logging: %v", err)
	}
	defer utilities.CloseLogging()
	utilities.ConfigureSecrets(cfg.Authentication.AccessSecret, cfg.Authentication.RefreshSecret)

	// Catalog and library are loaded once and shared read-only.
	cat, err := catalog.Load(cfg.Assessment.CatalogPath)
	if err != nil {
		log.Fatalf("failed to load question catalog: %v", err)
	}
	lib, err := catalog.LoadLibrary(cfg.Assessment.LibraryPath)
	if err != nil {
		log.Fatalf("failed to load recommendation library: %v", err)
	}
	utilities.Info("catalog %s: %d sections, %d questions; %d guided categories",
		cat.Version, len(cat.Sections), cat.QuestionCount(), lib.Len())

	if _, err := db.InitDBFromConfig(cfg); err != nil {
		log.Fatalf("failed to initialise database: %v", err)
	}
	if cfg.DB.Initialize {
		if err := db.GetDB().AutoMigrate(&model.Staff{}, &model.Candidate{}, &model.Assessment{}); err != nil {
			log.Fatalf("failed to migrate database: %v", err)
		}
	}

	// Create repositories.
	staffRepo := repository.NewStaffRepository()
	candidateRepo := repository.NewCandidateRepository()
	assessmentRepo := repository.NewAssessmentRepository()

	// Create services.
	engine := recommend.NewEngine(lib)
	registry := export.Default(
		export.WithOrganisation(cfg.Report.Organisation),
		export.WithAuthor(cfg.Report.Organisation),
	)
	authService := service.NewAuthService(staffRepo)
	candidateService := service.NewCandidateService(candidateRepo)
	assessmentService := service.NewAssessmentService(assessmentRepo, candidateRepo, cat, engine, nil)
	reportService := service.NewReportService(assessmentRepo, staffRepo, cat, engine, registry, cfg.Report.Title, nil)
	progressService := service.NewProgressService(assessmentRepo, candidateRepo, cat, registry, nil)

	seedLead(authService, staffRepo)
	subscribeAuditLog()

	if !cfg.RequestDump {
		gin.SetMode(gin.ReleaseMode)
	}
	r := gin.Default()

	// CORS configuration.
	r.Use(cors.New(cors.Config{
		AllowOrigins:     []string{"*"},
		AllowMethods:     []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"},
		AllowHeaders:     []string{"Origin", "Content-Type", "Authorization", "If-None-Match"},
		ExposeHeaders:    []string{"Content-Length", "Content-Disposition", "ETag"},
		AllowCredentials: true,
		MaxAge:           12 * time.Hour,
	}))

	if cfg.RequestDump {
		r.Use(middleware.RequestDumpMiddleware())
	}
	r.Use(middleware.MetricsMiddleware())
	if cfg.Authentication.EnableTokenAuth {
		r.Use(utilities.AuthMiddleware())
	} else {
		utilities.Warn("token authentication is disabled; staff actions will be refused")
	}

	controller.RegisterRoutes(r, controller.Services{
		Auth:          authService,
		Candidate:     candidateService,
		Assessment:    assessmentService,
		Report:        reportService,
		Progress:      progressService,
		Catalog:       cat,
		Library:       lib,
		PageSize:      cfg.Pagination.PageSize,
		ExportLimiter: middleware.NewRateLimiter(cfg.Report.ExportRate, cfg.Report.ExportBurst),
	})

	// Start server on the host and port specified in the XML config.
	addr := fmt.Sprintf("%s:%d", cfg.Context.Host, cfg.Context.Port)
	utilities.Info("listening on %s", addr)
	if err := r.Run(addr); err != nil {
		utilities.Error("server stopped: %v", err)
		os.Exit(1)
	}
}

// subscribeAuditLog writes lifecycle and export events to the log.
func subscribeAuditLog() {
	bus := utilities.GlobalEventBus
	bus.Subscribe(utilities.EventAssessmentSubmitted, func(data interface{}) {
		if ev, ok := data.(service.AssessmentEvent); ok {
			utilities.Info("audit: assessment %s submitted by staff %d", ev.Reference, ev.Actor.ID)
		}
	})
	bus.Subscribe(utilities.EventAssessmentReviewed, func(data interface{}) {
		if ev, ok := data.(service.AssessmentEvent); ok {
			utilities.Info("audit: assessment %s %s by lead %d", ev.Reference, ev.Status, ev.Actor.ID)
		}
	})
	bus.Subscribe(utilities.EventReportExported, func(data interface{}) {
		utilities.Debug("audit: report exported %v", data)
	})
}

func printStartUpBanner() {
	if !term.IsTerminal(int(os.Stdout.Fd())) {
		log.Printf("CAT-AID API v%s", version)
		return
	}
	myFigure := figure.NewFigure("CAT-AID", "", true)
	myFigure.Print()

	fmt.Println("======================================================")
	fmt.Printf("CAT-AID API (v%s)\n\n", version)
}
