package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"

	"invoxtract/internal/config"
	"invoxtract/internal/extractor"
	"invoxtract/internal/extractor/providers"
	"invoxtract/internal/handler"
	"invoxtract/internal/ocr"
	"invoxtract/internal/ocr/azure"
	"invoxtract/internal/ocr/pdf"
	"invoxtract/internal/pipeline"
	"invoxtract/internal/port"
	"invoxtract/internal/repository/postgres"
	"invoxtract/internal/router"
	"invoxtract/internal/service"
	s3storage "invoxtract/internal/storage/s3"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.NewDB(&cfg.DB)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer db.Close()

	// Initialize repositories
	invoiceRepo := postgres.NewInvoiceRepo(db)
	jobRepo := postgres.NewJobRepo(db)

	// Initialize storage (optional; async jobs need it)
	var storage port.ObjectStorage
	if cfg.S3.Enabled() {
		s3Client, err := s3storage.NewClient(ctx, &cfg.S3)
		if err != nil {
			return fmt.Errorf("failed to initialize S3 client: %w", err)
		}
		storage = s3Client
	} else {
		log.Println("S3 bucket not configured; asynchronous jobs disabled")
	}

	// Initialize extractor
	providers.Register()
	llm, err := extractor.FromConfig(&cfg.Extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	// Initialize layout analyzers
	var imageAnalyzer port.LayoutAnalyzer
	if cfg.OCR.AzureEndpoint != "" {
		imageAnalyzer = azure.NewAnalyzer(cfg.OCR.AzureEndpoint, cfg.OCR.AzureKey, cfg.OCR.EnhanceImages, cfg.OCR.MaxImageWidth)
	} else {
		log.Println("Azure OCR endpoint not configured; image uploads will be rejected")
	}
	analyzer := ocr.NewRouter(pdf.NewAnalyzer(cfg.OCR.DetectPDFTables), imageAnalyzer)

	driver := pipeline.New(llm, pipeline.Config{
		MaxChunkChars: cfg.Pipeline.MaxChunkChars,
		PacingDelay:   cfg.Pipeline.PacingDelay,
		Verbose:       cfg.Log.Verbose(),
	})

	// Initialize services
	invoiceSvc := service.NewInvoiceService(driver, analyzer, invoiceRepo, jobRepo, storage, cfg.S3, cfg.Upload)

	var wg sync.WaitGroup
	if cfg.Queue.Enabled && storage != nil {
		worker := service.NewExtractionQueueWorker(jobRepo, invoiceSvc, service.ExtractionQueueConfig{
			PollInterval: time.Duration(cfg.Queue.PollIntervalSecs) * time.Second,
			MaxRetries:   cfg.Queue.MaxRetries,
			Concurrency:  cfg.Queue.Concurrency,
			JobTimeout:   time.Duration(cfg.Queue.JobTimeoutSecs) * time.Second,
		})
		wg.Add(1)
		go func() {
			defer wg.Done()
			worker.Start(ctx)
		}()
	}

	// Initialize handlers
	invoiceH := handler.NewInvoiceHandler(invoiceSvc)
	jobH := handler.NewJobHandler(invoiceSvc)
	healthH := handler.NewHealthHandler(db)

	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	// Setup router
	r := router.Setup(invoiceH, jobH, healthH, cfg.CORS.AllowedOrigins)
	r.MaxMultipartMemory = 8 << 20

	srv := &http.Server{
		Addr:         cfg.Server.Port,
		Handler:      r,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		log.Printf("Server starting on %s", cfg.Server.Port)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			stop()
			wg.Wait()
			return fmt.Errorf("server failed: %w", err)
		}
	case <-ctx.Done():
	}

	log.Println("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 30*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("server shutdown: %v", err)
	}
	wg.Wait()
	log.Println("Server stopped")
	return nil
}
