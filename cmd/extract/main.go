package main

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"mime"
	"os"
	"os/signal"
	"path/filepath"
	"strings"

	"invoxtract/internal/config"
	"invoxtract/internal/domain"
	"invoxtract/internal/export"
	"invoxtract/internal/extractor"
	"invoxtract/internal/extractor/providers"
	"invoxtract/internal/ocr"
	"invoxtract/internal/ocr/azure"
	"invoxtract/internal/ocr/pdf"
	"invoxtract/internal/pipeline"
	"invoxtract/internal/port"
)

const usage = "Usage: extract <file> [json|csv|xlsx]"

func main() {
	if len(os.Args) < 2 {
		fmt.Println(usage)
		os.Exit(1)
	}
	format := "json"
	if len(os.Args) > 2 {
		format = os.Args[2]
	}
	if err := run(os.Args[1], format); err != nil {
		log.Fatal(err)
	}
}

func run(path, format string) error {
	if format != "json" && !domain.ExportFormat(format).IsValid() {
		return fmt.Errorf("unknown output format %q\n%s", format, usage)
	}

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	providers.Register()
	llm, err := extractor.FromConfig(&cfg.Extractor)
	if err != nil {
		return fmt.Errorf("failed to initialize extractor: %w", err)
	}

	var imageAnalyzer port.LayoutAnalyzer
	if cfg.OCR.AzureEndpoint != "" {
		imageAnalyzer = azure.NewAnalyzer(cfg.OCR.AzureEndpoint, cfg.OCR.AzureKey, cfg.OCR.EnhanceImages, cfg.OCR.MaxImageWidth)
	}
	analyzer := ocr.NewRouter(pdf.NewAnalyzer(cfg.OCR.DetectPDFTables), imageAnalyzer)

	driver := pipeline.New(llm, pipeline.Config{
		MaxChunkChars: cfg.Pipeline.MaxChunkChars,
		PacingDelay:   cfg.Pipeline.PacingDelay,
		Verbose:       cfg.Log.Verbose(),
	})

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()

	doc := port.DocumentInput{
		Path:        path,
		ContentType: mime.TypeByExtension(strings.ToLower(filepath.Ext(path))),
		FileName:    filepath.Base(path),
	}
	res := driver.Process(ctx, analyzer, doc)
	if res.Err != nil && len(res.Invoices) == 0 {
		return fmt.Errorf("extraction failed: %w", res.Err)
	}
	if res.Err != nil {
		log.Printf("extraction interrupted, writing %d finalized invoices: %v", len(res.Invoices), res.Err)
	}
	log.Printf("%s: %d pages, %d invoices, outcomes %v", doc.FileName, len(res.Pages), len(res.Invoices), res.Counts())

	switch format {
	case string(domain.ExportFormatCSV):
		return export.WriteCSV(os.Stdout, res.Invoices)
	case string(domain.ExportFormatXLSX):
		return export.WriteXLSX(os.Stdout, res.Invoices)
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(res.Invoices)
}
