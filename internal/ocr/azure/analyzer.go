package azure

import (
	"bytes"
	"context"
	"fmt"
	"image"
	"io"
	"os"
	"sort"
	"strconv"
	"strings"

	"github.com/Azure/azure-sdk-for-go/services/cognitiveservices/v3.0/computervision"
	"github.com/Azure/go-autorest/autorest"
	"github.com/disintegration/imaging"

	"invoxtract/internal/domain"
	"invoxtract/internal/port"
)

// Analyzer reads scanned invoice images with the Azure Computer Vision OCR
// API. Each image is a single page.
type Analyzer struct {
	client   computervision.BaseClient
	enhance  bool
	maxWidth int
}

// NewAnalyzer creates an image Analyzer for the given Cognitive Services endpoint.
func NewAnalyzer(endpoint, apiKey string, enhance bool, maxWidth int) *Analyzer {
	client := computervision.New(endpoint)
	client.Authorizer = autorest.NewCognitiveServicesAuthorizer(apiKey)
	return &Analyzer{client: client, enhance: enhance, maxWidth: maxWidth}
}

func (a *Analyzer) Analyze(ctx context.Context, doc port.DocumentInput) ([]domain.PageContent, error) {
	var data []byte
	var err error
	if a.enhance {
		data, err = EnhanceImage(doc.Path, a.maxWidth)
	} else {
		data, err = os.ReadFile(doc.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("azure.Analyzer: %w", err)
	}

	result, err := a.client.RecognizePrintedTextInStream(ctx, true, io.NopCloser(bytes.NewReader(data)), computervision.OcrLanguages(computervision.En))
	if err != nil {
		return nil, fmt.Errorf("azure.Analyzer: recognizing %s: %w", doc.FileName, err)
	}

	return []domain.PageContent{{PageNumber: 1, TextLines: textLines(result)}}, nil
}

// EnhanceImage prepares a scan for OCR: grayscale, contrast, sharpening and
// gamma, downscaled to maxWidth when wider. The result is PNG-encoded.
func EnhanceImage(path string, maxWidth int) ([]byte, error) {
	src, err := imaging.Open(path, imaging.AutoOrientation(true))
	if err != nil {
		return nil, fmt.Errorf("opening image: %w", err)
	}

	var img image.Image = imaging.Grayscale(src)
	img = imaging.AdjustContrast(img, 30)
	img = imaging.Sharpen(img, 1.5)
	img = imaging.AdjustGamma(img, 1.2)
	if maxWidth > 0 && img.Bounds().Dx() > maxWidth {
		img = imaging.Resize(img, maxWidth, 0, imaging.Lanczos)
	}

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, img, imaging.PNG); err != nil {
		return nil, fmt.Errorf("encoding image: %w", err)
	}
	return buf.Bytes(), nil
}

type positionedLine struct {
	text string
	x, y int
}

// textLines flattens OCR regions into lines ordered top to bottom, then left to right.
func textLines(result computervision.OcrResult) []string {
	if result.Regions == nil {
		return nil
	}

	var lines []positionedLine
	for _, region := range *result.Regions {
		if region.Lines == nil {
			continue
		}
		for _, line := range *region.Lines {
			if line.Words == nil {
				continue
			}
			words := make([]string, 0, len(*line.Words))
			for _, w := range *line.Words {
				if w.Text != nil && *w.Text != "" {
					words = append(words, *w.Text)
				}
			}
			if len(words) == 0 {
				continue
			}
			pl := positionedLine{text: strings.Join(words, " ")}
			if line.BoundingBox != nil {
				pl.x, pl.y = boxOrigin(*line.BoundingBox)
			}
			lines = append(lines, pl)
		}
	}

	sort.SliceStable(lines, func(i, j int) bool {
		if lines[i].y != lines[j].y {
			return lines[i].y < lines[j].y
		}
		return lines[i].x < lines[j].x
	})

	out := make([]string, len(lines))
	for i, l := range lines {
		out[i] = l.text
	}
	return out
}

// boxOrigin parses the "left,top,width,height" bounding box format.
func boxOrigin(box string) (x, y int) {
	parts := strings.Split(box, ",")
	if len(parts) < 2 {
		return 0, 0
	}
	x, _ = strconv.Atoi(strings.TrimSpace(parts[0]))
	y, _ = strconv.Atoi(strings.TrimSpace(parts[1]))
	return x, y
}
