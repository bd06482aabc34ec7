package ocr

import (
	"context"
	"log"
	"strings"
	"time"

	"github.com/markdave123-py/Docsage/internal/core"
)

// Chain runs OCR engines in priority order and takes the first non-empty
// result. Engine failures (errors, timeouts, panics from cgo backends) are
// absorbed: a broken backend must degrade ingestion, never abort it.
type Chain struct {
	engines []core.OcrEngine
	timeout time.Duration
}

func NewChain(engines ...core.OcrEngine) *Chain {
	available := make([]core.OcrEngine, 0, len(engines))
	for _, e := range engines {
		if e.Available() {
			available = append(available, e)
		} else {
			log.Printf("ocr: engine %s not available, skipping", e.Name())
		}
	}
	return &Chain{engines: available, timeout: 30 * time.Second}
}

// Configured reports whether any OCR backend survived the startup probe.
// The ingestion pipeline branches on this flag instead of re-probing per call.
func (c *Chain) Configured() bool {
	return len(c.engines) > 0
}

// Recognize returns the first non-empty text produced by the chain, or ""
// when every engine fails or finds nothing. It never returns an error.
func (c *Chain) Recognize(ctx context.Context, image []byte) string {
	if len(image) == 0 {
		return ""
	}
	for _, e := range c.engines {
		text := c.tryEngine(ctx, e, image)
		if strings.TrimSpace(text) != "" {
			return text
		}
	}
	return ""
}

func (c *Chain) tryEngine(ctx context.Context, e core.OcrEngine, image []byte) (text string) {
	defer func() {
		if r := recover(); r != nil {
			log.Printf("ocr: engine %s panicked: %v", e.Name(), r)
			text = ""
		}
	}()

	engineCtx, cancel := context.WithTimeout(ctx, c.timeout)
	defer cancel()

	text, err := e.Recognize(engineCtx, image)
	if err != nil {
		log.Printf("ocr: engine %s failed: %v", e.Name(), err)
		return ""
	}
	return text
}
