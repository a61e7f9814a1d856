package export

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/chromedp/cdproto/page"
	"github.com/chromedp/chromedp"

	"github.com/mesfabric/routecraft/internal/config"
)

const a4WidthInches = 8.27
const a4HeightInches = 11.69

// PDFRenderer renders HTML to PDF using the Chrome DevTools Protocol.
type PDFRenderer struct {
	timeout     time.Duration
	allocCtx    context.Context
	allocCancel context.CancelFunc
}

// NewPDFRenderer creates a renderer. With a remote Chrome URL configured it
// attaches to that instance; otherwise it launches a local headless browser.
func NewPDFRenderer(cfg config.ExportConfig) (*PDFRenderer, error) {
	timeout := time.Duration(cfg.RenderTimeout) * time.Second
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := &PDFRenderer{timeout: timeout}

	if cfg.ChromeURL != "" {
		r.allocCtx, r.allocCancel = chromedp.NewRemoteAllocator(context.Background(), cfg.ChromeURL)
		slog.Info("PDF renderer attached to remote Chrome", "url", cfg.ChromeURL)
		return r, nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.Flag("headless", true),
		chromedp.Flag("disable-gpu", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("disable-extensions", true),
		chromedp.Flag("disable-dev-shm-usage", true),
		chromedp.Flag("font-render-hinting", "none"),
	)
	r.allocCtx, r.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	slog.Info("PDF renderer using local headless Chrome")
	return r, nil
}

// Render converts an HTML document to A4 portrait PDF bytes.
func (r *PDFRenderer) Render(ctx context.Context, html string) ([]byte, error) {
	browserCtx, browserCancel := chromedp.NewContext(r.allocCtx)
	defer browserCancel()

	// chromedp only honors contexts descending from its own chain, so the
	// timeout wraps the browser context and the caller's cancellation is
	// forwarded into it.
	runCtx, cancel := context.WithTimeout(browserCtx, r.timeout)
	defer cancel()
	stop := context.AfterFunc(ctx, cancel)
	defer stop()

	start := time.Now()
	var pdfData []byte

	err := chromedp.Run(runCtx,
		chromedp.Navigate("about:blank"),
		chromedp.ActionFunc(func(ctx context.Context) error {
			frameTree, err := page.GetFrameTree().Do(ctx)
			if err != nil {
				return err
			}
			return page.SetDocumentContent(frameTree.Frame.ID, html).Do(ctx)
		}),
		chromedp.ActionFunc(func(ctx context.Context) error {
			data, _, err := page.PrintToPDF().
				WithPrintBackground(true).
				WithPaperWidth(a4WidthInches).
				WithPaperHeight(a4HeightInches).
				WithMarginTop(0.4).
				WithMarginRight(0.4).
				WithMarginBottom(0.4).
				WithMarginLeft(0.4).
				Do(ctx)
			if err != nil {
				return err
			}
			pdfData = data
			return nil
		}),
	)
	if err != nil {
		if runCtx.Err() == context.DeadlineExceeded {
			return nil, fmt.Errorf("pdf rendering timed out after %v", r.timeout)
		}
		return nil, fmt.Errorf("pdf rendering failed: %w", err)
	}
	if len(pdfData) == 0 {
		return nil, fmt.Errorf("generated pdf is empty")
	}

	slog.Debug("Rendered route sheet PDF", "bytes", len(pdfData), "duration", time.Since(start))
	return pdfData, nil
}

// Close releases the browser allocator.
func (r *PDFRenderer) Close() error {
	if r.allocCancel != nil {
		r.allocCancel()
	}
	return nil
}
