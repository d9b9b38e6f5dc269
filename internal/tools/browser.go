package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/chromedp/chromedp"
)

// BrowserTool drives a headless Chrome session for pages the plain
// scraper cannot read (heavy client-side rendering). The browser is
// started lazily on first use and shared across calls.
type BrowserTool struct {
	mu            sync.Mutex
	allocCtx      context.Context
	allocCancel   context.CancelFunc
	browserCtx    context.Context
	browserCancel context.CancelFunc
	started       bool
}

func NewBrowserTool() *BrowserTool {
	return &BrowserTool{}
}

func (b *BrowserTool) Name() string {
	return "browser"
}

func (b *BrowserTool) Description() string {
	return "Open a URL in a headless browser and return the rendered page text. Use for JavaScript-heavy pages that web_scrape cannot read."
}

func (b *BrowserTool) Parameters() map[string]any {
	return map[string]any{
		"type": "object",
		"properties": map[string]any{
			"url": map[string]any{
				"type":        "string",
				"description": "The URL to open",
			},
			"wait_seconds": map[string]any{
				"type":        "integer",
				"description": "Seconds to wait after navigation for scripts to settle (default 2, max 15)",
			},
		},
		"required": []string{"url"},
	}
}

func (b *BrowserTool) ensureStarted() error {
	b.mu.Lock()
	defer b.mu.Unlock()
	if b.started {
		return nil
	}

	opts := append(chromedp.DefaultExecAllocatorOptions[:],
		chromedp.NoSandbox,
		chromedp.Flag("headless", true),
		chromedp.Flag("no-first-run", true),
		chromedp.Flag("no-default-browser-check", true),
	)
	b.allocCtx, b.allocCancel = chromedp.NewExecAllocator(context.Background(), opts...)
	b.browserCtx, b.browserCancel = chromedp.NewContext(b.allocCtx)

	if err := chromedp.Run(b.browserCtx); err != nil {
		b.browserCancel()
		b.allocCancel()
		return err
	}
	b.started = true
	return nil
}

func (b *BrowserTool) Execute(ctx context.Context, input string) (string, error) {
	var args struct {
		URL         string `json:"url"`
		WaitSeconds int    `json:"wait_seconds"`
	}
	if err := json.Unmarshal([]byte(input), &args); err != nil {
		return "", fmt.Errorf("invalid input: %w", err)
	}
	if args.URL == "" {
		return "Error: url is required", nil
	}
	if args.WaitSeconds <= 0 {
		args.WaitSeconds = 2
	}
	if args.WaitSeconds > 15 {
		args.WaitSeconds = 15
	}

	if err := b.ensureStarted(); err != nil {
		return "", fmt.Errorf("failed to start browser: %w", err)
	}

	actionCtx, cancel := context.WithTimeout(b.browserCtx, 60*time.Second)
	defer cancel()

	var text string
	err := chromedp.Run(actionCtx,
		chromedp.Navigate(args.URL),
		chromedp.Sleep(time.Duration(args.WaitSeconds)*time.Second),
		chromedp.Text("body", &text, chromedp.ByQuery),
	)
	if err != nil {
		return fmt.Sprintf("Error rendering page: %v", err), nil
	}

	if len(text) > scraperContentLimit {
		text = text[:scraperContentLimit] + "\n... (content truncated) ..."
	}
	return text, nil
}

// Close shuts down the shared browser session.
func (b *BrowserTool) Close() {
	b.mu.Lock()
	defer b.mu.Unlock()
	if !b.started {
		return
	}
	b.browserCancel()
	b.allocCancel()
	b.started = false
}
