package fetcher

import (
	"fmt"
	"log"
	"os"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
)

// RenderFetcher is the escalation tier: a headless browser for pages that
// build their catalog grid with JavaScript. The browser is launched lazily
// on first use, health-checked before every reuse and relaunched when the
// check fails.
type RenderFetcher struct {
	browser *rod.Browser
}

// NewRenderFetcher creates a RenderFetcher. No browser is launched until
// the first Fetch.
func NewRenderFetcher() *RenderFetcher {
	return &RenderFetcher{}
}

// ensureBrowser makes sure a healthy browser is available, relaunching a
// dead one.
func (rf *RenderFetcher) ensureBrowser() error {
	if rf.browser != nil {
		if _, err := rf.browser.Version(); err == nil {
			return nil
		}
		log.Println("Browser health check failed, relaunching...")
		rf.browser.Close()
		rf.browser = nil
	}

	browser, err := launchBrowser()
	if err != nil {
		return err
	}
	rf.browser = browser
	return nil
}

func launchBrowser() (*rod.Browser, error) {
	userDataDir := os.Getenv("BOT_DATA_DIR")
	if userDataDir == "" {
		userDataDir = "/tmp/dropwatch-data"
	}
	if err := os.MkdirAll(userDataDir, 0755); err != nil {
		log.Printf("Warning: Failed to create browser data directory %s: %v\n", userDataDir, err)
		userDataDir = ""
	}

	l := launcher.New().
		Headless(true).
		NoSandbox(true).
		Leakless(false).
		UserDataDir(userDataDir).
		Set("disable-blink-features", "AutomationControlled").
		Set("disable-dev-shm-usage").
		Set("disable-gpu").
		Set("no-first-run").
		Set("no-default-browser-check").
		Set("disable-extensions").
		Set("disable-background-networking").
		Set("mute-audio").
		Set("window-size", "1920,1080")

	// Prefer a system browser when one is installed.
	for _, path := range []string{
		"/usr/bin/google-chrome",
		"/usr/bin/google-chrome-stable",
		"/usr/bin/chromium",
		"/usr/bin/chromium-browser",
		"/snap/bin/chromium",
	} {
		if _, err := os.Stat(path); err == nil {
			l = l.Bin(path)
			break
		}
	}

	browserURL, err := l.Launch()
	if err != nil {
		return nil, fmt.Errorf("failed to launch browser: %w", err)
	}

	browser := rod.New().ControlURL(browserURL)
	if err := browser.Connect(); err != nil {
		return nil, fmt.Errorf("failed to connect to browser: %w", err)
	}

	return browser, nil
}

// Fetch implements the Fetcher interface.
func (rf *RenderFetcher) Fetch(url string) (string, error) {
	if err := rf.ensureBrowser(); err != nil {
		return "", err
	}

	var page *rod.Page
	var pageErr error
	func() {
		defer func() {
			if r := recover(); r != nil {
				pageErr = fmt.Errorf("panic while creating page: %v", r)
			}
		}()
		page = rf.browser.MustPage()
	}()
	if pageErr != nil {
		return "", pageErr
	}
	defer page.Close()

	if err := page.Navigate(url); err != nil {
		return "", fmt.Errorf("failed to navigate: %w", err)
	}

	page.WaitLoad()
	time.Sleep(3 * time.Second) // Give JavaScript time to render

	// Scroll down and back so lazy-loaded cards appear.
	if _, err := page.Eval(`() => window.scrollTo(0, document.body.scrollHeight)`); err != nil {
		log.Printf("Warning: Failed to scroll page: %v\n", err)
	}
	time.Sleep(2 * time.Second)
	if _, err := page.Eval(`() => window.scrollTo(0, 0)`); err == nil {
		time.Sleep(1 * time.Second)
	}

	if err := page.Timeout(10 * time.Second).WaitStable(500 * time.Millisecond); err != nil {
		log.Printf("Warning: Page did not stabilize within timeout, continuing anyway: %v\n", err)
	}

	html, err := page.HTML()
	if err != nil {
		return "", fmt.Errorf("failed to get HTML: %w", err)
	}
	if len(html) < 100 {
		return "", fmt.Errorf("rendered HTML too short (%d bytes)", len(html))
	}

	return html, nil
}

// Close releases the browser if one was launched.
func (rf *RenderFetcher) Close() error {
	if rf.browser != nil {
		err := rf.browser.Close()
		rf.browser = nil
		return err
	}
	return nil
}
