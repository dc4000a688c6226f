package scraper

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"
	"sync"
	"time"

	"github.com/go-rod/rod"
	"github.com/go-rod/rod/lib/launcher"
	"github.com/go-rod/rod/lib/launcher/flags"
	"github.com/go-rod/rod/lib/proto"
	"github.com/go-rod/stealth"
	"github.com/use-agent/rendertext/config"
	"github.com/ysmood/gson"
)

// visibleTextJS reads the rendered text of the body the way a user would
// copy it: innerText honours CSS visibility and layout, unlike textContent.
const visibleTextJS = `() => {
	const body = document.body;
	if (!body) return '';
	return body.innerText;
}`

// closeTimeout bounds the polite Browser.close call before the process is
// killed outright.
const closeTimeout = 5 * time.Second

// Ensure RodLauncher implements Launcher at compile time.
var _ Launcher = (*RodLauncher)(nil)

// RodLauncher starts one dedicated Chromium process per session.
// It is safe for concurrent use: it holds only read-only configuration.
type RodLauncher struct {
	browserCfg config.BrowserConfig
	idleWindow time.Duration
}

// NewRodLauncher creates a RodLauncher. idleWindow is how long the page must
// have no in-flight requests before navigation counts as finished.
func NewRodLauncher(browserCfg config.BrowserConfig, idleWindow time.Duration) *RodLauncher {
	return &RodLauncher{browserCfg: browserCfg, idleWindow: idleWindow}
}

// newLauncher builds the Chromium command line. Each launcher gets its own
// temporary user data dir, so sessions never share cookies or cache.
func (rl *RodLauncher) newLauncher(ctx context.Context) *launcher.Launcher {
	l := launcher.New().
		Context(ctx).
		Headless(rl.browserCfg.Headless).
		NoSandbox(rl.browserCfg.NoSandbox).
		Leakless(true)

	if rl.browserCfg.NoSandbox {
		l.Set(flags.Flag("disable-setuid-sandbox"))
	}
	// rod enables disable-dev-shm-usage by default, so it has to be removed
	// explicitly when turned off.
	if rl.browserCfg.DisableDevShm {
		l.Set(flags.Flag("disable-dev-shm-usage"))
	} else {
		l.Delete(flags.Flag("disable-dev-shm-usage"))
	}
	if rl.browserCfg.BrowserBin != "" {
		l = l.Bin(rl.browserCfg.BrowserBin)
	}
	if rl.browserCfg.Proxy != "" {
		l = l.Proxy(rl.browserCfg.Proxy)
	}

	l.Set(flags.Flag("disable-background-timer-throttling"))
	l.Set(flags.Flag("disable-backgrounding-occluded-windows"))
	l.Set(flags.Flag("disable-renderer-backgrounding"))
	l.Set(flags.Flag("disable-component-update"))
	l.Set(flags.Flag("disable-default-apps"))
	l.Set(flags.Flag("disable-extensions"))
	l.Set(flags.Flag("no-first-run"))
	return l
}

// Launch starts Chromium, connects to it and opens a blank page.
// On any failure the partially started process is killed before returning.
func (rl *RodLauncher) Launch(ctx context.Context) (Session, error) {
	l := rl.newLauncher(ctx)

	controlURL, err := l.Launch()
	if err != nil {
		l.Kill()
		_ = os.RemoveAll(l.Get(flags.UserDataDir))
		return nil, fmt.Errorf("launching browser: %w", err)
	}

	browser := rod.New().ControlURL(controlURL)
	if err := browser.Connect(); err != nil {
		l.Kill()
		l.Cleanup()
		return nil, fmt.Errorf("connecting to browser: %w", err)
	}

	sess := &rodSession{
		launcher:   l,
		browser:    browser,
		idleWindow: rl.idleWindow,
	}

	page, err := browser.Page(proto.TargetCreateTarget{})
	if err != nil {
		_ = sess.Close()
		return nil, fmt.Errorf("opening page: %w", err)
	}
	sess.page = page

	if rl.browserCfg.Stealth {
		if _, evalErr := page.EvalOnNewDocument(stealth.JS); evalErr != nil {
			slog.Warn("stealth injection failed, proceeding without stealth",
				"error", evalErr,
			)
		}
	}

	if len(rl.browserCfg.ExtraHeaders) > 0 {
		if err := (proto.NetworkSetExtraHTTPHeaders{
			Headers: toHeadersMap(rl.browserCfg.ExtraHeaders),
		}).Call(page); err != nil {
			_ = sess.Close()
			return nil, fmt.Errorf("setting extra headers: %w", err)
		}
	}

	slog.Debug("browser session started", "pid", l.PID())
	return sess, nil
}

// rodSession owns one Chromium process and a single page in it.
type rodSession struct {
	launcher   *launcher.Launcher
	browser    *rod.Browser
	page       *rod.Page
	idleWindow time.Duration

	closeOnce sync.Once
	closeErr  error
}

// Navigate loads url and waits for network idle.
//
// The idle listener is registered before Navigate: it subscribes to CDP
// network events, and registering it afterwards would miss the requests
// fired during the initial load and report a false idle.
func (s *rodSession) Navigate(ctx context.Context, url string) error {
	p := s.page.Context(ctx)

	waitIdle := p.WaitRequestIdle(s.idleWindow, nil, nil, nil)

	if err := p.Navigate(url); err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return fmt.Errorf("navigate: %w", ctxErr)
		}
		return fmt.Errorf("navigate: %w", err)
	}

	// waitIdle returns either when the network has been quiet for
	// idleWindow or when ctx is done; only ctx tells the two apart.
	waitIdle()
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("waiting for network idle: %w", err)
	}
	return nil
}

// VisibleText evaluates body.innerText in the page.
func (s *rodSession) VisibleText(ctx context.Context) (string, error) {
	res, err := s.page.Context(ctx).Eval(visibleTextJS)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return "", fmt.Errorf("evaluate innerText: %w", ctxErr)
		}
		return "", fmt.Errorf("evaluate innerText: %w", err)
	}
	return res.Value.Str(), nil
}

// Close asks the browser to exit, then kills the process tree and removes
// the user data dir. Safe to call more than once.
func (s *rodSession) Close() error {
	s.closeOnce.Do(func() {
		ctx, cancel := context.WithTimeout(context.Background(), closeTimeout)
		defer cancel()

		var errs []error
		if err := s.browser.Context(ctx).Close(); err != nil {
			errs = append(errs, fmt.Errorf("closing browser: %w", err))
		}
		s.launcher.Kill()
		s.launcher.Cleanup()
		s.closeErr = errors.Join(errs...)
	})
	return s.closeErr
}

// toHeadersMap converts a plain string map to the proto.NetworkHeaders type
// (map[string]gson.JSON) required by NetworkSetExtraHTTPHeaders.
func toHeadersMap(headers map[string]string) proto.NetworkHeaders {
	m := make(proto.NetworkHeaders, len(headers))
	for k, v := range headers {
		m[k] = gson.New(v)
	}
	return m
}
