package scraper

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/use-agent/rendertext/config"
	"github.com/use-agent/rendertext/metrics"
	"github.com/use-agent/rendertext/models"
)

// fakeSession records how it was driven.
type fakeSession struct {
	NavigateFn    func(ctx context.Context, url string) error
	VisibleTextFn func(ctx context.Context) (string, error)

	navigated atomic.Int32
	closes    atomic.Int32
}

func (s *fakeSession) Navigate(ctx context.Context, url string) error {
	s.navigated.Add(1)
	if s.NavigateFn == nil {
		return nil
	}
	return s.NavigateFn(ctx, url)
}

func (s *fakeSession) VisibleText(ctx context.Context) (string, error) {
	if s.VisibleTextFn == nil {
		return "", nil
	}
	return s.VisibleTextFn(ctx)
}

func (s *fakeSession) Close() error {
	s.closes.Add(1)
	return nil
}

// fakeLauncher hands out sessions built by NewSession, one per Launch.
type fakeLauncher struct {
	NewSession func() *fakeSession
	LaunchErr  error

	mu       sync.Mutex
	sessions []*fakeSession
}

func (l *fakeLauncher) Launch(ctx context.Context) (Session, error) {
	if l.LaunchErr != nil {
		return nil, l.LaunchErr
	}
	s := l.NewSession()
	l.mu.Lock()
	l.sessions = append(l.sessions, s)
	l.mu.Unlock()
	return s, nil
}

func testScraperConfig() config.ScraperConfig {
	return config.ScraperConfig{
		NavigationTimeout: 30 * time.Second,
		IdleWindow:        500 * time.Millisecond,
		LaunchTimeout:     30 * time.Second,
		ExtractTimeout:    10 * time.Second,
	}
}

func staticText(text string) func() *fakeSession {
	return func() *fakeSession {
		return &fakeSession{
			VisibleTextFn: func(context.Context) (string, error) { return text, nil },
		}
	}
}

func TestRunner_Run_Success(t *testing.T) {
	l := &fakeLauncher{NewSession: staticText("Hello")}
	r := NewRunner(l, testScraperConfig())

	text, err := r.Run(context.Background(), "https://example.com")

	require.NoError(t, err)
	assert.Equal(t, "Hello", text)
	require.Len(t, l.sessions, 1)
	assert.Equal(t, int32(1), l.sessions[0].navigated.Load())
	assert.Equal(t, int32(1), l.sessions[0].closes.Load())
	assert.Equal(t, 0, r.ActiveSessions())
}

func TestRunner_Run_EmptyBody(t *testing.T) {
	l := &fakeLauncher{NewSession: staticText("")}
	r := NewRunner(l, testScraperConfig())

	text, err := r.Run(context.Background(), "https://example.com/blank")

	require.NoError(t, err)
	assert.Empty(t, text)
}

func TestRunner_Run_PassesURLToNavigate(t *testing.T) {
	var got string
	l := &fakeLauncher{NewSession: func() *fakeSession {
		return &fakeSession{NavigateFn: func(_ context.Context, url string) error {
			got = url
			return nil
		}}
	}}
	r := NewRunner(l, testScraperConfig())

	_, err := r.Run(context.Background(), "http://localhost:9999/app")

	require.NoError(t, err)
	assert.Equal(t, "http://localhost:9999/app", got)
}

func TestRunner_Run_LaunchFailure(t *testing.T) {
	l := &fakeLauncher{LaunchErr: errors.New("chromium not found")}
	r := NewRunner(l, testScraperConfig())

	text, err := r.Run(context.Background(), "https://example.com")

	assert.Empty(t, text)
	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrKindScrapeFailed, se.Kind)
	assert.Contains(t, err.Error(), "chromium not found")
	assert.Empty(t, l.sessions)
}

func TestRunner_Run_NavigationError_ClosesSession(t *testing.T) {
	navErr := errors.New("net::ERR_NAME_NOT_RESOLVED")
	l := &fakeLauncher{NewSession: func() *fakeSession {
		return &fakeSession{NavigateFn: func(context.Context, string) error { return navErr }}
	}}
	r := NewRunner(l, testScraperConfig())

	_, err := r.Run(context.Background(), "https://does-not-exist.invalid")

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrKindScrapeFailed, se.Kind)
	assert.ErrorIs(t, err, navErr)
	assert.Contains(t, err.Error(), "navigation failed")
	require.Len(t, l.sessions, 1)
	assert.Equal(t, int32(1), l.sessions[0].closes.Load())
	assert.Equal(t, 0, r.ActiveSessions())
}

func TestRunner_Run_EvaluationError_ClosesSession(t *testing.T) {
	l := &fakeLauncher{NewSession: func() *fakeSession {
		return &fakeSession{VisibleTextFn: func(context.Context) (string, error) {
			return "", errors.New("Execution context was destroyed")
		}}
	}}
	r := NewRunner(l, testScraperConfig())

	_, err := r.Run(context.Background(), "https://example.com")

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrKindScrapeFailed, se.Kind)
	assert.Contains(t, err.Error(), "text extraction failed")
	require.Len(t, l.sessions, 1)
	assert.Equal(t, int32(1), l.sessions[0].closes.Load())
}

func TestRunner_Run_NavigationTimeout(t *testing.T) {
	cfg := testScraperConfig()
	cfg.NavigationTimeout = 50 * time.Millisecond

	// A page that never goes idle: Navigate only returns when ctx expires.
	l := &fakeLauncher{NewSession: func() *fakeSession {
		return &fakeSession{NavigateFn: func(ctx context.Context, _ string) error {
			<-ctx.Done()
			return ctx.Err()
		}}
	}}
	r := NewRunner(l, cfg)

	start := time.Now()
	_, err := r.Run(context.Background(), "https://slow.example.com")
	elapsed := time.Since(start)

	var se *models.ScrapeError
	require.ErrorAs(t, err, &se)
	assert.Equal(t, models.ErrKindScrapeFailed, se.Kind)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
	assert.Contains(t, err.Error(), "timed out after 50ms")
	assert.Less(t, elapsed, time.Second)
	require.Len(t, l.sessions, 1)
	assert.Equal(t, int32(1), l.sessions[0].closes.Load())
}

func TestRunner_Run_Idempotent(t *testing.T) {
	l := &fakeLauncher{NewSession: staticText("static page\nsecond line")}
	r := NewRunner(l, testScraperConfig())

	first, err := r.Run(context.Background(), "https://example.com")
	require.NoError(t, err)
	second, err := r.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	assert.Equal(t, first, second)
	require.Len(t, l.sessions, 2)
	assert.NotSame(t, l.sessions[0], l.sessions[1])
	for _, s := range l.sessions {
		assert.Equal(t, int32(1), s.closes.Load())
	}
}

func TestRunner_Run_ConcurrentSessionsAreIsolated(t *testing.T) {
	release := make(chan struct{})
	var started sync.WaitGroup
	started.Add(3)

	l := &fakeLauncher{NewSession: func() *fakeSession {
		return &fakeSession{
			NavigateFn: func(context.Context, string) error {
				started.Done()
				<-release
				return nil
			},
			VisibleTextFn: func(context.Context) (string, error) { return "ok", nil },
		}
	}}
	r := NewRunner(l, testScraperConfig())

	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := r.Run(context.Background(), "https://example.com")
			assert.NoError(t, err)
		}()
	}

	started.Wait()
	assert.Equal(t, 3, r.ActiveSessions())
	close(release)
	wg.Wait()

	assert.Equal(t, 0, r.ActiveSessions())
	require.Len(t, l.sessions, 3)
	for _, s := range l.sessions {
		assert.Equal(t, int32(1), s.closes.Load())
	}
}

func TestRunner_Run_MetricsOffRegistersNothing(t *testing.T) {
	require.False(t, metrics.Enabled(), "no test in this package initialises metrics")

	l := &fakeLauncher{NewSession: staticText("Hello")}
	r := NewRunner(l, testScraperConfig())

	_, err := r.Run(context.Background(), "https://example.com")
	require.NoError(t, err)

	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, f := range families {
		assert.NotContains(t, f.GetName(), "rendertext_")
	}
}
