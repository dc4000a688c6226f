package scraper

import "context"

// Launcher acquires isolated browser sessions. Every call to Launch must
// produce a session that shares nothing with any other session.
type Launcher interface {
	Launch(ctx context.Context) (Session, error)
}

// Session is an exclusively-owned handle to one browser process and one page
// in it. The owner must call Close exactly once, on every exit path.
type Session interface {
	// Navigate loads url and blocks until the page's network is idle or ctx
	// is done. A ctx deadline is reported as an error wrapping
	// context.DeadlineExceeded.
	Navigate(ctx context.Context, url string) error

	// VisibleText returns document.body.innerText, or "" when the page has
	// no body.
	VisibleText(ctx context.Context) (string, error)

	// Close terminates the browser process and removes its profile.
	Close() error
}
