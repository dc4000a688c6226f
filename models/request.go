package models

import "strings"

// InvalidURLMessage is returned to clients whose url field fails validation.
const InvalidURLMessage = "a valid url starting with http or https is required"

// ScrapeRequest is the payload for POST /scrape.
type ScrapeRequest struct {
	// URL is the page to render. Required; must start with "http".
	URL string `json:"url"`
}

// Validate checks the url invariant. A JSON body whose url is not a string
// never reaches here: binding fails first and is reported the same way.
func (r *ScrapeRequest) Validate() error {
	if r.URL == "" || !strings.HasPrefix(r.URL, "http") {
		return NewScrapeError(ErrKindValidation, InvalidURLMessage, nil)
	}
	return nil
}
