package entity

import "net/url"

// FetchResult is the terminal response of a successful fetch. It is consumed
// by the parsing step and not retained afterwards.
type FetchResult struct {
	URL         *url.URL // final URL after redirects
	Status      int
	ContentType string
	Body        []byte
}
