// Package document wraps parsed markup and exposes selector based extraction
// to extractors.
package document

import (
	"bytes"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
	"github.com/andybalholm/cascadia"
	"golang.org/x/net/html/charset"
)

var (
	// ErrSelector is returned when a selector string does not compile.
	ErrSelector = errors.New("invalid selector")
	// ErrParse is returned when a body cannot be turned into a Document.
	ErrParse = errors.New("parse document")
)

// Document is an immutable parsed page. Methods never modify the tree, so a
// Document may be shared read-only between extractors.
type Document struct {
	doc *goquery.Document
}

// Parse decodes body as HTML. contentType is the response Content-Type header
// and is only used to pick a character set; it may be empty.
func Parse(body []byte, contentType string) (*Document, error) {
	r, err := charset.NewReader(bytes.NewReader(body), contentType)
	if err != nil {
		return nil, fmt.Errorf("%w: decode charset: %w", ErrParse, err)
	}
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrParse, err)
	}
	return &Document{doc: doc}, nil
}

// ParseString is a convenience for tests and fixtures.
func ParseString(html string) (*Document, error) {
	return Parse([]byte(html), "text/html; charset=utf-8")
}

func compile(sel string) (cascadia.Selector, error) {
	m, err := cascadia.Compile(sel)
	if err != nil {
		return nil, fmt.Errorf("%w %q: %w", ErrSelector, sel, err)
	}
	return m, nil
}

// Contents returns, for each selector in order, the inner HTML of every
// matching element in document order. Trimming is left to the caller.
func (d *Document) Contents(selectors ...string) ([][]string, error) {
	out := make([][]string, 0, len(selectors))
	for _, sel := range selectors {
		m, err := compile(sel)
		if err != nil {
			return nil, err
		}
		matched := d.doc.FindMatcher(m)
		values := make([]string, 0, matched.Length())
		var renderErr error
		matched.EachWithBreak(func(_ int, s *goquery.Selection) bool {
			h, err := s.Html()
			if err != nil {
				renderErr = err
				return false
			}
			values = append(values, h)
			return true
		})
		if renderErr != nil {
			return nil, fmt.Errorf("%w: render: %w", ErrParse, renderErr)
		}
		out = append(out, values)
	}
	return out, nil
}

// Content is Contents for a single selector.
func (d *Document) Content(selector string) ([]string, error) {
	all, err := d.Contents(selector)
	if err != nil {
		return nil, err
	}
	return all[0], nil
}

// Text returns the combined text of every element matching selector.
func (d *Document) Text(selector string) ([]string, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	sel := d.doc.FindMatcher(m)
	values := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.Text())
	})
	return values, nil
}

// Attribute returns the value of attr for every element matching selector,
// using "" for elements that lack it.
func (d *Document) Attribute(selector, attr string) ([]string, error) {
	m, err := compile(selector)
	if err != nil {
		return nil, err
	}
	sel := d.doc.FindMatcher(m)
	values := make([]string, 0, sel.Length())
	sel.Each(func(_ int, s *goquery.Selection) {
		values = append(values, s.AttrOr(attr, ""))
	})
	return values, nil
}

// Links resolves the href of every element matching selector against base
// and returns the http(s) targets without fragments, deduplicated, in
// document order.
func (d *Document) Links(base *url.URL, selector string) ([]*url.URL, error) {
	hrefs, err := d.Attribute(selector, "href")
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{}, len(hrefs))
	links := make([]*url.URL, 0, len(hrefs))
	for _, href := range hrefs {
		href = strings.TrimSpace(href)
		if href == "" || strings.HasPrefix(href, "#") {
			continue
		}
		u, err := base.Parse(href)
		if err != nil {
			continue
		}
		if u.Scheme != "http" && u.Scheme != "https" {
			continue
		}
		u.Fragment = ""
		key := u.String()
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		links = append(links, u)
	}
	return links, nil
}
