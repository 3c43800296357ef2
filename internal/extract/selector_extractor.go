// Package extract holds the configurable extractor and explorer used by the
// crawler binary.
package extract

import (
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/user/polite-crawler/internal/document"
	"github.com/user/polite-crawler/internal/entity"
	"github.com/user/polite-crawler/internal/repository"
	"github.com/user/polite-crawler/pkg/utils"
)

// leadingText keeps the readable prefix of a value and drops trailing markup
// such as "<br>" or nested tags.
var leadingText = regexp.MustCompile(`^[\p{L}\p{N}€.,+/ -]+`)

// FieldSpec binds a record field name to a CSS selector.
type FieldSpec struct {
	Name     string
	Selector string
}

type SelectorOptions struct {
	Fields []FieldSpec
	// LinkSelector picks anchors to follow. Empty disables discovery.
	LinkSelector string
	// FollowExternal allows discovered links on other hosts.
	FollowExternal bool
	// Raw disables the leading-text cleanup.
	Raw bool
}

// SelectorExtractor builds one record per row: the n-th match of every field
// selector forms row n. Rows stop at the shortest field.
type SelectorExtractor struct {
	opts SelectorOptions
	now  func() time.Time
}

var _ repository.Extractor[entity.Record] = (*SelectorExtractor)(nil)

func NewSelectorExtractor(opts SelectorOptions) *SelectorExtractor {
	return &SelectorExtractor{opts: opts, now: time.Now}
}

// FieldsFromPairs converts name/selector pairs as read from configuration.
func FieldsFromPairs(pairs [][2]string) []FieldSpec {
	out := make([]FieldSpec, 0, len(pairs))
	for _, p := range pairs {
		out = append(out, FieldSpec{Name: p[0], Selector: p[1]})
	}
	return out
}

func (e *SelectorExtractor) Extract(u *url.URL, doc *document.Document) ([]entity.Record, error) {
	if len(e.opts.Fields) == 0 {
		return nil, nil
	}
	selectors := make([]string, len(e.opts.Fields))
	for i, f := range e.opts.Fields {
		selectors[i] = f.Selector
	}
	columns, err := doc.Contents(selectors...)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrExtract, u, err)
	}

	rows := len(columns[0])
	for _, c := range columns[1:] {
		rows = min(rows, len(c))
	}

	scrapedAt := e.now()
	records := make([]entity.Record, 0, rows)
	for r := 0; r < rows; r++ {
		rec := entity.Record{URL: u.String(), ScrapedAt: scrapedAt}
		for i, f := range e.opts.Fields {
			rec.Fields = append(rec.Fields, entity.Field{Name: f.Name, Value: e.clean(columns[i][r])})
		}
		records = append(records, rec)
	}
	return records, nil
}

func (e *SelectorExtractor) clean(v string) string {
	v = strings.TrimSpace(v)
	if e.opts.Raw {
		return v
	}
	if m := leadingText.FindString(v); m != "" {
		return strings.TrimSpace(m)
	}
	return v
}

func (e *SelectorExtractor) Discover(u *url.URL, doc *document.Document) ([]*url.URL, error) {
	if e.opts.LinkSelector == "" {
		return nil, nil
	}
	links, err := doc.Links(u, e.opts.LinkSelector)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %w", repository.ErrExtract, u, err)
	}
	if e.opts.FollowExternal {
		return links, nil
	}
	out := links[:0]
	for _, l := range links {
		if utils.SameHost(u, l) {
			out = append(out, l)
		}
	}
	return out, nil
}
