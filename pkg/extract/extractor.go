package extract

import (
	"io"
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"

	errs "wallscraper/pkg/errors"
	"wallscraper/pkg/logger"
)

// Extractor pulls wallpaper URLs out of a gallery page
type Extractor struct {
	// Class is matched against the img class attribute, either as one of its
	// whitespace-separated tokens or as the whole attribute value.
	Class string
	// Marker is removed from every src to turn a thumbnail into the full image.
	Marker string
	// BaseURL, when set, resolves relative src values.
	BaseURL *url.URL

	logger logger.Logger
}

// New creates an Extractor. base may be empty to keep src values verbatim.
func New(class, marker, base string, log logger.Logger) (*Extractor, error) {
	if log == nil {
		log = logger.NewNopLogger()
	}

	e := &Extractor{
		Class:  class,
		Marker: marker,
		logger: log,
	}

	if base != "" {
		u, err := url.Parse(base)
		if err != nil {
			return nil, errs.New(errs.ErrorTypeParsing, 0, base, "invalid base URL", err)
		}
		e.BaseURL = u
	}

	return e, nil
}

// Extract returns the normalized src of every matching img, in document order.
// Duplicates are kept.
func (e *Extractor) Extract(r io.Reader) ([]string, error) {
	doc, err := goquery.NewDocumentFromReader(r)
	if err != nil {
		return nil, errs.New(errs.ErrorTypeParsing, 0, "", "failed to parse HTML", err)
	}

	urls := make([]string, 0)
	doc.Find("img").Each(func(i int, s *goquery.Selection) {
		if !e.matches(s) {
			return
		}

		src, ok := s.Attr("src")
		if !ok {
			e.logger.DebugWithFields("matching image has no src", map[string]interface{}{
				"index": i,
			})
			return
		}

		urls = append(urls, e.resolve(Normalize(src, e.Marker)))
	})

	e.logger.DebugWithFields("extracted image URLs", map[string]interface{}{
		"class": e.Class,
		"count": len(urls),
	})

	return urls, nil
}

func (e *Extractor) matches(s *goquery.Selection) bool {
	class, ok := s.Attr("class")
	if !ok {
		return false
	}
	if class == e.Class {
		return true
	}
	for _, token := range strings.Fields(class) {
		if token == e.Class {
			return true
		}
	}
	return false
}

func (e *Extractor) resolve(src string) string {
	if e.BaseURL == nil {
		return src
	}
	ref, err := url.Parse(src)
	if err != nil {
		return src
	}
	return e.BaseURL.ResolveReference(ref).String()
}

// Normalize removes every occurrence of marker from src.
// An empty marker leaves src unchanged.
func Normalize(src, marker string) string {
	if marker == "" {
		return src
	}
	return strings.ReplaceAll(src, marker, "")
}

// Dedupe drops repeated URLs, keeping the first occurrence of each
func Dedupe(urls []string) []string {
	seen := make(map[string]struct{}, len(urls))
	unique := make([]string, 0, len(urls))
	for _, u := range urls {
		if _, ok := seen[u]; ok {
			continue
		}
		seen[u] = struct{}{}
		unique = append(unique, u)
	}
	return unique
}
