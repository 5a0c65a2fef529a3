package adapter

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"regexp"
	"strings"
	"time"

	"github.com/PuerkitoBio/goquery"

	"github.com/JakeFAU/ulytau-insight/internal/news"
	"github.com/JakeFAU/ulytau-insight/internal/textnorm"
)

// Listing defaults.
const (
	DefaultMinTextLen  = 25
	DefaultMaxEntries  = 10
	maxAncestorLookups = 4
)

var (
	dateClassPattern = regexp.MustCompile(`(?i)date|time|bi_date_pub`)
	dottedDate       = regexp.MustCompile(`\d{2}\.\d{2}\.\d{4}`)
)

// PathFilter keeps only hrefs containing Contains for sources on Host or one
// of its subdomains.
type PathFilter struct {
	Host     string `yaml:"host"`
	Contains string `yaml:"contains"`
}

// ListingConfig tunes link extraction from HTML listing pages.
type ListingConfig struct {
	MinTextLen  int
	MaxEntries  int
	PathFilters []PathFilter
}

// Listing extracts article links from an HTML index page.
type Listing struct {
	getter  news.Getter
	timeout time.Duration
	cfg     ListingConfig
}

// NewListing builds a listing adapter.
func NewListing(getter news.Getter, timeout time.Duration, cfg ListingConfig) *Listing {
	if cfg.MinTextLen <= 0 {
		cfg.MinTextLen = DefaultMinTextLen
	}
	if cfg.MaxEntries <= 0 {
		cfg.MaxEntries = DefaultMaxEntries
	}
	return &Listing{getter: getter, timeout: timeout, cfg: cfg}
}

// Fetch implements news.Adapter.
func (l *Listing) Fetch(ctx context.Context, src news.Source) ([]news.RawEntry, error) {
	body, err := l.getter.Get(ctx, src.URL, l.timeout)
	if err != nil {
		return nil, fmt.Errorf("get listing: %w", err)
	}
	doc, err := goquery.NewDocumentFromReader(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("parse listing: %w", err)
	}
	base, err := baseURL(src)
	if err != nil {
		return nil, err
	}
	required := l.requiredPath(base)

	var entries []news.RawEntry
	doc.Find("a[href]").EachWithBreak(func(_ int, a *goquery.Selection) bool {
		if len(entries) >= l.cfg.MaxEntries {
			return false
		}
		text := textnorm.Scrub(textnorm.Text(a))
		if textnorm.Len(text) < l.cfg.MinTextLen {
			return true
		}
		href := strings.TrimSpace(a.AttrOr("href", ""))
		if required != "" && !strings.Contains(href, required) {
			return true
		}
		link, ok := resolve(base, href)
		if !ok {
			return true
		}
		entries = append(entries, news.RawEntry{
			Title:     text,
			Link:      link,
			Summary:   text,
			Published: nearbyDate(a),
			Source:    src.Name,
			Plain:     true,
		})
		return true
	})
	return entries, nil
}

func (l *Listing) requiredPath(base *url.URL) string {
	host := strings.ToLower(base.Hostname())
	for _, f := range l.cfg.PathFilters {
		h := strings.ToLower(f.Host)
		if host == h || strings.HasSuffix(host, "."+h) {
			return f.Contains
		}
	}
	return ""
}

// nearbyDate walks up from the anchor looking for a publication date.
func nearbyDate(a *goquery.Selection) string {
	parent := a
	for i := 0; i < maxAncestorLookups; i++ {
		parent = parent.Parent()
		if parent.Length() == 0 {
			return ""
		}
		if t := parent.Find("time").First(); t.Length() > 0 {
			if dt, ok := t.Attr("datetime"); ok && strings.TrimSpace(dt) != "" {
				return strings.TrimSpace(dt)
			}
			return strings.TrimSpace(t.Text())
		}
		dated := parent.Find("[class]").FilterFunction(func(_ int, s *goquery.Selection) bool {
			return dateClassPattern.MatchString(s.AttrOr("class", ""))
		}).First()
		if dated.Length() > 0 {
			return strings.TrimSpace(dated.Text())
		}
		if m := dottedDate.FindString(parent.Text()); m != "" {
			return m
		}
	}
	return ""
}

func baseURL(src news.Source) (*url.URL, error) {
	raw := src.Base
	if raw == "" {
		raw = src.URL
	}
	u, err := url.Parse(raw)
	if err != nil {
		return nil, fmt.Errorf("parse base url: %w", err)
	}
	if u.Scheme == "" || u.Host == "" {
		return nil, fmt.Errorf("base url %q must be absolute", raw)
	}
	return &url.URL{Scheme: u.Scheme, Host: u.Host}, nil
}

func resolve(base *url.URL, href string) (string, bool) {
	ref, err := url.Parse(href)
	if err != nil {
		return "", false
	}
	abs := base.ResolveReference(ref)
	if abs.Scheme != "http" && abs.Scheme != "https" {
		return "", false
	}
	return abs.String(), true
}
