// Package textnorm reduces markup to clean, single-spaced visible text.
package textnorm

import (
	"regexp"
	"strings"
	"unicode/utf8"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

// Ellipsis terminates truncated text.
const Ellipsis = "..."

var (
	imageURLPattern  = regexp.MustCompile(`(?i)https?://\S+\.(?:jpg|jpeg|png|webp|gif)\S*`)
	imageHostPattern = regexp.MustCompile(`(?i)https?://img\S+`)
	tagPattern       = regexp.MustCompile(`<[A-Za-z!/?]`)
)

// Clean strips markup, drops image URLs and collapses whitespace. Only input
// with tag syntax is parsed as HTML; entities in tag-free text are left as
// they are, so Clean(Clean(s)) == Clean(s).
func Clean(s string) string {
	if strings.TrimSpace(s) == "" {
		return ""
	}
	// Entities can decode to new tags, so parse until no tag syntax is left.
	for tagPattern.MatchString(s) {
		doc, err := goquery.NewDocumentFromReader(strings.NewReader(s))
		if err != nil {
			break
		}
		text := Text(doc.Selection)
		if len(text) >= len(s) {
			break
		}
		s = text
	}
	return Scrub(s)
}

// Scrub removes image URLs and collapses whitespace in plain text.
func Scrub(s string) string {
	s = imageURLPattern.ReplaceAllString(s, "")
	s = imageHostPattern.ReplaceAllString(s, "")
	return strings.Join(strings.Fields(s), " ")
}

// Text joins the trimmed text nodes under sel with single spaces. Script and
// style contents are skipped.
func Text(sel *goquery.Selection) string {
	var parts []string
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.TextNode:
			if t := strings.TrimSpace(n.Data); t != "" {
				parts = append(parts, t)
			}
			return
		case html.ElementNode:
			if n.Data == "script" || n.Data == "style" {
				return
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	for _, n := range sel.Nodes {
		walk(n)
	}
	return strings.Join(parts, " ")
}

// Truncate cuts s to at most limit runes, appending Ellipsis when it cut.
func Truncate(s string, limit int) string {
	if limit <= 0 || utf8.RuneCountInString(s) <= limit {
		return s
	}
	runes := []rune(s)
	return string(runes[:limit]) + Ellipsis
}

// Len counts runes.
func Len(s string) int {
	return utf8.RuneCountInString(s)
}
