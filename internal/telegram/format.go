package telegram

import (
	"fmt"
	"html"
	"strings"
	"time"

	"github.com/JakeFAU/ulytau-insight/internal/news"
)

// Button captions.
const (
	ReadMoreCaption = "Читать полностью 🔗"
	LoadMoreData    = "load_more"
)

// FormatItem renders an item card and its read-more button. The keyboard is
// nil when the item has no link.
func FormatItem(item news.Item) (string, *InlineKeyboard) {
	emoji := "📰"
	if item.Category == news.CategoryLaw {
		emoji = "⚖️"
	}
	score := max(item.Score, 1)

	var b strings.Builder
	fmt.Fprintf(&b, "%s <b>%s</b>\n", emoji, html.EscapeString(item.Title))
	fmt.Fprintf(&b, "Важность: %s\n\n", strings.Repeat("⭐", score))
	if item.Summary != "" {
		b.WriteString(html.EscapeString(item.Summary))
		b.WriteString("\n\n")
	}
	fmt.Fprintf(&b, "<i>Источник: %s</i>", html.EscapeString(item.Source))

	if item.Link == "" {
		return b.String(), nil
	}
	return b.String(), SingleButton(InlineButton{Text: ReadMoreCaption, URL: item.Link})
}

// LoadMoreKeyboard offers the next page of a /latest session.
func LoadMoreKeyboard(remaining int) *InlineKeyboard {
	return SingleButton(InlineButton{
		Text:         fmt.Sprintf("Показать ещё ⬇️ (%d)", remaining),
		CallbackData: LoadMoreData,
	})
}

// Digest is the weekly summary grouped for display.
type Digest struct {
	From      time.Time
	To        time.Time
	TopEvents []news.Item
	Laws      []news.Item
}

// FormatDigest renders a weekly digest as HTML.
func FormatDigest(d Digest) string {
	lines := []string{fmt.Sprintf("📅 <b>Главное за неделю (%s - %s)</b>\n", d.From.Format("02.01"), d.To.Format("02.01"))}
	if len(d.TopEvents) > 0 {
		lines = append(lines, "🏆 <b>Топ событий:</b>")
		for i, item := range d.TopEvents {
			lines = append(lines, fmt.Sprintf("%d. %s", i+1, link(item)))
		}
		lines = append(lines, "")
	}
	if len(d.Laws) > 0 {
		lines = append(lines, "⚖️ <b>Законы и решения:</b>")
		for _, item := range d.Laws {
			lines = append(lines, "• "+link(item))
		}
		lines = append(lines, "")
	}
	lines = append(lines, "<i>Нажмите /latest, чтобы увидеть ленту полностью.</i>")
	return strings.Join(lines, "\n")
}

func link(item news.Item) string {
	title := html.EscapeString(item.Title)
	if item.Link == "" {
		return title
	}
	return fmt.Sprintf("<a href=\"%s\">%s</a>", html.EscapeString(item.Link), title)
}
