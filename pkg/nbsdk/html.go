package nbsdk

import (
	"html"
	"regexp"
	"strings"
)

// HTMLValue is markup produced by cell code; the runtime marshals it with
// mime text/html.
type HTMLValue struct {
	markup string
}

// HTML wraps raw markup.
func HTML(s string) *HTMLValue { return &HTMLValue{markup: s} }

// RenderHTML returns the markup.
func (v *HTMLValue) RenderHTML() string { return v.markup }

func (v *HTMLValue) String() string { return v.markup }

var (
	mdCode   = regexp.MustCompile("`([^`]+)`")
	mdBold   = regexp.MustCompile(`\*\*([^*]+)\*\*`)
	mdItalic = regexp.MustCompile(`\*([^*]+)\*`)
)

// Md converts a small markdown subset (headings, bold, italic, inline code,
// paragraphs) to HTML. It covers what notebook text cells actually use; it
// is not a general markdown engine.
func Md(source string) *HTMLValue {
	var b strings.Builder
	for _, line := range strings.Split(source, "\n") {
		trimmed := strings.TrimSpace(line)
		switch {
		case trimmed == "":
			continue
		case strings.HasPrefix(trimmed, "### "):
			b.WriteString("<h3>" + mdInline(trimmed[4:]) + "</h3>")
		case strings.HasPrefix(trimmed, "## "):
			b.WriteString("<h2>" + mdInline(trimmed[3:]) + "</h2>")
		case strings.HasPrefix(trimmed, "# "):
			b.WriteString("<h1>" + mdInline(trimmed[2:]) + "</h1>")
		default:
			b.WriteString("<p>" + mdInline(trimmed) + "</p>")
		}
	}
	return HTML(b.String())
}

func mdInline(s string) string {
	out := html.EscapeString(s)
	out = mdCode.ReplaceAllString(out, "<code>$1</code>")
	out = mdBold.ReplaceAllString(out, "<strong>$1</strong>")
	out = mdItalic.ReplaceAllString(out, "<em>$1</em>")
	return out
}
