package html

import (
	"context"
	"html"
	"regexp"
	"strings"

	"github.com/custodia-labs/contract-agent/internal/core/domain"
	"github.com/custodia-labs/contract-agent/internal/core/ports/driven"
	"github.com/custodia-labs/contract-agent/internal/normalisers/plaintext"
)

var _ driven.Normaliser = (*Normaliser)(nil)

// Normaliser handles HTML contracts, such as saved web pages and e-sign exports.
type Normaliser struct{}

// New creates a new HTML normaliser.
func New() *Normaliser {
	return &Normaliser{}
}

// SupportedMIMETypes returns the MIME types this normaliser handles.
func (n *Normaliser) SupportedMIMETypes() []string {
	return []string{"text/html", "application/xhtml+xml"}
}

// Priority ranks HTML above the plain-text fallback.
func (n *Normaliser) Priority() int {
	return 50
}

// Normalise converts an HTML contract to plain text with one block
// element per line. List items keep a "- " marker and table cells are
// joined with " | " so schedules stay readable.
func (n *Normaliser) Normalise(_ context.Context, raw *domain.RawDocument) (*driven.NormaliseResult, error) {
	if raw == nil {
		return nil, domain.ErrInvalidInput
	}

	page := plaintext.Clean(string(raw.Content))
	return &driven.NormaliseResult{
		Title:   extractHTMLTitle(page),
		Content: stripHTML(page),
		Format:  "html",
	}, nil
}

var (
	titleTag   = regexp.MustCompile(`(?is)<title(\s[^>]*)?>(.*?)</title>`)
	headingTag = regexp.MustCompile(`(?is)<h1(\s[^>]*)?>(.*?)</h1>`)

	// invisible elements are dropped with their content.
	invisible = []*regexp.Regexp{
		regexp.MustCompile(`(?is)<head[^>]*>.*?</head>`),
		regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`),
		regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`),
		regexp.MustCompile(`(?is)<noscript[^>]*>.*?</noscript>`),
		regexp.MustCompile(`(?is)<svg[^>]*>.*?</svg>`),
		regexp.MustCompile(`(?s)<!--.*?-->`),
	}

	listItem  = regexp.MustCompile(`(?i)<li(\s[^>]*)?>`)
	tableCell = regexp.MustCompile(`(?i)</t[dh]>\s*<t[dh][^>]*>`)
	lineBreak = regexp.MustCompile(`(?i)<(br|hr)\s*/?>|</?(p|div|h[1-6]|li|ul|ol|tr|table|blockquote|pre|section|article)(\s[^>]*)?>`)
	anyTag    = regexp.MustCompile(`<[^>]+>`)
	spaceRun  = regexp.MustCompile(`[ \t]+`)
	nbsp      = strings.NewReplacer("\u00a0", " ")
)

// extractHTMLTitle returns the decoded <title>, or the first <h1> when the
// page has no title.
func extractHTMLTitle(page string) string {
	for _, re := range []*regexp.Regexp{titleTag, headingTag} {
		m := re.FindStringSubmatch(page)
		if m == nil {
			continue
		}
		title := html.UnescapeString(anyTag.ReplaceAllString(m[2], ""))
		if title = strings.TrimSpace(spaceRun.ReplaceAllString(title, " ")); title != "" {
			return title
		}
	}
	return ""
}

// stripHTML reduces markup to readable text, one block per line.
func stripHTML(page string) string {
	for _, re := range invisible {
		page = re.ReplaceAllString(page, "")
	}
	page = listItem.ReplaceAllString(page, "\n- ")
	page = tableCell.ReplaceAllString(page, " | ")
	page = lineBreak.ReplaceAllString(page, "\n")
	page = anyTag.ReplaceAllString(page, "")
	page = nbsp.Replace(html.UnescapeString(page))

	var lines []string
	for _, line := range strings.Split(page, "\n") {
		line = strings.TrimSpace(spaceRun.ReplaceAllString(line, " "))
		if line != "" && line != "-" {
			lines = append(lines, line)
		}
	}
	return strings.Join(lines, "\n")
}
