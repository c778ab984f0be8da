package features

import (
	"net/url"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// Page is a parsed HTML document shared by the content-based extractors
type Page struct {
	Raw  string
	URL  *url.URL
	Doc  *goquery.Document
	Text string // visible text, whitespace-normalized
}

// ParsePage parses htmlContent fetched from pageURL. Parsing never fails:
// unparseable input produces an empty document.
func ParsePage(htmlContent string, pageURL string) *Page {
	page := &Page{Raw: htmlContent, URL: parseLoose(pageURL)}

	doc, err := goquery.NewDocumentFromReader(strings.NewReader(htmlContent))
	if err != nil {
		doc, _ = goquery.NewDocumentFromReader(strings.NewReader(""))
	}
	page.Doc = doc

	if doc != nil && len(doc.Nodes) > 0 {
		page.Text = VisibleText(doc.Nodes[0])
	}
	return page
}

// host returns the page host, or "" if unknown
func (p *Page) host() string {
	if p.URL == nil {
		return ""
	}
	return strings.ToLower(p.URL.Hostname())
}

// isExternal reports whether href points at a different host than the page.
// Relative references resolve to the page itself.
func (p *Page) isExternal(href string) bool {
	href = strings.TrimSpace(href)
	lower := strings.ToLower(href)
	if !strings.HasPrefix(lower, "http://") && !strings.HasPrefix(lower, "https://") && !strings.HasPrefix(lower, "//") {
		return false
	}

	target, err := url.Parse(href)
	if err != nil {
		return false
	}
	if p.URL != nil {
		target = p.URL.ResolveReference(target)
	}

	targetHost := strings.ToLower(target.Hostname())
	return targetHost != "" && targetHost != p.host()
}

func (p *Page) count(selector string) int {
	if p.Doc == nil {
		return 0
	}
	return p.Doc.Find(selector).Length()
}

// countInputs counts <input> elements whose type matches kind, case-insensitively
func (p *Page) countInputs(kind string) int {
	if p.Doc == nil {
		return 0
	}
	n := 0
	p.Doc.Find("input[type]").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); strings.EqualFold(strings.TrimSpace(t), kind) {
			n++
		}
	})
	return n
}

// countSubmitButtons counts submit inputs and buttons
func (p *Page) countSubmitButtons() int {
	if p.Doc == nil {
		return 0
	}
	n := p.countInputs("submit")
	p.Doc.Find("button[type]").Each(func(_ int, s *goquery.Selection) {
		if t, _ := s.Attr("type"); strings.EqualFold(strings.TrimSpace(t), "submit") {
			n++
		}
	})
	return n
}
