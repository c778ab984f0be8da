package features

import (
	"regexp"
	"strings"

	"github.com/PuerkitoBio/goquery"
)

var (
	suspiciousMarkupWords = []string{"login", "verify", "account", "secure", "update", "bank", "signin", "password"}
	suspiciousJS          = regexp.MustCompile(`eval\(|document\.write|unescape\(|atob\(|fromcharcode`)
)

// ExtractHTML computes structural features of the page markup
func ExtractHTML(page *Page) Record {
	lower := strings.ToLower(page.Raw)

	externalLinks := 0
	hiddenIframes := 0
	if page.Doc != nil {
		page.Doc.Find("a[href]").Each(func(_ int, s *goquery.Selection) {
			if href, ok := s.Attr("href"); ok && page.isExternal(href) {
				externalLinks++
			}
		})
		page.Doc.Find("iframe").Each(func(_ int, s *goquery.Selection) {
			if isHiddenFrame(s) {
				hiddenIframes++
			}
		})
	}

	hasSuspiciousWords := false
	for _, w := range suspiciousMarkupWords {
		if strings.Contains(lower, w) {
			hasSuspiciousWords = true
			break
		}
	}

	return Record{
		"form_count":           float64(page.count("form")),
		"password_input_count": float64(page.countInputs("password")),
		"iframe_count":         float64(page.count("iframe")),
		"hidden_iframe_count":  float64(hiddenIframes),
		"external_link_count":  float64(externalLinks),
		"has_suspicious_words": boolFeature(hasSuspiciousWords),
		"html_length":          float64(len(page.Raw)),
		"script_count":         float64(page.count("script")),
		"hidden_input_count":   float64(page.countInputs("hidden")),
		"meta_refresh":         boolFeature(hasMetaRefresh(page)),
		"suspicious_js":        boolFeature(suspiciousJS.MatchString(lower)),
	}
}

func isHiddenFrame(s *goquery.Selection) bool {
	width, _ := s.Attr("width")
	height, _ := s.Attr("height")
	if strings.TrimSpace(width) == "0" || strings.TrimSpace(height) == "0" {
		return true
	}
	style, _ := s.Attr("style")
	style = strings.ReplaceAll(strings.ToLower(style), " ", "")
	return strings.Contains(style, "display:none") || strings.Contains(style, "visibility:hidden")
}

func hasMetaRefresh(page *Page) bool {
	if page.Doc == nil {
		return false
	}
	found := false
	page.Doc.Find("meta").EachWithBreak(func(_ int, s *goquery.Selection) bool {
		equiv, _ := s.Attr("http-equiv")
		if strings.EqualFold(strings.TrimSpace(equiv), "refresh") {
			found = true
			return false
		}
		return true
	})
	return found
}
