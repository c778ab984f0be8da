package features

import (
	"strings"

	"github.com/PuerkitoBio/goquery"
)

// ExtractBehavioral computes form-behavior heuristics
func ExtractBehavioral(page *Page) Record {
	forms := page.count("form")
	submits := page.countSubmitButtons()

	externalAction := false
	if page.Doc != nil {
		page.Doc.Find("form").EachWithBreak(func(_ int, s *goquery.Selection) bool {
			action, _ := s.Attr("action")
			if page.isExternal(action) {
				externalAction = true
				return false
			}
			return true
		})
	}

	text := strings.ToLower(page.Text)
	urgent := false
	for _, w := range urgencyWords {
		if strings.Contains(text, w) {
			urgent = true
			break
		}
	}

	return Record{
		"has_login_form":       boolFeature(forms > 0),
		"password_input_count": float64(page.countInputs("password")),
		"has_submit_button":    boolFeature(submits > 0),
		"hidden_input_count":   float64(page.countInputs("hidden")),
		"has_urgent_words":     boolFeature(urgent),
		"has_meta_refresh":     boolFeature(hasMetaRefresh(page)),
		"form_action_external": boolFeature(externalAction),
	}
}
