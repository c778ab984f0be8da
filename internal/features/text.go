package features

import (
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

var (
	urlInText    = regexp.MustCompile(`(https?://|www\.)\S+`)
	nonLetters   = regexp.MustCompile(`[^a-z\s]+`)
	multiSpace   = regexp.MustCompile(`\s+`)
	urgencyWords = []string{
		"verify", "urgent", "immediately", "suspended", "confirm",
		"security", "update", "login", "expire", "locked", "unusual activity",
	}
	credentialTextWords = []string{
		"password", "username", "account", "ssn", "credit card", "card number",
		"pin", "sign in", "bank",
	}
)

// VisibleText extracts human-visible text, skipping scripts and styles
func VisibleText(n *html.Node) string {
	var buf strings.Builder

	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode {
			switch n.Data {
			case "script", "style", "noscript", "template":
				return
			}
		}

		if n.Type == html.TextNode {
			text := strings.TrimSpace(n.Data)
			if text != "" {
				buf.WriteString(text)
				buf.WriteString(" ")
			}
		}

		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}

	walk(n)
	return strings.TrimSpace(multiSpace.ReplaceAllString(buf.String(), " "))
}

// CleanText lowercases text, drops URLs, digits and punctuation, and
// collapses whitespace
func CleanText(text string) string {
	text = strings.ToLower(text)
	text = urlInText.ReplaceAllString(text, " ")
	text = nonLetters.ReplaceAllString(text, " ")
	text = multiSpace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

func countOccurrences(text string, words []string) int {
	n := 0
	for _, w := range words {
		n += strings.Count(text, w)
	}
	return n
}

// ExtractNLP computes text features from the page's visible text
func ExtractNLP(page *Page) Record {
	cleaned := CleanText(page.Text)

	wordCount := 0
	if cleaned != "" {
		wordCount = len(strings.Fields(cleaned))
	}
	urgency := countOccurrences(cleaned, urgencyWords)

	return Record{
		"text_length":           float64(len(cleaned)),
		"word_count":            float64(wordCount),
		"urgency_word_count":    float64(urgency),
		"credential_word_count": float64(countOccurrences(cleaned, credentialTextWords)),
		"has_urgent_words":      boolFeature(urgency > 0),
	}
}
