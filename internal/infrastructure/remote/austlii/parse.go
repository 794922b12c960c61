package austlii

import (
	"io"
	"regexp"
	"strings"

	"golang.org/x/net/html"
)

// searchResult is one parsed entry of an AustLII results page.
type searchResult struct {
	title    string
	url      string
	citation string
	court    string
	date     string
	kind     string
}

// Case citations look like "[2020] VCAT 1391".
var citationPattern = regexp.MustCompile(`\[\d{4}\]\s+[A-Z]{2,10}\s+\d+`)

var datePattern = regexp.MustCompile(`^\d{1,2}\s+(?:January|February|March|April|May|June|July|August|September|October|November|December)\s+(?:19|20)\d{2}$`)

var blankRuns = regexp.MustCompile(`\n{3,}`)

// parseSearchResults reads an AustLII results page. Results live in
// <li class="multi"> elements whose first <a> carries title and href and
// whose <p class="meta"> carries court and date.
func parseSearchResults(r io.Reader, baseURL string) ([]searchResult, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return nil, err
	}

	var results []searchResult
	for _, li := range findAll(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "li" && hasClass(n, "multi")
	}) {
		if result, ok := parseResultItem(li, baseURL); ok {
			results = append(results, result)
		}
	}
	return results, nil
}

func parseResultItem(li *html.Node, baseURL string) (searchResult, bool) {
	link := findFirst(li, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "a"
	})
	if link == nil {
		return searchResult{}, false
	}
	title := strings.TrimSpace(nodeText(link))
	if title == "" {
		return searchResult{}, false
	}

	result := searchResult{
		title:    title,
		url:      absoluteURL(attr(link, "href"), baseURL),
		citation: citationPattern.FindString(title),
	}

	if meta := findFirst(li, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "p" && hasClass(n, "meta")
	}); meta != nil {
		if courtLink := findFirst(meta, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "a"
		}); courtLink != nil {
			court := strings.TrimSpace(nodeText(courtLink))
			if court != "" && !strings.Contains(court, "LawCite") {
				result.court = court
			}
		}
		for _, span := range findAll(meta, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "span" && hasClass(n, "break")
		}) {
			text := strings.TrimSpace(nodeText(span))
			if datePattern.MatchString(text) {
				result.date = text
				break
			}
		}
	}
	return result, true
}

// extractPageText pulls legislative text out of a page. AustLII puts it in an
// <article> tag; pages without one fall back to the body with chrome removed.
func extractPageText(r io.Reader) (string, error) {
	doc, err := html.Parse(r)
	if err != nil {
		return "", err
	}

	root := findFirst(doc, func(n *html.Node) bool {
		return n.Type == html.ElementNode && n.Data == "article"
	})
	if root == nil {
		root = findFirst(doc, func(n *html.Node) bool {
			return n.Type == html.ElementNode && n.Data == "body"
		})
		if root == nil {
			return "", nil
		}
	}

	var b strings.Builder
	collectText(root, &b)
	text := blankRuns.ReplaceAllString(strings.TrimSpace(b.String()), "\n\n")
	return text, nil
}

var skippedTags = map[string]bool{
	"nav":    true,
	"header": true,
	"footer": true,
	"script": true,
	"style":  true,
}

func collectText(n *html.Node, b *strings.Builder) {
	if n.Type == html.ElementNode && skippedTags[n.Data] {
		return
	}
	if n.Type == html.TextNode {
		if text := strings.TrimSpace(n.Data); text != "" {
			if b.Len() > 0 {
				b.WriteByte('\n')
			}
			b.WriteString(text)
		}
		return
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		collectText(child, b)
	}
}

func absoluteURL(href, baseURL string) string {
	switch {
	case href == "":
		return baseURL
	case strings.HasPrefix(href, "http"):
		return href
	case strings.HasPrefix(href, "/"):
		return baseURL + href
	default:
		return baseURL + "/" + href
	}
}

func findFirst(n *html.Node, match func(*html.Node) bool) *html.Node {
	if match(n) {
		return n
	}
	for child := n.FirstChild; child != nil; child = child.NextSibling {
		if found := findFirst(child, match); found != nil {
			return found
		}
	}
	return nil
}

func findAll(n *html.Node, match func(*html.Node) bool) []*html.Node {
	var out []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if match(n) {
			out = append(out, n)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return out
}

func nodeText(n *html.Node) string {
	var b strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			b.WriteString(n.Data)
		}
		for child := n.FirstChild; child != nil; child = child.NextSibling {
			walk(child)
		}
	}
	walk(n)
	return b.String()
}

func hasClass(n *html.Node, class string) bool {
	for _, field := range strings.Fields(attr(n, "class")) {
		if field == class {
			return true
		}
	}
	return false
}

func attr(n *html.Node, key string) string {
	for _, a := range n.Attr {
		if a.Key == key {
			return a.Val
		}
	}
	return ""
}
