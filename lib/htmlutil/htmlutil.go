package htmlutil

import (
	"bytes"
	"net/url"
	"regexp"
	"strings"
	"unicode"

	"github.com/PuerkitoBio/goquery"
	"golang.org/x/net/html"
)

func GetText(node *html.Node) string {
	var buffer bytes.Buffer
	getTextRecursive(node, &buffer)
	return buffer.String()
}

func getTextRecursive(node *html.Node, buffer *bytes.Buffer) {
	if node == nil {
		return
	}
	if node.Type == html.TextNode {
		buffer.WriteString(node.Data)
		return
	}
	child := node.FirstChild
	for child != nil {
		getTextRecursive(child, buffer)
		child = child.NextSibling
	}
}

var innerWhitespace = regexp.MustCompile(`\s\s+`)

func removeNonPrintable(s string) string {
	newStr := strings.Builder{}
	for _, c := range s {
		if unicode.IsPrint(c) {
			newStr.WriteRune(c)
		}
	}
	return newStr.String()
}

// CellText returns the trimmed, whitespace-collapsed text of a selection.
func CellText(sel *goquery.Selection) string {
	text := removeNonPrintable(sel.Text())
	text = innerWhitespace.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

type Anchor struct {
	Name string
	Href string
}

// GetAnchors collects the links under a selection, resolving hrefs
// against base when given.
func GetAnchors(sel *goquery.Selection, base *url.URL) []Anchor {
	var anchors []Anchor
	sel.Find("a").Each(func(_ int, a *goquery.Selection) {
		href := a.AttrOr("href", "")
		if href == "" {
			return
		}
		if base != nil {
			parsed, err := url.Parse(href)
			if err == nil {
				href = base.ResolveReference(parsed).String()
			}
		}
		anchors = append(anchors, Anchor{
			Name: CellText(a),
			Href: href,
		})
	})
	return anchors
}
