package htmlclean

import (
	"fmt"
	"net/url"
	"strings"

	"golang.org/x/net/html"
)

var noiseTags = map[string]struct{}{
	"script": {}, "style": {}, "nav": {}, "footer": {}, "header": {},
	"aside": {}, "iframe": {}, "form": {}, "button": {}, "input": {},
	"select": {}, "textarea": {}, "noscript": {}, "meta": {},
}

var noiseClasses = []string{
	"nav", "menu", "sidebar", "advertisement", "ad", "banner", "popup",
	"modal", "footer", "header", "navigation", "social", "share", "comment",
}

var noiseIDPrefixes = []string{
	"nav-", "menu-", "sidebar-", "ad-", "banner-", "footer-", "header-",
	"navigation-", "social-",
}

var blockTags = map[string]struct{}{
	"p": {}, "div": {}, "br": {}, "li": {}, "tr": {}, "section": {},
	"article": {}, "h1": {}, "h2": {}, "h3": {}, "h4": {}, "h5": {}, "h6": {},
	"table": {}, "ul": {}, "ol": {}, "blockquote": {}, "pre": {}, "dd": {}, "dt": {},
}

type Link struct {
	Text string `json:"text"`
	URL  string `json:"url"`
}

type Image struct {
	Alt string `json:"alt"`
	URL string `json:"url"`
}

type Heading struct {
	Level int    `json:"level"`
	Text  string `json:"text"`
}

// Structure is the page outline kept alongside the cleaned text
type Structure struct {
	Title      string         `json:"title"`
	Headings   []Heading      `json:"headings"`
	TagCounts  map[string]int `json:"tag_counts"`
	Paragraphs int            `json:"paragraphs"`
	HasTables  bool           `json:"has_tables"`
	HasLists   bool           `json:"has_lists"`
	HasForms   bool           `json:"has_forms"`
}

// Document is the cleaned view of one HTML page
type Document struct {
	Title     string
	Text      string
	Links     []Link
	Images    []Image
	Structure Structure
}

// Clean parses raw HTML, strips noise elements, and extracts text plus the
// page outline. baseURL resolves relative link and image targets; it may be
// empty.
func Clean(rawHTML, baseURL string) (*Document, error) {
	root, err := html.Parse(strings.NewReader(rawHTML))
	if err != nil {
		return nil, fmt.Errorf("parse html: %w", err)
	}

	var base *url.URL
	if baseURL != "" {
		base, _ = url.Parse(baseURL)
	}

	doc := &Document{Structure: Structure{TagCounts: make(map[string]int)}}
	var lines []string
	var current strings.Builder

	flush := func() {
		line := collapseSpaces(current.String())
		if line != "" {
			lines = append(lines, line)
		}
		current.Reset()
	}

	var walk func(n *html.Node)
	walk = func(n *html.Node) {
		switch n.Type {
		case html.CommentNode:
			return
		case html.TextNode:
			current.WriteString(n.Data)
			return
		case html.ElementNode:
			tag := n.Data
			if _, noisy := noiseTags[tag]; noisy {
				return
			}
			if hasNoiseClass(n) || hasNoiseID(n) {
				return
			}

			doc.Structure.TagCounts[tag]++
			switch tag {
			case "title":
				if doc.Title == "" {
					doc.Title = collapseSpaces(textOf(n))
				}
				return
			case "h1", "h2", "h3", "h4", "h5", "h6":
				doc.Structure.Headings = append(doc.Structure.Headings, Heading{
					Level: int(tag[1] - '0'),
					Text:  collapseSpaces(textOf(n)),
				})
			case "p":
				doc.Structure.Paragraphs++
			case "table":
				doc.Structure.HasTables = true
			case "ul", "ol":
				doc.Structure.HasLists = true
			case "a":
				if href := attr(n, "href"); href != "" {
					doc.Links = append(doc.Links, Link{
						Text: collapseSpaces(textOf(n)),
						URL:  resolve(base, href),
					})
				}
			case "img":
				if src := attr(n, "src"); src != "" {
					doc.Images = append(doc.Images, Image{
						Alt: attr(n, "alt"),
						URL: resolve(base, src),
					})
				}
			}

			if _, block := blockTags[tag]; block {
				flush()
			}
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
		if n.Type == html.ElementNode {
			if _, block := blockTags[n.Data]; block {
				flush()
			}
		}
	}
	walk(root)
	flush()

	doc.Structure.Title = doc.Title
	doc.Structure.HasForms = strings.Contains(rawHTML, "<form")
	doc.Text = strings.Join(lines, "\n")
	return doc, nil
}

// Quality scores how extractable a page looks, 0 to 100, with
// recommendations for low-scoring pages.
func (d *Document) Quality() (int, []string) {
	score := 0
	var recs []string

	if strings.TrimSpace(d.Title) != "" {
		score += 20
	} else {
		recs = append(recs, "page has no title")
	}
	if len(d.Structure.Headings) > 0 {
		score += 30
	} else {
		recs = append(recs, "page has no headings, content may be unstructured")
	}
	if d.Structure.Paragraphs > 0 {
		score += 20
	} else {
		recs = append(recs, "page has no paragraphs")
	}
	if len(d.Text) > 500 {
		score += 30
	} else {
		recs = append(recs, "page text is very short")
	}
	return score, recs
}

func hasNoiseClass(n *html.Node) bool {
	classes := strings.Fields(strings.ToLower(attr(n, "class")))
	for _, c := range classes {
		for _, noise := range noiseClasses {
			if c == noise {
				return true
			}
		}
	}
	return false
}

func hasNoiseID(n *html.Node) bool {
	id := strings.ToLower(attr(n, "id"))
	for _, prefix := range noiseIDPrefixes {
		if strings.HasPrefix(id, prefix) {
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

func textOf(n *html.Node) string {
	var sb strings.Builder
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.TextNode {
			sb.WriteString(n.Data)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return sb.String()
}

func collapseSpaces(s string) string {
	return strings.Join(strings.Fields(s), " ")
}

func resolve(base *url.URL, ref string) string {
	if base == nil {
		return ref
	}
	u, err := url.Parse(ref)
	if err != nil {
		return ref
	}
	return base.ResolveReference(u).String()
}
