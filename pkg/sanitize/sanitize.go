// Package sanitize cleans the HTML descriptions sent by the search backend
// before they are injected into result tables.
package sanitize

import (
	"net/url"
	"strings"

	"golang.org/x/net/html"
	"golang.org/x/net/html/atom"
)

// allowedElements are kept with their children. Every attribute is
// dropped except href on links.
var allowedElements = map[atom.Atom]bool{
	atom.A:      true,
	atom.Abbr:   true,
	atom.B:      true,
	atom.Br:     true,
	atom.Cite:   true,
	atom.Em:     true,
	atom.I:      true,
	atom.Li:     true,
	atom.Ol:     true,
	atom.P:      true,
	atom.Small:  true,
	atom.Span:   true,
	atom.Strong: true,
	atom.Sub:    true,
	atom.Sup:    true,
	atom.U:      true,
	atom.Ul:     true,
}

// droppedElements are removed together with their content. The raw text
// elements are listed here too: their content is kept undecoded by the
// parser and would be escaped twice if unwrapped.
var droppedElements = map[atom.Atom]bool{
	atom.Script:    true,
	atom.Style:     true,
	atom.Iframe:    true,
	atom.Object:    true,
	atom.Embed:     true,
	atom.Noscript:  true,
	atom.Noembed:   true,
	atom.Noframes:  true,
	atom.Xmp:       true,
	atom.Plaintext: true,
	atom.Template:  true,
	atom.Textarea:  true,
	atom.Select:    true,
}

func bodyContext() *html.Node {
	return &html.Node{Type: html.ElementNode, Data: "body", DataAtom: atom.Body}
}

// Description returns desc restricted to inline formatting, paragraphs,
// lists and links with http, https, mailto or relative targets. Elements
// outside the allowlist are unwrapped; scripts and embedded content are
// removed.
func Description(desc string) string {
	if desc == "" {
		return ""
	}
	nodes, err := html.ParseFragment(strings.NewReader(desc), bodyContext())
	if err != nil {
		return html.EscapeString(PlainText(desc))
	}

	var sb strings.Builder
	for _, n := range nodes {
		writeClean(&sb, n)
	}
	return sb.String()
}

func writeClean(sb *strings.Builder, n *html.Node) {
	switch n.Type {
	case html.TextNode:
		sb.WriteString(html.EscapeString(n.Data))
	case html.ElementNode:
		if droppedElements[n.DataAtom] {
			return
		}
		if !allowedElements[n.DataAtom] {
			writeChildren(sb, n)
			return
		}

		sb.WriteByte('<')
		sb.WriteString(n.Data)
		if n.DataAtom == atom.A {
			if href, ok := safeHref(n); ok {
				sb.WriteString(` href="`)
				sb.WriteString(html.EscapeString(href))
				sb.WriteString(`" rel="noopener noreferrer"`)
			}
		}
		sb.WriteByte('>')
		if n.DataAtom == atom.Br {
			return
		}
		writeChildren(sb, n)
		sb.WriteString("</")
		sb.WriteString(n.Data)
		sb.WriteByte('>')
	default:
		// comments and doctypes are dropped
	}
}

func writeChildren(sb *strings.Builder, n *html.Node) {
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		writeClean(sb, c)
	}
}

func safeHref(n *html.Node) (string, bool) {
	for _, attr := range n.Attr {
		if attr.Namespace != "" || attr.Key != "href" {
			continue
		}
		u, err := url.Parse(strings.TrimSpace(attr.Val))
		if err != nil {
			return "", false
		}
		switch strings.ToLower(u.Scheme) {
		case "", "http", "https", "mailto":
			return u.String(), true
		default:
			return "", false
		}
	}
	return "", false
}

// PlainText extracts the text of an HTML fragment, collapsing whitespace.
func PlainText(fragment string) string {
	tokenizer := html.NewTokenizer(strings.NewReader(fragment))
	var sb strings.Builder
	skip := 0
	for {
		switch tokenizer.Next() {
		case html.ErrorToken:
			return strings.Join(strings.Fields(sb.String()), " ")
		case html.StartTagToken:
			name, _ := tokenizer.TagName()
			if droppedElements[atom.Lookup(name)] {
				skip++
			} else if atom.Lookup(name) == atom.Br || atom.Lookup(name) == atom.P {
				sb.WriteByte(' ')
			}
		case html.EndTagToken:
			name, _ := tokenizer.TagName()
			if droppedElements[atom.Lookup(name)] && skip > 0 {
				skip--
			}
		case html.TextToken:
			if skip == 0 {
				sb.Write(tokenizer.Text())
			}
		}
	}
}
