package components

import (
	"bytes"
	"context"
	"strings"
	"testing"

	"github.com/a-h/templ"
	"github.com/chartes/dicotopo/cmd/web/components/types"
	"github.com/chartes/dicotopo/pkg/explorer"
	"golang.org/x/net/html"
)

func render(t *testing.T, c templ.Component) string {
	t.Helper()
	var buf bytes.Buffer
	if err := c.Render(context.Background(), &buf); err != nil {
		t.Fatalf("render failed: %v", err)
	}
	return buf.String()
}

// parse returns the document tree of out, failing the test on invalid markup.
func parse(t *testing.T, out string) *html.Node {
	t.Helper()
	doc, err := html.Parse(strings.NewReader(out))
	if err != nil {
		t.Fatalf("parse failed: %v", err)
	}
	return doc
}

func findAll(n *html.Node, tag string) []*html.Node {
	var found []*html.Node
	var walk func(*html.Node)
	walk = func(n *html.Node) {
		if n.Type == html.ElementNode && n.Data == tag {
			found = append(found, n)
		}
		for c := n.FirstChild; c != nil; c = c.NextSibling {
			walk(c)
		}
	}
	walk(n)
	return found
}

func findByClass(n *html.Node, class string) *html.Node {
	if n.Type == html.ElementNode {
		for _, a := range n.Attr {
			if a.Key == "class" && strings.Contains(" "+a.Val+" ", " "+class+" ") {
				return n
			}
		}
	}
	for c := n.FirstChild; c != nil; c = c.NextSibling {
		if found := findByClass(c, class); found != nil {
			return found
		}
	}
	return nil
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

func TestSearchResultsEmpty(t *testing.T) {
	out := render(t, SearchResults(&types.ResultsData{Visible: true, Count: 0}))
	doc := parse(t, out)

	if got := textOf(findByClass(doc, "result-count")); got != "0 résultat(s)" {
		t.Errorf("expected empty count line, got %q", got)
	}
	tbody := findAll(doc, "tbody")
	if len(tbody) != 1 {
		t.Fatalf("expected one tbody, got %d", len(tbody))
	}
	if rows := findAll(tbody[0], "tr"); len(rows) != 0 {
		t.Errorf("expected empty tbody, got %d rows", len(rows))
	}
}

func TestSearchResultsNotRenderedBeforeSearch(t *testing.T) {
	if out := render(t, SearchResults(nil)); out != "" {
		t.Errorf("expected nothing, got %q", out)
	}
}

func TestSearchResultsRows(t *testing.T) {
	results := &types.ResultsData{
		Visible: false,
		Count:   2,
		Rows: []types.ResultRow{
			{ID: "DT01-2", Label: "Zèbre & co", Description: "<i>second</i>", Permalink: "/dico-topo/placenames/DT01-2"},
			{ID: "DT01-1", Label: "Ambérieu", Description: "<p>first</p>", Permalink: "/dico-topo/placenames/DT01-1"},
		},
	}
	out := render(t, SearchResults(results))
	doc := parse(t, out)

	panel := findByClass(doc, "search-results")
	if panel == nil {
		t.Fatal("missing results panel")
	}
	if attr(panel, "style") != "display: none" {
		t.Errorf("hidden panel must stay mounted with display none, got %q", attr(panel, "style"))
	}

	rows := findAll(findAll(doc, "tbody")[0], "tr")
	if len(rows) != 2 {
		t.Fatalf("expected 2 rows, got %d", len(rows))
	}
	if attr(rows[0], "data-placename-id") != "DT01-2" {
		t.Errorf("rows must keep payload order, first is %q", attr(rows[0], "data-placename-id"))
	}

	cells := findAll(rows[0], "td")
	if textOf(cells[0]) != "Zèbre & co" {
		t.Errorf("label not rendered as text: %q", textOf(cells[0]))
	}
	if len(findAll(cells[1], "i")) != 1 {
		t.Error("description markup must be rendered unescaped")
	}
	link := findAll(cells[2], "a")[0]
	if attr(link, "href") != "/dico-topo/placenames/DT01-2" || attr(link, "target") != "_blank" {
		t.Errorf("unexpected permalink %v", link.Attr)
	}
	if !strings.Contains(out, "Zèbre &amp; co") {
		t.Error("label must be escaped")
	}
}

func TestPlacenameCard(t *testing.T) {
	if out := render(t, PlacenameCard(types.CardData{})); out != "" {
		t.Errorf("card without url must render nothing, got %q", out)
	}

	out := render(t, PlacenameCard(types.CardData{URL: "https://x/api/placenames/42?a=1&b=2", Visible: true}))
	card := findByClass(parse(t, out), "placename-card")
	if card == nil {
		t.Fatal("missing card")
	}
	if attr(card, "data-url") != "https://x/api/placenames/42?a=1&b=2" {
		t.Errorf("unexpected card url %q", attr(card, "data-url"))
	}
	if attr(card, "style") != "display: block" {
		t.Errorf("unexpected card style %q", attr(card, "style"))
	}
}

func TestPlacenameMap(t *testing.T) {
	markers := []explorer.Marker{{Position: [2]float64{5.3597, 45.9584}, CommuneID: "01004", Title: "Ambérieu \"en\" Bugey"}}
	out := render(t, PlacenameMap(markers, "/select/", "/api/markers/ws"))
	m := findByClass(parse(t, out), "placename-map")
	if m == nil {
		t.Fatal("missing map")
	}
	want := `[{"position":[5.3597,45.9584],"communeId":"01004","title":"Ambérieu \"en\" Bugey"}]`
	if attr(m, "data-markers") != want {
		t.Errorf("unexpected markers attribute %q", attr(m, "data-markers"))
	}
	if attr(m, "data-select-path") != "/select/" || attr(m, "data-stream") != "/api/markers/ws" {
		t.Errorf("unexpected map attributes %v", m.Attr)
	}

	if out := render(t, PlacenameMap(nil, "/select/", "")); !strings.Contains(out, `data-markers="[]"`) {
		t.Errorf("expected empty marker list, got %q", out)
	}
}

func TestExplorerLayouts(t *testing.T) {
	base := types.PageData{
		Title:   "dicotopo",
		Version: "1.2.0",
		Card:    types.CardData{URL: "https://x/api/placenames/1", Visible: true},
		Results: &types.ResultsData{Visible: true},
	}

	t.Run("map mode", func(t *testing.T) {
		data := base
		data.MapEnabled = true
		data.SelectPath = "/select/"
		doc := parse(t, render(t, Explorer(data)))

		if len(findAll(doc, "form")) != 1 {
			t.Error("expected search form")
		}
		for _, class := range []string{"placename-map", "search-results", "placename-card", "is-half"} {
			if findByClass(doc, class) == nil {
				t.Errorf("missing %s", class)
			}
		}
	})

	t.Run("card only", func(t *testing.T) {
		doc := parse(t, render(t, Explorer(base)))

		if findByClass(doc, "placename-card") == nil {
			t.Error("missing card")
		}
		if len(findAll(doc, "form")) != 0 || findByClass(doc, "placename-map") != nil || findByClass(doc, "search-results") != nil {
			t.Error("single column layout must only contain the card")
		}
	})
}

func TestSearchFormError(t *testing.T) {
	out := render(t, SearchForm(`a"b`, "Search failed <now>"))
	doc := parse(t, out)

	input := findAll(doc, "input")[0]
	if attr(input, "value") != `a"b` {
		t.Errorf("query not echoed: %q", attr(input, "value"))
	}
	if got := textOf(findByClass(doc, "search-error")); got != "Search failed <now>" {
		t.Errorf("unexpected error line %q", got)
	}
}

func TestUnsafePermalinkIsSanitized(t *testing.T) {
	results := &types.ResultsData{
		Visible: true,
		Count:   1,
		Rows:    []types.ResultRow{{ID: "DT01-3", Label: "<b>x</b>", Permalink: "javascript:alert(1)"}},
	}
	out := render(t, SearchResults(results))
	link := findAll(parse(t, out), "a")[0]

	if attr(link, "href") != "about:invalid#TemplFailedSanitizationURL" {
		t.Errorf("javascript permalink must be rejected, got %q", attr(link, "href"))
	}
	if strings.Contains(out, "<b>x</b>") {
		t.Error("label must not be written as markup")
	}
}

func TestLayoutAssets(t *testing.T) {
	tests := []struct {
		name       string
		data       types.PageData
		wantScript []string
	}{
		{"map without card", types.PageData{MapEnabled: true}, []string{"https://unpkg.com/leaflet@1.9.4/dist/leaflet.js", "/static/map.js"}},
		{"card only", types.PageData{Card: types.CardData{URL: "https://x/1"}}, []string{"/static/card.js"}},
		{"map and card", types.PageData{MapEnabled: true, Card: types.CardData{URL: "https://x/1"}}, []string{"https://unpkg.com/leaflet@1.9.4/dist/leaflet.js", "/static/map.js", "/static/card.js"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.data.Title = "dicotopo"
			tt.data.Version = "1.2.0"
			doc := parse(t, render(t, Explorer(tt.data)))

			var got []string
			for _, s := range findAll(doc, "script") {
				got = append(got, attr(s, "src"))
			}
			if strings.Join(got, " ") != strings.Join(tt.wantScript, " ") {
				t.Errorf("scripts = %v, want %v", got, tt.wantScript)
			}
			if textOf(findAll(doc, "title")[0]) != "dicotopo" {
				t.Error("missing title")
			}
			if textOf(findByClass(doc, "footer")) != "dicotopo 1.2.0" {
				t.Errorf("unexpected footer %q", textOf(findByClass(doc, "footer")))
			}
			leaflet := false
			for _, l := range findAll(doc, "link") {
				if strings.Contains(attr(l, "href"), "leaflet") {
					leaflet = true
				}
			}
			if leaflet != tt.data.MapEnabled {
				t.Errorf("leaflet stylesheet loaded = %v with map %v", leaflet, tt.data.MapEnabled)
			}
		})
	}
}
