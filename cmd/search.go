package cmd

import (
	"context"
	"fmt"
	"io"
	"os"
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/chartes/dicotopo/pkg/config"
	"github.com/chartes/dicotopo/pkg/explorer"
	"github.com/chartes/dicotopo/pkg/jsonapi"
	"github.com/chartes/dicotopo/pkg/sanitize"
	"github.com/chartes/dicotopo/pkg/search"
	"github.com/urfave/cli/v3"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

// Define styles using lipgloss
var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("86")).
			Background(lipgloss.Color("235")).
			Padding(0, 1)

	headerStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("214"))

	cellStyle = lipgloss.NewStyle().Padding(0, 1)

	metaStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)

	noDataStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("240")).
			Italic(true)
)

const maxDescriptionWidth = 60

// SearchCommand creates the search command
func SearchCommand() *cli.Command {
	return &cli.Command{
		Name:  "search",
		Usage: "Search placenames from the terminal",
		Flags: []cli.Flag{
			&cli.StringFlag{
				Name:  "query",
				Usage: "Search query",
			},
			&cli.IntFlag{
				Name:  "size",
				Usage: "Maximum number of placenames requested",
			},
			&cli.StringFlag{
				Name:  "file",
				Usage: "Read a JSON:API search document from a file instead of the backend",
			},
			&cli.BoolFlag{
				Name:  "markers",
				Usage: "Also print the map markers derived from the result",
			},
		},
		Action: func(ctx context.Context, c *cli.Command) error {
			opts := searchOptions{
				query:   c.String("query"),
				size:    int(c.Int("size")),
				file:    c.String("file"),
				markers: c.Bool("markers"),
			}
			return searchPlacenames(ctx, os.Stdout, c.String("config"), opts)
		},
	}
}

type searchOptions struct {
	query   string
	size    int
	file    string
	markers bool
}

// searchPlacenames runs one search and prints the result table
func searchPlacenames(ctx context.Context, w io.Writer, configPath string, opts searchOptions) error {
	cfg, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	result, err := fetchSearchResult(ctx, cfg, opts)
	if err != nil {
		return err
	}

	title := opts.query
	if title == "" {
		title = opts.file
	}
	renderSearchResult(w, title, result, cfg.Explorer.PermalinkPrefix, opts.markers)
	return nil
}

func fetchSearchResult(ctx context.Context, cfg *config.Config, opts searchOptions) (*jsonapi.SearchResult, error) {
	if opts.file != "" {
		f, err := os.Open(opts.file)
		if err != nil {
			return nil, fmt.Errorf("opening search document: %w", err)
		}
		defer f.Close()
		return jsonapi.Decode(f)
	}

	if strings.TrimSpace(opts.query) == "" {
		return nil, fmt.Errorf("either --query or --file is required")
	}

	svc, err := newSearchService(cfg)
	if err != nil {
		return nil, err
	}
	if svc == nil {
		return nil, fmt.Errorf("no search endpoint configured, set [backend] search_endpoint or %s", config.EnvSearchEndpoint)
	}

	params := search.SearchParams{Query: strings.TrimSpace(opts.query), PageSize: opts.size}
	if params.PageSize > search.MaxPageSize {
		params.PageSize = search.MaxPageSize
	}
	return svc.Search(ctx, params)
}

// renderSearchResult prints result the way the explorer lists it: one row
// per placename in payload order, followed by the markers when asked.
func renderSearchResult(w io.Writer, title string, result *jsonapi.SearchResult, permalinkPrefix string, showMarkers bool) {
	caser := cases.Title(language.French)

	fmt.Fprintln(w, titleStyle.Render(fmt.Sprintf("%s: %s", caser.String("recherche"), title)))
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%d résultat(s)", result.Count())))

	if result.Count() == 0 {
		fmt.Fprintln(w, noDataStyle.Render("Aucun toponyme trouvé."))
	} else {
		t := table.New().
			Border(lipgloss.NormalBorder()).
			BorderStyle(metaStyle).
			Headers("Vedette", "Description", "Permalien").
			StyleFunc(func(row, col int) lipgloss.Style {
				if row == table.HeaderRow {
					return headerStyle.Padding(0, 1)
				}
				return cellStyle
			})
		for _, rec := range result.Data {
			t.Row(rec.Attributes.Label, truncate(sanitize.PlainText(rec.Attributes.Desc), maxDescriptionWidth), permalinkPrefix+rec.ID)
		}
		fmt.Fprintln(w, t.Render())
	}

	if !showMarkers {
		return
	}

	markers := explorer.DeriveMarkers(result)
	fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%d)", caser.String("marqueurs"), len(markers))))
	if len(markers) == 0 {
		fmt.Fprintln(w, noDataStyle.Render("Aucune commune localisée."))
		return
	}
	t := table.New().
		Border(lipgloss.NormalBorder()).
		BorderStyle(metaStyle).
		Headers("Commune", "INSEE", "Longitude", "Latitude").
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == table.HeaderRow {
				return headerStyle.Padding(0, 1)
			}
			return cellStyle
		})
	for _, m := range markers {
		t.Row(m.Title, m.CommuneID, formatCoordinate(m.Longitude()), formatCoordinate(m.Latitude()))
	}
	fmt.Fprintln(w, t.Render())
}

func formatCoordinate(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// truncate shortens s to at most n runes, marking the cut with an ellipsis.
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-1]) + "…"
}
