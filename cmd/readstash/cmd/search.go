package cmd

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/mattn/go-isatty"
	"github.com/spf13/cobra"

	"github.com/readstash/readstash/internal/library"
	"github.com/readstash/readstash/internal/store"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit     int
	cursor    string
	format    string
	ascending bool
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search [query]",
		Short: "Search the library",
		Long: `Search saved pages with full-text queries and filters.

Filter tokens combine freely with search terms:

  in:all|archive|inbox     containment
  type:article|website|... page type
  is:read|unread           reading state
  label:a,b                any of the labels (repeat to require several)
  -label:a,b               exclude labels
  has:shared|archived|file field presence

Examples:
  readstash search "distributed systems"
  readstash search in:archive is:unread
  readstash search label:tech,golang -label:draft concurrency`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSearch(cmd, strings.Join(args, " "), opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 uses the configured default)")
	cmd.Flags().StringVar(&opts.cursor, "cursor", "", "Continue from a previous page's cursor")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "", "Output format: text, json (default: text on a terminal, json otherwise)")
	cmd.Flags().BoolVar(&opts.ascending, "oldest-first", false, "Sort oldest saved first")

	return cmd
}

// searchOutput is the JSON shape of one search response.
type searchOutput struct {
	Items       []searchOutputItem `json:"items"`
	TotalCount  uint64             `json:"totalCount"`
	HasNextPage bool               `json:"hasNextPage"`
	NextCursor  string             `json:"nextCursor,omitempty"`
}

type searchOutputItem struct {
	ID              string    `json:"id"`
	Title           string    `json:"title"`
	URL             string    `json:"url"`
	PageType        string    `json:"pageType"`
	Labels          []string  `json:"labels,omitempty"`
	ReadingProgress float64   `json:"readingProgress"`
	SavedAt         time.Time `json:"savedAt"`
	Archived        bool      `json:"archived"`
}

func runSearch(cmd *cobra.Command, query string, opts searchOptions) error {
	lib, _, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	res, err := lib.SearchPages(cmd.Context(), library.SearchRequest{
		UserID:    userID,
		Query:     query,
		After:     opts.cursor,
		First:     opts.limit,
		Ascending: opts.ascending,
	})
	if err != nil {
		return err
	}

	format := opts.format
	if format == "" {
		if isatty.IsTerminal(os.Stdout.Fd()) || isatty.IsCygwinTerminal(os.Stdout.Fd()) {
			format = "text"
		} else {
			format = "json"
		}
	}

	switch format {
	case "json":
		return printSearchJSON(cmd, res)
	case "text":
		printSearchText(cmd, res)
		return nil
	default:
		return fmt.Errorf("unknown format %q (want text or json)", format)
	}
}

func printSearchJSON(cmd *cobra.Command, res *library.SearchResult) error {
	out := searchOutput{
		Items:       make([]searchOutputItem, 0, len(res.Items)),
		TotalCount:  res.TotalCount,
		HasNextPage: res.HasNextPage,
		NextCursor:  res.NextCursor,
	}
	for _, item := range res.Items {
		out.Items = append(out.Items, searchOutputItem{
			ID:              item.ID,
			Title:           item.Title,
			URL:             item.URL,
			PageType:        string(item.PageType),
			Labels:          labelNames(item.Labels),
			ReadingProgress: item.ReadingProgress,
			SavedAt:         item.SavedAt,
			Archived:        item.ArchivedAt != nil,
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(out)
}

func printSearchText(cmd *cobra.Command, res *library.SearchResult) {
	w := cmd.OutOrStdout()

	if len(res.Items) == 0 {
		fmt.Fprintln(w, "No results.")
		return
	}

	for _, item := range res.Items {
		title := item.Title
		if title == "" {
			title = "(untitled)"
		}
		fmt.Fprintf(w, "%s\n  %s\n", title, item.URL)

		var meta []string
		meta = append(meta, string(item.PageType))
		meta = append(meta, fmt.Sprintf("saved %s", item.SavedAt.Format("2006-01-02")))
		if item.ArchivedAt != nil {
			meta = append(meta, "archived")
		}
		if item.ReadingProgress > 0 {
			meta = append(meta, fmt.Sprintf("%.0f%% read", item.ReadingProgress))
		}
		if names := labelNames(item.Labels); len(names) > 0 {
			meta = append(meta, "#"+strings.Join(names, " #"))
		}
		fmt.Fprintf(w, "  %s\n  id: %s\n\n", strings.Join(meta, " · "), item.ID)
	}

	fmt.Fprintf(w, "%d of %d results", len(res.Items), res.TotalCount)
	if res.HasNextPage {
		fmt.Fprintf(w, " (more with --cursor %s)", res.NextCursor)
	}
	fmt.Fprintln(w)
}

func labelNames(labels []store.Label) []string {
	if len(labels) == 0 {
		return nil
	}
	names := make([]string, 0, len(labels))
	for _, l := range labels {
		names = append(names, l.Name)
	}
	return names
}
