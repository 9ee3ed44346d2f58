package cmd

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/readstash/readstash/internal/page"
	"github.com/readstash/readstash/internal/store"
)

// saveOptions holds CLI flags for save.
type saveOptions struct {
	title       string
	author      string
	description string
	contentFile string
	pageType    string
	siteName    string
	labels      []string
}

func newSaveCmd() *cobra.Command {
	var opts saveOptions

	cmd := &cobra.Command{
		Use:   "save <url>",
		Short: "Save a page to the library",
		Long: `Save a URL to the library. Saving a URL that is already in the
library refreshes it in place: same item, updated content, back in
the inbox.

Page content can be supplied from a file or piped on stdin with
--content -.

Examples:
  readstash save https://example.com/article --title "A Good Read"
  cat page.html | readstash save https://example.com/article --content -
  readstash save https://example.com/article --label tech --label golang`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runSave(cmd, args[0], opts)
		},
	}

	cmd.Flags().StringVarP(&opts.title, "title", "t", "", "Page title")
	cmd.Flags().StringVar(&opts.author, "author", "", "Page author")
	cmd.Flags().StringVar(&opts.description, "description", "", "Page description")
	cmd.Flags().StringVarP(&opts.contentFile, "content", "c", "", "Read page content from file ('-' for stdin)")
	cmd.Flags().StringVar(&opts.pageType, "type", "article", "Page type: article, book, file, highlights, profile, unknown, website")
	cmd.Flags().StringVar(&opts.siteName, "site", "", "Site name")
	cmd.Flags().StringSliceVarP(&opts.labels, "label", "l", nil, "Attach a label (repeatable)")

	return cmd
}

func runSave(cmd *cobra.Command, url string, opts saveOptions) error {
	content, err := readContent(cmd.InOrStdin(), opts.contentFile)
	if err != nil {
		return err
	}

	lib, _, cleanup, err := openLibrary()
	if err != nil {
		return err
	}
	defer cleanup()

	labels := make([]store.Label, 0, len(opts.labels))
	for _, name := range opts.labels {
		if name = strings.TrimSpace(name); name != "" {
			labels = append(labels, store.Label{Name: name})
		}
	}

	item, created, err := lib.SavePage(cmd.Context(), page.SaveInput{
		UserID:      userID,
		URL:         url,
		Title:       opts.title,
		Author:      opts.author,
		Description: opts.description,
		Content:     content,
		PageType:    store.PageType(opts.pageType),
		SiteName:    opts.siteName,
		Labels:      labels,
	})
	if err != nil {
		return err
	}

	verb := "Updated"
	if created {
		verb = "Saved"
	}
	fmt.Fprintf(cmd.OutOrStdout(), "%s %s (%s)\n", verb, item.URL, item.ID)
	return nil
}

func readContent(stdin io.Reader, path string) (string, error) {
	switch path {
	case "":
		return "", nil
	case "-":
		data, err := io.ReadAll(stdin)
		if err != nil {
			return "", fmt.Errorf("read content from stdin: %w", err)
		}
		return string(data), nil
	default:
		data, err := os.ReadFile(path)
		if err != nil {
			return "", fmt.Errorf("read content file: %w", err)
		}
		return string(data), nil
	}
}
