package commands

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/wonny/fundcompare/backend/internal/catalog"
	"github.com/wonny/fundcompare/backend/internal/feed"
	"github.com/wonny/fundcompare/backend/internal/series"
)

// feedCmd represents the feed command
var feedCmd = &cobra.Command{
	Use:   "feed",
	Short: "Manage the catalog and series documents",
	Long: `Inspect the configured documents or store documents in Postgres
for pg:<name> locations.

Example:
  go run ./cmd/fundcmp feed check
  go run ./cmd/fundcmp feed push catalog ./reportjson.json
  go run ./cmd/fundcmp feed push series.yaml ./data.yaml`,
}

// feedCheckCmd represents the check subcommand
var feedCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Fetch and validate both configured documents",
	Args:  cobra.NoArgs,
	RunE:  runFeedCheck,
}

// feedPushCmd represents the push subcommand
var feedPushCmd = &cobra.Command{
	Use:   "push NAME FILE",
	Short: "Validate FILE and store it as the feed_documents row NAME",
	Long: `Validate FILE and store it in the feed_documents table under NAME,
which is then served to CATALOG_LOCATION or SERIES_LOCATION "pg:NAME".

--kind picks the validator. By default a name containing "catalog" is
validated as a catalog and anything else as a series.`,
	Args: cobra.ExactArgs(2),
	RunE: runFeedPush,
}

var (
	feedKind string
)

func init() {
	rootCmd.AddCommand(feedCmd)
	feedCmd.AddCommand(feedCheckCmd)
	feedCmd.AddCommand(feedPushCmd)

	// Flags
	feedPushCmd.Flags().StringVar(&feedKind, "kind", "", "catalog or series")
}

func runFeedCheck(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout())

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	out.Header("Feed check")

	failed := false

	cat, err := rt.loadCatalog(cmd.Context())
	if err != nil {
		out.Error(fmt.Sprintf("catalog %s: %v", rt.cfg.Feed.CatalogLocation, err))
		failed = true
	} else {
		out.Success(fmt.Sprintf("catalog %s: %d funds", rt.cfg.Feed.CatalogLocation, cat.Len()))
	}

	loader, err := rt.seriesLoader()
	if err == nil {
		var idx *series.Index
		idx, err = loader.Load(cmd.Context())
		if err == nil {
			latest := "none"
			if d, ok := idx.Latest(); ok {
				latest = d.Format(series.DisplayLayout)
			}
			out.Success(fmt.Sprintf("series %s: %d dates, latest %s", rt.cfg.Feed.SeriesLocation, idx.Len(), latest))
		}
	}
	if err != nil {
		out.Error(fmt.Sprintf("series %s: %v", rt.cfg.Feed.SeriesLocation, err))
		failed = true
	}

	if failed {
		return fmt.Errorf("feed check failed")
	}
	return nil
}

func runFeedPush(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout())
	name, path := args[0], args[1]

	body, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return fmt.Errorf("read %s: %w", path, err)
	}

	if err := validateDocument(name, path, body); err != nil {
		out.Error(err.Error())
		return err
	}

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	if err := rt.openDB(); err != nil {
		return err
	}
	if err := rt.db.EnsureSchema(cmd.Context()); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	if err := rt.db.PutDocument(cmd.Context(), name, body); err != nil {
		return err
	}

	out.Success(fmt.Sprintf("stored %s (%d bytes) as pg:%s", path, len(body), name))
	return nil
}

// validateDocument parses body the way the server will read pg:name
func validateDocument(name, path string, body []byte) error {
	if feed.DetectFormat(name) != feed.DetectFormat(path) {
		return fmt.Errorf("%s is %s but pg:%s is read as %s, rename the document",
			path, feed.DetectFormat(path), name, feed.DetectFormat(name))
	}

	kind := feedKind
	if kind == "" {
		kind = "series"
		if strings.Contains(strings.ToLower(name), "catalog") {
			kind = "catalog"
		}
	}

	switch kind {
	case "catalog":
		var err error
		if feed.DetectFormat(name) == feed.FormatYAML {
			_, err = catalog.ParseYAML(body)
		} else {
			_, err = catalog.Parse(body)
		}
		return err
	case "series":
		_, err := feed.ParseSeries(name, body)
		return err
	default:
		return fmt.Errorf("unknown kind %q", kind)
	}
}
