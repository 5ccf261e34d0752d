package commands

import (
	"context"
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/spf13/cobra"
)

// feedDBCmd represents the feed db command
var feedDBCmd = &cobra.Command{
	Use:   "db",
	Short: "Check the document database and list stored documents",
	Long: `Connect to DATABASE_URL, run a health check and list the rows of
feed_documents.

Example:
  go run ./cmd/fundcmp feed db
  go run ./cmd/fundcmp feed db --env production`,
	Args: cobra.NoArgs,
	RunE: runFeedDB,
}

func init() {
	feedCmd.AddCommand(feedDBCmd)
}

func runFeedDB(cmd *cobra.Command, args []string) error {
	out := newPrinter(cmd.OutOrStdout())

	rt, err := newRuntime(cmd.ErrOrStderr())
	if err != nil {
		return err
	}
	defer rt.Close()

	out.Header("Document database")
	out.KeyValue("Database URL", redactURL(rt.cfg.Database.URL), 13)

	if err := rt.openDB(); err != nil {
		out.Error(err.Error())
		return err
	}

	ctx, cancel := context.WithTimeout(cmd.Context(), 5*time.Second)
	defer cancel()

	status, err := rt.db.HealthCheck(ctx)
	if err != nil {
		out.Error(fmt.Sprintf("Health check failed: %v", err))
		return err
	}
	out.Success("Health check passed")
	out.KeyValue("Response time", status.ResponseTime.String(), 13)
	out.KeyValue("Connections", fmt.Sprintf("%d total, %d idle", status.TotalConns, status.IdleConns), 13)

	if err := rt.db.EnsureSchema(ctx); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	docs, err := rt.db.ListDocuments(ctx)
	if err != nil {
		return err
	}

	out.Separator()
	if len(docs) == 0 {
		out.Info("No documents stored. Use `fundcmp feed push NAME FILE`.")
		return nil
	}

	rows := make([][]string, len(docs))
	for i, d := range docs {
		rows[i] = []string{"pg:" + d.Name, strconv.Itoa(d.Size), d.UpdatedAt.Format(time.RFC3339)}
	}
	out.Table([]string{"Location", "Bytes", "Updated"}, rows)
	return nil
}

// redactURL hides the password of a connection URL
func redactURL(raw string) string {
	if raw == "" {
		return "(not set)"
	}
	u, err := url.Parse(raw)
	if err != nil {
		return "(unparseable)"
	}
	return u.Redacted()
}
