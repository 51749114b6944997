package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var listJSON bool

var listCmd = &cobra.Command{
	Use:   "list",
	Short: "List indexed documents",
	RunE:  runList,
}

func init() {
	rootCmd.AddCommand(listCmd)
	listCmd.Flags().BoolVar(&listJSON, "json", false, "output as JSON")
}

func runList(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.meta.ListDocuments()
	if err != nil {
		return err
	}

	if listJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(docs)
	}

	if len(docs) == 0 {
		fmt.Println("No documents indexed. Run 'docqa ingest' first.")
		return nil
	}

	w := tabwriter.NewWriter(os.Stdout, 0, 4, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSTATUS\tCHUNKS\tSOURCE")
	for _, doc := range docs {
		status := string(doc.Status)
		if doc.Status == domain.StatusFailed && doc.FailReason != "" {
			status = fmt.Sprintf("failed (%s)", doc.FailReason)
		}
		fmt.Fprintf(w, "%s\t%s\t%d\t%s\n", doc.ID, status, doc.ChunkCount, doc.SourceURI)
	}
	return w.Flush()
}
