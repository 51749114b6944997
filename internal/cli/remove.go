package cli

import (
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"docqa/internal/domain"
)

var removeCmd = &cobra.Command{
	Use:   "remove <document-id|source-path>",
	Short: "Remove a document from the index",
	Long: `Remove deletes a document's vectors, chunks and metadata. The
argument is either a document id from 'docqa list' or the source path
the document was ingested from.`,
	Args: cobra.ExactArgs(1),
	RunE: runRemove,
}

func init() {
	rootCmd.AddCommand(removeCmd)
}

func runRemove(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	docID := args[0]
	if _, err := app.meta.GetDocument(docID); errors.Is(err, domain.ErrDocumentNotFound) {
		// Fall back to source-path lookup.
		doc, srcErr := app.meta.GetDocumentBySource(docID)
		if srcErr != nil {
			return fmt.Errorf("no document with id or source %q", args[0])
		}
		docID = doc.ID
	}

	if err := app.pipeline.Remove(cmd.Context(), docID); err != nil {
		return err
	}
	fmt.Printf("Removed document %s\n", docID)
	return nil
}
