package cli

import (
	"fmt"

	"github.com/spf13/cobra"
)

var statusCmd = &cobra.Command{
	Use:   "status",
	Short: "Show corpus and index statistics",
	RunE:  runStatus,
}

func init() {
	rootCmd.AddCommand(statusCmd)
}

func runStatus(cmd *cobra.Command, args []string) error {
	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	docs, err := app.meta.ListDocuments()
	if err != nil {
		return err
	}
	vectors, err := app.index.Count(cmd.Context())
	if err != nil {
		return err
	}

	var chunks int
	byStatus := make(map[string]int)
	for _, doc := range docs {
		chunks += doc.ChunkCount
		byStatus[string(doc.Status)]++
	}

	fmt.Printf("Backend:    %s\n", cfg.Index.Backend)
	fmt.Printf("Embedder:   %s (%d dimensions)\n", app.embedder.ModelName(), app.embedder.Dimension())
	fmt.Printf("Documents:  %d\n", len(docs))
	for status, n := range byStatus {
		fmt.Printf("  %-10s%d\n", status, n)
	}
	fmt.Printf("Chunks:     %d\n", chunks)
	fmt.Printf("Vectors:    %d\n", vectors)
	fmt.Printf("Cache:      %d entries\n", app.cache.Size())
	return nil
}
