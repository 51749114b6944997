package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"docqa/internal/adapter/fs"
	"docqa/internal/usecase"
)

var ingestCmd = &cobra.Command{
	Use:   "ingest [path]",
	Short: "Ingest a file or directory into the index",
	Long: `Ingest chunks documents, embeds the chunks and stores them in the
vector index. Re-ingesting a path replaces its previous version.

Examples:
  docqa ingest ./docs          # Ingest a directory
  docqa ingest notes.md        # Ingest a single file`,
	Args: cobra.MaximumNArgs(1),
	RunE: runIngest,
}

func init() {
	rootCmd.AddCommand(ingestCmd)
}

func runIngest(cmd *cobra.Command, args []string) error {
	path := rootDir
	if len(args) > 0 {
		var err error
		path, err = filepath.Abs(args[0])
		if err != nil {
			return fmt.Errorf("invalid path: %w", err)
		}
	}

	info, err := os.Stat(path)
	if err != nil {
		return fmt.Errorf("path does not exist: %w", err)
	}

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	if !info.IsDir() {
		raw, err := os.ReadFile(path)
		if err != nil {
			return err
		}
		doc, err := app.pipeline.Ingest(cmd.Context(), path, raw, fs.ContentType(path))
		if err != nil {
			return err
		}
		fmt.Printf("Indexed %s (%d chunks, document %s)\n", path, doc.ChunkCount, doc.ID)
		return nil
	}

	bar := progressbar.NewOptions(-1,
		progressbar.OptionSetDescription("Ingesting"),
		progressbar.OptionShowCount(),
		progressbar.OptionSetWriter(os.Stderr),
	)

	results, err := app.pipeline.IngestDir(cmd.Context(), path,
		cfg.Ingest.Includes, cfg.Ingest.Excludes,
		func(usecase.FileResult) { bar.Add(1) },
	)
	bar.Finish()
	fmt.Fprintln(os.Stderr)
	if err != nil {
		return err
	}

	var ok, failed, chunks int
	for _, res := range results {
		if res.Err != nil {
			failed++
			fmt.Fprintf(os.Stderr, "  failed: %s: %v\n", res.Path, res.Err)
			continue
		}
		ok++
		chunks += res.Doc.ChunkCount
	}

	fmt.Printf("Indexed %d documents (%d chunks)", ok, chunks)
	if failed > 0 {
		fmt.Printf(", %d failed", failed)
	}
	fmt.Println()
	return nil
}
