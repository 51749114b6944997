package cli

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
)

var askJSON bool

var askCmd = &cobra.Command{
	Use:   "ask <question>",
	Short: "Ask a question over the indexed documents",
	Long: `Ask retrieves the most relevant chunks, synthesizes an answer with
the configured model, and prints the answer with source citations.

Examples:
  docqa ask "how is authentication configured?"
  docqa ask --json "what ports does the service listen on?"`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAsk,
}

func init() {
	rootCmd.AddCommand(askCmd)
	askCmd.Flags().BoolVar(&askJSON, "json", false, "output as JSON")
}

func runAsk(cmd *cobra.Command, args []string) error {
	question := strings.Join(args, " ")

	app, err := buildApp(cmd.Context())
	if err != nil {
		return err
	}
	defer app.Close()

	synth, err := app.synthesizer()
	if err != nil {
		return err
	}

	record, err := synth.Answer(cmd.Context(), question)
	if err != nil {
		return err
	}

	if askJSON {
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(record)
	}

	fmt.Println(record.Answer)
	if len(record.Citations) > 0 {
		fmt.Println("\nSources:")
		for _, c := range record.Citations {
			fmt.Printf("  - %s\n", citationSource(app, c))
		}
	}
	if record.Cached {
		fmt.Fprintln(os.Stderr, "(served from cache)")
	}
	return nil
}

// citationSource resolves a chunk id to a human-readable source
// location. The raw id is still shown when metadata is gone.
func citationSource(app *app, chunkID string) string {
	chunk, err := app.meta.GetChunk(chunkID)
	if err != nil {
		return chunkID
	}
	doc, err := app.meta.GetDocument(chunk.DocID)
	if err != nil {
		return chunkID
	}
	return fmt.Sprintf("%s (chunk %d, bytes %d-%d)", doc.SourceURI, chunk.Seq, chunk.Start, chunk.End)
}
