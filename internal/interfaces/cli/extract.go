package cli

import (
	"fmt"
	"os"
	"unicode/utf8"

	"github.com/spf13/cobra"

	"github.com/docqa/backend/internal/infrastructure/chunker"
	"github.com/docqa/backend/internal/infrastructure/extractor"
	"github.com/docqa/backend/internal/infrastructure/tokenizer"
)

var extractCmd = &cobra.Command{
	Use:   "extract [file.pdf]",
	Short: "Show the text and chunk plan for a PDF",
	Long:  `Extracts the text of a PDF the same way the server does and prints page, character, token and chunk counts using the configured chunk parameters.`,
	Args:  cobra.ExactArgs(1),
	RunE:  runExtract,
}

var (
	extractChunkSize    int
	extractChunkOverlap int
	extractShowChunks   bool
)

func init() {
	extractCmd.Flags().IntVar(&extractChunkSize, "chunk-size", 0, "Chunk size in characters (default from config)")
	extractCmd.Flags().IntVar(&extractChunkOverlap, "chunk-overlap", -1, "Chunk overlap in characters (default from config)")
	extractCmd.Flags().BoolVar(&extractShowChunks, "show-chunks", false, "Print every chunk")
	rootCmd.AddCommand(extractCmd)
}

func runExtract(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	size, overlap := cfg.RAG.ChunkSize, cfg.RAG.ChunkOverlap
	if extractChunkSize > 0 {
		size = extractChunkSize
	}
	if extractChunkOverlap >= 0 {
		overlap = extractChunkOverlap
	}

	data, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read %s: %w", args[0], err)
	}

	result, err := extractor.NewExtractor().Extract(cmd.Context(), data)
	if err != nil {
		return err
	}
	chunks, err := chunker.Split("preview", result.Text, size, overlap)
	if err != nil {
		return err
	}

	cmd.Printf("File:        %s\n", args[0])
	cmd.Printf("Pages:       %d (%d without text)\n", result.Pages, result.EmptyPages)
	cmd.Printf("Characters:  %d\n", utf8.RuneCountInString(result.Text))
	if counter, err := tokenizer.GetCounter(); err == nil {
		cmd.Printf("Tokens:      %d\n", counter.CountTokens(result.Text))
	}
	cmd.Printf("Chunks:      %d (size %d, overlap %d)\n", len(chunks), size, overlap)

	if extractShowChunks {
		for _, c := range chunks {
			cmd.Printf("\n--- chunk %d [%d, %d) ---\n%s\n", c.Index, c.Start, c.End, c.Text)
		}
	}
	return nil
}
