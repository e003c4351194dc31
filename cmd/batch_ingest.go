/*
Copyright © 2025 trandvq
*/
package cmd

import (
	"context"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"strings"

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trandvq/docsense/config"
	"github.com/trandvq/docsense/types"
	"github.com/trandvq/docsense/utils"
)

// batchIngestCmd represents the batch-ingest command
var batchIngestCmd = &cobra.Command{
	Use:   "batch-ingest",
	Short: "Ingest every text file in a directory",
	Long: `Walks a directory for .txt and .md files and runs each through the
pipeline concurrently. Per-file failures are reported and skipped, they do
not abort the batch.`,
	Run: func(cmd *cobra.Command, args []string) {
		directory, _ := cmd.Flags().GetString("directory")
		archive, _ := cmd.Flags().GetBool("archive")
		if directory == "" {
			log.Fatal("--directory is required")
		}

		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		app, err := buildApp(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer app.store.Close()

		entries, err := os.ReadDir(directory)
		if err != nil {
			log.Fatalf("Failed to read directory: %v", err)
		}

		var raws []types.RawDocument
		for _, entry := range entries {
			if entry.IsDir() || !isTextFile(entry.Name()) {
				continue
			}
			filePath := filepath.Join(directory, entry.Name())
			content, err := os.ReadFile(filePath)
			if err != nil {
				log.Printf("Skipping %s: %v", filePath, err)
				continue
			}
			raws = append(raws, types.RawDocument{
				ID:       uuid.NewString(),
				Filename: entry.Name(),
				Content:  string(content),
			})
		}
		if len(raws) == 0 {
			log.Fatalf("No .txt or .md files found in %s", directory)
		}

		results := app.pipeline.IngestAll(context.Background(), raws, types.IngestOptions{
			ExtractTables: cfg.Ingest.ExtractTables,
		})

		stored, flagged, failed := 0, 0, 0
		for i, result := range results {
			switch {
			case !result.Success:
				failed++
				log.Printf("Failed %s at stage %s: %s", raws[i].Filename, result.Stage, result.Error)
			case result.NeedsReview:
				flagged++
				stored++
				fmt.Printf("Stored %s (type=%s, flagged for review)\n", raws[i].Filename, result.Document.Type)
			default:
				stored++
				fmt.Printf("Stored %s (type=%s)\n", raws[i].Filename, result.Document.Type)
			}

			if archive && result.Success {
				src := filepath.Join(directory, raws[i].Filename)
				if _, err := utils.CopyFileWithTimestamp(src, filepath.Join(cfg.DataDir, "raw")); err != nil {
					log.Printf("Failed to archive %s: %v", src, err)
				}
			}
		}
		fmt.Printf("Done: %d stored, %d flagged for review, %d failed\n", stored, flagged, failed)
	},
}

func init() {
	rootCmd.AddCommand(batchIngestCmd)

	batchIngestCmd.Flags().StringP("directory", "d", "", "Path to the directory to ingest")
	batchIngestCmd.Flags().BoolP("archive", "a", false, "Copy ingested source files into the data directory")
}

func isTextFile(name string) bool {
	ext := strings.ToLower(filepath.Ext(name))
	return ext == ".txt" || ext == ".md"
}
