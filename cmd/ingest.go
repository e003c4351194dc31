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

	"github.com/google/uuid"
	"github.com/spf13/cobra"

	"github.com/trandvq/docsense/config"
	"github.com/trandvq/docsense/types"
	"github.com/trandvq/docsense/utils"
)

// ingestCmd represents the ingest command
var ingestCmd = &cobra.Command{
	Use:   "ingest",
	Short: "Ingest a single text file into the corpus",
	Long: `Reads a plain-text file, runs it through the classification and
normalization pipeline, and stores the result. The embedding model server
must be reachable.`,
	Run: func(cmd *cobra.Command, args []string) {
		filePath, _ := cmd.Flags().GetString("file")
		archive, _ := cmd.Flags().GetBool("archive")
		if filePath == "" {
			log.Fatal("--file is required")
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

		result := ingestFile(app, filePath, cfg.Ingest.ExtractTables)
		if !result.Success {
			log.Fatalf("Ingest failed at stage %s: %s", result.Stage, result.Error)
		}

		doc := result.Document
		fmt.Printf("Stored %s as %s (type=%s, confidence=%.2f, sections=%d)\n",
			filePath, doc.ID, doc.Type, doc.Confidence.Classification, len(doc.Sections))
		if result.NeedsReview {
			fmt.Println("Document flagged for review:", result.Warnings)
		}

		if archive {
			archived, err := utils.CopyFileWithTimestamp(filePath, filepath.Join(cfg.DataDir, "raw"))
			if err != nil {
				log.Printf("Failed to archive source file: %v", err)
			} else {
				fmt.Println("Archived source to", archived)
			}
		}
	},
}

func init() {
	rootCmd.AddCommand(ingestCmd)

	ingestCmd.Flags().StringP("file", "f", "", "Path to the text file to ingest")
	ingestCmd.Flags().BoolP("archive", "a", false, "Copy the source file into the data directory after ingest")
}

func ingestFile(app *app, filePath string, extractTables bool) types.IngestResult {
	content, err := os.ReadFile(filePath)
	if err != nil {
		return types.IngestResult{
			Success: false,
			Stage:   types.StageFailed,
			Error:   fmt.Sprintf("read %s: %v", filePath, err),
		}
	}

	raw := types.RawDocument{
		ID:       uuid.NewString(),
		Filename: filepath.Base(filePath),
		Content:  string(content),
	}
	return app.pipeline.Ingest(context.Background(), raw, types.IngestOptions{
		ExtractTables: extractTables,
	})
}
