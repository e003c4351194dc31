/*
Copyright © 2025 trandvq
*/
package cmd

import (
	"context"
	"log"

	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"

	"github.com/trandvq/docsense/config"
	"github.com/trandvq/docsense/handler"
	"github.com/trandvq/docsense/pipeline"
	"github.com/trandvq/docsense/service"
	"github.com/trandvq/docsense/store"
)

// startCmd represents the start command
var startCmd = &cobra.Command{
	Use:   "start",
	Short: "Start the document intelligence server",
	Long:  `Starts the HTTP API serving ingestion, retrieval and chat over the stored corpus.`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.LoadConfig(cfgFile)
		if err != nil {
			log.Fatalf("Failed to load config: %v", err)
		}

		app, err := buildApp(cfg)
		if err != nil {
			log.Fatalf("Failed to initialize: %v", err)
		}
		defer app.store.Close()

		generator, err := service.NewGenerator(cfg.Generation)
		if err != nil {
			log.Fatalf("Failed to initialize generator: %v", err)
		}

		chatEngine := service.NewChatEngine(app.store, app.embedding, generator, service.ChatEngineConfig{
			HistoryLimit:       cfg.Chat.HistoryLimit,
			MinSimilarity:      cfg.Chat.MinSimilarity,
			MaxContextChars:    cfg.Chat.MaxContextChars,
			MaxReferences:      cfg.Search.MaxReferences,
			MaxRetries:         cfg.Generation.MaxRetries,
			DisableSuggestions: !cfg.Chat.SuggestionOnLowConf,
		})
		wsService := service.NewWebSocketService(chatEngine)

		// Initialize handlers
		corsHandler := handler.NewCorsHandler()
		chatHandler := handler.NewChatHandler(chatEngine)
		ingestHandler := handler.NewIngestHandler(app.pipeline, cfg.Ingest.ExtractTables)
		documentHandler := handler.NewDocumentHandler(app.store)
		searchHandler := handler.NewSearchHandler(app.store, app.embedding)
		healthHandler := handler.NewHealthHandler(app.store, app.embedding, generator)

		// Setup Gin router
		router := gin.Default()
		router.Use(corsHandler.CorsMiddleware)

		router.GET("/health", healthHandler.HandleHealth)
		router.GET("/ws/chat", func(c *gin.Context) {
			wsService.HandleChat(c.Writer, c.Request)
		})

		apiV1 := router.Group("/api/v1")
		{
			apiV1.POST("/chat", chatHandler.HandleChat)
			apiV1.POST("/ingest", ingestHandler.HandleIngest)
			apiV1.POST("/ingest/batch", ingestHandler.HandleBatchIngest)
			apiV1.POST("/search", searchHandler.HandleSearch)
			apiV1.GET("/documents", documentHandler.HandleList)
			apiV1.GET("/documents/review", documentHandler.HandleReviewQueue)
			apiV1.GET("/documents/:id", documentHandler.HandleGet)
			apiV1.DELETE("/documents/:id", documentHandler.HandleDelete)
		}

		log.Printf("Starting server on port %s with %d document(s) loaded\n", cfg.Port, app.store.Count())
		if err := router.Run(":" + cfg.Port); err != nil {
			log.Fatal("Server error:", err)
		}
	},
}

func init() {
	rootCmd.AddCommand(startCmd)
}

// app bundles the components every command needs: the persisted corpus,
// the embedding client and the ingest pipeline.
type app struct {
	store     *store.RetrievalStore
	embedding *service.EmbeddingClient
	pipeline  *pipeline.Pipeline
}

func buildApp(cfg *config.Config) (*app, error) {
	persister, err := store.NewSQLiteStore(cfg.DataDir)
	if err != nil {
		return nil, err
	}

	st := store.New(
		store.WithPersister(persister),
		store.WithWeights(store.Weights{
			Lexical:       cfg.Search.LexicalWeight,
			Semantic:      cfg.Search.SemanticWeight,
			FilenameBoost: cfg.Search.FilenameBoost,
		}),
	)
	if err := st.Load(context.Background()); err != nil {
		return nil, err
	}

	embedding := service.NewEmbeddingClient(service.EmbeddingClientConfig{
		Endpoint:   cfg.Embedding.Endpoint,
		Dimension:  cfg.Embedding.Dimension,
		BatchSize:  cfg.Embedding.BatchSize,
		Normalize:  cfg.Embedding.Normalize,
		Timeout:    cfg.Embedding.Timeout,
		MaxRetries: cfg.Embedding.MaxRetries,
	})

	p := pipeline.New(embedding, st, pipeline.Config{
		MaxChunkSize:    cfg.Ingest.MaxChunkSize,
		ChunkOverlap:    cfg.Ingest.ChunkOverlap,
		ReviewThreshold: cfg.Ingest.ReviewThreshold,
		Workers:         cfg.Ingest.Workers,
		ExtractTables:   cfg.Ingest.ExtractTables,
	}, log.Default())

	return &app{store: st, embedding: embedding, pipeline: p}, nil
}
