package main

import (
	"context"
	"log"
	"net/http"
	"time"

	chromago "github.com/amikos-tech/chroma-go/pkg/api/v2"
	"github.com/gin-gonic/gin"
	"google.golang.org/genai"

	"github.com/docuchat/server/config"
	"github.com/docuchat/server/controller"
	"github.com/docuchat/server/database"
	"github.com/docuchat/server/repository"
	"github.com/docuchat/server/services"
)

func main() {
	cfg := config.Load()

	services.InitPDFLicense(cfg.UnidocLicenseKey)

	db, err := database.OpenSQLite(cfg.DBPath)
	if err != nil {
		log.Fatalf("FATAL: failed to open database: %v", err)
	}
	docRepo, chatRepo := repository.New(db)

	// Short-timeout client for embedding and storage calls; the LLM client
	// has no overall timeout because streamed generations outlive any fixed
	// deadline and are governed by the request context instead.
	httpClient := &http.Client{Timeout: 30 * time.Second}
	llmHTTPClient := &http.Client{}

	var geminiClient *genai.Client
	if cfg.EmbedProvider == "gemini" || cfg.LLMProvider == "gemini" {
		geminiClient, err = genai.NewClient(context.Background(), &genai.ClientConfig{
			APIKey:  cfg.GeminiAPIKey,
			Backend: genai.BackendGeminiAPI,
		})
		if err != nil {
			log.Fatalf("FATAL: failed to create Gemini client: %v. Make sure GEMINI_API_KEY is set.", err)
		}
		log.Println("Successfully connected to Google Gemini.")
	}

	var embedder services.Embedder
	switch cfg.EmbedProvider {
	case "gemini":
		embedder = services.NewGeminiEmbedder(geminiClient, cfg.EmbedModel)
	default:
		embedder = services.NewOllamaEmbedder(httpClient, cfg.OllamaHost, cfg.EmbedModel)
	}

	var llm services.LLMClient
	switch cfg.LLMProvider {
	case "ollama":
		llm = services.NewOllamaLLM(llmHTTPClient, cfg.OllamaHost, cfg.OllamaModel)
	default:
		llm = services.NewGeminiClient(geminiClient, cfg.GeminiModel)
	}

	var chunker services.Chunker
	switch cfg.ChunkerType {
	case "sentence":
		chunker = services.NewSentenceChunker(cfg.SentencesPerChunk, 0)
	default:
		chunker = services.NewRecursiveChunker(cfg.ChunkSize, cfg.ChunkOverlap)
	}

	var backend services.IndexBackend
	switch cfg.IndexBackend {
	case "chroma":
		chromaClient, err := chromago.NewHTTPClient(chromago.WithBaseURL(cfg.ChromaURL))
		if err != nil {
			log.Fatalf("FATAL: failed to create chroma client: %v", err)
		}
		defer func() {
			if cerr := chromaClient.Close(); cerr != nil {
				log.Printf("Warning: failed to close chroma client: %v", cerr)
			}
		}()
		collection, err := getOrCreateCollection(chromaClient, "documents")
		if err != nil {
			log.Fatalf("FATAL: failed to get or create collection: %v", err)
		}
		backend = services.NewChromaBackend(collection)
	default:
		backend = services.MemoryBackend{}
	}

	builder := services.NewIndexBuilder(chunker, embedder, backend)
	cache, err := services.NewIndexCache(builder, cfg.IndexCacheSize)
	if err != nil {
		log.Fatalf("FATAL: failed to create index cache: %v", err)
	}

	var store services.ObjectStore
	var localStore *services.LocalStore
	switch cfg.StorageProvider {
	case "cloudinary":
		store, err = services.NewCloudinaryStore(cfg.CloudinaryURL, httpClient)
		if err != nil {
			log.Fatalf("FATAL: failed to create cloudinary store: %v. Make sure CLOUDINARY_URL is set.", err)
		}
	default:
		localStore, err = services.NewLocalStore(cfg.LocalStorageDir, httpClient)
		if err != nil {
			log.Fatalf("FATAL: failed to create local store: %v", err)
		}
		store = localStore
	}

	ragService := services.NewRAGService(docRepo, store, cache, embedder, llm, cfg.TopK, cfg.MaxPromptChars)
	ragController := controller.NewRAGController(ragService, docRepo, chatRepo, store)

	if cfg.IngestWatchDir != "" {
		watcher := services.NewIngestWatcher(docRepo, store, ragService)
		go watcher.Watch(context.Background(), cfg.IngestWatchDir)
	}

	router := gin.Default()

	router.Use(func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(204)
			return
		}

		c.Next()
	})

	router.GET("/health", func(c *gin.Context) {
		c.JSON(200, gin.H{
			"status":  "healthy",
			"service": "Document Chat API",
			"version": "1.0.0",
		})
	})

	router.POST("/upload", ragController.Upload)
	router.POST("/ask", ragController.Ask)
	router.GET("/documents", ragController.ListDocuments)
	router.GET("/chats/:doc_id", ragController.GetChats)
	if localStore != nil {
		router.Static("/files", localStore.Dir())
	}

	log.Printf("Document chat server starting on http://localhost:%s", cfg.Port)
	if err := router.Run(":" + cfg.Port); err != nil {
		log.Fatalf("FATAL: failed to start server: %v", err)
	}
}

// getOrCreateCollection fetches the shared chunk collection, creating it on
// first run.
func getOrCreateCollection(client chromago.Client, collectionName string) (chromago.Collection, error) {
	ctx := context.Background()

	collection, err := client.GetOrCreateCollection(
		ctx,
		collectionName,
		chromago.WithCollectionMetadataCreate(
			chromago.NewMetadata(
				chromago.NewStringAttribute("description", "per-document chunk embeddings"),
				chromago.NewStringAttribute("created_by", "rag_service"),
			),
		),
	)
	if err != nil {
		return nil, err
	}

	log.Printf("Successfully got/created collection '%s'", collectionName)
	return collection, nil
}
