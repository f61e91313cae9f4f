package config

import (
	"log"
	"os"
	"strconv"

	"github.com/joho/godotenv"
)

// AppConfig holds every runtime setting for the server. Values come from the
// environment, with a .env file honored for local development.
type AppConfig struct {
	Port   string
	DBPath string

	EmbedProvider string // "ollama" or "gemini"
	EmbedModel    string
	OllamaHost    string

	LLMProvider  string // "gemini" or "ollama"
	GeminiAPIKey string
	GeminiModel  string
	OllamaModel  string

	IndexBackend      string // "memory" or "chroma"
	ChromaURL         string
	ChunkerType       string // "sentence" or "recursive"
	ChunkSize         int
	ChunkOverlap      int
	SentencesPerChunk int
	TopK              int
	MaxPromptChars    int
	IndexCacheSize    int

	StorageProvider string // "local" or "cloudinary"
	LocalStorageDir string
	CloudinaryURL   string

	IngestWatchDir   string
	UnidocLicenseKey string
}

// Load reads the configuration from the environment. A missing .env file is
// not an error; real deployments set variables directly.
func Load() AppConfig {
	if err := godotenv.Load(); err != nil {
		log.Println("CONFIG: no .env file found, relying on environment variables")
	}

	get := func(k, def string) string {
		if v := os.Getenv(k); v != "" {
			return v
		}
		return def
	}
	getInt := func(k string, def int) int {
		v := os.Getenv(k)
		if v == "" {
			return def
		}
		n, err := strconv.Atoi(v)
		if err != nil {
			log.Printf("CONFIG: invalid value for %s: %q, using default %d", k, v, def)
			return def
		}
		return n
	}

	cfg := AppConfig{
		Port:   get("PORT", "8080"),
		DBPath: get("DB_PATH", "documents.db"),

		EmbedProvider: get("EMBED_PROVIDER", "ollama"),
		EmbedModel:    get("EMBED_MODEL", "nomic-embed-text:v1.5"),
		OllamaHost:    get("OLLAMA_HOST", "http://localhost:11434"),

		LLMProvider:  get("LLM_PROVIDER", "gemini"),
		GeminiAPIKey: get("GEMINI_API_KEY", ""),
		GeminiModel:  get("GEMINI_MODEL", "gemini-2.5-flash"),
		OllamaModel:  get("OLLAMA_MODEL", "llama3.1"),

		IndexBackend:      get("INDEX_BACKEND", "memory"),
		ChromaURL:         get("CHROMA_URL", "http://localhost:8000"),
		ChunkerType:       get("CHUNKER", "recursive"),
		ChunkSize:         getInt("CHUNK_SIZE", 1000),
		ChunkOverlap:      getInt("CHUNK_OVERLAP", 100),
		SentencesPerChunk: getInt("SENTENCES_PER_CHUNK", 5),
		TopK:              getInt("TOP_K", 3),
		MaxPromptChars:    getInt("MAX_PROMPT_CHARS", 48000),
		IndexCacheSize:    getInt("INDEX_CACHE_SIZE", 128),

		StorageProvider: get("STORAGE_PROVIDER", "local"),
		LocalStorageDir: get("LOCAL_STORAGE_DIR", "./uploads"),
		CloudinaryURL:   get("CLOUDINARY_URL", ""),

		IngestWatchDir:   get("INGEST_WATCH_DIR", ""),
		UnidocLicenseKey: get("UNIDOC_LICENSE_KEY", ""),
	}
	return cfg
}
