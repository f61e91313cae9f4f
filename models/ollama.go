package models

// OllamaEmbedRequest is used to structure the request to the Ollama embedding API.
type OllamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

// OllamaEmbedResponse is used to parse the embedding from the Ollama API response.
type OllamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

// OllamaGenerateRequest is the body for Ollama's /api/generate endpoint.
type OllamaGenerateRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
	Stream bool   `json:"stream"`
}

// OllamaGenerateResponse is one line of the (possibly streamed) NDJSON reply.
type OllamaGenerateResponse struct {
	Response string `json:"response"`
	Done     bool   `json:"done"`
}
