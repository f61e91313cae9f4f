package services

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"

	"google.golang.org/genai"

	"github.com/docuchat/server/models"
)

// StreamChunk is one fragment of a streamed answer. A chunk carrying Err is
// always the last one before the channel closes; fragments already delivered
// remain valid.
type StreamChunk struct {
	Text string
	Err  error
}

// LLMClient is the generation capability the answer path depends on. Complete
// blocks for the full answer; StreamComplete delivers fragments in arrival
// order and stops promptly when ctx is cancelled.
type LLMClient interface {
	Complete(ctx context.Context, prompt string) (string, error)
	StreamComplete(ctx context.Context, prompt string) (<-chan StreamChunk, error)
	Model() string
}

const systemInstruction = "You are a helpful assistant. Use the provided context to answer the question."

// GeminiClient generates answers through the Gemini API.
type GeminiClient struct {
	client *genai.Client
	model  string
}

// NewGeminiClient wraps an existing Gemini client for a fixed model.
func NewGeminiClient(client *genai.Client, model string) *GeminiClient {
	return &GeminiClient{client: client, model: model}
}

func (g *GeminiClient) Model() string { return "gemini/" + g.model }

func (g *GeminiClient) generationConfig() *genai.GenerateContentConfig {
	contents := genai.Text(systemInstruction)
	if len(contents) == 0 {
		return &genai.GenerateContentConfig{}
	}
	return &genai.GenerateContentConfig{SystemInstruction: contents[0]}
}

func (g *GeminiClient) Complete(ctx context.Context, prompt string) (string, error) {
	result, err := g.client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), g.generationConfig())
	if err != nil {
		return "", fmt.Errorf("%w: gemini: %v", ErrLLMCall, err)
	}
	text := result.Text()
	if text == "" {
		return "", fmt.Errorf("%w: gemini returned an empty response", ErrLLMCall)
	}
	return text, nil
}

func (g *GeminiClient) StreamComplete(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		for result, err := range g.client.Models.GenerateContentStream(ctx, g.model, genai.Text(prompt), g.generationConfig()) {
			if err != nil {
				emit(ctx, out, StreamChunk{Err: fmt.Errorf("%w: gemini stream: %v", ErrLLMCall, err)})
				return
			}
			text := result.Text()
			if text == "" {
				continue
			}
			if !emit(ctx, out, StreamChunk{Text: text}) {
				return
			}
		}
	}()
	return out, nil
}

// OllamaLLM generates answers through a local Ollama instance.
type OllamaLLM struct {
	httpClient *http.Client
	host       string
	model      string
}

// NewOllamaLLM creates a client for the given Ollama host and model.
func NewOllamaLLM(client *http.Client, host, model string) *OllamaLLM {
	return &OllamaLLM{httpClient: client, host: host, model: model}
}

func (o *OllamaLLM) Model() string { return "ollama/" + o.model }

func (o *OllamaLLM) Complete(ctx context.Context, prompt string) (string, error) {
	resp, err := o.generate(ctx, prompt, false)
	if err != nil {
		return "", err
	}
	defer resp.Body.Close()

	var genResp models.OllamaGenerateResponse
	if err := json.NewDecoder(resp.Body).Decode(&genResp); err != nil {
		return "", fmt.Errorf("%w: failed to decode ollama response: %v", ErrLLMCall, err)
	}
	return genResp.Response, nil
}

func (o *OllamaLLM) StreamComplete(ctx context.Context, prompt string) (<-chan StreamChunk, error) {
	resp, err := o.generate(ctx, prompt, true)
	if err != nil {
		return nil, err
	}

	out := make(chan StreamChunk)
	go func() {
		defer close(out)
		defer resp.Body.Close()

		scanner := bufio.NewScanner(resp.Body)
		scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)
		for scanner.Scan() {
			line := bytes.TrimSpace(scanner.Bytes())
			if len(line) == 0 {
				continue
			}
			var genResp models.OllamaGenerateResponse
			if err := json.Unmarshal(line, &genResp); err != nil {
				emit(ctx, out, StreamChunk{Err: fmt.Errorf("%w: malformed ollama stream line: %v", ErrLLMCall, err)})
				return
			}
			if genResp.Response != "" {
				if !emit(ctx, out, StreamChunk{Text: genResp.Response}) {
					return
				}
			}
			if genResp.Done {
				return
			}
		}
		if err := scanner.Err(); err != nil {
			emit(ctx, out, StreamChunk{Err: fmt.Errorf("%w: ollama stream read: %v", ErrLLMCall, err)})
		}
	}()
	return out, nil
}

func (o *OllamaLLM) generate(ctx context.Context, prompt string, stream bool) (*http.Response, error) {
	reqBody, err := json.Marshal(models.OllamaGenerateRequest{
		Model:  o.model,
		Prompt: prompt,
		Stream: stream,
	})
	if err != nil {
		return nil, fmt.Errorf("%w: failed to marshal ollama request: %v", ErrLLMCall, err)
	}

	httpReq, err := http.NewRequestWithContext(ctx, http.MethodPost, o.host+"/api/generate", bytes.NewBuffer(reqBody))
	if err != nil {
		return nil, fmt.Errorf("%w: failed to create ollama http request: %v", ErrLLMCall, err)
	}
	httpReq.Header.Set("Content-Type", "application/json")

	resp, err := o.httpClient.Do(httpReq)
	if err != nil {
		return nil, fmt.Errorf("%w: failed to call ollama generate api: %v", ErrLLMCall, err)
	}
	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		resp.Body.Close()
		return nil, fmt.Errorf("%w: ollama api returned non-200 status: %d, body: %s", ErrLLMCall, resp.StatusCode, string(bodyBytes))
	}
	return resp, nil
}

// emit sends a chunk unless the consumer is gone. Returns false when the
// context is done.
func emit(ctx context.Context, out chan<- StreamChunk, chunk StreamChunk) bool {
	select {
	case out <- chunk:
		return true
	case <-ctx.Done():
		return false
	}
}
