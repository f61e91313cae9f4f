package services

import "errors"

// Failure kinds surfaced to the API layer. Each stage of the question pipeline
// wraps its own kind so the controller can map it to a distinct status code
// with errors.Is.
var (
	// ErrDocumentNotFound means the document id is unknown to the store.
	ErrDocumentNotFound = errors.New("document not found")

	// ErrContentFetch means downloading the raw file from the object store failed.
	ErrContentFetch = errors.New("content fetch failed")

	// ErrTextExtraction means the PDF was unreadable or yielded no text.
	ErrTextExtraction = errors.New("text extraction failed")

	// ErrIndexBuild means chunking or embedding failed while building an index.
	ErrIndexBuild = errors.New("index build failed")

	// ErrRetrieval means an internal invariant broke during retrieval, such as
	// a query embedded with a different model than the index was built with.
	ErrRetrieval = errors.New("retrieval failed")

	// ErrLLMCall means the language model provider returned an error.
	ErrLLMCall = errors.New("llm call failed")

	// ErrContextTooLarge means the assembled prompt exceeds the configured
	// limit. Context is never silently truncated.
	ErrContextTooLarge = errors.New("context too large")
)
