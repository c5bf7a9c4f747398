package domain

import "errors"

var (
	// ErrEmptyQuery signals a blank legal question.
	ErrEmptyQuery = errors.New("empty query")
	// ErrCorpusUnavailable signals that the legal corpus or its indexes could not be loaded.
	ErrCorpusUnavailable = errors.New("corpus unavailable")
	// ErrDocumentNotFound signals a CELEX id missing from the corpus.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrFetchFailed signals that the full text of a document could not be fetched or parsed.
	ErrFetchFailed = errors.New("full text fetch failed")
	// ErrMalformedPayload signals a cached or serialized passage payload that cannot be decoded.
	ErrMalformedPayload = errors.New("malformed payload")
	// ErrEmbeddingQuotaExceeded signals an exhausted embedding budget.
	ErrEmbeddingQuotaExceeded = errors.New("embedding quota exceeded")
	// ErrEmbeddingProviderError signals an embedding provider failure.
	ErrEmbeddingProviderError = errors.New("embedding provider error")
	// ErrLLMProviderError signals a chat completion failure.
	ErrLLMProviderError = errors.New("llm provider error")
	// ErrMissingSlot signals a prompt template rendered without a required slot.
	ErrMissingSlot = errors.New("missing prompt slot")
)
