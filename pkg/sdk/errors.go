package eulex

import (
	"errors"

	"github.com/kailas-cloud/eulex/internal/domain"
)

// Errors returned by Client methods, possibly wrapped. Match with errors.Is.
// ErrCorpusUnavailable covers both the corpus file and the on-disk indexes.
var (
	ErrEmptyQuery             = domain.ErrEmptyQuery
	ErrCorpusUnavailable      = domain.ErrCorpusUnavailable
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrFetchFailed            = domain.ErrFetchFailed
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
	ErrEmbeddingProviderError = domain.ErrEmbeddingProviderError
	ErrLLMProviderError       = domain.ErrLLMProviderError
)

// Temporary reports whether err came from an upstream provider, so the
// same call may succeed later. Quota exhaustion is not temporary within
// its budget window.
func Temporary(err error) bool {
	return errors.Is(err, ErrEmbeddingProviderError) ||
		errors.Is(err, ErrLLMProviderError) ||
		errors.Is(err, ErrFetchFailed)
}
