package domain

// KeyPrefix namespaces every key eulex writes to a shared key-value store.
const KeyPrefix = "eulex:"

// Pipeline defaults. All of them are overridable through configuration.
const (
	DefaultFusionConstant    = 1.0
	DefaultFusionTopK        = 10
	DefaultRetrievalDepth    = 1000
	DefaultMinFusedScore     = 0.5
	DefaultMinCandidates     = 2
	DefaultPassageThreshold  = 0.5
	DefaultMinPassageWords   = 20
	DefaultMaxContextWords   = 10000
	DefaultUnknownLawTitle   = "Unknown Law"
	DefaultEmbeddingModel    = "jina-embeddings-v2-small-en"
	DefaultEmbeddingMemoSize = 4096
)
