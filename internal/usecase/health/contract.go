package health

import "context"

// StorePinger checks full-text cache store availability.
type StorePinger interface {
	Ping(ctx context.Context) error
}

// IndexOpener reports whether the lexical indexes are loaded.
type IndexOpener interface {
	Open(ctx context.Context) error
}

// ProviderChecker checks embedding or chat provider availability.
type ProviderChecker interface {
	HealthCheck(ctx context.Context) error
}
