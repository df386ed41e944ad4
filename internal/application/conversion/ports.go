package conversion

import (
	"context"

	conversiondomain "tunegrab/internal/domain/conversion"
)

// Converter is an application port for the external extraction process.
type Converter interface {
	FetchMetadata(ctx context.Context, sourceURL string) (conversiondomain.Metadata, error)
	Convert(ctx context.Context, sourceURL, outputPath string, opts conversiondomain.Options, onProgress func(int)) (conversiondomain.ArtifactInfo, error)
}

// ArtifactStore is an application port for artifact path resolution.
type ArtifactStore interface {
	ArtifactPath(name string) (string, error)
}
