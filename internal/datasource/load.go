package datasource

import (
	"context"
	"fmt"

	"github.com/vanderheijden86/threatmap/pkg/loader"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

// Load detects the source at path and loads it. SQLite rows go through the
// same normalization as JSON records.
func Load(ctx context.Context, path string, opts loader.ParseOptions) (*model.Dataset, DataSource, error) {
	src, err := Detect(path)
	if err != nil {
		return nil, DataSource{}, err
	}
	ds, err := LoadFromSource(ctx, src, opts)
	return ds, src, err
}

// LoadFromSource loads a dataset from a specific DataSource, dispatching to the
// appropriate reader based on source type.
func LoadFromSource(ctx context.Context, source DataSource, opts loader.ParseOptions) (*model.Dataset, error) {
	switch source.Type {
	case SourceTypeSQLite:
		defer metrics.Timer(metrics.DatasetLoad)()
		reader, err := NewSQLiteReader(source)
		if err != nil {
			return nil, fmt.Errorf("failed to open SQLite source %s: %w", source.Path, err)
		}
		defer reader.Close()

		nodes, edges, err := reader.Load(ctx)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source.Path, err)
		}
		ds, err := loader.Normalize(nodes, edges, opts)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", source.Path, err)
		}
		return ds, nil

	case SourceTypeJSON, SourceTypeJSONL:
		return loader.LoadFile(source.Path, opts)

	default:
		return nil, fmt.Errorf("%s: %w", source.Type, ErrUnknownSource)
	}
}
