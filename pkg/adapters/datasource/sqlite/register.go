package sqlite

import (
	"context"

	"go.uber.org/zap"

	"github.com/schemalens/schemalens/pkg/adapters/datasource"
)

func init() {
	datasource.Register(datasource.Registration{
		Info: datasource.AdapterInfo{
			Type:        "sqlite",
			DisplayName: "SQLite",
		},
		Factory: func(ctx context.Context, dsn string, logger *zap.Logger) (datasource.Introspector, error) {
			return NewIntrospector(ctx, dsn, logger)
		},
	})
}
