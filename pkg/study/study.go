package study

import (
	"context"
	"fmt"

	"github.com/sirupsen/logrus"

	"github.com/enerframe/enerframe/pkg/database"
	"github.com/enerframe/enerframe/pkg/database/badgerdb"
	"github.com/enerframe/enerframe/pkg/database/chdb"
	"github.com/enerframe/enerframe/pkg/database/mongodb"
	"github.com/enerframe/enerframe/pkg/database/redisdb"
)

// OpenDatabase opens the backend the study selects. BackendNone yields nil,
// which datasets treat as "no caching". Backends probe connectivity here and
// fail fast.
func OpenDatabase(ctx context.Context, log logrus.FieldLogger, config *Config) (database.Database, error) {
	switch config.Database.Backend {
	case BackendNone:
		return nil, nil
	case BackendBadger:
		return badgerdb.New(log, &config.Database.Badger)
	case BackendRedis:
		return redisdb.New(ctx, log, &config.Database.Redis)
	case BackendClickHouse:
		return chdb.New(ctx, log, &config.Database.ClickHouse)
	case BackendMongoDB:
		return mongodb.New(ctx, log, &config.Database.MongoDB)
	default:
		return nil, fmt.Errorf("%w: %q", ErrUnknownBackend, config.Database.Backend)
	}
}
