package storage

import (
	"context"
	"database/sql"
	"fmt"
	"sync"
)

// SQLOpener opens a database/sql handle for a backend. The schema bootstrap
// uses it to run migrations without knowing which driver is behind a kind.
type SQLOpener func(ctx context.Context, cfg Config) (*sql.DB, error)

var (
	openerMu sync.RWMutex
	openers  = map[string]SQLOpener{}
)

// RegisterSQLOpener registers (or replaces) the opener for kind. Backends call
// it from init next to Register.
func RegisterSQLOpener(kind string, fn SQLOpener) {
	openerMu.Lock()
	defer openerMu.Unlock()
	openers[kind] = fn
}

// OpenSQL opens a database/sql handle for cfg.Kind.
func OpenSQL(ctx context.Context, cfg Config) (*sql.DB, error) {
	openerMu.RLock()
	fn, ok := openers[cfg.Kind]
	openerMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("no sql opener registered for storage.kind=%q", cfg.Kind)
	}
	return fn(ctx, cfg)
}
