// Package all wires all built-in storage backends into the storage factory.
//
// This package exists purely for side effects: importing it (even as a blank
// import) causes the init functions of each concrete storage backend to run,
// which in turn register their factories and database/sql openers with the
// storage package.
//
// Importing this package makes the following storage kinds available:
//
//   - "postgres" (userload/internal/storage/postgres)
//   - "sqlite"   (userload/internal/storage/sqlite)
//   - "mysql"    (userload/internal/storage/mysql)
//   - "mssql"    (userload/internal/storage/mssql)
//
// Typical usage (in cmd/userload or a similar wiring layer):
//
//	import _ "userload/internal/storage/all" // enable all built-in backends
//
//	repo, err := storage.New(ctx, storage.Config{Kind: cfg.DB.Kind, DSN: cfg.DB.DSN, Table: cfg.DB.Table})
//	if err != nil {
//	    // handle error
//	}
//	defer repo.Close()
//
// If you want a binary that supports only a subset of backends, import the
// required backend packages directly instead of this one.
package all

import (
	_ "userload/internal/storage/mssql"
	_ "userload/internal/storage/mysql"
	_ "userload/internal/storage/postgres"
	_ "userload/internal/storage/sqlite"
)
