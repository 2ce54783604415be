// Package all wires all built-in storage backends into the storage factory.
//
// Importing it for side effects makes the following kinds available to
// storage.New and storage.BuildDDL:
//
//   - "postgres" (omnicart/internal/storage/postgres)
//   - "mssql"    (omnicart/internal/storage/mssql)
//   - "mysql"    (omnicart/internal/storage/mysql)
//   - "sqlite"   (omnicart/internal/storage/sqlite)
//
// Binaries that need only a subset of backends can import those packages
// directly instead.
package all

import (
	_ "omnicart/internal/storage/mssql"
	_ "omnicart/internal/storage/mysql"
	_ "omnicart/internal/storage/postgres"
	_ "omnicart/internal/storage/sqlite"
)
