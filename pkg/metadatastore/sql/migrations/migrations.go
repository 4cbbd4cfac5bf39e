// Package migrations embeds the PostgreSQL schema for the sql metadatastore backend,
// grounded on the teacher's pkg/store/metadata/postgres/migrations package (iofs
// embed.FS consumed by golang-migrate).
package migrations

import "embed"

//go:embed *.sql
var FS embed.FS
