package store

import _ "embed"

// Schema is the DDL for every table this store owns. Deploy tooling and the
// integration-test containers both apply it.
//
//go:embed schema.sql
var Schema string
