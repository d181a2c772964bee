// Package db provides the embedded database schema and the bundled catalog.
package db

import _ "embed"

// Schema contains the DDL statements for all application tables.
//
//go:embed migrations/001_schema.sql
var Schema string

// Products is the bundled product catalog as a JSON array.
//
//go:embed seed/products.json
var Products []byte

// Vouchers is the bundled voucher list as a JSON array.
//
//go:embed seed/vouchers.json
var Vouchers []byte
