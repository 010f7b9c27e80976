// Package db embeds the SQL files the marketplace needs at runtime.
package db

import _ "embed"

// Schema holds the DDL for users, api_keys, products, cart_lines,
// orders, order_lines and notifications. Applied on startup by the
// repository layer and by seed-db before loading fixtures.
//
//go:embed migrations/001_schema.sql
var Schema string
