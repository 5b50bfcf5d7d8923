//go:build duckdb

package main

// Registers the "duckdb" database/sql driver for store.driver=duckdb.
import _ "github.com/duckdb/duckdb-go/v2"
