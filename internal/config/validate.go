package config

import (
	"fmt"
	"strings"

	"github.com/rotisserie/eris"
)

// Validate checks that the fields required by the given command mode are set.
// Modes: "lookup" (recommend, batch, explain), "serve", "migrate".
func (c *Config) Validate(mode string) error {
	var errs []string

	switch mode {
	case "lookup", "migrate":
		errs = append(errs, c.validateStore()...)
	case "serve":
		errs = append(errs, c.validateStore()...)
		if c.Server.Port <= 0 {
			errs = append(errs, "server.port must be > 0")
		}
		if c.Server.MaxBatchSize <= 0 {
			errs = append(errs, "server.max_batch_size must be > 0")
		}
	default:
		return eris.Errorf("config: unknown mode %q", mode)
	}

	if c.Batch.MaxConcurrentGroups < 1 || c.Batch.MaxConcurrentGroups > 64 {
		errs = append(errs, "batch.max_concurrent_groups must be between 1 and 64")
	}
	if c.Linker.ChunkSize <= 0 {
		errs = append(errs, "linker.chunk_size must be > 0")
	}
	if c.Linker.RateLimit < 0 {
		errs = append(errs, "linker.rate_limit must be >= 0")
	}

	if len(errs) > 0 {
		return eris.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}

func (c *Config) validateStore() []string {
	var errs []string
	switch c.Store.Driver {
	case "postgres", "sqlite", "duckdb":
	default:
		errs = append(errs, fmt.Sprintf("store.driver %q is not supported", c.Store.Driver))
	}
	if c.Store.DatabaseURL == "" {
		errs = append(errs, "store.database_url is required")
	}
	for key, table := range map[string]string{
		"catalog.primary_table":   c.Catalog.PrimaryTable,
		"catalog.secondary_table": c.Catalog.SecondaryTable,
		"catalog.reference_table": c.Catalog.ReferenceTable,
		"catalog.barcode_table":   c.Catalog.BarcodeTable,
	} {
		if table == "" {
			errs = append(errs, key+" is required")
		}
	}
	return errs
}
