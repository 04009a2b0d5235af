package persistence

import (
	"context"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	sqlassets "github.com/nimbusdesk/inventory-service/database"
)

// BootstrapSchema applies the embedded inventory DDL in a single transaction,
// in dependency order:
//  1. resource_pools.sql
//  2. resource_pool_seats.sql (includes the used_seats recount trigger)
//  3. personal_accounts.sql
//  4. subscriptions.sql
//
// SQL is embedded at build time so binaries stay self-contained. Every
// statement carries IF NOT EXISTS / OR REPLACE guards, so the helper is
// idempotent and safe to run at every startup and in tests.
func BootstrapSchema(ctx context.Context, pool *pgxpool.Pool) error {
	if pool == nil {
		return fmt.Errorf("bootstrap schema: pool is required")
	}

	var statements []string
	statements = append(statements, splitStatements(sqlassets.ResourcePoolsSQL)...)
	statements = append(statements, splitStatements(sqlassets.ResourcePoolSeatsSQL)...)
	statements = append(statements, splitStatements(sqlassets.PersonalAccountsSQL)...)
	statements = append(statements, splitStatements(sqlassets.SubscriptionsSQL)...)

	tx, err := pool.BeginTx(ctx, pgx.TxOptions{})
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer tx.Rollback(ctx) // nolint:errcheck

	for _, stmt := range statements {
		if _, err := tx.Exec(ctx, stmt); err != nil {
			return fmt.Errorf("apply ddl: %w", err)
		}
	}

	return tx.Commit(ctx)
}

// splitStatements splits a DDL blob on semicolons while keeping dollar-quoted
// bodies (the plpgsql recount trigger) intact.
func splitStatements(blob string) []string {
	var (
		statements []string
		current    strings.Builder
		dollarTag  string
	)

	for i := 0; i < len(blob); i++ {
		ch := blob[i]

		if ch == '$' {
			if dollarTag == "" {
				if tag, ok := readDollarTag(blob[i:]); ok {
					dollarTag = tag
					current.WriteString(tag)
					i += len(tag) - 1
					continue
				}
			} else if strings.HasPrefix(blob[i:], dollarTag) {
				current.WriteString(dollarTag)
				i += len(dollarTag) - 1
				dollarTag = ""
				continue
			}
		}

		if ch == ';' && dollarTag == "" {
			if stmt := strings.TrimSpace(current.String()); stmt != "" {
				statements = append(statements, stmt)
			}
			current.Reset()
			continue
		}

		current.WriteByte(ch)
	}

	if stmt := strings.TrimSpace(current.String()); stmt != "" {
		statements = append(statements, stmt)
	}

	return statements
}

// readDollarTag reports the dollar-quote tag ("$$", "$recount$", ...) starting
// at the beginning of s, if any.
func readDollarTag(s string) (string, bool) {
	if len(s) < 2 || s[0] != '$' {
		return "", false
	}
	for i := 1; i < len(s); i++ {
		switch {
		case s[i] == '$':
			return s[:i+1], true
		case s[i] >= 'a' && s[i] <= 'z', s[i] >= 'A' && s[i] <= 'Z', s[i] == '_':
			// still inside a candidate tag
		default:
			return "", false
		}
	}
	return "", false
}
