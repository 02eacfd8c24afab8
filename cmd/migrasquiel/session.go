package main

import (
	"context"
	"os"

	"migrasquiel/internal/session"
	mssqlsession "migrasquiel/internal/session/mssql"
	mysqlsession "migrasquiel/internal/session/mysql"
	pgsession "migrasquiel/internal/session/postgres"
)

// resolveURL implements the "exactly one of --x or --x-env" rule spec
// §6 applies to --source/--source-env and --destination/--destination-env.
func resolveURL(flagName, direct, env string) (string, error) {
	if direct != "" && env != "" {
		return "", fatalUsage("--%s and --%s-env are mutually exclusive", flagName, flagName)
	}
	if direct != "" {
		return direct, nil
	}
	if env != "" {
		v := os.Getenv(env)
		if v == "" {
			return "", fatalUsage("environment variable %s (from --%s-env) is empty or unset", env, flagName)
		}
		return v, nil
	}
	return "", fatalUsage("exactly one of --%s or --%s-env is required", flagName, flagName)
}

// openSession opens a session against rawURL using the provider named
// by --provider, delegating to the matching session/<provider>.Open,
// which already knows its own driver, DSN translation and dialect.
func openSession(ctx context.Context, provider, rawURL string) (*session.Session, error) {
	switch provider {
	case "mysql":
		return mysqlsession.Open(ctx, rawURL)
	case "postgres":
		return pgsession.Open(ctx, rawURL)
	case "sqlserver":
		return mssqlsession.Open(ctx, rawURL)
	default:
		return nil, fatalUsage("unsupported --provider %q (want mysql, postgres or sqlserver)", provider)
	}
}
