// Package metadata reads role, grant, agent, and semantic-view metadata
// from the Snowflake account catalog. All queries are read-only.
package metadata

import (
	"context"
	"crypto/rsa"
	"crypto/x509"
	"database/sql"
	"encoding/pem"
	"errors"
	"fmt"
	"os"

	sf "github.com/snowflakedb/gosnowflake"

	"cortex-grants/internal/config"
)

// Connect opens a Snowflake connection using the configured credentials.
// Key-pair (JWT) auth is preferred; password auth is the fallback when no
// private key path is configured.
func Connect(ctx context.Context, cfg *config.Config) (*sql.DB, error) {
	sfCfg := &sf.Config{
		Account:   cfg.SnowflakeAccount,
		User:      cfg.SnowflakeUser,
		Role:      cfg.SnowflakeRole,
		Warehouse: cfg.SnowflakeWarehouse,
		Database:  cfg.SnowflakeDatabase,
		Schema:    cfg.SnowflakeSchema,
	}

	switch {
	case cfg.SnowflakePrivateKeyPath != "":
		key, err := parsePrivateKeyFromFile(cfg.SnowflakePrivateKeyPath)
		if err != nil {
			return nil, fmt.Errorf("parse private key: %w", err)
		}
		sfCfg.Authenticator = sf.AuthTypeJwt
		sfCfg.PrivateKey = key
	case cfg.SnowflakePassword != "":
		sfCfg.Password = cfg.SnowflakePassword
	default:
		return nil, errors.New("no Snowflake credentials: set SNOWFLAKE_PRIVATE_KEY_PATH or SNOWFLAKE_PASSWORD")
	}

	dsn, err := sf.DSN(sfCfg)
	if err != nil {
		return nil, fmt.Errorf("build DSN: %w", err)
	}

	db, err := sql.Open("snowflake", dsn)
	if err != nil {
		return nil, fmt.Errorf("open snowflake: %w", err)
	}
	if err := db.PingContext(ctx); err != nil {
		db.Close() //nolint:errcheck
		return nil, fmt.Errorf("ping snowflake: %w", err)
	}
	return db, nil
}

// parsePrivateKeyFromFile reads a PEM-encoded PKCS8 RSA private key.
func parsePrivateKeyFromFile(path string) (*rsa.PrivateKey, error) {
	raw, err := os.ReadFile(path) //nolint:gosec // path comes from operator config
	if err != nil {
		return nil, err
	}
	block, _ := pem.Decode(raw)
	if block == nil {
		return nil, errors.New("no PEM block found in private key file")
	}
	parsed, err := x509.ParsePKCS8PrivateKey(block.Bytes)
	if err != nil {
		return nil, err
	}
	key, ok := parsed.(*rsa.PrivateKey)
	if !ok {
		return nil, fmt.Errorf("expected *rsa.PrivateKey, got %T", parsed)
	}
	return key, nil
}
