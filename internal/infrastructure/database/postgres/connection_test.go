package postgres

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestBuildDSN(t *testing.T) {
	cfg := Config{
		Host:     "db.internal",
		Port:     5432,
		User:     "bench",
		Password: "p@ss word",
		DBName:   "results",
		SSLMode:  "require",
	}
	dsn := buildDSN(cfg)
	assert.Contains(t, dsn, "postgres://")
	assert.Contains(t, dsn, "db.internal:5432")
	assert.Contains(t, dsn, "/results")
	assert.Contains(t, dsn, "sslmode=require")
	// The password must be escaped, never embedded raw.
	assert.NotContains(t, dsn, "p@ss word")
}

func TestBuildDSNDefaultsSSLModeOff(t *testing.T) {
	dsn := buildDSN(Config{Host: "localhost", Port: 5432, User: "u", DBName: "d"})
	assert.Contains(t, dsn, "sslmode=disable")
}
