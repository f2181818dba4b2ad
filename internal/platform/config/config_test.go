package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_Defaults(t *testing.T) {
	t.Chdir(t.TempDir())

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "8080", cfg.APIPort)
	assert.Equal(t, StoreDriverJSON, cfg.StoreDriver)
	assert.Equal(t, 10, cfg.RewardPoints)
	assert.Equal(t, 2*time.Second, cfg.GradeTimeout)
	assert.Equal(t, 72*time.Hour, cfg.JWTExp())
	assert.Equal(t, uint64(256<<20), cfg.GradeMemoryLimit())
	assert.Empty(t, cfg.RedisAddr)
}

func TestLoad_EnvOverrides(t *testing.T) {
	t.Chdir(t.TempDir())
	t.Setenv("REWARD_POINTS", "150")
	t.Setenv("GRADE_TIMEOUT", "500ms")
	t.Setenv("STORE_DRIVER", "postgres")
	t.Setenv("DB_NAME", "lab_test")
	t.Setenv("GRADE_MAX_MEMORY", "64")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 150, cfg.RewardPoints)
	assert.Equal(t, 500*time.Millisecond, cfg.GradeTimeout)
	assert.Equal(t, StoreDriverPostgres, cfg.StoreDriver)
	assert.Contains(t, cfg.DBConnStr(), "dbname=lab_test")
	assert.Equal(t, uint64(64<<20), cfg.GradeMemoryLimit())
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr bool
	}{
		{name: "valid", mutate: func(*Config) {}},
		{name: "unknown driver", mutate: func(c *Config) { c.StoreDriver = "sqlite" }, wantErr: true},
		{name: "negative reward", mutate: func(c *Config) { c.RewardPoints = -1 }, wantErr: true},
		{name: "zero timeout", mutate: func(c *Config) { c.GradeTimeout = 0 }, wantErr: true},
		{name: "negative memory budget", mutate: func(c *Config) { c.GradeMaxMemoryMB = -1 }, wantErr: true},
		{name: "zero jwt expiry", mutate: func(c *Config) { c.JWTExpHours = 0 }, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{StoreDriver: StoreDriverJSON, RewardPoints: 10, GradeTimeout: time.Second, JWTExpHours: 1}
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}
