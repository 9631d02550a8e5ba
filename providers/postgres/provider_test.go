package postgres

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Konsultn-Engineering/typedsql/connector"
)

func TestPoolConfig(t *testing.T) {
	cfg := connector.Config{
		Driver:         "postgres",
		Host:           "db.internal",
		Database:       "app",
		Username:       "svc",
		Password:       "secret",
		ConnectTimeout: 3 * time.Second,
		Params:         map[string]string{"application_name": "api"},
	}.WithDefaults()

	poolCfg, err := PoolConfig(cfg)
	require.NoError(t, err)

	assert.Equal(t, "db.internal", poolCfg.ConnConfig.Host)
	assert.Equal(t, uint16(5432), poolCfg.ConnConfig.Port)
	assert.Equal(t, "app", poolCfg.ConnConfig.Database)
	assert.Equal(t, "svc", poolCfg.ConnConfig.User)
	assert.Equal(t, "api", poolCfg.ConnConfig.RuntimeParams["application_name"])
	assert.Equal(t, 3*time.Second, poolCfg.ConnConfig.ConnectTimeout)
	assert.Equal(t, int32(10), poolCfg.MaxConns)
	assert.Equal(t, int32(5), poolCfg.MinConns)
	assert.Equal(t, time.Hour, poolCfg.MaxConnLifetime)

	_, err = PoolConfig(connector.Config{Driver: "postgres"})
	assert.Error(t, err)
}

func TestRegistered(t *testing.T) {
	assert.Contains(t, connector.Drivers(), "postgres")
	c, err := connector.New(connector.Config{Driver: "postgres", Host: "localhost"})
	require.NoError(t, err)
	assert.Equal(t, "postgres", c.Dialect().Name())
}
