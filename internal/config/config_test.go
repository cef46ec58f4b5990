package config

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeSecrets map[string]string

func (f fakeSecrets) GetSecretOrEnv(_ context.Context, secretName, _ string) (string, error) {
	if v, ok := f[secretName]; ok {
		return v, nil
	}
	return "", errors.New("not found")
}

func TestLoad_Defaults(t *testing.T) {
	t.Setenv("APP_ENVIRONMENT", "staging")
	t.Setenv("NOTIFICATIONS_MAXATTEMPTS", "7")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "staging", cfg.App.Environment)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, 7, cfg.Notifications.MaxAttempts)
	assert.Equal(t, "local", cfg.Storage.Mode)
	assert.Equal(t, "0 */5 * * * *", cfg.Notifications.RetryCron)
	assert.Contains(t, cfg.RateLimit.WhitelistPaths, "/health")
}

func TestApplySecrets(t *testing.T) {
	t.Setenv("DATABASE_SSLMODE", "")

	cfg := &Config{Database: DatabaseConfig{Host: "localhost", User: "local"}}
	err := applySecrets(context.Background(), cfg, fakeSecrets{
		"POSTGRES-MAIN-HOST":     "db.internal",
		"POSTGRES-MAIN-PASSWORD": "s3cret",
		"portal-jwt-secret":      "jwt-key",
		"smtp-password":          "mail-pass",
	})
	require.NoError(t, err)

	assert.Equal(t, "db.internal", cfg.Database.Host)
	assert.Equal(t, "local", cfg.Database.User)
	assert.Equal(t, "s3cret", cfg.Database.Password)
	assert.Equal(t, "jwt-key", cfg.Auth.Secret)
	assert.Equal(t, "mail-pass", cfg.Mail.Password)
	assert.Empty(t, cfg.ApiKey.Value)
}

func TestApplySecrets_RequiresJWTSecret(t *testing.T) {
	err := applySecrets(context.Background(), &Config{}, fakeSecrets{})
	assert.Error(t, err)
}

func TestDurations(t *testing.T) {
	server := ServerConfig{ReadTimeout: 5, RequestTimeout: 60}
	assert.Equal(t, 5*time.Second, server.ReadTimeoutDuration())
	assert.Equal(t, time.Minute, server.RequestTimeoutDuration())

	auth := AuthConfig{ClockSkew: 30}
	assert.Equal(t, 30*time.Second, auth.ClockSkewDuration())
}
