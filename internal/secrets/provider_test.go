package secrets_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/travelportal/quote-api/internal/secrets"
	"go.uber.org/zap"
)

type mapFetcher map[string]string

func (m mapFetcher) Fetch(_ context.Context, name string) (string, error) {
	if v, ok := m[name]; ok {
		return v, nil
	}
	return "", secrets.ErrSecretNotFound
}

func TestProvider_GetSecretOrEnv(t *testing.T) {
	provider := secrets.NewProviderWithFetcher(secrets.SourceVault, mapFetcher{"portal-jwt-secret": "from-vault"}, zap.NewNop())
	ctx := context.Background()

	t.Setenv("JWT_SECRET", "")
	value, err := provider.GetSecretOrEnv(ctx, "portal-jwt-secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-vault", value)

	t.Setenv("JWT_SECRET", "from-env")
	value, err = provider.GetSecretOrEnv(ctx, "portal-jwt-secret", "JWT_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "from-env", value)

	_, err = provider.GetSecret(ctx, "missing")
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
	assert.Equal(t, secrets.SourceVault, provider.Source())
}

func TestNewProvider_EnvironmentSource(t *testing.T) {
	provider, err := secrets.NewProvider(&secrets.ProviderConfig{
		Source:      secrets.SourceAuto,
		Environment: "development",
	}, zap.NewNop())
	require.NoError(t, err)
	assert.Equal(t, secrets.SourceEnvironment, provider.Source())

	t.Setenv("QUOTE_API_TEST_SECRET", "value")
	value, err := provider.GetSecret(context.Background(), "QUOTE_API_TEST_SECRET")
	require.NoError(t, err)
	assert.Equal(t, "value", value)

	_, err = provider.GetSecret(context.Background(), "QUOTE_API_TEST_SECRET_UNSET")
	assert.ErrorIs(t, err, secrets.ErrSecretNotFound)
}

func TestNewProvider_VaultRequiresName(t *testing.T) {
	_, err := secrets.NewProvider(&secrets.ProviderConfig{Source: secrets.SourceVault}, zap.NewNop())
	assert.Error(t, err)
}
