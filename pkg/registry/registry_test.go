package registry

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestProviderRegistryResolve(t *testing.T) {
	r := NewProviderRegistry(map[string]ProviderEntry{
		"16509":   {Provider: "Amazon", Short: "aws"},
		"AS15169": {Provider: "Google", Short: "GCP"},
		"24940":   {Provider: "Hetzner"},
	})

	name, ok := r.Resolve("AS16509")
	require.True(t, ok)
	assert.Equal(t, "Amazon", name)

	name, ok = r.Resolve("15169")
	require.True(t, ok)
	assert.Equal(t, "Google", name)

	_, ok = r.Resolve("1")
	assert.False(t, ok)

	assert.Equal(t, map[string]string{"AWS": "Amazon", "GCP": "Google"}, r.Trackable())
	assert.Equal(t, 3, r.Len())
}

func TestProviderRegistryResolveShorts(t *testing.T) {
	r := NewProviderRegistry(map[string]ProviderEntry{"16509": {Provider: "Amazon", Short: "aws"}})

	got, err := r.ResolveShorts([]string{"aws"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"AWS": "Amazon"}, got)

	_, err = r.ResolveShorts([]string{"AWS", "OVH"})
	require.ErrorIs(t, err, ErrUnknownProvider)
	assert.Contains(t, err.Error(), "AWS")
}

func TestCountryRegistry(t *testing.T) {
	r := NewCountryRegistry(map[string]string{"us": "United States", "DE": "Germany"})

	name, ok := r.Name("US")
	require.True(t, ok)
	assert.Equal(t, "United States", name)

	got, err := r.ResolveCodes([]string{"de"})
	require.NoError(t, err)
	assert.Equal(t, map[string]string{"DE": "Germany"}, got)

	_, err = r.ResolveCodes([]string{"XX"})
	require.ErrorIs(t, err, ErrUnknownCountry)
}

func TestLoadRegistries(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, ProviderConfigFile),
		[]byte(`{"16509": {"provider": "Amazon", "short": "aws"}}`), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, CountryConfigFile),
		[]byte(`{"US": "United States"}`), 0o644))

	providers, err := LoadProviderRegistry(filepath.Join(dir, ProviderConfigFile))
	require.NoError(t, err)
	assert.Equal(t, 1, providers.Len())

	countries, err := LoadCountryRegistry(filepath.Join(dir, CountryConfigFile))
	require.NoError(t, err)
	assert.Equal(t, 1, countries.Len())

	_, err = LoadProviderRegistry(filepath.Join(dir, "missing.json"))
	require.Error(t, err)
}
