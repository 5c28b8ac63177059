package mwaa

import (
	"context"
	"encoding/base64"
	"errors"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testCredential() string {
	return base64.StdEncoding.EncodeToString([]byte("Bearer token cache-test-token"))
}

func TestGetOrCreateMintsOnce(t *testing.T) {
	var mints atomic.Int32
	mint := func(ctx context.Context, name string) (string, string, error) {
		mints.Add(1)
		return name + ".airflow.example.com", testCredential(), nil
	}
	cache := NewClientCache(mint, zerolog.Nop())

	first, err := cache.GetOrCreate(context.Background(), "prod")
	require.NoError(t, err)
	second, err := cache.GetOrCreate(context.Background(), "prod")
	require.NoError(t, err)

	assert.Same(t, first, second, "repeated access must return the cached client")
	assert.Equal(t, int32(1), mints.Load(), "a cache hit must not mint a new credential")
}

func TestGetOrCreateSeparateEnvironments(t *testing.T) {
	mint := func(ctx context.Context, name string) (string, string, error) {
		return name + ".airflow.example.com", testCredential(), nil
	}
	cache := NewClientCache(mint, zerolog.Nop())

	prod, err := cache.GetOrCreate(context.Background(), "prod")
	require.NoError(t, err)
	staging, err := cache.GetOrCreate(context.Background(), "staging")
	require.NoError(t, err)

	assert.NotSame(t, prod, staging)
	assert.Equal(t, 2, cache.Size())
}

func TestGetOrCreateMintFailureNotCached(t *testing.T) {
	var mints atomic.Int32
	mint := func(ctx context.Context, name string) (string, string, error) {
		mints.Add(1)
		if mints.Load() == 1 {
			return "", "", errors.New("AccessDeniedException")
		}
		return "host.example.com", testCredential(), nil
	}
	cache := NewClientCache(mint, zerolog.Nop())

	_, err := cache.GetOrCreate(context.Background(), "prod")
	require.Error(t, err)
	assert.Equal(t, 0, cache.Size(), "failed creation must leave nothing cached")

	// A later attempt retries the mint and succeeds.
	client, err := cache.GetOrCreate(context.Background(), "prod")
	require.NoError(t, err)
	assert.NotNil(t, client)
}

func TestGetOrCreateBrokenCredential(t *testing.T) {
	mint := func(ctx context.Context, name string) (string, string, error) {
		return "host.example.com", "%%%not-base64%%%", nil
	}
	cache := NewClientCache(mint, zerolog.Nop())

	_, err := cache.GetOrCreate(context.Background(), "prod")
	require.Error(t, err, "a broken credential must stop client construction")
}

func TestGetOrCreateConcurrentFirstAccess(t *testing.T) {
	var mints atomic.Int32
	mint := func(ctx context.Context, name string) (string, string, error) {
		mints.Add(1)
		return "host.example.com", testCredential(), nil
	}
	cache := NewClientCache(mint, zerolog.Nop())

	var wg sync.WaitGroup
	for i := 0; i < 16; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := cache.GetOrCreate(context.Background(), "prod")
			assert.NoError(t, err)
		}()
	}
	wg.Wait()

	assert.Equal(t, int32(1), mints.Load(), "per-key lock must prevent duplicate creation")
	assert.Equal(t, 1, cache.Size())
}
