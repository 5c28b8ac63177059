package mwaa

import (
	"context"
	"fmt"
	"sync"

	"github.com/rs/zerolog"

	"github.com/airbridge-project/airbridge/internal/airflow"
)

// TokenMint is the control-plane call that yields a webserver hostname and a
// CLI credential for one environment.
type TokenMint func(ctx context.Context, environmentName string) (hostname, credential string, err error)

// ClientCache holds at most one data-plane client per environment name,
// created lazily on first use and kept for the process lifetime. Tokens are
// consumed once at construction; expiry is the control plane's problem, not
// tracked here.
type ClientCache struct {
	mu      sync.Mutex
	clients map[string]*airflow.Client
	locks   map[string]*sync.Mutex
	mint    TokenMint
	logger  zerolog.Logger
}

// NewClientCache creates an empty cache backed by the given minting call.
func NewClientCache(mint TokenMint, logger zerolog.Logger) *ClientCache {
	return &ClientCache{
		clients: make(map[string]*airflow.Client),
		locks:   make(map[string]*sync.Mutex),
		mint:    mint,
		logger:  logger,
	}
}

// GetOrCreate returns the cached client for an environment, minting a fresh
// credential and building one when absent. A per-key lock serializes first
// access so concurrent callers for the same new environment share one client
// and one minting call.
func (cc *ClientCache) GetOrCreate(ctx context.Context, environmentName string) (*airflow.Client, error) {
	keyLock := cc.lockFor(environmentName)
	keyLock.Lock()
	defer keyLock.Unlock()

	cc.mu.Lock()
	client, ok := cc.clients[environmentName]
	cc.mu.Unlock()
	if ok {
		return client, nil
	}

	hostname, credential, err := cc.mint(ctx, environmentName)
	if err != nil {
		return nil, fmt.Errorf("minting CLI token for %s: %w", environmentName, err)
	}

	client, err = airflow.NewClient(hostname, credential, cc.logger)
	if err != nil {
		return nil, fmt.Errorf("building airflow client for %s: %w", environmentName, err)
	}

	cc.mu.Lock()
	cc.clients[environmentName] = client
	cc.mu.Unlock()

	cc.logger.Debug().Str("environment", environmentName).Msg("airflow client created")
	return client, nil
}

// Size reports the number of live clients.
func (cc *ClientCache) Size() int {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	return len(cc.clients)
}

// Close releases every cached client's connections.
func (cc *ClientCache) Close() {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	for _, client := range cc.clients {
		client.Close()
	}
}

func (cc *ClientCache) lockFor(environmentName string) *sync.Mutex {
	cc.mu.Lock()
	defer cc.mu.Unlock()
	l, ok := cc.locks[environmentName]
	if !ok {
		l = &sync.Mutex{}
		cc.locks[environmentName] = l
	}
	return l
}
