package main

import (
	"context"
	"fmt"

	"github.com/usherlabs/custody/internal/config"
	"github.com/usherlabs/custody/internal/crypto"
	"github.com/usherlabs/custody/internal/did"
	"github.com/usherlabs/custody/internal/store"
)

// networkDID returns the DID custodial envelopes are always sealed to.
// The seed comes from network.seed in the config, or from the seed file,
// which is created on first use.
func networkDID(cfg *config.Config) (*did.DID, error) {
	var (
		seed []byte
		err  error
	)
	if cfg.Network.Seed != "" {
		seed, err = did.ParseSeed(cfg.Network.Seed)
	} else {
		seed, err = did.EnsureSeed(cfg.NetworkSeedFile())
	}
	if err != nil {
		return nil, fmt.Errorf("failed to load network seed: %w", err)
	}
	defer crypto.ZeroKey(seed)

	return did.FromSeed(seed)
}

// openStore opens the configured document store. The returned close
// function is never nil.
func openStore(ctx context.Context, cfg *config.Config) (store.Opener, func() error, error) {
	switch cfg.Store.Backend {
	case config.BackendSQLite:
		enc, err := crypto.InitEncryption(cfg.DataDir, true)
		if err != nil {
			return nil, nil, err
		}
		db, err := store.OpenSQLite(cfg.SQLitePath(), enc.MasterKey)
		if err != nil {
			return nil, nil, err
		}
		return db, db.Close, nil

	case config.BackendRedis:
		r, err := store.DialRedis(ctx, store.RedisOptions{
			Addr:     cfg.Store.Redis.Addr,
			Password: cfg.Store.Redis.Password,
			DB:       cfg.Store.Redis.DB,
			Prefix:   cfg.Store.Redis.Prefix,
		})
		if err != nil {
			return nil, nil, err
		}
		return r, r.Close, nil

	default:
		return store.NewMemory(), func() error { return nil }, nil
	}
}
