package main

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/tasknest/tasknest/internal/config"
	"github.com/tasknest/tasknest/internal/conflict"
	"github.com/tasknest/tasknest/internal/engine"
	"github.com/tasknest/tasknest/internal/store"
)

// vault bundles the per-invocation collaborators rooted at one folder.
type vault struct {
	root   string
	config *config.Config
	store  *store.Store
}

// openVault resolves the --vault flag and wires the store against the
// loaded configuration.
func openVault(logger *slog.Logger) (*vault, error) {
	root, err := filepath.Abs(vaultFlag)
	if err != nil {
		return nil, err
	}
	info, err := os.Stat(root)
	if err != nil {
		return nil, fmt.Errorf("vault %s: %w", root, err)
	}
	if !info.IsDir() {
		return nil, fmt.Errorf("vault %s is not a directory", root)
	}

	cfg, err := config.Load(root)
	if err != nil {
		return nil, err
	}

	storeCfg := store.DefaultConfig()
	storeCfg.SelfWriteGrace = cfg.SelfWriteGrace
	storeCfg.SelfWriteTolerance = cfg.SelfWriteTolerance
	storeCfg.Logger = logger

	return &vault{
		root:   root,
		config: cfg,
		store:  store.New(root, storeCfg),
	}, nil
}

// newEngine builds a sync engine wired to the vault's store and tuning.
func (v *vault) newEngine(logger *slog.Logger) *engine.Engine {
	cfg := engine.DefaultConfig()
	cfg.BurstThreshold = v.config.BurstThreshold
	cfg.SelfWrites = v.store.SelfWrites()
	cfg.Conflicts = conflict.FolderProvider{}
	cfg.Logger = logger
	return engine.New(v.root, cfg)
}

// resolveTaskPath accepts a bare filename or a path and anchors it in the
// vault.
func (v *vault) resolveTaskPath(arg string) string {
	if filepath.IsAbs(arg) {
		return arg
	}
	return filepath.Join(v.root, arg)
}
