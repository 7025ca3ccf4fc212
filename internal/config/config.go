// Package config loads experiment configuration files over the per-
// environment defaults. Every option has a default, so an empty file
// (or no file at all) yields a runnable single-agent setup.
package config

import (
	"fmt"

	"github.com/spf13/viper"

	"github.com/ssandler/econgym/internal/capital"
	"github.com/ssandler/econgym/internal/diffdemand"
	"github.com/ssandler/econgym/internal/durable"
	"github.com/ssandler/econgym/internal/env"
	"github.com/ssandler/econgym/internal/shock"
	"github.com/ssandler/econgym/internal/townsend"
)

// Experiment selects one environment and carries the options of all
// four families; only the selected section is consumed.
type Experiment struct {
	Env  string `mapstructure:"env"`
	Mode string `mapstructure:"mode"`
	Seed uint64 `mapstructure:"seed"`

	Capital    capital.Config    `mapstructure:"capital"`
	Townsend   townsend.Config   `mapstructure:"townsend"`
	DiffDemand diffdemand.Config `mapstructure:"diffdemand"`
	Durable    durable.Config    `mapstructure:"durable"`
}

// Default returns a runnable experiment: the capital planner with its
// stock defaults and random shocks.
func Default() Experiment {
	return Experiment{
		Env:        "capital",
		Mode:       "random",
		Capital:    capital.Default(),
		Townsend:   townsend.Default(),
		DiffDemand: diffdemand.Default(),
		Durable:    durable.Default(),
	}
}

// Load reads a YAML experiment file on top of the defaults. An empty
// path returns the defaults unchanged.
func Load(path string) (Experiment, error) {
	exp := Default()
	if path == "" {
		return exp, nil
	}

	v := viper.New()
	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return exp, fmt.Errorf("read config: %w", err)
	}
	if err := v.Unmarshal(&exp); err != nil {
		return exp, fmt.Errorf("parse config: %w", err)
	}
	return exp, nil
}

// Build constructs the selected environment behind the shared
// multi-agent contract.
func (e Experiment) Build() (env.Multi, error) {
	mode, err := shock.ParseMode(e.Mode)
	if err != nil {
		return nil, err
	}

	switch e.Env {
	case "capital":
		cfg := e.Capital
		cfg.Mode = mode
		if cfg.Seed == 0 {
			cfg.Seed = e.Seed
		}
		return capital.New(cfg)
	case "townsend":
		cfg := e.Townsend
		cfg.Mode = mode
		if cfg.Seed == 0 {
			cfg.Seed = e.Seed
		}
		return townsend.New(cfg)
	case "diffdemand":
		cfg := e.DiffDemand
		if cfg.Seed == 0 {
			cfg.Seed = e.Seed
		}
		return diffdemand.New(cfg)
	case "durable":
		cfg := e.Durable
		if cfg.Seed == 0 {
			cfg.Seed = e.Seed
		}
		d, err := durable.New(cfg)
		if err != nil {
			return nil, err
		}
		return d.Multi(), nil
	}
	return nil, fmt.Errorf("unknown env %q", e.Env)
}
