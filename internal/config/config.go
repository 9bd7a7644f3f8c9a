// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Package config resolves runtime configuration from the FFFC_* environment
// variables (§6 of the design), layered over hardcoded defaults. The worker
// parallelism, which the original runtime fixed at code-generation time,
// keeps its hardcoded default (Config.ParallelCount); no environment
// variable or flag sets it.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/google/fffc/internal/fffclog"
)

// Rate is one of the NONE/SOME/LOTS knobs used for FFFC_MUTATION_RATE and
// FFFC_RESIZE_RATE.
type Rate int

const (
	RateNone Rate = iota
	RateSome
	RateLots
)

func ParseRate(s string) (Rate, error) {
	switch strings.ToUpper(strings.TrimSpace(s)) {
	case "", "NONE":
		return RateNone, nil
	case "SOME":
		return RateSome, nil
	case "LOTS":
		return RateLots, nil
	default:
		return RateNone, fmt.Errorf("unrecognized rate %q", s)
	}
}

// Probability returns the chance, in [0,1), with which a rate-gated event
// fires. NONE never fires, LOTS fires often.
func (r Rate) Probability() float64 {
	switch r {
	case RateSome:
		return 1.0 / 512
	case RateLots:
		return 1.0 / 4
	default:
		return 0
	}
}

// Config holds everything the runtime reads once at startup.
type Config struct {
	DataPath        string
	CrashPath       string
	LogLevel        fffclog.Level
	MutationRate    Rate
	ResizeRate      Rate
	MutationCount   int // -1 = unbounded
	GenerationCount int // -1 = unbounded
	MaxStateCount   int
	DebugReplayPath string
	Tracing         bool

	// Not part of the original environment surface; fixed per target binary
	// in the original's code generator, set only by Default() here.
	ParallelCount int
}

// Default returns the runtime's baseline configuration.
func Default() Config {
	return Config{
		DataPath:        os.TempDir(),
		CrashPath:       os.TempDir(),
		LogLevel:        fffclog.Info,
		MutationRate:    RateSome,
		ResizeRate:      RateSome,
		MutationCount:   1000,
		GenerationCount: 4,
		MaxStateCount:   64,
		ParallelCount:   4,
	}
}

// FromEnv layers FFFC_* environment variables over Default().
func FromEnv() (Config, error) {
	c := Default()
	if v := os.Getenv("FFFC_DATA_PATH"); v != "" {
		c.DataPath = v
	}
	if v := os.Getenv("FFFC_CRASH_PATH"); v != "" {
		c.CrashPath = v
	}
	if v := os.Getenv("FFFC_LOG_LEVEL"); v != "" {
		c.LogLevel = fffclog.ParseLevel(v)
	}
	if v := os.Getenv("FFFC_MUTATION_RATE"); v != "" {
		r, err := ParseRate(v)
		if err != nil {
			return c, fmt.Errorf("FFFC_MUTATION_RATE: %w", err)
		}
		c.MutationRate = r
	}
	if v := os.Getenv("FFFC_RESIZE_RATE"); v != "" {
		r, err := ParseRate(v)
		if err != nil {
			return c, fmt.Errorf("FFFC_RESIZE_RATE: %w", err)
		}
		c.ResizeRate = r
	}
	if v := os.Getenv("FFFC_MUTATION_COUNT"); v != "" {
		n, err := parseIntAtLeast(v, -1)
		if err != nil {
			return c, fmt.Errorf("FFFC_MUTATION_COUNT: %w", err)
		}
		c.MutationCount = n
	}
	if v := os.Getenv("FFFC_GENERATION_COUNT"); v != "" {
		n, err := parseIntAtLeast(v, -1)
		if err != nil {
			return c, fmt.Errorf("FFFC_GENERATION_COUNT: %w", err)
		}
		c.GenerationCount = n
	}
	if v := os.Getenv("FFFC_MAX_STATE_COUNT"); v != "" {
		n, err := parseIntAtLeast(v, 0)
		if err != nil {
			return c, fmt.Errorf("FFFC_MAX_STATE_COUNT: %w", err)
		}
		c.MaxStateCount = n
	}
	if v := os.Getenv("FFFC_DEBUG_REPLAY"); v != "" {
		c.DebugReplayPath = strings.TrimRight(v, "/")
	}
	if v := os.Getenv("FFFC_TRACING"); v == "True" {
		c.Tracing = true
	}
	return c, nil
}

func parseIntAtLeast(s string, min int) (int, error) {
	n, err := strconv.Atoi(strings.TrimSpace(s))
	if err != nil {
		return 0, err
	}
	if n < min {
		return 0, fmt.Errorf("%d is below minimum %d", n, min)
	}
	return n, nil
}
