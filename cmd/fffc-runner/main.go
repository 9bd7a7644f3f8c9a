// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

// Command fffc-runner demonstrates wiring a single intercepted function into
// the per-function fuzzer runtime: it registers a toy parser as a target,
// calls it in a loop as a stand-in for a real program's normal traffic, and
// lets the orchestrator fuzz every call alongside it.
package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"math/rand"
	"time"

	"github.com/google/fffc/internal/config"
	"github.com/google/fffc/internal/fffclog"
	"github.com/google/fffc/internal/hook"
	"github.com/google/fffc/internal/orchestrator"
)

var (
	flagCalls = flag.Int("calls", 100, "number of real calls to make before exiting")
)

// parseHeaderArgs is the toy function under fuzzing: a fixed-size
// length-prefixed record not unlike the header parsers this runtime was
// built to sit in front of.
type parseHeaderArgs struct {
	Length  uint32
	Flags   uint8
	Payload [64]byte
}

var errHeaderTooLong = errors.New("fffc-runner: header length exceeds payload capacity")

func parseHeader(ctx context.Context, a *parseHeaderArgs) error {
	if int(a.Length) > len(a.Payload) {
		return errHeaderTooLong
	}
	_ = a.Payload[:a.Length]
	return nil
}

var headerTarget = orchestrator.Register(
	"parseHeader",
	func() *parseHeaderArgs { return &parseHeaderArgs{} },
	parseHeader,
)

func main() {
	// Must run before anything else: a re-exec'd replica never reaches the
	// rest of main.
	orchestrator.MaybeRunRole()

	flag.Parse()

	cfg, err := config.FromEnv()
	if err != nil {
		log.Fatalf("fffc-runner: %v", err)
	}
	fffclog.SetLevel(cfg.LogLevel)

	o, err := orchestrator.New("parseHeader", cfg, hook.NewReentrancyGuard(), rand.Uint64())
	if err != nil {
		log.Fatalf("fffc-runner: %v", err)
	}

	ctx := context.Background()
	for i := 0; i < *flagCalls; i++ {
		args := &parseHeaderArgs{Length: uint32(i % len(parseHeaderArgs{}.Payload))}
		if err := headerTarget.Intercept(ctx, o, args, parseHeader); err != nil {
			fffclog.Logf(fffclog.Info, "fffc-runner: call %d: %v", i, err)
		}
		time.Sleep(10 * time.Millisecond)
	}
}
