// Copyright 2024 syzkaller project authors. All rights reserved.
// Use of this source code is governed by Apache 2 LICENSE that can be found in the LICENSE file.

package orchestrator

import (
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/require"

	"github.com/google/fffc/internal/config"
)

func TestRoleStateEncodeDecodeRoundTrip(t *testing.T) {
	want := roleState{
		TargetName:       "parseHeader",
		CallCount:        7,
		Identity:         0xdeadbeef,
		GlobalDir:        "/tmp/g",
		CrashDir:         "/tmp/c",
		CallDir:          "/tmp/g/00000007",
		ParentsPath:      "/tmp/g/00000007/parents",
		FeaturesPath:     "/tmp/g/00000007/features",
		ArgsSnapshotPath: "/tmp/g/00000007/args",
		WorkerIndex:      2,
		MutationDir:      "/tmp/g/00000007/parseHeader-3",
		Seed:             42,
		Cfg:              config.Default(),
	}

	encoded, err := want.encode()
	require.NoError(t, err)

	t.Setenv(envState, encoded)
	got, err := decodeRoleState()
	require.NoError(t, err)

	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("roleState round trip mismatch (-want +got):\n%s", diff)
	}
}

func TestDecodeRoleStateRequiresEnv(t *testing.T) {
	t.Setenv(envState, "")
	_, err := decodeRoleState()
	require.Error(t, err)
}
