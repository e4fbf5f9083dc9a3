/*
 * Copyright 2019 Amazon.com, Inc. or its affiliates. All Rights Reserved.
 *
 * Licensed under the Apache License, Version 2.0 (the "License"). You
 * may not use this file except in compliance with the License. A copy of
 * the License is located at
 *
 * 	http://aws.amazon.com/apache2.0/
 *
 * or in the "license" file accompanying this file. This file is
 * distributed on an "AS IS" BASIS, WITHOUT WARRANTIES OR CONDITIONS OF
 * ANY KIND, either express or implied. See the License for the specific
 * language governing permissions and limitations under the License.
 */
package migrate

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOutcomeLists(t *testing.T) {
	cases := []struct {
		outcome Outcome
		list    string
		failed  bool
	}{
		{OutcomeFailedTrim, "failed", true},
		{OutcomeFailedPull, "failed", true},
		{OutcomeFailedRepoQuery, "failed", true},
		{OutcomeFailedRepoCreate, "failed", true},
		{OutcomeFailedTag, "failed", true},
		{OutcomeFailedPush, "failed", true},
		{OutcomeFailedVerify, "failed", true},
		{OutcomeSkipScope, "existed", false},
		{OutcomeSkipExisted, "existed", false},
		{OutcomePushed, "pushed", false},
	}
	for _, tc := range cases {
		t.Run(string(tc.outcome), func(t *testing.T) {
			assert.Equal(t, tc.list, tc.outcome.list())
			assert.Equal(t, tc.failed, tc.outcome.Failed())
		})
	}
}

func TestFileRecorder(t *testing.T) {
	prefix := filepath.Join(t.TempDir(), "run-")
	recorder := NewFileRecorder(prefix)
	defer recorder.Close()

	require.NoError(t, recorder.Record(OutcomePushed, "artifactory.example.com/docker-dev/a:1"))
	require.NoError(t, recorder.Record(OutcomeSkipExisted, "artifactory.example.com/docker-dev/b:1"))
	require.NoError(t, recorder.Record(OutcomeFailedPush, "artifactory.example.com/docker-dev/c:1"))
	require.NoError(t, recorder.Record(OutcomeSkipScope, "artifactory.example.com/docker-release/d:1"))

	pushed, err := os.ReadFile(prefix + "pushed.log")
	require.NoError(t, err)
	assert.Equal(t, "PUSHED artifactory.example.com/docker-dev/a:1\n", string(pushed))

	existed, err := os.ReadFile(prefix + "existed.log")
	require.NoError(t, err)
	assert.Equal(t,
		"SKIP-EXISTED artifactory.example.com/docker-dev/b:1\n"+
			"SKIP-SCOPE artifactory.example.com/docker-release/d:1\n",
		string(existed))

	failed, err := os.ReadFile(prefix + "failed.log")
	require.NoError(t, err)
	assert.Equal(t, "FAILED_PUSH artifactory.example.com/docker-dev/c:1\n", string(failed))
}

func TestFileRecorderAppends(t *testing.T) {
	// Lists are append-only across recorder lifetimes, never truncated.
	prefix := filepath.Join(t.TempDir(), "run-")

	first := NewFileRecorder(prefix)
	require.NoError(t, first.Record(OutcomePushed, "a:1"))
	require.NoError(t, first.Close())

	second := NewFileRecorder(prefix)
	require.NoError(t, second.Record(OutcomePushed, "b:1"))
	require.NoError(t, second.Close())

	pushed, err := os.ReadFile(prefix + "pushed.log")
	require.NoError(t, err)
	assert.Equal(t, "PUSHED a:1\nPUSHED b:1\n", string(pushed))
}
