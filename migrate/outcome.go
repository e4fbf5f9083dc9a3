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
	"sync"

	"github.com/pkg/errors"
)

// Outcome identifies the terminal state of one processed artifact.
type Outcome string

const (
	OutcomeFailedTrim       Outcome = "FAILED_TRIM"
	OutcomeSkipScope        Outcome = "SKIP-SCOPE"
	OutcomeFailedPull       Outcome = "FAILED_PULL"
	OutcomeSkipExisted      Outcome = "SKIP-EXISTED"
	OutcomeFailedRepoQuery  Outcome = "FAILED_REPO_QUERY"
	OutcomeFailedRepoCreate Outcome = "FAILED_REPO_CREATE"
	OutcomeFailedTag        Outcome = "FAILED_TAG"
	OutcomeFailedPush       Outcome = "FAILED_PUSH"
	OutcomeFailedVerify     Outcome = "FAILED_VERIFY"
	OutcomePushed           Outcome = "PUSHED"
)

// Failed reports whether the outcome aborted the artifact.
func (o Outcome) Failed() bool {
	return o.list() == failedList
}

const (
	failedList  = "failed"
	existedList = "existed"
	pushedList  = "pushed"
)

// list returns which of the three outcome lists the outcome is appended to.
func (o Outcome) list() string {
	switch o {
	case OutcomePushed:
		return pushedList
	case OutcomeSkipScope, OutcomeSkipExisted:
		return existedList
	default:
		return failedList
	}
}

// Recorder receives exactly one terminal outcome per processed artifact.
type Recorder interface {
	Record(outcome Outcome, ref string) error
}

// FileRecorder appends outcome lines to three flat files sharing a path
// prefix: <prefix>failed.log, <prefix>existed.log, and <prefix>pushed.log.
// The files are append-only and never rotated, truncated, or read back.
type FileRecorder struct {
	prefix string

	mu    sync.Mutex
	files map[string]*os.File
}

// NewFileRecorder creates a FileRecorder for the given path prefix. Files are
// opened lazily on first use.
func NewFileRecorder(prefix string) *FileRecorder {
	return &FileRecorder{
		prefix: prefix,
		files:  make(map[string]*os.File),
	}
}

// Record appends one "<SUBTYPE> <reference>" line to the outcome's list. Each
// line is written with a single serialized write so concurrent records cannot
// interleave.
func (r *FileRecorder) Record(outcome Outcome, ref string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	f, err := r.file(outcome.list())
	if err != nil {
		return err
	}
	if _, err := f.WriteString(string(outcome) + " " + ref + "\n"); err != nil {
		return errors.Wrapf(err, "record: append to %s list", outcome.list())
	}
	return nil
}

func (r *FileRecorder) file(list string) (*os.File, error) {
	if f, ok := r.files[list]; ok {
		return f, nil
	}
	f, err := os.OpenFile(r.prefix+list+".log", os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return nil, errors.Wrapf(err, "record: open %s list", list)
	}
	r.files[list] = f
	return f, nil
}

// Close closes any outcome lists that were opened.
func (r *FileRecorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var firstErr error
	for list, f := range r.files {
		if err := f.Close(); err != nil && firstErr == nil {
			firstErr = errors.Wrapf(err, "record: close %s list", list)
		}
		delete(r.files, list)
	}
	return firstErr
}
