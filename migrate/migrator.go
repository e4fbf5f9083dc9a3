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
	"context"

	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/containerd/containerd/log"
	digest "github.com/opencontainers/go-digest"
	"github.com/pkg/errors"
)

// RegistryClient is the subset of target registry operations the migrator
// needs.
type RegistryClient interface {
	RepositoryExists(ctx context.Context, name string) (bool, error)
	CreateRepository(ctx context.Context, name string) error
	ManifestDigest(ctx context.Context, repository string, imageID *ecr.ImageIdentifier) (digest.Digest, error)
}

// ContainerRuntime is the subset of container runtime operations the migrator
// needs.
type ContainerRuntime interface {
	Pull(ctx context.Context, ref string) error
	Tag(ctx context.Context, source, target string) error
	Push(ctx context.Context, ref string) error
}

// Migrator migrates one artifact per call from the source registry into ECR.
// Each call is synchronous, processes the artifact exactly once, and records
// exactly one terminal outcome; there are no retries.
type Migrator struct {
	Registry RegistryClient
	Runtime  ContainerRuntime
	Recorder Recorder

	// Account and Region locate the target registry.
	Account string
	Region  string
	// BaseRepo selects which scope this migrator accepts and names the
	// repository prefix images migrate into.
	BaseRepo Scope
	// SkipPull assumes the source image is already present locally.
	SkipPull bool
	// RefreshNames lists trimmed names whose tags float and are re-pushed
	// even when the target manifest already exists.
	RefreshNames []string
}

// Migrate runs the full decision procedure for one artifact reference:
//
//	TRIM -> SCOPE_CHECK -> PULL -> DUPLICATE_CHECK ->
//	[REPO_ENSURE -> TAG -> PUSH -> VERIFY] -> DONE
//
// The first failure at any gated step is final for the artifact. A nil return
// covers the skip, duplicate, and pushed outcomes; any abort returns an
// error.
func (m *Migrator) Migrate(ctx context.Context, artifact string) error {
	ctx = log.WithLogger(ctx, log.G(ctx).WithField("artifact", artifact))

	spec, err := ParseArtifact(artifact)
	if err != nil {
		return m.fail(ctx, OutcomeFailedTrim, artifact, err)
	}

	if spec.Scope != m.BaseRepo {
		log.G(ctx).
			WithField("scope", spec.Scope).
			WithField("baseRepo", m.BaseRepo).
			Info("migrate: scope mismatch, skipping")
		return m.skip(ctx, OutcomeSkipScope, artifact)
	}

	if !m.SkipPull {
		if err := m.Runtime.Pull(ctx, artifact); err != nil {
			return m.fail(ctx, OutcomeFailedPull, artifact, err)
		}
	}

	repository := spec.TargetRepository(m.BaseRepo)
	target := spec.TargetRef(m.Account, m.Region, m.BaseRepo)
	ctx = log.WithLogger(ctx, log.G(ctx).WithField("target", target))

	dgst, err := m.Registry.ManifestDigest(ctx, repository, spec.ImageID())
	switch {
	case err == nil:
		if !m.refresh(spec.TrimmedName()) {
			log.G(ctx).WithField("digest", dgst).Info("migrate: already present, skipping")
			return m.skip(ctx, OutcomeSkipExisted, artifact)
		}
		log.G(ctx).WithField("digest", dgst).Info("migrate: floating tag, forcing refresh")
	case err != errImageNotFound:
		// An inconclusive probe is treated as absent; the push settles it.
		log.G(ctx).WithError(err).Warn("migrate: duplicate check inconclusive")
	}

	exists, err := m.Registry.RepositoryExists(ctx, repository)
	if err != nil {
		return m.fail(ctx, OutcomeFailedRepoQuery, artifact, err)
	}
	if !exists {
		if err := m.Registry.CreateRepository(ctx, repository); err != nil {
			return m.fail(ctx, OutcomeFailedRepoCreate, artifact, err)
		}
	}

	if err := m.Runtime.Tag(ctx, artifact, target); err != nil {
		return m.fail(ctx, OutcomeFailedTag, artifact, err)
	}
	if err := m.Runtime.Push(ctx, target); err != nil {
		return m.fail(ctx, OutcomeFailedPush, artifact, err)
	}

	dgst, err = m.Registry.ManifestDigest(ctx, repository, spec.ImageID())
	if err != nil {
		return m.fail(ctx, OutcomeFailedVerify, artifact, err)
	}
	log.G(ctx).WithField("digest", dgst).Info("migrate: pushed and verified")
	return m.skip(ctx, OutcomePushed, artifact)
}

// refresh reports whether a trimmed name is exempted from duplicate-skip.
func (m *Migrator) refresh(trimmedName string) bool {
	for _, name := range m.RefreshNames {
		if name == trimmedName {
			return true
		}
	}
	return false
}

func (m *Migrator) fail(ctx context.Context, outcome Outcome, ref string, err error) error {
	m.record(ctx, outcome, ref)
	return errors.Wrapf(err, "migrate: %s", outcome)
}

func (m *Migrator) skip(ctx context.Context, outcome Outcome, ref string) error {
	m.record(ctx, outcome, ref)
	return nil
}

func (m *Migrator) record(ctx context.Context, outcome Outcome, ref string) {
	if err := m.Recorder.Record(outcome, ref); err != nil {
		log.G(ctx).WithError(err).WithField("outcome", outcome).Error("migrate: failed to record outcome")
	}
}
