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
	"encoding/base64"
	"encoding/json"
	"io"
	"strings"

	"github.com/containerd/containerd/log"
	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/api/types/registry"
	"github.com/docker/docker/client"
	"github.com/docker/docker/pkg/jsonmessage"
	units "github.com/docker/go-units"
	"github.com/pkg/errors"
)

// dockerAPI contains only the docker engine APIs that are called by the
// migrator.
type dockerAPI interface {
	ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error)
	ImageTag(ctx context.Context, source, target string) error
	ImagePush(ctx context.Context, image string, options image.PushOptions) (io.ReadCloser, error)
	ImageInspect(ctx context.Context, imageID string, opts ...client.ImageInspectOption) (image.InspectResponse, error)
}

// RuntimeOptions configures a Runtime.
type RuntimeOptions struct {
	// Platform pins pulls to a single architecture, e.g. "linux/amd64".
	Platform string
	// PullUsername and PullPassword authenticate pulls from the source
	// registry. Empty means anonymous pulls.
	PullUsername string
	PullPassword string
	// PushAuth resolves the RegistryAuth header for pushes to the target
	// registry.
	PushAuth func(ctx context.Context) (string, error)
}

// Runtime wraps the docker engine operations the migrator needs: pull, tag,
// and push.
type Runtime struct {
	client dockerAPI
	opts   RuntimeOptions
}

// NewRuntime creates a Runtime backed by the docker engine named in the
// environment.
func NewRuntime(opts RuntimeOptions) (*Runtime, error) {
	cli, err := client.NewClientWithOpts(client.FromEnv, client.WithAPIVersionNegotiation())
	if err != nil {
		return nil, errors.Wrap(err, "docker: create client")
	}
	return &Runtime{client: cli, opts: opts}, nil
}

// Pull pulls the source reference for the pinned platform. The pull only
// completes once the progress stream is consumed.
func (r *Runtime) Pull(ctx context.Context, ref string) error {
	pullOptions := image.PullOptions{Platform: r.opts.Platform}
	if r.opts.PullUsername != "" {
		auth, err := encodeAuth(r.opts.PullUsername, r.opts.PullPassword, registryHost(ref))
		if err != nil {
			return err
		}
		pullOptions.RegistryAuth = auth
	}

	log.G(ctx).WithField("ref", ref).WithField("platform", r.opts.Platform).Info("docker.pull")
	reader, err := r.client.ImagePull(ctx, ref, pullOptions)
	if err != nil {
		return errors.Wrapf(err, "docker: pull %q", ref)
	}
	defer reader.Close()
	if err := drainProgress(reader); err != nil {
		return errors.Wrapf(err, "docker: pull %q", ref)
	}

	if inspect, err := r.client.ImageInspect(ctx, ref); err == nil {
		log.G(ctx).
			WithField("ref", ref).
			WithField("size", units.HumanSize(float64(inspect.Size))).
			Info("docker.pull: complete")
	}
	return nil
}

// Tag applies the target reference to the local source image.
func (r *Runtime) Tag(ctx context.Context, source, target string) error {
	log.G(ctx).WithField("source", source).WithField("target", target).Debug("docker.tag")
	if err := r.client.ImageTag(ctx, source, target); err != nil {
		return errors.Wrapf(err, "docker: tag %q as %q", source, target)
	}
	return nil
}

// Push pushes the target reference. Push failures are reported inside the
// progress stream, not in the return value of ImagePush.
func (r *Runtime) Push(ctx context.Context, ref string) error {
	pushOptions := image.PushOptions{}
	if r.opts.PushAuth != nil {
		auth, err := r.opts.PushAuth(ctx)
		if err != nil {
			return errors.Wrap(err, "docker: resolve push credentials")
		}
		pushOptions.RegistryAuth = auth
	}

	log.G(ctx).WithField("ref", ref).Info("docker.push")
	reader, err := r.client.ImagePush(ctx, ref, pushOptions)
	if err != nil {
		return errors.Wrapf(err, "docker: push %q", ref)
	}
	defer reader.Close()
	if err := drainProgress(reader); err != nil {
		return errors.Wrapf(err, "docker: push %q", ref)
	}
	return nil
}

// drainProgress consumes a docker progress stream to completion and surfaces
// any in-band error message.
func drainProgress(reader io.Reader) error {
	return jsonmessage.DisplayJSONMessagesStream(reader, io.Discard, 0, false, nil)
}

// encodeAuth encodes credentials into the base64 JSON RegistryAuth header
// accepted by the docker engine API.
func encodeAuth(username, password, server string) (string, error) {
	authConfig := registry.AuthConfig{
		Username:      username,
		Password:      password,
		ServerAddress: server,
	}
	encoded, err := json.Marshal(authConfig)
	if err != nil {
		return "", errors.Wrap(err, "docker: marshal auth config")
	}
	return base64.StdEncoding.EncodeToString(encoded), nil
}

// registryHost extracts the registry host from an image reference, e.g.
// "artifactory.example.com/docker-dev/foo:1.0" -> "artifactory.example.com".
func registryHost(ref string) string {
	if idx := strings.Index(ref, "/"); idx > 0 {
		return ref[:idx]
	}
	return ref
}
