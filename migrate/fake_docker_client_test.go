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
	"io"

	"github.com/docker/docker/api/types/image"
	"github.com/docker/docker/client"
)

// fakeDockerClient is a fake that can be used for testing the dockerAPI
// interface.  Each method is backed by a function contained in the struct.
// Nil functions will cause panics when invoked.
type fakeDockerClient struct {
	ImagePullFn    func(context.Context, string, image.PullOptions) (io.ReadCloser, error)
	ImageTagFn     func(context.Context, string, string) error
	ImagePushFn    func(context.Context, string, image.PushOptions) (io.ReadCloser, error)
	ImageInspectFn func(context.Context, string) (image.InspectResponse, error)
}

var _ dockerAPI = (*fakeDockerClient)(nil)

func (f *fakeDockerClient) ImagePull(ctx context.Context, refStr string, options image.PullOptions) (io.ReadCloser, error) {
	return f.ImagePullFn(ctx, refStr, options)
}

func (f *fakeDockerClient) ImageTag(ctx context.Context, source, target string) error {
	return f.ImageTagFn(ctx, source, target)
}

func (f *fakeDockerClient) ImagePush(ctx context.Context, ref string, options image.PushOptions) (io.ReadCloser, error) {
	return f.ImagePushFn(ctx, ref, options)
}

func (f *fakeDockerClient) ImageInspect(ctx context.Context, imageID string, _ ...client.ImageInspectOption) (image.InspectResponse, error) {
	return f.ImageInspectFn(ctx, imageID)
}
