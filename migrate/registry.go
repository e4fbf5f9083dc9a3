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
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/awserr"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/aws/session"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/containerd/containerd/images"
	"github.com/containerd/containerd/log"
	digest "github.com/opencontainers/go-digest"
	ocispec "github.com/opencontainers/image-spec/specs-go/v1"
	"github.com/pkg/errors"
)

var (
	errImageNotFound = errors.New("ecr: image not found")
)

// ecrAPI contains only the ECR APIs that are called by the migrator.
// See https://docs.aws.amazon.com/sdk-for-go/api/service/ecr/ecriface/ for the
// full interface from the SDK.
type ecrAPI interface {
	DescribeRepositoriesWithContext(aws.Context, *ecr.DescribeRepositoriesInput, ...request.Option) (*ecr.DescribeRepositoriesOutput, error)
	CreateRepositoryWithContext(aws.Context, *ecr.CreateRepositoryInput, ...request.Option) (*ecr.CreateRepositoryOutput, error)
	BatchGetImageWithContext(aws.Context, *ecr.BatchGetImageInput, ...request.Option) (*ecr.BatchGetImageOutput, error)
	GetAuthorizationTokenWithContext(aws.Context, *ecr.GetAuthorizationTokenInput, ...request.Option) (*ecr.GetAuthorizationTokenOutput, error)
}

// Registry wraps the ECR APIs the migrator needs: repository existence and
// creation, manifest existence probes, and push credentials.
type Registry struct {
	client ecrAPI
}

// NewRegistry creates a Registry backed by the real ECR client for the given
// region.
func NewRegistry(sess *session.Session, region string) *Registry {
	return &Registry{
		client: ecr.New(sess, &aws.Config{Region: aws.String(region)}),
	}
}

// RepositoryExists queries ECR for the named repository. A
// RepositoryNotFoundException is not an error; any other query failure is.
func (r *Registry) RepositoryExists(ctx context.Context, name string) (bool, error) {
	describeRepositoriesInput := &ecr.DescribeRepositoriesInput{
		RepositoryNames: []*string{aws.String(name)},
	}
	_, err := r.client.DescribeRepositoriesWithContext(ctx, describeRepositoriesInput)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == ecr.ErrCodeRepositoryNotFoundException {
			return false, nil
		}
		return false, errors.Wrapf(err, "ecr.registry: describe %q", name)
	}
	return true, nil
}

// CreateRepository creates the named repository with scan-on-push enabled and
// immutable tags. The policy is fixed.
func (r *Registry) CreateRepository(ctx context.Context, name string) error {
	createRepositoryInput := &ecr.CreateRepositoryInput{
		RepositoryName: aws.String(name),
		ImageScanningConfiguration: &ecr.ImageScanningConfiguration{
			ScanOnPush: aws.Bool(true),
		},
		ImageTagMutability: aws.String(ecr.ImageTagMutabilityImmutable),
	}
	if _, err := r.client.CreateRepositoryWithContext(ctx, createRepositoryInput); err != nil {
		return errors.Wrapf(err, "ecr.registry: create %q", name)
	}
	log.G(ctx).WithField("repository", name).Info("ecr.registry: repository created")
	return nil
}

// EnsureRepository makes sure the named repository exists. A pre-existing
// repository is a no-op; a missing one is created; any other query failure is
// reported without creating anything.
func (r *Registry) EnsureRepository(ctx context.Context, name string) error {
	exists, err := r.RepositoryExists(ctx, name)
	if err != nil {
		return err
	}
	if exists {
		log.G(ctx).WithField("repository", name).Debug("ecr.registry: repository present")
		return nil
	}
	return r.CreateRepository(ctx, name)
}

// ManifestDigest probes the registry for a manifest without downloading its
// content. It returns the manifest digest when the image exists and
// errImageNotFound when the image or its repository is absent.
func (r *Registry) ManifestDigest(ctx context.Context, repository string, imageID *ecr.ImageIdentifier) (digest.Digest, error) {
	log.G(ctx).WithField("imageIdentifier", imageID).Debug("ecr.registry.manifest")
	batchGetImageInput := &ecr.BatchGetImageInput{
		RepositoryName: aws.String(repository),
		ImageIds:       []*ecr.ImageIdentifier{imageID},
		AcceptedMediaTypes: []*string{
			aws.String(ocispec.MediaTypeImageManifest),
			aws.String(images.MediaTypeDockerSchema2Manifest),
			aws.String(ocispec.MediaTypeImageIndex),
			aws.String(images.MediaTypeDockerSchema2ManifestList),
		},
	}

	batchGetImageOutput, err := r.client.BatchGetImageWithContext(ctx, batchGetImageInput)
	if err != nil {
		if aerr, ok := err.(awserr.Error); ok && aerr.Code() == ecr.ErrCodeRepositoryNotFoundException {
			return "", errImageNotFound
		}
		return "", errors.Wrapf(err, "ecr.registry: batch get image %q", repository)
	}

	if len(batchGetImageOutput.Images) == 0 {
		if len(batchGetImageOutput.Failures) > 0 &&
			aws.StringValue(batchGetImageOutput.Failures[0].FailureCode) == ecr.ImageFailureCodeImageNotFound {
			return "", errImageNotFound
		}
		log.G(ctx).
			WithField("failures", batchGetImageOutput.Failures).
			Warn("ecr.registry.manifest: unexpected failure")
		return "", errors.Errorf("ecr.registry: unexpected failures probing %q", repository)
	}

	dgst, err := digest.Parse(aws.StringValue(batchGetImageOutput.Images[0].ImageId.ImageDigest))
	if err != nil {
		return "", errors.Wrap(err, "ecr.registry: invalid manifest digest")
	}
	return dgst, nil
}

// Authorization resolves an ECR authorization token into the RegistryAuth
// header value expected by the docker engine API for pushes to the target
// registry.
func (r *Registry) Authorization(ctx context.Context) (string, error) {
	output, err := r.client.GetAuthorizationTokenWithContext(ctx, &ecr.GetAuthorizationTokenInput{})
	if err != nil {
		return "", errors.Wrap(err, "ecr.registry: get authorization token")
	}
	if len(output.AuthorizationData) == 0 {
		return "", errors.New("ecr.registry: empty authorization data")
	}
	data := output.AuthorizationData[0]
	decoded, err := base64.StdEncoding.DecodeString(aws.StringValue(data.AuthorizationToken))
	if err != nil {
		return "", errors.Wrap(err, "ecr.registry: decode authorization token")
	}
	username, password, ok := strings.Cut(string(decoded), ":")
	if !ok {
		return "", errors.New("ecr.registry: unexpected authorization token format")
	}
	server := strings.TrimPrefix(aws.StringValue(data.ProxyEndpoint), "https://")
	return encodeAuth(username, password, server)
}
