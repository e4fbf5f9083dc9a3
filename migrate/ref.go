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
	"fmt"
	"regexp"
	"strings"

	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/service/ecr"
	"github.com/containerd/containerd/reference"
	"github.com/pkg/errors"
)

// Scope classifies a source artifact by the path segment it is published
// under.
type Scope string

const (
	// ScopeDev selects artifacts published under a docker-dev path segment.
	ScopeDev Scope = "docker-dev"
	// ScopeRelease selects artifacts published under a docker-release path
	// segment.
	ScopeRelease Scope = "docker-release"

	// defaultTag is assumed when a source reference carries no tag or digest.
	defaultTag = "latest"
)

var (
	errMalformedReference = errors.New("ref: no docker-dev or docker-release segment")
	errInvalidScope       = errors.New("ref: invalid scope")
	splitRe               = regexp.MustCompile(`[:@]`)
)

// ParseScope validates a scope name from configuration.
func ParseScope(s string) (Scope, error) {
	switch Scope(s) {
	case ScopeDev, ScopeRelease:
		return Scope(s), nil
	}
	return "", errors.Wrapf(errInvalidScope, "%q", s)
}

// ArtifactSpec represents a parsed source artifact reference.
type ArtifactSpec struct {
	// Scope is the path segment the artifact was published under.
	Scope Scope
	// Repository is the trimmed repository path, without tag or digest.
	Repository string
	// Object is the tag and/or digest. The @ is retained to signify
	// digests.
	Object string
	// Source is the reference as given, used for pulls and log lines.
	Source string
}

// ParseArtifact parses a source registry reference into its constituent
// parts. The trimmed name is everything after the first docker-dev or
// docker-release path segment; a reference without such a segment is
// malformed.
func ParseArtifact(ref string) (ArtifactSpec, error) {
	scope, trimmed := trimScope(ref)
	if trimmed == "" {
		return ArtifactSpec{}, errors.Wrapf(errMalformedReference, "%q", ref)
	}
	spec := ArtifactSpec{
		Scope:      scope,
		Repository: trimmed,
		Source:     ref,
	}
	if delimiterIndex := splitRe.FindStringIndex(trimmed); delimiterIndex != nil {
		// This allows us to retain the @ to signify digests or shortened
		// digests in the object.
		spec.Object = trimmed[delimiterIndex[0]:]
		if spec.Object[:1] == ":" {
			spec.Object = spec.Object[1:]
		}
		spec.Repository = trimmed[:delimiterIndex[0]]
	}
	if spec.Repository == "" {
		return ArtifactSpec{}, errors.Wrapf(errMalformedReference, "%q", ref)
	}
	return spec, nil
}

// trimScope removes everything up to and including the first scope path
// segment.
func trimScope(ref string) (Scope, string) {
	segments := strings.Split(ref, "/")
	for i, segment := range segments {
		switch Scope(segment) {
		case ScopeDev, ScopeRelease:
			return Scope(segment), strings.Join(segments[i+1:], "/")
		}
	}
	return "", ""
}

// TrimmedName returns the trimmed name with its tag or digest, e.g.
// "foo/bar:1.0".
func (spec ArtifactSpec) TrimmedName() string {
	if spec.Object == "" {
		return spec.Repository
	}
	separator := ":"
	if spec.Object[0] == '@' {
		separator = ""
	}
	return spec.Repository + separator + spec.Object
}

// TargetRepository returns the ECR repository name the artifact migrates
// into, e.g. "docker-dev/foo/bar".
func (spec ArtifactSpec) TargetRepository(base Scope) string {
	return string(base) + "/" + spec.Repository
}

// TargetRef returns the fully qualified target reference, e.g.
// "111122223333.dkr.ecr.us-east-1.amazonaws.com/docker-dev/foo/bar:1.0".
func (spec ArtifactSpec) TargetRef(account, region string, base Scope) string {
	return fmt.Sprintf("%s.dkr.ecr.%s.amazonaws.com/%s/%s", account, region, base, spec.TrimmedName())
}

// ImageID returns an ecr.ImageIdentifier suitable for use in calls to ECR.
func (spec ArtifactSpec) ImageID() *ecr.ImageIdentifier {
	imageID := ecr.ImageIdentifier{}
	tag, dgst := reference.SplitObject(spec.Object)
	tag = strings.TrimSuffix(tag, "@")
	if tag != "" {
		imageID.ImageTag = aws.String(tag)
	}
	if dgst != "" {
		imageID.ImageDigest = aws.String(string(dgst))
	}
	if imageID.ImageTag == nil && imageID.ImageDigest == nil {
		imageID.ImageTag = aws.String(defaultTag)
	}
	return &imageID
}
