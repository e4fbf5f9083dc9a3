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

// Package migrate moves container images from a source artifact registry
// into Amazon ECR.
//
// # References
//
// Source references name an image below a docker-dev or docker-release path
// segment, e.g. "artifactory.example.com/docker-dev/foo/bar:1.0". The
// trimmed name is everything after that segment; the target reference is the
// trimmed name below the matching base repository in ECR, e.g.
// "111122223333.dkr.ecr.us-east-1.amazonaws.com/docker-dev/foo/bar:1.0".
//
// # Procedure
//
// Each artifact is processed once, synchronously: trim, scope check, pull,
// duplicate check, then (when a push is needed) repository ensure, tag, push,
// and verify. Images already present in the target are skipped unless their
// trimmed name is on the refresh list of floating tags. Every artifact ends
// with exactly one line in one of three append-only outcome lists.
//
// # License
//
// This package is licensed under the Apache 2.0 license.
package migrate
