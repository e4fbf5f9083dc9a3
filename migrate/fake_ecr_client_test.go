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
	"github.com/aws/aws-sdk-go/aws"
	"github.com/aws/aws-sdk-go/aws/request"
	"github.com/aws/aws-sdk-go/service/ecr"
)

// fakeECRClient is a fake that can be used for testing the ecrAPI interface.
// Each method is backed by a function contained in the struct.  Nil functions
// will cause panics when invoked.
type fakeECRClient struct {
	DescribeRepositoriesFn  func(aws.Context, *ecr.DescribeRepositoriesInput, ...request.Option) (*ecr.DescribeRepositoriesOutput, error)
	CreateRepositoryFn      func(aws.Context, *ecr.CreateRepositoryInput, ...request.Option) (*ecr.CreateRepositoryOutput, error)
	BatchGetImageFn         func(aws.Context, *ecr.BatchGetImageInput, ...request.Option) (*ecr.BatchGetImageOutput, error)
	GetAuthorizationTokenFn func(aws.Context, *ecr.GetAuthorizationTokenInput, ...request.Option) (*ecr.GetAuthorizationTokenOutput, error)
}

var _ ecrAPI = (*fakeECRClient)(nil)

func (f *fakeECRClient) DescribeRepositoriesWithContext(ctx aws.Context, arg *ecr.DescribeRepositoriesInput, opts ...request.Option) (*ecr.DescribeRepositoriesOutput, error) {
	return f.DescribeRepositoriesFn(ctx, arg, opts...)
}

func (f *fakeECRClient) CreateRepositoryWithContext(ctx aws.Context, arg *ecr.CreateRepositoryInput, opts ...request.Option) (*ecr.CreateRepositoryOutput, error) {
	return f.CreateRepositoryFn(ctx, arg, opts...)
}

func (f *fakeECRClient) BatchGetImageWithContext(ctx aws.Context, arg *ecr.BatchGetImageInput, opts ...request.Option) (*ecr.BatchGetImageOutput, error) {
	return f.BatchGetImageFn(ctx, arg, opts...)
}

func (f *fakeECRClient) GetAuthorizationTokenWithContext(ctx aws.Context, arg *ecr.GetAuthorizationTokenInput, opts ...request.Option) (*ecr.GetAuthorizationTokenOutput, error) {
	return f.GetAuthorizationTokenFn(ctx, arg, opts...)
}
