// Copyright 2026 Supabase, Inc.
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package awsbackend adapts the AWS SDK clients to the narrow backend
// interfaces used by the probes and monitors.
package awsbackend

import (
	"context"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/credentials"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	"github.com/aws/aws-sdk-go-v2/service/ec2"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
)

// Settings selects the account and region. Static keys are optional; when
// empty the SDK default chain (environment, shared config, instance role)
// applies.
type Settings struct {
	Region          string
	Profile         string
	Endpoint        string
	AccessKeyID     string
	SecretAccessKey string
	SessionToken    string
	// HTTPClient replaces the SDK's client, e.g. with an instrumented one.
	HTTPClient aws.HTTPClient
}

// LoadConfig resolves an aws.Config from Settings.
func LoadConfig(ctx context.Context, s Settings) (aws.Config, error) {
	var opts []func(*config.LoadOptions) error
	if s.Region != "" {
		opts = append(opts, config.WithRegion(s.Region))
	}
	if s.Profile != "" {
		opts = append(opts, config.WithSharedConfigProfile(s.Profile))
	}
	if s.AccessKeyID != "" || s.SecretAccessKey != "" {
		if s.AccessKeyID == "" || s.SecretAccessKey == "" {
			return aws.Config{}, fmt.Errorf("both access key id and secret access key must be set")
		}
		opts = append(opts, config.WithCredentialsProvider(
			credentials.NewStaticCredentialsProvider(s.AccessKeyID, s.SecretAccessKey, s.SessionToken)))
	}
	if s.HTTPClient != nil {
		opts = append(opts, config.WithHTTPClient(s.HTTPClient))
	}

	cfg, err := config.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return aws.Config{}, fmt.Errorf("loading aws config: %w", err)
	}
	if s.Endpoint != "" {
		cfg.BaseEndpoint = aws.String(s.Endpoint)
	}
	return cfg, nil
}

// Clients bundles the service clients a run needs.
type Clients struct {
	CloudWatch *cloudwatch.Client
	SSM        *ssm.Client
	EC2        *ec2.Client
	Beanstalk  *elasticbeanstalk.Client
	S3         *s3.Client
}

// NewClients creates every service client from one config. usePathStyle is
// needed for S3-compatible stores behind a custom endpoint.
func NewClients(cfg aws.Config, usePathStyle bool) *Clients {
	return &Clients{
		CloudWatch: cloudwatch.NewFromConfig(cfg),
		SSM:        ssm.NewFromConfig(cfg),
		EC2:        ec2.NewFromConfig(cfg),
		Beanstalk:  elasticbeanstalk.NewFromConfig(cfg),
		S3: s3.NewFromConfig(cfg, func(o *s3.Options) {
			o.UsePathStyle = usePathStyle
		}),
	}
}
