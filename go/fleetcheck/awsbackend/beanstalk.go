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

package awsbackend

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/elasticbeanstalk"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/monitor"
)

// DescribeEnvironmentsAPI is the Elastic Beanstalk call used by BeanstalkEnvironments.
type DescribeEnvironmentsAPI interface {
	DescribeEnvironments(ctx context.Context, params *elasticbeanstalk.DescribeEnvironmentsInput, optFns ...func(*elasticbeanstalk.Options)) (*elasticbeanstalk.DescribeEnvironmentsOutput, error)
}

// BeanstalkEnvironments implements monitor.EnvironmentLister.
type BeanstalkEnvironments struct {
	client DescribeEnvironmentsAPI
}

// NewBeanstalkEnvironments creates the lister.
func NewBeanstalkEnvironments(client DescribeEnvironmentsAPI) *BeanstalkEnvironments {
	return &BeanstalkEnvironments{client: client}
}

// Environments lists every live environment in API order.
func (b *BeanstalkEnvironments) Environments(ctx context.Context) ([]monitor.Environment, error) {
	in := &elasticbeanstalk.DescribeEnvironmentsInput{IncludeDeleted: aws.Bool(false)}

	var envs []monitor.Environment
	for {
		out, err := b.client.DescribeEnvironments(ctx, in)
		if err != nil {
			return nil, fcerrors.Wrap(fcerrors.FC1001("DescribeEnvironments"), err)
		}
		for _, e := range out.Environments {
			envs = append(envs, monitor.Environment{
				Name:   aws.ToString(e.EnvironmentName),
				Status: string(e.Status),
				Health: string(e.Health),
			})
		}
		if aws.ToString(out.NextToken) == "" {
			return envs, nil
		}
		in.NextToken = out.NextToken
	}
}

var _ monitor.EnvironmentLister = (*BeanstalkEnvironments)(nil)
