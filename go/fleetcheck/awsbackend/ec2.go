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
	"github.com/aws/aws-sdk-go-v2/service/ec2"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
)

// DescribeInstancesAPI is the EC2 call used by EC2Names.
type DescribeInstancesAPI interface {
	DescribeInstances(ctx context.Context, params *ec2.DescribeInstancesInput, optFns ...func(*ec2.Options)) (*ec2.DescribeInstancesOutput, error)
}

// EC2Names resolves instance ids to their Name tag.
type EC2Names struct {
	client DescribeInstancesAPI
}

// NewEC2Names creates the resolver.
func NewEC2Names(client DescribeInstancesAPI) *EC2Names {
	return &EC2Names{client: client}
}

// DisplayName returns the Name tag of the instance, or "" if it has none.
func (e *EC2Names) DisplayName(ctx context.Context, resourceID string) (string, error) {
	out, err := e.client.DescribeInstances(ctx, &ec2.DescribeInstancesInput{
		InstanceIds: []string{resourceID},
	})
	if err != nil {
		return "", fcerrors.Wrap(fcerrors.FC1001("DescribeInstances "+resourceID), err)
	}
	for _, r := range out.Reservations {
		for _, inst := range r.Instances {
			for _, tag := range inst.Tags {
				if aws.ToString(tag.Key) == "Name" {
					return aws.ToString(tag.Value), nil
				}
			}
		}
	}
	return "", nil
}
