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
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/cloudwatch"
	cwtypes "github.com/aws/aws-sdk-go-v2/service/cloudwatch/types"

	"github.com/fleetcheck/fleetcheck/go/fcerrors"
	"github.com/fleetcheck/fleetcheck/go/fleetcheck/probe"
)

// GetMetricDataAPI is the CloudWatch call used by CloudWatchMetrics.
type GetMetricDataAPI interface {
	GetMetricData(ctx context.Context, params *cloudwatch.GetMetricDataInput, optFns ...func(*cloudwatch.Options)) (*cloudwatch.GetMetricDataOutput, error)
}

// CloudWatchMetrics implements probe.MetricsBackend.
type CloudWatchMetrics struct {
	client GetMetricDataAPI
}

// NewCloudWatchMetrics creates the metrics backend.
func NewCloudWatchMetrics(client GetMetricDataAPI) *CloudWatchMetrics {
	return &CloudWatchMetrics{client: client}
}

const queryID = "q0"

// MetricValues fetches every datapoint of the series, following pagination.
func (c *CloudWatchMetrics) MetricValues(ctx context.Context, q probe.MetricQuery) ([]float64, error) {
	in := &cloudwatch.GetMetricDataInput{
		StartTime: aws.Time(q.Start),
		EndTime:   aws.Time(q.End),
		ScanBy:    cwtypes.ScanByTimestampDescending,
		MetricDataQueries: []cwtypes.MetricDataQuery{{
			Id: aws.String(queryID),
			MetricStat: &cwtypes.MetricStat{
				Metric: &cwtypes.Metric{
					Namespace:  aws.String(q.Namespace),
					MetricName: aws.String(q.MetricName),
					Dimensions: []cwtypes.Dimension{{
						Name:  aws.String(q.DimensionName),
						Value: aws.String(q.DimensionValue),
					}},
				},
				Period: aws.Int32(int32(q.Period.Seconds())),
				Stat:   aws.String(q.Statistic),
				Unit:   cwtypes.StandardUnit(q.Unit),
			},
			ReturnData: aws.Bool(true),
		}},
	}

	var values []float64
	for {
		out, err := c.client.GetMetricData(ctx, in)
		if err != nil {
			return nil, fcerrors.Wrap(fcerrors.FC1001("GetMetricData "+metricLabel(q)), err)
		}
		for _, r := range out.MetricDataResults {
			if aws.ToString(r.Id) == queryID {
				values = append(values, r.Values...)
			}
		}
		if aws.ToString(out.NextToken) == "" {
			return values, nil
		}
		in.NextToken = out.NextToken
	}
}

var _ probe.MetricsBackend = (*CloudWatchMetrics)(nil)

func metricLabel(q probe.MetricQuery) string {
	return fmt.Sprintf("%s/%s{%s=%s}", q.Namespace, q.MetricName, q.DimensionName, q.DimensionValue)
}
