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
	"errors"
	"fmt"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/ssm"
	ssmtypes "github.com/aws/aws-sdk-go-v2/service/ssm/types"

	"github.com/fleetcheck/fleetcheck/go/fleetcheck/remotecmd"
)

// ShellDocument is the SSM document that runs a shell script on Linux hosts.
const ShellDocument = "AWS-RunShellScript"

// SSMAPI is the subset of the SSM client used by SSMCommands.
type SSMAPI interface {
	SendCommand(ctx context.Context, params *ssm.SendCommandInput, optFns ...func(*ssm.Options)) (*ssm.SendCommandOutput, error)
	GetCommandInvocation(ctx context.Context, params *ssm.GetCommandInvocationInput, optFns ...func(*ssm.Options)) (*ssm.GetCommandInvocationOutput, error)
}

// SSMCommands implements remotecmd.Backend on Systems Manager Run Command.
type SSMCommands struct {
	client SSMAPI
}

// NewSSMCommands creates the command backend.
func NewSSMCommands(client SSMAPI) *SSMCommands {
	return &SSMCommands{client: client}
}

// Dispatch sends command to one instance and returns the command id.
func (s *SSMCommands) Dispatch(ctx context.Context, resourceID, command string) (string, error) {
	out, err := s.client.SendCommand(ctx, &ssm.SendCommandInput{
		DocumentName: aws.String(ShellDocument),
		InstanceIds:  []string{resourceID},
		Parameters:   map[string][]string{"commands": {command}},
		Comment:      aws.String("fleetcheck"),
	})
	if err != nil {
		return "", err
	}
	if out.Command == nil || aws.ToString(out.Command.CommandId) == "" {
		return "", errors.New("SendCommand returned no command id")
	}
	return aws.ToString(out.Command.CommandId), nil
}

// Invocation reads the state of a dispatched command. An invocation the
// service has not registered yet is reported as pending.
func (s *SSMCommands) Invocation(ctx context.Context, commandID, resourceID string) (remotecmd.Invocation, error) {
	out, err := s.client.GetCommandInvocation(ctx, &ssm.GetCommandInvocationInput{
		CommandId:  aws.String(commandID),
		InstanceId: aws.String(resourceID),
	})
	if err != nil {
		var notYet *ssmtypes.InvocationDoesNotExist
		if errors.As(err, &notYet) {
			return remotecmd.Invocation{Status: remotecmd.StatusPending}, nil
		}
		return remotecmd.Invocation{}, fmt.Errorf("GetCommandInvocation %s: %w", commandID, err)
	}
	return remotecmd.Invocation{
		Status: remotecmd.InvocationStatus(out.Status),
		Stdout: aws.ToString(out.StandardOutputContent),
	}, nil
}

var _ remotecmd.Backend = (*SSMCommands)(nil)
