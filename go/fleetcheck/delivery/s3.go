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

package delivery

import (
	"context"
	"fmt"
	"mime"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
)

// PutObjectAPI is the subset of the S3 client used for archiving.
type PutObjectAPI interface {
	PutObject(ctx context.Context, params *s3.PutObjectInput, optFns ...func(*s3.Options)) (*s3.PutObjectOutput, error)
}

// S3Archive stores every report body as <prefix>/YYYY/MM/DD/<run id>.txt.
type S3Archive struct {
	client PutObjectAPI
	bucket string
	prefix string
}

// NewS3Archive creates an archive sink.
func NewS3Archive(client PutObjectAPI, bucket, prefix string) *S3Archive {
	return &S3Archive{client: client, bucket: bucket, prefix: strings.Trim(prefix, "/")}
}

// Key returns the object key for a message.
func (d *S3Archive) Key(msg Message) string {
	return path.Join(d.prefix, msg.GeneratedAt.UTC().Format("2006/01/02"), msg.RunID+".txt")
}

// Deliver implements Deliverer.
func (d *S3Archive) Deliver(ctx context.Context, msg Message) error {
	key := d.Key(msg)
	_, err := d.client.PutObject(ctx, &s3.PutObjectInput{
		Bucket:      aws.String(d.bucket),
		Key:         aws.String(key),
		Body:        strings.NewReader(msg.Body),
		ContentType: aws.String("text/plain; charset=utf-8"),
		// User metadata travels as HTTP headers and must stay US-ASCII.
		Metadata:    map[string]string{"subject": mime.QEncoding.Encode("utf-8", msg.Subject)},
	})
	if err != nil {
		return fmt.Errorf("archiving report to s3://%s/%s: %w", d.bucket, key, err)
	}
	return nil
}
