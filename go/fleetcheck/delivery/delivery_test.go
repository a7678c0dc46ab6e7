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
	"bytes"
	"context"
	"errors"
	"io"
	"log/slog"
	"mime"
	"testing"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/wneessen/go-mail"
)

var testMessage = Message{
	RunID:       "0f1c2d3e",
	Subject:     "⚠ AWS Monitoring Report",
	Body:        "### EC2 ###\nall good\n",
	GeneratedAt: time.Date(2026, 3, 4, 23, 30, 0, 0, time.FixedZone("EST", -5*3600)),
}

type countingSink struct {
	calls int
	errs  []error
}

func (s *countingSink) Deliver(context.Context, Message) error {
	s.calls++
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

type instantTimer struct{ waits int }

func (t *instantTimer) After(time.Duration) <-chan time.Time {
	t.waits++
	ch := make(chan time.Time, 1)
	ch <- time.Now()
	return ch
}

func TestWriter(t *testing.T) {
	var buf bytes.Buffer
	require.NoError(t, NewWriter(&buf).Deliver(t.Context(), testMessage))
	assert.Equal(t, "⚠ AWS Monitoring Report\n\n### EC2 ###\nall good\n", buf.String())
}

func TestMultiDeliversToEverySink(t *testing.T) {
	boom := errors.New("boom")
	first := &countingSink{errs: []error{boom}}
	second := &countingSink{}

	err := Multi{first, second}.Deliver(t.Context(), testMessage)
	require.ErrorIs(t, err, boom)
	assert.Equal(t, 1, first.calls)
	assert.Equal(t, 1, second.calls, "a failing sink must not stop the others")
}

func TestMultiEmpty(t *testing.T) {
	assert.NoError(t, Multi{}.Deliver(t.Context(), testMessage))
}

func newTestRetrying(inner Deliverer, attempts int) (*Retrying, *instantTimer) {
	timer := &instantTimer{}
	d := NewRetrying(inner, attempts, time.Second, 4*time.Second, slog.New(slog.NewTextHandler(io.Discard, nil)))
	d.timer = timer
	return d, timer
}

func TestRetryingSucceedsAfterTransientFailure(t *testing.T) {
	sink := &countingSink{errs: []error{errors.New("421 try later")}}
	d, timer := newTestRetrying(sink, 3)

	require.NoError(t, d.Deliver(t.Context(), testMessage))
	assert.Equal(t, 2, sink.calls)
	assert.Equal(t, 1, timer.waits)
}

func TestRetryingGivesUp(t *testing.T) {
	last := errors.New("third")
	sink := &countingSink{errs: []error{errors.New("first"), errors.New("second"), last}}
	d, _ := newTestRetrying(sink, 3)

	err := d.Deliver(t.Context(), testMessage)
	require.ErrorIs(t, err, last)
	assert.Contains(t, err.Error(), "after 3 attempts")
	assert.Equal(t, 3, sink.calls)
}

func TestRetryingCanceledContext(t *testing.T) {
	sink := &countingSink{}
	d, _ := newTestRetrying(sink, 3)

	ctx, cancel := context.WithCancel(t.Context())
	cancel()
	err := d.Deliver(ctx, testMessage)
	require.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, sink.calls)
}

func TestRetryingUnusableDelays(t *testing.T) {
	tests := []struct {
		name            string
		base, maxDelay  time.Duration
		wantBase, wantM time.Duration
	}{
		{name: "zero base", base: 0, maxDelay: 30 * time.Second, wantBase: DefaultBaseDelay, wantM: 30 * time.Second},
		{name: "base above max", base: time.Minute, maxDelay: 30 * time.Second, wantBase: time.Minute, wantM: time.Minute},
		{name: "both zero", wantBase: DefaultBaseDelay, wantM: DefaultBaseDelay},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			sink := &countingSink{errs: []error{errors.New("421 try later")}}
			d := NewRetrying(sink, 2, tt.base, tt.maxDelay, slog.New(slog.NewTextHandler(io.Discard, nil)))
			d.timer = &instantTimer{}
			assert.Equal(t, tt.wantBase, d.base)
			assert.Equal(t, tt.wantM, d.maxDelay)

			require.NotPanics(t, func() {
				require.NoError(t, d.Deliver(t.Context(), testMessage))
			})
			assert.Equal(t, 2, sink.calls)
		})
	}
}

type fakePutter struct {
	input *s3.PutObjectInput
	body  string
	err   error
}

func (f *fakePutter) PutObject(_ context.Context, in *s3.PutObjectInput, _ ...func(*s3.Options)) (*s3.PutObjectOutput, error) {
	f.input = in
	if in.Body != nil {
		b, _ := io.ReadAll(in.Body)
		f.body = string(b)
	}
	if f.err != nil {
		return nil, f.err
	}
	return &s3.PutObjectOutput{}, nil
}

func TestS3ArchiveKeyUsesUTCDate(t *testing.T) {
	archive := NewS3Archive(&fakePutter{}, "reports", "/fleet/daily/")
	assert.Equal(t, "fleet/daily/2026/03/05/0f1c2d3e.txt", archive.Key(testMessage))

	bare := NewS3Archive(&fakePutter{}, "reports", "")
	assert.Equal(t, "2026/03/05/0f1c2d3e.txt", bare.Key(testMessage))
}

func TestS3ArchiveDeliver(t *testing.T) {
	putter := &fakePutter{}
	archive := NewS3Archive(putter, "reports", "fleet")

	require.NoError(t, archive.Deliver(t.Context(), testMessage))
	require.NotNil(t, putter.input)
	assert.Equal(t, "reports", aws.ToString(putter.input.Bucket))
	assert.Equal(t, "fleet/2026/03/05/0f1c2d3e.txt", aws.ToString(putter.input.Key))
	assert.Equal(t, testMessage.Body, putter.body)
	subject := putter.input.Metadata["subject"]
	for _, r := range subject {
		require.Less(t, r, rune(0x80), "metadata %q is not US-ASCII", subject)
	}
	decoded, err := new(mime.WordDecoder).DecodeHeader(subject)
	require.NoError(t, err)
	assert.Equal(t, testMessage.Subject, decoded)
}

func TestS3ArchiveError(t *testing.T) {
	archive := NewS3Archive(&fakePutter{err: errors.New("AccessDenied")}, "reports", "fleet")
	err := archive.Deliver(t.Context(), testMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "s3://reports/fleet/2026/03/05/0f1c2d3e.txt")
	assert.Contains(t, err.Error(), "AccessDenied")
}

func TestSMTPConfigValidate(t *testing.T) {
	valid := SMTPConfig{Host: "smtp.example.com", Port: 465, From: "ops@example.com", To: []string{"oncall@example.com"}}
	require.NoError(t, valid.Validate())

	err := SMTPConfig{Username: "ops"}.Validate()
	require.Error(t, err)
	for _, want := range []string{"host", "sender", "recipient", "password"} {
		assert.Contains(t, err.Error(), want)
	}
}

func TestNewSMTPRejectsInvalidConfig(t *testing.T) {
	_, err := NewSMTP(SMTPConfig{})
	require.Error(t, err)
}

type fakeSender struct {
	sent []*mail.Msg
	err  error
}

func (f *fakeSender) DialAndSendWithContext(_ context.Context, msgs ...*mail.Msg) error {
	f.sent = append(f.sent, msgs...)
	return f.err
}

func TestSMTPDeliverBuildsMessage(t *testing.T) {
	sender := &fakeSender{}
	d := &SMTP{
		cfg:    SMTPConfig{Host: "smtp.example.com", From: "ops@example.com", To: []string{"a@example.com", "b@example.com"}},
		sender: sender,
	}

	require.NoError(t, d.Deliver(t.Context(), testMessage))
	require.Len(t, sender.sent, 1)

	rcpts, err := sender.sent[0].GetRecipients()
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"a@example.com", "b@example.com"}, rcpts)
	assert.Equal(t, []string{testMessage.Subject}, sender.sent[0].GetGenHeader(mail.HeaderSubject))
}

func TestSMTPDeliverErrors(t *testing.T) {
	d := &SMTP{
		cfg:    SMTPConfig{Host: "smtp.example.com", From: "ops@example.com", To: []string{"a@example.com"}},
		sender: &fakeSender{err: errors.New("535 auth failed")},
	}
	err := d.Deliver(t.Context(), testMessage)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "535 auth failed")

	bad := &SMTP{cfg: SMTPConfig{Host: "h", From: "not an address", To: []string{"a@example.com"}}, sender: &fakeSender{}}
	require.Error(t, bad.Deliver(t.Context(), testMessage))
}
