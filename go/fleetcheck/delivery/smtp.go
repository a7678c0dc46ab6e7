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
	"errors"
	"fmt"
	"time"

	"github.com/wneessen/go-mail"
)

// SMTPConfig holds the mail relay settings. Username and Password come from
// the environment, never from a committed file.
type SMTPConfig struct {
	Host     string
	Port     int
	Username string
	Password string
	From     string
	To       []string
	// SSL selects implicit TLS (port 465 style). Otherwise STARTTLS is required.
	SSL     bool
	Timeout time.Duration
}

// Validate reports missing settings.
func (c SMTPConfig) Validate() error {
	var errs []error
	if c.Host == "" {
		errs = append(errs, errors.New("smtp host is required"))
	}
	if c.From == "" {
		errs = append(errs, errors.New("smtp sender is required"))
	}
	if len(c.To) == 0 {
		errs = append(errs, errors.New("at least one recipient is required"))
	}
	if c.Username != "" && c.Password == "" {
		errs = append(errs, errors.New("smtp password is required when a username is set"))
	}
	return errors.Join(errs...)
}

type mailSender interface {
	DialAndSendWithContext(ctx context.Context, messages ...*mail.Msg) error
}

// SMTP e-mails the report as plain text.
type SMTP struct {
	cfg    SMTPConfig
	sender mailSender
}

// NewSMTP creates an SMTP deliverer.
func NewSMTP(cfg SMTPConfig) (*SMTP, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}

	opts := []mail.Option{mail.WithPort(cfg.Port)}
	if cfg.SSL {
		opts = append(opts, mail.WithSSL())
	} else {
		opts = append(opts, mail.WithTLSPolicy(mail.TLSMandatory))
	}
	if cfg.Username != "" {
		opts = append(opts,
			mail.WithSMTPAuth(mail.SMTPAuthPlain),
			mail.WithUsername(cfg.Username),
			mail.WithPassword(cfg.Password))
	}
	if cfg.Timeout > 0 {
		opts = append(opts, mail.WithTimeout(cfg.Timeout))
	}

	client, err := mail.NewClient(cfg.Host, opts...)
	if err != nil {
		return nil, fmt.Errorf("creating smtp client: %w", err)
	}
	return &SMTP{cfg: cfg, sender: client}, nil
}

// Deliver implements Deliverer.
func (d *SMTP) Deliver(ctx context.Context, msg Message) error {
	m, err := d.message(msg)
	if err != nil {
		return err
	}
	if err := d.sender.DialAndSendWithContext(ctx, m); err != nil {
		return fmt.Errorf("sending report mail: %w", err)
	}
	return nil
}

func (d *SMTP) message(msg Message) (*mail.Msg, error) {
	m := mail.NewMsg()
	if err := m.From(d.cfg.From); err != nil {
		return nil, fmt.Errorf("invalid sender: %w", err)
	}
	if err := m.To(d.cfg.To...); err != nil {
		return nil, fmt.Errorf("invalid recipient: %w", err)
	}
	m.Subject(msg.Subject)
	m.SetDate()
	m.SetBodyString(mail.TypeTextPlain, msg.Body)
	return m, nil
}
