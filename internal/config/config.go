// Package config loads the lending policy.
package config

import (
	"errors"
	"fmt"
	"io"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Policy defaults.
const (
	DefaultLoanPeriod       = 14 * 24 * time.Hour
	DefaultMaxRenewals      = 2
	DefaultReminderWindow   = 24 * time.Hour
	DefaultMaxClaimAttempts = 8
	DefaultCartQueueSize    = 64
	DefaultReservationTTL   = 7 * 24 * time.Hour
)

// Policy holds the lending rules. Durations are written as Go duration
// strings ("336h").
type Policy struct {
	LoanPeriod       time.Duration `yaml:"loan_period"`
	MaxRenewals      int           `yaml:"max_renewals"`
	ReminderWindow   time.Duration `yaml:"reminder_window"`
	MaxClaimAttempts int           `yaml:"max_claim_attempts"`
	CartQueueSize    int           `yaml:"cart_queue_size"`
	ReservationTTL   time.Duration `yaml:"reservation_ttl"`
}

// Default returns the built-in policy.
func Default() Policy {
	return Policy{
		LoanPeriod:       DefaultLoanPeriod,
		MaxRenewals:      DefaultMaxRenewals,
		ReminderWindow:   DefaultReminderWindow,
		MaxClaimAttempts: DefaultMaxClaimAttempts,
		CartQueueSize:    DefaultCartQueueSize,
		ReservationTTL:   DefaultReservationTTL,
	}
}

// Load reads a policy file over the defaults. An empty path returns the
// defaults.
func Load(path string) (Policy, error) {
	if path == "" {
		return Default(), nil
	}

	f, err := os.Open(path)
	if err != nil {
		return Policy{}, fmt.Errorf("opening policy file: %w", err)
	}
	defer f.Close()

	p, err := Parse(f)
	if err != nil {
		return Policy{}, fmt.Errorf("%s: %w", path, err)
	}
	return p, nil
}

// Parse decodes a YAML policy over the defaults. Unknown keys are rejected.
func Parse(r io.Reader) (Policy, error) {
	p := Default()

	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return Policy{}, fmt.Errorf("parsing policy: %w", err)
	}

	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// Validate checks that every rule is usable.
func (p Policy) Validate() error {
	switch {
	case p.LoanPeriod <= 0:
		return fmt.Errorf("loan_period must be positive, got %s", p.LoanPeriod)
	case p.MaxRenewals < 0:
		return fmt.Errorf("max_renewals must not be negative, got %d", p.MaxRenewals)
	case p.ReminderWindow < 0:
		return fmt.Errorf("reminder_window must not be negative, got %s", p.ReminderWindow)
	case p.MaxClaimAttempts <= 0:
		return fmt.Errorf("max_claim_attempts must be positive, got %d", p.MaxClaimAttempts)
	case p.CartQueueSize <= 0:
		return fmt.Errorf("cart_queue_size must be positive, got %d", p.CartQueueSize)
	case p.ReservationTTL <= 0:
		return fmt.Errorf("reservation_ttl must be positive, got %s", p.ReservationTTL)
	}
	return nil
}
