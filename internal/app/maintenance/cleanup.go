package maintenance

import (
	"context"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/esalinasbarros/zmartboard/internal/services"
	"github.com/esalinasbarros/zmartboard/pkg/logger"
)

const (
	defaultAuditRetentionDays  = 90
	defaultInvitationSpec      = "@hourly"
	defaultVerificationSpec    = "@hourly"
	defaultAuditSpec           = "@daily"
	defaultVerificationKeepFor = 24 * time.Hour
)

// Cleaner coordinates background maintenance: sweeping stale pending
// invitations into EXPIRED, purging dead verification codes, and pruning old
// audit logs.
type Cleaner struct {
	invitations  *services.InvitationService
	verification *services.VerificationService
	audit        *services.AuditService
	cron         *cron.Cron
	log          *zap.Logger
	retention    int

	invitationSchedule   string
	verificationSchedule string
	auditSchedule        string
}

// Option customises the Cleaner.
type Option func(*Cleaner)

// WithCron injects a preconfigured cron instance, primarily for testing.
func WithCron(c *cron.Cron) Option {
	return func(cleaner *Cleaner) {
		if c != nil {
			cleaner.cron = c
		}
	}
}

// WithAuditRetentionDays adjusts how long audit logs are retained before cleanup.
func WithAuditRetentionDays(days int) Option {
	return func(cleaner *Cleaner) {
		if days > 0 {
			cleaner.retention = days
		}
	}
}

// WithInvitationSchedule overrides the cron specification for the invitation sweep.
func WithInvitationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.invitationSchedule = spec
		}
	}
}

// WithVerificationSchedule overrides the cron specification for code purging.
func WithVerificationSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.verificationSchedule = spec
		}
	}
}

// WithAuditSchedule overrides the cron specification for audit retention enforcement.
func WithAuditSchedule(spec string) Option {
	return func(cleaner *Cleaner) {
		if spec != "" {
			cleaner.auditSchedule = spec
		}
	}
}

// NewCleaner constructs a Cleaner with sensible defaults. Any nil dependency
// results in the corresponding cleanup job being skipped.
func NewCleaner(invitations *services.InvitationService, verification *services.VerificationService, audit *services.AuditService, opts ...Option) *Cleaner {
	cleaner := &Cleaner{
		invitations:          invitations,
		verification:         verification,
		audit:                audit,
		retention:            defaultAuditRetentionDays,
		invitationSchedule:   defaultInvitationSpec,
		verificationSchedule: defaultVerificationSpec,
		auditSchedule:        defaultAuditSpec,
		log:                  logger.WithModule("maintenance"),
	}

	for _, opt := range opts {
		opt(cleaner)
	}

	if cleaner.cron == nil {
		cleaner.cron = cron.New(cron.WithLogger(cron.DiscardLogger))
	}

	return cleaner
}

// Start registers cleanup jobs with the cron scheduler and launches it.
func (c *Cleaner) Start() error {
	if c.invitations != nil {
		if _, err := c.cron.AddFunc(c.invitationSchedule, func() {
			if _, err := c.invitations.SweepExpired(context.Background()); err != nil {
				c.log.Warn("invitation sweep failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.verification != nil {
		if _, err := c.cron.AddFunc(c.verificationSchedule, func() {
			if _, err := c.verification.PurgeExpired(context.Background(), defaultVerificationKeepFor); err != nil {
				c.log.Warn("verification purge failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.cron.AddFunc(c.auditSchedule, func() {
			if _, err := c.audit.CleanupOlderThan(context.Background(), c.retention); err != nil {
				c.log.Warn("audit cleanup failed", zap.Error(err))
			}
		}); err != nil {
			return err
		}
	}

	c.cron.Start()
	return nil
}

// Stop halts the underlying scheduler, waiting for any running jobs to complete.
func (c *Cleaner) Stop() context.Context {
	if c.cron == nil {
		return context.Background()
	}
	return c.cron.Stop()
}

// RunOnce executes all configured cleanup routines sequentially. Primarily
// used in tests and during graceful shutdown.
func (c *Cleaner) RunOnce(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	var errs error

	if c.invitations != nil {
		if _, err := c.invitations.SweepExpired(ctx); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.verification != nil {
		if _, err := c.verification.PurgeExpired(ctx, defaultVerificationKeepFor); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	if c.audit != nil && c.retention > 0 {
		if _, err := c.audit.CleanupOlderThan(ctx, c.retention); err != nil {
			errs = multierr.Append(errs, err)
		}
	}

	return errs
}
