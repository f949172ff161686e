// janitor/janitor.go
package janitor

import (
	"context"
	"time"

	"go.uber.org/zap"

	logger "github.com/dev-mohitbeniwal/boundary/logging"
	"github.com/dev-mohitbeniwal/boundary/model"
	"github.com/dev-mohitbeniwal/boundary/util"
)

// Store is the slice of the record store the janitor needs.
type Store interface {
	ExpiredActive(ctx context.Context, now time.Time) ([]model.AccessRecord, error)
	MarkRevoked(ctx context.Context, requestID string, revokedAt time.Time) error
	MarkError(ctx context.Context, requestID string, reason string) error
	RecordRevokeFailure(ctx context.Context, requestID string) (int, error)
}

// Revoker deletes the account assignment a record describes.
type Revoker interface {
	Revoke(ctx context.Context, instanceArn, principalID, principalType, accountID, permissionSetArn string) error
}

// SweepReport summarizes one pass over expired grants.
type SweepReport struct {
	Examined  int
	Revoked   int
	Failed    int
	Escalated int
}

// Janitor revokes grants that have outlived their expiry. Each sweep
// is independent and a failure on one record never blocks the rest;
// a record that keeps failing is escalated to ERROR so a human looks
// at it instead of the janitor retrying forever.
type Janitor struct {
	store             Store
	revoker           Revoker
	events            *util.EventBus
	maxRevokeAttempts int
	now               func() time.Time
}

func New(store Store, revoker Revoker, events *util.EventBus, maxRevokeAttempts int) *Janitor {
	return &Janitor{
		store:             store,
		revoker:           revoker,
		events:            events,
		maxRevokeAttempts: maxRevokeAttempts,
		now:               time.Now,
	}
}

// Sweep revokes every expired ACTIVE grant once. With dryRun set it
// only reports what would be revoked.
func (j *Janitor) Sweep(ctx context.Context, dryRun bool) (SweepReport, error) {
	now := j.now()
	records, err := j.store.ExpiredActive(ctx, now)
	if err != nil {
		return SweepReport{}, err
	}

	report := SweepReport{Examined: len(records)}
	for _, record := range records {
		if dryRun {
			logger.Info("Dry run: would revoke",
				zap.String("requestID", record.RequestID),
				zap.String("accountID", record.AccountID))
			continue
		}
		j.sweepOne(ctx, record, now, &report)
	}

	if report.Examined > 0 {
		logger.Info("Sweep complete",
			zap.Int("examined", report.Examined),
			zap.Int("revoked", report.Revoked),
			zap.Int("failed", report.Failed),
			zap.Int("escalated", report.Escalated))
	}
	return report, nil
}

// sweepOne revokes the grant using the identifiers recorded at grant
// time, never re-derived names.
func (j *Janitor) sweepOne(ctx context.Context, record model.AccessRecord, now time.Time, report *SweepReport) {
	err := j.revoker.Revoke(ctx, record.InstanceArn, record.PrincipalID, record.PrincipalType, record.AccountID, record.PermissionSetArn)
	if err != nil {
		report.Failed++
		if j.handleFailure(ctx, record, err) {
			report.Escalated++
		}
		return
	}

	if err := j.store.MarkRevoked(ctx, record.RequestID, now); err != nil {
		// The assignment is gone but the record still says ACTIVE; the
		// next sweep re-revokes idempotently and retries the update.
		logger.Error("Revoked but failed to update record",
			zap.String("requestID", record.RequestID), zap.Error(err))
		report.Failed++
		return
	}

	report.Revoked++
	j.events.Publish(ctx, util.EventAccessRevoked, record.RequestID)
	logger.Info("Access revoked",
		zap.String("requestID", record.RequestID),
		zap.String("accountID", record.AccountID))
}

// handleFailure reports whether the record was escalated to ERROR.
func (j *Janitor) handleFailure(ctx context.Context, record model.AccessRecord, cause error) bool {
	logger.Error("Revocation failed",
		zap.String("requestID", record.RequestID),
		zap.String("accountID", record.AccountID),
		zap.Error(cause))

	attempts, err := j.store.RecordRevokeFailure(ctx, record.RequestID)
	if err != nil {
		logger.Error("Failed to record revoke failure",
			zap.String("requestID", record.RequestID), zap.Error(err))
		return false
	}

	if attempts < j.maxRevokeAttempts {
		return false
	}

	logger.Error("Revocation attempts exhausted, escalating",
		zap.String("requestID", record.RequestID),
		zap.Int("attempts", attempts))
	if err := j.store.MarkError(ctx, record.RequestID, "revocation attempts exhausted"); err != nil {
		logger.Error("Failed to escalate record",
			zap.String("requestID", record.RequestID), zap.Error(err))
		return false
	}
	j.events.Publish(ctx, util.EventRevokeStuck, record.RequestID)
	return true
}

// Run sweeps on a fixed interval until the context is canceled.
func (j *Janitor) Run(ctx context.Context, interval time.Duration) {
	ticker := time.NewTicker(interval)
	defer ticker.Stop()

	logger.Info("Janitor started", zap.Duration("interval", interval))
	for {
		select {
		case <-ticker.C:
			if report, err := j.Sweep(ctx, false); err != nil {
				logger.Error("Sweep failed", zap.Error(err))
			} else if report.Escalated > 0 {
				logger.Warn("Sweep escalated records", zap.Int("escalated", report.Escalated))
			}
		case <-ctx.Done():
			logger.Info("Janitor stopped")
			return
		}
	}
}
