package cron

import (
	"context"
	"fmt"

	"go.uber.org/multierr"

	"github.com/angelmondragon/artvault-backend/internal/banking"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

type integrityChecker interface {
	VerifyPlatformIntegrity(ctx context.Context) (*banking.IntegrityReport, error)
	AlertNegativeBalances(ctx context.Context) (int, error)
}

// IntegrityJobParams configures the reconciliation job.
type IntegrityJobParams struct {
	Logger  *logger.Logger
	Banking integrityChecker
}

// NewIntegrityJob reconciles completed payouts against ledger withdrawals and
// raises an alert for every account with a negative raw balance.
func NewIntegrityJob(params IntegrityJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Banking == nil {
		return nil, fmt.Errorf("banking service required")
	}
	return &integrityJob{logg: params.Logger, banking: params.Banking}, nil
}

type integrityJob struct {
	logg    *logger.Logger
	banking integrityChecker
}

func (j *integrityJob) Name() string { return JobIntegrityCheck }

func (j *integrityJob) Run(ctx context.Context) error {
	var errs error

	report, err := j.banking.VerifyPlatformIntegrity(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("verify integrity: %w", err))
	} else {
		logCtx := j.logg.WithFields(ctx, map[string]any{
			"payouts_total":     report.PayoutsTotal.StringFixed(2),
			"withdrawals_total": report.WithdrawalsTotal.StringFixed(2),
			"drift":             report.Drift.StringFixed(2),
			"missing_count":     report.MissingCount,
			"orphan_count":      len(report.OrphanWithdrawalPayoutIDs),
		})
		if report.IsHealthy {
			j.logg.Info(logCtx, "integrity check healthy")
		} else {
			j.logg.Warn(logCtx, "integrity.drift")
		}
	}

	alerts, err := j.banking.AlertNegativeBalances(ctx)
	if err != nil {
		errs = multierr.Append(errs, fmt.Errorf("alert negative balances: %w", err))
	} else if alerts > 0 {
		j.logg.Warn(j.logg.WithField(ctx, "accounts", alerts), "negative balances detected")
	}
	return errs
}
