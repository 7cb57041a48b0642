package cron

import (
	"context"
	"fmt"

	"github.com/angelmondragon/artvault-backend/internal/payouts"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const defaultPollBatch = 100

type processingPoller interface {
	PollProcessing(ctx context.Context, limit int) (*payouts.PollSummary, error)
}

// PayoutPollJobParams configures the async rail status poll.
type PayoutPollJobParams struct {
	Logger  *logger.Logger
	Payouts processingPoller
	Limit   int
}

// NewPayoutPollJob resolves payouts still processing on asynchronous rails.
func NewPayoutPollJob(params PayoutPollJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Payouts == nil {
		return nil, fmt.Errorf("payouts service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultPollBatch
	}
	return &payoutPollJob{logg: params.Logger, payouts: params.Payouts, limit: limit}, nil
}

type payoutPollJob struct {
	logg    *logger.Logger
	payouts processingPoller
	limit   int
}

func (j *payoutPollJob) Name() string { return JobPayoutStatusPoll }

func (j *payoutPollJob) Run(ctx context.Context) error {
	summary, err := j.payouts.PollProcessing(ctx, j.limit)
	if summary != nil {
		j.logg.Info(j.logg.WithFields(ctx, map[string]any{
			"checked":   summary.Checked,
			"completed": summary.Completed,
			"failed":    summary.Failed,
			"pending":   summary.Pending,
			"reversed":  summary.Reversed,
		}), "payout status poll complete")
	}
	if err != nil {
		return fmt.Errorf("poll payouts: %w", err)
	}
	return nil
}
