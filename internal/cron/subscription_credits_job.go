package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/multierr"

	"github.com/angelmondragon/artvault-backend/internal/transactions"
	"github.com/angelmondragon/artvault-backend/pkg/db/models"
	"github.com/angelmondragon/artvault-backend/pkg/logger"
)

const defaultSubscriptionBatch = 250

type dueSubscriptions interface {
	ListDue(ctx context.Context, now time.Time, limit int) ([]models.CreditSubscription, error)
}

type subscriptionDepositor interface {
	DepositSubscriptionCredits(ctx context.Context, subscriptionID uuid.UUID) (*transactions.DepositResult, error)
}

// SubscriptionCreditsJobParams configures the recurring credit grant.
type SubscriptionCreditsJobParams struct {
	Logger        *logger.Logger
	Subscriptions dueSubscriptions
	Recorder      subscriptionDepositor
	Limit         int
	Now           func() time.Time
}

// NewSubscriptionCreditsJob grants one cycle of credits to every subscription
// whose next billing date has passed. Grants are deduped per day, so a rerun
// within the same cycle is harmless.
func NewSubscriptionCreditsJob(params SubscriptionCreditsJobParams) (Job, error) {
	if params.Logger == nil {
		return nil, fmt.Errorf("logger required")
	}
	if params.Subscriptions == nil {
		return nil, fmt.Errorf("subscriptions service required")
	}
	if params.Recorder == nil {
		return nil, fmt.Errorf("transactions service required")
	}
	limit := params.Limit
	if limit <= 0 {
		limit = defaultSubscriptionBatch
	}
	now := params.Now
	if now == nil {
		now = time.Now
	}
	return &subscriptionCreditsJob{
		logg:     params.Logger,
		subs:     params.Subscriptions,
		recorder: params.Recorder,
		limit:    limit,
		now:      now,
	}, nil
}

type subscriptionCreditsJob struct {
	logg     *logger.Logger
	subs     dueSubscriptions
	recorder subscriptionDepositor
	limit    int
	now      func() time.Time
}

func (j *subscriptionCreditsJob) Name() string { return JobSubscriptionCredits }

func (j *subscriptionCreditsJob) Run(ctx context.Context) error {
	due, err := j.subs.ListDue(ctx, j.now().UTC(), j.limit)
	if err != nil {
		return fmt.Errorf("list due subscriptions: %w", err)
	}

	var (
		errs       error
		granted    int
		duplicates int
	)
	for i := range due {
		sub := due[i]
		res, err := j.recorder.DepositSubscriptionCredits(ctx, sub.ID)
		if err != nil {
			errs = multierr.Append(errs, fmt.Errorf("subscription %s: %w", sub.ID, err))
			continue
		}
		if res.Duplicate {
			duplicates++
			continue
		}
		granted++
	}

	j.logg.Info(j.logg.WithFields(ctx, map[string]any{
		"due":        len(due),
		"granted":    granted,
		"duplicates": duplicates,
	}), "subscription credits granted")
	return errs
}
