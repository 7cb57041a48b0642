package subscriptions

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/angelmondragon/artvault-backend/pkg/db/dbtest"
	"github.com/angelmondragon/artvault-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/artvault-backend/pkg/errors"
)

var fixedNow = time.Date(2026, 5, 1, 12, 0, 0, 0, time.UTC)

func newTestService(t *testing.T) Service {
	t.Helper()
	svc, err := NewService(NewRepository(dbtest.NewSQLite(t)), func() time.Time { return fixedNow })
	require.NoError(t, err)
	return svc
}

func TestCreateAndListDue(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	due, err := svc.Create(ctx, CreateInput{CollectorIdentifier: "c1", CreditsPerCycle: 100})
	require.NoError(t, err)
	later := fixedNow.Add(48 * time.Hour)
	_, err = svc.Create(ctx, CreateInput{CollectorIdentifier: "c2", CreditsPerCycle: 50, FirstBillingAt: &later})
	require.NoError(t, err)

	subs, err := svc.ListDue(ctx, fixedNow, 10)
	require.NoError(t, err)
	require.Len(t, subs, 1)
	assert.Equal(t, due.ID, subs[0].ID)
}

func TestAdvanceBillingOnlyOnce(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Create(ctx, CreateInput{CollectorIdentifier: "c1", CreditsPerCycle: 100})
	require.NoError(t, err)
	stale := *sub

	next, err := svc.AdvanceBilling(ctx, sub)
	require.NoError(t, err)
	assert.True(t, next.Equal(fixedNow.Add(BillingCycle)))

	_, err = svc.AdvanceBilling(ctx, &stale)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeStateConflict))

	reloaded, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.True(t, reloaded.NextBillingAt.Equal(next))
}

func TestCancel(t *testing.T) {
	svc := newTestService(t)
	ctx := context.Background()

	sub, err := svc.Create(ctx, CreateInput{CollectorIdentifier: "c1", CreditsPerCycle: 100})
	require.NoError(t, err)
	require.NoError(t, svc.Cancel(ctx, sub.ID))

	reloaded, err := svc.Get(ctx, sub.ID)
	require.NoError(t, err)
	assert.Equal(t, enums.SubscriptionStatusCancelled, reloaded.Status)

	assert.True(t, pkgerrors.IsCode(svc.Cancel(ctx, sub.ID), pkgerrors.CodeStateConflict))

	subs, err := svc.ListDue(ctx, fixedNow.Add(time.Hour), 10)
	require.NoError(t, err)
	assert.Empty(t, subs)
}

func TestCreateValidation(t *testing.T) {
	svc := newTestService(t)
	_, err := svc.Create(context.Background(), CreateInput{CollectorIdentifier: "c1"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeValidation))
}
