package persistence

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
	_ "github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database/postgres"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database/sqlite"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/migrations"
)

var day0 = time.Date(2026, 3, 1, 9, 0, 0, 0, time.UTC)

func trialFor(userID string, end time.Time) *domain.Subscription {
	return &domain.Subscription{
		ID:           uuid.New(),
		UserID:       userID,
		PlanID:       domain.PlanPro,
		Status:       domain.SubscriptionTrial,
		TrialEndDate: end,
		CreatedAt:    end.Add(-14 * 24 * time.Hour),
		UpdatedAt:    end.Add(-14 * 24 * time.Hour),
	}
}

func openSQLite(t *testing.T) database.Connection {
	t.Helper()
	ctx := context.Background()

	conn, err := sqlite.NewConnection(ctx, database.Config{
		SQLitePath: filepath.Join(t.TempDir(), "tutora.db"),
	})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

func openPostgres(t *testing.T) database.Connection {
	t.Helper()
	url := os.Getenv("TEST_DATABASE_URL")
	if url == "" {
		t.Skip("TEST_DATABASE_URL not set")
	}
	ctx := context.Background()

	conn, err := database.NewConnection(ctx, database.Config{URL: url})
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	require.NoError(t, migrations.Run(ctx, conn))
	return conn
}

type repoCase struct {
	name   string
	repo   func(t *testing.T) domain.SubscriptionRepository
	ledger func(t *testing.T) domain.PaymentLedger
}

func repoCases() []repoCase {
	return []repoCase{
		{
			name:   "memory",
			repo:   func(*testing.T) domain.SubscriptionRepository { return NewMemoryRepository() },
			ledger: func(*testing.T) domain.PaymentLedger { return NewMemoryLedger() },
		},
		{
			name:   "sqlite",
			repo:   func(t *testing.T) domain.SubscriptionRepository { return NewSQLiteRepository(openSQLite(t)) },
			ledger: func(t *testing.T) domain.PaymentLedger { return NewSQLiteLedger(openSQLite(t)) },
		},
		{
			name:   "postgres",
			repo:   func(t *testing.T) domain.SubscriptionRepository { return NewPostgresRepository(openPostgres(t)) },
			ledger: func(t *testing.T) domain.PaymentLedger { return NewPostgresLedger(openPostgres(t)) },
		},
	}
}

// uniqueUser keeps postgres runs independent of leftover rows.
func uniqueUser(prefix string) string {
	return prefix + "-" + uuid.NewString()
}

func TestRepository_FindMissingReturnsNil(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			repo := tc.repo(t)

			sub, err := repo.FindByUserID(context.Background(), uniqueUser("nobody"))
			require.NoError(t, err)
			assert.Nil(t, sub)
		})
	}
}

func TestRepository_UpsertRoundTrip(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)
			userID := uniqueUser("u")
			sub := trialFor(userID, day0)

			require.NoError(t, repo.Upsert(ctx, sub))

			got, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, sub.ID, got.ID)
			assert.Equal(t, domain.PlanPro, got.PlanID)
			assert.Equal(t, domain.SubscriptionTrial, got.Status)
			assert.True(t, sub.TrialEndDate.Equal(got.TrialEndDate))
			assert.Nil(t, got.UpgradedAt)
		})
	}
}

func TestRepository_CreateIfAbsentKeepsExistingRecord(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)
			userID := uniqueUser("u")

			created, err := repo.CreateIfAbsent(ctx, trialFor(userID, day0))
			require.NoError(t, err)
			assert.True(t, created)

			upgraded := day0.Add(-time.Hour)
			require.NoError(t, repo.UpdateStatus(ctx, userID, domain.SubscriptionActive, domain.StatusUpdate{UpgradedAt: &upgraded}))

			created, err = repo.CreateIfAbsent(ctx, trialFor(userID, day0.Add(48*time.Hour)))
			require.NoError(t, err)
			assert.False(t, created)

			got, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)
			require.NotNil(t, got)
			assert.Equal(t, domain.SubscriptionActive, got.Status)
			require.NotNil(t, got.UpgradedAt)
			assert.True(t, got.TrialEndDate.Equal(day0))
		})
	}
}

func TestRepository_ExpireTrialOnlyTouchesLapsedTrials(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)
			lapsed := uniqueUser("lapsed")
			running := uniqueUser("running")
			paid := uniqueUser("paid")

			require.NoError(t, repo.Upsert(ctx, trialFor(lapsed, day0)))
			require.NoError(t, repo.Upsert(ctx, trialFor(running, day0.Add(48*time.Hour))))
			require.NoError(t, repo.Upsert(ctx, trialFor(paid, day0)))
			upgraded := day0.Add(-time.Hour)
			require.NoError(t, repo.UpdateStatus(ctx, paid, domain.SubscriptionActive, domain.StatusUpdate{UpgradedAt: &upgraded}))

			tests := []struct {
				userID string
				want   bool
				status domain.SubscriptionStatus
			}{
				{lapsed, true, domain.SubscriptionExpired},
				{running, false, domain.SubscriptionTrial},
				{paid, false, domain.SubscriptionActive},
				{uniqueUser("nobody"), false, ""},
			}
			for _, tt := range tests {
				changed, err := repo.ExpireTrial(ctx, tt.userID, day0)
				require.NoError(t, err)
				assert.Equal(t, tt.want, changed, tt.userID)

				got, err := repo.FindByUserID(ctx, tt.userID)
				require.NoError(t, err)
				if tt.status == "" {
					assert.Nil(t, got)
					continue
				}
				require.NotNil(t, got)
				assert.Equal(t, tt.status, got.Status, tt.userID)
			}

			changed, err := repo.ExpireTrial(ctx, lapsed, day0)
			require.NoError(t, err)
			assert.False(t, changed, "already expired")
		})
	}
}

func TestRepository_UpsertPreservesTrialEndAndCreatedAt(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)
			userID := uniqueUser("u")
			original := trialFor(userID, day0)
			require.NoError(t, repo.Upsert(ctx, original))

			before, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)

			upgradedAt := day0.Add(time.Hour)
			require.NoError(t, repo.Upsert(ctx, &domain.Subscription{
				UserID:       userID,
				PlanID:       domain.PlanPro,
				Status:       domain.SubscriptionActive,
				TrialEndDate: day0.Add(365 * 24 * time.Hour),
				UpgradedAt:   &upgradedAt,
				CreatedAt:    day0.Add(48 * time.Hour),
			}))

			got, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, domain.SubscriptionActive, got.Status)
			require.NotNil(t, got.UpgradedAt)
			assert.True(t, upgradedAt.Equal(*got.UpgradedAt))
			assert.True(t, day0.Equal(got.TrialEndDate))
			assert.True(t, before.CreatedAt.Equal(got.CreatedAt))
		})
	}
}

func TestRepository_UpdateStatus(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)
			userID := uniqueUser("u")

			err := repo.UpdateStatus(ctx, userID, domain.SubscriptionCancelled, domain.StatusUpdate{})
			assert.ErrorIs(t, err, domain.ErrSubscriptionNotFound)

			require.NoError(t, repo.Upsert(ctx, trialFor(userID, day0)))

			upgradedAt := day0.Add(2 * time.Hour)
			require.NoError(t, repo.UpdateStatus(ctx, userID, domain.SubscriptionActive, domain.StatusUpdate{UpgradedAt: &upgradedAt}))
			require.NoError(t, repo.UpdateStatus(ctx, userID, domain.SubscriptionCancelled, domain.StatusUpdate{}))

			got, err := repo.FindByUserID(ctx, userID)
			require.NoError(t, err)
			assert.Equal(t, domain.SubscriptionCancelled, got.Status)
			require.NotNil(t, got.UpgradedAt, "status-only update keeps upgraded_at")
			assert.True(t, upgradedAt.Equal(*got.UpgradedAt))
		})
	}
}

func TestRepository_ListTrialsEndingBefore(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			repo := tc.repo(t)

			// Far-past dates keep postgres runs clear of rows from other tests.
			base := time.Date(1990, 1, 1, 0, 0, 0, 0, time.UTC)
			late := uniqueUser("late")
			early := uniqueUser("early")
			future := uniqueUser("future")
			active := uniqueUser("active")

			require.NoError(t, repo.Upsert(ctx, trialFor(late, base.Add(2*time.Hour))))
			require.NoError(t, repo.Upsert(ctx, trialFor(early, base.Add(time.Hour))))
			require.NoError(t, repo.Upsert(ctx, trialFor(future, base.Add(72*time.Hour))))
			require.NoError(t, repo.Upsert(ctx, trialFor(active, base)))
			require.NoError(t, repo.UpdateStatus(ctx, active, domain.SubscriptionCancelled, domain.StatusUpdate{}))

			cutoff := base.Add(2 * time.Hour)
			subs, err := repo.ListTrialsEndingBefore(ctx, cutoff, 0)
			require.NoError(t, err)

			var ids []string
			for _, s := range subs {
				if s.UserID == early || s.UserID == late || s.UserID == future || s.UserID == active {
					ids = append(ids, s.UserID)
				}
			}
			assert.Equal(t, []string{early, late}, ids)

			limited, err := repo.ListTrialsEndingBefore(ctx, cutoff, 1)
			require.NoError(t, err)
			assert.Len(t, limited, 1)
		})
	}
}

func TestLedger_RecordAndList(t *testing.T) {
	for _, tc := range repoCases() {
		t.Run(tc.name, func(t *testing.T) {
			ctx := context.Background()
			ledger := tc.ledger(t)
			userID := uniqueUser("payer")

			rec := domain.PaymentRecord{
				TransactionID: "demo_" + uuid.NewString(),
				UserID:        userID,
				PlanID:        domain.PlanPro,
				Amount:        decimal.RequireFromString("9.99"),
				Currency:      "USD",
				Demo:          true,
				CreatedAt:     day0,
			}
			require.NoError(t, ledger.Record(ctx, rec))

			got, err := ledger.ListByUser(ctx, userID)
			require.NoError(t, err)
			require.Len(t, got, 1)
			assert.Equal(t, rec.TransactionID, got[0].TransactionID)
			assert.True(t, rec.Amount.Equal(got[0].Amount))
			assert.True(t, got[0].Demo)
			assert.True(t, day0.Equal(got[0].CreatedAt))
		})
	}
}

func TestRepository_ExecutesWithinTransaction(t *testing.T) {
	ctx := context.Background()
	conn := openSQLite(t)
	repo := NewSQLiteRepository(conn)

	tx, err := conn.BeginTx(ctx)
	require.NoError(t, err)
	txCtx := database.WithTx(ctx, tx, true)

	require.NoError(t, repo.Upsert(txCtx, trialFor("tx-user", day0)))
	require.NoError(t, tx.Rollback(ctx))

	sub, err := repo.FindByUserID(ctx, "tx-user")
	require.NoError(t, err)
	assert.Nil(t, sub)
}

func TestNewSubscriptionRepository(t *testing.T) {
	repo, err := NewSubscriptionRepository(nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryRepository{}, repo)

	repo, err = NewSubscriptionRepository(openSQLite(t))
	require.NoError(t, err)
	assert.IsType(t, &SQLiteRepository{}, repo)

	ledger, err := NewPaymentLedger(nil)
	require.NoError(t, err)
	assert.IsType(t, &MemoryLedger{}, ledger)
}

func TestMemoryRepository_ReturnsCopies(t *testing.T) {
	ctx := context.Background()
	repo := NewMemoryRepository()
	require.NoError(t, repo.Upsert(ctx, trialFor("u1", day0)))

	got, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	got.Status = domain.SubscriptionExpired

	again, err := repo.FindByUserID(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, domain.SubscriptionTrial, again.Status)
	assert.Equal(t, 1, repo.Len())
}
