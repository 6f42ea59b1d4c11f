package persistence

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
)

// sqliteTime is fixed width so stored timestamps sort lexicographically.
const sqliteTime = "2006-01-02T15:04:05.000000000Z07:00"

func formatSQLiteTime(t time.Time) string {
	return t.UTC().Format(sqliteTime)
}

func parseSQLiteTime(s string) (time.Time, error) {
	return time.Parse(sqliteTime, s)
}

// SQLiteRepository implements SubscriptionRepository with SQLite.
type SQLiteRepository struct {
	conn database.Connection
	now  func() time.Time
}

// NewSQLiteRepository creates a new repository.
func NewSQLiteRepository(conn database.Connection) *SQLiteRepository {
	return &SQLiteRepository{conn: conn, now: time.Now}
}

const sqliteSubscriptionColumns = `id, user_id, plan_id, status, trial_end_date, upgraded_at, created_at, updated_at`

// FindByUserID returns the subscription for a user.
func (r *SQLiteRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+sqliteSubscriptionColumns+` FROM subscriptions WHERE user_id = ?`, userID)

	sub, err := scanSQLiteSubscription(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Upsert inserts or updates a subscription.
func (r *SQLiteRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	now := r.now()
	createdAt := subscription.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := subscription.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	id := subscription.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var upgradedAt sql.NullString
	if subscription.UpgradedAt != nil {
		upgradedAt = sql.NullString{String: formatSQLiteTime(*subscription.UpgradedAt), Valid: true}
	}

	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO subscriptions (`+sqliteSubscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = excluded.plan_id,
			status = excluded.status,
			upgraded_at = excluded.upgraded_at,
			updated_at = excluded.updated_at
	`,
		id.String(),
		subscription.UserID,
		subscription.PlanID,
		string(subscription.Status),
		formatSQLiteTime(subscription.TrialEndDate),
		upgradedAt,
		formatSQLiteTime(createdAt),
		formatSQLiteTime(updatedAt),
	)
	return err
}

// CreateIfAbsent inserts a subscription unless the user already has one.
func (r *SQLiteRepository) CreateIfAbsent(ctx context.Context, subscription *domain.Subscription) (bool, error) {
	now := r.now()
	createdAt := subscription.CreatedAt
	if createdAt.IsZero() {
		createdAt = now
	}
	updatedAt := subscription.UpdatedAt
	if updatedAt.IsZero() {
		updatedAt = now
	}
	id := subscription.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	var upgradedAt sql.NullString
	if subscription.UpgradedAt != nil {
		upgradedAt = sql.NullString{String: formatSQLiteTime(*subscription.UpgradedAt), Valid: true}
	}

	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO subscriptions (`+sqliteSubscriptionColumns+`)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (user_id) DO NOTHING
	`,
		id.String(),
		subscription.UserID,
		subscription.PlanID,
		string(subscription.Status),
		formatSQLiteTime(subscription.TrialEndDate),
		upgradedAt,
		formatSQLiteTime(createdAt),
		formatSQLiteTime(updatedAt),
	)
	if err != nil {
		return false, err
	}
	return changed(result)
}

// ExpireTrial marks a lapsed trial expired; other statuses are left untouched.
func (r *SQLiteRepository) ExpireTrial(ctx context.Context, userID string, now time.Time) (bool, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE subscriptions
		SET status = ?, updated_at = ?
		WHERE user_id = ? AND status = ? AND trial_end_date <= ?
	`,
		string(domain.SubscriptionExpired),
		formatSQLiteTime(r.now()),
		userID,
		string(domain.SubscriptionTrial),
		formatSQLiteTime(now),
	)
	if err != nil {
		return false, err
	}
	return changed(result)
}

// UpdateStatus changes the status of an existing record.
func (r *SQLiteRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, update domain.StatusUpdate) error {
	var upgradedAt sql.NullString
	if update.UpgradedAt != nil {
		upgradedAt = sql.NullString{String: formatSQLiteTime(*update.UpgradedAt), Valid: true}
	}

	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE subscriptions
		SET status = ?, upgraded_at = COALESCE(?, upgraded_at), updated_at = ?
		WHERE user_id = ?
	`, string(status), upgradedAt, formatSQLiteTime(r.now()), userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListTrialsEndingBefore returns trials whose end date is at or before t.
func (r *SQLiteRepository) ListTrialsEndingBefore(ctx context.Context, t time.Time, limit int) ([]*domain.Subscription, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT `+sqliteSubscriptionColumns+` FROM subscriptions
		WHERE status = ? AND trial_end_date <= ?
		ORDER BY trial_end_date
		LIMIT ?
	`, string(domain.SubscriptionTrial), formatSQLiteTime(t), limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		sub, err := scanSQLiteSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanSQLiteSubscription(row database.Row) (*domain.Subscription, error) {
	var (
		id, userID, planID, status string
		trialEnd, created, updated string
		upgraded                   sql.NullString
	)
	if err := row.Scan(&id, &userID, &planID, &status, &trialEnd, &upgraded, &created, &updated); err != nil {
		return nil, err
	}

	sub := &domain.Subscription{
		UserID: userID,
		PlanID: planID,
		Status: domain.SubscriptionStatus(status),
	}

	var err error
	if sub.ID, err = uuid.Parse(id); err != nil {
		return nil, fmt.Errorf("subscription %s: bad id: %w", userID, err)
	}
	if sub.TrialEndDate, err = parseSQLiteTime(trialEnd); err != nil {
		return nil, fmt.Errorf("subscription %s: bad trial_end_date: %w", userID, err)
	}
	if sub.CreatedAt, err = parseSQLiteTime(created); err != nil {
		return nil, fmt.Errorf("subscription %s: bad created_at: %w", userID, err)
	}
	if sub.UpdatedAt, err = parseSQLiteTime(updated); err != nil {
		return nil, fmt.Errorf("subscription %s: bad updated_at: %w", userID, err)
	}
	if upgraded.Valid {
		t, err := parseSQLiteTime(upgraded.String)
		if err != nil {
			return nil, fmt.Errorf("subscription %s: bad upgraded_at: %w", userID, err)
		}
		sub.UpgradedAt = &t
	}
	return sub, nil
}

func requireAffected(result database.Result) error {
	n, err := result.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return domain.ErrSubscriptionNotFound
	}
	return nil
}

func changed(result database.Result) (bool, error) {
	n, err := result.RowsAffected()
	if err != nil {
		return false, err
	}
	return n > 0, nil
}

var _ domain.SubscriptionRepository = (*SQLiteRepository)(nil)

// SQLiteLedger implements PaymentLedger with SQLite.
type SQLiteLedger struct {
	conn database.Connection
}

// NewSQLiteLedger creates a new ledger.
func NewSQLiteLedger(conn database.Connection) *SQLiteLedger {
	return &SQLiteLedger{conn: conn}
}

// Record inserts a payment record.
func (l *SQLiteLedger) Record(ctx context.Context, rec domain.PaymentRecord) error {
	_, err := database.ExecutorFromContext(ctx, l.conn).Exec(ctx, `
		INSERT INTO payment_transactions (id, user_id, plan_id, amount, currency, demo, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, rec.TransactionID, rec.UserID, rec.PlanID, rec.Amount.String(), rec.Currency, rec.Demo, formatSQLiteTime(rec.CreatedAt))
	return err
}

// ListByUser returns the user's payment records, oldest first.
func (l *SQLiteLedger) ListByUser(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	rows, err := database.ExecutorFromContext(ctx, l.conn).Query(ctx, `
		SELECT id, user_id, plan_id, amount, currency, demo, created_at
		FROM payment_transactions WHERE user_id = ? ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentRecord
	for rows.Next() {
		var (
			rec             domain.PaymentRecord
			amount, created string
		)
		if err := rows.Scan(&rec.TransactionID, &rec.UserID, &rec.PlanID, &amount, &rec.Currency, &rec.Demo, &created); err != nil {
			return nil, err
		}
		if rec.Amount, err = decimal.NewFromString(amount); err != nil {
			return nil, fmt.Errorf("payment %s: bad amount: %w", rec.TransactionID, err)
		}
		if rec.CreatedAt, err = parseSQLiteTime(created); err != nil {
			return nil, fmt.Errorf("payment %s: bad created_at: %w", rec.TransactionID, err)
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.PaymentLedger = (*SQLiteLedger)(nil)
