package persistence

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/felixgeelhaar/tutora/internal/billing/domain"
	"github.com/felixgeelhaar/tutora/internal/shared/infrastructure/database"
)

// PostgresRepository implements SubscriptionRepository with PostgreSQL.
type PostgresRepository struct {
	conn database.Connection
}

// NewPostgresRepository creates a new repository.
func NewPostgresRepository(conn database.Connection) *PostgresRepository {
	return &PostgresRepository{conn: conn}
}

const postgresSubscriptionColumns = `id, user_id, plan_id, status, trial_end_date, upgraded_at, created_at, updated_at`

// FindByUserID returns the subscription for a user.
func (r *PostgresRepository) FindByUserID(ctx context.Context, userID string) (*domain.Subscription, error) {
	row := database.ExecutorFromContext(ctx, r.conn).QueryRow(ctx,
		`SELECT `+postgresSubscriptionColumns+` FROM subscriptions WHERE user_id = $1`, userID)

	sub, err := scanPostgresSubscription(row)
	if err != nil {
		if database.IsNoRows(err) {
			return nil, nil
		}
		return nil, err
	}
	return sub, nil
}

// Upsert inserts or updates a subscription.
func (r *PostgresRepository) Upsert(ctx context.Context, subscription *domain.Subscription) error {
	id := subscription.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	_, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO subscriptions (`+postgresSubscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), NOW())
		ON CONFLICT (user_id) DO UPDATE SET
			plan_id = EXCLUDED.plan_id,
			status = EXCLUDED.status,
			upgraded_at = EXCLUDED.upgraded_at,
			updated_at = NOW()
	`,
		id,
		subscription.UserID,
		subscription.PlanID,
		string(subscription.Status),
		subscription.TrialEndDate,
		subscription.UpgradedAt,
		nullTime(subscription.CreatedAt),
	)
	return err
}

// CreateIfAbsent inserts a subscription unless the user already has one.
func (r *PostgresRepository) CreateIfAbsent(ctx context.Context, subscription *domain.Subscription) (bool, error) {
	id := subscription.ID
	if id == uuid.Nil {
		id = uuid.New()
	}

	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		INSERT INTO subscriptions (`+postgresSubscriptionColumns+`)
		VALUES ($1, $2, $3, $4, $5, $6, COALESCE($7, NOW()), NOW())
		ON CONFLICT (user_id) DO NOTHING
	`,
		id,
		subscription.UserID,
		subscription.PlanID,
		string(subscription.Status),
		subscription.TrialEndDate,
		subscription.UpgradedAt,
		nullTime(subscription.CreatedAt),
	)
	if err != nil {
		return false, err
	}
	return changed(result)
}

// ExpireTrial marks a lapsed trial expired; other statuses are left untouched.
func (r *PostgresRepository) ExpireTrial(ctx context.Context, userID string, now time.Time) (bool, error) {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, updated_at = NOW()
		WHERE user_id = $2 AND status = $3 AND trial_end_date <= $4
	`, string(domain.SubscriptionExpired), userID, string(domain.SubscriptionTrial), now)
	if err != nil {
		return false, err
	}
	return changed(result)
}

// UpdateStatus changes the status of an existing record.
func (r *PostgresRepository) UpdateStatus(ctx context.Context, userID string, status domain.SubscriptionStatus, update domain.StatusUpdate) error {
	result, err := database.ExecutorFromContext(ctx, r.conn).Exec(ctx, `
		UPDATE subscriptions
		SET status = $1, upgraded_at = COALESCE($2::timestamptz, upgraded_at), updated_at = NOW()
		WHERE user_id = $3
	`, string(status), update.UpgradedAt, userID)
	if err != nil {
		return err
	}
	return requireAffected(result)
}

// ListTrialsEndingBefore returns trials whose end date is at or before t.
func (r *PostgresRepository) ListTrialsEndingBefore(ctx context.Context, t time.Time, limit int) ([]*domain.Subscription, error) {
	var limitArg *int
	if limit > 0 {
		limitArg = &limit
	}
	rows, err := database.ExecutorFromContext(ctx, r.conn).Query(ctx, `
		SELECT `+postgresSubscriptionColumns+` FROM subscriptions
		WHERE status = $1 AND trial_end_date <= $2
		ORDER BY trial_end_date
		LIMIT $3
	`, string(domain.SubscriptionTrial), t, limitArg)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []*domain.Subscription
	for rows.Next() {
		sub, err := scanPostgresSubscription(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, sub)
	}
	return out, rows.Err()
}

func scanPostgresSubscription(row database.Row) (*domain.Subscription, error) {
	var (
		sub    domain.Subscription
		status string
	)
	err := row.Scan(
		&sub.ID,
		&sub.UserID,
		&sub.PlanID,
		&status,
		&sub.TrialEndDate,
		&sub.UpgradedAt,
		&sub.CreatedAt,
		&sub.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	sub.Status = domain.SubscriptionStatus(status)
	return &sub, nil
}

func nullTime(t time.Time) *time.Time {
	if t.IsZero() {
		return nil
	}
	return &t
}

var _ domain.SubscriptionRepository = (*PostgresRepository)(nil)

// PostgresLedger implements PaymentLedger with PostgreSQL.
type PostgresLedger struct {
	conn database.Connection
}

// NewPostgresLedger creates a new ledger.
func NewPostgresLedger(conn database.Connection) *PostgresLedger {
	return &PostgresLedger{conn: conn}
}

// Record inserts a payment record.
func (l *PostgresLedger) Record(ctx context.Context, rec domain.PaymentRecord) error {
	_, err := database.ExecutorFromContext(ctx, l.conn).Exec(ctx, `
		INSERT INTO payment_transactions (id, user_id, plan_id, amount, currency, demo, created_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`, rec.TransactionID, rec.UserID, rec.PlanID, rec.Amount, rec.Currency, rec.Demo, rec.CreatedAt)
	return err
}

// ListByUser returns the user's payment records, oldest first.
func (l *PostgresLedger) ListByUser(ctx context.Context, userID string) ([]domain.PaymentRecord, error) {
	rows, err := database.ExecutorFromContext(ctx, l.conn).Query(ctx, `
		SELECT id, user_id, plan_id, amount, currency, demo, created_at
		FROM payment_transactions WHERE user_id = $1 ORDER BY created_at
	`, userID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []domain.PaymentRecord
	for rows.Next() {
		var rec domain.PaymentRecord
		if err := rows.Scan(&rec.TransactionID, &rec.UserID, &rec.PlanID, &rec.Amount, &rec.Currency, &rec.Demo, &rec.CreatedAt); err != nil {
			return nil, err
		}
		out = append(out, rec)
	}
	return out, rows.Err()
}

var _ domain.PaymentLedger = (*PostgresLedger)(nil)
