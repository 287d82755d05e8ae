package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/magabrotheeeer/painscope/internal/models"
)

// RegisterUser вставляет новый профиль и возвращает его UUID.
func (s *Storage) RegisterUser(ctx context.Context, user models.User) (string, error) {
	const op = "storage.RegisterUser"
	select {
	case <-ctx.Done():
		return "", fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `INSERT INTO profiles (email, username, password_hash, role, is_verified,
			      subscription_plan, subscription_status, trial_ends_at)
			  VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
			  RETURNING id`
	var uid string
	err := s.DB.QueryRowContext(ctx, query,
		user.Email, user.Username, user.PasswordHash, user.Role, user.IsVerified,
		user.SubscriptionPlan, user.SubscriptionStatus, user.TrialEndsAt).Scan(&uid)
	if err != nil {
		return "", fmt.Errorf("%s: %w", op, err)
	}
	return uid, nil
}

const profileColumns = `id, email, username, password_hash, role, is_verified, is_locked,
		company, industry, subscription_plan, subscription_status, trial_ends_at,
		stripe_customer_id, stripe_subscription_id, created_at, updated_at`

func scanUser(row interface{ Scan(dest ...any) error }) (*models.User, error) {
	var u models.User
	err := row.Scan(&u.UUID, &u.Email, &u.Username, &u.PasswordHash, &u.Role,
		&u.IsVerified, &u.IsLocked, &u.Company, &u.Industry,
		&u.SubscriptionPlan, &u.SubscriptionStatus, &u.TrialEndsAt,
		&u.StripeCustomerID, &u.StripeSubscriptionID, &u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		return nil, err
	}
	return &u, nil
}

// GetUserByUsername возвращает профиль по имени пользователя.
func (s *Storage) GetUserByUsername(ctx context.Context, username string) (*models.User, error) {
	const op = "storage.GetUserByUsername"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE username = $1`
	user, err := scanUser(s.DB.QueryRowContext(ctx, query, username))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetUserByEmail возвращает профиль по электронной почте.
func (s *Storage) GetUserByEmail(ctx context.Context, email string) (*models.User, error) {
	const op = "storage.GetUserByEmail"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE email = $1`
	user, err := scanUser(s.DB.QueryRowContext(ctx, query, email))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// GetUserByUID возвращает профиль по UUID.
func (s *Storage) GetUserByUID(ctx context.Context, uid string) (*models.User, error) {
	const op = "storage.GetUserByUID"
	select {
	case <-ctx.Done():
		return nil, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `SELECT ` + profileColumns + ` FROM profiles WHERE id = $1`
	user, err := scanUser(s.DB.QueryRowContext(ctx, query, uid))
	if err != nil {
		return nil, fmt.Errorf("%s: %w", op, err)
	}
	return user, nil
}

// UpdateProfile обновляет изменяемые пользователем поля профиля.
func (s *Storage) UpdateProfile(ctx context.Context, uid, username, company, industry string) error {
	const op = "storage.UpdateProfile"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles
			  SET username = $1, company = $2, industry = $3, updated_at = $4
			  WHERE id = $5`
	_, err := s.DB.ExecContext(ctx, query, username, company, industry, time.Now().UTC(), uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// MarkVerified помечает почту профиля как подтверждённую.
func (s *Storage) MarkVerified(ctx context.Context, email string) error {
	const op = "storage.MarkVerified"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles SET is_verified = true, updated_at = $1 WHERE email = $2`
	_, err := s.DB.ExecContext(ctx, query, time.Now().UTC(), email)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdatePassword заменяет хэш пароля профиля.
func (s *Storage) UpdatePassword(ctx context.Context, uid, passwordHash string) error {
	const op = "storage.UpdatePassword"
	select {
	case <-ctx.Done():
		return fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles SET password_hash = $1, updated_at = $2 WHERE id = $3`
	_, err := s.DB.ExecContext(ctx, query, passwordHash, time.Now().UTC(), uid)
	if err != nil {
		return fmt.Errorf("%s: %w", op, err)
	}
	return nil
}

// UpdateSubscriptionByUserUID обновляет поля подписки профиля по UUID владельца.
func (s *Storage) UpdateSubscriptionByUserUID(ctx context.Context, uid string, upd models.SubscriptionUpdate) (int, error) {
	const op = "storage.UpdateSubscriptionByUserUID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles
			  SET subscription_plan = $1, subscription_status = $2, trial_ends_at = $3,
			      stripe_customer_id = COALESCE($4, stripe_customer_id),
			      stripe_subscription_id = COALESCE($5, stripe_subscription_id),
			      updated_at = $6
			  WHERE id = $7`
	result, err := s.DB.ExecContext(ctx, query, upd.Plan, upd.Status, upd.TrialEndsAt,
		upd.StripeCustomerID, upd.StripeSubscriptionID, time.Now().UTC(), uid)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdateSubscriptionBySubscriptionID обновляет поля подписки профиля,
// найденного по идентификатору подписки провайдера. Возвращает количество
// изменённых строк: ноль означает, что профиль нужно искать по клиенту.
func (s *Storage) UpdateSubscriptionBySubscriptionID(ctx context.Context, subscriptionID string, upd models.SubscriptionUpdate) (int, error) {
	const op = "storage.UpdateSubscriptionBySubscriptionID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles
			  SET subscription_plan = $1, subscription_status = $2, trial_ends_at = $3, updated_at = $4
			  WHERE stripe_subscription_id = $5`
	result, err := s.DB.ExecContext(ctx, query, upd.Plan, upd.Status, upd.TrialEndsAt,
		time.Now().UTC(), subscriptionID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}

// UpdateSubscriptionByCustomerID обновляет поля подписки профиля, найденного
// по идентификатору клиента провайдера, попутно проставляя идентификатор
// подписки, если он ещё не был известен.
func (s *Storage) UpdateSubscriptionByCustomerID(ctx context.Context, customerID string, upd models.SubscriptionUpdate) (int, error) {
	const op = "storage.UpdateSubscriptionByCustomerID"
	select {
	case <-ctx.Done():
		return 0, fmt.Errorf("%s: %w", op, ctx.Err())
	default:
	}

	query := `UPDATE profiles
			  SET subscription_plan = $1, subscription_status = $2, trial_ends_at = $3,
			      stripe_subscription_id = COALESCE($4, stripe_subscription_id),
			      updated_at = $5
			  WHERE stripe_customer_id = $6`
	result, err := s.DB.ExecContext(ctx, query, upd.Plan, upd.Status, upd.TrialEndsAt,
		upd.StripeSubscriptionID, time.Now().UTC(), customerID)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("%s: %w", op, err)
	}
	return int(rowsAffected), nil
}
