package storage

import (
	"database/sql"
	"errors"
)

// UserStore handles user-related database operations.
type UserStore struct {
	db *Database
}

// NewUserStore creates a new user store.
func NewUserStore(db *Database) *UserStore {
	return &UserStore{db: db}
}

// UserCounts aggregates users by approval state for admin statistics.
type UserCounts struct {
	Pending  int `db:"pending"`
	Approved int `db:"approved"`
	Banned   int `db:"banned"`
}

// CreateOrUpdate inserts a user or refreshes name/username/locale for an
// existing one. Returns the stored record and whether it was created.
func (s *UserStore) CreateOrUpdate(telegramID int64, name, username, locale string) (*User, bool, error) {
	existing, err := s.GetByTelegramID(telegramID)
	if err != nil {
		return nil, false, err
	}

	query := `
		INSERT INTO users (telegram_id, name, username, locale)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(telegram_id) DO UPDATE SET
			name = excluded.name,
			username = excluded.username,
			locale = excluded.locale
	`
	if _, err := s.db.Exec(query, telegramID, name, toNullString(username), locale); err != nil {
		return nil, false, err
	}

	user, err := s.GetByTelegramID(telegramID)
	if err != nil {
		return nil, false, err
	}
	return user, existing == nil, nil
}

// GetByTelegramID returns the user with the given Telegram id, or nil.
func (s *UserStore) GetByTelegramID(telegramID int64) (*User, error) {
	var user User
	query := `SELECT * FROM users WHERE telegram_id = ?`
	err := s.db.Get(&user, query, telegramID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// GetByID returns the user with the given internal id, or nil.
func (s *UserStore) GetByID(id int64) (*User, error) {
	var user User
	query := `SELECT * FROM users WHERE id = ?`
	err := s.db.Get(&user, query, id)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &user, nil
}

// ListApproved returns all approved, non-banned users. These are the only
// notification targets.
func (s *UserStore) ListApproved() ([]User, error) {
	var users []User
	query := `SELECT * FROM users WHERE is_approved = 1 AND is_banned = 0 ORDER BY created_at`
	err := s.db.Select(&users, query)
	return users, err
}

// ListAdmins returns all users with the admin role.
func (s *UserStore) ListAdmins() ([]User, error) {
	var users []User
	query := `SELECT * FROM users WHERE role = ?`
	err := s.db.Select(&users, query, RoleAdmin)
	return users, err
}

// ListPending returns users awaiting approval.
func (s *UserStore) ListPending() ([]User, error) {
	var users []User
	query := `SELECT * FROM users WHERE is_approved = 0 AND is_banned = 0 ORDER BY created_at`
	err := s.db.Select(&users, query)
	return users, err
}

// Approve marks a user as approved.
func (s *UserStore) Approve(userID int64) error {
	_, err := s.db.Exec(`UPDATE users SET is_approved = 1 WHERE id = ?`, userID)
	return err
}

// Ban marks a user as banned.
func (s *UserStore) Ban(userID int64) error {
	_, err := s.db.Exec(`UPDATE users SET is_banned = 1 WHERE id = ?`, userID)
	return err
}

// Unban clears a user's ban flag.
func (s *UserStore) Unban(userID int64) error {
	_, err := s.db.Exec(`UPDATE users SET is_banned = 0 WHERE id = ?`, userID)
	return err
}

// SetRole updates a user's role.
func (s *UserStore) SetRole(userID int64, role Role) error {
	_, err := s.db.Exec(`UPDATE users SET role = ? WHERE id = ?`, role, userID)
	return err
}

// IsAdmin reports whether the given Telegram id belongs to an admin.
func (s *UserStore) IsAdmin(telegramID int64) (bool, error) {
	user, err := s.GetByTelegramID(telegramID)
	if err != nil {
		return false, err
	}
	return user != nil && user.Role == RoleAdmin, nil
}

// CountsByStatus returns aggregate user counts for the admin panel.
func (s *UserStore) CountsByStatus() (*UserCounts, error) {
	var counts UserCounts
	query := `
		SELECT
			COALESCE(SUM(CASE WHEN is_approved = 0 AND is_banned = 0 THEN 1 ELSE 0 END), 0) AS pending,
			COALESCE(SUM(CASE WHEN is_approved = 1 AND is_banned = 0 THEN 1 ELSE 0 END), 0) AS approved,
			COALESCE(SUM(CASE WHEN is_banned = 1 THEN 1 ELSE 0 END), 0) AS banned
		FROM users
	`
	if err := s.db.Get(&counts, query); err != nil {
		return nil, err
	}
	return &counts, nil
}

func toNullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
