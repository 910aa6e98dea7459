package storage

import (
	"database/sql"
	"errors"
	"time"

	"github.com/jmoiron/sqlx"
)

// ParticipationStore handles event participation database operations.
type ParticipationStore struct {
	db *Database
}

// NewParticipationStore creates a new participation store.
func NewParticipationStore(db *Database) *ParticipationStore {
	return &ParticipationStore{db: db}
}

// Participant is a participation row with the recipient attached.
type Participant struct {
	Participation
	User User `db:"user"`
}

// Upsert records a user's reaction to an event. The first reaction creates
// the row; later reactions overwrite it in place, so at most one row exists
// per (event, user) pair. Returns whether the row was created.
func (s *ParticipationStore) Upsert(eventID, userID int64, reaction Reaction, reactedAt time.Time) (*Participation, bool, error) {
	existing, err := s.get(eventID, userID)
	if err != nil {
		return nil, false, err
	}

	query := `
		INSERT INTO event_participants (event_id, user_id, reaction, reacted_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT(event_id, user_id) DO UPDATE SET
			reaction = excluded.reaction,
			reacted_at = excluded.reacted_at
	`
	if _, err := s.db.Exec(query, eventID, userID, string(reaction), reactedAt.UTC()); err != nil {
		return nil, false, err
	}

	record, err := s.get(eventID, userID)
	if err != nil {
		return nil, false, err
	}
	return record, existing == nil, nil
}

// GetReaction returns the user's reaction to an event, or "" if none.
func (s *ParticipationStore) GetReaction(eventID, userID int64) (Reaction, error) {
	record, err := s.get(eventID, userID)
	if err != nil || record == nil {
		return "", err
	}
	if !record.Reaction.Valid {
		return "", nil
	}
	return Reaction(record.Reaction.String), nil
}

// GetByReactions returns participants of an event whose reaction is in the
// given set, with recipient data attached.
func (s *ParticipationStore) GetByReactions(eventID int64, reactions []Reaction) ([]Participant, error) {
	if len(reactions) == 0 {
		return nil, nil
	}

	values := make([]string, len(reactions))
	for i, r := range reactions {
		values[i] = string(r)
	}

	query, args, err := sqlx.In(`
		SELECT
			p.id, p.event_id, p.user_id, p.reaction, p.reacted_at, p.created_at,
			u.id AS "user.id", u.telegram_id AS "user.telegram_id", u.name AS "user.name",
			u.username AS "user.username", u.locale AS "user.locale", u.role AS "user.role",
			u.is_approved AS "user.is_approved", u.is_banned AS "user.is_banned",
			u.created_at AS "user.created_at"
		FROM event_participants p
		JOIN users u ON u.id = p.user_id
		WHERE p.event_id = ? AND p.reaction IN (?)
	`, eventID, values)
	if err != nil {
		return nil, err
	}

	var participants []Participant
	if err := s.db.Select(&participants, s.db.Rebind(query), args...); err != nil {
		return nil, err
	}
	return participants, nil
}

// CountByReaction returns how many participants of an event chose the given
// reaction.
func (s *ParticipationStore) CountByReaction(eventID int64, reaction Reaction) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM event_participants WHERE event_id = ? AND reaction = ?`
	err := s.db.Get(&count, query, eventID, string(reaction))
	return count, err
}

func (s *ParticipationStore) get(eventID, userID int64) (*Participation, error) {
	var record Participation
	query := `SELECT * FROM event_participants WHERE event_id = ? AND user_id = ?`
	err := s.db.Get(&record, query, eventID, userID)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	return &record, nil
}
