package users

import (
	"context"
	"database/sql"
	"errors"
	"time"

	"github.com/google/uuid"
	"github.com/mattn/go-sqlite3"

	"github.com/pollwise/pollwise/model"
)

type Store struct {
	db *sql.DB
}

func NewStore(db *sql.DB) *Store {
	return &Store{db}
}

// Create inserts a new user. A duplicate email surfaces as
// model.ErrEmailTaken via the unique constraint, so two concurrent
// registrations cannot both succeed.
func (s *Store) Create(ctx context.Context, name, surname, email string) (*model.User, error) {
	user := &model.User{
		ID:        uuid.NewString(),
		Name:      name,
		Surname:   surname,
		Email:     email,
		CreatedAt: time.Now(),
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO user (id, name, surname, email, created_at)
		VALUES (?, ?, ?, ?, ?)`,
		user.ID,
		user.Name,
		user.Surname,
		user.Email,
		user.CreatedAt,
	)
	if err != nil {
		var sqliteErr sqlite3.Error
		if errors.As(err, &sqliteErr) && sqliteErr.Code == sqlite3.ErrConstraint {
			return nil, model.ErrEmailTaken
		}
		return nil, err
	}
	return user, nil
}

func (s *Store) ByID(ctx context.Context, id string) (*model.User, error) {
	return s.get(ctx, `WHERE id = ?`, id)
}

func (s *Store) ByEmail(ctx context.Context, email string) (*model.User, error) {
	return s.get(ctx, `WHERE email = ?`, email)
}

func (s *Store) get(ctx context.Context, where string, arg any) (*model.User, error) {
	user := &model.User{}
	err := s.db.QueryRowContext(ctx, `
		SELECT id, name, surname, email, created_at
		FROM user `+where,
		arg,
	).Scan(&user.ID, &user.Name, &user.Surname, &user.Email, &user.CreatedAt)
	if err == sql.ErrNoRows {
		return nil, model.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return user, nil
}
