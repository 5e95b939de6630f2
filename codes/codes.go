// Package codes implements the one-time verification code store backing
// email-based registration and login.
package codes

import (
	"context"
	"crypto/rand"
	"database/sql"
	"io"
	"time"

	"github.com/pollwise/pollwise/config"
	"github.com/pollwise/pollwise/guard"
	"github.com/pollwise/pollwise/model"
)

const digits = "0123456789"
const digitsAndUpper = "0123456789ABCDEFGHIJKLMNOPQRSTUVWXYZ"

type Store struct {
	db         *sql.DB
	guard      *guard.Keyed
	ttl        time.Duration
	length     int
	digitsOnly bool
	maxActive  int
	now        func() time.Time
}

func NewStore(db *sql.DB, cfg config.Config) *Store {
	return &Store{
		db:         db,
		guard:      guard.New(),
		ttl:        cfg.CodeTTL,
		length:     cfg.CodeLength,
		digitsOnly: cfg.CodeDigitsOnly,
		maxActive:  cfg.MaxActiveCodes,
		now:        time.Now,
	}
}

// Issue generates and persists a fresh code for email. It fails with
// model.ErrRateLimited once the configured number of unexpired codes is
// reached. The count-then-insert sequence is serialized per email.
func (s *Store) Issue(ctx context.Context, email string) (string, error) {
	s.guard.Lock(email)
	defer s.guard.Unlock(email)

	now := s.now()

	var active int
	err := s.db.QueryRowContext(ctx, `
		SELECT COUNT(*) FROM verification_code
		WHERE email = ?
			AND expire_at >= ?`,
		email,
		now,
	).Scan(&active)
	if err != nil {
		return "", err
	}
	if active >= s.maxActive {
		return "", model.ErrRateLimited
	}

	code, err := randomCode(rand.Reader, s.length, s.digitsOnly)
	if err != nil {
		return "", err
	}

	_, err = s.db.ExecContext(ctx, `
		INSERT INTO verification_code (email, code, expire_at)
		VALUES (?, ?, ?)`,
		email,
		code,
		now.Add(s.ttl),
	)
	if err != nil {
		return "", err
	}
	return code, nil
}

// Validate reports whether an unexpired code matching both fields exists.
func (s *Store) Validate(ctx context.Context, email, code string) (bool, error) {
	var one int
	err := s.db.QueryRowContext(ctx, `
		SELECT 1 FROM verification_code
		WHERE email = ?
			AND code = ?
			AND expire_at >= ?`,
		email,
		code,
		s.now(),
	).Scan(&one)
	if err == sql.ErrNoRows {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

// ConsumeAll deletes every code for email, expired or not. Called after
// a successful registration or login so no issued code survives.
func (s *Store) ConsumeAll(ctx context.Context, email string) error {
	_, err := s.db.ExecContext(ctx, `
		DELETE FROM verification_code
		WHERE email = ?`,
		email,
	)
	return err
}

// SweepExpired deletes codes past their expiry. Scheduled periodically;
// a failed sweep is simply retried on the next tick.
func (s *Store) SweepExpired(ctx context.Context) (int64, error) {
	res, err := s.db.ExecContext(ctx, `
		DELETE FROM verification_code
		WHERE expire_at < ?`,
		s.now(),
	)
	if err != nil {
		return 0, err
	}
	return res.RowsAffected()
}

// randomCode draws uniformly from the configured charset. Bytes past
// the largest multiple of the charset size are rejected, otherwise the
// modulo would skew low characters.
func randomCode(r io.Reader, length int, digitsOnly bool) (string, error) {
	charset := digitsAndUpper
	if digitsOnly {
		charset = digits
	}
	limit := 256 - 256%len(charset)

	out := make([]byte, 0, length)
	buffer := make([]byte, length)
	for len(out) < length {
		n, err := io.ReadFull(r, buffer[:length-len(out)])
		if err != nil {
			return "", err
		}
		for _, b := range buffer[:n] {
			if int(b) >= limit {
				continue
			}
			out = append(out, charset[int(b)%len(charset)])
		}
	}
	return string(out), nil
}
