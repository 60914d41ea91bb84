package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/svckit/svckit/internal/core"
)

// CreateUser inserts a user and returns it with assigned id and timestamps.
func (s *Store) CreateUser(ctx context.Context, u core.User) (core.User, error) {
	if s == nil || s.DB == nil {
		return core.User{}, errors.New("store is not initialized")
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO users (name, nick_name, email, create_time, update_time)
		VALUES (?, ?, ?, ?, ?)
	`, u.Name, u.NickName, nullable(u.Email), now.Unix(), now.Unix())
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("nick name %q: %w", u.NickName, ErrConflict)
		}
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.User{}, fmt.Errorf("create user: %w", err)
	}

	u.ID = id
	u.CreateTime = now
	u.UpdateTime = now
	return u, nil
}

// GetUser fetches a user by id. Returns ErrNotFound when absent.
func (s *Store) GetUser(ctx context.Context, id int64) (core.User, error) {
	if s == nil || s.DB == nil {
		return core.User{}, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, nick_name, email, create_time, update_time
		FROM users WHERE id = ?
	`, id)

	u, err := scanUser(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.User{}, ErrNotFound
		}
		return core.User{}, fmt.Errorf("fetch user: %w", err)
	}
	return u, nil
}

// ListUsers returns a page of users, newest first, optionally filtered by a
// case-insensitive name/nickname substring.
func (s *Store) ListUsers(ctx context.Context, page, pageSize int, search string) ([]core.User, int, error) {
	if s == nil || s.DB == nil {
		return nil, 0, errors.New("store is not initialized")
	}
	if page < 1 {
		page = 1
	}
	if pageSize < 1 {
		pageSize = 10
	}

	where := ""
	args := []any{}
	if search = strings.TrimSpace(search); search != "" {
		where = `WHERE name LIKE ? COLLATE NOCASE OR nick_name LIKE ? COLLATE NOCASE`
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM users `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count users: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, nick_name, email, create_time, update_time
		FROM users `+where+`
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}
	defer rows.Close()

	var users []core.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan user: %w", err)
		}
		users = append(users, u)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list users: %w", err)
	}

	return users, total, nil
}

// UpdateUser applies non-empty fields to an existing user.
func (s *Store) UpdateUser(ctx context.Context, id int64, name, nickName, email string) (core.User, error) {
	if s == nil || s.DB == nil {
		return core.User{}, errors.New("store is not initialized")
	}

	current, err := s.GetUser(ctx, id)
	if err != nil {
		return core.User{}, err
	}

	if name != "" {
		current.Name = name
	}
	if nickName != "" {
		current.NickName = nickName
	}
	if email != "" {
		current.Email = email
	}
	current.UpdateTime = time.Now().UTC().Truncate(time.Second)

	_, err = s.DB.ExecContext(ctx, `
		UPDATE users SET name = ?, nick_name = ?, email = ?, update_time = ?
		WHERE id = ?
	`, current.Name, current.NickName, nullable(current.Email), current.UpdateTime.Unix(), id)
	if err != nil {
		if isUniqueViolation(err) {
			return core.User{}, fmt.Errorf("nick name %q: %w", current.NickName, ErrConflict)
		}
		return core.User{}, fmt.Errorf("update user: %w", err)
	}

	return current, nil
}

// DeleteUser removes a user by id. Returns ErrNotFound when absent.
func (s *Store) DeleteUser(ctx context.Context, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM users WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete user: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (core.User, error) {
	var (
		u          core.User
		email      sql.NullString
		createUnix int64
		updateUnix int64
	)
	if err := row.Scan(&u.ID, &u.Name, &u.NickName, &email, &createUnix, &updateUnix); err != nil {
		return core.User{}, err
	}
	u.Email = email.String
	u.CreateTime = time.Unix(createUnix, 0).UTC()
	u.UpdateTime = time.Unix(updateUnix, 0).UTC()
	return u, nil
}

func nullable(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func isUniqueViolation(err error) bool {
	return err != nil && strings.Contains(err.Error(), "UNIQUE constraint failed")
}
