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

// CreateProduct inserts a product and returns it with assigned id.
func (s *Store) CreateProduct(ctx context.Context, p core.Product) (core.Product, error) {
	if s == nil || s.DB == nil {
		return core.Product{}, errors.New("store is not initialized")
	}

	now := time.Now().UTC().Truncate(time.Second)
	res, err := s.DB.ExecContext(ctx, `
		INSERT INTO products (name, description, price_cents, stock, category, create_time, update_time)
		VALUES (?, ?, ?, ?, ?, ?, ?)
	`, p.Name, nullable(p.Description), p.PriceCents, p.Stock, nullable(p.Category), now.Unix(), now.Unix())
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}

	id, err := res.LastInsertId()
	if err != nil {
		return core.Product{}, fmt.Errorf("create product: %w", err)
	}

	p.ID = id
	p.CreateTime = now
	p.UpdateTime = now
	return p, nil
}

// GetProduct fetches a product by id. Returns ErrNotFound when absent.
func (s *Store) GetProduct(ctx context.Context, id int64) (core.Product, error) {
	if s == nil || s.DB == nil {
		return core.Product{}, errors.New("store is not initialized")
	}

	row := s.DB.QueryRowContext(ctx, `
		SELECT id, name, description, price_cents, stock, category, create_time, update_time
		FROM products WHERE id = ?
	`, id)

	p, err := scanProduct(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return core.Product{}, ErrNotFound
		}
		return core.Product{}, fmt.Errorf("fetch product: %w", err)
	}
	return p, nil
}

// ListProducts returns a page of products, newest first, optionally filtered
// by exact category.
func (s *Store) ListProducts(ctx context.Context, page, pageSize int, category string) ([]core.Product, int, error) {
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
	if category = strings.TrimSpace(category); category != "" {
		where = `WHERE category = ?`
		args = append(args, category)
	}

	var total int
	if err := s.DB.QueryRowContext(ctx, `SELECT COUNT(*) FROM products `+where, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count products: %w", err)
	}

	args = append(args, pageSize, (page-1)*pageSize)
	rows, err := s.DB.QueryContext(ctx, `
		SELECT id, name, description, price_cents, stock, category, create_time, update_time
		FROM products `+where+`
		ORDER BY id DESC LIMIT ? OFFSET ?
	`, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}
	defer rows.Close()

	var products []core.Product
	for rows.Next() {
		p, err := scanProduct(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan product: %w", err)
		}
		products = append(products, p)
	}
	if err := rows.Err(); err != nil {
		return nil, 0, fmt.Errorf("list products: %w", err)
	}

	return products, total, nil
}

// UpdateProduct applies the provided fields to an existing product. Nil
// pointer fields are left unchanged.
func (s *Store) UpdateProduct(ctx context.Context, id int64, name, description, category *string, priceCents *int64, stock *int) (core.Product, error) {
	if s == nil || s.DB == nil {
		return core.Product{}, errors.New("store is not initialized")
	}

	current, err := s.GetProduct(ctx, id)
	if err != nil {
		return core.Product{}, err
	}

	if name != nil {
		current.Name = *name
	}
	if description != nil {
		current.Description = *description
	}
	if category != nil {
		current.Category = *category
	}
	if priceCents != nil {
		current.PriceCents = *priceCents
	}
	if stock != nil {
		current.Stock = *stock
	}
	current.UpdateTime = time.Now().UTC().Truncate(time.Second)

	_, err = s.DB.ExecContext(ctx, `
		UPDATE products SET name = ?, description = ?, price_cents = ?, stock = ?, category = ?, update_time = ?
		WHERE id = ?
	`, current.Name, nullable(current.Description), current.PriceCents, current.Stock,
		nullable(current.Category), current.UpdateTime.Unix(), id)
	if err != nil {
		return core.Product{}, fmt.Errorf("update product: %w", err)
	}

	return current, nil
}

// DeleteProduct removes a product by id. Returns ErrNotFound when absent.
func (s *Store) DeleteProduct(ctx context.Context, id int64) error {
	if s == nil || s.DB == nil {
		return errors.New("store is not initialized")
	}

	res, err := s.DB.ExecContext(ctx, `DELETE FROM products WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("delete product: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func scanProduct(row rowScanner) (core.Product, error) {
	var (
		p           core.Product
		description sql.NullString
		category    sql.NullString
		createUnix  int64
		updateUnix  int64
	)
	if err := row.Scan(&p.ID, &p.Name, &description, &p.PriceCents, &p.Stock, &category, &createUnix, &updateUnix); err != nil {
		return core.Product{}, err
	}
	p.Description = description.String
	p.Category = category.String
	p.CreateTime = time.Unix(createUnix, 0).UTC()
	p.UpdateTime = time.Unix(updateUnix, 0).UTC()
	return p, nil
}
