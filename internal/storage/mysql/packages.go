package mysql

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"hotel_backoffice/internal/domain"
)

func scanPackage(s scanner) (domain.Package, error) {
	var (
		p        domain.Package
		features []byte
	)
	if err := s.Scan(&p.ID, &p.Title, &p.Description, &features, &p.Price, &p.IsActive, &p.CreatedAt, &p.UpdatedAt); err != nil {
		return domain.Package{}, err
	}
	if len(features) > 0 {
		if err := json.Unmarshal(features, &p.Features); err != nil {
			return domain.Package{}, fmt.Errorf("decode features of package %d: %w", p.ID, err)
		}
	}
	if p.Features == nil {
		p.Features = []string{}
	}
	p.CreatedAt, p.UpdatedAt = p.CreatedAt.UTC(), p.UpdatedAt.UTC()
	return p, nil
}

func encodeFeatures(f []string) (string, error) {
	if f == nil {
		f = []string{}
	}
	b, err := json.Marshal(f)
	if err != nil {
		return "", fmt.Errorf("encode features: %w", err)
	}
	return string(b), nil
}

func (r *Repo) CreatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return domain.Package{}, err
	}
	now := r.now().UTC()
	res, err := r.db.ExecContext(ctx, insertPackageSQL, p.Title, p.Description, features, p.Price, p.IsActive, now, now)
	if err != nil {
		return domain.Package{}, fmt.Errorf("insert package: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return domain.Package{}, fmt.Errorf("insert package id: %w", err)
	}
	return r.GetPackage(ctx, id)
}

func (r *Repo) UpdatePackage(ctx context.Context, p domain.Package) (domain.Package, error) {
	features, err := encodeFeatures(p.Features)
	if err != nil {
		return domain.Package{}, err
	}
	res, err := r.db.ExecContext(ctx, updatePackageSQL, p.Title, p.Description, features, p.Price, r.now().UTC(), p.ID)
	if err != nil {
		return domain.Package{}, fmt.Errorf("update package: %w", err)
	}
	// MySQL reports 0 affected rows for a no-op update, so existence is checked by reading back.
	if _, err := rowsAffected(res); err != nil {
		return domain.Package{}, err
	}
	return r.GetPackage(ctx, p.ID)
}

func (r *Repo) DeactivatePackage(ctx context.Context, id int64, at time.Time) error {
	if _, err := r.GetPackage(ctx, id); err != nil {
		return err
	}
	if _, err := r.db.ExecContext(ctx, deactivatePackageSQL, at.UTC(), id); err != nil {
		return fmt.Errorf("deactivate package: %w", err)
	}
	return nil
}

func (r *Repo) GetPackage(ctx context.Context, id int64) (domain.Package, error) {
	p, err := scanPackage(r.db.QueryRowContext(ctx, getPackageSQL, id))
	if err != nil {
		return domain.Package{}, notFound(err, "package")
	}
	return p, nil
}

func (r *Repo) ListActivePackages(ctx context.Context) ([]domain.Package, error) {
	rows, err := r.db.QueryContext(ctx, listActivePackagesSQL)
	if err != nil {
		return nil, fmt.Errorf("list packages: %w", err)
	}
	defer rows.Close()

	out := []domain.Package{}
	for rows.Next() {
		p, err := scanPackage(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, rows.Err()
}
