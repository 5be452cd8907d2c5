// Package paper reads the paper catalog from the relational database.
package paper

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	dompaper "github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
)

// Repo implements usecase/papers.Repository.
type Repo struct {
	db     *gorm.DB
	logger *zap.Logger
}

// New creates a paper repository.
func New(db *gorm.DB, logger *zap.Logger) *Repo {
	return &Repo{db: db, logger: logger}
}

// Migrate creates or updates the papers table.
func (r *Repo) Migrate(ctx context.Context) error {
	if err := r.db.WithContext(ctx).AutoMigrate(&paperRow{}); err != nil {
		return fmt.Errorf("migrate papers: %w", err)
	}
	return nil
}

// Upsert inserts a paper or replaces the row with the same origin_id.
func (r *Repo) Upsert(ctx context.Context, p dompaper.Paper) error {
	row, err := rowFromDomain(&p)
	if err != nil {
		return fmt.Errorf("encode paper %s: %w", p.OriginID, err)
	}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns: []clause.Column{{Name: "origin_id"}},
			DoUpdates: clause.AssignmentColumns([]string{
				"title", "journal", "published", "summary", "short_summary",
				"authors", "links", "concepts", "categories",
				"two_dim_embedding", "embedding", "updated_at",
			}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("upsert paper %s: %w", p.OriginID, err)
	}
	return nil
}

// FindByCategories returns papers in the given journals (all journals when
// empty) published within the optional bounds, newest first, ties by id.
func (r *Repo) FindByCategories(
	ctx context.Context, journals []string, minDate, maxDate *time.Time,
) ([]dompaper.Paper, error) {
	q := r.db.WithContext(ctx).Model(&paperRow{})
	if len(journals) > 0 {
		q = q.Where("journal IN ?", journals)
	}
	if minDate != nil {
		q = q.Where("published >= ?", *minDate)
	}
	if maxDate != nil {
		q = q.Where("published <= ?", *maxDate)
	}

	var rows []paperRow
	if err := q.Order("published DESC").Order("paper_id ASC").Find(&rows).Error; err != nil {
		return nil, fmt.Errorf("select papers: %w", err)
	}

	out := make([]dompaper.Paper, len(rows))
	for i := range rows {
		out[i] = rows[i].toDomain(r.logger)
	}
	return out, nil
}
