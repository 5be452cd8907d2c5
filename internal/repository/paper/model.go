package paper

import (
	"encoding/json"
	"time"

	"go.uber.org/zap"

	dompaper "github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
)

// paperRow is the papers table. List-valued columns hold JSON text.
type paperRow struct {
	PaperID         uint64    `gorm:"column:paper_id;primaryKey;autoIncrement"`
	OriginID        string    `gorm:"column:origin_id;size:128;uniqueIndex"`
	Title           string    `gorm:"column:title;type:text"`
	Journal         string    `gorm:"column:journal;size:255;index"`
	Published       time.Time `gorm:"column:published;index"`
	Summary         string    `gorm:"column:summary;type:text"`
	ShortSummary    string    `gorm:"column:short_summary;type:text"`
	Authors         string    `gorm:"column:authors;type:text"`
	Links           string    `gorm:"column:links;type:text"`
	Concepts        string    `gorm:"column:concepts;type:text"`
	Categories      string    `gorm:"column:categories;type:text"`
	TwoDimEmbedding string    `gorm:"column:two_dim_embedding;type:text"`
	Embedding       string    `gorm:"column:embedding;type:text"`
	CreatedAt       time.Time
	UpdatedAt       time.Time
}

func (paperRow) TableName() string { return "papers" }

type authorJSON struct {
	Name string `json:"name"`
}

func rowFromDomain(p *dompaper.Paper) (paperRow, error) {
	authors := make([]authorJSON, len(p.Authors))
	for i, a := range p.Authors {
		authors[i] = authorJSON{Name: a}
	}

	row := paperRow{
		PaperID:      p.ID,
		OriginID:     p.OriginID,
		Title:        p.Title,
		Journal:      p.Journal,
		Published:    p.Published,
		Summary:      p.Summary,
		ShortSummary: p.ShortSummary,
	}

	cols := []struct {
		dst *string
		v   any
	}{
		{&row.Authors, authors},
		{&row.Links, nonNil(p.Links)},
		{&row.Concepts, nonNil(p.Concepts)},
		{&row.Categories, nonNil(p.Categories)},
		{&row.TwoDimEmbedding, nonNil(p.TwoDimEmbedding)},
		{&row.Embedding, nonNil(p.Embedding)},
	}
	for _, c := range cols {
		data, err := json.Marshal(c.v)
		if err != nil {
			return paperRow{}, err
		}
		*c.dst = string(data)
	}
	return row, nil
}

func nonNil[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func (r *paperRow) toDomain(logger *zap.Logger) dompaper.Paper {
	p := dompaper.Paper{
		ID:           r.PaperID,
		OriginID:     r.OriginID,
		Title:        r.Title,
		Journal:      r.Journal,
		Published:    r.Published.UTC(),
		Summary:      r.Summary,
		ShortSummary: r.ShortSummary,
	}

	var authors []authorJSON
	r.decode("authors", r.Authors, &authors, logger)
	for _, a := range authors {
		p.Authors = append(p.Authors, a.Name)
	}
	r.decode("links", r.Links, &p.Links, logger)
	r.decode("concepts", r.Concepts, &p.Concepts, logger)
	r.decode("categories", r.Categories, &p.Categories, logger)
	r.decode("two_dim_embedding", r.TwoDimEmbedding, &p.TwoDimEmbedding, logger)
	r.decode("embedding", r.Embedding, &p.Embedding, logger)
	return p
}

// decode leaves dst untouched on bad data; one bad column must not hide the paper.
func (r *paperRow) decode(column, raw string, dst any, logger *zap.Logger) {
	if raw == "" {
		return
	}
	if err := json.Unmarshal([]byte(raw), dst); err != nil {
		logger.Warn("Failed to decode paper column",
			zap.Uint64("paper_id", r.PaperID), zap.String("column", column), zap.Error(err))
	}
}
