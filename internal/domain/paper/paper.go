// Package paper holds the read-only paper catalog entity.
package paper

import "time"

// Link is one external resource attached to a paper.
type Link struct {
	Type string `json:"type"`
	Href string `json:"href"`
}

// Paper is a catalog entry. Shared between concurrent requests, never mutated.
type Paper struct {
	ID              uint64
	OriginID        string
	Title           string
	Journal         string
	Published       time.Time
	Summary         string
	ShortSummary    string
	Authors         []string
	Links           []Link
	Concepts        []string
	Categories      []string
	TwoDimEmbedding []float64
	Embedding       []float32
}

// PDFURL returns the first application/pdf link, or "".
func (p *Paper) PDFURL() string {
	for _, l := range p.Links {
		if l.Type == "application/pdf" {
			return l.Href
		}
	}
	return ""
}

// Scored attaches a per-request similarity score to a paper.
// Score is nil when the paper was not scored.
type Scored struct {
	Paper *Paper
	Score *float64
}
