package chi

import (
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/fingerprint"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/paper"
	"github.com/PoYaSharonLin/Sparko-api/internal/domain/ranking"
	logpkg "github.com/PoYaSharonLin/Sparko-api/internal/logger"
	papersuc "github.com/PoYaSharonLin/Sparko-api/internal/usecase/papers"
)

const dateLayout = "2006-01-02"

// listPapersQuery is the raw query string of GET /api/v1/papers.
type listPapersQuery struct {
	Journals  []string `query:"journals" validate:"max=100,dive,max=255"`
	Page      string   `query:"page" validate:"omitempty,number,max=9"`
	MinDate   string   `query:"min_date" validate:"omitempty,datetime=2006-01-02"`
	MaxDate   string   `query:"max_date" validate:"omitempty,datetime=2006-01-02"`
	RequestID string   `query:"request_id" validate:"omitempty,max=128"`
	TopN      string   `query:"top_n" validate:"max=32"`
}

type paperData struct {
	PaperID         uint64       `json:"paper_id"`
	OriginID        string       `json:"origin_id"`
	Title           string       `json:"title"`
	Journal         string       `json:"journal"`
	Published       string       `json:"published"`
	Summary         string       `json:"summary"`
	ShortSummary    string       `json:"short_summary"`
	Authors         []string     `json:"authors"`
	Links           []paper.Link `json:"links"`
	PDFURL          string       `json:"pdf_url,omitempty"`
	Concepts        []string     `json:"concepts"`
	Categories      []string     `json:"categories"`
	TwoDimEmbedding []float64    `json:"two_dim_embedding"`
	SimilarityScore *float64     `json:"similarity_score"`
}

type paginationData struct {
	Mode       string `json:"mode"`
	Current    int    `json:"current"`
	TotalPages int    `json:"total_pages"`
	TotalCount int    `json:"total_count"`
	PrevPage   *int   `json:"prev_page"`
	NextPage   *int   `json:"next_page"`
}

type papersPageData struct {
	ResearchInterestTerm *string        `json:"research_interest_term"`
	ResearchInterest2D   []float64      `json:"research_interest_2d"`
	Journals             []string       `json:"journals"`
	Papers               []paperData    `json:"papers"`
	Pagination           paginationData `json:"pagination"`
}

func newQueryValidator() *validator.Validate {
	v := validator.New(validator.WithRequiredStructEnabled())
	v.RegisterTagNameFunc(func(f reflect.StructField) string {
		if name := f.Tag.Get("query"); name != "" {
			return name
		}
		return f.Name
	})
	return v
}

// ListPapers handles GET /api/v1/papers.
func (s *Server) ListPapers(w http.ResponseWriter, r *http.Request) {
	req, err := s.parseListPapers(r.URL.Query())
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}

	query, err := s.papers.Resolve(r.Context(), req)
	if err != nil {
		s.respondError(w, err, "Failed to list papers")
		return
	}

	// The tag depends on the request only, so a match skips the catalog scan.
	tag := fingerprint.ListTag(req.Journals, req.Page, req.RequestID)
	if fingerprint.Matches(r.Header.Get("If-None-Match"), tag) {
		setCacheHeaders(w, fingerprint.Quote(tag), s.papersMaxAge)
		writeEnvelope(w, http.StatusNotModified, "Not Modified", nil)
		return
	}

	res, err := s.papers.Rank(r.Context(), query)
	if err != nil {
		s.respondError(w, err, "Failed to list papers")
		return
	}
	setCacheHeaders(w, fingerprint.Quote(tag), s.papersMaxAge)

	data := papersPageData{
		Journals:   req.Journals,
		Papers:     make([]paperData, len(res.Ranked.Items)),
		Pagination: paginationFromDomain(res.Ranked.Pagination),
	}
	if res.Job != nil {
		term := res.Job.Term()
		data.ResearchInterestTerm = &term
		if c, ok := res.Job.Result(); ok {
			data.ResearchInterest2D = c.Vector2D.Slice()
		}
	}
	for i, item := range res.Ranked.Items {
		data.Papers[i] = paperFromDomain(item)
	}

	logTopPapers(r, data.Papers)
	writeEnvelope(w, http.StatusOK, "Papers retrieved successfully", data)
}

// parseListPapers validates the query. journals may repeat (journals,
// journals[]) and each value may be comma-separated. job_id and n are
// accepted as aliases of request_id and top_n.
func (s *Server) parseListPapers(q url.Values) (papersuc.ListRequest, error) {
	raw := listPapersQuery{
		Journals:  splitJournals(append(q["journals"], q["journals[]"]...)),
		Page:      strings.TrimSpace(q.Get("page")),
		MinDate:   strings.TrimSpace(q.Get("min_date")),
		MaxDate:   strings.TrimSpace(q.Get("max_date")),
		RequestID: firstNonEmpty(q.Get("request_id"), q.Get("job_id")),
		TopN:      firstNonEmpty(q.Get("top_n"), q.Get("n")),
	}
	if err := s.validate.Struct(raw); err != nil {
		return papersuc.ListRequest{}, queryError(err)
	}

	req := papersuc.ListRequest{
		Journals:  raw.Journals,
		Page:      1,
		RequestID: raw.RequestID,
		TopN:      raw.TopN,
	}
	if raw.Page != "" {
		// digits only, at most 9 of them
		req.Page, _ = strconv.Atoi(raw.Page)
		if req.Page < 1 {
			req.Page = 1
		}
	}
	if raw.MinDate != "" {
		t, _ := time.Parse(dateLayout, raw.MinDate)
		req.MinDate = &t
	}
	if raw.MaxDate != "" {
		// inclusive: the whole max day
		t, _ := time.Parse(dateLayout, raw.MaxDate)
		t = t.Add(24*time.Hour - time.Nanosecond)
		req.MaxDate = &t
	}
	if req.MinDate != nil && req.MaxDate != nil && req.MinDate.After(*req.MaxDate) {
		return papersuc.ListRequest{}, errors.New("min_date must not be after max_date")
	}
	return req, nil
}

func queryError(err error) error {
	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) && len(verrs) > 0 {
		field := verrs[0].Field()
		if i := strings.IndexByte(field, '['); i > 0 {
			field = field[:i]
		}
		return fmt.Errorf("invalid %s", field)
	}
	return errors.New("invalid request")
}

func splitJournals(values []string) []string {
	seen := make(map[string]struct{})
	out := []string{}
	for _, v := range values {
		for _, j := range strings.Split(v, ",") {
			j = strings.TrimSpace(j)
			if j == "" {
				continue
			}
			if _, dup := seen[j]; dup {
				continue
			}
			seen[j] = struct{}{}
			out = append(out, j)
		}
	}
	return out
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v = strings.TrimSpace(v); v != "" {
			return v
		}
	}
	return ""
}

func paperFromDomain(item paper.Scored) paperData {
	p := item.Paper
	d := paperData{
		PaperID:         p.ID,
		OriginID:        p.OriginID,
		Title:           p.Title,
		Journal:         p.Journal,
		Summary:         p.Summary,
		ShortSummary:    p.ShortSummary,
		Authors:         orEmpty(p.Authors),
		Links:           orEmpty(p.Links),
		PDFURL:          p.PDFURL(),
		Concepts:        orEmpty(p.Concepts),
		Categories:      orEmpty(p.Categories),
		TwoDimEmbedding: orEmpty(p.TwoDimEmbedding),
		SimilarityScore: item.Score,
	}
	if !p.Published.IsZero() {
		d.Published = p.Published.Format(dateLayout)
	}
	return d
}

func paginationFromDomain(p ranking.Pagination) paginationData {
	return paginationData{
		Mode:       string(p.Mode),
		Current:    p.Current,
		TotalPages: p.TotalPages,
		TotalCount: p.TotalCount,
		PrevPage:   p.PrevPage,
		NextPage:   p.NextPage,
	}
}

func orEmpty[T any](s []T) []T {
	if s == nil {
		return []T{}
	}
	return s
}

func logTopPapers(r *http.Request, papers []paperData) {
	l := logpkg.FromContext(r.Context())
	if ce := l.Check(zap.DebugLevel, "Papers returned"); ce != nil {
		top := make([]string, 0, 5)
		for _, p := range papers[:min(5, len(papers))] {
			score := "nil"
			if p.SimilarityScore != nil {
				score = strconv.FormatFloat(*p.SimilarityScore, 'f', 4, 64)
			}
			top = append(top, p.Title+" ("+score+")")
		}
		ce.Write(zap.Strings("top", top))
	}
}
