// Package fingerprint derives ETags from the state that determines a response body.
package fingerprint

import (
	"crypto/sha256"
	"encoding/hex"
	"slices"
	"strconv"
	"strings"

	"github.com/PoYaSharonLin/Sparko-api/internal/domain/job"
)

// JobTag fingerprints a job status response:
// job_id|status|updated_at(unix seconds)|vector_x|vector_y|embedding_dim.
// Fields a job does not have yet contribute 0.
func JobTag(j job.Job) string {
	var x, y float64
	if res, ok := j.Result(); ok {
		x, y = res.Vector2D.X, res.Vector2D.Y
	}
	return hash(strings.Join([]string{
		j.ID(),
		string(j.Status()),
		strconv.FormatInt(j.UpdatedAt().Unix(), 10),
		formatFloat(x),
		formatFloat(y),
		strconv.Itoa(j.EmbeddingDim()),
	}, "|"))
}

// ListTag fingerprints a paper list response: sorted(journals)|page|request_id.
func ListTag(journals []string, page int, requestID string) string {
	sorted := slices.Clone(journals)
	slices.Sort(sorted)
	return hash(strings.Join([]string{
		strings.Join(sorted, ","),
		strconv.Itoa(page),
		requestID,
	}, "|"))
}

// Quote renders a tag as an ETag header value.
func Quote(tag string) string { return `"` + tag + `"` }

// Matches reports whether an If-None-Match header value names tag.
// Accepts a comma-separated list, weak validators and "*".
func Matches(ifNoneMatch, tag string) bool {
	if ifNoneMatch == "" {
		return false
	}
	for _, candidate := range strings.Split(ifNoneMatch, ",") {
		candidate = strings.TrimSpace(candidate)
		if candidate == "*" {
			return true
		}
		candidate = strings.TrimPrefix(candidate, "W/")
		if candidate == Quote(tag) {
			return true
		}
	}
	return false
}

func hash(s string) string {
	h := sha256.Sum256([]byte(s))
	return hex.EncodeToString(h[:])
}

func formatFloat(f float64) string {
	return strconv.FormatFloat(f, 'g', -1, 64)
}
