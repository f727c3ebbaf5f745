// Package aggregate folds feedback rows into the per-item numbers shown on
// dashboards and public results pages. Nothing here is persisted; metrics are
// recomputed from the rows on every read.
package aggregate

import (
	"math"
	"sort"

	"github.com/AnshRaj112/talkback-backend/internal/models"
	"github.com/google/uuid"
)

// RecentCommentLimit bounds Metrics.LastComments.
const RecentCommentLimit = 5

type Metrics struct {
	Count        int              `json:"count"`
	Avg          float64          `json:"avg"`
	LastComments []string         `json:"last_comments"`
	CommentCount int              `json:"comment_count"`
	Detailed     *DetailedMetrics `json:"detailed,omitempty"`
}

// DetailedMetrics holds the sub-rating means and a histogram of the rounded
// per-response average. Distribution[0] counts 1-star responses.
type DetailedMetrics struct {
	Responses    int     `json:"responses"`
	Originality  float64 `json:"originality"`
	Usefulness   float64 `json:"usefulness"`
	Engagement   float64 `json:"engagement"`
	Distribution [5]int  `json:"distribution"`
}

// Compute builds the metrics for one item's rows. Rows may come in any order.
func Compute(rows []models.Feedback, mode models.RatingMode) Metrics {
	m := Metrics{LastComments: []string{}}

	sorted := NewestFirst(rows)
	sum := 0
	for _, fb := range sorted {
		sum += fb.Rating
		if fb.Comment != nil && *fb.Comment != "" {
			m.CommentCount++
			if len(m.LastComments) < RecentCommentLimit {
				m.LastComments = append(m.LastComments, *fb.Comment)
			}
		}
	}
	m.Count = len(sorted)
	m.Avg = Mean(sum, m.Count)

	if mode == models.RatingDetailed {
		m.Detailed = computeDetailed(sorted)
	}
	return m
}

// ComputeAll computes metrics for every item, using an empty row set for
// items with no responses.
func ComputeAll(items []models.Item, rows map[uuid.UUID][]models.Feedback) map[uuid.UUID]Metrics {
	out := make(map[uuid.UUID]Metrics, len(items))
	for _, item := range items {
		out[item.ID] = Compute(rows[item.ID], item.RatingMode)
	}
	return out
}

func computeDetailed(rows []models.Feedback) *DetailedMetrics {
	d := &DetailedMetrics{}
	var orig, useful, engage int
	for _, fb := range rows {
		if fb.Originality == nil || fb.Usefulness == nil || fb.Engagement == nil {
			continue
		}
		d.Responses++
		orig += *fb.Originality
		useful += *fb.Usefulness
		engage += *fb.Engagement

		bin := OverallRating(*fb.Originality, *fb.Usefulness, *fb.Engagement)
		d.Distribution[bin-1]++
	}
	d.Originality = Mean(orig, d.Responses)
	d.Usefulness = Mean(useful, d.Responses)
	d.Engagement = Mean(engage, d.Responses)
	return d
}

// OverallRating rounds the mean of the three sub-ratings half up and clamps
// the result to 1..5.
func OverallRating(originality, usefulness, engagement int) int {
	avg := float64(originality+usefulness+engagement) / 3
	r := int(math.Floor(avg + 0.5))
	if r < 1 {
		return 1
	}
	if r > 5 {
		return 5
	}
	return r
}

// Mean returns sum/count, or 0 when count is 0.
func Mean(sum, count int) float64 {
	if count == 0 {
		return 0
	}
	return float64(sum) / float64(count)
}

// NewestFirst returns a copy of rows ordered by creation time, newest first.
func NewestFirst(rows []models.Feedback) []models.Feedback {
	out := make([]models.Feedback, len(rows))
	copy(out, rows)
	sort.SliceStable(out, func(i, j int) bool {
		return out[i].CreatedAt.After(out[j].CreatedAt)
	})
	return out
}
