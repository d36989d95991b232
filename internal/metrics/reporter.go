// Package metrics computes usage aggregations over the query log: daily
// volume, latency, success rate, and the most-asked questions and most-cited
// documents. These back the reporting API endpoints.
package metrics

import (
	"context"
	"fmt"
	"sort"
	"time"

	"github.com/docstack/docqa/internal/querylog"
)

// defaultWindowDays is the reporting window when the caller passes zero.
const defaultWindowDays = 30

// DayCount is the query volume for one calendar day (UTC).
type DayCount struct {
	// Day is the date in YYYY-MM-DD form.
	Day string `json:"day"`
	// Count is the number of queries logged that day.
	Count int `json:"count"`
}

// QueryCount is one question and how often it was asked.
type QueryCount struct {
	// QueryText is the normalized question text.
	QueryText string `json:"query_text"`
	// Count is how many times it was asked in the window.
	Count int `json:"count"`
}

// DocumentCount is one document and how often its chunks were cited.
type DocumentCount struct {
	// DocumentID identifies the document.
	DocumentID string `json:"document_id"`
	// Count is how many answers cited it in the window.
	Count int `json:"count"`
}

// Summary is the combined usage report for a window.
type Summary struct {
	// WindowDays is the length of the reporting window.
	WindowDays int `json:"window_days"`
	// TotalQueries is the number of queries logged in the window.
	TotalQueries int `json:"total_queries"`
	// SuccessRate is the fraction of queries with success status (0–1).
	SuccessRate float64 `json:"success_rate"`
	// AvgLatency is the mean end-to-end latency in seconds.
	AvgLatency float64 `json:"avg_latency"`
	// DailyVolume is the per-day query counts, oldest first.
	DailyVolume []DayCount `json:"daily_volume"`
	// TopQueries are the most-asked questions, most frequent first.
	TopQueries []QueryCount `json:"top_queries"`
	// TopDocuments are the most-cited documents, most cited first.
	TopDocuments []DocumentCount `json:"top_documents"`
}

// Reporter computes usage reports from the query log.
type Reporter struct {
	log *querylog.Store
}

// NewReporter returns a Reporter over the given query log.
func NewReporter(log *querylog.Store) *Reporter {
	return &Reporter{log: log}
}

// Summary builds the combined usage report for the last windowDays days.
// A non-positive window defaults to 30 days.
func (r *Reporter) Summary(ctx context.Context, windowDays, topN int) (*Summary, error) {
	if windowDays <= 0 {
		windowDays = defaultWindowDays
	}
	if topN <= 0 {
		topN = 10
	}

	from := time.Now().UTC().AddDate(0, 0, -windowDays)
	entries, err := r.log.Since(ctx, from)
	if err != nil {
		return nil, fmt.Errorf("metrics: load window: %w", err)
	}

	s := &Summary{
		WindowDays:   windowDays,
		TotalQueries: len(entries),
		DailyVolume:  dailyVolume(entries),
		TopQueries:   topQueries(entries, topN),
		TopDocuments: topDocuments(entries, topN),
	}

	if len(entries) > 0 {
		var ok int
		var latency float64
		for _, e := range entries {
			if e.Status == querylog.StatusSuccess {
				ok++
			}
			latency += e.Latency
		}
		s.SuccessRate = float64(ok) / float64(len(entries))
		s.AvgLatency = latency / float64(len(entries))
	}
	return s, nil
}

// dailyVolume buckets entries by UTC calendar day, oldest first.
func dailyVolume(entries []querylog.Entry) []DayCount {
	byDay := make(map[string]int)
	for _, e := range entries {
		byDay[e.CreatedAt.UTC().Format("2006-01-02")]++
	}

	days := make([]string, 0, len(byDay))
	for d := range byDay {
		days = append(days, d)
	}
	sort.Strings(days)

	out := make([]DayCount, 0, len(days))
	for _, d := range days {
		out = append(out, DayCount{Day: d, Count: byDay[d]})
	}
	return out
}

// topQueries returns the n most-asked questions. Ties break alphabetically
// so results are deterministic.
func topQueries(entries []querylog.Entry, n int) []QueryCount {
	byText := make(map[string]int)
	for _, e := range entries {
		byText[e.QueryText]++
	}

	texts := make([]string, 0, len(byText))
	for t := range byText {
		texts = append(texts, t)
	}
	sort.Slice(texts, func(i, j int) bool {
		if byText[texts[i]] != byText[texts[j]] {
			return byText[texts[i]] > byText[texts[j]]
		}
		return texts[i] < texts[j]
	})
	if len(texts) > n {
		texts = texts[:n]
	}

	out := make([]QueryCount, 0, len(texts))
	for _, t := range texts {
		out = append(out, QueryCount{QueryText: t, Count: byText[t]})
	}
	return out
}

// topDocuments returns the n most-cited documents across all answers.
func topDocuments(entries []querylog.Entry, n int) []DocumentCount {
	byDoc := make(map[string]int)
	for _, e := range entries {
		for _, id := range e.DocumentIDs {
			byDoc[id]++
		}
	}

	ids := make([]string, 0, len(byDoc))
	for id := range byDoc {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool {
		if byDoc[ids[i]] != byDoc[ids[j]] {
			return byDoc[ids[i]] > byDoc[ids[j]]
		}
		return ids[i] < ids[j]
	})
	if len(ids) > n {
		ids = ids[:n]
	}

	out := make([]DocumentCount, 0, len(ids))
	for _, id := range ids {
		out = append(out, DocumentCount{DocumentID: id, Count: byDoc[id]})
	}
	return out
}
