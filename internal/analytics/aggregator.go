// Package analytics turns embedded click logs into the report shapes served
// by the API: per-link totals, weekday histograms and attribution
// breakdowns.
package analytics

import (
	"sort"
	"time"

	"tinylinker/internal/domain"
)

// UnknownTarget buckets clicks whose recorded value is empty or was never
// configured on the link.
const UnknownTarget = "unknown"

// LinkTotal is one row of a per-account link report.
type LinkTotal struct {
	LinkID      string `json:"link_id"`
	Title       string `json:"title"`
	OriginalURL string `json:"original_url"`
	TotalClicks int    `json:"total_clicks"`
}

// TotalsByLink reports the click count of each link, preserving input order.
func TotalsByLink(links []domain.Link) []LinkTotal {
	totals := make([]LinkTotal, 0, len(links))
	for _, link := range links {
		totals = append(totals, LinkTotal{
			LinkID:      link.ID,
			Title:       link.Title,
			OriginalURL: link.OriginalURL,
			TotalClicks: len(link.Clicks),
		})
	}
	return totals
}

// SumTotals adds up the click counts of all links.
func SumTotals(links []domain.Link) int {
	total := 0
	for _, link := range links {
		total += len(link.Clicks)
	}
	return total
}

// WeekdayCount is a histogram bucket for one day of the week. Day is 1 for
// Sunday through 7 for Saturday.
type WeekdayCount struct {
	Day   int    `json:"day"`
	Name  string `json:"name"`
	Count int    `json:"count"`
}

// ByDayOfWeek buckets every click of every link by weekday. Days with no
// clicks are omitted; rows come back in ascending day order.
func ByDayOfWeek(links []domain.Link) []WeekdayCount {
	counts := make(map[int]int)
	for _, link := range links {
		for _, click := range link.Clicks {
			counts[int(click.InsertedAt.Weekday())+1]++
		}
	}

	rows := make([]WeekdayCount, 0, len(counts))
	for day := 1; day <= 7; day++ {
		n, ok := counts[day]
		if !ok {
			continue
		}
		rows = append(rows, WeekdayCount{
			Day:   day,
			Name:  time.Weekday(day - 1).String(),
			Count: n,
		})
	}
	return rows
}

// TargetBreakdown is one attribution row of a single link's report.
type TargetBreakdown struct {
	Target string `json:"target"`
	Count  int    `json:"count"`
}

// ByTarget breaks one link's clicks down by recorded target value. Clicks
// with no value fall into the UnknownTarget bucket. Every value that was
// actually recorded appears, configured on the link or not; rows are sorted
// by target for stable output.
func ByTarget(link *domain.Link) []TargetBreakdown {
	counts := make(map[string]int)
	for _, click := range link.Clicks {
		key := click.TargetParamValue
		if key == "" {
			key = UnknownTarget
		}
		counts[key]++
	}

	rows := make([]TargetBreakdown, 0, len(counts))
	for target, n := range counts {
		rows = append(rows, TargetBreakdown{Target: target, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Target < rows[j].Target })
	return rows
}

// SourceCount is one row of the cross-link source report.
type SourceCount struct {
	Source string `json:"source"`
	Count  int    `json:"count"`
}

// SourceKeyFunc derives the grouping key of a click for BySource. Clicks
// mapping to "" are skipped.
type SourceKeyFunc func(domain.Click) string

// TargetValueSource groups clicks by their recorded target value.
func TargetValueSource(click domain.Click) string {
	return click.TargetParamValue
}

// BySource groups every click of every link by the key keyFn derives,
// sorted by source. A nil keyFn defaults to TargetValueSource.
func BySource(links []domain.Link, keyFn SourceKeyFunc) []SourceCount {
	if keyFn == nil {
		keyFn = TargetValueSource
	}

	counts := make(map[string]int)
	for _, link := range links {
		for _, click := range link.Clicks {
			key := keyFn(click)
			if key == "" {
				continue
			}
			counts[key]++
		}
	}

	rows := make([]SourceCount, 0, len(counts))
	for source, n := range counts {
		rows = append(rows, SourceCount{Source: source, Count: n})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Source < rows[j].Source })
	return rows
}
