// Package report renders run results as terminal tables and writes
// them to a JSON results file, with optional S3 upload for archiving
// runs from CI.
package report

import (
	"fmt"
	"sort"
	"strconv"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"

	"github.com/raglens/raglens/pkg/types"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	okStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	warnStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	failStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
)

// BenchmarkTable renders benchmark results as a table. Failed and
// skipped tuples keep their rows with an explicit status marker, so
// missing data is never mistaken for success.
func BenchmarkTable(results []types.BenchmarkResult) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("PROVIDER", "MODEL", "BATCH", "STATUS", "P50", "P95", "P99", "EMB/S", "OK/TOTAL")

	for _, r := range results {
		t.Row(
			r.Provider,
			r.Model,
			strconv.Itoa(r.BatchSize),
			statusCell(r),
			durationCell(r, r.LatencyP50),
			durationCell(r, r.LatencyP95),
			durationCell(r, r.LatencyP99),
			throughputCell(r),
			fmt.Sprintf("%d/%d", r.Successes, r.Samples),
		)
	}
	return t.Render()
}

func statusCell(r types.BenchmarkResult) string {
	switch r.Status {
	case types.StatusOK:
		return okStyle.Render("✓ ok")
	case types.StatusPartial:
		return warnStyle.Render("~ partial")
	case types.StatusSkipped:
		return warnStyle.Render("- skipped")
	default:
		return failStyle.Render("❌ failed")
	}
}

// durationCell renders a latency field, or a dash for tuples that have
// no measurable latencies. Percentiles over zero successes do not
// exist and are never shown as numbers.
func durationCell(r types.BenchmarkResult, d time.Duration) string {
	if r.Failed() || (d == 0 && r.CacheHits == r.Successes) {
		return "-"
	}
	return fmt.Sprintf("%.0fms", float64(d.Microseconds())/1000)
}

func throughputCell(r types.BenchmarkResult) string {
	if r.Failed() || r.Throughput == 0 {
		return "-"
	}
	return fmt.Sprintf("%.1f", r.Throughput)
}

// RecallTable renders a recall report as a table with one row per K.
func RecallTable(report *types.RecallReport) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("K", "RECALL", "HITS", "QUERIES")

	ks := make([]int, 0, len(report.Recall))
	for k := range report.Recall {
		ks = append(ks, k)
	}
	sort.Ints(ks)

	for _, k := range ks {
		recall := report.Recall[k]
		hits := int(recall*float64(report.Queries) + 0.5)
		t.Row(
			strconv.Itoa(k),
			fmt.Sprintf("%.3f", recall),
			strconv.Itoa(hits),
			strconv.Itoa(report.Queries),
		)
	}

	header := fmt.Sprintf("queries=%s index=%s backend=%s search=%s",
		report.QueryVersion, report.IndexVersion, report.Backend, report.SearchType)
	return header + "\n" + t.Render()
}

// DatasetTable renders the dataset listing.
func DatasetTable(names, descriptions []string) string {
	t := table.New().
		Border(lipgloss.RoundedBorder()).
		StyleFunc(func(row, col int) lipgloss.Style {
			if row == 0 {
				return headerStyle
			}
			return lipgloss.NewStyle().Padding(0, 1)
		}).
		Headers("DATASET", "DESCRIPTION")

	for i := range names {
		t.Row(names[i], descriptions[i])
	}
	return t.Render()
}
