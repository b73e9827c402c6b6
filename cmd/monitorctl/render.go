package main

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"
	"time"

	"github.com/charmbracelet/lipgloss"

	"github.com/lucaslnrr/v0-response-monitor/internal/scoring"
	"github.com/lucaslnrr/v0-response-monitor/internal/service"
	"github.com/lucaslnrr/v0-response-monitor/internal/watch"
)

var (
	headerStyle = lipgloss.NewStyle().Bold(true)
	mutedStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))

	severityStyles = map[scoring.Severity]lipgloss.Style{
		scoring.SeverityBest:    lipgloss.NewStyle().Foreground(lipgloss.Color("34")),
		scoring.SeverityGood:    lipgloss.NewStyle().Foreground(lipgloss.Color("220")),
		scoring.SeverityWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("208")),
		scoring.SeverityWorst:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
	}
)

func colored(sev scoring.Severity, text string) string {
	if st, ok := severityStyles[sev]; ok {
		return st.Render(text)
	}
	return text
}

func tierLabel(t *service.TierView) string {
	if t == nil {
		return "-"
	}
	return t.Label
}

func renderDashboard(w io.Writer, d service.Dashboard) {
	title := "Monitor"
	if d.Link.Company != "" {
		title += " · " + d.Link.Company
	}
	fmt.Fprintln(w, headerStyle.Render(title))
	fmt.Fprintln(w, mutedStyle.Render(fmt.Sprintf("token %s… generated %s",
		shortHash(d.TokenHash), d.GeneratedAt.Format(time.DateTime))))

	usage := fmt.Sprintf("%d", d.Usage.Count)
	if d.Usage.Max != nil {
		usage = fmt.Sprintf("%d/%d", d.Usage.Count, *d.Usage.Max)
	}
	fmt.Fprintf(w, "\nResponses: %d  Usage: %s\n", d.TotalResponses, usage)
	fmt.Fprintf(w, "Overall: %s (%s)\n",
		colored(d.Overall.Severity, fmt.Sprintf("%.2f", d.Overall.Average)), tierLabel(d.Overall.Tier))

	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "\nSCALE\tAVERAGE\tANSWERS\tCLASSIFICATION")
	for _, s := range d.Scales {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%s\n", s.Scale, s.WeightedAverage, s.Count, tierLabel(s.Tier))
	}
	fmt.Fprintln(tw, "\nFACTOR\tAVERAGE\tANSWERS\tCLASSIFICATION")
	for _, f := range d.Factors {
		fmt.Fprintf(tw, "%s\t%.2f\t%d\t%s\n", f.Factor, f.WeightedAverage, f.Count, tierLabel(f.Tier))
	}
	_ = tw.Flush()

	if len(d.RiskDistribution) > 0 {
		fmt.Fprintln(w, "\nRisk distribution:")
		for _, r := range d.RiskDistribution {
			fmt.Fprintf(w, "  %-10s %3d  %5.1f%%\n", r.RiskLevel, r.Count, r.Share*100)
		}
	}

	if len(d.Evolution) > 0 {
		fmt.Fprintln(w, "\nDaily average by factor:")
		for _, e := range d.Evolution {
			fmt.Fprintf(w, "  %s  %-24s %s\n", e.Date, e.Factor,
				colored(e.Severity, fmt.Sprintf("%.2f", e.Average)))
		}
	}

	if len(d.RecentResponses) > 0 {
		fmt.Fprintln(w, "\nRecent responses:")
		for _, r := range d.RecentResponses {
			score := "-"
			if r.Score != nil {
				score = fmt.Sprintf("%.2f", *r.Score)
				if r.Severity != nil {
					score = colored(*r.Severity, score)
				}
			}
			fmt.Fprintf(w, "  %s  %s  %s\n", r.CreatedAt, score, tierLabel(r.Tier))
		}
	}
}

func renderState(w io.Writer, s watch.State) {
	ts := s.UpdatedAt.Format(time.TimeOnly)
	switch s.Status {
	case watch.StatusSuccess:
		d := s.Dashboard
		fmt.Fprintf(w, "%s  responses=%d overall=%s (%s)\n", ts, d.TotalResponses,
			colored(d.Overall.Severity, fmt.Sprintf("%.2f", d.Overall.Average)), tierLabel(d.Overall.Tier))
	case watch.StatusError:
		fmt.Fprintf(w, "%s  error: %v\n", ts, s.Err)
	}
}

func renderLegend(w io.Writer, tables []scoring.LegendTable) {
	for i, t := range tables {
		if i > 0 {
			fmt.Fprintln(w)
		}
		fmt.Fprintln(w, headerStyle.Render(fmt.Sprintf("%s (%s)", t.Name, t.Purpose)))
		for j, e := range t.Entries {
			label := e.Label
			if label == "" {
				label = e.Key
			}
			// The band above owns its lower bound only when that bound is inclusive.
			maxInclusive := j > 0 && !t.Entries[j-1].MinInclusive
			fmt.Fprintf(w, "  %-22s %s\n", label, bounds(e, maxInclusive))
		}
	}
}

func bounds(e scoring.LegendEntry, maxInclusive bool) string {
	var parts []string
	if e.Min != nil {
		op := ">"
		if e.MinInclusive {
			op = ">="
		}
		parts = append(parts, fmt.Sprintf("%s %.2f", op, *e.Min))
	}
	if e.Max != nil {
		op := "<"
		if maxInclusive {
			op = "<="
		}
		parts = append(parts, fmt.Sprintf("%s %.2f", op, *e.Max))
	}
	return strings.Join(parts, " and ")
}

func shortHash(h string) string {
	if len(h) > 8 {
		return h[:8]
	}
	return h
}
