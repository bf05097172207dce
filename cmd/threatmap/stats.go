package main

import (
	"fmt"
	"io"
	"sort"

	json "github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/vanderheijden86/threatmap/pkg/analysis"
	"github.com/vanderheijden86/threatmap/pkg/export"
	"github.com/vanderheijden86/threatmap/pkg/metrics"
	"github.com/vanderheijden86/threatmap/pkg/model"
)

type statsFlags struct {
	top     int
	timings bool
	json    bool
}

// statsReport is the --json form of the stats command.
type statsReport struct {
	Source     string                `json:"source"`
	Nodes      int                   `json:"nodes"`
	Edges      int                   `json:"edges"`
	Focuses    int                   `json:"focuses"`
	Categories []categoryCount       `json:"categories"`
	Top        []rankedNode          `json:"top"`
	Timings    []metrics.TimingStats `json:"timings,omitempty"`
}

type categoryCount struct {
	Category string `json:"category"`
	Count    int    `json:"count"`
}

type rankedNode struct {
	ID          string  `json:"id"`
	Label       string  `json:"label"`
	Category    string  `json:"category"`
	PageRank    float64 `json:"pagerank"`
	Betweenness float64 `json:"betweenness"`
	OutDegree   int     `json:"out_degree"`
}

func newStatsCmd(a *app) *cobra.Command {
	var f statsFlags
	cmd := &cobra.Command{
		Use:   "stats",
		Short: "Summarize the dataset and its most central nodes",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			ds, src, err := a.loadDataset(cmd.Context())
			if err != nil {
				return err
			}
			report := buildStats(ds, f.top)
			report.Source = src.Path
			if f.timings {
				report.Timings = metrics.AllTimingStats()
			}
			if f.json {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			printStats(cmd.OutOrStdout(), report)
			return nil
		},
	}
	cmd.Flags().IntVarP(&f.top, "top", "n", 10, "Number of central nodes to list (0 for all)")
	cmd.Flags().BoolVar(&f.timings, "timings", false, "Include load and layout timings")
	cmd.Flags().BoolVar(&f.json, "json", false, "Print JSON instead of text")
	return cmd
}

func buildStats(ds *model.Dataset, top int) statsReport {
	report := statsReport{
		Nodes:   len(ds.Nodes),
		Edges:   len(ds.Edges),
		Focuses: len(export.Focuses(ds)),
	}

	counts := make(map[model.Category]int)
	for _, n := range ds.Nodes {
		counts[n.Category]++
	}
	for _, c := range model.Categories {
		if counts[c] > 0 {
			report.Categories = append(report.Categories, categoryCount{string(c), counts[c]})
			delete(counts, c)
		}
	}
	var other []categoryCount
	for c, n := range counts {
		name := string(c)
		if name == "" {
			name = "uncategorized"
		}
		other = append(other, categoryCount{name, n})
	}
	sort.Slice(other, func(i, j int) bool { return other[i].Category < other[j].Category })
	report.Categories = append(report.Categories, other...)

	for _, r := range analysis.TopByPageRank(ds, top) {
		report.Top = append(report.Top, rankedNode{
			ID:          r.Node.ID,
			Label:       r.Node.DisplayLabel(),
			Category:    string(r.Node.Category),
			PageRank:    r.Node.Metrics.PageRank,
			Betweenness: r.Node.Metrics.Betweenness,
			OutDegree:   r.Node.Metrics.OutDegree,
		})
	}
	return report
}

func printStats(w io.Writer, r statsReport) {
	brand.Fprintln(w, r.Source)
	fmt.Fprintf(w, "  %d nodes, %d edges, %d focus candidates\n", r.Nodes, r.Edges, r.Focuses)

	if len(r.Categories) > 0 {
		fmt.Fprintln(w)
		brand.Fprintln(w, "Categories")
		for _, c := range r.Categories {
			fmt.Fprintf(w, "  %-14s %d\n", c.Category, c.Count)
		}
	}

	if len(r.Top) > 0 {
		fmt.Fprintln(w)
		brand.Fprintln(w, "Most central")
		subtle.Fprintf(w, "  %-4s %-32s %-14s %9s %11s %4s\n", "#", "node", "category", "pagerank", "betweenness", "out")
		for i, n := range r.Top {
			fmt.Fprintf(w, "  %-4d %-32s %-14s %9.4f %11.4f %4d\n",
				i+1, truncate(n.Label, 32), n.Category, n.PageRank, n.Betweenness, n.OutDegree)
		}
	}

	if len(r.Timings) > 0 {
		fmt.Fprintln(w)
		brand.Fprintln(w, "Timings")
		for _, t := range r.Timings {
			fmt.Fprintf(w, "  %-22s %6d calls  avg %8.3fms  max %8.3fms\n", t.Name, t.Count, t.AvgMs, t.MaxMs)
		}
	}
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n-1]) + "…"
}
