package tui

import (
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/olekukonko/tablewriter"
	"github.com/olekukonko/tablewriter/tw"

	"github.com/logflow/procmine/pkg/mining"
	"github.com/logflow/procmine/pkg/trace"
)

// WriteTraces lists up to limit traces (0 = all) in store order:
//
//	Traces: 3
//	789:	2 activities: a b
//	456:	1 activities: b
func WriteTraces(w io.Writer, s *trace.Store, limit int) error {
	if _, err := fmt.Fprintf(w, "Traces: %d\n", s.Len()); err != nil {
		return err
	}
	n := 0
	for v := range trace.List(s) {
		if limit > 0 && n == limit {
			_, err := fmt.Fprintf(w, "... %d more\n", s.Len()-n)
			return err
		}
		if _, err := fmt.Fprintf(w, "%d:\t%d activities: %s\n", v.ID, v.Count, strings.Join(v.Names, " ")); err != nil {
			return err
		}
		n++
	}
	return nil
}

// WriteActivitySet prints a set as "title (n): a, b, c".
func WriteActivitySet(w io.Writer, title string, set *mining.ActivitySet) error {
	_, err := fmt.Fprintf(w, "%s (%d): %s\n", title, set.Len(), strings.Join(set.Names(), ", "))
	return err
}

// WriteBuckets prints the prefix index, most recently created bucket first.
func WriteBuckets(w io.Writer, s *trace.Store) error {
	scale := s.PrefixScale()
	var data [][]string
	for _, b := range s.Buckets() {
		data = append(data, []string{
			strconv.FormatInt(b.Prefix, 10),
			FormatCount(b.Size),
			strconv.FormatInt(b.Prefix*scale, 10),
			strconv.FormatInt((b.Prefix+1)*scale-1, 10),
		})
	}
	return WriteTable(w, []string{"Prefix", "Traces", "First ID", "Last ID"}, data)
}

// WriteVariants prints up to limit variants (0 = all), most frequent first.
func WriteVariants(w io.Writer, report *mining.VariantReport, limit int) error {
	table := tablewriter.NewWriter(w)
	table.Header([]string{"Rank", "Traces", "Share", "Length", "Example", "Sequence"})
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignLeft
	})

	var data [][]string
	for i, v := range report.Variants {
		if limit > 0 && i == limit {
			break
		}
		data = append(data, []string{
			strconv.Itoa(i + 1),
			FormatCount(v.Count()),
			fmt.Sprintf("%.1f%%", report.Share(v)*100),
			strconv.Itoa(v.Representative.Len()),
			strconv.FormatInt(v.Representative.ID(), 10),
			truncate(v.String(), maxSequenceWidth),
		})
	}

	if err := table.Bulk(data); err != nil {
		return err
	}
	return table.Render()
}

const maxSequenceWidth = 80

func truncate(s string, width int) string {
	r := []rune(s)
	if len(r) <= width {
		return s
	}
	return string(r[:width-3]) + "..."
}

// Summary prints trace statistics.
func (p *Printer) Summary(sum mining.Summary) {
	p.KeyValue("Traces", FormatCount(sum.Traces))
	p.KeyValue("Events", FormatCount(sum.Events))
	p.KeyValue("Distinct activities", FormatCount(sum.DistinctActivities))
	p.KeyValue("Trace length", fmt.Sprintf("min %d, avg %.2f, max %d", sum.MinLength, sum.AverageLength, sum.MaxLength))
}

// WriteTable renders rows under header with right-aligned cells.
func WriteTable(w io.Writer, header []string, rows [][]string) error {
	table := tablewriter.NewWriter(w)
	table.Header(header)
	table.Configure(func(cfg *tablewriter.Config) {
		cfg.Row.Alignment.Global = tw.AlignRight
	})
	if err := table.Bulk(rows); err != nil {
		return err
	}
	return table.Render()
}
