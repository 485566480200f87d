package compare

import (
	"io"
	"text/tabwriter"

	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

// Report writes the state statistics, the comparisons and the summary as aligned text tables.
func Report(w io.Writer, stats []Stat, cs []Comparison, summary []Summary, tol float64) error {
	p := message.NewPrinter(language.AmericanEnglish)
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)

	p.Fprintf(tw, "state\tn\tweight\tAWW\tWBA\tRR\tWBA/AWW\t\n")
	for _, s := range stats {
		p.Fprintf(tw, "%s\t%d\t%.0f\t%.2f\t%.2f\t%.3f\t%.3f\t\n", s.State, s.N, s.Weight, s.AWW, s.WBA, s.RR, s.RRRatio)
	}

	if e := tw.Flush(); e != nil {
		return e
	}

	p.Fprintf(w, "\n")
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "metric\tstate\tcomputed\tbenchmark\tratio\twithin\t\n")
	for _, c := range cs {
		mark := ""
		if c.Within {
			mark = "*"
		}

		p.Fprintf(tw, "%s\t%s\t%.3f\t%.3f\t%.3f\t%s\t\n", c.Metric, c.State, c.Computed, c.Benchmark, c.Ratio, mark)
	}

	if e := tw.Flush(); e != nil {
		return e
	}

	p.Fprintf(w, "\nwithin %.0f%% of benchmark\n", 100*tol)
	tw = tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	p.Fprintf(tw, "metric\tstates\twithin\tshare\tmedian ratio\t\n")
	for _, s := range summary {
		p.Fprintf(tw, "%s\t%d\t%d\t%.1f%%\t%.3f\t\n", Label(s.Metric), s.States, s.Within, 100*s.Share, s.MedianRatio)
	}

	return tw.Flush()
}
