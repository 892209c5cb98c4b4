package bench

import (
	"fmt"
	"io"
	"text/tabwriter"
	"time"

	"github.com/rl1809/storefront/internal/workload"
)

type KindStats struct {
	Successes  int64
	Rejections int64
	Failures   int64
	Violations int64
}

func (s KindStats) Total() int64 {
	return s.Successes + s.Rejections + s.Failures + s.Violations
}

type TrialResult struct {
	Workers  int
	Duration time.Duration

	TotalOps   int64
	Successes  int64
	Rejections int64
	Failures   int64
	Violations int64

	// AuditViolations counts products whose final stock disagreed with the
	// baseline plus every reported effect.
	AuditViolations int64

	PerKind map[workload.Kind]KindStats

	// ViolationRate is (failures + violations + audit violations) / total ops.
	// Business rejections are not violations.
	ViolationRate float64
	Throughput    float64
}

func (t *TrialResult) finish() {
	if t.TotalOps > 0 {
		t.ViolationRate = float64(t.Failures+t.Violations+t.AuditViolations) / float64(t.TotalOps)
	}
	if secs := t.Duration.Seconds(); secs > 0 {
		t.Throughput = float64(t.TotalOps) / secs
	}
}

func WriteReport(w io.Writer, results []TrialResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintln(tw, "workers\tops\tops/s\tsuccess\trejected\tfailed\tviolations\taudit\tviolation rate\t")
	for _, r := range results {
		fmt.Fprintf(tw, "%d\t%d\t%.1f\t%d\t%d\t%d\t%d\t%d\t%.4f%%\t\n",
			r.Workers, r.TotalOps, r.Throughput,
			r.Successes, r.Rejections, r.Failures, r.Violations, r.AuditViolations,
			r.ViolationRate*100,
		)
	}
	return tw.Flush()
}

// WriteBreakdown prints per-operation counts for one trial.
func WriteBreakdown(w io.Writer, result TrialResult) error {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', tabwriter.AlignRight)
	fmt.Fprintf(tw, "operation (%d workers)\tsuccess\trejected\tfailed\tviolations\t\n", result.Workers)
	for _, kind := range workload.Kinds {
		s := result.PerKind[kind]
		fmt.Fprintf(tw, "%s\t%d\t%d\t%d\t%d\t\n", kind, s.Successes, s.Rejections, s.Failures, s.Violations)
	}
	return tw.Flush()
}
