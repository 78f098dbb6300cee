/*
report.go - The reconciliation pipeline and report tree

PURPOSE:
  Ties the pieces together: shard persons across workers, reconcile each
  person's claim months, merge the partial aggregates, and assemble the
  report tree {by_month, by_organization, by_plan, by_age_bracket}.

CONCURRENCY:
  Pure batch computation over an immutable snapshot. Persons are split into
  shards, each shard builds its own accumulators, and the merge is a plain
  sum - commutative and associative, so no ordering constraints between
  shards. Cancellation comes from the caller's context; the algorithm has
  no intrinsic timeout.

INVARIANT VERIFICATION:
  After assembly the pipeline re-checks partition completeness and
  dimensional consistency. Findings are logged as warnings and counted on
  the report, never raised: upstream data anomalies can cause small drifts
  that should not take the report offline.
*/
package engine

import (
	"context"
	"runtime"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// =============================================================================
// REPORT TREE
// =============================================================================

// DimensionReport is all slices for one axis.
type DimensionReport struct {
	Dimension Dimension
	Slices    []DimensionSlice
}

// Report is the full aggregate tree for one run. Fresh and immutable per
// request; serialization is the presentation layer's problem.
type Report struct {
	RunID       string
	GeneratedAt time.Time
	Months      []MonthlyAggregate
	ByDimension map[Dimension]DimensionReport
	Drift       []DriftFinding
}

// =============================================================================
// PIPELINE
// =============================================================================

// driftEpsilon bounds the tolerated disagreement between a dimensional sum
// and its parent monthly total.
var driftEpsilon = decimal.NewFromFloat(0.0001)

// Pipeline runs the reconciliation and aggregation passes.
type Pipeline struct {
	Logger  *zap.Logger
	Workers int // <= 0 means GOMAXPROCS
}

func NewPipeline(logger *zap.Logger) *Pipeline {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Pipeline{Logger: logger}
}

type shardResult struct {
	monthly    *MonthlyAccumulator
	dimensions map[Dimension]*DimensionAccumulator
}

func newShardResult() *shardResult {
	r := &shardResult{
		monthly:    NewMonthlyAccumulator(),
		dimensions: make(map[Dimension]*DimensionAccumulator, len(Dimensions)),
	}
	for _, dim := range Dimensions {
		r.dimensions[dim] = NewDimensionAccumulator(dim)
	}
	return r
}

// Run computes the report for a snapshot.
func (p *Pipeline) Run(ctx context.Context, sn *Snapshot) (*Report, error) {
	workers := p.Workers
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	persons := sn.Persons()
	if len(persons) < workers {
		workers = len(persons)
	}
	if workers == 0 {
		workers = 1
	}

	results := make([]*shardResult, workers)
	g, ctx := errgroup.WithContext(ctx)
	for w := 0; w < workers; w++ {
		w := w
		g.Go(func() error {
			res := newShardResult()
			for i := w; i < len(persons); i += workers {
				if err := ctx.Err(); err != nil {
					return err
				}
				for _, line := range ReconcilePerson(sn, persons[i]) {
					res.monthly.Add(line)
					for _, da := range res.dimensions {
						da.Add(line)
					}
				}
			}
			results[w] = res
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	merged := newShardResult()
	for _, res := range results {
		merged.monthly.Merge(res.monthly)
		for dim, da := range res.dimensions {
			merged.dimensions[dim].Merge(da)
		}
	}

	report := &Report{
		RunID:       uuid.NewString(),
		GeneratedAt: time.Now().UTC(),
		Months:      merged.monthly.Aggregates(),
		ByDimension: make(map[Dimension]DimensionReport, len(Dimensions)),
	}
	for _, dim := range Dimensions {
		report.ByDimension[dim] = DimensionReport{
			Dimension: dim,
			Slices:    merged.dimensions[dim].Slices(merged.monthly),
		}
	}

	report.Drift = VerifyInvariants(report)
	for _, d := range report.Drift {
		p.Logger.Warn("aggregate drift",
			zap.String("run_id", report.RunID),
			zap.String("finding", d.String()),
		)
	}
	p.Logger.Info("report computed",
		zap.String("run_id", report.RunID),
		zap.Int("persons", len(persons)),
		zap.Int("months", len(report.Months)),
		zap.Int("drift_findings", len(report.Drift)),
	)

	return report, nil
}

// =============================================================================
// INVARIANT VERIFICATION
// =============================================================================

// VerifyInvariants re-checks partition completeness and dimensional
// consistency over an assembled report and returns every disagreement
// beyond the tolerance.
func VerifyInvariants(r *Report) []DriftFinding {
	var findings []DriftFinding

	// Partition completeness: statuses must sum to the month total.
	for _, agg := range r.Months {
		sum := agg.Active.Merge(agg.Inactive).Merge(agg.Unmatched)
		findings = append(findings, compareMetrics(agg.Month, StatusTotal, "", agg.Total, sum)...)
	}

	// Dimensional consistency: slices at a status must sum to the month's
	// status total.
	byMonth := make(map[Month]MonthlyAggregate, len(r.Months))
	for _, agg := range r.Months {
		byMonth[agg.Month] = agg
	}
	for dim, dr := range r.ByDimension {
		type cell struct {
			month  Month
			status Status
		}
		sums := make(map[cell]Metrics)
		for _, s := range dr.Slices {
			k := cell{month: s.Month, status: s.Status}
			cur, ok := sums[k]
			if !ok {
				cur = NewMetrics()
			}
			sums[k] = cur.Merge(s.Metrics)
		}
		for k, sum := range sums {
			parent := byMonth[k.month].ByStatus(k.status)
			if k.status == StatusTotal {
				parent = byMonth[k.month].Total
			}
			findings = append(findings, compareMetrics(k.month, k.status, dim, parent, sum)...)
		}
	}

	return findings
}

func compareMetrics(m Month, s Status, dim Dimension, expected, got Metrics) []DriftFinding {
	var findings []DriftFinding
	if expected.Count != got.Count {
		findings = append(findings, DriftFinding{
			Month: m, Status: s, Dimension: dim, Field: "count",
			Expected: decimal.NewFromInt(int64(expected.Count)).String(),
			Got:      decimal.NewFromInt(int64(got.Count)).String(),
		})
	}
	if expected.Cost.Sub(got.Cost).Abs().GreaterThan(driftEpsilon) {
		findings = append(findings, DriftFinding{
			Month: m, Status: s, Dimension: dim, Field: "cost",
			Expected: expected.Cost.String(), Got: got.Cost.String(),
		})
	}
	if expected.Revenue.Sub(got.Revenue).Abs().GreaterThan(driftEpsilon) {
		findings = append(findings, DriftFinding{
			Month: m, Status: s, Dimension: dim, Field: "revenue",
			Expected: expected.Revenue.String(), Got: got.Revenue.String(),
		})
	}
	return findings
}
