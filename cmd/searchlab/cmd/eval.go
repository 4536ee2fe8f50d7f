package cmd

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/searchlab-dev/searchlab/internal/embed"
	"github.com/searchlab-dev/searchlab/internal/eval"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/provider/local"
	"github.com/searchlab-dev/searchlab/internal/rank"
	"github.com/searchlab-dev/searchlab/internal/search"
	"github.com/searchlab-dev/searchlab/internal/ui"
)

// evalOptions holds CLI flags for eval.
type evalOptions struct {
	k       int
	queries int
	runs    int
	lambda  float64
	query   string
}

func newEvalCmd() *cobra.Command {
	var opts evalOptions

	cmd := &cobra.Command{
		Use:   "eval",
		Short: "Evaluate the index against an exact baseline",
		Long: `Evaluate the local index:

  - recall@k of the approximate dense space against exact brute-force
    top-k over the stored embeddings
  - result redundancy (mean pairwise cosine similarity and text overlap)
    before and after MMR re-ranking
  - end-to-end hybrid search latency percentiles

Examples:
  searchlab eval
  searchlab eval --k 5 --queries 50 --runs 200`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runEval(cmd.Context(), cmd, opts)
		},
	}

	cmd.Flags().IntVar(&opts.k, "k", 10, "Cutoff for recall and redundancy")
	cmd.Flags().IntVar(&opts.queries, "queries", 25, "Number of stored vectors sampled as recall queries")
	cmd.Flags().IntVar(&opts.runs, "runs", eval.DefaultLatencyRuns, "Number of timed search invocations")
	cmd.Flags().Float64Var(&opts.lambda, "mmr-lambda", -1, "MMR lambda for the redundancy comparison (-1 = config default)")
	cmd.Flags().StringVar(&opts.query, "query", "how to reset your password", "Text query used for redundancy and latency")

	return cmd
}

func runEval(ctx context.Context, cmd *cobra.Command, opts evalOptions) error {
	if opts.k <= 0 {
		return fmt.Errorf("k must be > 0, got %d", opts.k)
	}
	if opts.queries <= 0 {
		return fmt.Errorf("queries must be > 0, got %d", opts.queries)
	}

	out := ui.New(cmd.OutOrStdout())

	backend, err := openBackend(rootConfig)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	ids, vectors, err := backend.AllDense(ctx)
	if err != nil {
		return err
	}
	if len(ids) == 0 {
		return fmt.Errorf("index is empty. Run 'searchlab seed' first")
	}

	recall, err := meanRecall(ctx, backend, ids, vectors, opts.k, opts.queries)
	if err != nil {
		return err
	}

	lambda := rootConfig.Search.MMRLambda
	if opts.lambda >= 0 {
		lambda = opts.lambda
	}
	red, err := redundancyReport(ctx, backend, opts.query, opts.k, lambda)
	if err != nil {
		return err
	}

	engine, err := newEngine(rootConfig, backend)
	if err != nil {
		return err
	}
	latency, err := eval.MeasureLatency(ctx, func() error {
		_, err := engine.Search(ctx, opts.query, search.Options{Limit: opts.k})
		return err
	}, opts.runs)
	if err != nil {
		return err
	}

	slog.Info("eval_complete",
		slog.Float64("recall", recall),
		slog.Float64("redundancy_before", red.vectorBefore),
		slog.Float64("redundancy_after", red.vectorAfter),
		slog.Float64("p95_ms", latency.P95))

	out.Headerf("Evaluation over %d stored points", len(ids))
	out.Rule()

	out.Headerf("Recall@%d (dense ANN vs exact top-k, %d queries)", opts.k, min(opts.queries, len(ids)))
	out.Linef("  recall: %.4f", recall)
	out.Newline()

	out.Headerf("Redundancy for %q (top %d, lambda=%.2f)", opts.query, opts.k, lambda)
	out.Linef("  vector  before MMR: %.4f   after MMR: %.4f", red.vectorBefore, red.vectorAfter)
	out.Linef("  text    before MMR: %.4f   after MMR: %.4f", red.textBefore, red.textAfter)
	out.Newline()

	out.Headerf("Hybrid search latency (ms, %d runs)", latency.Runs)
	out.Linef("  p50=%.3f  p95=%.3f  p99=%.3f  mean=%.3f  std=%.3f",
		latency.P50, latency.P95, latency.P99, latency.Mean, latency.Std)
	return nil
}

// meanRecall samples stored vectors as queries and compares the approximate
// dense search against exact brute-force top-k over the same embeddings.
func meanRecall(ctx context.Context, backend *local.Local, ids []uint64, vectors [][]float32, k, queries int) (float64, error) {
	sample := min(queries, len(ids))
	step := len(ids) / sample

	var sum float64
	for i := 0; i < sample; i++ {
		q := vectors[i*step]

		truth, err := rank.ExactTopK(q, vectors, k)
		if err != nil {
			return 0, err
		}
		truthIDs := make([]uint64, len(truth))
		for j, n := range truth {
			truthIDs[j] = ids[n.Index]
		}

		hits, err := backend.Search(ctx, provider.DenseQuery(q), provider.SearchParams{Limit: k})
		if err != nil {
			return 0, err
		}
		predicted := make([]uint64, len(hits))
		for j, h := range hits {
			predicted[j] = h.ID
		}

		r, err := eval.RecallAtK(predicted, truthIDs, k)
		if err != nil {
			return 0, err
		}
		sum += r
	}
	return sum / float64(sample), nil
}

type redundancy struct {
	vectorBefore float64
	vectorAfter  float64
	textBefore   float64
	textAfter    float64
}

// redundancyReport measures how similar the top results are to each other,
// before and after MMR re-ranking of the same candidate pool.
func redundancyReport(ctx context.Context, backend *local.Local, query string, k int, lambda float64) (redundancy, error) {
	dense := embed.NewHashEncoder(rootConfig.Index.Dimensions)
	qvec, err := dense.Encode(ctx, query)
	if err != nil {
		return redundancy{}, err
	}

	pool, err := backend.Search(ctx, provider.DenseQuery(qvec), provider.SearchParams{
		Limit:       k * 3,
		WithVectors: true,
	})
	if err != nil {
		return redundancy{}, err
	}
	if len(pool) == 0 {
		return redundancy{}, fmt.Errorf("no candidates for query %q", query)
	}

	top := pool
	if len(top) > k {
		top = top[:k]
	}

	before, err := eval.Redundancy(candidateVectors(top))
	if err != nil {
		return redundancy{}, err
	}

	diversified, err := rank.MMRRerank(qvec, pool, lambda, k)
	if err != nil {
		return redundancy{}, err
	}
	after, err := eval.Redundancy(candidateVectors(diversified))
	if err != nil {
		return redundancy{}, err
	}

	return redundancy{
		vectorBefore: before,
		vectorAfter:  after,
		textBefore:   eval.TextRedundancy(candidateTexts(top)),
		textAfter:    eval.TextRedundancy(candidateTexts(diversified)),
	}, nil
}

func candidateVectors(candidates []rank.Candidate) [][]float32 {
	out := make([][]float32, len(candidates))
	for i, c := range candidates {
		out[i] = c.Vector
	}
	return out
}

func candidateTexts(candidates []rank.Candidate) []string {
	out := make([]string, len(candidates))
	for i, c := range candidates {
		out[i] = c.Payload["text"]
	}
	return out
}
