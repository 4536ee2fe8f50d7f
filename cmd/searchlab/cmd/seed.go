package cmd

import (
	"context"
	"log/slog"
	"time"

	"github.com/spf13/cobra"

	"github.com/searchlab-dev/searchlab/internal/dataset"
	"github.com/searchlab-dev/searchlab/internal/embed"
	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/ui"
)

// upsertBatchSize bounds one provider write.
const upsertBatchSize = 128

func newSeedCmd() *cobra.Command {
	var size int
	var seed int64

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Generate and index the sample dataset",
		Long: `Generate the deterministic sample dataset, encode every record into
the dense and sparse spaces, and upsert the points into the local index.

Examples:
  searchlab seed
  searchlab seed --size 500 --seed 7`,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runSeed(cmd.Context(), cmd, size, seed)
		},
	}

	cmd.Flags().IntVar(&size, "size", dataset.DefaultSize, "Number of records to generate")
	cmd.Flags().Int64Var(&seed, "seed", dataset.DefaultSeed, "Random seed for the generator")

	return cmd
}

func runSeed(ctx context.Context, cmd *cobra.Command, size int, seed int64) error {
	out := ui.New(cmd.OutOrStdout())
	start := time.Now()

	records, err := dataset.Generate(size, seed)
	if err != nil {
		return err
	}

	backend, err := openBackend(rootConfig)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	dense := embed.NewHashEncoder(rootConfig.Index.Dimensions)
	sparse := embed.NewTermEncoder()

	texts := make([]string, len(records))
	for i, rec := range records {
		texts[i] = rec.Text
	}
	vectors, err := dense.EncodeBatch(ctx, texts)
	if err != nil {
		return err
	}

	points := make([]provider.Point, len(records))
	for i, rec := range records {
		sv, err := sparse.EncodeSparse(ctx, rec.Text)
		if err != nil {
			return err
		}
		points[i] = provider.Point{
			ID:      rec.ID,
			Dense:   vectors[i],
			Sparse:  &sv,
			Payload: rec.Payload(),
		}
	}

	for from := 0; from < len(points); from += upsertBatchSize {
		to := from + upsertBatchSize
		if to > len(points) {
			to = len(points)
		}
		if err := backend.Upsert(ctx, points[from:to]); err != nil {
			return err
		}
	}

	// Close explicitly so a dense index save failure surfaces as a command
	// error instead of being swallowed by the deferred close.
	if err := backend.Close(); err != nil {
		return err
	}

	slog.Info("seed_complete",
		slog.Int("points", len(points)),
		slog.Int64("seed", seed),
		slog.Duration("duration", time.Since(start)))

	out.Headerf("Seeded %d points in %s", len(points), time.Since(start).Round(time.Millisecond))
	if rootConfig.Provider.Dir != "" {
		out.Labelf("index: %s", rootConfig.Provider.Dir)
	}
	out.Labelf("encoder: %s (%d dims), sparse: %s", dense.Name(), dense.Dimensions(), sparse.Name())
	return nil
}
