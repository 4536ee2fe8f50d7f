package cmd

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"strings"

	"github.com/spf13/cobra"

	"github.com/searchlab-dev/searchlab/internal/provider"
	"github.com/searchlab-dev/searchlab/internal/search"
	"github.com/searchlab-dev/searchlab/internal/ui"
)

// searchOptions holds CLI flags for search.
type searchOptions struct {
	limit       int
	denseWeight float64
	mmr         bool
	mmrLambda   float64
	category    string
	lang        string
	threshold   float64
	format      string
}

func newSearchCmd() *cobra.Command {
	var opts searchOptions

	cmd := &cobra.Command{
		Use:   "search <query>",
		Short: "Run a hybrid search against the local index",
		Long: `Run a hybrid search: the query is encoded into both vector spaces,
both searches run in parallel, and the candidate lists are fused with a
weighted sum. With --mmr the top candidates are re-ranked for diversity.

Examples:
  searchlab search "password reset"
  searchlab search "release notes" --limit 5 --dense-weight 0.8
  searchlab search "refund policy" --category policy --lang en
  searchlab search "setup guide" --mmr --mmr-lambda 0.3`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			query := strings.Join(args, " ")
			return runSearch(cmd.Context(), cmd, query, opts)
		},
	}

	cmd.Flags().IntVarP(&opts.limit, "limit", "n", 0, "Maximum number of results (0 = config default)")
	cmd.Flags().Float64VarP(&opts.denseWeight, "dense-weight", "w", -1, "Dense fusion weight in [0,1] (-1 = config default)")
	cmd.Flags().BoolVar(&opts.mmr, "mmr", false, "Diversify results with MMR re-ranking")
	cmd.Flags().Float64Var(&opts.mmrLambda, "mmr-lambda", -1, "MMR relevance/diversity trade-off in [0,1] (-1 = config default)")
	cmd.Flags().StringVar(&opts.category, "category", "", "Filter by category (faq, howto, policy, product, release)")
	cmd.Flags().StringVar(&opts.lang, "lang", "", "Filter by language (en, es, fr, de)")
	cmd.Flags().Float64Var(&opts.threshold, "threshold", 0, "Drop per-space hits scoring below this value")
	cmd.Flags().StringVarP(&opts.format, "format", "f", "text", "Output format: text, json")

	return cmd
}

func runSearch(ctx context.Context, cmd *cobra.Command, query string, opts searchOptions) error {
	backend, err := openBackend(rootConfig)
	if err != nil {
		return err
	}
	defer func() { _ = backend.Close() }()

	count, err := backend.Count(ctx)
	if err != nil {
		return err
	}
	if count == 0 {
		return fmt.Errorf("index is empty. Run 'searchlab seed' first")
	}

	engine, err := newEngine(rootConfig, backend)
	if err != nil {
		return err
	}

	searchOpts := search.Options{
		Limit:          opts.limit,
		ScoreThreshold: opts.threshold,
	}
	if opts.denseWeight >= 0 {
		searchOpts.DenseWeight = &opts.denseWeight
	}
	if opts.category != "" || opts.lang != "" {
		searchOpts.Filter = &provider.Filter{Category: opts.category, Lang: opts.lang}
	}
	if opts.mmr {
		lambda := rootConfig.Search.MMRLambda
		if opts.mmrLambda >= 0 {
			lambda = opts.mmrLambda
		}
		searchOpts.MMR = &search.MMROptions{Lambda: lambda}
	}

	results, err := engine.Search(ctx, query, searchOpts)
	if err != nil {
		return err
	}
	slog.Info("search_complete", slog.String("query", query), slog.Int("results", len(results)))

	if opts.format == "json" {
		return formatJSON(cmd, results)
	}
	return formatText(cmd, query, results, opts.mmr)
}

// formatText renders results with one line per hit plus the payload text.
func formatText(cmd *cobra.Command, query string, results []search.Result, mmr bool) error {
	out := ui.New(cmd.OutOrStdout())
	styles := out.Styles()

	if len(results) == 0 {
		out.Linef("No results found for %q", query)
		return nil
	}

	mode := "fused"
	if mmr {
		mode = "fused+mmr"
	}
	out.Headerf("Found %d results for %q (%s)", len(results), query, mode)
	out.Rule()

	for i, r := range results {
		score := styles.Score.Render(fmt.Sprintf("%.4f", r.Score))
		label := styles.Label.Render(fmt.Sprintf("[%s/%s]", r.Payload["category"], r.Payload["lang"]))
		out.Linef("%2d. id=%-4d score=%s %s", i+1, r.ID, score, label)
		if text := r.Payload["text"]; text != "" {
			out.Labelf("    %s", text)
		}
	}
	return nil
}

// formatJSON renders results as a JSON array on stdout.
func formatJSON(cmd *cobra.Command, results []search.Result) error {
	type jsonResult struct {
		ID       uint64  `json:"id"`
		Score    float64 `json:"score"`
		Category string  `json:"category,omitempty"`
		Lang     string  `json:"lang,omitempty"`
		Text     string  `json:"text,omitempty"`
	}

	output := make([]jsonResult, 0, len(results))
	for _, r := range results {
		output = append(output, jsonResult{
			ID:       r.ID,
			Score:    r.Score,
			Category: r.Payload["category"],
			Lang:     r.Payload["lang"],
			Text:     r.Payload["text"],
		})
	}

	enc := json.NewEncoder(cmd.OutOrStdout())
	enc.SetIndent("", "  ")
	return enc.Encode(output)
}
