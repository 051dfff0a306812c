package main

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/covereval/cover-eval/internal/bus"
	"github.com/covereval/cover-eval/internal/config"
	"github.com/covereval/cover-eval/internal/evaluation"
	"github.com/covereval/cover-eval/internal/pkg/hash"
	"github.com/covereval/cover-eval/internal/pkg/logger"
	"github.com/covereval/cover-eval/internal/semantic"
	"github.com/covereval/cover-eval/internal/wordvec"
)

var (
	version = "dev"
	commit  = "none"
	date    = "unknown"
)

func main() {
	rootCmd := &cobra.Command{
		Use:   "cover-eval",
		Short: "Cover Eval - ranking evaluation for cover-song embedding models",
		Long: `Cover Eval scores cover-song embedding models with retrieval metrics
(mAP, MRR, MR, top-1, top-10) and builds semantic margin tables for
triplet-loss training.

Run 'cover-eval evaluate <dataset>' to score a dataset.
Run 'cover-eval margins' to build a semantic margin table.`,
		SilenceUsage: true,
	}

	// Global flags
	rootCmd.PersistentFlags().StringP("config", "c", "", "config file path")
	rootCmd.PersistentFlags().BoolP("verbose", "v", false, "verbose output")

	rootCmd.AddCommand(
		evaluateCmd(),
		marginsCmd(),
		versionCmd(),
	)

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func loadConfig(cmd *cobra.Command) (*config.Config, *logger.Logger, error) {
	configPath, _ := cmd.Flags().GetString("config")

	cfg, err := config.Load(configPath)
	if err != nil {
		return nil, nil, err
	}

	level := cfg.Log.Level
	if verbose, _ := cmd.Flags().GetBool("verbose"); verbose {
		level = "debug"
	}

	return cfg, logger.New(level, cfg.Log.Format), nil
}

func evaluateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "evaluate <dataset>",
		Short: "Evaluate stored embeddings against a dataset's ground truth",
		Long: `Evaluate fetches the embedding of every listed item from the
configured Qdrant collection, computes the pairwise distance matrix,
and scores the ranking against the dataset's ground-truth matrix
({dataset}_val_ytrue.json under the dataset root).`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			datasetName := args[0]

			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if k, _ := cmd.Flags().GetInt("k"); k > 0 {
				cfg.Eval.TopK = k
			}
			if perQuery, _ := cmd.Flags().GetBool("per-query"); perQuery {
				cfg.Eval.PerQuery = true
			}

			itemsPath, _ := cmd.Flags().GetString("items")
			items, err := readItems(itemsPath)
			if err != nil {
				return err
			}

			resultBus, err := bus.NewBus(cfg.Bus)
			if err != nil {
				return err
			}
			defer resultBus.Close()

			producer, err := evaluation.NewQdrantProducer(cfg.Producer)
			if err != nil {
				return err
			}
			defer producer.Close()

			evaluator := evaluation.NewEvaluator(producer, resultBus, log, cfg.Eval)

			res, err := evaluator.Evaluate(cmd.Context(), datasetName, items)
			if err != nil {
				return err
			}

			fmt.Printf("mAP: %.3f\n", res.MAP)
			fmt.Printf("MRR: %.3f\n", res.MRR)
			fmt.Printf("MR: %.3f\n", res.MR)
			fmt.Printf("Top1: %.0f\n", res.Top1)
			fmt.Printf("Top10: %.0f\n", res.Top10)
			fmt.Printf("1sAvg: %.1f\n", res.FirstMatchAvg)

			if cfg.Eval.PerQuery {
				for i, ap := range res.PerQueryAP {
					fmt.Printf("AP[%d]: %.3f\n", i, ap)
				}
			}

			return nil
		},
	}

	cmd.Flags().String("items", "", "file listing item IDs, one per line (required)")
	cmd.Flags().Int("k", 0, "ranking cutoff (0 = full ranking)")
	cmd.Flags().Bool("per-query", false, "report per-query average precision")
	cmd.MarkFlagRequired("items")

	return cmd
}

func marginsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "margins",
		Short: "Build a semantic margin table from class labels",
		Long: `Margins maps each class label to a word-vector representation,
computes all pairwise label distances and the corpus average, and
prints the margin each (positive, negative) label pair would receive
under the selected policy.`,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, log, err := loadConfig(cmd)
			if err != nil {
				return err
			}

			if policy, _ := cmd.Flags().GetString("policy"); policy != "" {
				cfg.Margin.Policy = policy
			}
			if cmd.Flags().Changed("base-margin") {
				cfg.Margin.BaseMargin, _ = cmd.Flags().GetFloat64("base-margin")
			}
			if descriptions, _ := cmd.Flags().GetString("descriptions"); descriptions != "" {
				cfg.WordVec.DescriptionsPath = descriptions
			}

			labelsPath, _ := cmd.Flags().GetString("labels")
			groups, err := readLabelGroups(labelsPath)
			if err != nil {
				return err
			}

			src, closeSrc, err := buildSource(cfg, log)
			if err != nil {
				return err
			}
			defer closeSrc()

			space, err := semantic.BuildSpace(src, groups, cfg.WordVec.DescriptionsPath)
			if err != nil {
				return err
			}

			table, err := semantic.NewDistanceTable(space)
			if err != nil {
				return err
			}

			adapter, err := semantic.NewMarginAdapter(table, cfg.Margin.BaseMargin, cfg.Margin.Policy)
			if err != nil {
				return err
			}

			log.WithPolicy(adapter.Policy()).Info("Built semantic margin table",
				"labels", len(space.Labels()),
				"pairs", table.Len(),
				"average_distance", table.Average(),
			)

			fmt.Printf("labels: %d  pairs: %d  average distance: %.4f\n",
				len(space.Labels()), table.Len(), table.Average())

			labels := space.Labels()
			for _, pos := range labels {
				for _, neg := range labels {
					if pos == neg {
						continue
					}
					dist, err := table.Distance(pos, neg)
					if err != nil {
						return err
					}
					margins, err := adapter.Adapt([]string{pos, neg}, []int{0}, []int{1})
					if err != nil {
						return err
					}
					fmt.Printf("%s -> %s  distance: %.4f  margin: %.4f\n", pos, neg, dist, margins[0])
				}
			}

			return publishMargins(cmd.Context(), cfg, log, space, table)
		},
	}

	cmd.Flags().String("labels", "", "JSON file with nested label groups (required)")
	cmd.Flags().String("descriptions", "", "JSON file mapping labels to descriptions")
	cmd.Flags().String("policy", "", "margin policy (binary, continuous)")
	cmd.Flags().Float64("base-margin", 0, "base margin")
	cmd.MarkFlagRequired("labels")

	return cmd
}

func versionCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print version information",
		Run: func(cmd *cobra.Command, args []string) {
			fmt.Printf("cover-eval %s\n", version)
			fmt.Printf("  commit: %s\n", commit)
			fmt.Printf("  built:  %s\n", date)
		},
	}
}

// buildSource constructs the word-vector source, wrapped with the Redis
// cache when enabled.
func buildSource(cfg *config.Config, log *logger.Logger) (wordvec.Source, func(), error) {
	if cfg.WordVec.VectorsPath == "" {
		return nil, nil, fmt.Errorf("wordvec.vectors_path is not configured")
	}

	fileSrc, err := wordvec.NewFileSource(cfg.WordVec.VectorsPath, cfg.WordVec.Dim)
	if err != nil {
		return nil, nil, err
	}

	if !cfg.Cache.Enabled {
		return fileSrc, func() {}, nil
	}

	cached, err := wordvec.NewCachedSource(fileSrc, cfg.Cache.RedisURL,
		time.Duration(cfg.Cache.TTL)*time.Second)
	if err != nil {
		// A dead cache should not block margin computation.
		log.WithError(err).Warn("Word-vector cache unavailable, continuing without it")
		return fileSrc, func() {}, nil
	}

	return cached, func() { cached.Close() }, nil
}

func publishMargins(ctx context.Context, cfg *config.Config, log *logger.Logger,
	space *semantic.Space, table *semantic.DistanceTable) error {

	resultBus, err := bus.NewBus(cfg.Bus)
	if err != nil {
		return err
	}
	defer resultBus.Close()

	ts := time.Now().UnixNano()
	event := bus.Event{
		ID:        hash.EventID(bus.TopicMarginsComputed, cfg.Margin.Policy, ts),
		Type:      bus.TopicMarginsComputed,
		Source:    "cover-eval",
		Timestamp: ts,
		Payload: map[string]any{
			"labels":           len(space.Labels()),
			"pairs":            table.Len(),
			"average_distance": table.Average(),
			"policy":           cfg.Margin.Policy,
			"base_margin":      cfg.Margin.BaseMargin,
		},
	}

	if err := resultBus.Publish(ctx, bus.TopicMarginsComputed, event); err != nil {
		log.WithError(err).Warn("Failed to publish margin table summary")
	}

	return nil
}

// readItems reads item IDs, one per line, skipping blanks and comments.
func readItems(path string) ([]string, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening items file: %w", err)
	}
	defer f.Close()

	var items []string
	scanner := bufio.NewScanner(f)
	for scanner.Scan() {
		line := strings.TrimSpace(scanner.Text())
		if line == "" || strings.HasPrefix(line, "#") {
			continue
		}
		items = append(items, line)
	}
	if err := scanner.Err(); err != nil {
		return nil, fmt.Errorf("reading items file: %w", err)
	}

	return items, nil
}

// readLabelGroups reads a JSON nested list of label groups.
func readLabelGroups(path string) ([][]string, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("opening labels file: %w", err)
	}

	var groups [][]string
	if err := json.Unmarshal(data, &groups); err != nil {
		return nil, fmt.Errorf("parsing labels file: %w", err)
	}

	return groups, nil
}
