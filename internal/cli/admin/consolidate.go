package admin

import (
	"context"
	"fmt"

	"github.com/kanso-ai/kanso/internal/config"
	"github.com/kanso-ai/kanso/internal/database"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/repository"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/spf13/cobra"
)

// ConsolidateCmd returns the consolidate command
func ConsolidateCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "consolidate <fragment-id>",
		Short: "Consolidate a fragment and its near-duplicates into a knowledge unit",
		Long:  "Find unclustered fragments similar to the seed fragment and create a knowledge unit from them. The seed fragment's text becomes the unit's text.",
		Args:  cobra.ExactArgs(1),
		RunE:  runConsolidate,
	}

	cmd.Flags().Float32("min-similarity", 0.85, "Minimum cosine similarity for candidates")
	cmd.Flags().Int("limit", 10, "Maximum number of candidate fragments")
	cmd.Flags().String("confidence", string(domain.ConfidenceMedium), "Confidence level of the new knowledge unit")

	return cmd
}

func runConsolidate(cmd *cobra.Command, args []string) error {
	ctx := context.Background()
	seedID := args[0]

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg.Debug)

	minSim, _ := cmd.Flags().GetFloat32("min-similarity")
	limit, _ := cmd.Flags().GetInt("limit")
	confidence, _ := cmd.Flags().GetString("confidence")

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	fragmentRepo := repository.NewFragmentRepository(pool, cfg.EmbeddingDims)
	unitRepo := repository.NewKnowledgeUnitRepository(pool, cfg.EmbeddingDims)
	jobRepo := repository.NewEmbeddingJobRepository(pool)
	txRunner := repository.NewTxRunner(pool, cfg.EmbeddingDims)

	similaritySvc := service.NewSimilarityService(fragmentRepo, unitRepo, cfg.EmbeddingDims)
	clusterSvc := service.NewClusterService(fragmentRepo, unitRepo, jobRepo, txRunner, cfg.EmbeddingDims, log)

	seed, err := fragmentRepo.GetByID(ctx, seedID)
	if err != nil {
		return fmt.Errorf("failed to load seed fragment: %w", err)
	}
	if seed.Embedding == nil {
		return fmt.Errorf("seed fragment %s has no embedding yet", seedID)
	}
	if seed.IsClustered() {
		return fmt.Errorf("seed fragment %s already belongs to knowledge unit %s", seedID, *seed.ClusterID)
	}

	matches, err := similaritySvc.FindSimilarFragments(ctx, seed.Embedding, service.SearchOptions{
		Limit:            limit,
		MinSimilarity:    &minSim,
		ExcludeClustered: true,
	})
	if err != nil {
		return fmt.Errorf("failed to find similar fragments: %w", err)
	}

	fragmentIDs := make([]string, 0, len(matches)+1)
	seen := false
	for _, m := range matches {
		if m.Fragment.ID == seedID {
			seen = true
		}
		fragmentIDs = append(fragmentIDs, m.Fragment.ID)
		log.Info().
			Str("fragment_id", m.Fragment.ID).
			Float32("similarity", m.Similarity()).
			Str("title", m.Fragment.Title).
			Msg("candidate")
	}
	if !seen {
		fragmentIDs = append(fragmentIDs, seedID)
	}

	unit, outcomes, err := clusterSvc.CreateClusterFromFragments(ctx, service.CreateClusterInput{
		FragmentIDs: fragmentIDs,
		CategoryID:  seed.CategoryID,
		Title:       seed.Title,
		Summary:     seed.Summary,
		Content:     seed.Content,
		Confidence:  domain.Confidence(confidence),
	})
	if err != nil {
		return fmt.Errorf("failed to create knowledge unit: %w", err)
	}

	for _, o := range outcomes {
		log.Info().Str("fragment_id", o.FragmentID).Str("status", string(o.Status)).Msg("assignment outcome")
	}
	log.Info().Str("unit_id", unit.ID).Int("members", len(outcomes)).Msg("knowledge unit created")

	return nil
}
