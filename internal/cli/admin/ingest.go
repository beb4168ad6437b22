package admin

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/kanso-ai/kanso/internal/config"
	"github.com/kanso-ai/kanso/internal/database"
	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/repository"
	"github.com/kanso-ai/kanso/internal/service"
	"github.com/spf13/cobra"
)

// ingestFile is the JSON document accepted by the ingest command.
type ingestFile struct {
	Source struct {
		Kind string `json:"kind"`
		Name string `json:"name"`
	} `json:"source"`
	CategoryID string `json:"category_id"`
	Fragments  []struct {
		Title   string `json:"title"`
		Summary string `json:"summary"`
		Content string `json:"content"`
	} `json:"fragments"`
}

// IngestCmd returns the ingest command
func IngestCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "ingest <file>",
		Short: "Ingest fragments from a JSON file",
		Long:  "Register a source, archive its raw payload when object storage is configured, and create its fragments. Embedding jobs are queued for the worker.",
		Args:  cobra.ExactArgs(1),
		RunE:  runIngest,
	}
	return cmd
}

func runIngest(cmd *cobra.Command, args []string) error {
	ctx := context.Background()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}
	log := newLogger(cfg.Debug)

	raw, err := os.ReadFile(args[0])
	if err != nil {
		return fmt.Errorf("failed to read input file: %w", err)
	}

	var input ingestFile
	if err := json.Unmarshal(raw, &input); err != nil {
		return fmt.Errorf("failed to parse input file: %w", err)
	}

	pool, err := database.NewPool(ctx, cfg.DatabaseURL)
	if err != nil {
		return fmt.Errorf("failed to connect to database: %w", err)
	}
	defer pool.Close()

	storageClient, err := newStorageClient(ctx, cfg)
	if err != nil {
		return err
	}

	sourceRepo := repository.NewSourceRepository(pool)
	categoryRepo := repository.NewCategoryRepository(pool)
	fragmentRepo := repository.NewFragmentRepository(pool, cfg.EmbeddingDims)
	jobRepo := repository.NewEmbeddingJobRepository(pool)

	sourceSvc := service.NewSourceService(sourceRepo, storageClient)
	fragmentSvc := service.NewFragmentService(fragmentRepo, categoryRepo, sourceRepo, jobRepo, cfg.EmbeddingDims)

	src, err := sourceSvc.Create(ctx, service.CreateSourceInput{
		Kind:        domain.SourceKind(input.Source.Kind),
		Name:        input.Source.Name,
		Raw:         raw,
		ContentType: "application/json",
	})
	if err != nil {
		return fmt.Errorf("failed to register source: %w", err)
	}
	log.Info().Str("source_id", src.ID).Str("kind", string(src.Kind)).Msg("source registered")

	for i, f := range input.Fragments {
		fragment, err := fragmentSvc.Create(ctx, service.CreateFragmentInput{
			SourceID:   src.ID,
			CategoryID: input.CategoryID,
			Title:      f.Title,
			Summary:    f.Summary,
			Content:    f.Content,
		})
		if err != nil {
			return fmt.Errorf("failed to create fragment %d: %w", i, err)
		}
		log.Info().Str("fragment_id", fragment.ID).Str("title", fragment.Title).Msg("fragment created")
	}

	log.Info().Int("count", len(input.Fragments)).Msg("ingest complete")
	return nil
}
