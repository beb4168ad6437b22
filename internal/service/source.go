package service

import (
	"context"
	"fmt"
	"time"

	"github.com/kanso-ai/kanso/internal/domain"
	"github.com/kanso-ai/kanso/internal/telemetry"
)

// StorageClientInterface defines the object storage operations used for
// archiving raw source payloads.
type StorageClientInterface interface {
	PutObject(ctx context.Context, key, contentType string, body []byte) error
	GenerateDownloadURL(ctx context.Context, key string) (string, error)
	DeleteObject(ctx context.Context, key string) error
}

// SourceWriteRepository extends the source lookup with persistence.
type SourceWriteRepository interface {
	SourceRepositoryInterface
	Create(ctx context.Context, src *domain.Source) error
	UpdateStorageKey(ctx context.Context, id, storageKey string) error
}

// SourceService registers originating transcripts and documents and,
// when object storage is configured, archives their raw payloads.
type SourceService struct {
	repo    SourceWriteRepository
	storage StorageClientInterface
	uuidGen UUIDGenerator
}

// NewSourceService creates a new SourceService. storage may be nil, in
// which case raw payloads are not archived.
func NewSourceService(repo SourceWriteRepository, storage StorageClientInterface) *SourceService {
	return &SourceService{
		repo:    repo,
		storage: storage,
		uuidGen: &DefaultUUIDGenerator{},
	}
}

// NewSourceServiceWithUUIDGen creates a SourceService with a custom UUID
// generator (for testing).
func NewSourceServiceWithUUIDGen(repo SourceWriteRepository, storage StorageClientInterface, uuidGen UUIDGenerator) *SourceService {
	svc := NewSourceService(repo, storage)
	svc.uuidGen = uuidGen
	return svc
}

// CreateSourceInput represents the input for registering a source
type CreateSourceInput struct {
	Kind domain.SourceKind
	Name string
	// Raw is the original payload (transcript text, document bytes).
	// Archived to object storage when configured; may be nil.
	Raw         []byte
	ContentType string
}

// Create registers a source and archives its raw payload when storage is
// configured.
func (s *SourceService) Create(ctx context.Context, input CreateSourceInput) (*domain.Source, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.Create", telemetry.SpanAttributes{
		Operation: "create",
	})
	defer span.End()

	src := domain.NewSource(s.uuidGen.NewString(), input.Kind, input.Name, time.Now().UTC())

	if err := domain.ValidateSource(src); err != nil {
		return nil, err
	}

	if err := s.repo.Create(ctx, src); err != nil {
		return nil, err
	}

	if s.storage != nil && len(input.Raw) > 0 {
		key := fmt.Sprintf("sources/%s/%s", src.Kind, src.ID)
		contentType := input.ContentType
		if contentType == "" {
			contentType = "text/plain"
		}
		if err := s.storage.PutObject(ctx, key, contentType, input.Raw); err != nil {
			return nil, fmt.Errorf("failed to archive source payload: %w", err)
		}
		if err := s.repo.UpdateStorageKey(ctx, src.ID, key); err != nil {
			return nil, err
		}
		src.StorageKey = key
	}

	return src, nil
}

// GetByID retrieves a source by ID.
func (s *SourceService) GetByID(ctx context.Context, id string) (*domain.Source, error) {
	return s.repo.GetByID(ctx, id)
}

// DownloadURL returns a presigned URL for the archived raw payload of a
// source.
func (s *SourceService) DownloadURL(ctx context.Context, id string) (string, error) {
	ctx, span := telemetry.StartSpan(ctx, "SourceService.DownloadURL", telemetry.SpanAttributes{
		SourceID:  id,
		Operation: "download_url",
	})
	defer span.End()

	if s.storage == nil {
		return "", fmt.Errorf("object storage not configured")
	}

	src, err := s.repo.GetByID(ctx, id)
	if err != nil {
		return "", err
	}

	if src.StorageKey == "" {
		return "", domain.NewDomainError(domain.ErrCodeNotFound, "source has no archived payload")
	}

	return s.storage.GenerateDownloadURL(ctx, src.StorageKey)
}
