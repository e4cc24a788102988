package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/texlink/partnerhub/internal/compliance"
	"github.com/texlink/partnerhub/internal/domain"
	"github.com/texlink/partnerhub/internal/infrastructure/redis"
	"github.com/texlink/partnerhub/internal/security"
	"github.com/texlink/partnerhub/pkg/cache"
)

// DocumentView is a supplier document with its derived compliance status
// attached. The status is computed at read time, never stored.
type DocumentView struct {
	*domain.SupplierDocument
	Status domain.DocumentStatus `json:"status"`
}

// DocumentCache stores serialized document rows for summary reads. A miss
// is (nil, false); implementations degrade errors to misses.
type DocumentCache interface {
	Get(ctx context.Context, key string) ([]byte, bool)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration)
	Delete(ctx context.Context, key string)
}

// redisDocumentCache adapts the shared Redis client to DocumentCache.
type redisDocumentCache struct {
	client *redis.Client
	logger *slog.Logger
}

// NewRedisDocumentCache wraps the shared Redis client for summary reads.
func NewRedisDocumentCache(client *redis.Client, logger *slog.Logger) DocumentCache {
	if logger == nil {
		logger = slog.Default()
	}
	return &redisDocumentCache{client: client, logger: logger}
}

func (c *redisDocumentCache) Get(ctx context.Context, key string) ([]byte, bool) {
	raw, err := c.client.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, redis.Nil) {
			c.logger.Warn("document cache read failed", slog.String("error", err.Error()))
		}
		return nil, false
	}
	return []byte(raw), true
}

func (c *redisDocumentCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	if err := c.client.Set(ctx, key, value, ttl); err != nil {
		c.logger.Warn("document cache write failed", slog.String("error", err.Error()))
	}
}

func (c *redisDocumentCache) Delete(ctx context.Context, key string) {
	if err := c.client.Delete(ctx, key); err != nil {
		c.logger.Warn("document cache invalidation failed", slog.String("error", err.Error()))
	}
}

// DocumentService manages compliance artifacts and their derived statuses.
// The cache holds only raw document rows; status is derived on every read,
// so a cached row set still yields fresh VALID/EXPIRING_SOON/EXPIRED counts
// as the clock moves.
type DocumentService struct {
	documents     domain.DocumentRepository
	relationships domain.RelationshipRepository
	cache         DocumentCache
	cacheTTL      time.Duration
	window        time.Duration
	logger        *slog.Logger
	now           func() time.Time
}

// NewDocumentService creates a new document service. A nil cache falls back
// to an in-process store.
func NewDocumentService(
	documents domain.DocumentRepository,
	relationships domain.RelationshipRepository,
	docCache DocumentCache,
	cacheTTL time.Duration,
	expiringSoonDays int,
	logger *slog.Logger,
) *DocumentService {
	window := compliance.DefaultExpiringSoonWindow
	if expiringSoonDays > 0 {
		window = time.Duration(expiringSoonDays) * 24 * time.Hour
	}
	if docCache == nil {
		docCache = cache.New()
	}
	return &DocumentService{
		documents:     documents,
		relationships: relationships,
		cache:         docCache,
		cacheTTL:      cacheTTL,
		window:        window,
		logger:        logger,
		now:           time.Now,
	}
}

// UpsertDocumentInput registers or replaces a compliance document.
type UpsertDocumentInput struct {
	Type            string     `json:"type"`
	CompetenceMonth int        `json:"competenceMonth"`
	CompetenceYear  int        `json:"competenceYear"`
	ExpiresAt       *time.Time `json:"expiresAt"`
	FileRef         string     `json:"fileRef"`
	Notes           string     `json:"notes"`
}

// Upsert records a document for the actor's supplier. Re-uploading the same
// (type, competence) slot replaces the previous artifact.
func (s *DocumentService) Upsert(ctx context.Context, actor domain.Actor, in UpsertDocumentInput) (*DocumentView, error) {
	if !security.IsSupplierRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only supplier users can manage documents")
	}
	if in.Type == "" {
		return nil, domain.Validationf("document type is required")
	}
	if in.CompetenceMonth < 0 || in.CompetenceMonth > 12 {
		return nil, domain.Validationf("competence month must be between 1 and 12, or 0 when not applicable")
	}

	d := &domain.SupplierDocument{
		ID:              uuid.NewString(),
		SupplierID:      actor.CompanyID,
		Type:            in.Type,
		CompetenceMonth: in.CompetenceMonth,
		CompetenceYear:  in.CompetenceYear,
		ExpiresAt:       in.ExpiresAt,
		FileRef:         in.FileRef,
		Notes:           in.Notes,
	}
	if err := s.documents.Upsert(ctx, d); err != nil {
		return nil, err
	}

	s.invalidateSummary(ctx, actor.CompanyID)
	return s.view(d), nil
}

// Get returns one document with its derived status. Suppliers see their own
// documents; brands see documents of suppliers that granted consent.
func (s *DocumentService) Get(ctx context.Context, actor domain.Actor, id string) (*DocumentView, error) {
	d, err := s.documents.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}
	if err := s.authorizeRead(ctx, actor, d.SupplierID); err != nil {
		return nil, err
	}
	return s.view(d), nil
}

// List returns a supplier's documents with derived statuses, optionally
// narrowed by type and derived status.
func (s *DocumentService) List(ctx context.Context, actor domain.Actor, f domain.DocumentFilter) ([]*DocumentView, error) {
	supplierID := f.SupplierID
	if supplierID == "" {
		supplierID = actor.CompanyID
	}
	if err := s.authorizeRead(ctx, actor, supplierID); err != nil {
		return nil, err
	}

	docs, err := s.documents.List(ctx, supplierID, f.Type)
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]*DocumentView, 0, len(docs))
	for _, d := range docs {
		status := compliance.StatusWithWindow(d.ExpiresAt, d.HasFile(), now, s.window)
		if f.Status != "" && status != f.Status {
			continue
		}
		views = append(views, &DocumentView{SupplierDocument: d, Status: status})
	}
	return views, nil
}

// SupplierSummary tallies one supplier's documents per derived status. The
// cache holds the raw rows, so the tally is rederived at the current clock
// even on a cache hit.
func (s *DocumentService) SupplierSummary(ctx context.Context, actor domain.Actor, supplierID string) (*compliance.Summary, error) {
	if supplierID == "" {
		supplierID = actor.CompanyID
	}
	if err := s.authorizeRead(ctx, actor, supplierID); err != nil {
		return nil, err
	}

	inputs, err := s.summaryInputs(ctx, supplierID)
	if err != nil {
		return nil, err
	}

	now := s.now()
	summary := compliance.Summary{ByStatus: map[domain.DocumentStatus]int{}}
	for _, in := range inputs {
		summary.Total++
		summary.ByStatus[compliance.StatusWithWindow(in.ExpiresAt, in.HasFile, now, s.window)]++
	}
	return &summary, nil
}

// PlatformSummary tallies every supplier's documents per derived status.
// Brand-side only; always rederived from the full row set.
func (s *DocumentService) PlatformSummary(ctx context.Context, actor domain.Actor) (map[string]compliance.Summary, error) {
	if !security.IsBrandRole(security.Role(actor.Role)) {
		return nil, domain.Forbiddenf("only brand users can read the platform summary")
	}

	docs, err := s.documents.ListAll(ctx)
	if err != nil {
		return nil, err
	}
	return compliance.TallyBySupplier(docs, s.now()), nil
}

// authorizeRead allows suppliers to read their own documents and brands to
// read documents of suppliers with an active consenting relationship.
func (s *DocumentService) authorizeRead(ctx context.Context, actor domain.Actor, supplierID string) error {
	if actor.CompanyID == supplierID {
		return nil
	}
	if !security.IsBrandRole(security.Role(actor.Role)) {
		return domain.Forbiddenf("access to another supplier's documents is not allowed")
	}

	rel, err := s.relationships.FindActiveByPair(ctx, actor.CompanyID, supplierID)
	if err != nil {
		return err
	}
	if rel == nil || !rel.DocumentSharingConsent {
		return domain.Forbiddenf("the supplier has not shared documents with your company")
	}
	return nil
}

func (s *DocumentService) view(d *domain.SupplierDocument) *DocumentView {
	return &DocumentView{
		SupplierDocument: d,
		Status:           compliance.StatusWithWindow(d.ExpiresAt, d.HasFile(), s.now(), s.window),
	}
}

// summaryInput carries only what the status derivation needs from a row.
// Derived statuses are never serialized.
type summaryInput struct {
	ExpiresAt *time.Time `json:"expiresAt"`
	HasFile   bool       `json:"hasFile"`
}

func documentsCacheKey(supplierID string) string {
	return fmt.Sprintf("compliance:docs:%s", supplierID)
}

// summaryInputs loads a supplier's rows, through the cache when fresh.
func (s *DocumentService) summaryInputs(ctx context.Context, supplierID string) ([]summaryInput, error) {
	key := documentsCacheKey(supplierID)
	if raw, ok := s.cache.Get(ctx, key); ok {
		var inputs []summaryInput
		if err := json.Unmarshal(raw, &inputs); err == nil {
			return inputs, nil
		}
	}

	docs, err := s.documents.List(ctx, supplierID, "")
	if err != nil {
		return nil, err
	}
	inputs := make([]summaryInput, 0, len(docs))
	for _, d := range docs {
		inputs = append(inputs, summaryInput{ExpiresAt: d.ExpiresAt, HasFile: d.HasFile()})
	}

	if raw, err := json.Marshal(inputs); err == nil {
		s.cache.Set(ctx, key, raw, s.cacheTTL)
	}
	return inputs, nil
}

func (s *DocumentService) invalidateSummary(ctx context.Context, supplierID string) {
	s.cache.Delete(ctx, documentsCacheKey(supplierID))
}
