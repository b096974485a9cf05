// Package articles owns article records, the visibility policy gating them,
// and the debounced view counter.
package articles

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"go.uber.org/zap"
	"gorm.io/gorm"

	"github.com/inkpress/inkpress/backend/internal/apperrors"
	"github.com/inkpress/inkpress/backend/internal/kvstore"
)

const (
	// DefaultViewDebounceTTL is how long repeat views from the same client
	// are suppressed.
	DefaultViewDebounceTTL = 15 * time.Minute

	viewMarkerKeyFormat = "article_view:%s:%s"
)

var (
	errMissingDatabase   = errors.New("articles: database handle is required")
	errMissingKVStore    = errors.New("articles: key-value store is required")
	errMissingIDProvider = errors.New("articles: id provider is required")
)

// IDProvider issues surrogate identifiers for new articles.
type IDProvider interface {
	NewID() (string, error)
}

// ServiceConfig describes the dependencies required by the article service.
type ServiceConfig struct {
	Database        *gorm.DB
	KVStore         kvstore.Store
	IDProvider      IDProvider
	ViewDebounceTTL time.Duration
	Clock           func() time.Time
	Logger          *zap.Logger
}

// Service manages article CRUD, enforces the access policy, and records
// debounced views.
type Service struct {
	db          *gorm.DB
	kv          kvstore.Store
	idProvider  IDProvider
	debounceTTL time.Duration
	clock       func() time.Time
	logger      *zap.Logger
}

// NewService constructs the article service.
func NewService(cfg ServiceConfig) (*Service, error) {
	if cfg.Database == nil {
		return nil, errMissingDatabase
	}
	if cfg.KVStore == nil {
		return nil, errMissingKVStore
	}
	if cfg.IDProvider == nil {
		return nil, errMissingIDProvider
	}
	debounceTTL := cfg.ViewDebounceTTL
	if debounceTTL <= 0 {
		debounceTTL = DefaultViewDebounceTTL
	}
	clock := cfg.Clock
	if clock == nil {
		clock = time.Now
	}
	logger := cfg.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		db:          cfg.Database,
		kv:          cfg.KVStore,
		idProvider:  cfg.IDProvider,
		debounceTTL: debounceTTL,
		clock:       clock,
		logger:      logger,
	}, nil
}

// Create stores a new unpublished article with an empty body. The author is
// always the authenticated caller, never client input.
func (s *Service) Create(ctx context.Context, authorID, title string) (*Article, error) {
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}

	id, err := s.idProvider.NewID()
	if err != nil {
		return nil, fmt.Errorf("articles: generating article id: %w", err)
	}

	now := s.clock().UTC()
	article := &Article{
		ID:           id,
		AuthorID:     authorID,
		CreationTime: now,
		UpdateTime:   now,
		Title:        trimmedTitle,
		BodyJSON:     "[]",
		IsPublished:  false,
	}
	if err := s.db.WithContext(ctx).Create(article).Error; err != nil {
		return nil, fmt.Errorf("articles: creating article: %w", err)
	}

	s.logger.Info("article created",
		zap.String("article_id", article.ID),
		zap.String("author_id", authorID))
	return article, nil
}

// GetByID returns the article when the caller may read it. callerID is empty
// for anonymous callers. Missing articles report not-found; existing but
// private articles report access-denied to non-authors.
func (s *Service) GetByID(ctx context.Context, callerID, id string) (*Article, error) {
	article, err := s.fetch(ctx, s.db, id)
	if err != nil {
		return nil, err
	}
	if !CanRead(callerID, article) {
		return nil, apperrors.ErrAccessDenied
	}
	return article, nil
}

// ListIDsByAuthor returns the ids of the author's articles, newest first.
// The author sees everything; every other caller sees published ids only.
// Filtering, never denial.
func (s *Service) ListIDsByAuthor(ctx context.Context, callerID, authorID string) ([]string, error) {
	query := s.db.WithContext(ctx).Model(&Article{}).
		Where("author_id = ?", authorID).
		Order("creation_time DESC")
	if callerID != authorID {
		query = query.Where("is_published = ?", true)
	}

	var ids []string
	if err := query.Pluck("id", &ids).Error; err != nil {
		return nil, fmt.Errorf("articles: listing articles for author %s: %w", authorID, err)
	}
	if ids == nil {
		ids = []string{}
	}
	return ids, nil
}

// Update replaces title, body, and publication flag. Only the author may
// update; id, author, timestamps, and counters are server-controlled.
func (s *Service) Update(ctx context.Context, callerID, id, title string, body []Block, isPublished bool) (*Article, error) {
	trimmedTitle, err := validateTitle(title)
	if err != nil {
		return nil, err
	}
	if err := ValidateBlocks(body); err != nil {
		return nil, apperrors.ErrInvalidInputFormat.WithDetails(err.Error())
	}
	bodyJSON, err := EncodeBody(body)
	if err != nil {
		return nil, err
	}

	var article *Article
	txErr := s.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		article, err = s.fetch(ctx, tx, id)
		if err != nil {
			return err
		}
		if !CanUpdate(callerID, article) {
			return apperrors.ErrAccessDenied
		}

		now := s.clock().UTC()
		updates := map[string]interface{}{
			"title":        trimmedTitle,
			"body_json":    bodyJSON,
			"is_published": isPublished,
			"update_time":  now,
		}
		if err := tx.Model(&Article{}).Where("id = ?", id).Updates(updates).Error; err != nil {
			return fmt.Errorf("articles: updating article %s: %w", id, err)
		}

		article.Title = trimmedTitle
		article.BodyJSON = bodyJSON
		article.IsPublished = isPublished
		article.UpdateTime = now
		return nil
	})
	if txErr != nil {
		return nil, txErr
	}
	return article, nil
}

// RecordView increments the article's view counter once per client within
// the debounce window. The check-then-set against the marker store is racy
// under concurrent identical requests; the counter is soft, so an occasional
// double increment is accepted.
func (s *Service) RecordView(ctx context.Context, articleID, clientKey string) error {
	if clientKey == "" {
		return nil
	}

	key := fmt.Sprintf(viewMarkerKeyFormat, clientKey, articleID)
	_, present, err := s.kv.Get(ctx, key)
	if err != nil {
		return fmt.Errorf("articles: checking view marker: %w", err)
	}
	if present {
		return nil
	}

	if err := s.kv.Set(ctx, key, "1", s.debounceTTL); err != nil {
		return fmt.Errorf("articles: setting view marker: %w", err)
	}

	// UpdateColumn keeps update_time untouched; a view is not an edit.
	err = s.db.WithContext(ctx).Model(&Article{}).
		Where("id = ?", articleID).
		UpdateColumn("views_count", gorm.Expr("views_count + 1")).Error
	if err != nil {
		return fmt.Errorf("articles: incrementing views for article %s: %w", articleID, err)
	}
	return nil
}

func (s *Service) fetch(ctx context.Context, db *gorm.DB, id string) (*Article, error) {
	var article Article
	err := db.WithContext(ctx).Where("id = ?", id).Take(&article).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		return nil, apperrors.ErrContentNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("articles: fetching article %s: %w", id, err)
	}
	return &article, nil
}

func validateTitle(title string) (string, error) {
	trimmed := strings.TrimSpace(title)
	if trimmed == "" || len(trimmed) > maxTitleLength {
		return "", apperrors.ErrInvalidInputFormat.WithDetails("Title must be between 1 and 150 characters")
	}
	return trimmed, nil
}
