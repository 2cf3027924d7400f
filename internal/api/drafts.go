package api

import (
	"context"
	"errors"
	"fmt"
	"time"

	"findmysecurity/internal/common/database"
	"findmysecurity/internal/common/logger"
	filterstate "findmysecurity/internal/listing/filter-state"
	"findmysecurity/internal/models"
)

var ErrDraftNotFound = errors.New("DRAFT_NOT_FOUND")

// DraftStore keeps the last query a signed-in user navigated to on each page.
type DraftStore struct {
	redis  *database.RedisClient
	ttl    time.Duration
	logger logger.Logger
}

func NewDraftStore(redis *database.RedisClient, ttl time.Duration, log logger.Logger) *DraftStore {
	return &DraftStore{redis: redis, ttl: ttl, logger: logger.ForComponent(log, "drafts")}
}

func draftKey(userID string, entity models.EntityType) string {
	return fmt.Sprintf("draft:%s:%s", userID, entity)
}

func (d *DraftStore) Save(ctx context.Context, userID string, entity models.EntityType, query string) error {
	return d.redis.Set(ctx, draftKey(userID, entity), query, d.ttl)
}

func (d *DraftStore) Load(ctx context.Context, userID string, entity models.EntityType) (string, error) {
	query, err := d.redis.Get(ctx, draftKey(userID, entity))
	if errors.Is(err, database.ErrCacheMiss) {
		return "", ErrDraftNotFound
	}
	return query, err
}

// For binds the store to one user for the lifetime of ctx.
func (d *DraftStore) For(ctx context.Context, userID string) filterstate.DraftSaver {
	return &userDrafts{store: d, ctx: ctx, userID: userID}
}

type userDrafts struct {
	store  *DraftStore
	ctx    context.Context
	userID string
}

// SaveDraft never fails the mutation; a lost draft is only logged.
func (u *userDrafts) SaveDraft(entity models.EntityType, query string) {
	if err := u.store.Save(u.ctx, u.userID, entity, query); err != nil {
		u.store.logger.Warn("failed to save draft", map[string]interface{}{
			"userId": u.userID,
			"entity": string(entity),
			"error":  err.Error(),
		})
	}
}
