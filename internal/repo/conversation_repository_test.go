package repo

import (
	"context"
	"sync"
	"testing"

	"github.com/kaya2m/Camply-API-sub003/internal/db"
	"github.com/kaya2m/Camply-API-sub003/internal/model"

	"github.com/stretchr/testify/assert"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// racingConversationStore holds at most one row behind a unique-key check and
// forces two get-or-create callers to both miss their first read before either
// insert runs, so exactly one insert hits the duplicate-key path.
type racingConversationStore struct {
	mu      sync.Mutex
	row     *model.Conversation
	dupes   int
	barrier sync.WaitGroup
}

func newRacingConversationStore() *racingConversationStore {
	s := &racingConversationStore{}
	s.barrier.Add(2)
	return s
}

func (s *racingConversationStore) FindOne(_ context.Context, _ bson.M) (*model.Conversation, error) {
	s.mu.Lock()
	if s.row != nil {
		copied := *s.row
		s.mu.Unlock()
		return &copied, nil
	}
	s.mu.Unlock()

	// Hold both callers at the miss until each has observed it.
	s.barrier.Done()
	s.barrier.Wait()
	return nil, mongo.ErrNoDocuments
}

func (s *racingConversationStore) Create(_ context.Context, doc model.Conversation) (*mongo.InsertOneResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.row != nil {
		s.dupes++
		return nil, mongo.WriteException{WriteErrors: mongo.WriteErrors{{Code: 11000}}}
	}

	doc.ID = primitive.NewObjectID()
	s.row = &doc
	return &mongo.InsertOneResult{InsertedID: doc.ID}, nil
}

func (s *racingConversationStore) FindByID(context.Context, string) (*model.Conversation, error) {
	return nil, mongo.ErrNoDocuments
}

func (s *racingConversationStore) FindWithPagination(context.Context, bson.M, db.PaginationParams) (*db.PaginatedResult[model.Conversation], error) {
	return &db.PaginatedResult[model.Conversation]{}, nil
}

func (s *racingConversationStore) UpdateRaw(context.Context, bson.M, bson.M) (*mongo.UpdateResult, error) {
	return &mongo.UpdateResult{}, nil
}

func (s *racingConversationStore) Exists(context.Context, bson.M) (bool, error) {
	return false, nil
}

func TestGetOrCreateOneToOneConcurrentCallersConverge(t *testing.T) {
	store := newRacingConversationStore()
	r := &conversationRepository{mongoRepo: store, logger: zap.NewNop()}
	ctx := context.Background()

	var (
		wg      sync.WaitGroup
		results [2]*model.Conversation
		errs    [2]error
	)
	wg.Add(2)
	go func() {
		defer wg.Done()
		results[0], errs[0] = r.GetOrCreateOneToOne(ctx, "alice", "bob")
	}()
	go func() {
		defer wg.Done()
		results[1], errs[1] = r.GetOrCreateOneToOne(ctx, "bob", "alice")
	}()
	wg.Wait()

	assert.NoError(t, errs[0])
	assert.NoError(t, errs[1])
	assert.Equal(t, results[0].ID, results[1].ID, "both callers must converge on one row")
	assert.Equal(t, 1, store.dupes, "the losing insert must hit the unique index and re-read")
	assert.Equal(t, PairKey("alice", "bob"), results[0].PairKey)
}
