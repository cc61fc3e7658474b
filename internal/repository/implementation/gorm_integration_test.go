package implementation

import (
	"context"
	"log"
	"os"
	"testing"

	"ragone-be/internal/entity"
	"ragone-be/internal/model"
	"ragone-be/internal/repository/specification"
	"ragone-be/pkg/database"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

// openTestDB needs a Postgres with pgvector; the tests skip without one.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	if err := godotenv.Load("../../../.env"); err != nil {
		log.Println("No .env file found, using system env")
	}
	dsn := os.Getenv("DB_CONNECTION_STRING")
	if dsn == "" {
		t.Skip("Skipping integration test: DB_CONNECTION_STRING not set")
	}

	db, err := database.NewGormDBFromDSN(dsn)
	require.NoError(t, err)
	require.NoError(t, db.Exec(`CREATE EXTENSION IF NOT EXISTS vector`).Error)
	require.NoError(t, db.AutoMigrate(&model.KnowledgeBase{}, &model.DocumentChunk{}, &model.Character{}))
	return db
}

func unitVector(hot int) []float32 {
	v := make([]float32, 768)
	v[hot] = 1
	return v
}

func TestDocumentChunkRepository_Search(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()

	kbs := NewKnowledgeBaseRepository(db)
	chunks := NewDocumentChunkRepository(db)

	kb := &entity.KnowledgeBase{Id: uuid.New(), UserId: uuid.New(), Name: "integration"}
	require.NoError(t, kbs.Create(ctx, kb))
	t.Cleanup(func() {
		_ = chunks.DeleteByKnowledgeBaseId(ctx, kb.Id)
		db.Unscoped().Delete(&model.KnowledgeBase{}, "id = ?", kb.Id)
	})

	docId := uuid.New()
	require.NoError(t, chunks.CreateBulk(ctx, []*entity.DocumentChunk{
		{Id: uuid.New(), KnowledgeBaseId: kb.Id, DocumentId: docId, Content: "refund policy for late orders", ChunkPosition: 0, Embedding: unitVector(0)},
		{Id: uuid.New(), KnowledgeBaseId: kb.Id, DocumentId: docId, Content: "shipping times vary by region", ChunkPosition: 1, Embedding: unitVector(1)},
	}))

	t.Run("vector", func(t *testing.T) {
		res, err := chunks.SearchSimilar(ctx, kb.Id, unitVector(1), 5)
		require.NoError(t, err)
		require.Len(t, res, 2)
		assert.Equal(t, 1, res[0].Chunk.ChunkPosition)
		assert.InDelta(t, 1.0, res[0].Score, 1e-6)
	})

	t.Run("keyword", func(t *testing.T) {
		res, err := chunks.SearchKeyword(ctx, kb.Id, "refund", 5)
		require.NoError(t, err)
		require.Len(t, res, 1)
		assert.Equal(t, 0, res[0].Chunk.ChunkPosition)
	})

	t.Run("other knowledge base sees nothing", func(t *testing.T) {
		res, err := chunks.SearchSimilar(ctx, uuid.New(), unitVector(1), 5)
		require.NoError(t, err)
		assert.Empty(t, res)
	})

	t.Run("find one", func(t *testing.T) {
		found, err := kbs.FindOne(ctx, specification.ByID{ID: kb.Id}, specification.UserOwnedBy{UserID: kb.UserId})
		require.NoError(t, err)
		require.NotNil(t, found)
		assert.Equal(t, "integration", found.Name)

		missing, err := kbs.FindOne(ctx, specification.ByID{ID: kb.Id}, specification.UserOwnedBy{UserID: uuid.New()})
		require.NoError(t, err)
		assert.Nil(t, missing)
	})
}

func TestCharacterRepository_UpdateStatus(t *testing.T) {
	db := openTestDB(t)
	ctx := context.Background()
	repo := NewCharacterRepository(db)

	kb := &entity.KnowledgeBase{Id: uuid.New(), UserId: uuid.New(), Name: "characters"}
	require.NoError(t, NewKnowledgeBaseRepository(db).Create(ctx, kb))
	t.Cleanup(func() { db.Unscoped().Delete(&model.KnowledgeBase{}, "id = ?", kb.Id) })

	ch := &entity.Character{
		Id:              uuid.New(),
		UserId:          kb.UserId,
		KnowledgeBaseId: kb.Id,
		Name:            "Ada " + uuid.NewString()[:8],
		Status:          entity.CharacterStatusDraft,
	}
	require.NoError(t, repo.Create(ctx, ch))
	t.Cleanup(func() { db.Unscoped().Delete(&model.Character{}, "id = ?", ch.Id) })

	require.NoError(t, repo.UpdateStatus(ctx, ch.Id, entity.CharacterStatusActive))

	got, err := repo.FindOne(ctx, specification.ByID{ID: ch.Id})
	require.NoError(t, err)
	require.NotNil(t, got)
	assert.Equal(t, entity.CharacterStatusActive, got.Status)
	assert.Equal(t, "characters", got.KnowledgeBaseName)

	count, err := repo.Count(ctx, specification.UserOwnedBy{UserID: ch.UserId})
	require.NoError(t, err)
	assert.EqualValues(t, 1, count)
}
