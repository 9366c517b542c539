package knowledge

import (
	"context"
	"fmt"
	"strings"
	"testing"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

func TestGenerateEmbeddingsEndToEnd(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{}
	pipeline := NewPipeline(store, embedder, 1000, 200)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:       "Hail damage assessment",
		Description: "How to document hail impact",
		Content:     strings.Repeat("The decking showed circular impact marks. ", 40), // ~1680 字符
	})

	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), doc.ID); !ok {
		t.Fatal("expected embedding generation to succeed")
	}

	embs, err := store.GetEmbeddingsByDocument(doc.ID)
	if err != nil {
		t.Fatalf("failed to load embeddings: %v", err)
	}
	if len(embs) < 2 {
		t.Fatalf("expected >=2 chunks for long content, got %d", len(embs))
	}
	for i, emb := range embs {
		if emb.ChunkIndex != i {
			t.Errorf("chunk indexes not contiguous: position %d has index %d", i, emb.ChunkIndex)
		}
		if emb.ChunkText == "" {
			t.Errorf("chunk %d has empty text", i)
		}
		if emb.TokenCount < 1 {
			t.Errorf("chunk %d has no token estimate", i)
		}
	}

	updated, err := store.GetDocumentByID(doc.ID)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	if updated.ProcessingStatus != model.ProcessingCompleted {
		t.Errorf("expected status %q, got %q", model.ProcessingCompleted, updated.ProcessingStatus)
	}
	if updated.EmbeddingCount != len(embs) {
		t.Errorf("embedding_count %d does not match stored rows %d", updated.EmbeddingCount, len(embs))
	}
	if updated.ProcessingError != "" {
		t.Errorf("unexpected processing error: %q", updated.ProcessingError)
	}
}

func TestGenerateEmbeddingsMissingDocument(t *testing.T) {
	store := newTestStore(t)
	pipeline := NewPipeline(store, &fakeEmbedder{}, 1000, 200)

	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), 999); ok {
		t.Fatal("expected false for missing document")
	}
}

func TestGenerateEmbeddingsEmptyContent(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{}
	pipeline := NewPipeline(store, embedder, 1000, 200)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:   "Audio recording placeholder",
		Content: "   \n\t ",
	})

	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), doc.ID); ok {
		t.Fatal("expected false for document without text content")
	}
	if embedder.calls != 0 {
		t.Errorf("embedder should not be called, got %d calls", embedder.calls)
	}

	embs, err := store.GetEmbeddingsByDocument(doc.ID)
	if err != nil {
		t.Fatalf("failed to load embeddings: %v", err)
	}
	if len(embs) != 0 {
		t.Errorf("expected no embedding rows, got %d", len(embs))
	}
}

func TestGenerateEmbeddingsPartialFailure(t *testing.T) {
	store := newTestStore(t)
	// 第二块向量化失败
	embedder := &fakeEmbedder{fn: func(call int, _ string) ([]float64, error) {
		if call == 2 {
			return nil, fmt.Errorf("rate limited")
		}
		return []float64{0.1, 0.2, 0.3}, nil
	}}
	pipeline := NewPipeline(store, embedder, 1000, 200)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:   "Long methodology",
		Content: strings.Repeat("Measure the slope before climbing onto the roof. ", 40),
	})

	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), doc.ID); ok {
		t.Fatal("expected false when a chunk fails to embed")
	}

	updated, err := store.GetDocumentByID(doc.ID)
	if err != nil {
		t.Fatalf("failed to reload document: %v", err)
	}
	if updated.ProcessingStatus != model.ProcessingFailed {
		t.Errorf("expected status %q, got %q", model.ProcessingFailed, updated.ProcessingStatus)
	}
	if !strings.Contains(updated.ProcessingError, "rate limited") {
		t.Errorf("processing error should carry the cause, got %q", updated.ProcessingError)
	}

	// 失败前已写入的分块保留
	embs, err := store.GetEmbeddingsByDocument(doc.ID)
	if err != nil {
		t.Fatalf("failed to load embeddings: %v", err)
	}
	if len(embs) != 1 {
		t.Fatalf("expected the first chunk to remain persisted, got %d rows", len(embs))
	}
	if embs[0].ChunkIndex != 0 {
		t.Errorf("expected chunk index 0, got %d", embs[0].ChunkIndex)
	}
	if updated.EmbeddingCount != 1 {
		t.Errorf("embedding_count should reflect persisted rows, got %d", updated.EmbeddingCount)
	}
}

func TestGenerateEmbeddingsReplacesOldVectors(t *testing.T) {
	store := newTestStore(t)
	embedder := &fakeEmbedder{}
	pipeline := NewPipeline(store, embedder, 1000, 200)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:   "Versioned doc",
		Content: strings.Repeat("Original content about shingle matching. ", 10),
	})

	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), doc.ID); !ok {
		t.Fatal("first generation failed")
	}

	// 编辑正文后重新生成，旧分块应整体替换而不是追加
	if err := store.db.Model(&model.KnowledgeDocument{}).
		Where("id = ?", doc.ID).
		Update("content", strings.Repeat("Revised content about drip edge installation. ", 10)).Error; err != nil {
		t.Fatalf("failed to update content: %v", err)
	}
	if ok := pipeline.GenerateDocumentEmbeddings(context.Background(), doc.ID); !ok {
		t.Fatal("second generation failed")
	}

	second, err := store.GetEmbeddingsByDocument(doc.ID)
	if err != nil {
		t.Fatalf("failed to load embeddings: %v", err)
	}
	if len(second) != 1 {
		t.Fatalf("expected 1 chunk after regeneration, got %d", len(second))
	}
	if strings.Contains(second[0].ChunkText, "shingle matching") {
		t.Errorf("old chunk text survived regeneration")
	}
	if !strings.Contains(second[0].ChunkText, "drip edge") {
		t.Errorf("regenerated chunk missing revised content: %q", second[0].ChunkText)
	}
}

func TestBuildEmbeddingText(t *testing.T) {
	doc := &model.KnowledgeDocument{
		Title:       "Title",
		Description: "Desc",
		Content:     "Body",
	}
	if got := buildEmbeddingText(doc); got != "Title\n\nDesc\n\nBody" {
		t.Errorf("unexpected embedding text: %q", got)
	}

	doc.Description = ""
	if got := buildEmbeddingText(doc); got != "Title\n\nBody" {
		t.Errorf("description should be skipped when empty, got %q", got)
	}
}

func TestApproxTokenCount(t *testing.T) {
	if got := approxTokenCount("ab"); got != 1 {
		t.Errorf("short text should estimate at least 1 token, got %d", got)
	}
	if got := approxTokenCount(strings.Repeat("a", 400)); got != 100 {
		t.Errorf("expected 100 tokens for 400 chars, got %d", got)
	}
}
