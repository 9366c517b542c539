package knowledge

import (
	"context"
	"encoding/json"
	"fmt"
	"math"
	"strings"
	"testing"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// mustAddEmbedding 为文档插入一个分块向量
func mustAddEmbedding(t *testing.T, store *Store, docID uint, idx int, vec []float64, text string) {
	t.Helper()
	data, err := json.Marshal(vec)
	if err != nil {
		t.Fatalf("failed to marshal vector: %v", err)
	}
	if text == "" {
		text = fmt.Sprintf("chunk %d of document %d", idx, docID)
	}
	emb := &model.KnowledgeEmbedding{
		DocumentID: docID,
		ChunkIndex: idx,
		ChunkText:  text,
		Embedding:  string(data),
		TokenCount: len(text) / 4,
	}
	if err := store.CreateEmbedding(emb); err != nil {
		t.Fatalf("failed to create embedding: %v", err)
	}
}

func TestCosineSimilarity(t *testing.T) {
	tests := []struct {
		name string
		a, b []float64
		want float64
	}{
		{"identical", []float64{0.1, 0.2, 0.3}, []float64{0.1, 0.2, 0.3}, 1},
		{"orthogonal", []float64{1, 0}, []float64{0, 1}, 0},
		{"opposite", []float64{1, 0}, []float64{-1, 0}, -1},
		{"length mismatch", []float64{1, 2}, []float64{1, 2, 3}, 0},
		{"zero vector", []float64{0, 0, 0}, []float64{1, 2, 3}, 0},
		{"both empty", nil, nil, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := cosineSimilarity(tt.a, tt.b)
			if math.Abs(got-tt.want) > 1e-9 {
				t.Errorf("cosineSimilarity = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestCosineSimilaritySymmetric(t *testing.T) {
	a := []float64{0.3, -0.5, 0.8}
	b := []float64{0.1, 0.9, -0.2}
	if cosineSimilarity(a, b) != cosineSimilarity(b, a) {
		t.Errorf("cosine similarity is not symmetric")
	}
}

func TestSemanticSearchEmptyStore(t *testing.T) {
	store := newTestStore(t)
	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)

	results, err := r.SemanticSearch(context.Background(), "hail damage", 5)
	if err != nil {
		t.Fatalf("SemanticSearch failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("expected empty results, got %d", len(results))
	}
}

func TestSemanticSearchThresholdFilter(t *testing.T) {
	store := newTestStore(t)

	// fakeEmbedder 默认查询向量为 {0.1, 0.2, 0.3}
	match := mustCreateDoc(t, store, &model.KnowledgeDocument{Title: "Hail inspection checklist"})
	miss := mustCreateDoc(t, store, &model.KnowledgeDocument{Title: "Unrelated memo"})
	mustAddEmbedding(t, store, match.ID, 0, []float64{0.1, 0.2, 0.3}, "inspect the roof decking")
	mustAddEmbedding(t, store, miss.ID, 0, []float64{1, 1, -1}, "lunch menu") // 与查询向量正交

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results, err := r.SemanticSearch(context.Background(), "hail damage", 5)
	if err != nil {
		t.Fatalf("SemanticSearch failed: %v", err)
	}

	if len(results) != 1 {
		t.Fatalf("expected 1 result above threshold, got %d", len(results))
	}
	if results[0].Document.ID != match.ID {
		t.Errorf("expected document %d, got %d", match.ID, results[0].Document.ID)
	}
	if results[0].Similarity < 0.99 {
		t.Errorf("expected similarity ~1, got %v", results[0].Similarity)
	}
	if results[0].Chunk != "inspect the roof decking" {
		t.Errorf("unexpected chunk text: %q", results[0].Chunk)
	}
}

func TestSemanticSearchSkipsDisabledDocuments(t *testing.T) {
	store := newTestStore(t)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{Title: "Disabled doc"})
	mustAddEmbedding(t, store, doc.ID, 0, []float64{0.1, 0.2, 0.3}, "")
	if err := store.SetDocumentEnabled(doc.ID, false); err != nil {
		t.Fatalf("failed to disable document: %v", err)
	}

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results, err := r.SemanticSearch(context.Background(), "anything", 5)
	if err != nil {
		t.Fatalf("SemanticSearch failed: %v", err)
	}
	if len(results) != 0 {
		t.Fatalf("disabled document should not be searchable, got %d results", len(results))
	}
}

func TestSemanticSearchLimitAndOrder(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 3; i++ {
		doc := mustCreateDoc(t, store, &model.KnowledgeDocument{Title: fmt.Sprintf("Doc %d", i)})
		// 相似度递减：i=0 完全对齐，之后逐渐偏离
		vec := []float64{0.1, 0.2, 0.3 + float64(i)*0.2}
		mustAddEmbedding(t, store, doc.ID, 0, vec, "")
	}

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results, err := r.SemanticSearch(context.Background(), "query", 2)
	if err != nil {
		t.Fatalf("SemanticSearch failed: %v", err)
	}

	if len(results) != 2 {
		t.Fatalf("expected limit of 2 results, got %d", len(results))
	}
	if results[0].Similarity < results[1].Similarity {
		t.Errorf("results not sorted by similarity descending: %v < %v",
			results[0].Similarity, results[1].Similarity)
	}
}

func TestHybridSearchKeywordFallback(t *testing.T) {
	store := newTestStore(t)

	// 没有任何向量过阈值，但标题命中关键词
	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:       "Xactimate pricing guide",
		Description: "How to line-item roof replacements",
	})
	if _, err := store.ApproveDocument(doc.ID, AuditMeta{Actor: "admin"}); err != nil {
		t.Fatalf("failed to approve document: %v", err)
	}

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results := r.HybridSearch(context.Background(), "Xactimate", 5)

	if len(results) != 1 {
		t.Fatalf("expected exactly 1 keyword fallback result, got %d", len(results))
	}
	if results[0].Document.ID != doc.ID {
		t.Errorf("expected document %d, got %d", doc.ID, results[0].Document.ID)
	}
	if results[0].Similarity != keywordFallbackScore {
		t.Errorf("expected fallback similarity %v, got %v", keywordFallbackScore, results[0].Similarity)
	}
	if results[0].Chunk != doc.Description {
		t.Errorf("fallback chunk should be the description, got %q", results[0].Chunk)
	}
}

func TestHybridSearchKeywordRequiresApproval(t *testing.T) {
	store := newTestStore(t)

	// 未审批文档不应出现在关键词兜底里
	mustCreateDoc(t, store, &model.KnowledgeDocument{Title: "Xactimate pricing guide"})

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results := r.HybridSearch(context.Background(), "Xactimate", 5)
	if len(results) != 0 {
		t.Fatalf("unapproved document leaked into keyword results: %d", len(results))
	}
}

func TestHybridSearchDeduplicatesByDocument(t *testing.T) {
	store := newTestStore(t)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{Title: "Hail damage assessment"})
	if _, err := store.ApproveDocument(doc.ID, AuditMeta{Actor: "admin"}); err != nil {
		t.Fatalf("failed to approve document: %v", err)
	}
	mustAddEmbedding(t, store, doc.ID, 0, []float64{0.1, 0.2, 0.3}, "semantic chunk")

	// 语义和关键词都命中同一文档，结果只保留语义那条
	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results := r.HybridSearch(context.Background(), "Hail", 5)

	if len(results) != 1 {
		t.Fatalf("expected 1 deduplicated result, got %d", len(results))
	}
	if results[0].Similarity == keywordFallbackScore {
		t.Errorf("semantic hit should win over keyword fallback")
	}
	if results[0].Chunk != "semantic chunk" {
		t.Errorf("expected semantic chunk, got %q", results[0].Chunk)
	}
}

func TestHybridSearchRespectsLimit(t *testing.T) {
	store := newTestStore(t)

	for i := 0; i < 4; i++ {
		doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
			Title: fmt.Sprintf("Hail report %d", i),
		})
		if _, err := store.ApproveDocument(doc.ID, AuditMeta{Actor: "admin"}); err != nil {
			t.Fatalf("failed to approve document: %v", err)
		}
		mustAddEmbedding(t, store, doc.ID, 0, []float64{0.1, 0.2, 0.3}, "")
	}

	r := NewRetriever(store, &fakeEmbedder{}, 0.7, 5)
	results := r.HybridSearch(context.Background(), "Hail", 2)
	if len(results) != 2 {
		t.Fatalf("expected 2 results, got %d", len(results))
	}
}

func TestHybridSearchDegradesOnEmbedderFailure(t *testing.T) {
	store := newTestStore(t)

	doc := mustCreateDoc(t, store, &model.KnowledgeDocument{
		Title:       "Supplement negotiation playbook",
		Description: "Carrier pushback scripts",
	})
	if _, err := store.ApproveDocument(doc.ID, AuditMeta{Actor: "admin"}); err != nil {
		t.Fatalf("failed to approve document: %v", err)
	}

	// 向量化失败时混合检索退化为纯关键词，不报错
	failing := &fakeEmbedder{fn: func(int, string) ([]float64, error) {
		return nil, fmt.Errorf("embedding provider unavailable")
	}}
	r := NewRetriever(store, failing, 0.7, 5)
	results := r.HybridSearch(context.Background(), "negotiation", 5)

	if len(results) != 1 {
		t.Fatalf("expected keyword-only result, got %d", len(results))
	}
	if results[0].Similarity != keywordFallbackScore {
		t.Errorf("expected fallback similarity, got %v", results[0].Similarity)
	}
}

func TestFallbackChunkUsesContentPrefix(t *testing.T) {
	doc := &model.KnowledgeDocument{
		Content: strings.Repeat("a", 600),
	}
	chunk := fallbackChunk(doc)
	if len([]rune(chunk)) != fallbackChunkChars {
		t.Errorf("expected %d-char content prefix, got %d", fallbackChunkChars, len([]rune(chunk)))
	}

	doc.Description = "short description"
	if got := fallbackChunk(doc); got != "short description" {
		t.Errorf("description should take precedence, got %q", got)
	}
}
