package knowledge

import (
	"context"
	"encoding/json"
	"math"
	"sort"
	"sync"

	"cnb.cool/zhiqiangwang/pkg/logx"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

const (
	// DefaultSimilarityThreshold 语义检索的相似度下限，按当前向量模型标定
	DefaultSimilarityThreshold = 0.7
	// keywordFallbackScore 关键词兜底结果的合成相似度
	keywordFallbackScore = 0.5
	// fallbackChunkChars 关键词兜底结果取正文前缀的长度
	fallbackChunkChars = 500
)

// Retriever 知识检索器
type Retriever struct {
	store      *Store
	embedder   Embedder
	threshold  float64
	maxResults int
}

// NewRetriever 创建知识检索器
func NewRetriever(store *Store, embedder Embedder, threshold float64, maxResults int) *Retriever {
	if threshold <= 0 {
		threshold = DefaultSimilarityThreshold
	}
	if maxResults <= 0 {
		maxResults = 5
	}
	return &Retriever{
		store:      store,
		embedder:   embedder,
		threshold:  threshold,
		maxResults: maxResults,
	}
}

// SemanticSearch 语义检索
// 向量化查询后对全部分块做线性扫描打分，只保留相似度达到阈值的结果。
// 向量库为空时返回空结果。
func (r *Retriever) SemanticSearch(ctx context.Context, query string, limit int) ([]SearchResult, error) {
	if limit <= 0 {
		limit = r.maxResults
	}

	// 1. 生成查询向量
	queryVector, err := r.embedder.Embed(ctx, query)
	if err != nil {
		return nil, err
	}

	// 2. 加载全部分块向量
	embs, err := r.store.GetAllEmbeddingsWithDocuments()
	if err != nil {
		return nil, err
	}
	if len(embs) == 0 {
		logx.Debug("No embeddings in store, semantic search returns empty")
		return []SearchResult{}, nil
	}

	// 3. 计算相似度并按阈值过滤
	var results []SearchResult
	for i := range embs {
		var chunkVector []float64
		if err := json.Unmarshal([]byte(embs[i].Embedding), &chunkVector); err != nil {
			logx.Warn("Failed to parse embedding %d: %v", embs[i].ID, err)
			continue
		}

		similarity := cosineSimilarity(queryVector, chunkVector)
		if similarity < r.threshold {
			continue
		}

		doc := embs[i].Document
		results = append(results, SearchResult{
			Document:   &doc,
			Chunk:      embs[i].ChunkText,
			ChunkIndex: embs[i].ChunkIndex,
			Similarity: similarity,
		})
	}

	// 4. 按相似度降序，取前 limit 个
	sort.Slice(results, func(i, j int) bool {
		return results[i].Similarity > results[j].Similarity
	})
	if len(results) > limit {
		results = results[:limit]
	}

	logx.Debug("Semantic search found %d results above threshold %.2f", len(results), r.threshold)
	return results, nil
}

// HybridSearch 混合检索（语义 + 关键词兜底）
// 两路检索并发执行。语义检索可能因为语料中没有过阈值的分块而空手而归，
// 关键词兜底保证 Stormy 至少拿到一些相关上下文。检索失败降级为空结果，
// 不向调用方抛错。
func (r *Retriever) HybridSearch(ctx context.Context, query string, limit int) []SearchResult {
	if limit <= 0 {
		limit = r.maxResults
	}

	var (
		wg         sync.WaitGroup
		semResults []SearchResult
		kwDocs     []model.KnowledgeDocument
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		results, err := r.SemanticSearch(ctx, query, limit)
		if err != nil {
			logx.Warn("Semantic search failed, falling back to keyword only: %v", err)
			return
		}
		semResults = results
	}()
	go func() {
		defer wg.Done()
		docs, err := r.store.SearchDocumentsByKeyword(query, limit)
		if err != nil {
			logx.Warn("Keyword search failed: %v", err)
			return
		}
		kwDocs = docs
	}()
	wg.Wait()

	results := semResults
	if len(results) > limit {
		results = results[:limit]
	}

	// 按文档去重追加关键词结果，合成相似度 0.5
	seen := make(map[uint]bool, len(results))
	for i := range results {
		seen[results[i].Document.ID] = true
	}
	for i := range kwDocs {
		if len(results) >= limit {
			break
		}
		doc := &kwDocs[i]
		if seen[doc.ID] {
			continue
		}
		seen[doc.ID] = true
		results = append(results, SearchResult{
			Document:   doc,
			Chunk:      fallbackChunk(doc),
			ChunkIndex: 0,
			Similarity: keywordFallbackScore,
		})
	}

	logx.Info("Hybrid search: semantic=%d, keyword=%d, merged=%d for query: %s",
		len(semResults), len(kwDocs), len(results), query)
	return results
}

// fallbackChunk 关键词结果没有命中分块，用描述或正文前缀充当
func fallbackChunk(doc *model.KnowledgeDocument) string {
	if doc.Description != "" {
		return doc.Description
	}
	runes := []rune(doc.Content)
	if len(runes) > fallbackChunkChars {
		return string(runes[:fallbackChunkChars])
	}
	return doc.Content
}

// cosineSimilarity 计算两个向量的余弦相似度
// 向量维度不一致或任一向量为零向量时定义为 0
func cosineSimilarity(a, b []float64) float64 {
	if len(a) != len(b) || len(a) == 0 {
		return 0
	}

	var dotProduct, normA, normB float64
	for i := range a {
		dotProduct += a[i] * b[i]
		normA += a[i] * a[i]
		normB += b[i] * b[i]
	}

	if normA == 0 || normB == 0 {
		return 0
	}

	return dotProduct / (math.Sqrt(normA) * math.Sqrt(normB))
}
