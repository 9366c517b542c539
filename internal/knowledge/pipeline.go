package knowledge

import (
	"context"
	"encoding/json"
	"strings"

	"cnb.cool/zhiqiangwang/pkg/logx"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

// Pipeline 文档向量化流水线：分块 -> 逐块向量化 -> 持久化
type Pipeline struct {
	store        *Store
	embedder     Embedder
	chunkSize    int
	chunkOverlap int
}

// NewPipeline 创建向量化流水线
func NewPipeline(store *Store, embedder Embedder, chunkSize, chunkOverlap int) *Pipeline {
	if chunkSize <= 0 {
		chunkSize = DefaultChunkSize
	}
	if chunkOverlap <= 0 {
		chunkOverlap = DefaultChunkOverlap
	}
	return &Pipeline{
		store:        store,
		embedder:     embedder,
		chunkSize:    chunkSize,
		chunkOverlap: chunkOverlap,
	}
}

// GenerateDocumentEmbeddings 为文档生成向量
// 文档不存在或没有文本内容时快速返回 false；重新生成前先整体删除旧向量，
// 保证可以幂等地重复处理。任何一块失败都会把文档标记为 failed 并返回 false，
// 此前已写入的分块保留（部分可检索优于完全不可检索）。
// 调用方永远不会从这个入口收到 error。
func (p *Pipeline) GenerateDocumentEmbeddings(ctx context.Context, docID uint) bool {
	doc, err := p.store.GetDocumentByID(docID)
	if err != nil {
		logx.Warn("Skip embedding generation, document %d not found: %v", docID, err)
		return false
	}

	if strings.TrimSpace(doc.Content) == "" {
		logx.Warn("Skip embedding generation, document %d has no text content", docID)
		return false
	}

	// 删除旧向量，重新审批时整体重建
	if err := p.store.DeleteEmbeddingsByDocument(docID); err != nil {
		p.markFailed(docID, err.Error(), 0)
		return false
	}

	// 标题和描述只在全文前拼一次，作为每个分块邻域的相关性增强
	text := buildEmbeddingText(doc)
	chunks := Chunk(text, p.chunkSize, p.chunkOverlap)
	if len(chunks) == 0 {
		logx.Warn("Document %d produced no chunks, nothing to embed", docID)
		return false
	}

	count := 0
	for i, chunk := range chunks {
		vector, err := p.embedder.Embed(ctx, chunk)
		if err != nil {
			logx.Error("Embedding failed for document %d chunk %d: %v", docID, i, err)
			p.markFailed(docID, err.Error(), count)
			return false
		}

		vecJSON, err := json.Marshal(vector)
		if err != nil {
			p.markFailed(docID, err.Error(), count)
			return false
		}

		emb := &model.KnowledgeEmbedding{
			DocumentID: docID,
			ChunkIndex: i,
			ChunkText:  chunk,
			Embedding:  string(vecJSON),
			TokenCount: approxTokenCount(chunk),
		}
		if err := p.store.CreateEmbedding(emb); err != nil {
			logx.Error("Failed to persist embedding for document %d chunk %d: %v", docID, i, err)
			p.markFailed(docID, err.Error(), count)
			return false
		}
		count++
	}

	if err := p.store.UpdateProcessingStatus(docID, model.ProcessingCompleted, "", count); err != nil {
		logx.Error("Failed to update processing status for document %d: %v", docID, err)
	}

	logx.Info("✅ Generated %d embeddings for document %d (%s)", count, docID, doc.Title)
	return true
}

// markFailed 记录失败状态和错误信息
func (p *Pipeline) markFailed(docID uint, errMsg string, count int) {
	if err := p.store.UpdateProcessingStatus(docID, model.ProcessingFailed, errMsg, count); err != nil {
		logx.Error("Failed to mark document %d as failed: %v", docID, err)
	}
}

// buildEmbeddingText 拼装用于向量化的全文
func buildEmbeddingText(doc *model.KnowledgeDocument) string {
	parts := []string{doc.Title}
	if doc.Description != "" {
		parts = append(parts, doc.Description)
	}
	parts = append(parts, doc.Content)
	return strings.Join(parts, "\n\n")
}

// approxTokenCount 估算 token 数（约 4 字符一个 token）
func approxTokenCount(text string) int {
	n := len([]rune(text)) / 4
	if n < 1 {
		n = 1
	}
	return n
}
