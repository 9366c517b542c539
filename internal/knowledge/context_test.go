package knowledge

import (
	"strings"
	"testing"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/model"
)

func TestFormatContextEmptyResults(t *testing.T) {
	if got := FormatSearchResultsForContext(nil, 12000); got != "" {
		t.Fatalf("expected empty string for no results, got %q", got)
	}
}

func TestFormatContextSingleDocument(t *testing.T) {
	doc := &model.KnowledgeDocument{
		Title:       "Roof inspection basics",
		Description: "Field checklist",
		DocType:     model.DocTypeMethodology,
	}
	doc.ID = 1

	results := []SearchResult{
		{Document: doc, Chunk: "Check the decking first.", ChunkIndex: 0, Similarity: 0.9},
		{Document: doc, Chunk: "Then photograph each slope.", ChunkIndex: 1, Similarity: 0.8},
	}

	got := FormatSearchResultsForContext(results, 12000)

	if !strings.HasPrefix(got, "## Roof inspection basics (methodology)\n") {
		t.Errorf("missing document header, got prefix %q", got[:50])
	}
	if !strings.Contains(got, "Field checklist\n") {
		t.Errorf("missing description")
	}
	if !strings.Contains(got, "Check the decking first.") ||
		!strings.Contains(got, "Then photograph each slope.") {
		t.Errorf("missing chunk text")
	}
	if !strings.HasSuffix(got, contextInstruction) {
		t.Errorf("instruction sentence not appended")
	}
}

func TestFormatContextReordersChunks(t *testing.T) {
	doc := &model.KnowledgeDocument{Title: "Doc", DocType: model.DocTypeProcedure}
	doc.ID = 1

	// 检索按相似度排序返回，分块顺序被打乱
	results := []SearchResult{
		{Document: doc, Chunk: "second part", ChunkIndex: 2, Similarity: 0.95},
		{Document: doc, Chunk: "first part", ChunkIndex: 1, Similarity: 0.85},
	}

	got := FormatSearchResultsForContext(results, 12000)
	if strings.Index(got, "first part") > strings.Index(got, "second part") {
		t.Errorf("chunks not restored to document order")
	}
}

func TestFormatContextGroupsByFirstSeenDocument(t *testing.T) {
	docA := &model.KnowledgeDocument{Title: "Doc A", DocType: model.DocTypeProcedure}
	docA.ID = 1
	docB := &model.KnowledgeDocument{Title: "Doc B", DocType: model.DocTypeProcedure}
	docB.ID = 2

	// 同一文档的分块被其他文档隔开，分组后应合并到首次出现的位置
	results := []SearchResult{
		{Document: docA, Chunk: "a0", ChunkIndex: 0, Similarity: 0.95},
		{Document: docB, Chunk: "b0", ChunkIndex: 0, Similarity: 0.9},
		{Document: docA, Chunk: "a1", ChunkIndex: 1, Similarity: 0.85},
	}

	got := FormatSearchResultsForContext(results, 12000)

	posA0 := strings.Index(got, "a0")
	posA1 := strings.Index(got, "a1")
	posB0 := strings.Index(got, "b0")
	if posA0 < 0 || posA1 < 0 || posB0 < 0 {
		t.Fatalf("missing chunks in output")
	}
	if !(posA0 < posA1 && posA1 < posB0) {
		t.Errorf("expected Doc A chunks together before Doc B, got a0=%d a1=%d b0=%d",
			posA0, posA1, posB0)
	}
	if strings.Count(got, "## Doc A") != 1 {
		t.Errorf("Doc A header should appear exactly once")
	}
}

func TestFormatContextBudgetTruncation(t *testing.T) {
	docA := &model.KnowledgeDocument{Title: "Doc A", DocType: model.DocTypeProcedure}
	docA.ID = 1
	docB := &model.KnowledgeDocument{Title: "Doc B", DocType: model.DocTypeProcedure}
	docB.ID = 2

	results := []SearchResult{
		{Document: docA, Chunk: strings.Repeat("a", 300), ChunkIndex: 0, Similarity: 0.9},
		{Document: docB, Chunk: strings.Repeat("b", 300), ChunkIndex: 0, Similarity: 0.8},
	}

	budget := 400
	got := FormatSearchResultsForContext(results, budget)

	// 输出不超过预算加固定指令的长度
	maxLen := budget + len([]rune(contextInstruction))
	if n := len([]rune(got)); n > maxLen {
		t.Errorf("output length %d exceeds budget cap %d", n, maxLen)
	}
	// 第二个文档被截断并以省略号结尾
	if !strings.Contains(got, "..."+contextInstruction) {
		t.Errorf("truncated section should end with ellipsis before the instruction")
	}
	if !strings.HasSuffix(got, contextInstruction) {
		t.Errorf("instruction sentence must always be appended")
	}
}

func TestFormatContextSkipsDescriptionWhenEmpty(t *testing.T) {
	doc := &model.KnowledgeDocument{Title: "Bare doc", DocType: model.DocTypeOther}
	doc.ID = 1

	got := FormatSearchResultsForContext([]SearchResult{
		{Document: doc, Chunk: "only chunk", ChunkIndex: 0, Similarity: 0.9},
	}, 12000)

	if !strings.HasPrefix(got, "## Bare doc (other)\n\nonly chunk") {
		t.Errorf("unexpected section layout: %q", got[:40])
	}
}
