package knowledge

import (
	"fmt"
	"sort"
	"strings"
)

// DefaultContextBudget 上下文拼装的字符预算
const DefaultContextBudget = 12000

// contextInstruction 附在上下文末尾的固定指令
const contextInstruction = "\n\nUse the knowledge base material above as your primary source and prefer it over your general knowledge when answering."

// FormatSearchResultsForContext 把检索结果拼装成注入系统提示词的文本块
// 按来源文档分组，组内按分块顺序还原原文次序；累计字符数超出预算时
// 不再加入新文档，最后一个超限的文档截断并补省略号，保证输出不超预算。
// 结果为空时返回空串。
func FormatSearchResultsForContext(results []SearchResult, budget int) string {
	if len(results) == 0 {
		return ""
	}
	if budget <= 0 {
		budget = DefaultContextBudget
	}

	// 按文档分组，保持首次出现的顺序
	var order []uint
	groups := make(map[uint][]SearchResult)
	for _, res := range results {
		id := res.Document.ID
		if _, ok := groups[id]; !ok {
			order = append(order, id)
		}
		groups[id] = append(groups[id], res)
	}

	var b strings.Builder
	used := 0
	for _, id := range order {
		group := groups[id]
		// 检索可能乱序返回，按分块下标还原文档内的先后
		sort.Slice(group, func(i, j int) bool {
			return group[i].ChunkIndex < group[j].ChunkIndex
		})

		section := formatSection(group)
		sectionLen := len([]rune(section))

		if used+sectionLen > budget {
			remaining := budget - used
			if remaining > 3 {
				runes := []rune(section)
				b.WriteString(string(runes[:remaining-3]))
				b.WriteString("...")
			}
			break
		}

		b.WriteString(section)
		used += sectionLen
	}

	b.WriteString(contextInstruction)
	return b.String()
}

// formatSection 拼装单个文档的小节
func formatSection(group []SearchResult) string {
	doc := group[0].Document

	var b strings.Builder
	b.WriteString(fmt.Sprintf("## %s (%s)\n", doc.Title, doc.DocType))
	if doc.Description != "" {
		b.WriteString(doc.Description)
		b.WriteString("\n")
	}
	b.WriteString("\n")
	for _, res := range group {
		b.WriteString(res.Chunk)
		b.WriteString("\n\n")
	}
	return b.String()
}
