package knowledge

import "strings"

const (
	// DefaultChunkSize 分块目标长度（字符）
	DefaultChunkSize = 1000
	// DefaultChunkOverlap 相邻分块重叠长度
	DefaultChunkOverlap = 200
	// minChunkChars 低于该长度的碎片直接丢弃（噪声抑制）
	minChunkChars = 50
)

// Chunk 将原始文本切分为有重叠的定长分块
// 按 targetSize 的窗口从左到右滑动，窗口未到结尾时回退到窗口后半段
// 最后一个句号或换行处断开，避免切在句子中间；光标每次前进
// 分块长度减去 overlap，使相邻分块共享尾部/头部上下文。
// 纯长度加标点切分，不做语义或段落感知。
func Chunk(text string, targetSize, overlap int) []string {
	if targetSize <= 0 {
		targetSize = DefaultChunkSize
	}
	if overlap < 0 || overlap >= targetSize {
		overlap = DefaultChunkOverlap
		if overlap >= targetSize {
			overlap = targetSize / 5
		}
	}

	runes := []rune(text)
	total := len(runes)
	if total == 0 {
		return nil
	}

	var chunks []string
	pos := 0
	for pos < total {
		end := pos + targetSize
		if end >= total {
			end = total
		} else {
			// 回退到窗口 50% 之后最后一个断句点；找不到就保留整窗
			window := runes[pos:end]
			if bp := lastBreakPoint(window); bp >= 0 {
				end = pos + bp + 1 // 断句符留在本块末尾
			}
		}

		chunk := strings.TrimSpace(string(runes[pos:end]))
		if len([]rune(chunk)) >= minChunkChars {
			chunks = append(chunks, chunk)
		}

		if end >= total {
			break
		}

		advance := (end - pos) - overlap
		if advance < 1 {
			advance = end - pos
		}
		pos += advance
	}

	return chunks
}

// lastBreakPoint 在窗口后半段内从右向左找句号或换行，返回其下标
func lastBreakPoint(window []rune) int {
	half := len(window) / 2
	for i := len(window) - 1; i >= half; i-- {
		if window[i] == '.' || window[i] == '\n' {
			return i
		}
	}
	return -1
}
