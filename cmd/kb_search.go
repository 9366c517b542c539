package cmd

import (
	"context"
	"encoding/json"
	"fmt"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/database"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
)

var (
	searchLimit      int
	searchOutputType string
)

// kbSearchCmd 在命令行中检索知识库
var kbSearchCmd = &cobra.Command{
	Use:   "search <query>",
	Short: "检索知识库",
	Long:  `对知识库执行混合检索（语义 + 关键词兜底），输出命中的分块。`,
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		query := args[0]
		ctx := context.Background()

		cfg, err := config.LoadConfig(configFile)
		if err != nil {
			return err
		}

		store := knowledge.NewStore(database.GetDB())
		embedder, err := knowledge.NewOpenAIEmbedder(&cfg.Embedding, nil)
		if err != nil {
			return fmt.Errorf("failed to create embedder: %w", err)
		}
		retriever := knowledge.NewRetriever(store, embedder,
			cfg.Knowledge.SimilarityThreshold, cfg.Knowledge.MaxResults)

		results := retriever.HybridSearch(ctx, query, searchLimit)

		// 输出结果
		if searchOutputType == "json" {
			data, _ := json.MarshalIndent(results, "", "  ")
			fmt.Println(string(data))
		} else {
			// 使用 lipgloss/table 表格输出
			rows := [][]string{}
			for _, res := range results {
				chunk := res.Chunk
				if runes := []rune(chunk); len(runes) > 80 {
					chunk = string(runes[:80]) + "..."
				}
				rows = append(rows, []string{
					fmt.Sprintf("%d", res.Document.ID),
					res.Document.Title,
					res.Document.DocType,
					fmt.Sprintf("%.3f", res.Similarity),
					chunk,
				})
			}

			t := table.New().
				Border(lipgloss.NormalBorder()).
				BorderStyle(lipgloss.NewStyle().Foreground(lipgloss.Color("99"))).
				Headers("Doc ID", "Title", "Type", "Similarity", "Chunk").
				Rows(rows...)

			fmt.Println(t)
			fmt.Println()
			logx.Info("Search completed, count %d, query %s", len(results), query)
		}

		return nil
	},
}

func init() {
	kbSearchCmd.Flags().IntVar(&searchLimit, "limit", 5, "最大返回条数")
	kbSearchCmd.Flags().StringVarP(&searchOutputType, "output", "o", "table", "输出格式 (table|json)")
	kbCmd.AddCommand(kbSearchCmd)
}
