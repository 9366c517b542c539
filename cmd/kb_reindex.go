package cmd

import (
	"context"
	"fmt"
	"time"

	"cnb.cool/zhiqiangwang/pkg/logx"
	"github.com/spf13/cobra"

	"github.com/Rezzyman/WINNSTORM-sub000/internal/config"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/database"
	"github.com/Rezzyman/WINNSTORM-sub000/internal/knowledge"
)

var reindexDocID uint

// kbReindexCmd 重建文档向量
var kbReindexCmd = &cobra.Command{
	Use:   "reindex",
	Short: "重建文档向量",
	Long:  `重建已审批文档的向量。指定 --id 只处理单个文档，否则处理全部已审批文档。`,
	RunE: func(cmd *cobra.Command, args []string) error {
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
		pipeline := knowledge.NewPipeline(store, embedder,
			cfg.Knowledge.ChunkSize, cfg.Knowledge.ChunkOverlap)

		// 单个文档
		if reindexDocID > 0 {
			start := time.Now()
			if ok := pipeline.GenerateDocumentEmbeddings(ctx, reindexDocID); !ok {
				return fmt.Errorf("failed to reindex document %d", reindexDocID)
			}
			logx.Info("✅ Reindexed document %d in %s", reindexDocID, time.Since(start))
			return nil
		}

		// 全部已审批文档
		docs, err := store.ListDocuments(nil, "", nil)
		if err != nil {
			return err
		}

		var succeeded, failed, skipped int
		for _, doc := range docs {
			if !doc.IsApproved() {
				skipped++
				continue
			}
			if pipeline.GenerateDocumentEmbeddings(ctx, doc.ID) {
				succeeded++
			} else {
				failed++
			}
		}

		logx.Info("Reindex completed: %d succeeded, %d failed, %d skipped", succeeded, failed, skipped)
		if failed > 0 {
			return fmt.Errorf("%d documents failed to reindex", failed)
		}
		return nil
	},
}

func init() {
	kbReindexCmd.Flags().UintVar(&reindexDocID, "id", 0, "只重建指定文档")
	kbCmd.AddCommand(kbReindexCmd)
}
