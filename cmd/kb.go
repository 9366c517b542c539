package cmd

import (
	"github.com/spf13/cobra"
)

// kbCmd 知识库命令组
var kbCmd = &cobra.Command{
	Use:   "kb",
	Short: "知识库运维命令",
	Long:  `知识库运维命令：重建文档向量、在命令行中检索知识库。`,
}

func init() {
	rootCmd.AddCommand(kbCmd)
}
