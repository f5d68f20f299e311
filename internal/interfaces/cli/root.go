// Package cli 实现 docqactl 命令行工具
package cli

import (
	"github.com/spf13/cobra"

	"github.com/docqa/backend/internal/infrastructure/config"
	"github.com/docqa/backend/internal/infrastructure/secret"
)

// version 构建时通过 -ldflags 注入
var version = "dev"

var rootCmd = &cobra.Command{
	Use:           "docqactl",
	Short:         "Manage a local docqa installation",
	Long:          `Manage API keys, inspect how PDFs are extracted and chunked, and find docqa servers on the local network.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

// 测试时替换
var (
	loadConfig = config.NewConfig
	openStore  = func(cfg *config.Config) (secret.Store, error) {
		return secret.ProvideStore(cfg)
	}
)

var versionCmd = &cobra.Command{
	Use:   "version",
	Short: "Print the version number",
	Run: func(cmd *cobra.Command, _ []string) {
		cmd.Printf("docqactl version %s\n", version)
	},
}

func init() {
	rootCmd.AddCommand(versionCmd)
}

// Execute 运行根命令
func Execute() error {
	return rootCmd.Execute()
}
