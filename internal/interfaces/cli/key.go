package cli

import (
	"bufio"
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/docqa/backend/internal/infrastructure/log"
)

var keyCmd = &cobra.Command{
	Use:   "key",
	Short: "Manage the generation API key",
	Long:  `Store, check or remove the API key used for answer generation. The key is encrypted in the data directory and picked up by a running server without restart.`,
}

var keySetCmd = &cobra.Command{
	Use:   "set [api-key]",
	Short: "Store the API key (use - to read it from stdin)",
	Args:  cobra.ExactArgs(1),
	RunE:  runKeySet,
}

var keyCheckCmd = &cobra.Command{
	Use:   "check",
	Short: "Report whether an API key is configured",
	Args:  cobra.NoArgs,
	RunE:  runKeyCheck,
}

var keyDeleteCmd = &cobra.Command{
	Use:   "delete",
	Short: "Remove the stored API key",
	Args:  cobra.NoArgs,
	RunE:  runKeyDelete,
}

func init() {
	keyCmd.AddCommand(keySetCmd)
	keyCmd.AddCommand(keyCheckCmd)
	keyCmd.AddCommand(keyDeleteCmd)
	rootCmd.AddCommand(keyCmd)
}

func runKeySet(cmd *cobra.Command, args []string) error {
	value := args[0]
	if value == "-" {
		line, err := bufio.NewReader(cmd.InOrStdin()).ReadString('\n')
		if err != nil && line == "" {
			return fmt.Errorf("failed to read api key from stdin: %w", err)
		}
		value = line
	}
	value = strings.TrimSpace(value)
	if value == "" {
		return errors.New("api key must not be empty")
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}
	if err := store.Set(cmd.Context(), cfg.LLM.SecretName, value); err != nil {
		return fmt.Errorf("failed to store api key: %w", err)
	}

	cmd.Printf("API key stored (%s)\n", log.MaskSecret(value))
	return nil
}

func runKeyCheck(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}

	if store.Has(cmd.Context(), cfg.LLM.SecretName) {
		cmd.Println("API key: configured")
		return nil
	}
	cmd.Println("API key: not configured")
	return nil
}

func runKeyDelete(cmd *cobra.Command, _ []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	store, err := openStore(cfg)
	if err != nil {
		return fmt.Errorf("failed to open secret store: %w", err)
	}
	if err := store.Delete(cmd.Context(), cfg.LLM.SecretName); err != nil {
		return fmt.Errorf("failed to delete api key: %w", err)
	}
	cmd.Println("API key removed")
	return nil
}
