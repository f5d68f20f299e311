package cli

import (
	"sort"
	"time"

	"github.com/spf13/cobra"

	"github.com/docqa/backend/internal/infrastructure/discovery"
)

var discoverCmd = &cobra.Command{
	Use:   "discover",
	Short: "Find docqa servers on the local network",
	Args:  cobra.NoArgs,
	RunE:  runDiscover,
}

var discoverTimeout time.Duration

func init() {
	discoverCmd.Flags().DurationVarP(&discoverTimeout, "timeout", "t", 3*time.Second, "How long to wait for answers")
	rootCmd.AddCommand(discoverCmd)
}

func runDiscover(cmd *cobra.Command, _ []string) error {
	services, err := discovery.Discover(cmd.Context(), discoverTimeout)
	if err != nil {
		return err
	}
	if len(services) == 0 {
		cmd.Println("No docqa servers found")
		return nil
	}

	for _, s := range services {
		cmd.Printf("%s\n", s.Instance)
		cmd.Printf("  Address: %s:%d\n", s.Host, s.Port)
		keys := make([]string, 0, len(s.Txt))
		for k := range s.Txt {
			keys = append(keys, k)
		}
		sort.Strings(keys)
		for _, k := range keys {
			cmd.Printf("  %s: %s\n", k, s.Txt[k])
		}
	}
	cmd.Printf("\nTotal: %d servers\n", len(services))
	return nil
}
