package cmd

import (
	"fmt"
	"os"
	"sort"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/conneroisu/walletgate/internal/config"
	"github.com/conneroisu/walletgate/internal/ratelimit"
)

var policiesCmd = &cobra.Command{
	Use:   "policies",
	Short: "Show the effective admission policies",
	Long: `Prints the admission policy applied to each sensitive operation, merging
the built-in presets with any overrides from the configuration file.`,
	RunE: runPolicies,
}

var policiesOutput string

func init() {
	policiesCmd.Flags().StringVarP(&policiesOutput, "output", "o", "table", "Output format (table|yaml)")
	rootCmd.AddCommand(policiesCmd)
}

func runPolicies(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load()
	if err != nil {
		return err
	}

	operations := []string{
		ratelimit.OpDiscovery,
		ratelimit.OpConnect,
		ratelimit.OpSign,
		"general",
	}
	for name := range cfg.RateLimit.Policies {
		if !containsString(operations, name) {
			operations = append(operations, name)
		}
	}
	sort.Strings(operations[4:])

	effective := make(map[string]*ratelimit.Config, len(operations))
	for _, op := range operations {
		effective[op] = cfg.EffectivePolicy(op)
	}

	if policiesOutput == "yaml" {
		return yaml.NewEncoder(os.Stdout).Encode(effective)
	}

	fmt.Printf("%-12s %12s %10s %8s %12s\n",
		"OPERATION", "MAX/WINDOW", "WINDOW", "BURST", "BLOCK AFTER")
	for _, op := range operations {
		policy := effective[op]
		fmt.Printf("%-12s %12d %10s %8d %12d\n",
			op,
			policy.MaxRequests,
			policy.Window.String(),
			policy.BurstSize,
			policy.ViolationsBeforeBlock)
	}

	return nil
}

func containsString(list []string, target string) bool {
	for _, s := range list {
		if s == target {
			return true
		}
	}

	return false
}
