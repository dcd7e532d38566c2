package cmd

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/conneroisu/walletgate/internal/origin"
	"github.com/conneroisu/walletgate/internal/protocol"
)

var checkOriginCmd = &cobra.Command{
	Use:   "check-origin",
	Short: "Validate an origin claim the way a transport would",
	Long: `Builds an envelope with the given claimed origin and runs it through the
validator against the trusted origin. Exits non-zero when validation fails,
so it can be used in scripts:

  walletgate check-origin --claimed https://dapp.example --trusted https://dapp.example
  walletgate check-origin --claimed https://evil.example --trusted https://dapp.example --strict`,
	RunE: runCheckOrigin,
}

var (
	checkClaimed string
	checkTrusted string
	checkStrict  bool
	checkRelayed bool
)

func init() {
	checkOriginCmd.Flags().StringVar(&checkClaimed, "claimed", "", "Claimed origin carried by the message (omit for no claim)")
	checkOriginCmd.Flags().StringVar(&checkTrusted, "trusted", "", "Trusted origin to compare against")
	checkOriginCmd.Flags().BoolVar(&checkStrict, "strict", false, "Require an origin claim to be present")
	checkOriginCmd.Flags().BoolVar(&checkRelayed, "relayed", false, "Read the claim from a wrapped sub-message")
	rootCmd.AddCommand(checkOriginCmd)
}

func runCheckOrigin(cmd *cobra.Command, args []string) error {
	env := &protocol.Envelope{}
	if checkClaimed != "" {
		env.WithOrigin(checkClaimed)
	}
	if checkRelayed {
		env = &protocol.Envelope{Message: env}
	}

	opts := origin.Options{
		TransportType:        "cli",
		StrictOriginRequired: checkStrict,
	}

	var result origin.Result
	if checkRelayed {
		result = origin.ValidateRelayedOrigin(env, checkTrusted, opts)
	} else {
		result = origin.ValidateClaimedOrigin(env, checkTrusted, opts)
	}

	report := map[string]interface{}{
		"valid":   result.Valid,
		"context": result.Context,
	}
	if result.Err != nil {
		report["code"] = result.Err.Code
		report["message"] = result.Err.Message
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(report); err != nil {
		return err
	}

	if !result.Valid {
		return fmt.Errorf("origin validation failed: %s", result.Err.Code)
	}

	return nil
}
