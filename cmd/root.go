// Package cmd provides the walletgate command-line interface: small
// diagnostic commands for inspecting admission policies and exercising the
// origin validator against a deployment.
//
// Configuration sources, in precedence order:
//  1. Command-line flags (--config, --log-level)
//  2. WALLETGATE_CONFIG_FILE environment variable
//  3. Individual WALLETGATE_<SECTION>_<OPTION> environment variables
//  4. .walletgate.yml in the current directory
package cmd

import (
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

var cfgFile string

// rootCmd represents the base command when called without any subcommands
var rootCmd = &cobra.Command{
	Use:   "walletgate",
	Short: "Origin validation and admission control for wallet transports",
	Long: `Walletgate is the security core of a wallet-connection SDK: it validates
the claimed origin of every inbound transport message and rate-limits
sensitive operations (connect, sign, discovery) per requesting origin.

This CLI exposes the core for diagnostics:

  walletgate policies        Show the effective admission policies
  walletgate check-origin    Validate an origin claim the way a transport would
  walletgate version         Print the version`,
}

// Execute adds all child commands to the root command and sets flags appropriately.
func Execute() error {
	return rootCmd.Execute()
}

func init() {
	cobra.OnInitialize(initConfig)

	rootCmd.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default is .walletgate.yml, can also use WALLETGATE_CONFIG_FILE env var)")
	rootCmd.PersistentFlags().StringP("log-level", "l", "info", "log level (debug, info, warn, error)")
	_ = viper.BindPFlag("logging.level", rootCmd.PersistentFlags().Lookup("log-level"))
}

// initConfig initializes the configuration system.
func initConfig() {
	if cfgFile == "" {
		cfgFile = os.Getenv("WALLETGATE_CONFIG_FILE")
	}

	if cfgFile != "" {
		viper.SetConfigFile(cfgFile)
	} else {
		viper.AddConfigPath(".")
		viper.SetConfigName(".walletgate")
		viper.SetConfigType("yml")
	}

	viper.SetEnvPrefix("WALLETGATE")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	if err := viper.ReadInConfig(); err == nil {
		fmt.Fprintln(os.Stderr, "Using config file:", viper.ConfigFileUsed())
	}
}
