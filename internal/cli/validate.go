package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/ppiankov/pinwatch/internal/config"
)

var validateCmd = &cobra.Command{
	Use:   "validate <file>",
	Short: "Validate a pinwatch config file",
	Long: `Load and validate a pinwatch YAML config file without probing any host.

Checks for YAML syntax errors, unknown modes, malformed pin hashes,
unreadable PEM files, and missing required fields.
Exits 0 on success, 1 on validation failure.`,
	Example: `  pinwatch validate /etc/pinwatch/config.yaml
  pinwatch validate pins.yaml && echo "Config OK"`,
	Args: cobra.ExactArgs(1),
	RunE: runValidate,
}

func init() {
	rootCmd.AddCommand(validateCmd)
}

func runValidate(cmd *cobra.Command, args []string) error {
	cfg, err := config.Load(args[0])
	if err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	// Building the store exercises PEM loading and pin parsing.
	if _, err := cfg.BuildStore(); err != nil {
		cmd.PrintErrln(err)
		cmd.SilenceUsage = true
		cmd.SilenceErrors = true
		return fmt.Errorf("validation failed")
	}
	cmd.Println("config OK")
	return nil
}
