package main

import (
	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/sagarc03/pinvault/keybackend"
)

var keygenCmd = &cobra.Command{
	Use:   "keygen",
	Short: "Generate a key pair for signing blob URLs",
	Long: `Print a random access/secret key pair as YAML, ready to paste under
signing.keys.inline in config.yaml. Without a configured key the server
generates one at startup, and URLs it issued stop working on restart.`,
	// Needs no configuration.
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error { return nil },
	RunE: func(cmd *cobra.Command, args []string) error {
		pair, err := keybackend.GenerateKeyPair()
		if err != nil {
			return err
		}

		enc := yaml.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent(2)
		defer func() { _ = enc.Close() }()
		return enc.Encode([]keybackend.KeyPair{pair})
	},
}

func init() {
	rootCmd.AddCommand(keygenCmd)
}
