package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/clientcli"
)

var (
	version = "dev"

	cfgFile    string
	profile    string
	endpoint   string
	pin        string
	jsonOutput bool
	quiet      bool
)

var rootCmd = &cobra.Command{
	Use:     "pinvault-cli",
	Version: version,
	Short:   "Client for a PinVault server",
	Long: `pinvault-cli talks to a PinVault server from the terminal.

Every file command unlocks the vault first. The PIN comes from --pin,
PINVAULT_PIN or the selected profile; when none is set you are prompted
for it.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file (default: ~/.pinvault/config.yaml, env: PINVAULT_CLIENT_CONFIG)")
	rootCmd.PersistentFlags().StringVarP(&profile, "profile", "p", "", "profile to use (env: PINVAULT_PROFILE)")
	rootCmd.PersistentFlags().StringVarP(&endpoint, "endpoint", "e", "", "server URL (default: http://localhost:5000, env: PINVAULT_ENDPOINT)")
	rootCmd.PersistentFlags().StringVar(&pin, "pin", "", "vault PIN (env: PINVAULT_PIN)")
	rootCmd.PersistentFlags().BoolVar(&jsonOutput, "json", false, "output as JSON")
	rootCmd.PersistentFlags().BoolVarP(&quiet, "quiet", "q", false, "suppress non-essential output")

	rootCmd.AddCommand(configureCmd)
	rootCmd.AddCommand(verifyCmd)
	rootCmd.AddCommand(passwdCmd)
	rootCmd.AddCommand(listCmd)
	rootCmd.AddCommand(uploadCmd)
	rootCmd.AddCommand(downloadCmd)
	rootCmd.AddCommand(urlCmd)
	rootCmd.AddCommand(renameCmd)
	rootCmd.AddCommand(deleteCmd)
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		var exitErr *exitError
		if !errors.As(err, &exitErr) {
			_ = getFormatter().FormatError(os.Stderr, err)
		}
		os.Exit(1)
	}
}

// getConfigPath resolves the config file from the flag, the environment or
// the default location.
func getConfigPath() string {
	if cfgFile != "" {
		return cfgFile
	}
	if fromEnv := clientcli.ConfigPathFromEnv(); fromEnv != "" {
		return fromEnv
	}
	return clientcli.DefaultConfigPath()
}

// buildConfig merges config from the profile, env vars and flags (flags take precedence).
func buildConfig() (*clientcli.Config, error) {
	var configs []*clientcli.Config

	explicit := cfgFile != "" || clientcli.ConfigPathFromEnv() != ""
	profileName := profile
	if profileName == "" {
		profileName = clientcli.ProfileFromEnv()
	}

	if configPath := getConfigPath(); configPath != "" {
		file, err := clientcli.LoadConfigFile(configPath)
		switch {
		case err == nil:
			p, profileErr := file.GetProfile(profileName)
			if profileErr != nil && (profileName != "" || !errors.Is(profileErr, clientcli.ErrNoProfiles)) {
				return nil, profileErr
			}
			configs = append(configs, clientcli.ConfigFromProfile(p))
		case explicit || profileName != "":
			// A missing default config file is fine; one the user named is not.
			return nil, err
		}
	}

	configs = append(configs, clientcli.ConfigFromEnv())
	configs = append(configs, &clientcli.Config{Endpoint: endpoint, PIN: pin})

	return clientcli.MergeConfig(configs...), nil
}

// getFormatter returns the appropriate formatter based on flags.
func getFormatter() clientcli.Formatter {
	return clientcli.NewFormatter(jsonOutput, quiet)
}

// promptPIN is swapped out in tests.
var promptPIN = func(label string) (string, error) {
	return clientcli.PromptPIN(label, nil, nil)
}

// unlock builds a client and checks the PIN against the server.
func unlock(ctx context.Context) (*clientcli.Client, error) {
	cfg, err := buildConfig()
	if err != nil {
		return nil, err
	}

	client, err := clientcli.New(cfg)
	if err != nil {
		return nil, err
	}

	pinValue := cfg.PIN
	if pinValue == "" {
		pinValue, err = promptPIN("PIN")
		if err != nil {
			return nil, fmt.Errorf("read PIN: %w", err)
		}
	}

	if err := client.Verify(ctx, pinValue); err != nil {
		if errors.Is(err, clientcli.ErrInvalidPIN) {
			return nil, errors.New("incorrect PIN")
		}
		return nil, err
	}

	return client, nil
}

// stdout receives command output; tests replace it.
var stdout io.Writer = os.Stdout

// exitError is returned when we want to exit with a specific code
// but don't want to print an error message.
type exitError struct {
	code int
}

func (e *exitError) Error() string {
	return fmt.Sprintf("exit status %d", e.code)
}

var errPINMismatch = errors.New("new PINs do not match")
