package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault/clientcli"
)

var verifyCmd = &cobra.Command{
	Use:   "verify",
	Short: "Check the PIN against the server",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		if _, err := unlock(cmd.Context()); err != nil {
			return err
		}
		return getFormatter().FormatMessage(stdout, "PIN accepted")
	},
}

var listCmd = &cobra.Command{
	Use:     "list",
	Aliases: []string{"ls"},
	Short:   "List files in the vault, newest first",
	Args:    cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		result, err := client.List(cmd.Context())
		if err != nil {
			return err
		}
		return getFormatter().FormatList(stdout, result)
	},
}

var (
	uploadName      string
	uploadType      string
	uploadRecursive bool
)

var uploadCmd = &cobra.Command{
	Use:   "upload <local-path>",
	Short: "Upload a file or directory",
	Long: `Upload a file to the vault. Its base name becomes the display name
unless --name is given.

Examples:
  pinvault-cli upload ./scan.pdf
  pinvault-cli upload --name "Tax return 2025.pdf" ./scan.pdf
  pinvault-cli upload -r ./photos`,
	Args: cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		results, err := client.Upload(cmd.Context(), clientcli.UploadOptions{
			LocalPath:   args[0],
			Name:        uploadName,
			ContentType: uploadType,
			Recursive:   uploadRecursive,
		})
		if fmtErr := getFormatter().FormatUpload(stdout, results); fmtErr != nil {
			return fmtErr
		}
		if err != nil {
			return err
		}

		for _, r := range results {
			if r.Err != nil {
				return &exitError{code: 1}
			}
		}
		return nil
	},
}

var (
	downloadOutput string
	downloadStdout bool
)

var downloadCmd = &cobra.Command{
	Use:   "download <id> [local-path]",
	Short: "Download a file",
	Long: `Download a file by id. Without a local path the file is saved under its
display name in the current directory.

Examples:
  pinvault-cli download 3f6c9a0e-3b1e-4c55-9d43-7f2d1c0b8e21
  pinvault-cli download 3f6c9a0e-3b1e-4c55-9d43-7f2d1c0b8e21 ./copy.pdf
  pinvault-cli download --stdout 3f6c9a0e-3b1e-4c55-9d43-7f2d1c0b8e21 | less`,
	Args: cobra.RangeArgs(1, 2),
	RunE: func(cmd *cobra.Command, args []string) error {
		localPath := ""
		if len(args) > 1 {
			localPath = args[1]
		}
		if downloadOutput != "" {
			localPath = downloadOutput
		}
		if downloadStdout {
			localPath = "-"
		}

		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		result, reader, err := client.Download(cmd.Context(), clientcli.DownloadOptions{ID: args[0], LocalPath: localPath})
		if err != nil {
			return err
		}

		if reader != nil {
			defer func() { _ = reader.Close() }()
			if _, err := io.Copy(stdout, reader); err != nil {
				return err
			}
			// Metadata goes to stderr so stdout stays the file's bytes.
			if jsonOutput {
				return getFormatter().FormatDownload(os.Stderr, result)
			}
			return nil
		}

		return getFormatter().FormatDownload(stdout, result)
	},
}

var urlDownload bool

var urlCmd = &cobra.Command{
	Use:   "url <id>",
	Short: "Print a signed preview or download URL",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		kind := clientcli.URLPreview
		if urlDownload {
			kind = clientcli.URLDownload
		}

		result, err := client.URL(cmd.Context(), args[0], kind)
		if err != nil {
			return err
		}
		return getFormatter().FormatURL(stdout, result)
	},
}

var renameCmd = &cobra.Command{
	Use:   "rename <id> <new-name>",
	Short: "Change a file's display name",
	Args:  cobra.ExactArgs(2),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		if err := client.Rename(cmd.Context(), args[0], args[1]); err != nil {
			return err
		}
		return getFormatter().FormatMessage(stdout, "File renamed")
	},
}

var deleteCmd = &cobra.Command{
	Use:     "delete <id> [id...]",
	Aliases: []string{"rm"},
	Short:   "Delete one or more files",
	Args:    cobra.MinimumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		client, err := unlock(cmd.Context())
		if err != nil {
			return err
		}

		results, err := client.Delete(cmd.Context(), clientcli.DeleteOptions{IDs: args})
		if err != nil {
			return err
		}

		if err := getFormatter().FormatDelete(stdout, results); err != nil {
			return err
		}
		if clientcli.HasDeleteErrors(results) {
			return &exitError{code: 1}
		}
		return nil
	},
}

var passwdCmd = &cobra.Command{
	Use:   "passwd",
	Short: "Change the vault PIN",
	Long: `Change the vault PIN. The current PIN is taken from --pin, the
environment or the profile if set; the new PIN is always prompted for twice.`,
	Args: cobra.NoArgs,
	RunE: func(cmd *cobra.Command, _ []string) error {
		cfg, err := buildConfig()
		if err != nil {
			return err
		}

		client, err := clientcli.New(cfg)
		if err != nil {
			return err
		}

		current := cfg.PIN
		if current == "" {
			if current, err = promptPIN("Current PIN"); err != nil {
				return err
			}
		}

		next, err := promptPIN("New PIN")
		if err != nil {
			return err
		}
		confirm, err := promptPIN("Confirm new PIN")
		if err != nil {
			return err
		}
		if next != confirm {
			return errPINMismatch
		}

		if err := client.ChangePIN(cmd.Context(), current, next); err != nil {
			return err
		}
		return getFormatter().FormatMessage(stdout, "PIN changed. Update any profile that stores the old one.")
	},
}

func init() {
	uploadCmd.Flags().StringVarP(&uploadName, "name", "n", "", "display name (default: the file's base name)")
	uploadCmd.Flags().StringVarP(&uploadType, "content-type", "t", "", "content type (default: detected from the extension)")
	uploadCmd.Flags().BoolVarP(&uploadRecursive, "recursive", "r", false, "upload every file under a directory")

	downloadCmd.Flags().StringVarP(&downloadOutput, "output", "o", "", "output file path")
	downloadCmd.Flags().BoolVar(&downloadStdout, "stdout", false, "write to stdout")

	urlCmd.Flags().BoolVarP(&urlDownload, "download", "d", false, "issue an attachment download URL instead of a preview URL")
}
