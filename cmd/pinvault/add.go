package main

import (
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/sagarc03/pinvault"
	"github.com/sagarc03/pinvault/config"
	"github.com/sagarc03/pinvault/filesystem"
)

var addCmd = &cobra.Command{
	Use:   "add [flags] <file1> [file2] ...",
	Short: "Import local files into the vault",
	Long: `Import files from local paths into the vault.

Each file is uploaded through the same path as the web client: the blob is
written first, then a metadata record is created. The file's base name
becomes its display name.

Examples:
  # Add a single file
  pinvault add /path/to/scan.pdf

  # Add a directory recursively
  pinvault add -r /path/to/photos`,
	Args: cobra.MinimumNArgs(1),
	RunE: runAdd,
}

var (
	addRecursive bool
	addQuiet     bool
)

func init() {
	addCmd.Flags().BoolVarP(&addRecursive, "recursive", "r", false, "recursively add directories")
	addCmd.Flags().BoolVarP(&addQuiet, "quiet", "q", false, "suppress per-file output")
	rootCmd.AddCommand(addCmd)
}

func runAdd(cmd *cobra.Command, args []string) error {
	cfg, err := config.FromContext(cmd.Context())
	if err != nil {
		return err
	}

	ctx := cmd.Context()

	var paths []string
	for _, arg := range args {
		found, collectErr := collectFiles(arg, addRecursive)
		if collectErr != nil {
			return fmt.Errorf("collect files from %s: %w", arg, collectErr)
		}
		paths = append(paths, found...)
	}

	if len(paths) == 0 {
		slog.Info("no files to add")
		return nil
	}

	db, err := openDatabase(ctx, cfg, false)
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	service, objects, err := openFileService(ctx, cfg, db)
	if err != nil {
		return err
	}
	defer objects.close()

	added := 0
	for _, p := range paths {
		rec, addErr := addFile(cmd, service, p)
		if addErr != nil {
			return fmt.Errorf("add %s: %w", p, addErr)
		}

		added++
		if !addQuiet {
			slog.Info("added", "path", p, "id", rec.ID, "size", rec.SizeBytes, "mime_type", rec.MimeType)
		}
	}

	slog.Info("add complete", "added", added)
	return nil
}

func addFile(cmd *cobra.Command, service *pinvault.FileService, path string) (pinvault.FileRecord, error) {
	f, err := os.Open(path)
	if err != nil {
		return pinvault.FileRecord{}, err
	}
	defer func() { _ = f.Close() }()

	info, err := f.Stat()
	if err != nil {
		return pinvault.FileRecord{}, err
	}

	name := filepath.Base(path)
	return service.Upload(cmd.Context(), pinvault.NewFile{
		DisplayName: name,
		MimeType:    filesystem.ContentType(name),
		Size:        info.Size(),
	}, f)
}

// collectFiles returns path itself for a regular file, or every regular file
// below it when path is a directory and recursive is set.
func collectFiles(path string, recursive bool) ([]string, error) {
	info, err := os.Stat(path)
	if err != nil {
		return nil, err
	}

	if !info.IsDir() {
		return []string{path}, nil
	}

	if !recursive {
		return nil, fmt.Errorf("%s is a directory (use -r to add recursively)", path)
	}

	var paths []string
	walkErr := filepath.WalkDir(path, func(walkPath string, d fs.DirEntry, walkErr error) error {
		if walkErr != nil {
			return walkErr
		}
		if d.Type().IsRegular() {
			paths = append(paths, walkPath)
		}
		return nil
	})
	if walkErr != nil {
		return nil, walkErr
	}

	return paths, nil
}
