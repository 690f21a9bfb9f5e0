// Package clientcli is a client library for the PinVault HTTP API.
//
// It covers PIN verification and change, listing, uploading, downloading,
// renaming and deleting files, plus profile-based configuration for talking
// to more than one vault.
//
// # Basic Usage
//
//	client, err := clientcli.New(&clientcli.Config{Endpoint: "http://localhost:5000"})
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	if err := client.Verify(ctx, "1234"); err != nil {
//		log.Fatal(err)
//	}
//
//	results, err := client.Upload(ctx, clientcli.UploadOptions{LocalPath: "./scan.pdf"})
//
// # Profile Configuration
//
// Profiles live in ~/.pinvault/config.yaml:
//
//	profiles:
//	  - name: home
//	    endpoint: http://vault.lan:5000
//	    default: true
//
// A profile may carry a PIN. When it does not, the CLI prompts for one.
//
// # Output Formatting
//
//	formatter := clientcli.NewFormatter(jsonOutput, quiet)
//	formatter.FormatUpload(os.Stdout, results)
package clientcli
