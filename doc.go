// Package pinvault provides a single-user file vault gated by a 4-digit PIN,
// with pluggable metadata backends and object storage backends.
//
// Files are written to an object store under opaque keys and described by
// metadata records; reads are served through time-limited signed URLs so the
// vault itself never streams file contents back to the browser.
//
// # Key Components
//
//   - AuthService: PIN verification, PIN change and legacy credential migration
//   - FileService: upload, list, rename, signed preview/download URLs, delete
//   - FileRepo / CredentialRepo: metadata persistence (SQLite, PostgreSQL, MongoDB)
//   - ObjectStore: blob storage (local filesystem, S3 or any S3-compatible store)
//   - Signer / SignatureVerifier: AWS Signature V4 presigned URLs for the
//     filesystem backend
//
// # Example Usage
//
//	auth := pinvault.NewAuthService(db.Credentials(), pinvault.AuthConfig{DefaultPIN: "1234"})
//	if err := auth.Verify(ctx, "1234"); err != nil {
//	    log.Fatal(err)
//	}
//
//	files, err := pinvault.NewFileService(db.Files(), store, pinvault.ServiceConfig{})
//	if err != nil {
//	    log.Fatal(err)
//	}
//
//	rec, err := files.Upload(ctx, pinvault.NewFile{DisplayName: "a.txt", MimeType: "text/plain", Size: 10}, r)
//	link, err := files.DownloadURL(ctx, rec.ID.String())
//
// See the http package for the JSON API and the database package for
// metadata backend selection.
package pinvault
