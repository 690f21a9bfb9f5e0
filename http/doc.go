// Package http exposes the vault over HTTP.
//
// # Routes
//
//	POST   /api/auth/verify                 {password}
//	POST   /api/auth/change-password        {currentPassword, newPassword}
//	POST   /api/files/upload                multipart, field "file"
//	GET    /api/files
//	GET    /api/files/download[/{id}]       or ?id=
//	GET    /api/files/preview[/{id}]        or ?id=
//	PUT    /api/files/{id}[/rename]         {newName}
//	DELETE /api/files/{id}
//	GET    /blobs/*                         presigned, filesystem backend only
//	GET    /*                               client UI when a static dir is set
//
// Every API reply is a JSON object with a boolean success field and, on
// failure, a message. HandleError maps the vault's sentinel errors to status
// codes; handlers never pick a status for a service error themselves.
//
// # Usage
//
//	handler := http.NewHandler(&http.HandlerConfig{
//	    CORS:         http.DefaultCORSConfig(),
//	    Blobs:        fsStore,
//	    BlobVerifier: pinvault.NewSignatureVerifier("us-east-1", "s3", keys),
//	    StaticDir:    "./client/dist",
//	}, authService, fileService)
//
//	srv := &http.Server{Addr: ":5000", Handler: handler.Router()}
//
// The router applies CORS first, then answers bare OPTIONS requests with an
// empty 200, so no handler sees them.
package http
