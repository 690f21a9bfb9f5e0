// Package config loads and validates pinvault's configuration.
//
// Sources are merged by viper and checked with go-playground/validator.
// Later sources override earlier ones:
//
//  1. Default values
//  2. Legacy environment variables (MONGODB_URI, AWS_BUCKET_NAME, AWS_REGION,
//     AWS_ACCESS_KEY_ID, AWS_SECRET_ACCESS_KEY, DEFAULT_PASSWORD, PORT)
//  3. Configuration file(s), merged left to right
//  4. Environment variables with the PINVAULT_ prefix
//  5. CLI flags that were explicitly set
//
// Before anything is read, .env and .env.local are loaded from the working
// directory and from the first config file's directory. They never override
// variables that are already set.
//
// # Usage
//
//	cfg, err := config.Load([]string{"config.yaml"}, cmd.Flags())
//	if err != nil {
//	    return err
//	}
//	ctx = config.WithContext(ctx, cfg)
//
// # Environment Variables
//
// Keys map to PINVAULT_ variables with dots replaced by underscores:
//   - server.port → PINVAULT_SERVER_PORT
//   - database.dsn → PINVAULT_DATABASE_DSN
//   - storage.s3.bucket → PINVAULT_STORAGE_S3_BUCKET
//
// # Validation
//
//   - auth.default_pin must be exactly four digits
//   - database.type must be sqlite, postgres or mongodb
//   - storage.type must be filesystem or s3; s3 requires a bucket
//   - table names must be distinct lowercase identifiers
package config
