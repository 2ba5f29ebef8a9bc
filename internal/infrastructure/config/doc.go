// Package config handles loading and validating Gray Logic Records configuration.
//
// This package manages:
//   - Loading configuration from YAML files
//   - Overriding with GRAYLOGIC_* environment variables
//   - Validation of required fields
//   - Default value handling
//
// Security Considerations:
//   - Sensitive values (passwords, tokens) should be set via environment variables
//   - The config file should have restricted permissions (0600)
//   - An empty security.jwt.secret leaves the API unauthenticated
//
// Usage:
//
//	cfg, err := config.LoadDefault() // reads $GRAYLOGIC_CONFIG
//	if err != nil {
//	    log.Fatal(err)
//	}
//	fmt.Println(cfg.Database.Path)
package config
