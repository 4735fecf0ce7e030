// Package config loads the server configuration.
//
// Sources, lowest precedence first:
//   - struct tag defaults
//   - .env files (github.com/joho/godotenv), never overriding real env vars
//   - environment variables (github.com/kelseyhightower/envconfig)
//   - an optional YAML or TOML file passed with -config
package config
