// Package config loads parbuild configuration from YAML files, .env files and
// environment variables.
//
// It uses Viper for file and environment handling and godotenv for .env files.
// Files are searched in the usual locations (./cmd/<name>/config.yml,
// ./config/config.yml, ./<name>.yml, ...) unless given explicitly.
//
// # Usage
//
//	var cfg MyConfig
//	err := config.LoadConfig("parbuild", &cfg, config.WithEnvPrefix("PARBUILD"))
//
// With an env prefix, PARBUILD_SCHEDULER_PARALLELISM=4 overrides
// scheduler.parallelism from the file.
package config
