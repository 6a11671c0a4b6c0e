// Package config loads pipeline configuration from YAML files, .env files
// and the environment.
//
// Viper reads the YAML file and the environment; godotenv exports the .env
// file first. Environment variables override file values and are named
// after the mapstructure path of the field:
//
//	OPERATOR_PARALLELISM=4          # operator.parallelism
//	OPERATOR_SHUTDOWN_TIMEOUT=2s    # operator.shutdown_timeout
//	LOGGING_LEVEL=debug             # logging.level
//
// Load applies defaults and validates, so a negative parallelism or
// shutdown timeout from any source fails with INVALID_CONFIGURATION.
//
//	cfg, err := config.Load[config.ServiceConfig]("tokenizer")
//	op, err := flatmap.New(cfg.Operator, fn, out)
package config
