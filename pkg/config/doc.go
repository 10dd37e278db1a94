// Package config loads application configuration from environment variables.
//
// It wraps github.com/joho/godotenv and github.com/caarlos0/env/v11: a
// `.env` file in the working directory is applied once (missing files are
// fine), then the environment is parsed into any struct using field tags.
// Structs implementing Validator are validated after parsing.
//
//	type Config struct {
//		Addr   string `env:"HTTP_ADDR" envDefault:":8080"`
//		Secret string `env:"JWT_SECRET,required"`
//	}
//
//	var cfg Config
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// LoadFrom parses an explicit map instead of the process environment and is
// what tests use.
package config
