// Package config loads typed configuration from environment variables with
// github.com/caarlos0/env/v11, after reading an optional .env file with
// github.com/joho/godotenv.
//
// Each configuration type is parsed once per process and cached:
//
//	var cfg AppConfig
//	if err := config.Load(&cfg); err != nil {
//		return err
//	}
//
// Call LoadEnvFiles before the first Load to read a different env file.
package config
