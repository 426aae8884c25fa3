// Package config loads service configuration with viper.
//
// Values are layered in this order, later layers winning:
//
//  1. config.yml (explicit path, ./config/config.yml or ./config.yml)
//  2. variables from a .env file, loaded with godotenv
//  3. process environment, either prefixed (STENOPRO_DATABASE_DSN) or one of
//     the registered aliases (GROQ_API_KEY, ANTHROPIC_API_KEY, DATABASE_URL)
//
// Configuration structs describe themselves with mapstructure tags and embed
// ServiceConfig with `mapstructure:",squash"`.
package config
