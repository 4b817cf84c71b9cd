package config

import "github.com/caarlos0/env/v11"

// Config holds everything the process reads from the environment. It is built
// once at startup and passed explicitly into the components that need it;
// nothing reads ambient env vars inside request logic.
type Config struct {
	Port          string `env:"PORT" envDefault:"5000"`
	MongoURI      string `env:"MONGO_URI,required"`
	MongoDatabase string `env:"MONGO_DATABASE" envDefault:"telemed"`

	JWTSecret string `env:"JWT_SECRET,required"`

	GoogleClientID string `env:"GOOGLE_CLIENT_ID"`
	// Kept for parity with deployments that configure the full OAuth client;
	// ID-token verification only needs the client id as audience.
	GoogleClientSecret string `env:"GOOGLE_CLIENT_SECRET"`

	AllowedOrigins []string `env:"ALLOWED_ORIGINS" envSeparator:","`

	RedisAddr     string `env:"REDIS_ADDR"`
	RedisPassword string `env:"REDIS_PASSWORD"`
	RedisDB       int    `env:"REDIS_DB" envDefault:"0"`
}

// Load parses the configuration from environment variables.
func Load() (*Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return nil, err
	}
	return &cfg, nil
}
