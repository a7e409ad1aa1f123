package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config collects every environment setting the server needs. Load is called
// once from main after godotenv has run.
type Config struct {
	MongoURI string
	DBName   string
	Port     string

	JWTSecret string
	JWTTTL    time.Duration

	MSClientID     string
	MSClientSecret string
	MSRedirectURI  string
	MSTenant       string
	MSScopes       []string

	// Optional. When set the OAuth token cache lives in Redis instead of
	// MongoDB.
	RedisURI string
}

func Load() (*Config, error) {
	cfg := &Config{
		MongoURI:       os.Getenv("MONGO_URI"),
		DBName:         os.Getenv("DB_NAME"),
		Port:           os.Getenv("PORT"),
		JWTSecret:      os.Getenv("JWT_SECRET"),
		MSClientID:     os.Getenv("MS_CLIENT_ID"),
		MSClientSecret: os.Getenv("MS_CLIENT_SECRET"),
		MSRedirectURI:  os.Getenv("MS_REDIRECT_URI"),
		MSTenant:       os.Getenv("MS_TENANT"),
		RedisURI:       os.Getenv("REDIS_URI"),
	}

	required := map[string]string{
		"MONGO_URI":        cfg.MongoURI,
		"DB_NAME":          cfg.DBName,
		"JWT_SECRET":       cfg.JWTSecret,
		"MS_CLIENT_ID":     cfg.MSClientID,
		"MS_CLIENT_SECRET": cfg.MSClientSecret,
		"MS_REDIRECT_URI":  cfg.MSRedirectURI,
	}
	for name, value := range required {
		if value == "" {
			return nil, fmt.Errorf("%s environment variable not set", name)
		}
	}

	if cfg.Port == "" {
		cfg.Port = "8080"
	}
	if cfg.MSTenant == "" {
		cfg.MSTenant = "common"
	}

	if scopes := os.Getenv("MS_SCOPES"); scopes != "" {
		cfg.MSScopes = strings.Split(scopes, ",")
	} else {
		cfg.MSScopes = []string{"offline_access", "Files.ReadWrite.All", "User.Read"}
	}

	cfg.JWTTTL = 24 * time.Hour
	if ttl := os.Getenv("JWT_TTL"); ttl != "" {
		d, err := time.ParseDuration(ttl)
		if err != nil {
			return nil, fmt.Errorf("invalid JWT_TTL: %v", err)
		}
		cfg.JWTTTL = d
	}

	return cfg, nil
}
