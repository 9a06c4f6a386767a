// Package config contains code to set the default values and read
// config files to be used throughout the whole application
package config

import (
	"crypto/rand"
	"encoding/hex"
	"errors"
	"fmt"
	"os"
	"slices"
	"time"

	"github.com/spf13/pflag"
	v "github.com/spf13/viper"
)

var (
	requireVerified = pflag.Bool("require-verified", true, "Require a verified email address to log in")
	validLogLevels  = []string{"debug", "info", "warn", "error", "fatal"}
	validDrivers    = []string{"sqlite", "postgres"}
)

func genSecret() string {
	b := make([]byte, 64)
	rand.Read(b)
	return hex.EncodeToString(b)
}

// Setup prepares everything config-related so that the app can
// start working. Function will return an error if something
// is critically wrong and the application can't run because of
// that.
func Setup() error {
	pflag.Parse()
	v.BindPFlag("auth.require_verified", pflag.Lookup("require-verified"))

	v.SetConfigName("config")
	v.SetConfigType("toml")
	v.AddConfigPath(".")

	v.AutomaticEnv()

	//
	// ENVS
	//
	v.BindEnv("app.log_level", "app_log_level")

	v.BindEnv("host.port", "host_port")
	v.BindEnv("host.base_url", "host_base_url")

	v.BindEnv("db.driver", "db_driver")
	v.BindEnv("db.dsn", "db_dsn")

	v.BindEnv("jwt.access_secret", "jwt_access_secret")
	v.BindEnv("jwt.refresh_secret", "jwt_refresh_secret")

	v.BindEnv("auth.require_verified", "auth_require_verified")

	v.BindEnv("mail.host", "mail_host")
	v.BindEnv("mail.port", "mail_port")
	v.BindEnv("mail.sender_address", "mail_sender_address")
	v.BindEnv("mail.password", "mail_password")

	v.BindEnv("redis.addr", "redis_addr")

	//
	// Defaults
	//
	v.SetDefault("app.log_level", "info")

	v.SetDefault("host.port", 8080)
	v.SetDefault("host.base_url", "http://localhost:8080")

	v.SetDefault("db.driver", "sqlite")
	v.SetDefault("db.dsn", "database.db")

	v.SetDefault("auth.require_verified", true)
	v.SetDefault("auth.access_ttl", time.Hour)
	v.SetDefault("auth.refresh_ttl", 7*24*time.Hour)
	v.SetDefault("auth.verify_ttl", 24*time.Hour)
	v.SetDefault("auth.reset_ttl", time.Hour)
	v.SetDefault("auth.resend_cooldown", 5*time.Minute)

	v.SetDefault("hash.memory", 64*1024)
	v.SetDefault("hash.iterations", 3)
	v.SetDefault("hash.parallelism", 2)

	v.SetDefault("mail.port", 587)
	v.SetDefault("mail.timeout", 10*time.Second)

	v.SetDefault("sweep.schedule", "@hourly")

	v.SetDefault("ratelimit.requests_per_second", 5)
	v.SetDefault("ratelimit.burst", 10)

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(v.ConfigFileNotFoundError); !ok {
			return fmt.Errorf("failed to read config file, %w", err)
		}
	}

	if !slices.Contains(validLogLevels, v.GetString("app.log_level")) {
		return errors.New("invalid log level provided")
	}

	if v.GetInt("host.port") <= 0 {
		return errors.New("invalid port provided")
	}

	if !slices.Contains(validDrivers, v.GetString("db.driver")) {
		return errors.New("invalid db driver provided")
	}

	if v.GetString("db.dsn") == "" {
		return errors.New("db.dsn can't be empty")
	}

	if v.GetString("jwt.access_secret") == "" || v.GetString("jwt.refresh_secret") == "" {
		fmt.Println("WARNING: You haven't set both JWT secrets. Access and refresh tokens must be signed with distinct secrets. Here are two generated for you:\n\njwt.access_secret:  " + genSecret() + "\njwt.refresh_secret: " + genSecret() + "\n\nPaste them into your config.toml file or set them as environment variables.")
		os.Exit(0)
	}

	if v.GetString("jwt.access_secret") == v.GetString("jwt.refresh_secret") {
		return errors.New("jwt.access_secret and jwt.refresh_secret must differ")
	}

	for _, key := range []string{"auth.access_ttl", "auth.refresh_ttl", "auth.verify_ttl", "auth.reset_ttl"} {
		if v.GetDuration(key) <= 0 {
			return fmt.Errorf("%s must be a positive duration", key)
		}
	}

	for _, key := range []string{"hash.memory", "hash.iterations", "hash.parallelism"} {
		if v.GetInt(key) <= 0 {
			return fmt.Errorf("%s must be bigger than 0", key)
		}
	}

	if v.GetString("mail.sender_address") == "" {
		fmt.Println("[WARNING]: No mail.sender_address configured. Verification and password-reset mails will fail to send until one is set")
	}

	if v.GetString("redis.addr") == "" {
		fmt.Println("[WARNING]: No redis.addr configured. Mails will be sent inline and response caching falls back to process memory")
	}

	if v.GetInt("ratelimit.requests_per_second") <= 0 {
		return errors.New("ratelimit.requests_per_second must be bigger than 0")
	}

	return nil
}
