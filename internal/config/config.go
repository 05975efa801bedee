package config

import "time"

// Config holds server configuration values.
type Config struct {
	Addr              string        `mapstructure:"addr" yaml:"addr"`
	ReadHeaderTimeout time.Duration `mapstructure:"read_header_timeout" yaml:"read_header_timeout"`
	ShutdownTimeout   time.Duration `mapstructure:"shutdown_timeout" yaml:"shutdown_timeout"`
	DatabasePath      string        `mapstructure:"database_path" yaml:"database_path"`
	LogLevel          string        `mapstructure:"log_level" yaml:"log_level"`
	JWTSecret         string        `mapstructure:"jwt_secret" yaml:"jwt_secret"`
	JWTIssuer         string        `mapstructure:"jwt_issuer" yaml:"jwt_issuer"`
	JWTAudience       string        `mapstructure:"jwt_audience" yaml:"jwt_audience"`
	PreviewTimeout    time.Duration `mapstructure:"preview_timeout" yaml:"preview_timeout"`
	CloudinaryURL     string        `mapstructure:"cloudinary_url" yaml:"cloudinary_url"`
	UploadFolder      string        `mapstructure:"upload_folder" yaml:"upload_folder"`
}

// Default returns configuration with reasonable starter defaults.
func Default() Config {
	return Config{
		Addr:              ":8188",
		ReadHeaderTimeout: 5 * time.Second,
		ShutdownTimeout:   5 * time.Second,
		DatabasePath:      "shopchat.db",
		LogLevel:          "info",
		JWTSecret:         "change-me",
		JWTIssuer:         "shopchat",
		JWTAudience:       "shopchat-admin",
		PreviewTimeout:    5 * time.Second,
		UploadFolder:      "shopchat",
	}
}
