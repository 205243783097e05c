package config

import "github.com/spf13/viper"

// Default values applied before file and environment sources.
const (
	DefaultLogLevel        = "INFO"
	DefaultLogFormat       = "text"
	DefaultLogOutput       = "stderr"
	DefaultServerAddr      = ":8008"
	DefaultShutdownTimeout = "30s"
	DefaultStorageBackend  = "memory"
	DefaultAuthRealm       = "perch"
)

func setDefaults(v *viper.Viper) {
	v.SetDefault("logging.level", DefaultLogLevel)
	v.SetDefault("logging.format", DefaultLogFormat)
	v.SetDefault("logging.output", DefaultLogOutput)

	v.SetDefault("server.addr", DefaultServerAddr)
	v.SetDefault("server.shutdown_timeout", DefaultShutdownTimeout)

	v.SetDefault("metrics.enabled", true)

	v.SetDefault("storage.backend", DefaultStorageBackend)
	v.SetDefault("storage.path", "")

	v.SetDefault("auth.realm", DefaultAuthRealm)
	v.SetDefault("auth.jwt_secret", "")
	v.SetDefault("auth.admin_user", "")
	v.SetDefault("auth.admin_password", "")
}
