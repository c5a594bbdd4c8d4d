package config

import (
	"bytes"
	"errors"
	"log/slog"
	"os"
	"path"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/samber/lo"
	"github.com/spf13/viper"
)

// DefaultSecretKey is the signing secret used when none is configured.
const DefaultSecretKey = "dev-secret-change-me"

// flatEnv maps the short environment names accepted for deployment
// compatibility onto their dotted configuration keys.
var flatEnv = map[string]string{
	"otp.length":              "OTP_LENGTH",
	"otp.expiration_seconds":  "OTP_EXPIRATION_SECONDS",
	"mail.server":             "MAIL_SERVER",
	"mail.port":               "MAIL_PORT",
	"mail.username":           "MAIL_USERNAME",
	"mail.password":           "MAIL_PASSWORD",
	"mail.default_sender":     "MAIL_DEFAULT_SENDER",
	"mail.use_tls":            "MAIL_USE_TLS",
	"mail.use_ssl":            "MAIL_USE_SSL",
	"mail.suppress_send":      "MAIL_SUPPRESS_SEND",
	"app.secret_key":          "SECRET_KEY",
	"session.cookie_secure":   "SESSION_COOKIE_SECURE",
	"session.cookie_httponly": "SESSION_COOKIE_HTTPONLY",
	"app.server.port":         "PORT",
}

var defaults = map[string]any{
	"app.name":                            "otpgate",
	"app.env":                             "development",
	"app.secret_key":                      DefaultSecretKey,
	"app.server.host":                     "0.0.0.0",
	"app.server.port":                     5000,
	"app.server.read_timeout":             10,
	"app.server.write_timeout":            10,
	"app.server.shutdown_timeout":         10,
	"app.maintenance.endpoints":           "",
	"app.cors.origins":                    "*",
	"otp.length":                          6,
	"otp.expiration_seconds":              300,
	"session.driver":                      "memory",
	"session.cookie_name":                 "otp_session",
	"session.cookie_secure":               false,
	"session.cookie_httponly":             true,
	"session.ttl_seconds":                 86400,
	"session.lock_ttl_seconds":            10,
	"mail.server":                         "localhost",
	"mail.port":                           587,
	"mail.use_tls":                        true,
	"mail.use_ssl":                        false,
	"mail.suppress_send":                  false,
	"mail.default_sender":                 "no-reply@localhost",
	"messaging.driver":                    "memory",
	"messaging.nats.url":                  "nats://localhost:4222",
	"messaging.nsq.nsqd":                  "localhost:4150",
	"messaging.nsq.lookupd":               "",
	"messaging.kafka.brokers":             "localhost:9092",
	"messaging.pubsub.project_id":         "",
	"redis.addr":                          "localhost:6379",
	"redis.db":                            0,
	"redis.password":                      "",
	"goroutine.max":                       32,
	"goroutine.queue":                     256,
	"goroutine.consumer_workers":          4,
	"modules.otp.enabled":                 true,
	"modules.notification.enabled":        true,
	"modules.notification.consumer_names": "otp_challenge_requested_notification",
	"modules.notification.concurrency":    4,
	"modules.notification.max_attempts":   5,
	"session.memory_cleanup_seconds":      60,
	"telemetry.enabled":                   false,
	"telemetry.collector_endpoint":        "localhost:4317",
	"telemetry.log_mask_fields":           "authorization,cookie,set-cookie,code,otp,password,secret_key",
}

// Viper is a Config implementation backed by github.com/spf13/viper.
type Viper struct {
	v *viper.Viper
}

// NewViper builds a Config from defaults, an optional file and the environment.
//
// An empty pathFile or a missing file is not an error; the service can run on
// defaults and environment variables alone. The file is watched for changes.
func NewViper(pathFile string) (*Viper, error) {
	v := newBase()

	if pathFile == "" {
		return &Viper{v: v}, nil
	}

	if _, err := os.Stat(pathFile); errors.Is(err, os.ErrNotExist) {
		slog.Warn("config file not found, using defaults and environment", "path", pathFile)
		return &Viper{v: v}, nil
	}

	filename := path.Base(pathFile)
	v.AddConfigPath(path.Dir(pathFile))
	v.SetConfigName(filename[:len(filename)-len(path.Ext(filename))])

	if err := v.ReadInConfig(); err != nil {
		return nil, err
	}

	v.OnConfigChange(func(_ fsnotify.Event) {
		if err := v.ReadInConfig(); err != nil {
			slog.Error("config reload failed", "path", pathFile, "err", err)
			return
		}
		slog.Info("config success reloaded", "path", pathFile)
	})
	v.WatchConfig()

	return &Viper{v: v}, nil
}

// NewViperFromBytes loads configuration from memory on top of defaults and the environment.
// configType should be a format supported by Viper (e.g. "yaml", "json", "toml").
func NewViperFromBytes(configType string, data []byte) (*Viper, error) {
	if strings.TrimSpace(configType) == "" {
		return nil, errors.New("config type is required")
	}

	v := newBase()
	v.SetConfigType(configType)

	if err := v.ReadConfig(bytes.NewReader(data)); err != nil {
		return nil, err
	}

	return &Viper{v: v}, nil
}

func newBase() *viper.Viper {
	v := viper.New()

	for key, value := range defaults {
		v.SetDefault(key, value)
	}

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	for key, env := range flatEnv {
		// BindEnv only errors without a key.
		_ = v.BindEnv(key, strings.ToUpper(strings.ReplaceAll(key, ".", "_")), env)
	}

	return v
}

// GetInt returns the value for key as int.
func (vc *Viper) GetInt(key string) int {
	return vc.v.GetInt(key)
}

// GetBool returns the value for key as bool.
func (vc *Viper) GetBool(key string) bool {
	return vc.v.GetBool(key)
}

// GetString returns the value for key as string.
func (vc *Viper) GetString(key string) string {
	return vc.v.GetString(key)
}

// GetSecond returns the value for key as seconds.
func (vc *Viper) GetSecond(key string) time.Duration {
	return time.Duration(vc.v.GetInt64(key)) * time.Second
}

// GetArray returns the value for key as a list. A scalar is split by commas.
// Blank entries are removed.
func (vc *Viper) GetArray(key string) []string {
	var parts []string
	switch vc.v.Get(key).(type) {
	case []any, []string:
		parts = vc.v.GetStringSlice(key)
	default:
		parts = strings.Split(vc.v.GetString(key), ",")
	}

	return lo.Compact(lo.Map(parts, func(p string, _ int) string {
		return strings.TrimSpace(p)
	}))
}

// IsSet reports whether key resolves to a value.
func (vc *Viper) IsSet(key string) bool {
	return vc.v.IsSet(key)
}

// Close implements io.Closer for interface compatibility.
func (vc *Viper) Close() error {
	return nil
}
