package app

import (
	"context"
	"log/slog"
	"net"
	"net/http"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/alexedwards/scs/v2"
	"github.com/alexedwards/scs/v2/memstore"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/cors"
	"github.com/shandysiswandi/otpgate/internal/pkg/clock"
	"github.com/shandysiswandi/otpgate/internal/pkg/config"
	"github.com/shandysiswandi/otpgate/internal/pkg/goroutine"
	"github.com/shandysiswandi/otpgate/internal/pkg/hash"
	"github.com/shandysiswandi/otpgate/internal/pkg/instrument"
	"github.com/shandysiswandi/otpgate/internal/pkg/mail"
	"github.com/shandysiswandi/otpgate/internal/pkg/messaging"
	"github.com/shandysiswandi/otpgate/internal/pkg/router"
	"github.com/shandysiswandi/otpgate/internal/pkg/session"
	"github.com/shandysiswandi/otpgate/internal/pkg/uid"
	"github.com/shandysiswandi/otpgate/internal/pkg/validator"
)

const (
	sessionDriverMemory = "memory"
	sessionDriverRedis  = "redis"
)

func (a *App) initConfig() {
	path := os.Getenv("CONFIG_PATH")
	if path == "" {
		path = "/config/config.yaml"
		if os.Getenv("LOCAL") == "true" {
			path = "./config/config.yaml"
		}
	}

	cfg, err := config.NewViper(path)
	if err != nil {
		slog.Error("failed to init config", "error", err)
		os.Exit(1)
	}

	a.config = cfg
}

func (a *App) initInstrument() {
	ins, err := instrument.New(context.Background(), &instrument.Config{
		Enabled:          a.config.GetBool("telemetry.enabled"),
		ServiceName:      a.config.GetString("app.name"),
		ServiceVersion:   a.config.GetString("app.version"),
		Environment:      a.config.GetString("app.env"),
		OTLPEndpoint:     a.config.GetString("telemetry.collector_endpoint"),
		OTLPSecure:       a.config.GetBool("telemetry.collector_secure"),
		TraceSampleRatio: 1,
		MetricsInterval:  a.config.GetSecond("telemetry.metric_interval_seconds"),
		MaskFields:       a.config.GetArray("telemetry.log_mask_fields"),
	})
	if err != nil {
		slog.Error("failed to init instrumentation", "error", err)
		os.Exit(1)
	}
	a.ins = ins

	if a.config.GetString("app.secret_key") == config.DefaultSecretKey {
		slog.Warn("app.secret_key is the built-in development value, set SECRET_KEY before deploying")
	}
}

func (a *App) initLibraries() {
	a.clock = clock.New()
	a.uuid = uid.NewUUID()
	a.goroutine = goroutine.NewPool(a.config.GetInt("goroutine.max"), a.config.GetInt("goroutine.queue"))
	// consumers block for the lifetime of the app, keep them off the request pool.
	a.consumers = goroutine.NewPool(a.config.GetInt("goroutine.consumer_workers"), 0)

	hmac, err := hash.NewHMACSHA256(a.config.GetString("app.secret_key"))
	if err != nil {
		slog.Error("failed to init hmac", "error", err)
		os.Exit(1)
	}
	a.hmac = hmac

	v, err := validator.NewV10()
	if err != nil {
		slog.Error("failed to init validation v10 validator", "error", err)
		os.Exit(1)
	}
	a.validator = v
}

func (a *App) initCache() {
	if a.sessionDriver() != sessionDriverRedis {
		return
	}

	rdb := redis.NewClient(&redis.Options{
		Addr:     a.config.GetString("redis.addr"),
		Password: a.config.GetString("redis.password"),
		DB:       a.config.GetInt("redis.db"),
	})

	pingCtx, cancel := context.WithTimeout(a.ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		slog.Error("failed to init redis", "error", err)
		os.Exit(1)
	}

	a.cacheConn = rdb
}

func (a *App) sessionDriver() string {
	return strings.ToLower(strings.TrimSpace(a.config.GetString("session.driver")))
}

func (a *App) initSession() {
	var (
		store  scs.Store
		locker session.Locker
	)

	switch driver := a.sessionDriver(); driver {
	case sessionDriverMemory, "":
		a.memStore = memstore.NewWithCleanupInterval(a.config.GetSecond("session.memory_cleanup_seconds"))
		store = a.memStore
		locker = session.NewMemoryLocker()
	case sessionDriverRedis:
		store = session.NewRedisStore(a.cacheConn)
		locker = session.NewRedisLocker(a.cacheConn, a.uuid, 0)
	default:
		slog.Error("failed to init session", "error", "unknown session driver", "driver", driver)
		os.Exit(1)
	}

	codec, err := session.NewSignedCodec(a.config.GetString("app.secret_key"))
	if err != nil {
		slog.Error("failed to init session codec", "error", err)
		os.Exit(1)
	}

	a.sessions = session.NewManager(session.ManagerConfig{
		Store:  store,
		Locker: locker,
		Codec:  codec,
		Cookie: session.CookieConfig{
			Name:     a.config.GetString("session.cookie_name"),
			Secure:   a.config.GetBool("session.cookie_secure"),
			HTTPOnly: a.config.GetBool("session.cookie_httponly"),
			SameSite: http.SameSiteLaxMode,
		},
		TTL:     a.config.GetSecond("session.ttl_seconds"),
		LockTTL: a.config.GetSecond("session.lock_ttl_seconds"),
	})
}

func (a *App) initMail() {
	sender := a.config.GetString("mail.default_sender")

	if a.config.GetBool("mail.suppress_send") {
		a.mail = mail.NewLog(sender)
		return
	}

	client, err := mail.NewSMTP(mail.SMTPConfig{
		Host:     a.config.GetString("mail.server"),
		Port:     a.config.GetInt("mail.port"),
		Username: a.config.GetString("mail.username"),
		Password: a.config.GetString("mail.password"),
		From:     sender,
		UseTLS:   a.config.GetBool("mail.use_tls"),
		UseSSL:   a.config.GetBool("mail.use_ssl"),
	})
	if err != nil {
		slog.Error("failed to init mail", "error", err)
		os.Exit(1)
	}

	a.mail = client
}

func (a *App) initMessaging() {
	driver := a.config.GetString("messaging.driver")
	client, err := messaging.NewFromDriver(a.ctx, driver, messaging.FactoryOptions{
		MemoryBuffer: a.config.GetInt("goroutine.queue"),
		NSQ: messaging.NSQConfig{
			ProducerAddr:         a.config.GetString("messaging.nsq.nsqd"),
			ConsumerNSQDAddrs:    a.config.GetArray("messaging.nsq.nsqd"),
			ConsumerLookupdAddrs: a.config.GetArray("messaging.nsq.lookupd"),
		},
		NATS: messaging.NATSConfig{
			URL: a.config.GetString("messaging.nats.url"),
			Options: []nats.Option{
				nats.Name(a.config.GetString("app.name")),
				nats.MaxReconnects(-1),
				nats.RetryOnFailedConnect(true),
			},
		},
		Kafka: messaging.KafkaConfig{
			Brokers: a.config.GetArray("messaging.kafka.brokers"),
		},
		PubSub: messaging.PubSubConfig{
			ProjectID: a.config.GetString("messaging.pubsub.project_id"),
		},
	})
	if err != nil {
		slog.Error("failed to init messaging", "error", err, "driver", driver)
		os.Exit(1)
	}

	a.messaging = client
}

func (a *App) initHTTPServer() {
	a.router = router.NewRouter(router.Config{
		Config:      a.config,
		UUID:        a.uuid,
		Instrument:  a.ins,
		Middlewares: []router.Middleware{a.sessions.Middleware},
	})

	a.router.GET("/health", func(*router.Request) (any, error) {
		return map[string]string{"status": "ok"}, nil
	})

	routerWithCORS := cors.New(cors.Options{
		AllowedOrigins: a.config.GetArray("app.cors.origins"),
		AllowedMethods: []string{
			http.MethodGet,
			http.MethodPost,
			http.MethodOptions,
		},
		AllowedHeaders:   []string{"*"},
		AllowCredentials: true,
	}).Handler(a.router)

	a.httpServer = &http.Server{
		Addr: net.JoinHostPort(
			a.config.GetString("app.server.host"),
			strconv.Itoa(a.config.GetInt("app.server.port")),
		),
		Handler:           routerWithCORS,
		ReadTimeout:       a.config.GetSecond("app.server.read_timeout"),
		ReadHeaderTimeout: a.config.GetSecond("app.server.read_timeout"),
		WriteTimeout:      a.config.GetSecond("app.server.write_timeout"),
	}
}

func (a *App) initClosers() {
	a.closers = []struct {
		name string
		fn   func(context.Context) error
	}{
		{
			name: "Messaging",
			fn: func(context.Context) error {
				return a.messaging.Close()
			},
		},
		{
			name: "Session",
			fn: func(context.Context) error {
				if a.memStore != nil {
					a.memStore.StopCleanup()
				}
				return nil
			},
		},
		{
			name: "Mail",
			fn: func(context.Context) error {
				return a.mail.Close()
			},
		},
		{
			name: "Redis",
			fn: func(context.Context) error {
				if a.cacheConn == nil {
					return nil
				}
				return a.cacheConn.Close()
			},
		},
		{
			name: "Instrument",
			fn: func(ctx context.Context) error {
				return a.ins.Shutdown(ctx)
			},
		},
		{
			name: "Config",
			fn: func(context.Context) error {
				return a.config.Close()
			},
		},
	}
}
