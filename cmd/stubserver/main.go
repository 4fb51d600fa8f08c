package main

import (
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/MicahParks/keyfunc"
	"github.com/joho/godotenv"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"flowboard/stubserver"
)

func main() {
	_ = godotenv.Load()
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}

	cfg := stubserver.Config{Logger: log.StandardLogger()}

	switch {
	case os.Getenv("AUTH_SHARED_SECRET") != "":
		cfg.Auth = stubserver.NewSharedSecretAuth([]byte(os.Getenv("AUTH_SHARED_SECRET")))
	case os.Getenv("JWKS_URL") != "":
		jwks, err := keyfunc.Get(os.Getenv("JWKS_URL"), keyfunc.Options{})
		if err != nil {
			log.Fatalf("jwks: %v", err)
		}
		cfg.Auth = stubserver.NewAuth(jwks, os.Getenv("JWT_AUDIENCE"), os.Getenv("JWT_ISSUER"))
	default:
		log.Warn("no auth configured, requests are anonymous")
	}

	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		ttl := 24 * time.Hour
		if v := os.Getenv("IDEMPOTENCY_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid IDEMPOTENCY_TTL: %v", err)
			}
			ttl = d
		}
		cfg.Deduper = stubserver.NewRedisDeduper(redis.NewClient(redisOptions(redisConn)), ttl)
	}

	if legacy, err := strconv.ParseBool(os.Getenv("STUB_LEGACY_DONE")); err == nil && legacy {
		cfg.LegacyDoneStatus = true
	}

	store := stubserver.NewStore()
	e := stubserver.New(store, cfg)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("STUB_LISTEN_ADDR"); ok {
		listenAddr = val
	}
	e.Logger.Fatal(e.Start(listenAddr))
}

// redisOptions accepts either a redis URL or the comma-separated
// host,password=...,ssl=... form some managed caches hand out.
func redisOptions(connStr string) *redis.Options {
	opts, err := redis.ParseURL(connStr)
	if err == nil {
		return opts
	}
	parts := strings.Split(connStr, ",")
	opts = &redis.Options{Addr: parts[0]}
	for _, p := range parts[1:] {
		kv := strings.SplitN(p, "=", 2)
		if len(kv) != 2 {
			continue
		}
		switch strings.ToLower(kv[0]) {
		case "password":
			opts.Password = kv[1]
		case "ssl":
			if strings.ToLower(kv[1]) == "true" {
				opts.TLSConfig = &tls.Config{}
			}
		}
	}
	return opts
}
