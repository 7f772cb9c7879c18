package main

import (
	"context"
	"crypto/tls"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"
	"github.com/redis/go-redis/v9"
	log "github.com/sirupsen/logrus"

	"kanban-api/api"
	"kanban-api/storage"
)

func main() {
	if dbg, err := strconv.ParseBool(os.Getenv("DEBUG")); err == nil && dbg {
		log.SetLevel(log.DebugLevel)
	}
	logger := log.New()

	var store api.Store
	if path := os.Getenv("SQLITE_PATH"); path != "" {
		s, err := storage.OpenSQLStore(context.Background(), path)
		if err != nil {
			log.Fatalf("sqlite storage: %v", err)
		}
		defer s.Close()
		store = s
		logger.WithField("path", path).Info("using sqlite backend")
	} else {
		path := os.Getenv("DATA_FILE")
		if path == "" {
			path = "board.json"
		}
		store = storage.NewFileStore(path, logger)
		logger.WithField("path", path).Info("using file backend")
	}

	if redisConn := os.Getenv("REDIS_CONNECTION_STRING"); redisConn != "" {
		redisOpts, err := redis.ParseURL(redisConn)
		if err != nil {
			parts := strings.Split(redisConn, ",")
			redisOpts = &redis.Options{Addr: parts[0]}
			for _, p := range parts[1:] {
				kv := strings.SplitN(p, "=", 2)
				if len(kv) != 2 {
					continue
				}
				switch strings.ToLower(kv[0]) {
				case "password":
					redisOpts.Password = kv[1]
				case "ssl":
					if strings.ToLower(kv[1]) == "true" {
						redisOpts.TLSConfig = &tls.Config{}
					}
				}
			}
		}
		ttl := 5 * time.Minute
		if v := os.Getenv("BOARD_CACHE_TTL"); v != "" {
			d, err := time.ParseDuration(v)
			if err != nil || d <= 0 {
				log.Fatalf("invalid BOARD_CACHE_TTL: %v", err)
			}
			ttl = d
		}
		store = storage.NewCache(store, redis.NewClient(redisOpts), ttl)
		logger.Info("board cache enabled")
	}

	e := echo.New()
	e.Use(middleware.CORSWithConfig(middleware.CORSConfig{
		AllowOrigins: []string{"*"},
		AllowHeaders: []string{echo.HeaderOrigin, echo.HeaderContentType, echo.HeaderAccept, api.HeaderProjectSecret},
	}))

	api.Register(e, store, logger)

	listenAddr := ":8080"
	if val, ok := os.LookupEnv("PORT"); ok {
		listenAddr = ":" + val
	}

	e.Logger.Fatal(e.Start(listenAddr))
}
