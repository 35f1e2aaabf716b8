package main

import (
	"context"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/go-redis/redis/v8"
	_ "github.com/lib/pq"

	"github.com/edusphere/go-classroom/internal/api"
	"github.com/edusphere/go-classroom/internal/config"
	"github.com/edusphere/go-classroom/internal/database"
	"github.com/edusphere/go-classroom/internal/server"
	"github.com/edusphere/go-classroom/internal/stats"
)

const defaultSigningKey = "M3q5tH0W0cRBjfZgeYQdFutFXKd9YHzR4X5xPCuQk7o="

type stringSliceFlag []string

func (s *stringSliceFlag) String() string {
	return strings.Join(*s, ",")
}

func (s *stringSliceFlag) Set(value string) error {
	*s = append(*s, strings.Split(value, ",")...)
	return nil
}

var (
	addr           string
	dsn            string
	signingKey     string
	redisAddr      string
	allowedOrigins stringSliceFlag
)

func main() {
	flag.StringVar(&addr, "addr", "localhost:8000", "server address")
	flag.StringVar(&dsn, "dsn", "host=localhost user=postgres password=postgres dbname=postgres sslmode=disable", "database connection string")
	flag.StringVar(&signingKey, "signing-key", defaultSigningKey, "base64 encoded signing key")
	flag.StringVar(&redisAddr, "redis-addr", "", "redis address for cross-instance fan-out (empty runs single-instance)")
	flag.Var(&allowedOrigins, "allowed-origins", "comma-separated list of allowed origins for CORS")
	flag.Parse()

	logger := log.New(os.Stderr, "[classroom] ", log.LstdFlags)

	cfg, err := config.NewConfig(addr, dsn, signingKey, redisAddr, allowedOrigins)
	if err != nil {
		logger.Fatal("config:", err)
	}

	dbConn, err := database.NewPgClassroomRepository(cfg.DatabaseDSN)
	if err != nil {
		logger.Fatal("db open:", err)
	}
	defer func() {
		if err := dbConn.Close(); err != nil {
			logger.Fatal("db close:", err)
		}
	}()

	if err := dbConn.Migrate(); err != nil {
		logger.Fatal("migrate:", err)
	}

	var broadcaster server.GroupBroadcaster
	if cfg.RedisAddr != "" {
		rdb := redis.NewClient(&redis.Options{Addr: cfg.RedisAddr})
		if err := rdb.Ping(context.Background()).Err(); err != nil {
			logger.Fatal("redis:", err)
		}
		broadcaster = server.NewRedisBroadcaster(rdb, logger)
	} else {
		broadcaster = server.NewLocalBroadcaster()
	}

	mux := http.NewServeMux()

	statsUpdater := stats.NewStatsUpdater(mux)

	classServer, err := server.NewClassServer(logger, dbConn, statsUpdater, broadcaster)
	if err != nil {
		logger.Fatal("new class server:", err)
	}

	srv := api.NewClassroomApp(mux, logger, classServer, dbConn, cfg)

	statsUpdater.Run()
	defer statsUpdater.Stop()

	go classServer.Run()

	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, syscall.SIGINT, syscall.SIGTERM)

	select {
	case sig := <-sigs:
		logger.Printf("received signal: %s\n", sig)
	case err := <-errCh:
		logger.Println("server:", err)
	}

	shutDownCtx, cancel := context.WithTimeout(
		context.Background(),
		10*time.Second,
	)
	defer cancel()

	if err := srv.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("HTTP server shutdown:", err)
	}

	logger.Println("shutting down class server...")
	if err := classServer.Shutdown(shutDownCtx); err != nil {
		logger.Fatalln("class server shutdown:", err)
	}

	if err := broadcaster.Close(); err != nil {
		logger.Println("broadcaster close:", err)
	}

	logger.Println("shutdown complete")
}
