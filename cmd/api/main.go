package main

import (
	"context"
	"crypto/rand"
	"database/sql"
	"log"
	"net"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	_ "github.com/jackc/pgx/v5/stdlib"
	"google.golang.org/grpc"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"

	"librix.org/internal/audit"
	"librix.org/internal/auth"
	"librix.org/internal/httpapi"
	"librix.org/internal/library"
	"librix.org/internal/obs"
)

var (
	version = "0.3.1"
	commit  = "dev"
)

func main() {
	obs.Init()
	obs.InitBuildInfo(version, commit)

	addr := envOr("LIBRIX_ADDR", ":8080")
	grpcAddr := envOr("LIBRIX_GRPC_ADDR", ":9090")

	key := []byte(os.Getenv("LIBRIX_AUTH_SECRET"))
	if len(key) == 0 {
		// Random per-process key: tokens do not survive a restart.
		key = make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			log.Fatalf("generate signing key: %v", err)
		}
		log.Println(`{"level":"warn","msg":"LIBRIX_AUTH_SECRET not set, using a random per-process signing key"}`)
	}

	var db *sql.DB
	if dsn := os.Getenv("LIBRIX_PG_DSN"); dsn != "" {
		var err error
		db, err = sql.Open("pgx", dsn)
		if err != nil {
			log.Fatalf("open db: %v", err)
		}
		db.SetMaxOpenConns(10)
		db.SetMaxIdleConns(10)
		db.SetConnMaxLifetime(30 * time.Minute)
	}

	var (
		store auth.Store
		lib   library.Service
	)
	if db != nil {
		store = auth.NewPGStore(db)
		lib = library.NewPGService(db)
	} else {
		log.Println(`{"level":"warn","msg":"LIBRIX_PG_DSN not set, using in-memory stores"}`)
		store = auth.NewInMemoryStore()
		lib = library.NewInMemory()
	}

	codec, err := auth.NewCodec(key)
	if err != nil {
		log.Fatalf("auth codec: %v", err)
	}
	authSvc, err := auth.NewService(store, codec)
	if err != nil {
		log.Fatalf("auth service: %v", err)
	}

	events := audit.NewRecorder()
	probe := httpapi.ReadyProbe{DB: db}
	api := httpapi.New(probe, version, authSvc, lib, events)

	srv := &http.Server{
		Addr:              addr,
		Handler:           api.Handler(),
		ReadTimeout:       15 * time.Second,
		ReadHeaderTimeout: 15 * time.Second,
		WriteTimeout:      15 * time.Second,
		IdleTimeout:       60 * time.Second,
	}

	grpcSrv := grpc.NewServer()
	healthpb.RegisterHealthServer(grpcSrv, httpapi.NewGRPCServer(probe, version))

	rootCtx, rootCancel := context.WithCancel(context.Background())
	defer rootCancel()

	// Expired refresh rows are rejected on use; the sweep just keeps the
	// table small.
	go func() {
		ticker := time.NewTicker(1 * time.Hour)
		defer ticker.Stop()
		for {
			select {
			case <-rootCtx.Done():
				return
			case <-ticker.C:
				if n, err := authSvc.PurgeExpiredTokens(rootCtx); err != nil {
					log.Printf("purge refresh tokens: %v", err)
				} else if n > 0 {
					log.Printf("purged %d expired refresh tokens", n)
				}
			}
		}
	}()

	log.Printf("Starting librix-api %s on %s (grpc %s)", version, addr, grpcAddr)

	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("listen: %v", err)
		}
	}()
	go func() {
		lis, err := net.Listen("tcp", grpcAddr)
		if err != nil {
			log.Fatalf("grpc listen: %v", err)
		}
		if err := grpcSrv.Serve(lis); err != nil {
			log.Fatalf("grpc serve: %v", err)
		}
	}()

	stop := make(chan os.Signal, 1)
	signal.Notify(stop, os.Interrupt, syscall.SIGTERM)

	<-stop
	log.Println("Shutting down...")
	rootCancel()

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	_ = srv.Shutdown(ctx)
	grpcSrv.GracefulStop()
	if db != nil {
		_ = db.Close()
	}
	log.Println("Stopped")
}

func envOr(name, fallback string) string {
	if v := os.Getenv(name); v != "" {
		return v
	}
	return fallback
}
