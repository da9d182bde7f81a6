package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"tubeauth/internal/config"
	"tubeauth/internal/database"
	"tubeauth/internal/media"
	"tubeauth/internal/pkg/cookie"
	jwtsvc "tubeauth/internal/pkg/jwt"
	"tubeauth/internal/repository"
	"tubeauth/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		log.Printf("load .env: %v", err)
	}

	cfg, err := config.LoadAuthRuntimeConfig()
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	db, err := database.Connect(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("db connect failed: %v", err)
	}
	if err := repository.AutoMigrate(db); err != nil {
		log.Fatalf("migrate failed: %v", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, staticDir, staticBase, err := mediaStore(ctx, cfg)
	if err != nil {
		log.Fatalf("media store: %v", err)
	}

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))

	router := server.NewRouter(server.Deps{
		Users:  repository.NewUserRepository(db).WithTimeout(cfg.StoreTimeout),
		Media:  store,
		Tokens: jwtsvc.New(cfg.TokenConfig()),
		Cookies: cookie.Policy{
			Secure:   cfg.CookieSecure,
			SameSite: cookie.ParseSameSite(cfg.CookieSameSite),
			Path:     cfg.CookiePath,
			Domain:   cfg.CookieDomain,
		},
		CORSOrigins:       cfg.CORSAllowedOrigins,
		Registry:          reg,
		MetricsToken:      cfg.MetricsToken,
		MetricsAllowedIPs: cfg.MetricsAllowedIPs,
		StaticDir:         staticDir,
		StaticBase:        staticBase,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		log.Printf("listening addr=%s env=%s media=%s", srv.Addr, cfg.AppEnv, cfg.MediaBackend)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("listen: %v", err)
		}
	}()

	<-ctx.Done()
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Printf("shutdown: %v", err)
	}
}

// mediaStore picks the upload backend. Only the local store is served by
// this process, so only it returns a static dir.
func mediaStore(ctx context.Context, cfg *config.AuthRuntimeConfig) (media.Store, string, string, error) {
	if cfg.MediaBackend == "s3" {
		client, err := media.NewS3Client(ctx, media.S3Config{
			Region:        cfg.S3Region,
			Endpoint:      cfg.S3Endpoint,
			Bucket:        cfg.S3Bucket,
			AccessKey:     cfg.S3AccessKey,
			SecretKey:     cfg.S3SecretKey,
			PublicBaseURL: cfg.S3PublicBaseURL,
		})
		if err != nil {
			return nil, "", "", err
		}
		return media.NewS3Store(client, cfg.S3Bucket, cfg.S3PublicBaseURL), "", "", nil
	}

	local := media.NewLocalStore(cfg.UploadDir, cfg.StaticURLBase)
	return local, local.BaseDir(), local.StaticBase(), nil
}
