package main

import (
	"context"
	"errors"
	"log"
	"os"
	"time"

	"github.com/joho/godotenv"

	"tubeauth/internal/config"
	"tubeauth/internal/database"
	"tubeauth/internal/repository"
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

	repo := repository.NewUserRepository(db).WithTimeout(cfg.StoreTimeout)
	cleared, err := repo.ClearExpiredRefreshTokens(context.Background(), time.Now())
	if err != nil {
		log.Fatalf("cleanup refresh tokens failed: %v", err)
	}

	log.Printf("auth cleanup completed: refresh_tokens=%d", cleared)
}
