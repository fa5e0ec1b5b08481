package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/note-share/internal/config"
	"github.com/iliyamo/note-share/internal/database"
	"github.com/iliyamo/note-share/internal/handler"
	"github.com/iliyamo/note-share/internal/queue"
	"github.com/iliyamo/note-share/internal/repository"
	"github.com/iliyamo/note-share/internal/router"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	noteRepo := repository.NewNoteRepo(db)
	userRepo := repository.NewUserRepo(db)
	tokenRepo := repository.NewTokenRepo(db)

	noteHandler := handler.NewNoteHandler(noteRepo, userRepo)
	authHandler := handler.NewAuthHandler(cfg, userRepo, tokenRepo)
	profileHandler := handler.NewProfileHandler(cfg.BcryptCost, userRepo)

	// Redis backs rate limiting and response caching; nil disables both.
	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Printf("redis unavailable; rate limiting and caching disabled")
	}

	e := echo.New()
	router.RegisterRoutes(e, noteHandler, authHandler, profileHandler, cfg.JWTSecret, rdb)

	// The activity consumer reconnects on its own; it never stops the server.
	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	addr := ":" + cfg.Port
	log.Printf("listening on %s (env=%s)", addr, cfg.Env)

	if err := e.Start(addr); err != nil {
		log.Fatal(err)
	}
}
