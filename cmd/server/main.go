package main

import (
	"log"

	"github.com/joho/godotenv"
	"github.com/labstack/echo/v4"
	echomw "github.com/labstack/echo/v4/middleware"

	"github.com/sileme/sileme/internal/config"
	"github.com/sileme/sileme/internal/database"
	"github.com/sileme/sileme/internal/handler"
	"github.com/sileme/sileme/internal/middleware"
	"github.com/sileme/sileme/internal/queue"
	"github.com/sileme/sileme/internal/repository"
	"github.com/sileme/sileme/internal/router"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Println("No .env file found, relying on environment")
	}
	cfg := config.Load()

	db, err := database.Open(cfg.DBUser, cfg.DBPass, cfg.DBHost, cfg.DBPort, cfg.DBName)
	if err != nil {
		log.Fatalf("database connect failed: %v", err)
	}
	defer db.Close()

	users := repository.NewUserRepo(db)
	tokens := repository.NewTokenRepo(db)
	checkins := repository.NewCheckinRepo(db)
	friends := repository.NewFriendRepo(db)
	groups := repository.NewGroupRepo(db)
	notifs := repository.NewNotificationRepo(db)

	e := echo.New()
	e.HideBanner = true
	e.Use(echomw.Recover())
	e.Use(echomw.Logger())

	rdb := config.NewRedisClient()
	if rdb == nil {
		log.Println("redis unavailable, rate limiting disabled")
	}
	e.Use(middleware.NewTokenBucket(config.LoadRateLimitConfig(), rdb))

	router.Register(e, router.Handlers{
		Auth:          handler.NewAuthHandler(cfg, users, tokens),
		Profile:       handler.NewProfileHandler(users),
		Checkins:      handler.NewCheckinHandler(users, checkins),
		Friends:       handler.NewFriendHandler(users, checkins, friends, notifs),
		Groups:        handler.NewGroupHandler(users, checkins, groups, notifs),
		Notifications: handler.NewNotificationHandler(users, groups, notifs),
	}, cfg.JWTSecret)

	go func() {
		if err := queue.StartActivityConsumer(); err != nil {
			log.Printf("activity consumer stopped: %v", err)
		}
	}()

	log.Printf("starting server env=%s port=%s", cfg.Env, cfg.Port)
	if err := e.Start(":" + cfg.Port); err != nil {
		log.Fatalf("server stopped: %v", err)
	}
}
