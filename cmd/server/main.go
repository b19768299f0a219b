package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	"github.com/gorilla/handlers"
	"github.com/gorilla/mux"
	redisDriver "github.com/redis/go-redis/v9"

	"chatlink/internal/auth"
	"chatlink/internal/config"
	"chatlink/internal/handlers/api"
	"chatlink/internal/handlers/ws"
	"chatlink/internal/middleware"
	"chatlink/internal/realtime"
	appRedis "chatlink/internal/redis"
	"chatlink/internal/services"
	"chatlink/internal/storage"
)

func main() {
	cfg, err := config.LoadConfig("")
	if err != nil {
		log.Fatalf("failed to load configuration: %v", err)
	}
	log.Printf("%s %s starting", cfg.AppName, cfg.AppVersion)

	db, err := storage.InitDB(cfg.Database)
	if err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	if err := storage.AutoMigrateTables(db); err != nil {
		log.Fatalf("database migration failed: %v", err)
	}

	redisClient := redisDriver.NewClient(&redisDriver.Options{
		Addr:     cfg.Redis.Addr,
		Password: cfg.Redis.Password,
		DB:       cfg.Redis.DB,
	})
	if _, err := redisClient.Ping(context.Background()).Result(); err != nil {
		log.Fatalf("failed to connect to redis: %v", err)
	}
	var blacklist auth.TokenBlacklist = appRedis.NewRedisTokenBlacklist(redisClient)

	media, err := storage.NewLocalMediaStorage(cfg.Storage)
	if err != nil {
		log.Fatalf("failed to initialize media storage: %v", err)
	}

	userRepo := storage.NewGormUserRepository(db)
	msgRepo := storage.NewGormMessageRepository(db)
	friendReqRepo := storage.NewGormFriendRequestRepository(db)
	friendshipRepo := storage.NewGormFriendshipRepository(db)

	authService := services.NewAuthService(userRepo, cfg)
	userService := services.NewUserService(userRepo)
	messageService := services.NewMessageService(msgRepo, userRepo, media)
	friendService := services.NewFriendService(db, userRepo, friendReqRepo, friendshipRepo)

	registry := realtime.NewRegistry()
	dispatcher := realtime.NewDispatcher(registry, messageService)

	authHandler := api.NewAuthHandler(authService, blacklist)
	userHandler := api.NewUserHandler(userService)
	friendHandler := api.NewFriendHandler(friendService)
	messageHandler := api.NewMessageHandler(messageService)
	uploadHandler := api.NewUploadHandler(media, cfg.Storage)
	wsHandler := ws.NewWebSocketHandler(registry, dispatcher, blacklist, cfg)

	r := mux.NewRouter()

	authRouter := r.PathPrefix("/auth").Subrouter()
	authRouter.HandleFunc("/register", authHandler.Register).Methods(http.MethodPost)
	authRouter.HandleFunc("/login", authHandler.Login).Methods(http.MethodPost)

	authenticator := middleware.NewAuthenticator(cfg.Auth, blacklist)

	apiRouter := r.PathPrefix("/api/v1").Subrouter()
	apiRouter.Use(authenticator.Middleware)

	apiRouter.HandleFunc("/auth/logout", authHandler.Logout).Methods(http.MethodPost)

	apiRouter.HandleFunc("/users/me", userHandler.GetMe).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users", userHandler.ListUsers).Methods(http.MethodGet)
	apiRouter.HandleFunc("/users/{userID:[0-9]+}", userHandler.GetUser).Methods(http.MethodGet)

	apiRouter.HandleFunc("/friends", friendHandler.ListFriends).Methods(http.MethodGet)
	friendRequestRouter := apiRouter.PathPrefix("/friend-requests").Subrouter()
	friendRequestRouter.HandleFunc("", friendHandler.SendRequest).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/pending", friendHandler.ListPending).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/sent", friendHandler.ListSent).Methods(http.MethodGet)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/accept", friendHandler.Accept).Methods(http.MethodPost)
	friendRequestRouter.HandleFunc("/{requestID:[0-9]+}/reject", friendHandler.Reject).Methods(http.MethodPost)

	apiRouter.HandleFunc("/messages", messageHandler.Append).Methods(http.MethodPost)
	apiRouter.HandleFunc("/messages/read", messageHandler.MarkRead).Methods(http.MethodPost)
	apiRouter.HandleFunc("/messages/delete", messageHandler.Delete).Methods(http.MethodPost)
	apiRouter.HandleFunc("/messages/{peerID:[0-9]+}", messageHandler.ListConversation).Methods(http.MethodGet)

	apiRouter.HandleFunc("/upload", uploadHandler.Upload).Methods(http.MethodPost)

	// Websocket upgrade authenticates via token query param, not the
	// Authorization header, so it sits outside the API subrouter.
	r.HandleFunc(cfg.Server.WebSocketPath, wsHandler.ServeWS)

	if cfg.Storage.Type == "local" {
		staticPath := strings.TrimSuffix(cfg.Storage.BaseURL, "/") + "/"
		localDir := http.Dir(cfg.Storage.LocalPath)
		r.PathPrefix(staticPath).Handler(http.StripPrefix(staticPath, http.FileServer(localDir)))
		log.Printf("serving uploaded media at %s from %s", staticPath, cfg.Storage.LocalPath)
	}

	corsOptions := []handlers.CORSOption{
		handlers.AllowedOrigins(cfg.Server.CORS.AllowedOrigins),
		handlers.AllowedMethods(cfg.Server.CORS.AllowedMethods),
		handlers.AllowedHeaders(cfg.Server.CORS.AllowedHeaders),
		handlers.MaxAge(cfg.Server.CORS.MaxAge),
	}
	if cfg.Server.CORS.AllowCredentials {
		corsOptions = append(corsOptions, handlers.AllowCredentials())
	}

	serverAddr := fmt.Sprintf("%s:%s", cfg.Server.Host, cfg.Server.Port)
	srv := &http.Server{
		Addr:           serverAddr,
		Handler:        handlers.CORS(corsOptions...)(r),
		ReadTimeout:    cfg.Server.ReadTimeout,
		WriteTimeout:   cfg.Server.WriteTimeout,
		IdleTimeout:    60 * time.Second,
		MaxHeaderBytes: cfg.Server.MaxHeaderBytes,
	}

	go func() {
		log.Printf("server listening on %s", serverAddr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatalf("server failed: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Println("shutdown signal received, stopping server...")

	ctxShutdown, cancelShutdown := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancelShutdown()
	if err := srv.Shutdown(ctxShutdown); err != nil {
		log.Printf("forced shutdown: %v", err)
	}

	if err := redisClient.Close(); err != nil {
		log.Printf("failed to close redis client: %v", err)
	}
	log.Println("server stopped")
}
