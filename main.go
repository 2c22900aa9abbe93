package main

import (
	"context"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gorilla/mux"

	"swiftchat/chat"
	"swiftchat/config"
	"swiftchat/database"
	"swiftchat/handlers"
	"swiftchat/middleware"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}

	store, err := database.Open(cfg.DatabaseURL)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	defer store.Close()

	hub := chat.NewHub(store, cfg.TypingTimeout, cfg.HistoryLimit)
	auth := middleware.NewAuth(cfg.JWTSecret, store)
	authHandler := handlers.NewAuthHandler(store, auth)
	userHandler := handlers.NewUserHandler(store, hub)

	r := mux.NewRouter()
	r.HandleFunc("/api/auth/signup", authHandler.Signup).Methods(http.MethodPost)
	r.HandleFunc("/api/auth/login", authHandler.Login).Methods(http.MethodPost)
	r.Handle("/api/auth/me", auth.Middleware(http.HandlerFunc(authHandler.Me))).Methods(http.MethodGet)
	r.Handle("/api/users", auth.Middleware(http.HandlerFunc(userHandler.List))).Methods(http.MethodGet)
	r.Handle("/api/users/search", auth.Middleware(http.HandlerFunc(userHandler.Search))).Methods(http.MethodGet)
	r.Handle("/ws", auth.Middleware(handlers.HandleWebSocket(hub)))

	server := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	serveErr := make(chan error, 1)
	go func() {
		log.Printf("swiftchat server listening on :%s", cfg.Port)
		serveErr <- server.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		log.Println("shutting down")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			log.Printf("shutdown http server: %v", err)
		}
		hub.Close()
	case err := <-serveErr:
		if err != nil && err != http.ErrServerClosed {
			log.Fatalf("serve: %v", err)
		}
	}
}
