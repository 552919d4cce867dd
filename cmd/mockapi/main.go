package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os"

	"golang.org/x/crypto/bcrypt"

	"github.com/plateful/storefront/internal/config"
	"github.com/plateful/storefront/internal/enum"
	"github.com/plateful/storefront/internal/mockapi"
	"github.com/plateful/storefront/internal/model"
)

func main() {
	cfg := config.Load()
	ctx := context.Background()

	var store mockapi.Store
	if cfg.DatabaseURL != "" {
		pg, err := mockapi.OpenPostgres(ctx, cfg.DatabaseURL)
		if err != nil {
			log.Fatalf("open postgres: %v", err)
		}
		defer pg.Close()
		store = pg
		log.Println("Using Postgres order store")
	} else {
		store = mockapi.NewMemoryStore()
		log.Println("Using in-memory order store")
	}

	if err := bootstrapOwner(ctx, store); err != nil {
		log.Fatalf("bootstrap owner: %v", err)
	}

	hub := mockapi.NewHub()
	go hub.Run()

	router := mockapi.NewRouter(store, hub, cfg.JWTSecret)

	log.Printf("Order service listening on :%s", cfg.Port)
	if err := http.ListenAndServe(":"+cfg.Port, router); err != nil {
		log.Fatal(err)
	}
}

// bootstrapOwner ensures an owner account exists so the seed tool can
// log in against a fresh store.
func bootstrapOwner(ctx context.Context, store mockapi.Store) error {
	email := os.Getenv("ADMIN_EMAIL")
	if email == "" {
		email = "owner@plateful.dev"
	}
	password := os.Getenv("ADMIN_PASSWORD")
	if password == "" {
		password = "password123"
		log.Println("WARNING: Using default owner password 'password123'. Set ADMIN_PASSWORD in production!")
	}

	_, err := store.GetUserByEmail(ctx, email)
	if err == nil {
		return nil
	}
	if !errors.Is(err, mockapi.ErrNotFound) {
		return err
	}

	hashed, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return err
	}
	_, err = store.CreateUser(ctx, model.User{
		FullName:       "Owner",
		Email:          email,
		Role:           enum.RoleOwner,
		HashedPassword: string(hashed),
	})
	if err == nil {
		log.Printf("Created owner account %s", email)
	}
	return err
}
