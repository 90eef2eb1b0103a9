package main

import (
	"flag"
	"fmt"
	"os"
	"time"

	"clothing-marketplace/internal/auth"
	"clothing-marketplace/internal/config"
	"clothing-marketplace/internal/model"

	"github.com/google/uuid"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Mints a bearer token signed with JWT_SECRET for calling the API locally.
func main() {
	id := flag.String("id", "", "principal id (random when empty)")
	role := flag.String("role", string(model.RoleCustomer), "customer, seller or admin")
	ttl := flag.Duration("ttl", 24*time.Hour, "token lifetime")
	flag.Parse()

	_ = godotenv.Load()

	var cfg config.AuthConfig
	if err := envconfig.Process("", &cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Invalid auth configuration: %v\n", err)
		os.Exit(1)
	}

	principal := model.Principal{ID: uuid.New(), Role: model.Role(*role)}
	if *id != "" {
		parsed, err := uuid.Parse(*id)
		if err != nil {
			fmt.Fprintf(os.Stderr, "Invalid id: %v\n", err)
			os.Exit(1)
		}
		principal.ID = parsed
	}

	token, err := auth.Mint(cfg, principal, time.Now(), *ttl)
	if err != nil {
		fmt.Fprintf(os.Stderr, "Failed to mint token: %v\n", err)
		os.Exit(1)
	}

	fmt.Fprintf(os.Stderr, "principal %s (%s)\n", principal.ID, principal.Role)
	fmt.Println(token)
}
