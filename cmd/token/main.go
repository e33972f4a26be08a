// Command token prints a bearer token for a writer id, signed with JWT_SECRET.
// It stands in for a sign-in flow during local development.
package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"time"

	"github.com/bookshelf-service/cmd/api/auth"
	"github.com/bookshelf-service/cmd/api/config"
	"github.com/google/uuid"
)

func main() {
	var (
		writer = flag.String("writer", "", "writer id, a new one is generated when empty")
		ttl    = flag.Duration("ttl", 24*time.Hour, "token lifetime")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalln("loading config:", err)
	}
	if cfg.JWTSecret == "" {
		log.Fatalln("JWT_SECRET is required")
	}

	writerID := uuid.New()
	if *writer != "" {
		writerID, err = uuid.Parse(*writer)
		if err != nil {
			log.Fatalln("parsing writer id:", err)
		}
	}

	token, err := auth.GenerateToken(cfg.JWTSecret, writerID, *ttl)
	if err != nil {
		log.Fatalln("signing token:", err)
	}
	fmt.Fprintf(os.Stderr, "writer %s\n", writerID)
	fmt.Println(token)
}
