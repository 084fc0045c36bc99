package main

import (
	"context"
	"log"
	"os"
	"strings"
	"time"

	"github.com/park285/cheese-checkers/internal/apiclient"
)

func main() {
	baseURL := os.Getenv("CHECKERS_BASE_URL")
	if baseURL == "" {
		log.Fatal("CHECKERS_BASE_URL is required")
	}
	client := apiclient.New(baseURL, apiclient.WithTimeout(8*time.Second))

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := client.Health(ctx); err != nil {
		log.Fatalf("/healthz error: %v", err)
	}
	log.Printf("/healthz ok")

	lobbies, err := client.Lobbies(ctx)
	if err != nil {
		log.Printf("/lobbies error: %v", err)
	} else {
		log.Printf("/lobbies ok: %d waiting", len(lobbies))
		for _, l := range lobbies {
			log.Printf("  %s by %s in %s", l.Code, l.CreatorName, l.CreatorRoom)
		}
	}

	matchID := os.Getenv("CHECK_MATCH_ID")
	if matchID == "" {
		log.Println("CHECK_MATCH_ID not set; skipping match check")
		return
	}
	st, err := client.Match(ctx, matchID)
	if err != nil {
		log.Fatalf("/matches/%s error: %v", matchID, err)
	}
	log.Printf("match %s: %s, %s to move, light %d dark %d", st.ID, st.Status, st.Turn, st.LightLeft, st.DarkLeft)
	log.Printf("\n%s", strings.Join(st.Rows, "\n"))
}
