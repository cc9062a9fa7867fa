// Package main implements the entry point for the SprintDeck API
// server, which schedules spaced-repetition reviews, manages review
// sprints, and sends due-card push notifications.
package main

import (
	"context"
	"log"
)

func main() {
	app, err := newApplication()
	if err != nil {
		log.Fatalf("Failed to initialize application: %v", err)
	}
	defer app.cleanup()

	if err := app.run(context.Background()); err != nil {
		log.Fatalf("Server exited with error: %v", err)
	}
}
