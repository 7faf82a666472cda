package main

import (
	"log"

	"github.com/MrSnakeDoc/catalogd/internal/app"
)

func main() {
	if err := app.New().Run(); err != nil {
		log.Fatalf("❌ catalogd failed to start: %v", err)
	}
}
