package main

import (
	"context"
	"log"

	"github.com/dmitrijs2005/litepos/internal/app"
	"github.com/dmitrijs2005/litepos/internal/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	a, err := app.NewApp(cfg)

	if err != nil {
		log.Fatalf("%v", err)
		return
	}
	defer func() {
		if err := a.Close(); err != nil {
			log.Printf("close: %v", err)
		}
	}()

	if err := a.Run(ctx); err != nil {
		log.Printf("%v", err)
	}

}
