package main

import (
	"context"
	"flag"
	"log"

	"github.com/dmitrijs2005/hushkey/internal/server"
	"github.com/dmitrijs2005/hushkey/internal/server/config"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg := config.MustLoad(*configPath)

	app, err := server.NewApp(cfg)
	if err != nil {
		log.Printf("%v", err)
		return
	}

	if err := app.Run(context.Background()); err != nil {
		log.Printf("%v", err)
	}
}
