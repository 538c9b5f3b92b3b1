package main

import (
	"github.com/ilindan-dev/auction-watchlist/internal/app"
	"go.uber.org/fx"
)

// main is the entry point for the watchlist server: HTTP API, events consumer and sessions in one process.
func main() {
	fx.New(app.ServerModule).Run()
}
