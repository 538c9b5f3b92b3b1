package main

import (
	"github.com/ilindan-dev/auction-watchlist/internal/app"
	"go.uber.org/fx"
)

// main applies pending database migrations and exits.
func main() {
	fx.New(app.MigrateModule, fx.NopLogger).Run()
}
