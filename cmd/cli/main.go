package main

import (
	"context"

	"github.com/securecloudx/securecloudx/internal/client/cli"
	"github.com/securecloudx/securecloudx/internal/client/config"
)

func main() {

	ctx := context.Background()
	cfg := config.LoadConfig()
	app := cli.NewApp(cfg)

	app.Run(ctx)

}
