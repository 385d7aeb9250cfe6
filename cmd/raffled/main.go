package main

import (
	"os"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/logger"
	cli "gopkg.in/urfave/cli.v1"

	"raffle/internal/config"
	"raffle/internal/handlers"
	"raffle/internal/ledger"
	"raffle/internal/oracle"
	"raffle/internal/services"
	"raffle/internal/store"
)

func main() {
	app := cli.NewApp()
	app.Name = "raffled"
	app.Usage = "ticketed raffle service with escrow and commit/reveal draws"
	app.Flags = []cli.Flag{
		cli.StringFlag{Name: "config, c", Usage: "path to TOML config file"},
		cli.StringFlag{Name: "listen, l", Usage: "listen address (overrides config)"},
	}
	app.Action = run
	if err := app.Run(os.Args); err != nil {
		logger.Fatalf("raffled: %v", err)
	}
}

func run(c *cli.Context) error {
	// 1. Load configuration.
	cfg, err := config.Load(c.String("config"))
	if err != nil {
		return err
	}
	if addr := c.String("listen"); addr != "" {
		cfg.ListenAddr = addr
	}

	defer logger.Init("raffled", true, false, os.Stderr).Close()

	// 2. Open the raffle store.
	st, err := store.Open(cfg.DBPath)
	if err != nil {
		return err
	}
	defer st.Close()

	// 3. Wire the collaborators: account book, slot clock, beacon.
	book := ledger.NewBook()
	clock := oracle.WallClock{Epoch: time.Now(), SlotDur: cfg.SlotDuration()}
	beacon := oracle.NewBeacon(clock, []byte(cfg.BeaconSecret))

	// 4. Initialize the raffle service and HTTP handler.
	raffleService := services.NewRaffleService(st, book, beacon, clock, cfg.FeeBps)
	httpHandler := handlers.NewHTTPHandler(raffleService, book, beacon, cfg.DevMode)

	// 5. Set up the Gin router and register routes.
	r := gin.Default()
	httpHandler.RegisterRoutes(r)

	// 6. Run the server.
	logger.Infof("server starting on %s (fee=%dbps slot=%s)", cfg.ListenAddr, cfg.FeeBps, cfg.SlotDuration())
	return r.Run(cfg.ListenAddr)
}
