package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"exchangeapi/cmd/refrates"
	"exchangeapi/src/database"
	"exchangeapi/src/executors"
	"exchangeapi/src/ledger"
	"exchangeapi/src/server"

	"github.com/sirupsen/logrus"
	"github.com/urfave/cli"
)

var Version string

func main() {
	app := cli.NewApp()
	app.Name = "Exchange CMD"
	app.Usage = "The exchange marketplace command line interface"

	app.Commands = []cli.Command{
		serveCMD,
		sweepCMD,
		refRatesCMD,
	}

	if err := app.Run(os.Args); err != nil {
		_, _ = fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

var (
	serveCMD = cli.Command{
		Name:        "serve",
		Usage:       "run the HTTP API server",
		Action:      serveAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Run the marketplace HTTP API`,
	}
	sweepCMD = cli.Command{
		Name:        "sweep",
		Usage:       "run the reservation consistency sweep",
		Action:      sweepAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Periodically recompute reserved amounts for open orders`,
	}
	refRatesCMD = cli.Command{
		Name:        "refrates",
		Usage:       "load crypto reference rates",
		Action:      refRatesAction,
		ArgsUsage:   "",
		Flags:       []cli.Flag{},
		Description: `Fetch spot tickers for configured pairs and store them as reference rates`,
	}
)

func serveAction(_ *cli.Context) error {
	if err := database.InitMainDB(); err != nil {
		return err
	}

	server.StartServer(server.GetConfig().Port)
	return nil
}

func sweepAction(_ *cli.Context) error {
	if err := database.InitMainDB(); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	service := ledger.NewService(database.MainDB, ledger.GetConfig())
	return executors.StartSweepLoop(ctx, service)
}

func refRatesAction(_ *cli.Context) error {
	if err := database.InitMainDB(); err != nil {
		return err
	}

	loader := &refrates.RefRates{
		Log: logrus.WithField("cmd", "refrates"),
		DB:  database.MainDB,
	}
	return loader.Start()
}
