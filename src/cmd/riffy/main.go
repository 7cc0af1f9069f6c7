package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/chrisjchandler/Riffy/src/di"
)

const shutdownTimeout = 30 * time.Second

func main() {
	container := &di.Container{}
	defer container.Close()

	signals := make(chan os.Signal, 1)
	signal.Notify(signals, syscall.SIGINT, syscall.SIGTERM)

	go func() {
		sig := <-signals
		container.Logger().Printf("received %s, shutting down", sig)

		ctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		container.Server().Shutdown(ctx)
	}()

	err := container.Server().Run()
	if err != nil && err != http.ErrServerClosed {
		container.Logger().Print(err)
		os.Exit(1)
	}
}
