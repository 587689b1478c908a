// Command scoping runs a program under static and dynamic scoping.
package main

import (
	"context"
	"os"
	"os/signal"

	"github.com/thomasrohde/scoping/internal/cli"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	code := cli.Run(ctx, os.Args[1:], cli.StdIO())
	stop()
	os.Exit(code)
}
