// Command scoper finds conformations of an RNA molecule that fit a SAXS
// profile. It samples conformations with KGSrna, scores them with FoXS,
// refines the best ones and can fit an ensemble with MultiFoXS.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	err := newRootCommand().ExecuteContext(ctx)
	stop()
	if err != nil {
		fmt.Fprintln(os.Stderr, "scoper:", err)
		os.Exit(1)
	}
}
