// Command cpy copies a file to another through a segmented bounded buffer
// shared by a producer and a consumer running concurrently.
//
// Usage:
//
//	cpy [flags] <source> <destination>
//
// Use "-" as source or destination to read from stdin or write to stdout.
// The copy stops at the first zero byte of the source.
package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	ctx, cancelCtx := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancelCtx()

	if err := newRootCmd().ExecuteContext(ctx); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		cancelCtx()
		os.Exit(1)
	}
}
