package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/Adda-Baaj/reimbursement-client/pkg/reimbursement"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if err := newRootCommand().ExecuteContext(ctx); err != nil {
		fmt.Fprintf(os.Stderr, "reimburse: %v\n", err)
		stop()
		os.Exit(exitCode(err))
	}
}

// exitCode maps API failures to distinct process exit codes.
func exitCode(err error) int {
	var statusErr *reimbursement.StatusError
	var decodeErr *reimbursement.DecodeError
	switch {
	case errors.As(err, &statusErr):
		return 2
	case errors.As(err, &decodeErr):
		return 3
	default:
		return 1
	}
}
