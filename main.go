package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/logrusorgru/aurora"
	"github.com/pkg/errors"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	if err := run(ctx, os.Args[1:], os.Stdout); err != nil {
		fmt.Fprintln(os.Stderr, aurora.Red(err.Error()))
		os.Exit(1)
	}
}

func run(ctx context.Context, args []string, out io.Writer) error {
	if len(args) == 0 {
		return usageError("missing command")
	}

	switch args[0] {
	case "train":
		return runTrain(ctx, args[1:], out)
	case "eval":
		return runEval(ctx, args[1:], out)
	case "watch":
		return runWatch(ctx, args[1:], out)
	case "policy":
		return runPolicy(ctx, args[1:], out)
	case "plot":
		return runPlot(ctx, args[1:], out)
	case "schemes":
		return runSchemes(ctx, args[1:], out)
	default:
		return usageError(fmt.Sprintf("unknown command: %s", args[0]))
	}
}

func usageError(msg string) error {
	return errors.Errorf("%s\nusage: snake-rl <train|eval|watch|policy|plot|schemes> [flags]", msg)
}
