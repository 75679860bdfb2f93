package main

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/typebus/config"
	"github.com/saylorsolutions/typebus/internal/cli"
	"golang.org/x/term"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(os.Stderr, cfg.LogLevel)
	ctx := signalExitCtx(context.Background(), os.Interrupt, syscall.SIGTERM)

	set := cli.NewCommandSet("typebus")
	set.Printer().Redirect(os.Stdout)
	demoCommand(set, cfg, log)
	stormCommand(set, cfg, log)

	if err := set.Exec(ctx, os.Args[1:]); err != nil {
		log.Error("Command failed", "error", err)
		os.Exit(1)
	}
}

// newLogger writes text logs to a terminal, and JSON logs otherwise.
func newLogger(out *os.File, level slog.Level) *slog.Logger {
	opts := &slog.HandlerOptions{Level: level}
	if term.IsTerminal(int(out.Fd())) {
		return slog.New(slog.NewTextHandler(out, opts))
	}
	return slog.New(slog.NewJSONHandler(out, opts))
}

// signalExitCtx returns a context that is cancelled when one of the signals is received.
// A second signal exits immediately.
func signalExitCtx(parent context.Context, signals ...os.Signal) context.Context {
	ctx, cancel := context.WithCancel(parent)
	sigs := make(chan os.Signal, 1)
	signal.Notify(sigs, signals...)
	go func() {
		defer cancel()
		<-sigs
		cancel()
		<-sigs
		os.Exit(1)
	}()
	return ctx
}
