package main

import (
	"context"
	"fmt"
	"github.com/saylorsolutions/typebus/config"
	"github.com/saylorsolutions/typebus/internal/cli"
	"github.com/saylorsolutions/typebus/router"
	flag "github.com/spf13/pflag"
	"log/slog"
)

type subscriber struct {
	name    string
	printer *cli.Printer
}

func (s *subscriber) HandleString(val string) {
	s.printer.Printf("  %s received %q\n", s.name, val)
}

type deadLetters struct {
	printer *cli.Printer
}

func (d *deadLetters) HandleDead(evt router.DeadEvent) {
	d.printer.Printf("  dead event: %v (%T)\n", evt.Event, evt.Event)
}

type seeder struct {
	value string
}

func (s *seeder) ProduceString() string {
	return s.value
}

func demoCommand(set *cli.CommandSet, cfg config.Config, log *slog.Logger) {
	cmd := set.AddCommand("demo", "Shows how events, dead events, and producers are routed", "d")
	cmd.Flags().String("seed", "seed", "Sets the value supplied by the producer")
	cmd.Usage("[FLAGS]").Does(func(ctx context.Context, flags *flag.FlagSet, printer *cli.Printer) error {
		seed, err := flags.GetString("seed")
		if err != nil {
			return err
		}
		opts, err := cfg.Options(log)
		if err != nil {
			return err
		}
		return runDemo(ctx, printer, seed, opts...)
	})
}

func runDemo(ctx context.Context, printer *cli.Printer, seed string, opts ...router.Option) error {
	r, err := router.New(opts...)
	if err != nil {
		return err
	}
	printer.Println("Posting to a subscriber:")
	if err := r.Register(ctx, &subscriber{name: "A", printer: printer}); err != nil {
		return err
	}
	if err := r.Register(ctx, &deadLetters{printer: printer}); err != nil {
		return err
	}
	if err := r.Post(ctx, "hi"); err != nil {
		return err
	}
	if err := r.Post(ctx, 42); err != nil {
		return err
	}

	r, err = router.New(opts...)
	if err != nil {
		return err
	}
	printer.Println("Registering a subscriber after a producer:")
	if err := r.Register(ctx, &seeder{value: seed}); err != nil {
		return err
	}
	if err := r.Register(ctx, &subscriber{name: "S", printer: printer}); err != nil {
		return fmt.Errorf("register subscriber: %w", err)
	}
	printer.Println("  registration returned")
	return nil
}
