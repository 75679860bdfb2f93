package main

import (
	"context"
	"fmt"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/saylorsolutions/typebus/config"
	"github.com/saylorsolutions/typebus/internal/cli"
	"github.com/saylorsolutions/typebus/metrics"
	"github.com/saylorsolutions/typebus/router"
	flag "github.com/spf13/pflag"
	"golang.org/x/sync/errgroup"
	"log/slog"
	"slices"
	"strings"
	"sync/atomic"
)

// Tick is posted by each storm worker.
type Tick struct {
	Worker int
	Seq    int
}

// Sample embeds Tick, so it's also delivered to Tick handlers.
type Sample struct {
	Tick
	Value float64
}

// unheard has no handlers, so it always becomes a dead event.
type unheard struct{}

type tickCounter struct {
	ticks   atomic.Int64
	samples atomic.Int64
}

func (c *tickCounter) HandleTick(Tick) {
	c.ticks.Add(1)
}

func (c *tickCounter) HandleSample(Sample) {
	c.samples.Add(1)
}

type stormConf struct {
	workers     int
	events      int
	subscribers int
}

func stormCommand(set *cli.CommandSet, cfg config.Config, log *slog.Logger) {
	cmd := set.AddCommand("storm", "Posts events from many goroutines and prints routing counters", "s")
	cmd.Flags().IntP("workers", "w", 8, "Number of goroutines posting events")
	cmd.Flags().IntP("events", "n", 1000, "Number of events posted by each worker")
	cmd.Flags().Int("subscribers", 4, "Number of subscribers to register")
	cmd.Usage("[FLAGS]").Does(func(ctx context.Context, flags *flag.FlagSet, printer *cli.Printer) error {
		var (
			conf stormConf
			err  error
		)
		if conf.workers, err = flags.GetInt("workers"); err != nil {
			return err
		}
		if conf.events, err = flags.GetInt("events"); err != nil {
			return err
		}
		if conf.subscribers, err = flags.GetInt("subscribers"); err != nil {
			return err
		}
		if conf.workers < 1 || conf.events < 1 || conf.subscribers < 0 {
			return cli.NewUsageError("workers and events must be positive, and subscribers can't be negative")
		}
		opts, err := cfg.Options(log)
		if err != nil {
			return err
		}
		return runStorm(ctx, printer, conf, prometheus.NewRegistry(), opts...)
	})
}

func runStorm(ctx context.Context, printer *cli.Printer, conf stormConf, reg *prometheus.Registry, opts ...router.Option) error {
	m, err := metrics.New(reg)
	if err != nil {
		return err
	}
	r, err := router.New(append(opts, router.WithObserver(m))...)
	if err != nil {
		return err
	}
	counters := make([]*tickCounter, conf.subscribers)
	for i := range counters {
		counters[i] = new(tickCounter)
		if err := r.Register(ctx, counters[i]); err != nil {
			return err
		}
	}

	grp, ctx := errgroup.WithContext(ctx)
	for worker := 0; worker < conf.workers; worker++ {
		grp.Go(func() error {
			for seq := 0; seq < conf.events; seq++ {
				if err := ctx.Err(); err != nil {
					return err
				}
				var event any
				switch {
				case seq%10 == 9:
					event = unheard{}
				case seq%2 == 1:
					event = Sample{Tick: Tick{Worker: worker, Seq: seq}, Value: float64(seq)}
				default:
					event = Tick{Worker: worker, Seq: seq}
				}
				if err := r.Post(ctx, event); err != nil {
					return fmt.Errorf("worker %d: %w", worker, err)
				}
			}
			return nil
		})
	}
	if err := grp.Wait(); err != nil {
		return err
	}
	return printCounters(printer, reg)
}

func printCounters(printer *cli.Printer, reg prometheus.Gatherer) error {
	families, err := reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	var lines []string
	for _, family := range families {
		for _, metric := range family.GetMetric() {
			labels := make([]string, 0, len(metric.GetLabel()))
			for _, label := range metric.GetLabel() {
				labels = append(labels, fmt.Sprintf("%s=%q", label.GetName(), label.GetValue()))
			}
			lines = append(lines, fmt.Sprintf("%s{%s} %.0f", family.GetName(), strings.Join(labels, ","), metric.GetCounter().GetValue()))
		}
	}
	slices.Sort(lines)
	for _, line := range lines {
		printer.Println(line)
	}
	return nil
}
