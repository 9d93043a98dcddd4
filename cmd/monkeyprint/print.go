package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"sync"
	"time"

	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/history"
	"github.com/pc6b/monkeyprint/monitor"
	"github.com/pc6b/monkeyprint/printjob"
	"github.com/pc6b/monkeyprint/progress"
)

type printOptions struct {
	configPath  string
	slices      int
	layerHeight float64
	debug       bool
	listen      string
	mqttBroker  string
	mqttPrefix  string
	historyPath string
	grace       time.Duration
}

func newPrintCommand(logger *slog.Logger) *cobra.Command {
	var opts printOptions

	cmd := &cobra.Command{
		Use:   "print",
		Short: "Run a print job",
		Long: `Run a print job of --slices layers.

Slices are handed to a headless display that acknowledges each one. Press
Ctrl-C to stop the job; the platform is raised and the devices are released
before the command returns.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runPrint(cmd.Context(), cmd.OutOrStdout(), logger, opts)
		},
	}

	flags := cmd.Flags()
	flags.StringVarP(&opts.configPath, "config", "c", "", "Printer option file (YAML)")
	flags.IntVarP(&opts.slices, "slices", "n", 0, "Number of slices to print")
	flags.Float64Var(&opts.layerHeight, "layer-height", 0, "Layer height in mm (overrides the option file)")
	flags.BoolVar(&opts.debug, "debug", false, "Dry run without hardware")
	flags.StringVar(&opts.listen, "listen", "", "Serve status over HTTP on this address, e.g. :8080")
	flags.StringVar(&opts.mqttBroker, "mqtt", "", "Publish status to this MQTT broker, e.g. tcp://localhost:1883")
	flags.StringVar(&opts.mqttPrefix, "mqtt-prefix", monitor.DefaultTopicPrefix, "MQTT topic prefix")
	flags.StringVar(&opts.historyPath, "history", "", "Record the job in this SQLite database")
	flags.DurationVar(&opts.grace, "grace", printjob.DefaultGrace, "Pause between stopping and idle")
	flags.MarkHidden("grace")
	cmd.MarkFlagRequired("slices")

	return cmd
}

func runPrint(ctx context.Context, out io.Writer, logger *slog.Logger, opts printOptions) error {
	settings, err := loadSettings(opts.configPath, logger)
	if err != nil {
		return err
	}
	if opts.debug {
		settings.Debug = true
	}

	devices, tracker := newDevices(settings, logger)
	sink := progress.NewSink(logger)
	handoff := progress.NewHandoff(logger)

	job, err := printjob.New(settings,
		printjob.StaticModel{Slices: opts.slices, Height: opts.layerHeight},
		devices, sink, handoff,
		printjob.WithLogger(logger),
		printjob.WithGrace(opts.grace),
	)
	if err != nil {
		return fmt.Errorf("create job: %w", err)
	}
	logger = logger.With("job_id", job.ID())

	var store *history.Store
	if opts.historyPath != "" {
		store, err = history.Open(ctx, opts.historyPath)
		if err != nil {
			return err
		}
		defer store.Close()
		if err := store.Start(ctx, job.ID(), job.Slices()); err != nil {
			return err
		}
	}

	// Observers outlive the job's context so that they see the teardown.
	observeCtx, stopObservers := context.WithCancel(context.WithoutCancel(ctx))
	var observers sync.WaitGroup
	defer func() {
		stopObservers()
		observers.Wait()
	}()

	if opts.listen != "" {
		var lister monitor.HistoryLister
		if store != nil {
			lister = store
		}
		srv := monitor.New(monitor.Config{Addr: opts.listen, Sink: sink, History: lister, Logger: logger})
		srv.SetJob(job)
		observers.Add(1)
		go func() {
			defer observers.Done()
			defer srv.Close()
			if err := srv.Run(observeCtx); err != nil {
				logger.Error("monitor stopped", "error", err)
			}
		}()
	}

	if opts.mqttBroker != "" {
		pub := monitor.NewMQTTPublisher(monitor.MQTTConfig{
			Broker:   opts.mqttBroker,
			ClientID: "monkeyprint-" + job.ID(),
			Prefix:   opts.mqttPrefix,
		}, logger)
		if err := pub.Connect(); err != nil {
			logger.Warn("mqtt disabled", "error", err)
		} else {
			pub.Follow(job.ID(), sink)
			defer pub.Close()
		}
	}

	events, unsubscribe := sink.Subscribe(progress.ConsoleBuffer)
	consoleDone := make(chan struct{})
	go func() {
		defer close(consoleDone)
		printConsole(out, events)
	}()
	observers.Add(1)
	go func() {
		defer observers.Done()
		runDisplay(observeCtx, handoff, logger)
	}()

	res, err := job.Run(ctx)
	unsubscribe()
	<-consoleDone
	if err != nil {
		return err
	}

	if store != nil {
		if err := store.Finish(context.WithoutCancel(ctx), res.JobID, res.SlicesCompleted, res.Outcome(), res.Err); err != nil {
			logger.Error("record job", "error", err)
		}
	}
	if tracker != nil {
		logger.Info("dry run finished", "position", tracker.String())
	}

	fmt.Fprintf(out, "Job %s %s: %d of %d slices.\n", res.JobID, res.Outcome(), res.SlicesCompleted, res.SlicesTotal)

	switch {
	case res.Cancelled && ctx.Err() != nil:
		return ctx.Err()
	case res.Err != nil && !errors.Is(res.Err, context.Canceled):
		return res.Err
	}
	return nil
}

func printConsole(out io.Writer, events <-chan progress.Event) {
	for ev := range events {
		if ev.Kind == progress.KindConsole {
			fmt.Fprintln(out, ev.Text)
		}
	}
}

// runDisplay stands in for the projector window: it acknowledges every frame
// as soon as it arrives.
func runDisplay(ctx context.Context, handoff *progress.Handoff, logger *slog.Logger) {
	logger = logger.With("component", "display")
	for {
		select {
		case <-ctx.Done():
			return
		case slice := <-handoff.Frames():
			if slice == progress.Blank {
				logger.Debug("showing blank")
			} else {
				logger.Debug("showing slice", "slice", slice)
			}
			handoff.Ack()
		}
	}
}
