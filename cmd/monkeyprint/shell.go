package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"log/slog"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"github.com/pc6b/monkeyprint/gcode"
	"github.com/pc6b/monkeyprint/host/channel"
	"github.com/pc6b/monkeyprint/protocol"
)

func newShellCommand(logger *slog.Logger) *cobra.Command {
	var (
		configPath string
		debug      bool
	)

	cmd := &cobra.Command{
		Use:   "shell",
		Short: "Send commands to the printer board interactively",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			settings, err := loadSettings(configPath, logger)
			if err != nil {
				return err
			}

			var printer channel.Channel
			if debug || settings.Debug {
				printer = channel.NewDry("printer", logger, gcode.NewTracker())
			} else {
				printer = newPrinter(settings, logger)
			}
			if err := printer.Open(cmd.Context()); err != nil {
				return err
			}
			defer printer.Close()

			sh := &shell{
				printer: printer,
				native:  settings.MonkeyprintBoard,
				out:     cmd.OutOrStdout(),
			}
			return sh.run(cmd.Context(), cmd.InOrStdin())
		},
	}

	cmd.Flags().StringVarP(&configPath, "config", "c", "", "Printer option file (YAML)")
	cmd.Flags().BoolVar(&debug, "debug", false, "Use a dry channel instead of the board")
	return cmd
}

type shell struct {
	printer channel.Channel
	native  bool
	out     io.Writer
}

func (s *shell) run(ctx context.Context, in io.Reader) error {
	fmt.Fprintln(s.out, "Enter commands ('help' lists them, 'quit' exits).")
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprint(s.out, "> ")
		if !scanner.Scan() {
			break
		}
		line := strings.TrimSpace(scanner.Text())
		if line == "" {
			continue
		}

		quit, err := s.exec(ctx, line)
		if err != nil {
			fmt.Fprintf(s.out, "Error: %v\n", err)
		}
		if quit {
			return nil
		}
		if ctx.Err() != nil {
			return ctx.Err()
		}
	}
	fmt.Fprintln(s.out)
	return scanner.Err()
}

func (s *shell) exec(ctx context.Context, line string) (bool, error) {
	fields := strings.Fields(line)
	switch fields[0] {
	case "quit", "exit", "q":
		return true, nil
	case "help", "?":
		s.help()
		return false, nil
	case "commands":
		fmt.Fprintln(s.out, strings.Join(protocol.CommandNames(), " "))
		return false, nil
	case "gcode":
		if s.native {
			return false, fmt.Errorf("board speaks the native protocol, not GCode")
		}
		text := strings.TrimSpace(strings.TrimPrefix(line, "gcode"))
		if _, err := gcode.ParseLine(text); err != nil {
			return false, err
		}
		return false, s.send(ctx, channel.Command{Name: "gcode", Line: text, AckRequired: true, Retry: 20 * time.Second})
	}

	if !s.native {
		return false, fmt.Errorf("unknown command %q (use 'gcode <line>')", fields[0])
	}
	if _, ok := protocol.CommandID(fields[0]); !ok {
		return false, fmt.Errorf("unknown command %q", fields[0])
	}
	arg := 0
	if len(fields) > 1 {
		n, err := strconv.Atoi(fields[1])
		if err != nil {
			return false, fmt.Errorf("argument %q: %w", fields[1], err)
		}
		arg = n
	}
	retry := 20 * time.Second
	if fields[0] == "buildHome" || fields[0] == "buildTop" {
		retry = 240 * time.Second
	}
	return false, s.send(ctx, channel.Command{Name: fields[0], Payload: arg, AckRequired: true, Retry: retry})
}

func (s *shell) send(ctx context.Context, cmd channel.Command) error {
	start := time.Now()
	if err := s.printer.Send(ctx, cmd); err != nil {
		return err
	}
	fmt.Fprintf(s.out, "ok (%v)\n", time.Since(start).Round(time.Millisecond))
	return nil
}

func (s *shell) help() {
	fmt.Fprintln(s.out, "Available commands:")
	fmt.Fprintln(s.out, "  <name> [arg]   send a native board command, e.g. 'buildMove 40'")
	fmt.Fprintln(s.out, "  commands       list native command names")
	fmt.Fprintln(s.out, "  gcode <line>   send one GCode line (GCode boards)")
	fmt.Fprintln(s.out, "  help           show this help")
	fmt.Fprintln(s.out, "  quit/exit/q    leave the shell")
}
