package main

import (
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/rs/zerolog"
	"github.com/spf13/cobra"

	"github.com/deskbuddy/printcore/adapter"
	"github.com/deskbuddy/printcore/config"
	"github.com/deskbuddy/printcore/pace"
	"github.com/deskbuddy/printcore/raster"
	"github.com/deskbuddy/printcore/spool"
)

var (
	cfgFile string
	verbose bool
)

func main() {
	if err := rootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
		os.Exit(1)
	}
}

func rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "printcore",
		Short:         "Drive a thermal printer over a serial or USB link",
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.PersistentFlags().StringVar(&cfgFile, "config", "", "config file (default printcore.yaml in . or ~/.config/printcore)")
	root.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "enable debug logging")

	root.AddCommand(printCmd(), portsCmd(), feedCmd())
	return root
}

func newLogger() zerolog.Logger {
	level := zerolog.InfoLevel
	if verbose {
		level = zerolog.DebugLevel
	}
	return zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).
		Level(level).
		With().Timestamp().Logger()
}

func printCmd() *cobra.Command {
	var port string
	var upsideDown bool

	cmd := &cobra.Command{
		Use:   "print <image>",
		Short: "Print an image file band by band",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			if cmd.Flags().Changed("upside-down") {
				cfg.UpsideDown = upsideDown
			}

			f, err := os.Open(args[0])
			if err != nil {
				return err
			}
			src, format, err := image.Decode(f)
			f.Close()
			if err != nil {
				return fmt.Errorf("failed to decode %s: %w", args[0], err)
			}
			log.Debug().Str("format", format).Msg("image loaded")

			orientation := raster.Normal
			if cfg.UpsideDown {
				orientation = raster.Rotated180
			}
			img, err := raster.Prepare(src, cfg.Width, orientation)
			if err != nil {
				return err
			}
			log.Info().Int("width", img.Width).Int("height", img.Height).Msg("raster prepared")

			target, err := resolveTarget(port, cfg, log)
			if err != nil {
				return err
			}

			worker := spool.NewWorker(spool.OpenPrinter, sessionOptions(cfg), log)
			worker.Start()
			defer worker.Stop()

			cancel := &spool.Flag{}
			sig := make(chan os.Signal, 1)
			signal.Notify(sig, os.Interrupt, syscall.SIGTERM)
			defer signal.Stop(sig)
			go func() {
				for range sig {
					log.Info().Msg("cancel requested")
					cancel.Set()
				}
			}()

			results, err := worker.Submit(spool.Job{Raster: img, Cancel: cancel}, target)
			if err != nil {
				return err
			}
			res := <-results
			log.Info().Stringer("outcome", res.Outcome).Str("detail", res.Detail).Msg("done")
			if res.Outcome == spool.DeviceUnavailable || res.Outcome == spool.SendFailed {
				return fmt.Errorf("%s: %s", res.Outcome, res.Detail)
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port to use (skips discovery), or \"usb\"")
	cmd.Flags().BoolVar(&upsideDown, "upside-down", false, "rotate output 180 degrees for wall-mounted units")
	return cmd
}

func portsCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "ports",
		Short: "List candidate serial ports and mark the likely printer",
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}

			ports, err := adapter.ListPorts()
			if err != nil {
				return err
			}
			if len(ports) == 0 {
				fmt.Println("No serial ports found.")
				return nil
			}

			guess, found := adapter.NewDiscoverer(cfg.Baud, cfg.HeatTime, log).Discover()
			for _, p := range ports {
				mark := ""
				if found && guess.Kind == adapter.KindSerial && guess.Port == p {
					mark = "  [likely printer]"
				}
				fmt.Printf("%s%s\n", p, mark)
			}
			return nil
		},
	}
}

func feedCmd() *cobra.Command {
	var port string

	cmd := &cobra.Command{
		Use:   "feed [lines]",
		Short: "Advance the paper by the given number of lines",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			log := newLogger()
			cfg, err := config.Load(cfgFile)
			if err != nil {
				return err
			}
			lines := cfg.FeedLines
			if len(args) == 1 {
				lines, err = strconv.Atoi(args[0])
				if err != nil || lines < 1 {
					return fmt.Errorf("invalid line count %q", args[0])
				}
			}

			target, err := resolveTarget(port, cfg, log)
			if err != nil {
				return err
			}
			dev, err := spool.OpenPrinter(target)
			if err != nil {
				return err
			}
			defer dev.Close()

			for i := 0; i < lines; i++ {
				if err := dev.Feed(); err != nil {
					log.Warn().Err(err).Int("line", i).Msg("feed failed")
				}
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&port, "port", "p", "", "serial port to use (skips discovery), or \"usb\"")
	return cmd
}

// resolveTarget builds a target from an explicit --port value or runs
// discovery. No printer attached is reported as an error to the CLI user,
// but it is an expected condition, not a fault.
func resolveTarget(port string, cfg config.Config, log zerolog.Logger) (adapter.Target, error) {
	if port == "usb" {
		return adapter.Target{Kind: adapter.KindUSB, HeatTime: cfg.HeatTime}, nil
	}
	if port != "" {
		return adapter.Target{
			Kind:     adapter.KindSerial,
			Port:     port,
			Baud:     cfg.Baud,
			HeatTime: cfg.HeatTime,
		}, nil
	}
	target, found := adapter.NewDiscoverer(cfg.Baud, cfg.HeatTime, log).Discover()
	if !found {
		return adapter.Target{}, errors.New("no printer attached")
	}
	return target, nil
}

func sessionOptions(cfg config.Config) spool.Options {
	return spool.Options{
		BandHeight: cfg.BandHeight,
		Pacer:      pace.Pacer{Base: cfg.BaseSleep, DarkBonus: cfg.DarkBonus},
		FeedLines:  cfg.FeedLines,
		RetryPause: cfg.RetryPause,
	}
}
