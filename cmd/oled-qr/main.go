package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/display"
	"code.sztanpet.net/zvpsz/pico-demo/internal/logwriter"
	"code.sztanpet.net/zvpsz/pico-demo/internal/qr"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("oled-qr")

var content string

var rootCmd = &cobra.Command{
	Use:   "oled-qr",
	Short: "Show a QR code on the OLED",
	Long: `oled-qr encodes --content as a QR code, scales it to the largest size the
display can show and keeps it there until interrupted. The screen is blanked
after the screensaver timeout.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&content, "content", "https://github.com/", "text to encode")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if err := logwriter.Setup(nil, cfg); err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	defer stop()

	s, err := display.Open(ctx, cfg)
	if err != nil {
		return err
	}
	defer s.Close()

	img, err := qr.Render(content, s.Bounds())
	if err != nil {
		logger.Errorf("could not render %q: %v", content, err)
		return err
	}

	s.Clear()
	if err := s.DrawImage(img); err != nil {
		logger.Errorf("drawing the code failed: %v", err)
		return err
	}

	s.HandleScreenSaver(ctx)
	return s.Blank()
}
