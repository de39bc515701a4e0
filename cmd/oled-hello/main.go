package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/display"
	"code.sztanpet.net/zvpsz/pico-demo/internal/logwriter"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
)

var logger = loggo.GetLogger("oled-hello")

var (
	text string
	hold time.Duration
)

var rootCmd = &cobra.Command{
	Use:   "oled-hello",
	Short: "Draw a line of text on the OLED",
	Long: `oled-hello brings up the SSD1306 display configured through the environment
(I2C_BUS, OLED_ADDR, DISPLAY_DRIVER) and draws a single line of text at 0,12.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().StringVar(&text, "text", "Hello World", "text to draw")
	rootCmd.Flags().DurationVar(&hold, "hold", 0, "blank the screen and exit after this long, 0 waits for a signal")
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
	if hold > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, hold)
		defer cancel()
	}

	s, err := display.Open(ctx, cfg)
	if err != nil {
		// Open logged the reason
		return err
	}
	defer s.Close()

	s.Clear()
	s.DrawString(0, 12, text)
	if err := s.Draw(); err != nil {
		logger.Errorf("drawing %q failed: %v", text, err)
		return err
	}

	<-ctx.Done()
	return s.Blank()
}
