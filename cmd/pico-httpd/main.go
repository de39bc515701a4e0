package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/display"
	"code.sztanpet.net/zvpsz/pico-demo/internal/gpio"
	"code.sztanpet.net/zvpsz/pico-demo/internal/httpd"
	"code.sztanpet.net/zvpsz/pico-demo/internal/logwriter"
	"code.sztanpet.net/zvpsz/pico-demo/internal/status"
	"code.sztanpet.net/zvpsz/pico-demo/internal/telegram"
	"code.sztanpet.net/zvpsz/pico-demo/internal/wifi"
	"github.com/juju/loggo"
	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"
)

var logger = loggo.GetLogger("pico-httpd")

var (
	debug  bool
	addr   string
	ledOn  bool
	screen bool
)

var rootCmd = &cobra.Command{
	Use:   "pico-httpd",
	Short: "Serve a one line status page",
	Long: `pico-httpd joins the configured WiFi network, names the host after its MAC
address and answers every TCP connection on HTTP_ADDR with a single plaintext
status response:

  <product> OK
  LED=<ON|OFF>
  Uptime=<seconds since the network came up>s

The response is sent after the first chunk of data arrives, the request itself
is never parsed. At most HTTPD_MAX_SESSIONS connections are served at a time.`,
	RunE: run,
}

func init() {
	rootCmd.Flags().BoolVar(&debug, "debug", false, "log every response")
	rootCmd.Flags().StringVar(&addr, "addr", "", "listen address, overrides HTTP_ADDR")
	rootCmd.Flags().BoolVar(&ledOn, "led", false, "switch the auxiliary LED on at startup")
	rootCmd.Flags().BoolVar(&screen, "screen", true, "show the address on the OLED")
}

type app struct {
	ctx    context.Context
	exit   context.CancelFunc
	cfg    *config.Config
	bot    *telegram.Bot
	screen *display.Screen
	status *status.Tracker
	server *httpd.Server

	hostname string
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func run(cmd *cobra.Command, args []string) error {
	cfg := config.Get()
	if addr != "" {
		cfg.HTTPAddr = addr
	}

	ctx, exit := context.WithCancel(context.Background())
	defer exit()
	a := &app{
		ctx:    ctx,
		exit:   exit,
		cfg:    cfg,
		status: status.NewTracker(time.Now),
	}

	// logging sends messages to telegram, so it depends on it
	a.setupTelegram()
	if err := a.setupLogging(); err != nil {
		return err
	}
	a.handleSignals()

	// the screen is optional, only used to show where we are reachable
	a.setupScreen()

	if err := a.setupWiFi(); err != nil {
		logger.Criticalf("failed to connect: %v", err)
		return err
	}
	// uptime counts from the moment the network is up
	a.status.MarkStart()

	a.setupServer()
	a.announce()

	g, ctx := errgroup.WithContext(a.ctx)
	g.Go(func() error {
		return a.server.ListenAndServe(ctx)
	})
	if a.screen != nil {
		g.Go(func() error {
			a.screen.HandleScreenSaver(ctx)
			return nil
		})
	}
	err := g.Wait()
	if err != nil {
		logger.Errorf("serving failed: %v", err)
		a.exit()
	}

	// a disabled responder leaves nothing to do but wait for a signal
	<-a.ctx.Done()
	if a.screen != nil {
		if cerr := a.screen.Close(); cerr != nil {
			logger.Debugf("closing the screen: %v", cerr)
		}
	}

	return err
}

func (a *app) handleSignals() {
	c := make(chan os.Signal, 1)
	signal.Notify(c, syscall.SIGINT, syscall.SIGTERM, syscall.SIGHUP)
	go func(c chan os.Signal) {
		s := <-c
		logger.Warningf("Got signal: %s, exiting cleanly", s)
		a.exit()
	}(c)
}

func (a *app) setupTelegram() {
	if !a.cfg.Notifications() {
		return
	}

	bot, err := telegram.New(a.ctx, a.cfg)
	if err != nil {
		// logging is not set up yet
		fmt.Fprintf(os.Stderr, "telegram setup failed, notifications disabled: %v\n", err)
		return
	}

	a.bot = bot
}

func (a *app) setupLogging() error {
	var n logwriter.Notifier
	if a.bot != nil {
		n = a.bot
	}

	return logwriter.Setup(n, a.cfg)
}

func (a *app) setupScreen() {
	if !screen {
		return
	}

	s, err := display.Open(a.ctx, a.cfg)
	if err != nil {
		// Open logged the reason
		return
	}
	a.screen = s
	_ = s.WriteLine(0, "Connecting...")
}

func (a *app) setupWiFi() error {
	host, err := wifi.InterfaceHostname(a.cfg.HostnamePrefix, a.cfg.WiFiInterface)
	if err != nil {
		logger.Warningf("could not derive the hostname from %v: %v", a.cfg.WiFiInterface, err)
		host = ""
	}
	a.hostname = host

	if a.cfg.WiFiSSID == "" {
		logger.Infof("WIFI_SSID not set, using the existing network setup")
		return nil
	}

	logger.Infof("Connecting to WiFi...")
	err = wifi.New(nil).Setup(a.ctx, wifi.Network{
		Interface: a.cfg.WiFiInterface,
		SSID:      a.cfg.WiFiSSID,
		Password:  a.cfg.WiFiPassword,
		Hostname:  host,
	})
	if err != nil {
		return err
	}
	logger.Infof("Connected.")

	return nil
}

func (a *app) setupServer() {
	var led httpd.Output
	if a.cfg.LEDGPIO != "" {
		pin := gpio.NewPin("", a.cfg.LEDGPIO)
		if err := pin.Setup(); err != nil {
			logger.Warningf("LED %v setup failed, continuing without it: %v", pin, err)
		} else {
			led = pin
		}
	}

	a.server = httpd.New(a.cfg, a.status, led)
	a.server.SetDebug(debug)
	if err := a.server.SetLED(ledOn); err != nil {
		logger.Warningf("switching the LED failed: %v", err)
	}
}

func (a *app) announce() {
	ip := "unknown address"
	if addr, err := wifi.InterfaceAddr(a.cfg.WiFiInterface); err == nil {
		ip = addr.String()
	} else {
		logger.Debugf("no address on %v: %v", a.cfg.WiFiInterface, err)
	}

	logger.Infof("Ready, serving HTTP on %s", ip)
	if a.screen != nil {
		_ = a.screen.WriteLine(0, a.hostname)
		_ = a.screen.WriteLine(1, ip)
	}
	if a.bot != nil {
		if err := a.bot.Send(fmt.Sprintf("%v ready, serving HTTP on %v", a.hostname, ip), true); err != nil {
			logger.Debugf("telegram send failed: %v", err)
		}
	}
}
