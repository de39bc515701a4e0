package wifi

import (
	"bufio"
	"bytes"
	"context"
	"encoding/hex"
	"errors"
	"fmt"
	"net"
	"os/exec"
	"strings"
	"time"

	"github.com/juju/loggo"
)

var logger = loggo.GetLogger("pico.wifi")

// ConnectTimeout bounds the whole association, including the hostname change.
var ConnectTimeout = 30 * time.Second

var ErrNoAddress = errors.New("wifi: interface has no IPv4 address")

// Runner runs a command and returns its combined output.
type Runner func(ctx context.Context, name string, args ...string) ([]byte, error)

func execRunner(ctx context.Context, name string, args ...string) ([]byte, error) {
	return exec.CommandContext(ctx, name, args...).CombinedOutput()
}

// Network is the station the board associates with.
type Network struct {
	Interface string
	SSID      string
	Password  string
	Hostname  string
}

type Client struct {
	run Runner
}

// New returns a Client using nmcli, run overrides how commands are executed.
func New(run Runner) *Client {
	if run == nil {
		run = execRunner
	}

	return &Client{run: run}
}

// Setup sets the hostname, drops every active non-wired connection and
// connects to the network.
func (c *Client) Setup(ctx context.Context, n Network) error {
	ctx, cancel := context.WithTimeout(ctx, ConnectTimeout)
	defer cancel()

	if n.Hostname != "" {
		out, err := c.run(ctx, "nmcli", "general", "hostname", n.Hostname)
		if err != nil {
			logger.Errorf("error running: nmcli general hostname %q; error was: %v, output was: %s", n.Hostname, err, out)
			return fmt.Errorf("setting hostname: %w", err)
		}
	}

	// nmcli -t -c no --fields NAME con show --active
	out, err := c.run(ctx, "nmcli", "-t", "-c", "no", "--fields", "NAME", "con", "show", "--active")
	if err != nil {
		logger.Errorf("error running: nmcli -t -c no --fields NAME con show --active; error was: %v, output was: %s", err, out)
		return err
	}
	logger.Debugf("nmcli -t -c no --fields NAME con show --active; output was: %s", out)

	sc := bufio.NewScanner(bytes.NewReader(out))
	for sc.Scan() {
		name := strings.TrimSpace(sc.Text())
		if name == "" {
			continue
		}
		if strings.Contains(name, "Wired") {
			logger.Tracef("not deleting wired connection: %v", name)
			continue
		}

		logger.Debugf("deleting connection: %v", name)
		out, err = c.run(ctx, "nmcli", "con", "delete", name)
		if err != nil {
			logger.Errorf("error running: nmcli con delete %q, error was: %v, output was: %s", name, err, out)
			return err
		}
	}
	if err := sc.Err(); err != nil {
		return err
	}

	args := []string{"device", "wifi", "connect", n.SSID, "password", n.Password}
	if n.Interface != "" {
		args = append(args, "ifname", n.Interface)
	}
	out, err = c.run(ctx, "nmcli", args...)
	if err != nil {
		// the password stays out of the logs
		logger.Errorf("error running: nmcli device wifi connect %q, error was: %v, output was: %s", n.SSID, err, out)
		return fmt.Errorf("connecting to %q: %w", n.SSID, err)
	}
	logger.Infof("connected to %q", n.SSID)

	return nil
}

// MACASCII returns n characters of the uppercase hex form of mac starting
// at character off, e.g. off=8 n=4 of 11:22:33:44:55:66 is "5566".
// Fewer characters are returned when mac is too short.
func MACASCII(mac net.HardwareAddr, off, n int) string {
	s := strings.ToUpper(hex.EncodeToString(mac))
	if off < 0 || off >= len(s) || n <= 0 {
		return ""
	}
	if off+n > len(s) {
		n = len(s) - off
	}

	return s[off : off+n]
}

// Hostname is prefix followed by the last four hex digits of the MAC.
func Hostname(prefix string, mac net.HardwareAddr) string {
	return prefix + MACASCII(mac, 8, 4)
}

// InterfaceHostname builds the hostname from the MAC of the named interface.
func InterfaceHostname(prefix, name string) (string, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return "", err
	}

	return Hostname(prefix, ifi.HardwareAddr), nil
}

// InterfaceAddr returns the first IPv4 address of the named interface.
func InterfaceAddr(name string) (net.IP, error) {
	ifi, err := net.InterfaceByName(name)
	if err != nil {
		return nil, err
	}
	addrs, err := ifi.Addrs()
	if err != nil {
		return nil, err
	}

	for _, a := range addrs {
		if ipn, ok := a.(*net.IPNet); ok && ipn.IP.To4() != nil {
			return ipn.IP, nil
		}
	}

	return nil, fmt.Errorf("%w: %v", ErrNoAddress, name)
}
