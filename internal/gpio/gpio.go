// gpio drives output pins through the linux sysfs gpio interface.
package gpio

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sync"
)

const defaultBase = "/sys/class/gpio"

type dir string

const out dir = "out"

// Pin is an output pin, e.g. the auxiliary LED.
type Pin struct {
	mu   sync.Mutex
	base string
	pin  string
}

// NewPin returns the pin with the given sysfs number, base overrides
// /sys/class/gpio when not empty.
func NewPin(base, pin string) *Pin {
	if base == "" {
		base = defaultBase
	}

	return &Pin{
		base: base,
		pin:  pin,
	}
}

func (p *Pin) String() string {
	return "GPIO PIN: " + p.pin
}

// Setup exports the pin and switches it to output.
func (p *Pin) Setup() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := p.export(); err != nil {
		return err
	}

	return p.direction(out)
}

// Set drives the pin high (on) or low.
func (p *Pin) Set(on bool) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	v := "0"
	if on {
		v = "1"
	}
	return write(p.path("value"), v)
}

func (p *Pin) path(file string) string {
	return filepath.Join(p.base, "gpio"+p.pin, file)
}

func (p *Pin) export() error {
	if _, err := os.Stat(filepath.Join(p.base, "gpio"+p.pin)); err == nil {
		return nil // already exported
	}

	if err := write(filepath.Join(p.base, "export"), p.pin); err != nil {
		return fmt.Errorf("failed to export %v: %w", p, err)
	}

	return nil
}

func (p *Pin) direction(d dir) error {
	if err := write(p.path("direction"), string(d)); err != nil {
		return fmt.Errorf("failed to set direction %q on %v: %w", d, p, err)
	}

	return nil
}

func write(path, value string) error {
	f, err := os.OpenFile(path, os.O_WRONLY, 0)
	if err != nil {
		return err
	}
	defer f.Close()

	n, err := f.WriteString(value)
	if err != nil {
		return err
	}

	if n < len(value) {
		return io.ErrShortWrite
	}

	return nil
}
