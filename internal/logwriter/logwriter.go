package logwriter

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	"code.sztanpet.net/zvpsz/pico-demo/internal/file"
	"github.com/juju/loggo"
)

// Notifier receives every log line, notification is requested for warnings and above.
type Notifier interface {
	Send(txt string, disableNotification bool) error
}

type writer struct {
	bot    Notifier
	path   string
	stderr io.Writer
	// bot sends run in the background, tests replace it
	async func(func())
}

// Setup replaces the default loggo writer, bot may be nil.
func Setup(bot Notifier, cfg *config.Config) error {
	path, err := os.Executable()
	if err != nil {
		return err
	}

	if cfg.LogConfig != "" {
		if err := loggo.ConfigureLoggers(cfg.LogConfig); err != nil {
			return fmt.Errorf("LOG_CONFIG: %w", err)
		}
	}

	_, err = loggo.RemoveWriter("default")
	if err != nil {
		return err
	}

	return loggo.RegisterWriter("default", newWriter(
		bot,
		filepath.Join(cfg.StatePath, filepath.Base(path)+".log"),
		os.Stderr,
	))
}

func newWriter(bot Notifier, path string, stderr io.Writer) *writer {
	return &writer{
		bot:    bot,
		path:   path,
		stderr: stderr,
		async:  func(f func()) { go f() },
	}
}

func (w *writer) Write(e loggo.Entry) {
	line := formatEntry(e)

	fp := e.Filename
	ix := strings.Index(e.Filename, "pico-demo/")
	if ix != -1 {
		fp = fp[ix+len("pico-demo/"):]
	}

	l := fmt.Sprintf("%v%v:%v %v\n",
		e.Timestamp.Format("[2006-01-02 15:04:05] "),
		fp, e.Line,
		line,
	)
	fmt.Fprint(w.stderr, l)
	if err := file.Append(w.path, []byte(l)); err != nil {
		fmt.Fprintf(w.stderr, "Failed to write log file: %v\n", err)
	}

	if w.bot == nil {
		return
	}
	w.async(func() {
		needNotification := e.Level >= loggo.WARNING
		if err := w.bot.Send(line, !needNotification); err != nil {
			fmt.Fprintf(w.stderr, "%v bot send error: %v\n", e.Timestamp.Format("[2006-01-02 15:04:05]"), err)
		}
	})
}

func formatEntry(e loggo.Entry) string {
	// indicate the level like T1 for TRACE D2 for debug, etc
	return fmt.Sprintf(
		"[%v%v|%v:%v:%v] %v",
		string(e.Level.String()[0]),
		int(e.Level),
		e.Module,
		filepath.Base(e.Filename),
		e.Line,
		e.Message,
	)
}
