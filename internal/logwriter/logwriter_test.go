package logwriter

import (
	"bytes"
	"errors"
	"io/ioutil"
	"path/filepath"
	"testing"
	"time"

	"github.com/juju/loggo"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type sent struct {
	txt    string
	silent bool
}

type fakeBot struct {
	msgs []sent
	err  error
}

func (b *fakeBot) Send(txt string, disableNotification bool) error {
	b.msgs = append(b.msgs, sent{txt, disableNotification})
	return b.err
}

func entry(level loggo.Level, msg string) loggo.Entry {
	return loggo.Entry{
		Level:     level,
		Module:    "pico.httpd",
		Filename:  "/src/pico-demo/internal/httpd/server.go",
		Line:      108,
		Timestamp: time.Date(2023, 5, 1, 10, 20, 30, 0, time.UTC),
		Message:   msg,
	}
}

func newTestWriter(t *testing.T, bot Notifier) (*writer, *bytes.Buffer, string) {
	dir, err := ioutil.TempDir("", "logwriter-test")
	require.NoError(t, err)

	stderr := &bytes.Buffer{}
	path := filepath.Join(dir, "pico-httpd.log")
	w := newWriter(bot, path, stderr)
	w.async = func(f func()) { f() }
	return w, stderr, path
}

func TestFormatEntry(t *testing.T) {
	assert.Equal(t,
		"[W4|pico.httpd:server.go:108] could not listen",
		formatEntry(entry(loggo.WARNING, "could not listen")),
	)
}

func TestWrite(t *testing.T) {
	bot := &fakeBot{}
	w, stderr, path := newTestWriter(t, bot)

	w.Write(entry(loggo.INFO, "serving HTTP on [::]:80"))
	w.Write(entry(loggo.ERROR, "bind failed"))

	want := "[2023-05-01 10:20:30] internal/httpd/server.go:108 [I3|pico.httpd:server.go:108] serving HTTP on [::]:80\n" +
		"[2023-05-01 10:20:30] internal/httpd/server.go:108 [E5|pico.httpd:server.go:108] bind failed\n"
	b, err := ioutil.ReadFile(path)
	require.NoError(t, err)
	assert.Equal(t, want, string(b))
	assert.Equal(t, want, stderr.String())

	require.Len(t, bot.msgs, 2)
	assert.True(t, bot.msgs[0].silent)
	assert.False(t, bot.msgs[1].silent)
	assert.Equal(t, "[E5|pico.httpd:server.go:108] bind failed", bot.msgs[1].txt)
}

func TestWrite_NoBot(t *testing.T) {
	w, stderr, _ := newTestWriter(t, nil)
	w.Write(entry(loggo.WARNING, "x"))
	assert.Contains(t, stderr.String(), "x\n")
}

func TestWrite_BotError(t *testing.T) {
	w, stderr, _ := newTestWriter(t, &fakeBot{err: errors.New("offline")})
	w.Write(entry(loggo.CRITICAL, "x"))
	assert.Contains(t, stderr.String(), "bot send error: offline")
}
