package httpd

import (
	"strconv"
	"strings"
	"testing"

	"code.sztanpet.net/zvpsz/pico-demo/internal/status"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// split returns the declared Content-Length and the body of a composed response.
func split(t *testing.T, msg []byte) (int, string) {
	parts := strings.SplitN(string(msg), "\r\n\r\n", 2)
	require.Len(t, parts, 2)

	for _, line := range strings.Split(parts[0], "\r\n") {
		if strings.HasPrefix(line, "Content-Length: ") {
			n, err := strconv.Atoi(strings.TrimPrefix(line, "Content-Length: "))
			require.NoError(t, err)
			return n, parts[1]
		}
	}

	t.Fatalf("no Content-Length in %q", msg)
	return 0, ""
}

func TestStatusBody(t *testing.T) {
	body := statusBody("Pico W HTTP", status.Snapshot{LED: true, Uptime: 42})
	assert.Equal(t, "Pico W HTTP OK\nLED=ON\nUptime=42s\n", body)
	assert.Len(t, body, 33)

	body = statusBody("Pico W HTTP", status.Snapshot{Uptime: 18446744073709551615})
	assert.Equal(t, "Pico W HTTP OK\nLED=OFF\nUptime=18446744073709551615s\n", body)
}

func TestComposeResponse(t *testing.T) {
	body := "Pico W HTTP OK\nLED=ON\nUptime=42s\n"
	msg, truncated := composeResponse(body, ResponseCapacity)
	assert.False(t, truncated)

	assert.Equal(t, "HTTP/1.1 200 OK\r\n"+
		"Content-Type: text/plain; charset=utf-8\r\n"+
		"Content-Length: 33\r\n"+
		"Connection: close\r\n"+
		"\r\n"+body, string(msg))

	n, got := split(t, msg)
	assert.Equal(t, len(body), n)
	assert.Equal(t, body, got)
}

func TestComposeResponse_Boundary(t *testing.T) {
	body := strings.Repeat("b", 150)
	exact := len(header(len(body))) + len(body)

	msg, truncated := composeResponse(body, exact)
	assert.False(t, truncated)
	assert.Len(t, msg, exact)
	n, got := split(t, msg)
	assert.Equal(t, 150, n)
	assert.Equal(t, body, got)

	// one byte more than fits
	msg, truncated = composeResponse(body, exact-1)
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(msg), exact-1)
	n, got = split(t, msg)
	assert.Equal(t, len(got), n)
	assert.Equal(t, body[:n], got)
	assert.Equal(t, 149, n)
}

func TestComposeResponse_ShorterLength(t *testing.T) {
	// cutting a 3 digit length down to 2 digits frees a byte for the body
	body := strings.Repeat("b", 100)
	capacity := len(header(99)) + 99

	msg, truncated := composeResponse(body, capacity)
	assert.True(t, truncated)
	assert.Len(t, msg, capacity)
	n, got := split(t, msg)
	assert.Equal(t, 99, n)
	assert.Len(t, got, 99)
}

func TestComposeResponse_LargeBody(t *testing.T) {
	body := strings.Repeat("x", 4096)
	msg, truncated := composeResponse(body, ResponseCapacity)
	assert.True(t, truncated)
	assert.LessOrEqual(t, len(msg), ResponseCapacity)
	assert.GreaterOrEqual(t, len(msg), ResponseCapacity-1)

	n, got := split(t, msg)
	assert.Equal(t, len(got), n)
}

func TestComposeResponse_HeaderDoesNotFit(t *testing.T) {
	msg, truncated := composeResponse("body", 20)
	assert.True(t, truncated)
	assert.Len(t, msg, 20)
	assert.Equal(t, "HTTP/1.1 200 OK\r\nCon", string(msg))
}
