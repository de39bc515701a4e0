package httpd

import (
	"fmt"

	"code.sztanpet.net/zvpsz/pico-demo/internal/status"
)

// ResponseCapacity bounds the whole response, header included.
const ResponseCapacity = 256

const headerFormat = "HTTP/1.1 200 OK\r\n" +
	"Content-Type: text/plain; charset=utf-8\r\n" +
	"Content-Length: %d\r\n" +
	"Connection: close\r\n" +
	"\r\n"

func statusBody(product string, snap status.Snapshot) string {
	led := "OFF"
	if snap.LED {
		led = "ON"
	}

	return fmt.Sprintf("%s OK\nLED=%s\nUptime=%ds\n", product, led, snap.Uptime)
}

func header(n int) string {
	return fmt.Sprintf(headerFormat, n)
}

// composeResponse wraps body into a response of at most capacity bytes.
// A body that does not fit is cut, Content-Length always states the
// number of body bytes actually present. truncated reports the cut.
func composeResponse(body string, capacity int) (msg []byte, truncated bool) {
	if h := header(len(body)); len(h)+len(body) <= capacity {
		return []byte(h + body), false
	}

	n := len(body)
	for {
		fit := capacity - len(header(n))
		if fit < 0 {
			fit = 0
		}
		if fit >= n {
			break
		}
		n = fit
	}
	// a shorter Content-Length may have freed a byte
	for n < len(body) && len(header(n+1))+n+1 <= capacity {
		n++
	}

	msg = []byte(header(n) + body[:n])
	if len(msg) > capacity {
		// not even the header fits
		msg = msg[:capacity]
	}

	return msg, true
}
