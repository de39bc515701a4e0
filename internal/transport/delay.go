package transport

import "time"

// Delay serves the gpio/delay callback of the display driver.
// The display needs no reset line, so only the delays do anything.
type Delay struct {
	Sleep func(time.Duration)
}

func NewDelay() *Delay {
	return &Delay{Sleep: time.Sleep}
}

func (d *Delay) Handle(msg Msg, n int, _ []byte) error {
	switch msg {
	case MsgDelayMilli:
		d.Sleep(time.Duration(n) * time.Millisecond)
	case MsgDelay10Micro:
		d.Sleep(10 * time.Microsecond)
	case MsgGPIOAndDelayInit, MsgDelay100Nano, MsgGPIOReset:
		// 100ns is below what the scheduler can resolve anyway
	}

	return nil
}
