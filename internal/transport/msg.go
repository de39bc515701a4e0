package transport

import "strconv"

// Msg tags the messages the display driver sends to its byte and gpio/delay callbacks.
type Msg int

const (
	MsgByteInit Msg = iota + 1
	MsgByteStartTransfer
	MsgByteSend
	MsgByteEndTransfer

	MsgGPIOAndDelayInit
	MsgDelayMilli
	MsgDelay10Micro
	MsgDelay100Nano
	MsgGPIOReset
)

func (m Msg) String() string {
	switch m {
	case MsgByteInit:
		return "BYTE_INIT"
	case MsgByteStartTransfer:
		return "BYTE_START_TRANSFER"
	case MsgByteSend:
		return "BYTE_SEND"
	case MsgByteEndTransfer:
		return "BYTE_END_TRANSFER"
	case MsgGPIOAndDelayInit:
		return "GPIO_AND_DELAY_INIT"
	case MsgDelayMilli:
		return "DELAY_MILLI"
	case MsgDelay10Micro:
		return "DELAY_10MICRO"
	case MsgDelay100Nano:
		return "DELAY_100NANO"
	case MsgGPIOReset:
		return "GPIO_RESET"
	default:
		return "MSG(" + strconv.Itoa(int(m)) + ")"
	}
}
