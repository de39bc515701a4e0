package telegram

import (
	"context"
	"strconv"
	"time"

	"code.sztanpet.net/zvpsz/pico-demo/internal/config"
	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api"
	"golang.org/x/time/rate"
)

// MaxSendDurr configures the limiter to send at most 1 message per MaxSendDurr
var MaxSendDurr = 500 * time.Millisecond

// https://github.com/yagop/node-telegram-bot-api/issues/165
const maxMessageSize = 4096

// maxParts bounds how many messages a single Send may turn into.
const maxParts = 9

type sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

type Bot struct {
	ctx       context.Context
	channelID int64
	api       sender
	limiter   *rate.Limiter
}

func New(ctx context.Context, cfg *config.Config) (*Bot, error) {
	api, err := tgbotapi.NewBotAPI(cfg.TelegramToken)
	if err != nil {
		return nil, err
	}

	return newBot(ctx, api, cfg.TelegramChannelID), nil
}

func newBot(ctx context.Context, api sender, channelID int64) *Bot {
	return &Bot{
		ctx:       ctx,
		channelID: channelID,
		api:       api,
		// limit message spam to once every MaxSendDurr
		limiter: rate.NewLimiter(rate.Every(MaxSendDurr), 1),
	}
}

// Send sends a message to the channel, optionally sending notifications depending on disableNotification.
// Long messages are cut into numbered parts, anything beyond maxParts parts is dropped.
func (t *Bot) Send(txt string, disableNotification bool) error {
	parts := split(txt)
	for _, p := range parts {
		if err := t.limiter.Wait(t.ctx); err != nil {
			return err
		}

		msg := tgbotapi.NewMessage(t.channelID, p)
		msg.DisableNotification = disableNotification
		if _, err := t.api.Send(msg); err != nil {
			return err
		}
	}

	return nil
}

func split(txt string) []string {
	if len(txt) <= maxMessageSize {
		return []string{txt}
	}

	// room for the " (n)" postfix
	size := maxMessageSize - 4
	var parts []string
	for i := 1; len(txt) > 0 && i <= maxParts; i++ {
		end := size
		if len(txt) < end {
			end = len(txt)
		}
		parts = append(parts, txt[:end]+" ("+strconv.Itoa(i)+")")
		txt = txt[end:]
	}

	return parts
}
