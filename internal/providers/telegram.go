package providers

import (
	"context"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-telegram/bot"
	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"

	"fireguard/internal/models"
)

const telegramScheme = "telegram:"

// TelegramDeliverer sends alerts to chat ids addressed as "telegram:<id>".
type TelegramDeliverer struct {
	send    func(ctx context.Context, chatID int64, text string) error
	limiter *rate.Limiter
	log     *logrus.Entry
}

func NewTelegramDeliverer(token string, ratePerSecond int, log *logrus.Entry) (*TelegramDeliverer, error) {
	b, err := bot.New(token, bot.WithSkipGetMe())
	if err != nil {
		return nil, fmt.Errorf("failed to initialize Telegram bot: %w", err)
	}
	t := &TelegramDeliverer{
		limiter: rate.NewLimiter(rate.Limit(float64(ratePerSecond)), ratePerSecond),
		log:     log,
	}
	t.send = func(ctx context.Context, chatID int64, text string) error {
		_, err := b.SendMessage(ctx, &bot.SendMessageParams{
			ChatID:    chatID,
			Text:      text,
			ParseMode: "Markdown",
		})
		return err
	}
	return t, nil
}

// TelegramAddress formats a chat id as a recipient address.
func TelegramAddress(chatID int64) string {
	return telegramScheme + strconv.FormatInt(chatID, 10)
}

func parseTelegramAddress(address string) (int64, error) {
	id, err := strconv.ParseInt(strings.TrimPrefix(address, telegramScheme), 10, 64)
	if err != nil || id == 0 {
		return 0, fmt.Errorf("invalid telegram address %q", address)
	}
	return id, nil
}

func (t *TelegramDeliverer) Deliver(ctx context.Context, address string, alert models.FireAlert) error {
	chatID, err := parseTelegramAddress(address)
	if err != nil {
		return err
	}
	if err := t.limiter.Wait(ctx); err != nil {
		return fmt.Errorf("telegram rate limit exceeded: %w", err)
	}

	text := fmt.Sprintf(
		"*%s*\n\n*Temperature:* %.2f (limit %.2f)\n*Gas:* %.2f\n*Time:* %s",
		alert.Subject(),
		alert.Temperature,
		alert.Threshold,
		alert.Gas,
		alert.TriggeredAt.Format(time.RFC3339),
	)

	// One attempt only. A failed alert is reported to the caller, never resent.
	if err := t.send(ctx, chatID, text); err != nil {
		return fmt.Errorf("failed to send Telegram message to chat_id %d: %w", chatID, err)
	}
	t.log.Debugf("Telegram alert sent to chat_id %d", chatID)
	return nil
}
