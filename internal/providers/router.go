// Package providers holds the transports that deliver fire alerts.
package providers

import (
	"context"
	"strings"

	"fireguard/internal/models"
)

// Deliverer sends one alert to one address.
type Deliverer interface {
	Deliver(ctx context.Context, address string, alert models.FireAlert) error
}

// Router picks a transport by address scheme. Addresses starting with
// "telegram:" go to Telegram; everything else is treated as mail and goes
// to the mail transport.
type Router struct {
	Mail     Deliverer
	Telegram Deliverer
}

func (r *Router) Deliver(ctx context.Context, address string, alert models.FireAlert) error {
	if strings.HasPrefix(address, telegramScheme) {
		if r.Telegram == nil {
			return errNoTransport(address)
		}
		return r.Telegram.Deliver(ctx, address, alert)
	}
	if r.Mail == nil {
		return errNoTransport(address)
	}
	return r.Mail.Deliver(ctx, address, alert)
}

type errNoTransport string

func (e errNoTransport) Error() string {
	return "no transport configured for " + string(e)
}
