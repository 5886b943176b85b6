package delivery

import (
	"context"

	"github.com/dmitrymomot/securekit/pkg/otp"
)

// ChannelFunc adapts a plain function to otp.Channel, for wiring external
// senders (an SMS gateway, a chat webhook) without a dedicated type.
type ChannelFunc func(ctx context.Context, destination, code string, purpose otp.Type) (otp.Receipt, error)

func (f ChannelFunc) SendCode(ctx context.Context, destination, code string, purpose otp.Type) (otp.Receipt, error) {
	return f(ctx, destination, code, purpose)
}
