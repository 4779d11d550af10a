package email

import (
	"context"
	"fmt"
)

// New builds the sender selected by cfg.Provider.
func New(ctx context.Context, cfg Config) (Sender, error) {
	var (
		sender Sender
		err    error
	)
	switch cfg.Provider {
	case ProviderPostmark:
		sender, err = asSender(NewPostmarkSender(cfg))
	case ProviderSendGrid:
		sender, err = asSender(NewSendGridSender(cfg))
	case ProviderS3:
		sender, err = asSender(NewS3Sender(ctx, cfg))
	case ProviderDev, "":
		if err = cfg.validateSender(); err == nil {
			sender = NewDevSender(cfg.DevDir)
		}
	default:
		err = fmt.Errorf("%w: %q", ErrUnknownProvider, cfg.Provider)
	}
	if err != nil {
		return nil, err
	}
	return sender, nil
}

func asSender[S Sender](s S, err error) (Sender, error) {
	if err != nil {
		return nil, err
	}
	return s, nil
}
