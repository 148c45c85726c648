package email

import (
	"context"
	"errors"
	"fmt"
	"log"
)

// FallbackSender tries each transport in order and stops at the first success.
type FallbackSender struct {
	senders []ServiceInterface
}

// NewFallbackSender chains the given transports, skipping nil ones.
func NewFallbackSender(senders ...ServiceInterface) *FallbackSender {
	fs := &FallbackSender{}
	for _, s := range senders {
		if s != nil {
			fs.senders = append(fs.senders, s)
		}
	}
	return fs
}

// ErrNoTransport is returned when no email transport is configured.
var ErrNoTransport = errors.New("no email transport configured")

func (f *FallbackSender) SendEmail(ctx context.Context, msg Message) error {
	if len(f.senders) == 0 {
		return ErrNoTransport
	}
	var errs []error
	for i, s := range f.senders {
		err := s.SendEmail(ctx, msg)
		if err == nil {
			return nil
		}
		errs = append(errs, fmt.Errorf("transport %d: %w", i, err))
		if i < len(f.senders)-1 {
			log.Printf("Email transport %d failed, falling back: %v", i, err)
		}
	}
	return errors.Join(errs...)
}
