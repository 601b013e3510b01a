package agent

import (
	"context"

	"github.com/ccastromar/sos-store-ops-system/internal/bus"
)

type Agent interface {
	Start(ctx context.Context) error
	Inbox() chan bus.Message
}
