// Package artifacts renders recommendation runs to durable outputs:
// JSON documents, CSV portfolio tables and structured log lines.
package artifacts

import (
	"context"

	"github.com/liamashdown/polyquant/internal/engine"
)

// Writer persists one recommendation run
type Writer interface {
	Write(ctx context.Context, rec *engine.Recommendation) error
}
