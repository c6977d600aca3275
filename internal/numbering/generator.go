package numbering

import (
	"context"
	"time"

	"github.com/odyssey-erp/workdesk/internal/shared"
)

// Generator produces formatted document numbers from a Sequencer.
type Generator struct {
	seq Sequencer
}

// NewGenerator constructs a Generator.
func NewGenerator(seq Sequencer) *Generator {
	return &Generator{seq: seq}
}

// Next returns the next number for tenant and prefix in the period of now.
func (g *Generator) Next(ctx context.Context, tenant shared.Tenant, prefix string, now time.Time) (string, error) {
	seq, err := g.seq.Next(ctx, KeyFor(tenant, prefix, now))
	if err != nil {
		return "", err
	}
	return Format(prefix, now, seq), nil
}

// Reseed lifts the counter above every number in existing.
func (g *Generator) Reseed(ctx context.Context, tenant shared.Tenant, prefix string, now time.Time, existing []string) error {
	return g.seq.Reseed(ctx, KeyFor(tenant, prefix, now), HighestSeq(existing, prefix, now))
}

// Peek returns the number the next call to Next would produce.
func (g *Generator) Peek(ctx context.Context, tenant shared.Tenant, prefix string, now time.Time) (string, error) {
	seq, err := g.seq.Current(ctx, KeyFor(tenant, prefix, now))
	if err != nil {
		return "", err
	}
	return Format(prefix, now, seq+1), nil
}
