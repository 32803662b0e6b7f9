package periscope

/*
 * Token Sync System
 *
 * ECS system polling the external token source. Each update pass picks
 * up tokens lexed since the last pass and registers them with the
 * periscope, mapping token id i to cell i while the field has room and
 * falling back to the periscope's line-based mapping otherwise.
 */

import (
	"github.com/IreGaddr/braggi/ecs"
	"github.com/IreGaddr/braggi/entropy"
	"github.com/IreGaddr/braggi/token"
)

// SyncSystem registers freshly lexed tokens on every world update
type SyncSystem struct {
	Source    token.Source
	Periscope *Periscope
	Field     *entropy.Field

	nextID int // first token id not yet synced
}

// NewSyncSystem creates a sync system over a token source
func NewSyncSystem(source token.Source, p *Periscope, f *entropy.Field) *SyncSystem {
	return &SyncSystem{
		Source:    source,
		Periscope: p,
		Field:     f,
	}
}

// Name implements ecs.System
func (s *SyncSystem) Name() string {
	return "periscope.sync"
}

// Update polls the source and registers unseen tokens
func (s *SyncSystem) Update(_ *ecs.World, _ float64) {
	if s.Source == nil || s.Periscope == nil {
		return
	}

	max := s.Source.MaxTokenID()
	for ; s.nextID < max; s.nextID++ {
		tok, ok := s.Source.Token(s.nextID)
		if !ok || tok == nil {
			continue
		}

		cellID := entropy.CellID(s.nextID)
		if s.Field != nil && int(cellID) >= s.Field.CellCount() {
			cellID = s.Periscope.CellIDForToken(tok, s.Field)
		}
		s.Periscope.RegisterToken(tok, cellID)
	}
}

// Synced returns the number of token ids consumed so far
func (s *SyncSystem) Synced() int {
	return s.nextID
}
