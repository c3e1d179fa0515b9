// Package directory resolves league participants and their cap headroom.
//
// The roster itself is static configuration; headroom comes from the league's
// accounting feeds. When the accounting collaborator is unreachable the
// lookup fails, which the commit service treats as a refusal to accept bids.
package directory

import (
	"context"
	"fmt"

	"github.com/lalder95/auctiond/internal/domain"
)

// Member is one configured roster entry.
type Member struct {
	ID          string
	DisplayName string
}

// Directory implements domain.ParticipantDirectory over a static roster,
// fetching each participant's headroom from a CapSource.
type Directory struct {
	members map[string]Member
	order   []string
	caps    domain.CapSource
}

// New builds a Directory from the configured roster.
func New(members []Member, caps domain.CapSource) *Directory {
	d := &Directory{
		members: make(map[string]Member, len(members)),
		caps:    caps,
	}
	for _, m := range members {
		if _, ok := d.members[m.ID]; ok {
			continue
		}
		d.members[m.ID] = m
		d.order = append(d.order, m.ID)
	}
	return d
}

// Participant resolves one roster member and their current headroom. Unknown
// IDs return domain.ErrNotFound; a failing cap source propagates its error.
func (d *Directory) Participant(ctx context.Context, id string) (domain.Participant, error) {
	m, ok := d.members[id]
	if !ok {
		return domain.Participant{}, domain.ErrNotFound
	}

	headroom, err := d.caps.Headroom(ctx, id)
	if err != nil {
		return domain.Participant{}, fmt.Errorf("directory: headroom for %s: %w", id, err)
	}

	return domain.Participant{
		ID:          m.ID,
		DisplayName: m.DisplayName,
		CapHeadroom: headroom,
	}, nil
}

// List returns every roster member with their headroom, in configured order.
func (d *Directory) List(ctx context.Context) ([]domain.Participant, error) {
	out := make([]domain.Participant, 0, len(d.order))
	for _, id := range d.order {
		p, err := d.Participant(ctx, id)
		if err != nil {
			return nil, err
		}
		out = append(out, p)
	}
	return out, nil
}

var _ domain.ParticipantDirectory = (*Directory)(nil)
