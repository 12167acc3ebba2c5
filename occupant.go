package tilemap

// Occupant describes whatever occupied a coordinate when it was inspected.
// It goes stale as soon as the store is written to.
type Occupant struct {
	Entity       Entity
	ID           *TileID // nil if it couldn't be identified
	TextureIndex uint32
	Animated     bool
	Auto         bool
}

// matches reports if the occupant is known to be of the same group as `id`.
// An unidentified occupant never matches.
func (o *Occupant) matches(id TileID) bool {
	return o != nil && o.ID != nil && o.ID.EqGroup(id)
}

func (o *Occupant) displaced() *Displaced {
	return &Displaced{Entity: o.Entity, ID: o.ID}
}

// inspect reads what occupies `c`. The tile is identified by reverse lookup
// of it's texture index in `scope` (which may be nil).
func (p *Placer) inspect(scope *Tileset, c Coord) *Occupant {
	e, ok := p.store.EntityAt(c)
	if !ok {
		return nil
	}
	rec, ok := p.store.Tile(e)
	if !ok {
		// still occupied, we just can't say by what
		return &Occupant{Entity: e}
	}

	occ := &Occupant{
		Entity:       e,
		TextureIndex: rec.TextureIndex,
		Animated:     rec.Animation != nil,
		Auto:         rec.Auto != nil,
	}

	if scope != nil {
		if id, ok := scope.TileID(rec.TextureIndex); ok {
			occ.ID = &id
		}
	}

	return occ
}
