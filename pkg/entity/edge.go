package entity

// Edge is {id, src-id, dest-id, relation-id, attributes} per spec §3.
type Edge struct {
	ID         ID
	Src        ID
	Dest       ID
	RelationID uint16
	Attrs      AttrSet
}

func (e *Edge) Clone() Edge {
	return Edge{ID: e.ID, Src: e.Src, Dest: e.Dest, RelationID: e.RelationID, Attrs: e.Attrs.Clone()}
}
