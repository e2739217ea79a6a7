package serialize

import (
	"bufio"
	"io"

	"github.com/cortexgraph/kernel/pkg/entity"
)

// writeAttrs walks the set with AttrSet.ByOrdinal, which visits pairs in
// ascending AttrID order (spec §3 "stable ordinal iteration").

// writeNode encodes id, label-count, label[*], attr-count, (attr-id,
// value)[*] per spec §4.6.
func writeNode(w *bufio.Writer, id entity.ID, n entity.Node) error {
	if err := writeUint64(w, uint64(id)); err != nil {
		return err
	}
	labels := make([]uint16, 0, 4)
	n.Labels.Each(func(l uint16) { labels = append(labels, l) })
	if err := writeUint32(w, uint32(len(labels))); err != nil {
		return err
	}
	for _, l := range labels {
		if err := writeUint32(w, uint32(l)); err != nil {
			return err
		}
	}
	return writeAttrs(w, n.Attrs)
}

func readNode(r io.Reader) (entity.ID, entity.Node, error) {
	idv, err := readUint64(r)
	if err != nil {
		return 0, entity.Node{}, err
	}
	id := entity.ID(idv)
	labelCount, err := readUint32(r)
	if err != nil {
		return 0, entity.Node{}, err
	}
	var labels entity.LabelSet
	for i := uint32(0); i < labelCount; i++ {
		l, err := readUint32(r)
		if err != nil {
			return 0, entity.Node{}, err
		}
		labels.Add(uint16(l))
	}
	attrs, err := readAttrs(r)
	if err != nil {
		return 0, entity.Node{}, err
	}
	return id, entity.Node{ID: id, Labels: labels, Attrs: attrs}, nil
}

// writeEdge encodes id, src-id, dest-id, relation-id, attr-count,
// (attr-id, value)[*] per spec §4.6.
func writeEdge(w *bufio.Writer, id entity.ID, e entity.Edge) error {
	if err := writeUint64(w, uint64(id)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(e.Src)); err != nil {
		return err
	}
	if err := writeUint64(w, uint64(e.Dest)); err != nil {
		return err
	}
	if err := writeUint32(w, uint32(e.RelationID)); err != nil {
		return err
	}
	return writeAttrs(w, e.Attrs)
}

func readEdge(r io.Reader) (entity.ID, entity.Edge, error) {
	idv, err := readUint64(r)
	if err != nil {
		return 0, entity.Edge{}, err
	}
	src, err := readUint64(r)
	if err != nil {
		return 0, entity.Edge{}, err
	}
	dest, err := readUint64(r)
	if err != nil {
		return 0, entity.Edge{}, err
	}
	rel, err := readUint32(r)
	if err != nil {
		return 0, entity.Edge{}, err
	}
	attrs, err := readAttrs(r)
	if err != nil {
		return 0, entity.Edge{}, err
	}
	id := entity.ID(idv)
	return id, entity.Edge{ID: id, Src: entity.ID(src), Dest: entity.ID(dest), RelationID: uint16(rel), Attrs: attrs}, nil
}

func writeAttrs(w *bufio.Writer, attrs entity.AttrSet) error {
	if err := writeUint32(w, uint32(attrs.Len())); err != nil {
		return err
	}
	for i := 0; i < attrs.Len(); i++ {
		id, v := attrs.ByOrdinal(i)
		if err := writeUint32(w, uint32(id)); err != nil {
			return err
		}
		if err := writeValue(w, v); err != nil {
			return err
		}
	}
	return nil
}

func readAttrs(r io.Reader) (entity.AttrSet, error) {
	var attrs entity.AttrSet
	n, err := readUint32(r)
	if err != nil {
		return attrs, err
	}
	for i := uint32(0); i < n; i++ {
		id, err := readUint32(r)
		if err != nil {
			return attrs, err
		}
		v, err := readValue(r)
		if err != nil {
			return attrs, err
		}
		attrs.Set(entity.AttrID(id), v)
	}
	return attrs, nil
}

// writeEntityID encodes a bare id, used for the DELETED_NODES/DELETED_EDGES
// payload sections (spec §4.6: these carry ids only).
func writeEntityID(w *bufio.Writer, id entity.ID) error { return writeUint64(w, uint64(id)) }

func readEntityID(r io.Reader) (entity.ID, error) {
	v, err := readUint64(r)
	return entity.ID(v), err
}
