package serialize

import (
	"bufio"
	"context"
	"fmt"
	"io"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
)

// PeekHeader reads only the leading Header from r, for tooling that needs
// snapshot metadata (node/edge counts, schema) without materializing a
// Graph (spec §4.6, cmd/graphtool's inspect command).
func PeekHeader(r io.Reader) (Header, error) {
	return readHeader(bufio.NewReader(r))
}

// Decoder reads the versioned virtual-key format spec §4.6 describes back
// into a live Graph. EnableIndices, if set, is invoked once decoding
// finishes so a host holding index populators can flip any pending ones to
// direct-indexing without this package importing pkg/index.
type Decoder struct {
	EnableIndices func()
}

// DecodeInto reads one virtual key from r and applies it to g. The key's
// header triggers the one-time preallocation spec §4.6 describes: grow the
// node/edge pools and every matrix to final size before any entity streams
// in, so no resize happens mid-stream.
func (d *Decoder) DecodeInto(g *graph.Graph, r io.Reader) error {
	br := bufio.NewReader(r)

	header, err := readHeader(br)
	if err != nil {
		return err
	}

	g.SetMatrixSyncPolicy(graph.SyncResize)
	g.Preallocate(header.NodeCount+header.DeletedNodeCount, header.EdgeCount+header.DeletedEdgeCount)

	for i := 0; i < 5; i++ {
		tag, err := readByte(br)
		if err != nil {
			return err
		}
		switch PayloadTag(tag) {
		case TagNodes:
			if err := decodeNodes(br, g); err != nil {
				return fmt.Errorf("serialize: decode nodes: %w", err)
			}
		case TagDeletedNodes:
			if err := decodeDeletedEntities(br, g.NodePool().RestoreFreeList); err != nil {
				return fmt.Errorf("serialize: decode deleted nodes: %w", err)
			}
		case TagEdges:
			if err := decodeEdges(br, g); err != nil {
				return fmt.Errorf("serialize: decode edges: %w", err)
			}
		case TagDeletedEdges:
			if err := decodeDeletedEntities(br, g.EdgePool().RestoreFreeList); err != nil {
				return fmt.Errorf("serialize: decode deleted edges: %w", err)
			}
		case TagGraphSchema:
			count, err := readUint32(br)
			if err != nil {
				return fmt.Errorf("serialize: decode schema: %w", err)
			}
			for j := uint32(0); j < count; j++ {
				if _, err := readBytes(br); err != nil {
					return fmt.Errorf("serialize: decode schema: %w", err)
				}
			}
		default:
			return fmt.Errorf("%w: tag %d", ErrUnknownPayloadTag, tag)
		}
	}

	g.ApplyAllPending(context.Background(), true)
	g.SetMatrixSyncPolicy(graph.SyncFlushResize)
	if d.EnableIndices != nil {
		d.EnableIndices()
	}
	return nil
}

func decodeNodes(r io.Reader, g *graph.Graph) error {
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		id, n, err := readNode(r)
		if err != nil {
			return err
		}
		labels := make([]uint16, 0, 4)
		n.Labels.Each(func(l uint16) { labels = append(labels, l) })
		g.RestoreNode(id, labels, n.Attrs)
	}
	return nil
}

func decodeEdges(r io.Reader, g *graph.Graph) error {
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	for i := uint32(0); i < count; i++ {
		id, e, err := readEdge(r)
		if err != nil {
			return err
		}
		g.RestoreEdge(id, e.Src, e.Dest, e.RelationID, e.Attrs)
	}
	return nil
}

// decodeDeletedEntities reads a DELETED_NODES/DELETED_EDGES payload and
// hands the ids to restore, the same shape for both pools.
func decodeDeletedEntities(r io.Reader, restore func([]entity.ID)) error {
	count, err := readUint32(r)
	if err != nil {
		return err
	}
	ids := make([]entity.ID, count)
	for i := range ids {
		id, err := readEntityID(r)
		if err != nil {
			return err
		}
		ids[i] = id
	}
	restore(ids)
	return nil
}
