package serialize

import (
	"bufio"
	"bytes"
	"io"

	"github.com/cortexgraph/kernel/pkg/entity"
	"github.com/cortexgraph/kernel/pkg/graph"
	"github.com/cortexgraph/kernel/pkg/matrix"
)

const (
	stagingSectionNodes byte = iota + 1
	stagingSectionEdges
)

// Encoder writes a graph snapshot in the versioned virtual-key format of
// spec §4.6. The zero value writes a single virtual key per graph; set
// Staging to route large entity batches through a badger-backed store so
// the encoder never needs the whole node/edge set resident at once.
type Encoder struct {
	Staging *Staging
}

// EncodeGraph writes g to w as one virtual key carrying every payload
// section. Callers that need multiple virtual keys (e.g. the host chunking
// a very large graph across keys) call EncodeGraph once per chunk with a
// graph view scoped to that chunk; this package does not itself decide
// chunk boundaries, since that policy belongs to the host's KV framing
// (spec §6, out of scope here).
func (enc *Encoder) EncodeGraph(g *graph.Graph) func(io.Writer) error {
	return func(w io.Writer) error {
		bw := bufio.NewWriter(w)

		stats := g.Stats()
		relIDs := g.RelationIDs()
		multi := make(map[uint16]bool, len(relIDs))
		for _, rel := range relIDs {
			rm, ok := g.RelationMatrix(rel)
			if !ok {
				continue
			}
			multi[rel] = relationHasMultiEdge(g, rm)
		}

		header := Header{
			GraphName:           g.Name(),
			NodeCount:           stats.Nodes.Live,
			EdgeCount:           stats.Edges.Live,
			DeletedNodeCount:    stats.Nodes.FreeList,
			DeletedEdgeCount:    stats.Edges.FreeList,
			LabelMatrixCount:    stats.LabelMatrices,
			RelationMatrixCount: stats.RelationMatrices,
			MultiEdgeRelations:  multi,
			TotalKeyCount:       1,
		}
		if err := writeHeader(bw, header); err != nil {
			return err
		}

		if err := enc.writeNodes(bw, g); err != nil {
			return err
		}
		if err := enc.writeDeletedNodes(bw, g); err != nil {
			return err
		}
		if err := enc.writeEdges(bw, g); err != nil {
			return err
		}
		if err := enc.writeDeletedEdges(bw, g); err != nil {
			return err
		}
		if err := writeByte(bw, byte(TagGraphSchema)); err != nil {
			return err
		}
		if err := writeUint32(bw, 1); err != nil {
			return err
		}
		if err := writeBytes(bw, nil); err != nil {
			return err
		}
		return bw.Flush()
	}
}

// relationHasMultiEdge reports whether any slot in rm is arena-tagged, for
// the per-relation "multi-edge" header flag (spec §4.6).
func relationHasMultiEdge(g *graph.Graph, rm *matrix.Delta) bool {
	it := matrix.NewIterator()
	if err := it.Attach(rm); err != nil {
		return false
	}
	defer it.Detach()
	for {
		cell, ok := it.Next()
		if !ok {
			return false
		}
		if g.IsMultiEdgeCell(cell.Val) {
			return true
		}
	}
}

func (enc *Encoder) writeNodes(w *bufio.Writer, g *graph.Graph) error {
	if err := writeByte(w, byte(TagNodes)); err != nil {
		return err
	}
	stats := g.Stats()
	if err := writeUint32(w, uint32(stats.Nodes.Live)); err != nil {
		return err
	}
	if enc.Staging == nil {
		var writeErr error
		g.NodePool().Each(func(id entity.ID, n entity.Node) bool {
			if writeErr = writeNode(w, id, n); writeErr != nil {
				return false
			}
			return true
		})
		return writeErr
	}

	var ordinal uint64
	var stageErr error
	g.NodePool().Each(func(id entity.ID, n entity.Node) bool {
		var buf bytes.Buffer
		bw := bufio.NewWriter(&buf)
		if stageErr = writeNode(bw, id, n); stageErr != nil {
			return false
		}
		if stageErr = bw.Flush(); stageErr != nil {
			return false
		}
		if stageErr = enc.Staging.put(stagingSectionNodes, ordinal, buf.Bytes()); stageErr != nil {
			return false
		}
		ordinal++
		return true
	})
	if stageErr != nil {
		return stageErr
	}
	return enc.Staging.drain(stagingSectionNodes, w)
}

func (enc *Encoder) writeDeletedNodes(w *bufio.Writer, g *graph.Graph) error {
	if err := writeByte(w, byte(TagDeletedNodes)); err != nil {
		return err
	}
	ids := g.NodePool().DeletedIDs()
	if err := writeUint32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeEntityID(w, id); err != nil {
			return err
		}
	}
	return nil
}

func (enc *Encoder) writeEdges(w *bufio.Writer, g *graph.Graph) error {
	if err := writeByte(w, byte(TagEdges)); err != nil {
		return err
	}
	stats := g.Stats()
	if err := writeUint32(w, uint32(stats.Edges.Live)); err != nil {
		return err
	}
	if enc.Staging == nil {
		var writeErr error
		g.EdgePool().Each(func(id entity.ID, e entity.Edge) bool {
			if writeErr = writeEdge(w, id, e); writeErr != nil {
				return false
			}
			return true
		})
		return writeErr
	}

	var ordinal uint64
	var stageErr error
	g.EdgePool().Each(func(id entity.ID, e entity.Edge) bool {
		var buf bytes.Buffer
		bw := bufio.NewWriter(&buf)
		if stageErr = writeEdge(bw, id, e); stageErr != nil {
			return false
		}
		if stageErr = bw.Flush(); stageErr != nil {
			return false
		}
		if stageErr = enc.Staging.put(stagingSectionEdges, ordinal, buf.Bytes()); stageErr != nil {
			return false
		}
		ordinal++
		return true
	})
	if stageErr != nil {
		return stageErr
	}
	return enc.Staging.drain(stagingSectionEdges, w)
}

func (enc *Encoder) writeDeletedEdges(w *bufio.Writer, g *graph.Graph) error {
	if err := writeByte(w, byte(TagDeletedEdges)); err != nil {
		return err
	}
	ids := g.EdgePool().DeletedIDs()
	if err := writeUint32(w, uint32(len(ids))); err != nil {
		return err
	}
	for _, id := range ids {
		if err := writeEntityID(w, id); err != nil {
			return err
		}
	}
	return nil
}
