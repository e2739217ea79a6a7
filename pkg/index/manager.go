package index

// Stats reports a populator's observable progress, for tooling and tests
// (SPEC_FULL.md).
type Stats struct {
	State State
	Row   int
	Col   int
}

// Stats reports the node populator's current state and resume row.
func (p *NodePopulator) Stats() Stats {
	return Stats{State: p.State(), Row: p.ResumeRow()}
}

// ResumePosition reports the edge populator's next-resume (row, col) and
// whether one has been recorded yet.
func (p *EdgePopulator) ResumePosition() (row, col int, have bool) {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.resumeRow, p.resumeCol, p.haveResume
}

// Stats reports the edge populator's current state and resume position.
func (p *EdgePopulator) Stats() Stats {
	row, col, _ := p.ResumePosition()
	return Stats{State: p.State(), Row: row, Col: col}
}
