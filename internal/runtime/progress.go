package runtime

import "time"

// SimulateBlockingProcess starts the processing cue with a blocking style.
func (p *Process) SimulateBlockingProcess() { p.startCue(true) }

// SimulateNonblockingProcess starts the processing cue with a non-blocking style.
func (p *Process) SimulateNonblockingProcess() { p.startCue(false) }

// startCue schedules the fill animation of a simulated local computation. The cue is
// purely visual: it never delays messages. A new cue replaces a running one.
func (p *Process) startCue(blocking bool) {
	if p.status.Final() {
		return
	}
	p.stopCue()

	t := p.e.processTiming
	total := t.Default
	if p.e.sb != nil && p.e.sb.ProcessTimesRandom {
		total = t.Min + time.Duration(p.e.rng.Float64()*float64(t.Max-t.Min))
	}
	for i := 1; i <= t.Steps; i++ {
		fraction := float64(i) / float64(t.Steps)
		p.cue = append(p.cue, p.e.sched.After(total*time.Duration(i)/time.Duration(t.Steps), func() {
			p.e.renderer.ProcessProgress(p.ID(), fraction, blocking)
		}))
	}
	p.cue = append(p.cue, p.e.sched.After(total, func() {
		p.e.renderer.ProcessProgress(p.ID(), 0, blocking)
		p.cue = nil
	}))
}

func (p *Process) stopCue() {
	if len(p.cue) == 0 {
		return
	}
	for _, t := range p.cue {
		t.Stop()
	}
	p.cue = nil
	p.e.renderer.ProcessProgress(p.ID(), 0, false)
}
