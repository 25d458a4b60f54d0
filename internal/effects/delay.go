package effects

// Delay is a stereo feedback delay with cross-channel (ping-pong) feedback.
// The line is allocated once at maxMs; SetTime moves the read tap inside it,
// so the delay time can change while audio is running.
type Delay struct {
	bufL, bufR []float32
	pos        int
	sampleRate float32

	delaySamples param
	feedback     param
	cross        param
	wet          param
}

// NewDelay creates a delay effect.
// delayMs: initial delay time in milliseconds (clamped to maxMs)
// maxMs: length of the delay line
// feedback: feedback amount 0..0.95
// cross: cross-channel feedback 0..1
// wet: wet/dry mix 0..1 (1 = wet only, for send returns)
func NewDelay(sampleRate int, delayMs, maxMs float64, feedback, cross, wet float32) *Delay {
	size := int(maxMs * float64(sampleRate) / 1000.0)
	if size < 2 {
		size = 2
	}
	d := &Delay{
		bufL:       make([]float32, size),
		bufR:       make([]float32, size),
		sampleRate: float32(sampleRate),
	}
	d.SetTime(float32(delayMs))
	d.SetFeedback(feedback)
	d.cross.Store(clamp(cross, 0, 1))
	d.wet.Store(clamp(wet, 0, 1))
	return d
}

// SetTime sets the delay in milliseconds, clamped to the line length.
func (d *Delay) SetTime(ms float32) {
	n := ms * d.sampleRate / 1000
	d.delaySamples.Store(clamp(n, 1, float32(len(d.bufL)-1)))
}

func (d *Delay) Time() float32 { return d.delaySamples.Load() * 1000 / d.sampleRate }

func (d *Delay) SetFeedback(fb float32) { d.feedback.Store(clamp(fb, 0, 0.95)) }

func (d *Delay) Feedback() float32 { return d.feedback.Load() }

func (d *Delay) Process(l, r float32) (float32, float32) {
	size := len(d.bufL)
	n := int(d.delaySamples.Load())
	read := d.pos - n
	if read < 0 {
		read += size
	}
	delL := d.bufL[read]
	delR := d.bufR[read]

	fb := d.feedback.Load()
	cross := d.cross.Load()
	fbL := delL*fb*(1-cross) + delR*fb*cross
	fbR := delR*fb*(1-cross) + delL*fb*cross
	d.bufL[d.pos] = l + fbL
	d.bufR[d.pos] = r + fbR
	d.pos++
	if d.pos >= size {
		d.pos = 0
	}
	wet := d.wet.Load()
	return l*(1-wet) + delL*wet, r*(1-wet) + delR*wet
}

func (d *Delay) Reset() {
	for i := range d.bufL {
		d.bufL[i] = 0
		d.bufR[i] = 0
	}
	d.pos = 0
}
