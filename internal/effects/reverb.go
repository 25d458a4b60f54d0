package effects

// Reverb is a Schroeder reverb: four parallel damped combs per channel into
// two series allpasses. The right channel's combs are slightly longer than
// the left's to decorrelate the tail.
type Reverb struct {
	left, right reverbChannel
	feedback    param
	wet         param
}

type reverbChannel struct {
	combs   [4]comb
	allpass [2]allpass
}

type comb struct {
	buf   []float32
	pos   int
	store float32 // damping lowpass state
}

type allpass struct {
	buf []float32
	pos int
}

const (
	reverbDamp   = 0.3
	allpassGain  = 0.5
	stereoSpread = 23
)

var (
	combRatios    = [4]int{1000, 1117, 1271, 1437}
	allpassRatios = [2]int{347, 213}
)

// NewReverb creates a reverb effect.
// roomSize: 0..1 scales the comb lengths
// feedback: 0..0.95 controls the decay time
// wet: wet/dry mix 0..1 (1 = wet only, for send returns)
func NewReverb(sampleRate int, roomSize, feedback, wet float32) *Reverb {
	base := int(float32(sampleRate) * clamp(roomSize, 0, 1) * 0.05)
	if base < 10 {
		base = 10
	}
	r := &Reverb{}
	r.left.alloc(base, 0)
	r.right.alloc(base, stereoSpread)
	r.SetFeedback(feedback)
	r.wet.Store(clamp(wet, 0, 1))
	return r
}

func (c *reverbChannel) alloc(base, spread int) {
	for i := range c.combs {
		c.combs[i].buf = make([]float32, base*combRatios[i]/1000+spread)
	}
	for i := range c.allpass {
		n := base*allpassRatios[i]/1000 + spread
		if n < 1 {
			n = 1
		}
		c.allpass[i].buf = make([]float32, n)
	}
}

func (r *Reverb) SetFeedback(fb float32) { r.feedback.Store(clamp(fb, 0, 0.95)) }

func (r *Reverb) Feedback() float32 { return r.feedback.Load() }

func (r *Reverb) Process(l, rt float32) (float32, float32) {
	fb := r.feedback.Load()
	mono := (l + rt) * 0.5
	outL := r.left.process(mono, fb)
	outR := r.right.process(mono, fb)
	wet := r.wet.Load()
	return l*(1-wet) + outL*wet, rt*(1-wet) + outR*wet
}

func (c *reverbChannel) process(in, fb float32) float32 {
	var out float32
	for i := range c.combs {
		out += c.combs[i].process(in, fb)
	}
	out *= 0.25
	for i := range c.allpass {
		out = c.allpass[i].process(out)
	}
	return out
}

func (r *Reverb) Reset() {
	r.left.reset()
	r.right.reset()
}

func (c *reverbChannel) reset() {
	for i := range c.combs {
		clear(c.combs[i].buf)
		c.combs[i].pos = 0
		c.combs[i].store = 0
	}
	for i := range c.allpass {
		clear(c.allpass[i].buf)
		c.allpass[i].pos = 0
	}
}

func (c *comb) process(in, fb float32) float32 {
	out := c.buf[c.pos]
	c.store = out*(1-reverbDamp) + c.store*reverbDamp
	c.buf[c.pos] = in + c.store*fb
	c.pos++
	if c.pos >= len(c.buf) {
		c.pos = 0
	}
	return out
}

func (a *allpass) process(in float32) float32 {
	bufOut := a.buf[a.pos]
	out := -in + bufOut
	a.buf[a.pos] = in + bufOut*allpassGain
	a.pos++
	if a.pos >= len(a.buf) {
		a.pos = 0
	}
	return out
}
