// Package control turns MIDI channel messages into calls on the synth voice,
// the drum sampler and the mixer.
package control

// Controller numbers understood by the surface.
const (
	CCVolume     = 7
	CCPan        = 10
	CCSlide      = 65
	CCWaveform   = 70
	CCResonance  = 71
	CCDecay      = 72
	CCAttack     = 73
	CCCutoff     = 74
	CCEnvMod     = 75
	CCAccent     = 76
	CCReverbSend = 91
	CCDelaySend  = 92
	CCDistortion = 94
	CCOverdrive  = 95

	CCAllSoundOff = 120
	CCAllNotesOff = 123
)

// Target is the parameter a controller number drives.
type Target int

const (
	TargetNone Target = iota
	TargetVolume
	TargetPan
	TargetSlide
	TargetWaveform
	TargetResonance
	TargetDecay
	TargetAttack
	TargetCutoff
	TargetEnvMod
	TargetAccent
	TargetReverbSend
	TargetDelaySend
	TargetDistortion
	TargetOverdrive
	TargetAllOff
)

var targetNames = [...]string{
	TargetNone:       "none",
	TargetVolume:     "volume",
	TargetPan:        "pan",
	TargetSlide:      "slide",
	TargetWaveform:   "waveform",
	TargetResonance:  "resonance",
	TargetDecay:      "decay",
	TargetAttack:     "attack",
	TargetCutoff:     "cutoff",
	TargetEnvMod:     "envmod",
	TargetAccent:     "accent",
	TargetReverbSend: "reverb",
	TargetDelaySend:  "delay",
	TargetDistortion: "distortion",
	TargetOverdrive:  "overdrive",
	TargetAllOff:     "all-off",
}

func (t Target) String() string {
	if t < 0 || int(t) >= len(targetNames) {
		return "unknown"
	}
	return targetNames[t]
}

// Table maps every controller number to a target. It is built once and only
// read afterwards.
type Table [128]Target

var defaultTable = func() Table {
	var t Table
	t[CCVolume] = TargetVolume
	t[CCPan] = TargetPan
	t[CCSlide] = TargetSlide
	t[CCWaveform] = TargetWaveform
	t[CCResonance] = TargetResonance
	t[CCDecay] = TargetDecay
	t[CCAttack] = TargetAttack
	t[CCCutoff] = TargetCutoff
	t[CCEnvMod] = TargetEnvMod
	t[CCAccent] = TargetAccent
	t[CCReverbSend] = TargetReverbSend
	t[CCDelaySend] = TargetDelaySend
	t[CCDistortion] = TargetDistortion
	t[CCOverdrive] = TargetOverdrive
	t[CCAllSoundOff] = TargetAllOff
	t[CCAllNotesOff] = TargetAllOff
	return t
}()

// DefaultTable returns a copy of the built-in controller map.
func DefaultTable() Table { return defaultTable }

// Lookup returns the target of controller cc.
func (t *Table) Lookup(cc uint8) Target {
	if cc > 127 {
		return TargetNone
	}
	return t[cc]
}
