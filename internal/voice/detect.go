package voice

import (
	"log/slog"
	"os/exec"
	"strings"
)

// Config selects the speech programs. Empty commands fall back to
// well-known programs on PATH.
type Config struct {
	Enabled          bool
	SpeakCommand     string
	RecognizeCommand string
}

var speakCandidates = []string{"espeak-ng", "espeak", "say"}

var lookPath = exec.LookPath

// Detect returns the subsystems the host supports, or no-op ones when
// voice is disabled or no program is found.
func Detect(cfg Config) (Recognizer, Synthesizer) {
	if !cfg.Enabled {
		return NoopRecognizer{}, NoopSynthesizer{}
	}

	var rec Recognizer = NoopRecognizer{}
	if name, args := splitCommand(cfg.RecognizeCommand); name != "" {
		if path, err := lookPath(name); err == nil {
			rec = NewExecRecognizer(path, args...)
		} else {
			slog.Debug("speech recognizer not found", "command", name)
		}
	}

	var synth Synthesizer = NoopSynthesizer{}
	candidates := speakCandidates
	var args []string
	if name, a := splitCommand(cfg.SpeakCommand); name != "" {
		candidates, args = []string{name}, a
	}
	for _, name := range candidates {
		if path, err := lookPath(name); err == nil {
			synth = NewExecSynthesizer(path, args...)
			break
		}
	}
	if !synth.Available() {
		slog.Debug("no speech synthesizer found")
	}
	return rec, synth
}

func splitCommand(cmd string) (string, []string) {
	fields := strings.Fields(cmd)
	if len(fields) == 0 {
		return "", nil
	}
	return fields[0], fields[1:]
}
