package domain

import "fmt"

// Stage is a job's position in the pipeline. Values are ordered; a job only ever moves forward.
type Stage int

const (
	StageDownloading Stage = iota
	StageConverting
	StageTranscribing
	StageTranslating
	StageGeneratingSubtitle
	StageGeneratingDocument
	StageCompleted
)

var stageNames = [...]string{
	StageDownloading:        "downloading",
	StageConverting:         "converting",
	StageTranscribing:       "transcribing",
	StageTranslating:        "translating",
	StageGeneratingSubtitle: "generating_subtitle",
	StageGeneratingDocument: "generating_document",
	StageCompleted:          "completed",
}

func (s Stage) String() string {
	if s < StageDownloading || s > StageCompleted {
		return fmt.Sprintf("stage(%d)", int(s))
	}
	return stageNames[s]
}

// MarshalText renders the stage by name in JSON payloads.
func (s Stage) MarshalText() ([]byte, error) {
	return []byte(s.String()), nil
}

// UnmarshalText parses a stage name.
func (s *Stage) UnmarshalText(text []byte) error {
	parsed, err := ParseStage(string(text))
	if err != nil {
		return err
	}
	*s = parsed
	return nil
}

// ParseStage returns the stage with the given name.
func ParseStage(name string) (Stage, error) {
	for i, n := range stageNames {
		if n == name {
			return Stage(i), nil
		}
	}
	return 0, fmt.Errorf("unknown stage %q", name)
}

// Presence records which mandatory artifacts exist on disk.
type Presence struct {
	Video      bool
	Audio      bool
	Transcript bool
	Translated bool
	Subtitle   bool
	DocEn      bool
	DocZh      bool
}

// Stage reports the first stage whose output is missing.
func (p Presence) Stage() Stage {
	switch {
	case !p.Video:
		return StageDownloading
	case !p.Audio:
		return StageConverting
	case !p.Transcript:
		return StageTranscribing
	case !p.Translated:
		return StageTranslating
	case !p.Subtitle:
		return StageGeneratingSubtitle
	case !p.DocEn || !p.DocZh:
		return StageGeneratingDocument
	default:
		return StageCompleted
	}
}
