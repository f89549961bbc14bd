package session

import "time"

// Stage is the pipeline position a session has reached. Stages only move
// forward; re-running a stage overwrites its outputs but never regresses.
type Stage string

const (
	StageCreated   Stage = "created"
	StageExtracted Stage = "extracted"
	StagePreviewed Stage = "previewed"
	StageColorized Stage = "colorized"
)

var stageRank = map[Stage]int{
	StageCreated:   0,
	StageExtracted: 1,
	StagePreviewed: 2,
	StageColorized: 3,
}

// AtLeast reports whether s has reached stage o.
func (s Stage) AtLeast(o Stage) bool { return stageRank[s] >= stageRank[o] }

// Advance returns the later of the two stages.
func (s Stage) Advance(o Stage) Stage {
	if stageRank[o] > stageRank[s] {
		return o
	}
	return s
}

// Session is one client's pipeline state: which stage it has reached and
// the artifact references each stage produced.
type Session struct {
	ID            string    `json:"id"`
	Stage         Stage     `json:"stage"`
	ExtractedRefs []string  `json:"extracted_refs,omitempty"`
	PreviewRef    string    `json:"preview_ref,omitempty"`
	PreviewK      int       `json:"preview_k,omitempty"`
	ColorizedRefs []string  `json:"colorized_refs,omitempty"`
	CreatedAt     time.Time `json:"created_at"`
	UpdatedAt     time.Time `json:"updated_at"`
}

// Owns reports whether ref belongs to this session's namespace, i.e. was
// produced by one of its stages.
func (s *Session) Owns(ref string) bool {
	if ref == s.PreviewRef && ref != "" {
		return true
	}
	for _, r := range s.ExtractedRefs {
		if r == ref {
			return true
		}
	}
	for _, r := range s.ColorizedRefs {
		if r == ref {
			return true
		}
	}
	return false
}
