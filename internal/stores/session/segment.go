package session

// Speaker identifies which participant produced a transcript segment
type Speaker string

const (
	SpeakerAgent Speaker = "agent"
	SpeakerUser  Speaker = "user"
)

// Kind classifies a timeline entry
type Kind string

const (
	KindAgent  Kind = "agent"
	KindUser   Kind = "user"
	KindSystem Kind = "system"
)

// Kind returns the timeline entry kind for segments from this speaker
func (s Speaker) Kind() Kind {
	if s == SpeakerAgent {
		return KindAgent
	}
	return KindUser
}

// Valid reports whether the speaker is one of the known participants
func (s Speaker) Valid() bool {
	return s == SpeakerAgent || s == SpeakerUser
}

// Segment is one utterance fragment from one transcript source. Sources may
// re-emit a segment with the same ID as the utterance grows; the latest
// revision replaces earlier ones.
type Segment struct {
	ID            string  `json:"id"`
	Speaker       Speaker `json:"speaker"`
	Text          string  `json:"text"`
	FirstReceived int64   `json:"first_received"` // logical arrival clock, totally ordered within a source
}

// Entry is one displayable unit in the merged conversation timeline
type Entry struct {
	ID          string `json:"id"`
	Kind        Kind   `json:"kind"`
	Text        string `json:"text"`
	OrderingKey int64  `json:"ordering_key"`
}
