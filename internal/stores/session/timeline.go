package session

import (
	"sort"

	"github.com/google/uuid"
)

// sourceSegment tracks a segment together with its position in the combined
// arrival order, used for stable tie-breaking
type sourceSegment struct {
	Segment
	arrival int64
}

// Timeline holds the per-source transcript streams and system announcements
// for one session and produces the merged, ordered conversation view.
//
// Each source stream is kept sorted by FirstReceived as segments are
// observed, so producing the merged view is a linear walk over already-sorted
// tails rather than a full re-sort. The result is identical to a from-scratch
// recompute over the same inputs.
type Timeline struct {
	agent  []sourceSegment
	user   []sourceSegment
	system []sourceSegment

	index    map[Speaker]map[string]int
	arrivals int64
}

// NewTimeline creates an empty timeline
func NewTimeline() *Timeline {
	return &Timeline{
		index: map[Speaker]map[string]int{
			SpeakerAgent: {},
			SpeakerUser:  {},
		},
	}
}

// Observe records a segment from one of the transcript sources. A segment ID
// already seen for the same speaker is a revision: the text is replaced in
// place and the segment keeps the position of its first observation.
func (t *Timeline) Observe(seg Segment) {
	stream := t.stream(seg.Speaker)

	if i, ok := t.index[seg.Speaker][seg.ID]; ok {
		(*stream)[i].Text = seg.Text
		return
	}

	src := sourceSegment{Segment: seg, arrival: t.arrivals}
	t.arrivals++

	// Sources emit in timestamp order, so this is almost always an append.
	// Guard against out-of-order delivery with a sorted insert.
	n := len(*stream)
	at := sort.Search(n, func(i int) bool {
		return (*stream)[i].FirstReceived > seg.FirstReceived
	})

	*stream = append(*stream, sourceSegment{})
	copy((*stream)[at+1:], (*stream)[at:])
	(*stream)[at] = src

	// Reindex everything at or after the insertion point
	for i := at; i < len(*stream); i++ {
		t.index[seg.Speaker][(*stream)[i].ID] = i
	}
}

// AppendSystem inserts a system announcement at the current logical end of
// the timeline and returns the created entry. The ordering key is chosen
// above every key observed so far, so transcript segments that arrive later
// with larger timestamps sort after it and earlier ones stay before it.
func (t *Timeline) AppendSystem(text string) Entry {
	key := t.maxKey() + 1
	return t.AppendSystemAt(text, key)
}

// AppendSystemAt inserts a system announcement with an explicit ordering key
func (t *Timeline) AppendSystemAt(text string, key int64) Entry {
	entry := Entry{
		ID:          uuid.NewString(),
		Kind:        KindSystem,
		Text:        text,
		OrderingKey: key,
	}

	t.system = append(t.system, sourceSegment{
		Segment: Segment{ID: entry.ID, Text: text, FirstReceived: key},
		arrival: t.arrivals,
	})
	t.arrivals++

	return entry
}

// RestoreSystem re-inserts a previously created system entry, preserving its
// identifier and ordering key. Used when rebuilding a timeline from storage.
func (t *Timeline) RestoreSystem(entry Entry) {
	t.system = append(t.system, sourceSegment{
		Segment: Segment{ID: entry.ID, Text: entry.Text, FirstReceived: entry.OrderingKey},
		arrival: t.arrivals,
	})
	t.arrivals++
}

// Len returns the number of entries the merged timeline would contain
func (t *Timeline) Len() int {
	return len(t.agent) + len(t.user) + len(t.system)
}

// Empty reports whether the conversation has any entries at all
func (t *Timeline) Empty() bool {
	return t.Len() == 0
}

// Merge produces the ordered conversation view: all transcript segments and
// system entries sorted non-decreasing by ordering key. Ties between the
// agent and user streams resolve agent-first, matching the relative order of
// the combined input; ties between a transcript segment and a system entry
// keep the transcript segment first. Calling Merge repeatedly on the same
// state yields identical output.
func (t *Timeline) Merge() []Entry {
	transcript := mergeStreams(t.agent, t.user)

	// Fold system entries in behind transcript entries of equal key
	out := make([]Entry, 0, len(transcript)+len(t.system))
	i, j := 0, 0
	for i < len(transcript) && j < len(t.system) {
		if transcript[i].FirstReceived <= t.system[j].FirstReceived {
			out = append(out, transcript[i].toEntry())
			i++
		} else {
			out = append(out, t.system[j].toSystemEntry())
			j++
		}
	}
	for ; i < len(transcript); i++ {
		out = append(out, transcript[i].toEntry())
	}
	for ; j < len(t.system); j++ {
		out = append(out, t.system[j].toSystemEntry())
	}

	return out
}

// Merge combines two independently produced segment sequences, each sorted by
// FirstReceived, into one ordered timeline. Repeated segment IDs within a
// sequence are revisions and collapse to a single entry bearing the latest
// text at the position of the first occurrence. The merge is a pure function
// of its inputs.
func Merge(agentSegments, userSegments []Segment) []Entry {
	agent := prepare(agentSegments, SpeakerAgent)
	user := prepare(userSegments, SpeakerUser)

	merged := mergeStreams(agent, user)

	out := make([]Entry, 0, len(merged))
	for _, s := range merged {
		out = append(out, s.toEntry())
	}
	return out
}

// prepare collapses revisions and normalizes ordering for one source sequence
func prepare(segments []Segment, speaker Speaker) []sourceSegment {
	index := make(map[string]int, len(segments))
	collapsed := make([]sourceSegment, 0, len(segments))

	for _, seg := range segments {
		seg.Speaker = speaker
		if i, ok := index[seg.ID]; ok {
			collapsed[i].Text = seg.Text
			continue
		}
		index[seg.ID] = len(collapsed)
		collapsed = append(collapsed, sourceSegment{Segment: seg, arrival: int64(len(collapsed))})
	}

	sort.SliceStable(collapsed, func(i, j int) bool {
		return collapsed[i].FirstReceived < collapsed[j].FirstReceived
	})

	return collapsed
}

// mergeStreams performs a two-pointer merge of the sorted agent and user
// streams; the agent stream wins ties
func mergeStreams(agent, user []sourceSegment) []sourceSegment {
	out := make([]sourceSegment, 0, len(agent)+len(user))
	i, j := 0, 0
	for i < len(agent) && j < len(user) {
		if agent[i].FirstReceived <= user[j].FirstReceived {
			out = append(out, agent[i])
			i++
		} else {
			out = append(out, user[j])
			j++
		}
	}
	out = append(out, agent[i:]...)
	out = append(out, user[j:]...)
	return out
}

func (s sourceSegment) toEntry() Entry {
	return Entry{
		ID:          s.ID,
		Kind:        s.Speaker.Kind(),
		Text:        s.Text,
		OrderingKey: s.FirstReceived,
	}
}

func (s sourceSegment) toSystemEntry() Entry {
	return Entry{
		ID:          s.ID,
		Kind:        KindSystem,
		Text:        s.Text,
		OrderingKey: s.FirstReceived,
	}
}

func (t *Timeline) stream(speaker Speaker) *[]sourceSegment {
	if speaker == SpeakerAgent {
		return &t.agent
	}
	return &t.user
}

func (t *Timeline) maxKey() int64 {
	var max int64
	for _, stream := range [][]sourceSegment{t.agent, t.user, t.system} {
		if n := len(stream); n > 0 && stream[n-1].FirstReceived > max {
			max = stream[n-1].FirstReceived
		}
	}
	return max
}
