package orchestrator

import "time"

// Segment is one transcript entry as written by the transcription step.
type Segment struct {
	ID    string  `json:"id,omitempty"`
	Start float64 `json:"start"` // sec
	End   float64 `json:"end"`   // sec
	Text  string  `json:"text"`
	Spk   string  `json:"speaker"` // "SPEAKER_0"...
}

// Stats aggregates speaking behaviour over a whole transcript.
type Stats struct {
	Duration      float64            `json:"duration"`
	SpeakingShare map[string]float64 `json:"speaking_share"` // per speaker, sums to 1
	Utterances    map[string]int     `json:"utterances_per_speaker"`
	OverlapRate   float64            `json:"overlap_rate"`
}

// Summary is written beside a dumped corpus.
type Summary struct {
	CorpusID      string    `json:"corpus_id"`
	Transcript    string    `json:"transcript"`
	GeneratedAt   time.Time `json:"generated_at"`
	Parsed        bool      `json:"parsed"`
	NumSpeakers   int       `json:"num_speakers"`
	NumUtterances int       `json:"num_utterances"`
	Stats
}
