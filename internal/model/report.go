package model

import (
	"strconv"
	"time"
)

// Report represents the complete result of one repetitiveness analysis
type Report struct {
	RunID       string    `json:"run_id"`       // Unique per analysis run
	Task        string    `json:"task"`         // "repetitiveness checking" or "version comparison"
	GeneratedAt time.Time `json:"generated_at"` // When the analysis finished

	Settings Settings `json:"settings"` // Effective analysis options

	Repetitiveness float64 `json:"repetitiveness"` // fiducial / reduced text length

	Files   []FileStats `json:"files"`             // Per input file
	Phrases []PhraseRow `json:"phrases"`           // Ranked by weight, highest first
	Marks   []FileMarks `json:"marks,omitempty"`   // Claimed spans per file for highlighting
	Signals []Signal    `json:"signals,omitempty"` // Diagnostic signals

	Diagnostics Diagnostics `json:"diagnostics"`
}

// Settings echoes the options the report was produced with
type Settings struct {
	Model            string `json:"model"`             // Short model name, e.g. "2005"
	ModelDescription string `json:"model_description"` // Human-readable model formula
	Fuzziness        int    `json:"fuzziness"`
	FuzzyLabel       string `json:"fuzzy_label"` // "sentence", "no limit" or "NN%"
	MinLength        int    `json:"min_length"`
	MaxLength        int    `json:"max_length"` // 0 means unlimited
	Passes           int    `json:"passes"`
	CaseSensitive    bool   `json:"case_sensitive"`
	OverlapSearch    bool   `json:"overlap_search"`
	Morphemes        bool   `json:"morphemes"`
	Mode             string `json:"mode"` // "single" or "cross"
}

// LengthRange renders the words/phrase range as printed in the preamble
func (s Settings) LengthRange() string {
	if s.MaxLength == 0 {
		return strconv.Itoa(s.MinLength) + " - unlimited"
	}
	return strconv.Itoa(s.MinLength) + " - " + strconv.Itoa(s.MaxLength)
}

// FileStats holds per-file token accounting
type FileStats struct {
	Name               string  `json:"name"`
	Tokens             int     `json:"tokens"`
	SentenceSeparators int     `json:"sentence_separators"`
	Unmatched          int     `json:"unmatched"`
	Alikeness          float64 `json:"alikeness"` // 1 - unmatched/tokens
}

// PhraseRow is one ranked phrase
type PhraseRow struct {
	Rank                      int      `json:"rank"`
	Text                      string   `json:"text"`
	Words                     []string `json:"words"`
	Length                    int      `json:"length"`
	Count                     int      `json:"count"`      // Raw positional matches
	RealCount                 int      `json:"real_count"` // After overlap resolution
	Weight                    float64  `json:"weight"`
	AccumulatedRepetitiveness float64  `json:"accumulated_repetitiveness"`
}

// FileMarks lists the claimed spans of one file
type FileMarks struct {
	File  string     `json:"file"`
	Spans []MarkSpan `json:"spans"`
}

// MarkSpan is one claimed phrase occurrence as byte offsets into the source (end exclusive)
type MarkSpan struct {
	Start int64 `json:"start"`
	End   int64 `json:"end"`
}

// Diagnostics carries corpus statistics and the rank/length regression
type Diagnostics struct {
	Tokens               int        `json:"tokens"`
	Types                int        `json:"types"`
	SentenceSeparators   int        `json:"sentence_separators"`
	LowestFrequency      int        `json:"lowest_frequency"`
	LowestFrequencyType  string     `json:"lowest_frequency_type"`
	HighestFrequency     int        `json:"highest_frequency"`
	HighestFrequencyType string     `json:"highest_frequency_type"`
	AverageTypeFrequency float64    `json:"average_type_frequency"`
	Phrases              int        `json:"phrases"`
	FiducialTextLength   int        `json:"fiducial_text_length"`
	ReducedTextLength    int        `json:"reduced_text_length"`
	Unmatched            int        `json:"unmatched"`
	Regression           Regression `json:"regression"`
}

// Regression is the least-squares fit phrase length = b + m * log(phrase #)
type Regression struct {
	Defined   bool    `json:"defined"`
	Slope     float64 `json:"slope"`
	Intercept float64 `json:"intercept"`
	Points    int     `json:"points"`
	Formula   string  `json:"formula"`
}

// Signal represents a diagnostic signal with transparent data
type Signal struct {
	Type        SignalType             `json:"type"`           // Signal classification
	Severity    SignalSeverity         `json:"severity"`       // info, warning, critical
	Description string                 `json:"description"`    // Human-readable description
	Data        map[string]interface{} `json:"data,omitempty"` // Inputs and formulas
}

// SignalType classifies the type of diagnostic signal
type SignalType string

const (
	SignalRepetitiveness SignalType = "repetitiveness" // Overall text inflation
	SignalDominantPhrase SignalType = "dominant_phrase" // One phrase covers much of the text
	SignalLowAlikeness   SignalType = "low_alikeness"   // A compared version shares little
	SignalRankLength     SignalType = "rank_length"     // Regression of length on rank
)

// SignalSeverity indicates the importance of the signal
type SignalSeverity string

const (
	SeverityInfo     SignalSeverity = "info"
	SeverityWarning  SignalSeverity = "warning"
	SeverityCritical SignalSeverity = "critical"
)
