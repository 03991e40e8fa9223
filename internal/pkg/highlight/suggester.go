package highlight

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"strings"

	"github.com/airenas/go-app/pkg/goapp"
	"github.com/faridopz/repurpose-smart/internal/pkg/llm/api"
	"github.com/faridopz/repurpose-smart/internal/pkg/persistence"
	"github.com/faridopz/repurpose-smart/internal/pkg/status"
	"github.com/faridopz/repurpose-smart/internal/pkg/utils"
	"github.com/google/uuid"
	"github.com/xeipuuv/gojsonschema"
)

const (
	maxSentimentPeaks = 5
	maxQuoteClips     = 3
	maxPeakDuration   = 60
)

const clipsSchema = `{
	"type": "object",
	"properties": {
		"clips": {
			"type": "array",
			"minItems": 1,
			"items": {
				"type": "object",
				"properties": {
					"start_time": {"type": "number", "minimum": 0},
					"end_time": {"type": "number"},
					"title": {"type": "string"},
					"category": {"type": "string", "enum": ["Motivational", "Insightful", "Funny", "Educational", "Story", "Quote"]},
					"reason": {"type": "string"},
					"transcript_excerpt": {"type": "string"}
				},
				"required": ["start_time", "end_time", "title", "category", "reason", "transcript_excerpt"]
			}
		}
	},
	"required": ["clips"]
}`

const smartSystemPrompt = `You are an expert video editor who identifies the most engaging and valuable moments from transcripts.
Analyze the transcript and identify 3-7 key moments that would make excellent short video clips (30-90 seconds each).

Focus on:
- Emotional peaks (inspiration, humor, insight)
- Key takeaways or actionable advice
- Quotable moments
- Story highlights
- Surprising facts or revelations
`

// Suggester derives candidate clip ranges from a transcript
type Suggester struct {
	completer api.Completer
	schema    *gojsonschema.Schema
}

// NewSuggester creates highlight suggester
func NewSuggester(completer api.Completer) (*Suggester, error) {
	if completer == nil {
		return nil, fmt.Errorf("no completer")
	}
	schema, err := gojsonschema.NewSchema(gojsonschema.NewStringLoader(clipsSchema))
	if err != nil {
		return nil, fmt.Errorf("can't compile clips schema: %w", err)
	}
	return &Suggester{completer: completer, schema: schema}, nil
}

// Heuristic proposes clips from sentiment peaks and extracted quotes.
// No AI call is made. Repeated calls produce new rows each time.
func Heuristic(tr *persistence.Transcript) []*persistence.Clip {
	var res []*persistence.Clip
	fullText := utils.FromSQLStr(tr.FullText)

	spans := make([]persistence.SentimentSpan, len(tr.Sentiment))
	copy(spans, tr.Sentiment)
	sort.SliceStable(spans, func(i, j int) bool { return spans[i].Score > spans[j].Score })
	for i, s := range spans {
		if i >= maxSentimentPeaks {
			break
		}
		duration := s.End - s.Start
		if duration > maxPeakDuration {
			duration = maxPeakDuration
		}
		res = append(res, &persistence.Clip{ID: uuid.NewString(), MediaID: tr.MediaID, OwnerID: tr.OwnerID,
			StartTime: s.Start, EndTime: s.Start + duration,
			Reason:  fmt.Sprintf("High %s sentiment (score: %.2f)", s.Sentiment, s.Score),
			Excerpt: excerpt(fullText, s.Start, s.End),
			Tags:    []string{s.Sentiment, "auto-suggested"},
			Status:  status.ClipSuggested})
	}
	for i, q := range tr.Quotes {
		if i >= maxQuoteClips {
			break
		}
		// placeholder timings, not matched to the actual quote position
		res = append(res, &persistence.Clip{ID: uuid.NewString(), MediaID: tr.MediaID, OwnerID: tr.OwnerID,
			StartTime: float64(i * 60), EndTime: float64(i*60 + 30),
			Reason: "Key quote", Excerpt: q,
			Tags:   []string{"quote", "auto-suggested"},
			Status: status.ClipSuggested})
	}
	return res
}

type rawClip struct {
	StartTime float64 `json:"start_time"`
	EndTime   float64 `json:"end_time"`
	Title     string  `json:"title"`
	Category  string  `json:"category"`
	Reason    string  `json:"reason"`
	Excerpt   string  `json:"transcript_excerpt"`
}

type rawClips struct {
	Clips []rawClip `json:"clips"`
}

// Smart asks the generative service for clip suggestions via a forced
// tool call and validates the returned ranges
func (s *Suggester) Smart(ctx context.Context, tr *persistence.Transcript, clipContext string) ([]*persistence.Clip, error) {
	sb := strings.Builder{}
	sb.WriteString(smartSystemPrompt)
	if clipContext != "" {
		sb.WriteString(fmt.Sprintf("\nUser context: %s\n", clipContext))
	}
	sj, _ := json.Marshal(tr.Sentiment)
	kj, _ := json.Marshal(tr.Keywords)
	user := fmt.Sprintf("Transcript:\n\n%s\n\nSentiment timeline: %s\n\nKeywords: %s",
		utils.FromSQLStr(tr.FullText), string(sj), string(kj))

	r, err := s.completer.Complete(ctx, &api.Prompt{System: sb.String(), User: user,
		Tool: &api.Tool{Name: "suggest_clips",
			Description: "Return 3-7 video clip suggestions from transcript",
			Parameters:  json.RawMessage(clipsSchema)}})
	if err != nil {
		return nil, err
	}
	if len(r.ToolArgs) == 0 {
		return nil, fmt.Errorf("no clip suggestions in response")
	}
	clips, err := s.parse(r.ToolArgs)
	if err != nil {
		return nil, err
	}
	goapp.Log.Info().Int("count", len(clips)).Msg("clips identified")
	res := make([]*persistence.Clip, 0, len(clips))
	for _, c := range clips {
		if c.EndTime <= c.StartTime {
			return nil, fmt.Errorf("wrong clip range [%f, %f]", c.StartTime, c.EndTime)
		}
		tags := []string{strings.ToLower(c.Category), "ai-generated"}
		if clipContext != "" {
			tags = append(tags, strings.ToLower(clipContext))
		}
		res = append(res, &persistence.Clip{ID: uuid.NewString(), MediaID: tr.MediaID, OwnerID: tr.OwnerID,
			StartTime: c.StartTime, EndTime: c.EndTime,
			Reason: c.Title, Excerpt: c.Excerpt, Tags: tags,
			Status: status.ClipSuggested})
	}
	return res, nil
}

func (s *Suggester) parse(args json.RawMessage) ([]rawClip, error) {
	vr, err := s.schema.Validate(gojsonschema.NewBytesLoader(args))
	if err != nil {
		return nil, fmt.Errorf("can't validate suggestions: %w", err)
	}
	if !vr.Valid() {
		msgs := make([]string, 0, len(vr.Errors()))
		for _, e := range vr.Errors() {
			msgs = append(msgs, e.String())
		}
		return nil, fmt.Errorf("unexpected suggestion format: %s", strings.Join(msgs, "; "))
	}
	var res rawClips
	if err := json.Unmarshal(args, &res); err != nil {
		return nil, fmt.Errorf("can't unmarshal suggestions: %w", err)
	}
	return res.Clips, nil
}

// excerpt approximates the spoken text for a time range.
// The 10 chars per second ratio mirrors the quick highlights flow.
func excerpt(text string, start, end float64) string {
	if text == "" {
		return ""
	}
	from := int(start * 10)
	to := int(end * 10)
	if from < 0 {
		from = 0
	}
	if from >= len(text) {
		return ""
	}
	if to > len(text) {
		to = len(text)
	}
	if to <= from {
		return ""
	}
	return text[from:to]
}
