package thumbnail

import (
	"encoding/json"
	"math"
	"strconv"
	"strings"

	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// Unknown is the sentinel for out-of-vocabulary values.
const Unknown = "unknown"

const (
	maxHookElements = 10
	maxPeopleCount  = 20
)

// Closed vocabularies for the categorical fields.
var (
	VisualStyles = []string{
		"talking_head", "lifestyle", "tutorial", "review", "product_showcase",
		"comedy_skit", "vlog", "before_after", "text_focused", "unknown",
	}
	Settings = []string{
		"indoor", "outdoor", "bedroom", "kitchen", "office", "studio",
		"street", "nature", "store", "gym", "car", "unknown",
	}
	CameraAngles = []string{
		"close_up", "medium_shot", "wide_shot", "overhead", "selfie",
		"low_angle", "high_angle", "pov", "unknown",
	}
	ColorSchemes = []string{
		"warm", "cool", "neutral", "vibrant", "pastel", "monochrome",
		"dark", "bright", "unknown",
	}
	HookElements = []string{
		"text_overlay", "surprised_expression", "face_closeup", "product_closeup",
		"before_after", "arrow_or_circle", "emoji", "price_or_number", "question",
		"food", "transformation", "bright_colors",
	}
)

// rawAnalysis is the JSON object the vision model is asked to return. Each
// field tolerates a wrongly typed value so one bad field does not discard
// the rest of the answer.
type rawAnalysis struct {
	VisualStyle  looseString  `json:"visual_style"`
	Setting      looseString  `json:"setting"`
	CameraAngle  looseString  `json:"camera_angle"`
	ColorScheme  looseString  `json:"color_scheme"`
	PeopleCount  looseNumber  `json:"people_count"`
	HookElements looseStrings `json:"hook_elements"`
	Confidence   looseNumber  `json:"confidence_score"`
}

// looseString keeps JSON strings and decodes anything else as empty, which
// normalizes to Unknown.
type looseString string

func (s *looseString) UnmarshalJSON(data []byte) error {
	var v string
	if json.Unmarshal(data, &v) != nil {
		*s = ""
		return nil
	}
	*s = looseString(v)
	return nil
}

// looseNumber accepts JSON numbers and numeric strings. Anything else is 0.
type looseNumber float64

func (n *looseNumber) UnmarshalJSON(data []byte) error {
	var f float64
	if json.Unmarshal(data, &f) == nil {
		*n = looseNumber(f)
		return nil
	}
	var s string
	if json.Unmarshal(data, &s) == nil {
		if f, err := strconv.ParseFloat(strings.TrimSpace(s), 64); err == nil {
			*n = looseNumber(f)
			return nil
		}
	}
	*n = 0
	return nil
}

// looseStrings keeps the string members of an array. A bare string is a
// one-element list.
type looseStrings []string

func (l *looseStrings) UnmarshalJSON(data []byte) error {
	var single string
	if json.Unmarshal(data, &single) == nil {
		*l = looseStrings{single}
		return nil
	}
	var items []json.RawMessage
	if json.Unmarshal(data, &items) != nil {
		*l = nil
		return nil
	}
	out := make(looseStrings, 0, len(items))
	for _, item := range items {
		var v string
		if json.Unmarshal(item, &v) == nil {
			out = append(out, v)
		}
	}
	*l = out
	return nil
}

// normalize maps a raw model answer onto the closed vocabularies.
func normalize(raw rawAnalysis) *models.ThumbnailAnalysis {
	return &models.ThumbnailAnalysis{
		VisualStyle:     pick(string(raw.VisualStyle), VisualStyles),
		Setting:         pick(string(raw.Setting), Settings),
		CameraAngle:     pick(string(raw.CameraAngle), CameraAngles),
		ColorScheme:     pick(string(raw.ColorScheme), ColorSchemes),
		PeopleCount:     clampPeople(float64(raw.PeopleCount)),
		HookElements:    filterHooks(raw.HookElements),
		ConfidenceScore: math.Max(0, math.Min(1, float64(raw.Confidence))),
		PromptVersion:   PromptVersion,
	}
}

// pick matches value case-insensitively, treating spaces and hyphens as
// underscores.
func pick(value string, vocabulary []string) string {
	v := canonical(value)
	for _, allowed := range vocabulary {
		if v == allowed {
			return allowed
		}
	}
	return Unknown
}

func filterHooks(values []string) []string {
	seen := make(map[string]bool, len(values))
	out := make([]string, 0, len(values))
	for _, value := range values {
		v := pick(value, HookElements)
		if v == Unknown || seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
		if len(out) == maxHookElements {
			break
		}
	}
	return out
}

func clampPeople(n float64) int {
	if math.IsNaN(n) || n < 0 {
		return 0
	}
	if n > maxPeopleCount {
		return maxPeopleCount
	}
	return int(math.Round(n))
}

func canonical(s string) string {
	s = strings.ToLower(strings.TrimSpace(s))
	s = strings.NewReplacer(" ", "_", "-", "_").Replace(s)
	return s
}
