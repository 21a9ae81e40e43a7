package transcript

import (
	"bytes"
	"encoding/json"
	"encoding/xml"
	"errors"
	"fmt"
	"html"
	"io"
	"regexp"
	"strconv"
	"strings"

	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// defaultSRVDuration applies to srv cues without a dur attribute.
const defaultSRVDuration = 3.0

var (
	tagPattern        = regexp.MustCompile(`<[^>]+>`)
	musicPattern      = regexp.MustCompile(`♪[^♪]*♪`)
	bracketPattern    = regexp.MustCompile(`\[[^\]]*\]`)
	parenPattern      = regexp.MustCompile(`\([^)]*\)`)
	whitespacePattern = regexp.MustCompile(`\s+`)
	blockSeparator    = regexp.MustCompile(`\n\s*\n`)
)

// ErrMalformed marks content whose structure or timestamps cannot be read.
var ErrMalformed = errors.New("malformed subtitle content")

// Parse decodes content in the given format into ordered segments with
// cleaned text. Cues whose text is empty after cleaning are skipped.
func Parse(format string, content []byte) ([]models.TranscriptSegment, error) {
	switch strings.ToLower(format) {
	case FormatVTT, FormatSRT:
		return parseCues(content)
	case FormatJSON3:
		return parseJSON3(content)
	case FormatSRV1, FormatSRV2, FormatSRV3, FormatTTML:
		return parseTimedXML(content)
	default:
		return nil, fmt.Errorf("unsupported subtitle format %q", format)
	}
}

// CleanText strips markup, unescapes entities, removes sound descriptions
// and collapses whitespace.
func CleanText(text string) string {
	if text == "" {
		return ""
	}
	text = tagPattern.ReplaceAllString(text, " ")
	text = html.UnescapeString(text)
	text = musicPattern.ReplaceAllString(text, " ")
	text = bracketPattern.ReplaceAllString(text, " ")
	text = parenPattern.ReplaceAllString(text, " ")
	text = strings.ReplaceAll(text, "♪", " ")
	text = whitespacePattern.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}

// parseCues reads WebVTT and SRT, which share the "start --> end" cue line.
// Header, NOTE and STYLE blocks carry no arrow and are ignored.
func parseCues(content []byte) ([]models.TranscriptSegment, error) {
	text := strings.ReplaceAll(string(content), "\r\n", "\n")
	text = strings.TrimPrefix(text, "\ufeff")

	var segments []models.TranscriptSegment
	for _, block := range blockSeparator.Split(text, -1) {
		lines := strings.Split(strings.TrimSpace(block), "\n")

		timing := -1
		for i, line := range lines {
			if strings.Contains(line, "-->") {
				timing = i
				break
			}
		}
		if timing == -1 {
			continue
		}

		startRaw, endRaw, _ := strings.Cut(lines[timing], "-->")
		start, err := parseClock(startRaw)
		if err != nil {
			return nil, err
		}
		// cue settings such as "align:start" follow the end time
		endFields := strings.Fields(endRaw)
		if len(endFields) == 0 {
			return nil, fmt.Errorf("%w: cue without end time", ErrMalformed)
		}
		end, err := parseClock(endFields[0])
		if err != nil {
			return nil, err
		}

		cleaned := CleanText(strings.Join(lines[timing+1:], " "))
		if cleaned == "" {
			continue
		}
		segments = append(segments, models.TranscriptSegment{Start: start, End: end, Text: cleaned})
	}
	return segments, nil
}

// parseClock accepts HH:MM:SS.mmm, MM:SS.mmm and the SRT comma form.
func parseClock(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if value == "" {
		return 0, fmt.Errorf("%w: empty timestamp", ErrMalformed)
	}
	value = strings.ReplaceAll(value, ",", ".")

	parts := strings.Split(value, ":")
	if len(parts) < 2 || len(parts) > 3 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}

	var hours, minutes int
	var err error
	if len(parts) == 3 {
		if hours, err = strconv.Atoi(parts[0]); err != nil {
			return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
		}
		parts = parts[1:]
	}
	if minutes, err = strconv.Atoi(parts[0]); err != nil {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}
	seconds, err := strconv.ParseFloat(parts[1], 64)
	if err != nil || hours < 0 || minutes < 0 || minutes >= 60 || seconds < 0 || seconds >= 60 {
		return 0, fmt.Errorf("%w: invalid timestamp %q", ErrMalformed, value)
	}
	return float64(hours*3600+minutes*60) + seconds, nil
}

type json3Document struct {
	Events []struct {
		StartMs    *int64 `json:"tStartMs"`
		DurationMs *int64 `json:"dDurationMs"`
		Segs       []struct {
			UTF8 string `json:"utf8"`
		} `json:"segs"`
	} `json:"events"`
}

func parseJSON3(content []byte) ([]models.TranscriptSegment, error) {
	var doc json3Document
	if err := json.Unmarshal(content, &doc); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
	}

	var segments []models.TranscriptSegment
	for _, ev := range doc.Events {
		if ev.StartMs == nil || ev.DurationMs == nil {
			continue
		}
		var sb strings.Builder
		for _, seg := range ev.Segs {
			sb.WriteString(seg.UTF8)
		}
		cleaned := CleanText(sb.String())
		if cleaned == "" {
			continue
		}
		start := float64(*ev.StartMs) / 1000
		segments = append(segments, models.TranscriptSegment{
			Start: start,
			End:   start + float64(*ev.DurationMs)/1000,
			Text:  cleaned,
		})
	}
	return segments, nil
}

// parseTimedXML handles the XML families: srv1 (<text start dur>), srv2
// (<text t d> in ms), srv3 (<p t d> in ms) and TTML (<p begin end|dur>).
func parseTimedXML(content []byte) ([]models.TranscriptSegment, error) {
	dec := xml.NewDecoder(bytes.NewReader(content))
	dec.Strict = false
	dec.Entity = xml.HTMLEntity

	var (
		segments []models.TranscriptSegment
		cue      *xmlCue
		depth    int
		text     strings.Builder
	)

	for {
		tok, err := dec.Token()
		if errors.Is(err, io.EOF) {
			break
		}
		if err != nil {
			return nil, fmt.Errorf("%w: %v", ErrMalformed, err)
		}

		switch t := tok.(type) {
		case xml.StartElement:
			if cue != nil {
				depth++
				if t.Name.Local == "br" {
					text.WriteString(" ")
				}
				continue
			}
			if t.Name.Local != "text" && t.Name.Local != "p" {
				continue
			}
			c, ok, err := newXMLCue(t.Attr)
			if err != nil {
				return nil, err
			}
			if ok {
				cue = &c
				depth = 0
				text.Reset()
			}
		case xml.CharData:
			if cue != nil {
				text.Write(t)
			}
		case xml.EndElement:
			if cue == nil {
				continue
			}
			if depth > 0 {
				depth--
				text.WriteString(" ")
				continue
			}
			if cleaned := CleanText(text.String()); cleaned != "" {
				segments = append(segments, models.TranscriptSegment{Start: cue.start, End: cue.end, Text: cleaned})
			}
			cue = nil
		}
	}
	return segments, nil
}

type xmlCue struct {
	start float64
	end   float64
}

func newXMLCue(attrs []xml.Attr) (xmlCue, bool, error) {
	values := make(map[string]string, len(attrs))
	for _, a := range attrs {
		values[a.Name.Local] = a.Value
	}

	switch {
	case values["begin"] != "":
		start, err := parseOffset(values["begin"])
		if err != nil {
			return xmlCue{}, false, err
		}
		if values["end"] != "" {
			end, err := parseOffset(values["end"])
			if err != nil {
				return xmlCue{}, false, err
			}
			return xmlCue{start: start, end: end}, true, nil
		}
		dur := defaultSRVDuration
		if values["dur"] != "" {
			if dur, err = parseOffset(values["dur"]); err != nil {
				return xmlCue{}, false, err
			}
		}
		return xmlCue{start: start, end: start + dur}, true, nil

	case values["start"] != "":
		start, err := strconv.ParseFloat(values["start"], 64)
		if err != nil {
			return xmlCue{}, false, fmt.Errorf("%w: invalid start %q", ErrMalformed, values["start"])
		}
		dur := defaultSRVDuration
		if values["dur"] != "" {
			if dur, err = strconv.ParseFloat(values["dur"], 64); err != nil {
				return xmlCue{}, false, fmt.Errorf("%w: invalid dur %q", ErrMalformed, values["dur"])
			}
		}
		return xmlCue{start: start, end: start + dur}, true, nil

	case values["t"] != "":
		startMs, err := strconv.ParseInt(values["t"], 10, 64)
		if err != nil {
			return xmlCue{}, false, fmt.Errorf("%w: invalid t %q", ErrMalformed, values["t"])
		}
		durMs := int64(defaultSRVDuration * 1000)
		if values["d"] != "" {
			if durMs, err = strconv.ParseInt(values["d"], 10, 64); err != nil {
				return xmlCue{}, false, fmt.Errorf("%w: invalid d %q", ErrMalformed, values["d"])
			}
		}
		start := float64(startMs) / 1000
		return xmlCue{start: start, end: start + float64(durMs)/1000}, true, nil
	}
	return xmlCue{}, false, nil
}

// parseOffset reads TTML clock times (HH:MM:SS.fff) and offset times
// ("1.5s", "1500ms", "2m", "1h").
func parseOffset(value string) (float64, error) {
	value = strings.TrimSpace(value)
	if strings.Contains(value, ":") {
		return parseClock(value)
	}

	multiplier := 1.0
	switch {
	case strings.HasSuffix(value, "ms"):
		value, multiplier = strings.TrimSuffix(value, "ms"), 0.001
	case strings.HasSuffix(value, "s"):
		value = strings.TrimSuffix(value, "s")
	case strings.HasSuffix(value, "m"):
		value, multiplier = strings.TrimSuffix(value, "m"), 60
	case strings.HasSuffix(value, "h"):
		value, multiplier = strings.TrimSuffix(value, "h"), 3600
	}
	n, err := strconv.ParseFloat(value, 64)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%w: invalid time offset %q", ErrMalformed, value)
	}
	return n * multiplier, nil
}
