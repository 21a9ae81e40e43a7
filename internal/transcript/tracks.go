// Package transcript selects, downloads, parses and scores subtitle tracks.
package transcript

import (
	"sort"
	"strings"

	"golang.org/x/text/language"

	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

// Subtitle formats in preference order.
const (
	FormatVTT   = "vtt"
	FormatSRT   = "srt"
	FormatJSON3 = "json3"
	FormatSRV3  = "srv3"
	FormatSRV2  = "srv2"
	FormatSRV1  = "srv1"
	FormatTTML  = "ttml"
)

var formatRank = map[string]int{
	FormatVTT:   0,
	FormatSRT:   1,
	FormatJSON3: 2,
	FormatSRV3:  3,
	FormatSRV2:  4,
	FormatSRV1:  5,
	FormatTTML:  6,
}

// Supported reports whether format can be parsed.
func Supported(format string) bool {
	_, ok := formatRank[strings.ToLower(format)]
	return ok
}

// Track is one language/type pair with its best supported rendition.
type Track struct {
	Language string
	Type     models.TrackType
	Format   string
	URL      string
	Data     string
}

// EnumerateTracks lists manual tracks then auto tracks, languages sorted
// within each group. Languages without a supported rendition are skipped.
func EnumerateTracks(manual, auto map[string][]extractor.SubtitleFormat) []Track {
	tracks := collect(manual, models.TrackManual)
	return append(tracks, collect(auto, models.TrackAuto)...)
}

func collect(byLang map[string][]extractor.SubtitleFormat, typ models.TrackType) []Track {
	langs := make([]string, 0, len(byLang))
	for lang := range byLang {
		if lang == "live_chat" {
			continue
		}
		langs = append(langs, lang)
	}
	sort.Strings(langs)

	tracks := make([]Track, 0, len(langs))
	for _, lang := range langs {
		best, ok := bestRendition(byLang[lang])
		if !ok {
			continue
		}
		tracks = append(tracks, Track{
			Language: lang,
			Type:     typ,
			Format:   strings.ToLower(best.Ext),
			URL:      best.URL,
			Data:     best.Data,
		})
	}
	return tracks
}

func bestRendition(formats []extractor.SubtitleFormat) (extractor.SubtitleFormat, bool) {
	var best extractor.SubtitleFormat
	bestRank := -1
	for _, f := range formats {
		rank, ok := formatRank[strings.ToLower(f.Ext)]
		if !ok || (f.URL == "" && f.Data == "") {
			continue
		}
		if bestRank == -1 || rank < bestRank {
			best, bestRank = f, rank
		}
	}
	return best, bestRank >= 0
}

// SelectTrack picks the track to process. Manual tracks always beat auto
// tracks. Within the chosen type the first priority language that matches
// wins; with no match the first track of that type is used.
func SelectTrack(tracks []Track, priority []string) (Track, bool) {
	if len(tracks) == 0 {
		return Track{}, false
	}

	candidates := ofType(tracks, models.TrackManual)
	if len(candidates) == 0 {
		candidates = ofType(tracks, models.TrackAuto)
	}
	if len(candidates) == 0 {
		return tracks[0], true
	}

	for _, want := range priority {
		for _, t := range candidates {
			if languageMatches(want, t.Language) {
				return t, true
			}
		}
	}
	return candidates[0], true
}

func ofType(tracks []Track, typ models.TrackType) []Track {
	var out []Track
	for _, t := range tracks {
		if t.Type == typ {
			out = append(out, t)
		}
	}
	return out
}

// languageMatches compares BCP 47 tags. A wanted tag without a region
// matches any region of the same base language.
func languageMatches(want, have string) bool {
	if strings.EqualFold(want, have) {
		return true
	}
	w, okW := parseTag(want)
	h, okH := parseTag(have)
	if !okW || !okH {
		return false
	}
	if w == h {
		return true
	}

	wBase, _, wRegion := w.Raw()
	hBase, _, _ := h.Raw()
	return wBase == hBase && wRegion.String() == "ZZ"
}

// parseTag tolerates yt-dlp suffixes such as "en-orig" by falling back to
// the primary subtag.
func parseTag(s string) (language.Tag, bool) {
	s = strings.ReplaceAll(strings.TrimSpace(s), "_", "-")
	if s == "" {
		return language.Und, false
	}
	if tag, err := language.Parse(s); err == nil {
		return tag, true
	}
	primary, _, _ := strings.Cut(s, "-")
	tag, err := language.Parse(primary)
	return tag, err == nil
}
