package transcript

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/storyboard-lab/video-extraction-go/internal/extractor"
	"github.com/storyboard-lab/video-extraction-go/internal/models"
)

func TestEnumerateTracks(t *testing.T) {
	manual := map[string][]extractor.SubtitleFormat{
		"fr": {{Ext: "ttml", URL: "https://s/fr.ttml"}, {Ext: "vtt", URL: "https://s/fr.vtt"}},
		"de": {{Ext: "srv1", URL: "https://s/de.srv1"}},
		"xx": {{Ext: "ass", URL: "https://s/xx.ass"}},
	}
	auto := map[string][]extractor.SubtitleFormat{
		"en":        {{Ext: "json3", URL: "https://s/en.json3"}, {Ext: "srt", URL: "https://s/en.srt"}},
		"id":        {{Ext: "srv3", URL: "https://s/id.srv3"}},
		"live_chat": {{Ext: "json", URL: "https://s/chat.json"}},
	}

	tracks := EnumerateTracks(manual, auto)
	require.Len(t, tracks, 4)

	assert.Equal(t, Track{Language: "de", Type: models.TrackManual, Format: "srv1", URL: "https://s/de.srv1"}, tracks[0])
	assert.Equal(t, Track{Language: "fr", Type: models.TrackManual, Format: "vtt", URL: "https://s/fr.vtt"}, tracks[1])
	assert.Equal(t, Track{Language: "en", Type: models.TrackAuto, Format: "srt", URL: "https://s/en.srt"}, tracks[2])
	assert.Equal(t, Track{Language: "id", Type: models.TrackAuto, Format: "srv3", URL: "https://s/id.srv3"}, tracks[3])
}

func TestEnumerateTracks_Empty(t *testing.T) {
	assert.Empty(t, EnumerateTracks(nil, nil))
	assert.Empty(t, EnumerateTracks(map[string][]extractor.SubtitleFormat{"en": {{Ext: "vtt"}}}, nil),
		"renditions without url or data are unusable")
}

func TestSelectTrack_ManualBeatsAutoRegardlessOfLanguage(t *testing.T) {
	tracks := []Track{
		{Language: "fr", Type: models.TrackManual, Format: "vtt"},
		{Language: "id", Type: models.TrackAuto, Format: "vtt"},
		{Language: "en", Type: models.TrackAuto, Format: "vtt"},
	}

	for i := 0; i < 10; i++ {
		got, ok := SelectTrack(tracks, []string{"id", "en"})
		require.True(t, ok)
		assert.Equal(t, "fr", got.Language)
		assert.Equal(t, models.TrackManual, got.Type)
	}
}

func TestSelectTrack(t *testing.T) {
	tests := []struct {
		name     string
		tracks   []Track
		priority []string
		wantLang string
		wantType models.TrackType
	}{
		{
			name: "priority order within manual",
			tracks: []Track{
				{Language: "en", Type: models.TrackManual},
				{Language: "id", Type: models.TrackManual},
			},
			priority: []string{"id", "en"},
			wantLang: "id",
			wantType: models.TrackManual,
		},
		{
			name: "auto only uses priority",
			tracks: []Track{
				{Language: "en", Type: models.TrackAuto},
				{Language: "id", Type: models.TrackAuto},
			},
			priority: []string{"id", "en"},
			wantLang: "id",
			wantType: models.TrackAuto,
		},
		{
			name: "no priority match takes first of type",
			tracks: []Track{
				{Language: "de", Type: models.TrackAuto},
				{Language: "ja", Type: models.TrackAuto},
			},
			priority: []string{"id", "en"},
			wantLang: "de",
			wantType: models.TrackAuto,
		},
		{
			name: "base language matches any region",
			tracks: []Track{
				{Language: "de", Type: models.TrackManual},
				{Language: "en-US", Type: models.TrackManual},
			},
			priority: []string{"en"},
			wantLang: "en-US",
			wantType: models.TrackManual,
		},
		{
			name: "yt-dlp original suffix",
			tracks: []Track{
				{Language: "de", Type: models.TrackAuto},
				{Language: "en-orig", Type: models.TrackAuto},
			},
			priority: []string{"en"},
			wantLang: "en-orig",
			wantType: models.TrackAuto,
		},
		{
			name: "regional priority does not match another region",
			tracks: []Track{
				{Language: "pt-PT", Type: models.TrackManual},
				{Language: "pt-BR", Type: models.TrackManual},
			},
			priority: []string{"pt-BR"},
			wantLang: "pt-BR",
			wantType: models.TrackManual,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := SelectTrack(tt.tracks, tt.priority)
			require.True(t, ok)
			assert.Equal(t, tt.wantLang, got.Language)
			assert.Equal(t, tt.wantType, got.Type)
		})
	}
}

func TestSelectTrack_NoTracks(t *testing.T) {
	_, ok := SelectTrack(nil, []string{"en"})
	assert.False(t, ok)
}

func TestLanguageMatches(t *testing.T) {
	assert.True(t, languageMatches("en", "en"))
	assert.True(t, languageMatches("EN", "en"))
	assert.True(t, languageMatches("en", "en-GB"))
	assert.True(t, languageMatches("zh", "zh_Hans"))
	assert.False(t, languageMatches("en-GB", "en-US"))
	assert.False(t, languageMatches("en", "id"))
	assert.False(t, languageMatches("", "en"))
}

func TestSupported(t *testing.T) {
	for _, f := range []string{"vtt", "SRT", "json3", "srv1", "srv2", "srv3", "ttml"} {
		assert.True(t, Supported(f), f)
	}
	assert.False(t, Supported("ass"))
}
