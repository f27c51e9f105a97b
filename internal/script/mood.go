package script

import "strings"

// Mood keyword tables. First matching table wins.
var moodKeywords = []struct {
	mood  string
	words []string
}{
	{"epic action", []string{"battle", "fight", "action", "chase", "explosion"}},
	{"romantic", []string{"love", "romantic", "kiss", "tender"}},
	{"suspenseful", []string{"suspense", "mystery", "dark", "scary", "shadow"}},
	{"uplifting", []string{"happy", "joy", "celebration", "fun"}},
	{"melancholic", []string{"sad", "death", "loss", "goodbye"}},
}

// MoodFor infers a background music mood from a scene description.
// Descriptions matching no keyword table get the generic cinematic mood.
func MoodFor(description string) string {
	lowered := strings.ToLower(description)

	for _, entry := range moodKeywords {
		for _, word := range entry.words {
			if strings.Contains(lowered, word) {
				return entry.mood
			}
		}
	}

	return "cinematic"
}

// MusicPrompt expands a mood into the prompt handed to the music engine.
func MusicPrompt(mood string) string {
	prompt := mood + " cinematic orchestral film score"

	lowered := strings.ToLower(mood)

	switch {
	case strings.Contains(lowered, "action"):
		prompt += ", epic drums, intense strings, brass fanfares"
	case strings.Contains(lowered, "romantic"):
		prompt += ", soft piano, warm strings, gentle melody"
	case strings.Contains(lowered, "suspense"):
		prompt += ", tension building, dark atmosphere, subtle percussion"
	}

	return prompt
}
