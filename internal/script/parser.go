// Package script turns free-text screenplays into ordered scene descriptors.
//
// Segmentation is best-effort: scene headings (INT./EXT.), SPEAKER lines,
// bracketed camera directions and parenthesised sound notes are recognised by
// pattern, not by understanding. When nothing is segmentable the whole script
// becomes a single scene.
package script

import (
	"context"
	"fmt"
	"regexp"
	"strings"

	"github.com/cinema-ai/cinema-service/internal/core"
)

// Duration estimation bounds, in seconds.
const (
	minEstimatedDuration = 5
	wordsPerSecond       = 3
)

// Regex patterns for screenplay structure.
const (
	sceneHeadingPattern = `(?m)^(INT\.|EXT\.)\s+([^-\n]+?)\s*-\s*(\w+)\s*$`
	speakerLinePattern  = `(?m)^([A-Z][A-Z .']+):?\s*$`
	cameraPattern       = `\[([^\]]+)\]`
	soundNotePattern    = `\(([^)]+)\)`
)

// Parser segments screenplay text into scenes using precompiled patterns.
type Parser struct {
	sceneHeading *regexp.Regexp
	speakerLine  *regexp.Regexp
	camera       *regexp.Regexp
	soundNote    *regexp.Regexp
	maxDuration  int
}

// Options carry per-request rendering hints applied to every parsed scene.
type Options struct {
	Resolution core.Resolution
	FPS        int
	Style      string
}

// NewParser creates a parser with the given maximum scene duration. Scenes
// estimated longer than the maximum are clamped to it.
func NewParser(maxSceneDuration int) *Parser {
	if maxSceneDuration <= 0 {
		maxSceneDuration = core.MaxSceneDurationSeconds
	}

	if maxSceneDuration > core.MaxSceneDurationSeconds {
		maxSceneDuration = core.MaxSceneDurationSeconds
	}

	return &Parser{
		sceneHeading: regexp.MustCompile(sceneHeadingPattern),
		speakerLine:  regexp.MustCompile(speakerLinePattern),
		camera:       regexp.MustCompile(cameraPattern),
		soundNote:    regexp.MustCompile(soundNotePattern),
		maxDuration:  maxSceneDuration,
	}
}

// BreakScript implements the script breakdown contract shared with Analyzer.
func (p *Parser) BreakScript(_ context.Context, scriptText string, opts Options) ([]core.Scene, error) {
	return p.Parse(scriptText, opts), nil
}

// Parse splits the script into ordered scenes. It never fails: unsegmentable
// input yields one scene wrapping the entire script.
func (p *Parser) Parse(scriptText string, opts Options) []core.Scene {
	scenes := p.parseByHeadings(scriptText, opts)

	if len(scenes) == 0 {
		scenes = p.parseByBlankLines(scriptText, opts)
	}

	if len(scenes) == 0 {
		scenes = []core.Scene{p.wholeScriptScene(scriptText, opts)}
	}

	return scenes
}

// parseByHeadings splits on INT./EXT. scene headings.
func (p *Parser) parseByHeadings(scriptText string, opts Options) []core.Scene {
	headings := p.sceneHeading.FindAllStringSubmatchIndex(scriptText, -1)
	if len(headings) == 0 {
		return nil
	}

	scenes := make([]core.Scene, 0, len(headings))

	for i, loc := range headings {
		contentStart := loc[1]

		contentEnd := len(scriptText)
		if i+1 < len(headings) {
			contentEnd = headings[i+1][0]
		}

		locationType := scriptText[loc[2]:loc[3]]
		location := strings.TrimSpace(scriptText[loc[4]:loc[5]])
		content := scriptText[contentStart:contentEnd]

		scene := p.buildScene(content, opts)
		scene.Environment = fmt.Sprintf("%s %s", locationType, location)

		if scene.Description == "" {
			scene.Description = "Scene at " + location
		}

		scenes = append(scenes, scene)
	}

	return scenes
}

// parseByBlankLines treats blank-line separated fragments as scenes. Fragments
// that are pure dialogue attach to the preceding fragment's scene.
func (p *Parser) parseByBlankLines(scriptText string, opts Options) []core.Scene {
	fragments := strings.Split(scriptText, "\n\n")

	var scenes []core.Scene

	for _, fragment := range fragments {
		fragment = strings.TrimSpace(fragment)
		if fragment == "" {
			continue
		}

		scene := p.buildScene(fragment, opts)

		if scene.Description == "" && len(scene.Dialogue) > 0 && len(scenes) > 0 {
			last := &scenes[len(scenes)-1]
			last.Dialogue = append(last.Dialogue, scene.Dialogue...)

			continue
		}

		if scene.Description == "" {
			scene.Description = firstWords(fragment, 30)
		}

		scenes = append(scenes, scene)
	}

	return scenes
}

// buildScene extracts dialogue, camera directions and sound notes from one
// block of screenplay text.
func (p *Parser) buildScene(content string, opts Options) core.Scene {
	dialogue, actions := p.splitDialogue(content)

	description := ""
	if len(actions) > 0 {
		description = actions[0]
	}

	scene := core.Scene{
		Description:     description,
		Duration:        p.estimateDuration(content),
		Resolution:      opts.Resolution,
		FPS:             opts.FPS,
		CameraMovements: dedupe(p.camera.FindAllString(content, -1), p.camera),
		Dialogue:        dialogue,
		SoundEffects:    dedupe(p.soundNote.FindAllString(content, -1), p.soundNote),
	}

	if opts.Style != "" && scene.Description != "" {
		scene.Description += ", " + opts.Style + " style"
	}

	scene.MusicMood = MoodFor(scene.Description)

	return scene
}

// splitDialogue walks the block line by line, pairing SPEAKER lines with the
// text beneath them. All remaining non-empty lines become action lines.
func (p *Parser) splitDialogue(content string) ([]core.DialogueLine, []string) {
	var (
		dialogue []core.DialogueLine
		actions  []string
	)

	lines := strings.Split(content, "\n")

	for i := 0; i < len(lines); i++ {
		line := strings.TrimSpace(lines[i])
		if line == "" {
			continue
		}

		match := p.speakerLine.FindStringSubmatch(line)
		if match == nil {
			actions = append(actions, stripMarkup(line, p.camera, p.soundNote))

			continue
		}

		// Consume the following line as the spoken text.
		if i+1 >= len(lines) {
			continue
		}

		text := strings.TrimSpace(lines[i+1])
		if text == "" {
			continue
		}

		i++

		nonVerbal := dedupe(p.camera.FindAllString(text, -1), p.camera)
		text = strings.TrimSpace(p.camera.ReplaceAllString(text, ""))

		dialogue = append(dialogue, core.DialogueLine{
			Character: strings.TrimSuffix(strings.TrimSpace(match[1]), ":"),
			Text:      text,
			Emotion:   emotionFor(text),
			NonVerbal: nonVerbal,
		})
	}

	return dialogue, actions
}

// estimateDuration derives a rough duration from the word count, clamped to
// the parser's maximum.
func (p *Parser) estimateDuration(content string) int {
	words := len(strings.Fields(content))

	duration := words / wordsPerSecond
	if duration < minEstimatedDuration {
		duration = minEstimatedDuration
	}

	if duration > p.maxDuration {
		duration = p.maxDuration
	}

	return duration
}

// wholeScriptScene wraps an unsegmentable script into a single scene.
func (p *Parser) wholeScriptScene(scriptText string, opts Options) core.Scene {
	scene := core.Scene{
		Description: firstWords(strings.TrimSpace(scriptText), 40),
		Duration:    p.estimateDuration(scriptText),
		Resolution:  opts.Resolution,
		FPS:         opts.FPS,
	}

	if scene.Description == "" {
		scene.Description = "Empty scene"
	}

	scene.MusicMood = MoodFor(scene.Description)

	return scene
}

// emotionFor applies the punctuation heuristics for a line's emotion.
func emotionFor(text string) string {
	switch {
	case strings.Contains(text, "..."):
		return "hesitant"
	case strings.Contains(text, "!"):
		return "excited"
	case strings.Contains(text, "?"):
		return "questioning"
	default:
		return "neutral"
	}
}

// dedupe strips the surrounding markup from each match and drops duplicates,
// preserving first-seen order.
func dedupe(matches []string, pattern *regexp.Regexp) []string {
	if len(matches) == 0 {
		return nil
	}

	seen := make(map[string]struct{}, len(matches))
	out := make([]string, 0, len(matches))

	for _, m := range matches {
		inner := pattern.ReplaceAllString(m, "$1")
		inner = strings.TrimSpace(inner)

		if inner == "" {
			continue
		}

		if _, ok := seen[inner]; ok {
			continue
		}

		seen[inner] = struct{}{}

		out = append(out, inner)
	}

	return out
}

// stripMarkup removes camera brackets and sound parentheses from a line.
func stripMarkup(line string, patterns ...*regexp.Regexp) string {
	for _, p := range patterns {
		line = p.ReplaceAllString(line, "")
	}

	return strings.TrimSpace(line)
}

// firstWords truncates text to at most n words.
func firstWords(text string, n int) string {
	words := strings.Fields(text)
	if len(words) <= n {
		return strings.Join(words, " ")
	}

	return strings.Join(words[:n], " ")
}
