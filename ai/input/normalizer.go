// Package input normalizes raw user input before the pipeline touches it.
package input

import "strings"

// SourceType identifies where the input text came from.
type SourceType string

const (
	SourceText  SourceType = "text"
	SourceVoice SourceType = "voice"
	SourceImage SourceType = "image"
)

// NormalizedInput is the cleaned form of a raw turn input. An empty Text is
// a valid result for blank input; the caller decides how to react.
type NormalizedInput struct {
	Text           string
	Source         SourceType
	AttachmentInfo string
}

// Placeholder markers for input paths that are not wired yet. Producing a
// marker instead of an error is the contract: the pipeline treats these as
// ordinary text and the model is instructed to ask for a transcript.
const (
	voicePlaceholder = "[voice message received - transcription not yet available]"
	imagePlaceholder = "[image attachment received - content extraction not yet available]"
)

// Normalize trims the raw text and collapses internal whitespace runs to
// single spaces. Blank input yields an empty-text result, not an error.
func Normalize(raw string) NormalizedInput {
	return NormalizedInput{
		Text:   strings.Join(strings.Fields(raw), " "),
		Source: SourceText,
	}
}

// NormalizeVoice handles voice-derived input. Transcription is not wired
// yet; the result carries a placeholder marker.
func NormalizeVoice(attachmentInfo string) NormalizedInput {
	return NormalizedInput{
		Text:           voicePlaceholder,
		Source:         SourceVoice,
		AttachmentInfo: attachmentInfo,
	}
}

// NormalizeImage handles image attachments. Extraction is not wired yet;
// the result carries a placeholder marker.
func NormalizeImage(attachmentInfo string) NormalizedInput {
	return NormalizedInput{
		Text:           imagePlaceholder,
		Source:         SourceImage,
		AttachmentInfo: attachmentInfo,
	}
}
