package syncmap

// NonSpeechReplacementKind distinguishes "delete long nonspeech
// intervals entirely" from "replace them with literal text", rather
// than overloading a string field with a magic sentinel value.
type NonSpeechReplacementKind int

const (
	NonSpeechRemove NonSpeechReplacementKind = iota
	NonSpeechReplaceWith
)

// NonSpeechReplacement controls what text (if any) a newly injected
// NONSPEECH fragment carries.
type NonSpeechReplacement struct {
	Kind Kind
	Text string
}

// Kind is an alias kept for readability at call sites
// (NonSpeechReplacement{Kind: ...}).
type Kind = NonSpeechReplacementKind

// Remove builds the "delete, don't label" replacement policy.
func Remove() NonSpeechReplacement { return NonSpeechReplacement{Kind: NonSpeechRemove} }

// ReplaceWith builds the "label nonspeech fragments with this literal
// text" replacement policy.
func ReplaceWith(text string) NonSpeechReplacement {
	return NonSpeechReplacement{Kind: NonSpeechReplaceWith, Text: text}
}
