package tts

// Gender selects the voice timbre for synthesis.
type Gender string

const (
	GenderFemale Gender = "female"
	GenderMale   Gender = "male"
)

// IsValid reports whether g is a recognised gender value.
func (g Gender) IsValid() bool {
	return g == GenderFemale || g == GenderMale
}

// VoiceOptions selects the voice used for a single synthesis request.
type VoiceOptions struct {
	// Gender selects the voice identity. An empty or unknown value falls back
	// to the female voice.
	Gender Gender

	// Pitch is a semitone offset in the range [-20, +20]. 0 means default.
	Pitch float64
}
