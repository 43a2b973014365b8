package speech

// Slot identifies one of the external speech services tokens are vended for.
type Slot string

const (
	SpeechToText Slot = "speech-to-text"
	TextToSpeech Slot = "text-to-speech"
)

// Slots lists every slot in a stable order.
func Slots() []Slot {
	return []Slot{SpeechToText, TextToSpeech}
}

// ParseSlot maps a URL path segment to a Slot.
func ParseSlot(raw string) (Slot, bool) {
	for _, slot := range Slots() {
		if string(slot) == raw {
			return slot, true
		}
	}
	return "", false
}

// BindingName is the service name the platform uses in VCAP_SERVICES.
func (s Slot) BindingName() string {
	switch s {
	case SpeechToText:
		return "speech_to_text"
	case TextToSpeech:
		return "text_to_speech"
	default:
		return ""
	}
}

// DefaultURL is the service endpoint used when no source provides one.
func (s Slot) DefaultURL() string {
	switch s {
	case SpeechToText:
		return "https://stream.watsonplatform.net/speech-to-text/api"
	case TextToSpeech:
		return "https://stream.watsonplatform.net/text-to-speech/api"
	default:
		return ""
	}
}
