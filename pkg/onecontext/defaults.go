package onecontext

import "github.com/openai/openai-go"

// DefaultPrompt is sent with a structured-output request when the caller gives none.
const DefaultPrompt = "Generate a structured output corresponding to the provided schema, from the provided information!"

// Defaults carries every value a builder fills in for an omitted argument.
// It is copied into the Builder and never mutated afterwards.
type Defaults struct {
	SemanticWeight   float64
	FullTextWeight   float64
	RRFK             int
	IncludeEmbedding bool
	MaxChunkSize     int
	Prompt           string
	Model            openai.ChatModel
	ListSkip         int
	ListLimit        int
	ListSort         string
}

// DefaultValues returns the documented defaults.
func DefaultValues() Defaults {
	return Defaults{
		SemanticWeight:   0.5,
		FullTextWeight:   0.5,
		RRFK:             60,
		IncludeEmbedding: false,
		MaxChunkSize:     600,
		Prompt:           DefaultPrompt,
		Model:            openai.ChatModelGPT4oMini,
		ListSkip:         0,
		ListLimit:        10,
		ListSort:         "date_created",
	}
}
