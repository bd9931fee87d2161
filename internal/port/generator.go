package port

// GenerateOptions configures one generation call.
type GenerateOptions struct {
	Temperature float64 // sampling randomness
	MaxTokens   int     // output length cap
}

// Generator produces text from a prompt.
type Generator interface {
	// Generate produces a response for the prompt. Blocks until the
	// provider answers or its configured timeout expires.
	Generate(prompt string, opts GenerateOptions) (string, error)

	// ModelName returns the name of the model.
	ModelName() string
}
