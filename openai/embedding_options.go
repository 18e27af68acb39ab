package openai

// EmbeddingOptions are OpenAI-specific embedding knobs, passed through
// ProviderOptions under the "openai" key.
type EmbeddingOptions struct {
	// Dimensions reduces the output vector size (text-embedding-3 models only).
	Dimensions *int

	// EncodingFormat is "float" (default) or "base64". Base64 responses carry
	// the raw little-endian float32 array and are decoded transparently.
	EncodingFormat string

	// User is an opaque end-user identifier forwarded to OpenAI.
	User string
}
