package annotate

import (
	"sync"

	"github.com/tiktoken-go/tokenizer"
)

var (
	codecOnce sync.Once
	codec     tokenizer.Codec

	// countTokens is what the generator logs with; only called at debug level.
	countTokens = EstimateTokens
)

// EstimateTokens returns an approximate token count for text, or -1 if the
// encoder is unavailable.
func EstimateTokens(text string) int {
	codecOnce.Do(func() {
		enc, err := tokenizer.Get(tokenizer.Cl100kBase)
		if err == nil {
			codec = enc
		}
	})
	if codec == nil {
		return -1
	}
	ids, _, err := codec.Encode(text)
	if err != nil {
		return -1
	}
	return len(ids)
}
