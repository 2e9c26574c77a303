package googlegenai

import (
	"github.com/petal-labs/verdant/core"
	"github.com/petal-labs/verdant/providers"
)

func init() {
	providers.Register(providerID, func(apiKey string) core.Transport {
		return New(apiKey)
	})
}
