package tokenizer

import "github.com/google/wire"

// ProviderSet Tokenizer ProviderSet
var ProviderSet = wire.NewSet(GetCounter)
