package entity

// ChainWallet is one chain-specific address derived from a user-supplied
// address. It is owned by a single calculation request and never persisted.
type ChainWallet struct {
	Chain           string `json:"chain"`
	Address         string `json:"address"`
	OriginalAddress string `json:"original_address"`
	TokenSymbol     string `json:"token_symbol"`
}
