package resolver

import (
	"strings"

	"github.com/btcsuite/btcutil/bech32"
	"go.uber.org/zap"

	"github.com/tonyler/passivmos-web/internal/config"
	"github.com/tonyler/passivmos-web/internal/entity"
)

// Resolver expands one bech32 wallet address into the chain-specific
// variants sharing its account payload, one per enabled chain prefix.
type Resolver struct {
	chains []config.TokenConfig
	logger *zap.Logger
}

// New creates a Resolver over the enabled token configs.
func New(chains []config.TokenConfig, logger *zap.Logger) *Resolver {
	return &Resolver{
		chains: chains,
		logger: logger.Named("Resolver"),
	}
}

// Resolve converts an address to all enabled chain variants. An address
// that cannot be decoded yields an empty result, never an error: the
// caller reports it as a soft skip. The result never contains duplicate
// (chain, address) pairs.
func (r *Resolver) Resolve(address string) []entity.ChainWallet {
	address = strings.TrimSpace(address)
	if address == "" {
		return nil
	}

	// bech32.Decode validates the checksum of the input; re-encoded
	// variants are valid by construction.
	_, payload, err := bech32.Decode(address)
	if err != nil {
		r.logger.Debug("Could not decode address", zap.String("address", address), zap.Error(err))
		return nil
	}

	wallets := make([]entity.ChainWallet, 0, len(r.chains))
	seen := make(map[string]struct{}, len(r.chains))

	for _, chain := range r.chains {
		derived, err := bech32.Encode(chain.Bech32Prefix, payload)
		if err != nil {
			r.logger.Warn("Failed to re-encode address for chain",
				zap.String("address", address),
				zap.String("chain", chain.ChainName),
				zap.Error(err))
			continue
		}

		key := chain.ChainName + "/" + derived
		if _, dup := seen[key]; dup {
			continue
		}
		seen[key] = struct{}{}

		wallets = append(wallets, entity.ChainWallet{
			Chain:           chain.ChainName,
			Address:         derived,
			OriginalAddress: address,
			TokenSymbol:     chain.Symbol,
		})
	}

	return wallets
}

// DetectChain returns the chain name whose prefix matches the address,
// or false when no enabled chain claims it.
func (r *Resolver) DetectChain(address string) (string, bool) {
	hrp, _, err := bech32.Decode(strings.TrimSpace(address))
	if err != nil {
		return "", false
	}
	for _, chain := range r.chains {
		if chain.Bech32Prefix == hrp {
			return chain.ChainName, true
		}
	}
	return "", false
}
