package entity

// Delegation is a single delegation to a validator.
type Delegation struct {
	ValidatorAddress string  `json:"validator_address"`
	Amount           float64 `json:"amount"`
}

// Balance holds the liquid and delegated amounts for one ChainWallet,
// already normalized to display units.
type Balance struct {
	LiquidBalance    float64      `json:"liquid_balance"`
	DelegatedBalance float64      `json:"delegated_balance"`
	TotalBalance     float64      `json:"total_balance"`
	Delegations      []Delegation `json:"delegations,omitempty"`
}
