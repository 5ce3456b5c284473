package model

// LeverageScore is the deterministic leverage split between the two parties.
// Customer is always within [20,80] and Provider is defined as the complement,
// so the two always sum to exactly 100.
type LeverageScore struct {
	Customer int `json:"customer"`
	Provider int `json:"provider"`
}

// PointBudget is the integer quota of priority weight each party may spend
// anchoring clause positions.
type PointBudget struct {
	CustomerPoints int `json:"customer_points"`
	ProviderPoints int `json:"provider_points"`
}

// Points returns the budget for the given party. Unknown parties get zero.
func (b PointBudget) Points(party Party) int {
	switch party {
	case PartyCustomer:
		return b.CustomerPoints
	case PartyProvider:
		return b.ProviderPoints
	default:
		return 0
	}
}
