package model

// Party identifies one of the two negotiating sides.
type Party string

const (
	PartyCustomer Party = "customer"
	PartyProvider Party = "provider"
)

// Valid reports whether p is a recognized party.
func (p Party) Valid() bool {
	return p == PartyCustomer || p == PartyProvider
}

// Position bounds for clause stances.
const (
	MinPosition = 1
	MaxPosition = 10
)

// ClausePosition holds both parties' stances on a single negotiable clause.
// Positions are on a 1-10 scale; the provider opens at 5 (wider under harder
// training difficulties) and the customer opens at the bottom of the scale.
type ClausePosition struct {
	SessionID   string `json:"session_id"`
	ClauseID    string `json:"clause_id"`
	ClauseName  string `json:"clause_name"`
	ProviderPos int    `json:"provider_pos"`
	CustomerPos int    `json:"customer_pos"`
}

// Gap returns the alignment gap between the two positions.
func (c ClausePosition) Gap() int {
	d := c.ProviderPos - c.CustomerPos
	if d < 0 {
		return -d
	}
	return d
}

// ClausePriority records a party's committed priority weight on a clause.
// Committing weight consumes the party's point budget.
type ClausePriority struct {
	SessionID string `json:"session_id"`
	ClauseID  string `json:"clause_id"`
	Party     Party  `json:"party"`
	Weight    int    `json:"weight"`
}

// Clause is an entry in the negotiable clause catalog.
type Clause struct {
	ID   string `json:"id"`
	Name string `json:"name"`
}

// DefaultClauses is the clause set instantiated when a session enters the
// foundation phase.
func DefaultClauses() []Clause {
	return []Clause{
		{ID: "term", Name: "Contract Term"},
		{ID: "payment", Name: "Payment Terms"},
		{ID: "liability_cap", Name: "Limitation of Liability"},
		{ID: "ip_ownership", Name: "IP Ownership"},
		{ID: "termination", Name: "Termination for Convenience"},
		{ID: "sla", Name: "Service Levels"},
		{ID: "indemnity", Name: "Indemnification"},
		{ID: "confidentiality", Name: "Confidentiality"},
		{ID: "non_solicit", Name: "Non-Solicitation"},
		{ID: "governing_law", Name: "Governing Law"},
	}
}

// Difficulty is the optional training-mode modifier that widens the
// counterparty's starting positions to make practice sessions harder.
type Difficulty string

const (
	DifficultyStandard    Difficulty = "standard"
	DifficultyChallenge   Difficulty = "challenge"
	DifficultyAdversarial Difficulty = "adversarial"
)

// Valid reports whether d is a recognized difficulty.
func (d Difficulty) Valid() bool {
	switch d {
	case DifficultyStandard, DifficultyChallenge, DifficultyAdversarial:
		return true
	}
	return false
}

// StartingProviderPosition returns the provider's opening stance for a new
// clause under the given training difficulty. Standard (and unknown) values
// use the neutral position; harder modes open further from the customer.
func StartingProviderPosition(d Difficulty) int {
	switch d {
	case DifficultyChallenge:
		return 7
	case DifficultyAdversarial:
		return 9
	default:
		return 5
	}
}
