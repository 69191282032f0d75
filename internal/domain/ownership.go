package domain

import "time"

// Publisher is an organisation that submits books.
type Publisher struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// Author is a person whose books are published through contracts.
type Author struct {
	ID        int64     `json:"id"`
	Name      string    `json:"name"`
	CreatedAt time.Time `json:"created_at"`
}

// OwnershipEdge records a contract between a publisher and an author.
type OwnershipEdge struct {
	PublisherID   int64      `json:"publisher_id"`
	AuthorID      int64      `json:"author_id"`
	ContractStart time.Time  `json:"contract_start"`
	ContractEnd   *time.Time `json:"contract_end,omitempty"`
}

// IsActive reports whether the contract is current. A contract with any end
// date, past or future, is no longer active.
func (e *OwnershipEdge) IsActive() bool {
	return e.ContractEnd == nil
}
