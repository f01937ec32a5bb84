package models

import "time"

type Status string

const (
	StatusNew              Status = "NEW"
	StatusOwner            Status = "OWNER"
	StatusAwaitingDelivery Status = "AWAITING_DELIVERY"
	StatusRankA            Status = "RANK_A"
	StatusRankB            Status = "RANK_B"
	StatusRankC            Status = "RANK_C"
	StatusRankN            Status = "RANK_N"
	StatusContract         Status = "CONTRACT"
)

var AllStatuses = []Status{
	StatusNew,
	StatusOwner,
	StatusAwaitingDelivery,
	StatusRankA,
	StatusRankB,
	StatusRankC,
	StatusRankN,
	StatusContract,
}

// Valid reports whether s is one of the enumerated statuses.
func (s Status) Valid() bool {
	for _, v := range AllStatuses {
		if s == v {
			return true
		}
	}
	return false
}

// Customer is the subset of the persisted customer-store record that the
// CSV import/export path reads and writes. Unknown fields of persisted
// records are preserved by the callers that merge into the store.
type Customer struct {
	ID                   string     `json:"id"`
	Name                 string     `json:"name"`
	NameKana             string     `json:"nameKana,omitempty"`
	PostalCode           string     `json:"postalCode,omitempty"`
	Address              string     `json:"address,omitempty"`
	Address2             string     `json:"address2,omitempty"`
	Region               string     `json:"region,omitempty"`
	Phone                string     `json:"phone,omitempty"`
	Mobile               string     `json:"mobile,omitempty"`
	AssignedSalesRepID   string     `json:"assignedSalesRepId,omitempty"`
	AssignedSalesRepName string     `json:"assignedSalesRepName,omitempty"`
	Source               string     `json:"source,omitempty"`
	Status               Status     `json:"status"`
	ContractDate         *time.Time `json:"contractDate,omitempty"`
	Notes                string     `json:"notes,omitempty"`
	CreatedAt            time.Time  `json:"createdAt"`
	UpdatedAt            time.Time  `json:"updatedAt"`
}

// User is a sales rep known to the system. The roster CSV uses the csv tags.
type User struct {
	ID   string `csv:"id" json:"id"`
	Name string `csv:"name" json:"name"`
}

// DuplicateWarning flags an imported row that probably already exists.
type DuplicateWarning struct {
	Row                  int    `json:"row"`
	Name                 string `json:"name"`
	Prefecture           string `json:"prefecture"`
	ExistingCustomerID   string `json:"existingCustomerId"`
	ExistingCustomerName string `json:"existingCustomerName"`
}
