package domain

// Category, Payee and PaymentMethod are plain {id, name} reference rows
// owned by the registration screens.

type Category struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// Payee is the person responsible for a transaction ("responsável").
type Payee struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

type PaymentMethod struct {
	ID   int64  `json:"id"`
	Name string `json:"name"`
}

// ReferenceData bundles every lookup list needed by the transaction form.
type ReferenceData struct {
	Accounts       []Account       `json:"accounts"`
	Categories     []Category      `json:"categories"`
	Payees         []Payee         `json:"payees"`
	PaymentMethods []PaymentMethod `json:"payment_methods"`
}
