package settings

import "time"

const (
	DefaultTitle       = "Absa Pay"
	DefaultDescription = "Pay securely via Absa Pay."
)

// Settings is the admin-editable gateway configuration.
type Settings struct {
	Enabled      bool
	Title        string
	Description  string
	TestMode     bool
	MerchantID   string
	APIKey       string
	APISecret    string
	ReturnPageID *uint
	UpdatedAt    time.Time
}

// Page is a storefront content page that can serve as the return page.
type Page struct {
	ID        uint
	ParentID  *uint
	Title     string
	Slug      string
	MenuOrder int
}

// PageOption is one entry of the return page selector.
type PageOption struct {
	ID    uint   `json:"id"`
	Label string `json:"label"`
}

// UpdateInput carries a partial settings update; nil fields are left unchanged.
type UpdateInput struct {
	Enabled      *bool   `json:"enabled"`
	Title        *string `json:"title"`
	Description  *string `json:"description"`
	TestMode     *bool   `json:"test_mode"`
	MerchantID   *string `json:"merchant_id"`
	APIKey       *string `json:"api_key"`
	APISecret    *string `json:"api_secret"`
	ReturnPageID *uint   `json:"return_page_id"`
}

func (in UpdateInput) HasAnyField() bool {
	return in.Enabled != nil ||
		in.Title != nil ||
		in.Description != nil ||
		in.TestMode != nil ||
		in.MerchantID != nil ||
		in.APIKey != nil ||
		in.APISecret != nil ||
		in.ReturnPageID != nil
}
