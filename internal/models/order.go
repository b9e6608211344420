package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// ItemKind discriminates the three variants of OrderItem.
type ItemKind string

const (
	KindMainCategory ItemKind = "main_category"
	KindSubcategory  ItemKind = "subcategory"
	KindLineItem     ItemKind = "line_item"
)

// OrderItem is one entry in the ordered sequence produced by the document
// parser. The Kind field selects the variant: category and subcategory
// headers carry only a label, line items always carry quantity, unit rate
// and amount plus back-references to the category headers in effect when
// the row was scanned.
type OrderItem struct {
	Kind  ItemKind `json:"kind"`
	Label string   `json:"label"`

	Quantity decimal.Decimal `json:"quantity,omitempty"`
	UnitRate decimal.Decimal `json:"unitRate,omitempty"`
	Amount   decimal.Decimal `json:"amount,omitempty"`

	// MainCategory and SubCategory are set on line items only. A nil
	// MainCategory means the row preceded any category header in the
	// document; SubCategory resets whenever a new main category starts.
	MainCategory *string `json:"mainCategory,omitempty"`
	SubCategory  *string `json:"subCategory,omitempty"`
}

// NewMainCategory builds a section-header item. Quantity/rate/amount stay
// zero; Kind is what distinguishes "no amount" from "amount of zero".
func NewMainCategory(label string) OrderItem {
	return OrderItem{Kind: KindMainCategory, Label: label}
}

// NewSubcategory builds a subsection-header item.
func NewSubcategory(label string) OrderItem {
	return OrderItem{Kind: KindSubcategory, Label: label}
}

// NewLineItem builds a priced row. Rate is derived as amount/quantity when
// quantity is positive, otherwise 0 — never a division error.
func NewLineItem(label string, quantity, amount decimal.Decimal, mainCategory, subCategory *string) OrderItem {
	rate := decimal.Zero
	if quantity.IsPositive() {
		rate = amount.Div(quantity)
	}
	return OrderItem{
		Kind:         KindLineItem,
		Label:        label,
		Quantity:     quantity,
		UnitRate:     rate,
		Amount:       amount,
		MainCategory: mainCategory,
		SubCategory:  subCategory,
	}
}

// IsLineItem reports whether the item carries a price.
func (i OrderItem) IsLineItem() bool { return i.Kind == KindLineItem }

// Location holds the per-document customer/order record extracted from the
// plaintext view. Order number and address fields are required for a valid
// record but may still be empty when extraction fails; everything optional
// is a pointer so an absent field is distinguishable from a present-but-empty
// one (an empty value after cleaning means absent, never "").
type Location struct {
	OrderNo    string `json:"orderNo"`
	ClientName string `json:"clientName,omitempty"`
	CustomerID string `json:"customerId,omitempty"` // external DBX customer id

	Address string `json:"address"`
	City    string `json:"city"`
	State   string `json:"state"`
	Zip     string `json:"zip"`

	Email *string `json:"email,omitempty"`
	Phone *string `json:"phone,omitempty"`

	OrderDate        *string          `json:"orderDate,omitempty"`
	OrderPO          *string          `json:"orderPo,omitempty"`
	OrderDueDate     *string          `json:"orderDueDate,omitempty"`
	OrderType        *string          `json:"orderType,omitempty"`
	Delivered        *bool            `json:"delivered,omitempty"`
	QuoteExpiration  *string          `json:"quoteExpiration,omitempty"`
	GrandTotal       *decimal.Decimal `json:"grandTotal,omitempty"`
	ProgressPayments *string          `json:"progressPayments,omitempty"`
	BalanceDue       *decimal.Decimal `json:"balanceDue,omitempty"`
	SalesRep         *string          `json:"salesRep,omitempty"`
}

// AddendumBlock is a supplemental charge found in a nested progress-payments
// table. It is materialized into a synthetic MainCategory + LineItem pair.
type AddendumBlock struct {
	AddendumNumber int             `json:"addendumNumber"`
	Amount         decimal.Decimal `json:"amount"`
}

// ReconcileResult is the advisory verdict from the totals reconciler.
type ReconcileResult struct {
	IsValid    bool            `json:"isValid"`
	ItemsTotal decimal.Decimal `json:"itemsTotal"`
	Difference decimal.Decimal `json:"difference"`
	Message    string          `json:"message,omitempty"`
}

// ParseResult bundles everything one document yields.
type ParseResult struct {
	Location    *Location       `json:"location"`
	Items       []OrderItem     `json:"items"`
	Reconciled  ReconcileResult `json:"reconciled"`
	DroppedRows int             `json:"droppedRows,omitempty"` // plausible rows that matched no rule
}

// ParseRequest represents the input options for order processing.
type ParseRequest struct {
	// Raw document bytes (EML file or HTML page), sent as multipart.
	DocumentData []byte `json:"-"`

	// Partner-system view link, fetched server-side when no file is given.
	URL string `json:"url,omitempty"`

	// Caller-side filtering flags, passed through to the exporter.
	IncludeMainCategories bool `json:"includeMainCategories"`
	IncludeSubcategories  bool `json:"includeSubcategories"`
}

// ParseResponse represents the output of order processing.
type ParseResponse struct {
	Success bool         `json:"success"`
	Result  *ParseResult `json:"result,omitempty"`
	Error   string       `json:"error,omitempty"`

	TotalDuration float64 `json:"totalDuration"` // seconds
}

// SavedOrder is the persisted shape of a parsed order.
type SavedOrder struct {
	ID          string          `json:"id"`
	OrderNo     string          `json:"order_no"`
	ClientName  string          `json:"client_name"`
	Address     string          `json:"address"`
	GrandTotal  decimal.Decimal `json:"grand_total"`
	ItemsTotal  decimal.Decimal `json:"items_total"`
	TotalsValid bool            `json:"totals_valid"`
	DocumentURL string          `json:"document_url"`
	ItemsJSON   string          `json:"items_json,omitempty"`
	CreatedAt   time.Time       `json:"created_at"`
	UpdatedAt   *time.Time      `json:"updated_at,omitempty"`
}

// Config represents the service configuration
type Config struct {
	Port int    `yaml:"port"`
	Host string `yaml:"host"`

	Parser ParserConfig `yaml:"parser"`
	Fetch  FetchConfig  `yaml:"fetch"`
	Export ExportConfig `yaml:"export"`
}

// ParserConfig tunes the document parser and reconciler.
type ParserConfig struct {
	// Tolerance for the totals reconciler, in currency units (default 0.01).
	Tolerance float64 `yaml:"tolerance"`
}

// FetchConfig configures the partner view-link fetcher.
type FetchConfig struct {
	TimeoutSeconds int    `yaml:"timeout_seconds"` // default 30
	UserAgent      string `yaml:"user_agent"`
}

// ExportConfig configures spreadsheet generation.
type ExportConfig struct {
	SheetName             string `yaml:"sheet_name"` // default "Order"
	IncludeMainCategories bool   `yaml:"include_main_categories"`
	IncludeSubcategories  bool   `yaml:"include_subcategories"`
}
