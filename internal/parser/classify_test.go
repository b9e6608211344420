package parser

import (
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calimingo/order-dashboard-service/internal/models"
)

func TestComposeCategoryLabel(t *testing.T) {
	tests := []struct {
		name, catName, desc, want string
	}{
		{"colon appended", "0020 Calimingo - Pools and Spas - R2", "", "0020 Calimingo - Pools and Spas - R2:"},
		{"description joined", "0030 Calimingo Decking", "Stamped concrete", "0030 Calimingo Decking - Stamped concrete:"},
		{"existing colon not doubled", "Equipment:", "", "Equipment:"},
		{"description already in name", "0040 Calimingo Plumbing", "Plumbing", "0040 Calimingo Plumbing:"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, composeCategoryLabel(tt.catName, tt.desc))
		})
	}
}

func TestIsLegacyCategoryMarkup(t *testing.T) {
	t.Run("bold span", func(t *testing.T) {
		cell := CellData{BoldSpanText: "0020 Calimingo - Pools and Spas"}
		name, desc, ok := isLegacyCategoryMarkup(cell)
		require.True(t, ok)
		assert.Equal(t, "0020 Calimingo - Pools and Spas", name)
		assert.Empty(t, desc)
	})
	t.Run("strong with em pair", func(t *testing.T) {
		cell := CellData{HasStrong: true, StrongText: "0025 Calimingo Excavation", EmText: "Hard dig"}
		name, desc, ok := isLegacyCategoryMarkup(cell)
		require.True(t, ok)
		assert.Equal(t, "0025 Calimingo Excavation", name)
		assert.Equal(t, "Hard dig", desc)
	})
	t.Run("strong alone is not a category", func(t *testing.T) {
		cell := CellData{HasStrong: true, StrongText: "Gunite shell"}
		_, _, ok := isLegacyCategoryMarkup(cell)
		assert.False(t, ok)
	})
}

func TestIsModernCategoryMarkup(t *testing.T) {
	t.Run("bordered cell with code prefix", func(t *testing.T) {
		cell := CellData{
			Style:  "border-top:solid 1px #666; padding-top:4px",
			Text:   "0030 Calimingo Decking Stamped concrete",
			HTML:   "0030 Calimingo Decking<br><em>Stamped concrete</em>",
			EmText: "Stamped concrete",
		}
		name, desc, ok := isModernCategoryMarkup(cell)
		require.True(t, ok)
		assert.Equal(t, "0030 Calimingo Decking", name)
		assert.Equal(t, "Stamped concrete", desc)
	})
	t.Run("border without code prefix", func(t *testing.T) {
		cell := CellData{Style: "border-top:solid 1px #666", Text: "Totals", HTML: "Totals"}
		_, _, ok := isModernCategoryMarkup(cell)
		assert.False(t, ok)
	})
	t.Run("code prefix without border", func(t *testing.T) {
		cell := CellData{Text: "0030 Calimingo Decking", HTML: "0030 Calimingo Decking"}
		_, _, ok := isModernCategoryMarkup(cell)
		assert.False(t, ok)
	})
}

func TestClassifySubcategory(t *testing.T) {
	t.Run("legacy class on row", func(t *testing.T) {
		rd := RowData{Class: "subcat", Cells: []CellData{{Text: "Water Features"}}}
		name, ok := classifySubcategory(rd)
		require.True(t, ok)
		assert.Equal(t, "Water Features", name)
	})
	t.Run("legacy class on cell", func(t *testing.T) {
		rd := RowData{Cells: []CellData{{Text: "Masonry", Class: "subcat"}}}
		name, ok := classifySubcategory(rd)
		require.True(t, ok)
		assert.Equal(t, "Masonry", name)
	})
	t.Run("modern bordered strong cell", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: ""},
			{
				Text:       "Equipment",
				Style:      "border-top:solid 1px #666; letter-spacing:1px",
				HasStrong:  true,
				StrongText: "Equipment",
			},
		}}
		name, ok := classifySubcategory(rd)
		require.True(t, ok)
		assert.Equal(t, "Equipment", name)
	})
	t.Run("modern markup missing letter-spacing", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: ""},
			{Text: "Equipment", Style: "border-top:solid 1px #666", HasStrong: true, StrongText: "Equipment"},
		}}
		_, ok := classifySubcategory(rd)
		assert.False(t, ok)
	})
	t.Run("non-empty lead cell is not a modern subcategory", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "x"},
			{Text: "Equipment", Style: "border-top:solid 1px #666; letter-spacing:1px", HasStrong: true, StrongText: "Equipment"},
		}}
		_, ok := classifySubcategory(rd)
		assert.False(t, ok)
	})
}

func TestIsSummaryRow(t *testing.T) {
	tests := []struct {
		name string
		rd   RowData
		want bool
	}{
		{"subtotal", RowData{Cells: []CellData{{Text: "Subtotal"}, {Text: ""}, {Text: "$450.00"}}}, true},
		{"tax", RowData{Cells: []CellData{{Text: "Tax"}}}, true},
		{"grand total", RowData{Cells: []CellData{{Text: "Grand Total"}}}, true},
		{"current job balance", RowData{Cells: []CellData{{Text: "Current Job Balance"}}}, true},
		{"progress header", RowData{Cells: []CellData{{Text: "Phase"}, {Text: "Amt Paid"}, {Text: "Date Paid"}}}, true},
		{"addendum dated reference", RowData{Cells: []CellData{{Text: "Addendum #2 signed 1/5/24"}}}, true},
		{"column header", RowData{Cells: []CellData{{Text: "DESCRIPTION"}, {Text: "QTY"}, {Text: "EXTENDED"}}}, true},
		{"real item", RowData{Cells: []CellData{{Text: "Gunite shell"}, {Text: "1"}, {Text: "$9,000.00"}}}, false},
		{"addendum without date is not noise", RowData{Cells: []CellData{{Text: "Addendum #2 electrical"}, {Text: "1"}, {Text: "$500.00"}}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, isSummaryRow(tt.rd))
		})
	}
}

func TestExtractAddendums(t *testing.T) {
	t.Run("amount from third sub-cell", func(t *testing.T) {
		blocks := extractAddendums([][]string{
			{"Progress Payments", "", ""},
			{"Addendum #3", "6/1/24", "$2,500.00"},
		})
		require.Len(t, blocks, 1)
		assert.Equal(t, 3, blocks[0].AddendumNumber)
		assert.True(t, decimal.RequireFromString("2500").Equal(blocks[0].Amount))
	})
	t.Run("fallback to largest plausible value", func(t *testing.T) {
		blocks := extractAddendums([][]string{
			{"Addendum #1 total 1,500.00", "", "paid"},
		})
		require.Len(t, blocks, 1)
		assert.True(t, decimal.RequireFromString("1500").Equal(blocks[0].Amount))
	})
	t.Run("multiple addendums in table order", func(t *testing.T) {
		blocks := extractAddendums([][]string{
			{"Addendum #1", "", "$100.00"},
			{"Addendum #2", "", "$200.00"},
		})
		require.Len(t, blocks, 2)
		assert.Equal(t, 1, blocks[0].AddendumNumber)
		assert.Equal(t, 2, blocks[1].AddendumNumber)
	})
}

func TestClassifyStepStateTransitions(t *testing.T) {
	mainRow := RowData{Cells: []CellData{
		{BoldSpanText: "0020 Calimingo Pools", Text: "0020 Calimingo Pools", HTML: "0020 Calimingo Pools"},
		{Text: "1"},
		{Text: "$100.00"},
	}}
	subRow := RowData{Class: "subcat", Cells: []CellData{{Text: "Equipment"}}}
	itemRow := RowData{Cells: []CellData{
		{Text: "Pump", HTML: "Pump"},
		{Text: "2"},
		{Text: "$300.00"},
	}}

	st := categoryState{}

	res := classifyStep(st, mainRow, false)
	require.Len(t, res.emitted, 1)
	assert.Equal(t, models.KindMainCategory, res.emitted[0].Kind)
	assert.Equal(t, "0020 Calimingo Pools:", res.emitted[0].Label)
	st = res.state

	res = classifyStep(st, subRow, false)
	require.Len(t, res.emitted, 1)
	assert.Equal(t, models.KindSubcategory, res.emitted[0].Kind)
	assert.Equal(t, "Equipment:", res.emitted[0].Label)
	// Subcategory keeps the main category.
	require.NotNil(t, res.state.mainCategory)
	assert.Equal(t, "0020 Calimingo Pools:", *res.state.mainCategory)
	st = res.state

	res = classifyStep(st, itemRow, false)
	require.Len(t, res.emitted, 1)
	item := res.emitted[0]
	assert.Equal(t, models.KindLineItem, item.Kind)
	assert.Equal(t, "Pump", item.Label)
	require.NotNil(t, item.MainCategory)
	require.NotNil(t, item.SubCategory)
	assert.Equal(t, "0020 Calimingo Pools:", *item.MainCategory)
	assert.Equal(t, "Equipment:", *item.SubCategory)
	assert.True(t, decimal.RequireFromString("150").Equal(item.UnitRate))
	st = res.state

	// A new main category resets the subcategory.
	res = classifyStep(st, mainRow, false)
	assert.Nil(t, res.state.subCategory)
}

func TestClassifyStepLineItemGates(t *testing.T) {
	st := categoryState{}

	t.Run("zero-amount row dropped unless indented", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "Placeholder", HTML: "Placeholder"},
			{Text: "1"},
			{Text: "$0.00"},
		}}
		res := classifyStep(st, rd, false)
		assert.Empty(t, res.emitted)
	})

	t.Run("indented zero-amount row kept", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "Included in base", HTML: "Included in base", Style: "padding-left: 30px"},
			{Text: "1"},
			{Text: "$0.00"},
		}}
		res := classifyStep(st, rd, false)
		require.Len(t, res.emitted, 1)
		assert.True(t, res.emitted[0].Amount.IsZero())
	})

	t.Run("empty description rejected", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "", HTML: ""},
			{Text: "1"},
			{Text: "$50.00"},
		}}
		res := classifyStep(st, rd, false)
		assert.Empty(t, res.emitted)
	})

	t.Run("two-cell row rejected", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "Thing", HTML: "Thing"},
			{Text: "$50.00"},
		}}
		res := classifyStep(st, rd, false)
		assert.Empty(t, res.emitted)
		assert.False(t, res.dropped)
	})

	t.Run("plausible unmatched row counted as dropped", func(t *testing.T) {
		rd := RowData{Cells: []CellData{
			{Text: "Mystery", HTML: "Mystery"},
			{Text: ""},
			{Text: ""},
		}}
		res := classifyStep(st, rd, false)
		assert.Empty(t, res.emitted)
		assert.True(t, res.dropped)
	})
}

func TestClassifyStepEmptyCategorySynthesis(t *testing.T) {
	rd := RowData{Cells: []CellData{
		{BoldSpanText: "0020 Calimingo - Pools and Spas - R2", Text: "0020 Calimingo - Pools and Spas - R2", HTML: ""},
		{Text: "3"},
		{Text: "450.00"},
	}}

	res := classifyStep(categoryState{}, rd, true)
	require.Len(t, res.emitted, 2)

	cat, item := res.emitted[0], res.emitted[1]
	assert.Equal(t, models.KindMainCategory, cat.Kind)
	assert.Equal(t, "0020 Calimingo - Pools and Spas - R2:", cat.Label)

	assert.Equal(t, models.KindLineItem, item.Kind)
	assert.Equal(t, "0020 Calimingo - Pools and Spas - R2", item.Label)
	assert.True(t, decimal.RequireFromString("3").Equal(item.Quantity))
	assert.True(t, decimal.RequireFromString("150").Equal(item.UnitRate))
	assert.True(t, decimal.RequireFromString("450").Equal(item.Amount))
	require.NotNil(t, item.MainCategory)
	assert.Equal(t, cat.Label, *item.MainCategory)
}

func TestClassifyStepSynthesisZeroQuantityUsesAmountAsRate(t *testing.T) {
	rd := RowData{Cells: []CellData{
		{BoldSpanText: "0050 Calimingo Permits", Text: "0050 Calimingo Permits"},
		{Text: "0"},
		{Text: "$750.00"},
	}}
	res := classifyStep(categoryState{}, rd, true)
	require.Len(t, res.emitted, 2)
	item := res.emitted[1]
	assert.True(t, decimal.RequireFromString("750").Equal(item.UnitRate))
	assert.True(t, decimal.RequireFromString("750").Equal(item.Amount))
	assert.True(t, item.Quantity.IsZero())
}
