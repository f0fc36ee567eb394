package views

import (
	"cmp"
	"fmt"
	"slices"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/deskchat/internal/model"
	"github.com/matheus3301/deskchat/internal/tui/ui"
)

// FAQView lists quick-help questions with the selected answer beside them.
type FAQView struct {
	*tview.Flex
	theme   *ui.Theme
	table   *tview.Table
	answer  *tview.TextView
	entries []model.FAQEntry
}

// NewFAQView creates the FAQ page.
func NewFAQView(theme *ui.Theme) *FAQView {
	table := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	table.SetBorder(true)
	table.SetBorderColor(theme.Border)
	table.SetBackgroundColor(theme.Bg)
	table.SetTitle(" FAQ ")
	table.SetTitleColor(theme.Title)
	table.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.CursorFg).
		Background(theme.CursorBg))

	answer := tview.NewTextView().
		SetDynamicColors(true).
		SetWordWrap(true)
	answer.SetBorder(true)
	answer.SetBorderColor(theme.Border)
	answer.SetBackgroundColor(theme.Bg)
	answer.SetTextColor(theme.Fg)
	answer.SetTitle(" Answer ")
	answer.SetTitleColor(theme.Title)

	fv := &FAQView{
		Flex: tview.NewFlex().
			AddItem(table, 0, 3, true).
			AddItem(answer, 0, 2, false),
		theme:  theme,
		table:  table,
		answer: answer,
	}
	table.SetSelectionChangedFunc(func(row, _ int) {
		fv.showAnswer(row - 1)
	})
	return fv
}

// Title implements ui.View.
func (fv *FAQView) Title() string { return "FAQ" }

// FocusTarget implements ui.View.
func (fv *FAQView) FocusTarget() tview.Primitive { return fv.Table() }

// Hints implements ui.View.
func (fv *FAQView) Hints() []ui.Hint {
	return []ui.Hint{
		{Key: "j/k", Label: "Move"},
		{Key: "Esc", Label: "Back"},
		{Key: ":", Label: "Command"},
	}
}

// Update replaces the entries, grouped by category.
func (fv *FAQView) Update(entries []model.FAQEntry) {
	fv.entries = sortFAQ(entries)
	fv.table.Clear()

	for col, h := range []string{" CATEGORY", " QUESTION"} {
		fv.table.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(fv.theme.HeaderFg).
			SetBackgroundColor(fv.theme.HeaderBg).
			SetAttributes(tcell.AttrBold))
	}
	for i, e := range fv.entries {
		row := i + 1
		category := e.Category
		if category == "" {
			category = "General"
		}
		fv.table.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(category)).SetMaxWidth(22).SetTextColor(fv.theme.Counter))
		fv.table.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(e.Question))).SetExpansion(1).SetTextColor(fv.theme.Fg))
	}

	if len(fv.entries) == 0 {
		fv.answer.Clear()
		_, _ = fmt.Fprint(fv.answer, "[::d]No questions available.[-:-:-]")
		return
	}
	fv.table.Select(1, 0)
	fv.showAnswer(0)
}

func (fv *FAQView) showAnswer(idx int) {
	fv.answer.Clear()
	if idx < 0 || idx >= len(fv.entries) {
		return
	}
	e := fv.entries[idx]
	_, _ = fmt.Fprintf(fv.answer, "[::b]%s[-:-:-]\n\n%s",
		tview.Escape(sanitizeForTerminal(e.Question)), tview.Escape(sanitizeForTerminal(e.Answer)))
	fv.answer.ScrollToBeginning()
}

// Table returns the question table (for focus management).
func (fv *FAQView) Table() *tview.Table {
	return fv.table
}

// sortFAQ orders entries by category, keeping server order within one.
func sortFAQ(entries []model.FAQEntry) []model.FAQEntry {
	out := slices.Clone(entries)
	slices.SortStableFunc(out, func(a, b model.FAQEntry) int {
		return cmp.Compare(a.Category, b.Category)
	})
	return out
}
