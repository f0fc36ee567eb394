package views

import (
	"fmt"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/matheus3301/deskchat/internal/store"
	"github.com/matheus3301/deskchat/internal/tui/ui"
)

// SearchView searches the local message archive.
type SearchView struct {
	*tview.Flex
	theme   *ui.Theme
	input   *tview.InputField
	results *tview.Table
	onQuery func(query string)
	data    []store.SearchResult
}

// NewSearchView creates the archive search page.
func NewSearchView(theme *ui.Theme) *SearchView {
	input := tview.NewInputField().
		SetLabel(" Search archive: ").
		SetFieldWidth(0)
	input.SetBackgroundColor(theme.Bg)
	input.SetFieldBackgroundColor(theme.Bg)
	input.SetFieldTextColor(theme.Fg)
	input.SetLabelColor(theme.Key)

	results := tview.NewTable().
		SetSelectable(true, false).
		SetBorders(false).
		SetFixed(1, 0)
	results.SetBorder(true)
	results.SetBorderColor(theme.Border)
	results.SetBackgroundColor(theme.Bg)
	results.SetTitle(" Results ")
	results.SetTitleColor(theme.Title)
	results.SetSelectedStyle(tcell.StyleDefault.
		Foreground(theme.CursorFg).
		Background(theme.CursorBg))

	sv := &SearchView{
		Flex: tview.NewFlex().
			SetDirection(tview.FlexRow).
			AddItem(input, 1, 0, true).
			AddItem(results, 0, 1, false),
		theme:   theme,
		input:   input,
		results: results,
	}
	input.SetDoneFunc(func(key tcell.Key) {
		if key == tcell.KeyEnter && sv.onQuery != nil {
			sv.onQuery(sv.input.GetText())
		}
	})
	return sv
}

// Title implements ui.View.
func (sv *SearchView) Title() string { return "Search" }

// FocusTarget implements ui.View.
func (sv *SearchView) FocusTarget() tview.Primitive { return sv.Input() }

// Hints implements ui.View.
func (sv *SearchView) Hints() []ui.Hint {
	return []ui.Hint{
		{Key: "Enter", Label: "Search"},
		{Key: "Tab", Label: "Results"},
		{Key: "Esc", Label: "Back"},
	}
}

// SetOnQuery sets the callback for a submitted query.
func (sv *SearchView) SetOnQuery(fn func(query string)) {
	sv.onQuery = fn
}

// SetQuery fills the input, as when a search starts from the prompt.
func (sv *SearchView) SetQuery(q string) {
	sv.input.SetText(q)
}

// Update renders results.
func (sv *SearchView) Update(results []store.SearchResult) {
	sv.data = results
	sv.results.Clear()

	for col, h := range []string{" FROM", " SNIPPET", " TIME"} {
		sv.results.SetCell(0, col, tview.NewTableCell(h).
			SetSelectable(false).
			SetTextColor(sv.theme.HeaderFg).
			SetBackgroundColor(sv.theme.HeaderBg).
			SetAttributes(tcell.AttrBold))
	}

	for i, r := range results {
		row := i + 1
		from := r.Message.SenderName
		if from == "" {
			from = r.Message.SenderRole
		}
		sv.results.SetCell(row, 0, tview.NewTableCell(" "+tview.Escape(from)).SetMaxWidth(20).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(row, 1, tview.NewTableCell(" "+tview.Escape(sanitizeForTerminal(r.Snippet))).SetExpansion(1).SetTextColor(sv.theme.Fg))
		sv.results.SetCell(row, 2, tview.NewTableCell(" "+formatMillis(r.Message.CreatedAt)).SetMaxWidth(12).SetTextColor(sv.theme.Fg))
	}
	sv.results.SetTitle(fmt.Sprintf(" Results (%d) ", len(results)))
}

// Selected returns the highlighted result.
func (sv *SearchView) Selected() (store.SearchResult, bool) {
	row, _ := sv.results.GetSelection()
	idx := row - 1
	if idx >= 0 && idx < len(sv.data) {
		return sv.data[idx], true
	}
	return store.SearchResult{}, false
}

// Input returns the query field.
func (sv *SearchView) Input() *tview.InputField {
	return sv.input
}

// Results returns the results table.
func (sv *SearchView) Results() *tview.Table {
	return sv.results
}
