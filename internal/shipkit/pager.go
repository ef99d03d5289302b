package shipkit

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"
	"golang.org/x/term"
)

// showListing prints lines to out, or opens a scrollable viewer when out is a
// terminal too small to hold them.
func showListing(out io.Writer, title string, lines []string) error {
	if !interactive(out) {
		for _, line := range lines {
			fmt.Fprintln(out, line)
		}
		return nil
	}

	if f, ok := out.(*os.File); ok {
		// Leave room for the border and the footer.
		if _, height, err := term.GetSize(int(f.Fd())); err == nil && len(lines) <= height-3 {
			for _, line := range lines {
				fmt.Fprintln(out, line)
			}
			return nil
		}
	}

	app := tview.NewApplication()

	textView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetWrap(false)
	textView.SetBorder(true).SetTitle(" " + title + " ")
	fmt.Fprint(tview.ANSIWriter(textView), strings.Join(lines, "\n"))

	footer := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter).
		SetText("[gray]↑/↓, PgUp/PgDn, Home/End scroll. 'q' or Esc quits.[white]")

	flex := tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(textView, 0, 1, true).
		AddItem(footer, 1, 0, false)

	app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyEsc, tcell.KeyCtrlQ:
			app.Stop()
			return nil
		case tcell.KeyRune:
			if event.Rune() == 'q' {
				app.Stop()
				return nil
			}
		}
		return event
	})

	if err := app.SetRoot(flex, true).SetFocus(textView).Run(); err != nil {
		return fmt.Errorf("pager execution failed: %w", err)
	}
	return nil
}
