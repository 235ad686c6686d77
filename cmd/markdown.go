package cmd

import (
	"fmt"
	"os"

	"github.com/charmbracelet/glamour"
)

// printMarkdown renders markdown reports for the terminal. When rendering is
// not possible the raw markdown is printed, still perfectly readable.
func printMarkdown(md string) {
	r, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(120),
	)
	if err != nil {
		fmt.Fprint(os.Stdout, md)
		return
	}
	out, err := r.Render(md)
	if err != nil {
		fmt.Fprint(os.Stdout, md)
		return
	}
	fmt.Fprint(os.Stdout, out)
}
