package quickinstall

import (
	"fmt"
	"io"
	"time"

	"github.com/fatih/color"
)

func logstep(w io.Writer, text string) {
	fmt.Fprintln(w,
		color.BlueString(" •"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func logdetail(w io.Writer, text string) {
	fmt.Fprintln(w,
		color.New(color.FgHiBlack).Sprint("   └"),
		color.New(color.FgHiBlack).Sprint(text),
	)
}

func logresult(w io.Writer, start time.Time, err error) {
	elapsed := time.Since(start).Round(time.Millisecond)
	if err != nil {
		color.New(color.FgRed).Fprintf(w, "     ✘ %s\n", elapsed)
		return
	}
	color.New(color.FgGreen).Fprintf(w, "     ✔ %s\n", elapsed)
}
