package exec

import (
	"fmt"
	"io"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/fatih/color"
)

// Terminal rendering of a Result, a title bar followed by one line per row
// with every field padded to the widest value of its column.

const (
	ColorNone = iota
	ColorBlack
	ColorRed
	ColorGreen
	ColorYellow
	ColorBlue
	ColorMagenta
	ColorCyan
	ColorWhite
)

type Style struct {
	Color     int
	Bold      bool
	Underline bool
	Italic    bool
}

type Format struct {
	Title  Style
	Number Style
	String Style

	// minimum width of a column
	Padding int

	// string in between two columns
	Border string

	// disable escape sequences, ie when the output is not a terminal
	NoColor bool
}

func DefaultFormat() *Format {
	return &Format{
		Title: Style{
			Color: ColorCyan,
			Bold:  true,
		},
		Number:  Style{Color: ColorYellow},
		String:  Style{Color: ColorGreen},
		Padding: 8,
		Border:  " | ",
	}
}

func mapcolor(c int) color.Attribute {
	switch c {
	default:
		return color.Reset
	case ColorBlack:
		return color.FgBlack
	case ColorRed:
		return color.FgRed
	case ColorGreen:
		return color.FgGreen
	case ColorYellow:
		return color.FgYellow
	case ColorBlue:
		return color.FgBlue
	case ColorMagenta:
		return color.FgMagenta
	case ColorCyan:
		return color.FgCyan
	case ColorWhite:
		return color.FgWhite
	}
}

func (self *Format) stylish(s Style) *color.Color {
	cobj := color.New(mapcolor(s.Color))
	if s.Bold {
		cobj.Add(color.Bold)
	}
	if s.Underline {
		cobj.Add(color.Underline)
	}
	if s.Italic {
		cobj.Add(color.Italic)
	}
	if self.NoColor {
		cobj.DisableColor()
	} else {
		cobj.EnableColor()
	}
	return cobj
}

func isNumber(v string) bool {
	_, err := strconv.ParseFloat(v, 64)
	return err == nil
}

func pad(v string, width int, last bool) string {
	n := utf8.RuneCountInString(v)
	if last {
		return v
	}
	if n >= width {
		return v
	}
	return v + strings.Repeat(" ", width-n)
}

func (self *Format) widths(res *Result) []int {
	w := make([]int, len(res.Columns))
	for i, c := range res.Columns {
		w[i] = max(self.Padding, utf8.RuneCountInString(c))
	}
	for _, r := range res.Rows {
		for i, v := range r {
			if i < len(w) {
				w[i] = max(w[i], utf8.RuneCountInString(v))
			}
		}
	}
	return w
}

// Write renders res into w.
func (self *Format) Write(w io.Writer, res *Result) error {
	if res.Chart != "" {
		if _, err := fmt.Fprintf(w, "chart: %s\n", res.Chart); err != nil {
			return err
		}
	}
	if len(res.Columns) == 0 {
		return nil
	}

	width := self.widths(res)

	title := []string{}
	total := utf8.RuneCountInString(self.Border) * (len(width) - 1)
	for i, c := range res.Columns {
		title = append(title, pad(c, width[i], i == len(width)-1))
		total += width[i]
	}
	titleBar := strings.Join(title, self.Border)
	del := strings.Repeat("-", total)

	tcolor := self.stylish(self.Title)
	ncolor := self.stylish(self.Number)
	scolor := self.stylish(self.String)

	lines := []string{del, tcolor.Sprint(titleBar), del}
	for _, r := range res.Rows {
		fields := []string{}
		for i, v := range r {
			if i >= len(width) {
				break
			}
			v = pad(v, width[i], i == len(width)-1)
			if isNumber(strings.TrimSpace(v)) {
				fields = append(fields, ncolor.Sprint(v))
			} else {
				fields = append(fields, scolor.Sprint(v))
			}
		}
		lines = append(lines, strings.Join(fields, self.Border))
	}
	lines = append(lines, del)

	_, err := io.WriteString(w, strings.Join(lines, "\n")+"\n")
	return err
}
