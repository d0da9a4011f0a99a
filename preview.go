package bankloader

import (
	"strconv"
	"strings"

	"github.com/gookit/color"
	"github.com/mattn/go-runewidth"
)

// DefaultPreviewRows is the number of rows shown in preview mode.
const DefaultPreviewRows = 5

const maxCellWidth = 24

// RenderPreview formats t as an aligned text table with a highlighted header.
func RenderPreview(t *Table) string {
	widths := make([]int, len(t.Columns))
	cells := make([][]string, len(t.Rows))

	for i, c := range t.Columns {
		widths[i] = runewidth.StringWidth(c)
	}
	for r, row := range t.Rows {
		cells[r] = make([]string, len(row))
		for i, v := range row {
			s := runewidth.Truncate(v.String(), maxCellWidth, "…")
			cells[r][i] = s
			if w := runewidth.StringWidth(s); w > widths[i] {
				widths[i] = w
			}
		}
	}

	var b strings.Builder
	header := make([]string, len(t.Columns))
	for i, c := range t.Columns {
		header[i] = color.Bold.Sprint(runewidth.FillRight(c, widths[i]))
	}
	b.WriteString(strings.Join(header, "  "))
	b.WriteByte('\n')

	for _, row := range cells {
		line := make([]string, len(row))
		for i, s := range row {
			line[i] = runewidth.FillRight(s, widths[i])
		}
		b.WriteString(strings.TrimRight(strings.Join(line, "  "), " "))
		b.WriteByte('\n')
	}

	b.WriteString("(" + strconv.Itoa(len(t.Rows)) + " rows)")

	return b.String()
}

func formatPercent(p float64) string {
	return strconv.FormatFloat(p, 'f', 2, 64) + "%"
}

func formatMegaBytes(mb float64) string {
	return strconv.FormatFloat(mb, 'f', 2, 64) + " MB"
}
