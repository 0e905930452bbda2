package pipeline

import (
	"io"
	"strconv"

	"github.com/jedib0t/go-pretty/v6/table"
)

// RenderTable prints a run summary and its deliveries to w.
func RenderTable(w io.Writer, out *Outcome) {
	tw := table.NewWriter()
	tw.SetOutputMirror(w)
	tw.SetStyle(table.StyleLight)
	tw.SetTitle("run " + out.Record.ID)
	tw.AppendRow(table.Row{"Collection", out.Record.Collection})
	tw.AppendRow(table.Row{"State", out.Record.State})
	if s := out.Record.Summary; s != nil {
		tw.AppendRow(table.Row{"Name", s.CollectionName})
		tw.AppendRow(table.Row{"Requests", s.TotalRequests})
		tw.AppendRow(table.Row{"Passed", s.PassedAssertions})
		tw.AppendRow(table.Row{"Failed", s.FailedAssertions})
	}
	if out.Record.Error != "" {
		tw.AppendRow(table.Row{"Error", out.Record.Error})
	}
	tw.AppendSeparator()
	for _, d := range out.Deliveries {
		status := "ok"
		if !d.OK {
			status = "error: " + d.Error
		}
		id := ""
		if d.MessageID != 0 {
			id = " #" + strconv.FormatInt(d.MessageID, 10)
		}
		tw.AppendRow(table.Row{string(d.Method) + id, status})
	}
	tw.Render()
}
