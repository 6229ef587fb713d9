package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/tOgg1/reperage/internal/chat"
)

// tailPrinter writes each message once, in thread order.
type tailPrinter struct {
	out         io.Writer
	errOut      io.Writer
	seen        map[int64]struct{}
	placeholder bool
}

type tailLine struct {
	ReportID   int64  `json:"report_id"`
	MessageID  int64  `json:"id"`
	AuthorType string `json:"author_type"`
	AuthorName string `json:"author_name"`
	Time       string `json:"time"`
	Content    string `json:"content"`
}

func newTailPrinter(out, errOut io.Writer) *tailPrinter {
	return &tailPrinter{out: out, errOut: errOut, seen: make(map[int64]struct{})}
}

func (p *tailPrinter) handle(u chat.Update) {
	switch u.Kind {
	case chat.UpdateMessages:
		p.printDisplay(u.ReportID, u.Display)
	case chat.UpdateNotice:
		fmt.Fprintln(p.errOut, u.Notice.Text)
	case chat.UpdateReport:
		p.seen = make(map[int64]struct{})
		p.placeholder = false
		fmt.Fprintf(p.errOut, "-- report %d --\n", u.ReportID)
	}
}

func (p *tailPrinter) printDisplay(reportID int64, d chat.Display) {
	if d.Empty() {
		if !p.placeholder && !jsonOutput {
			fmt.Fprintf(p.out, "%s\n%s\n", d.Placeholder.Title, d.Placeholder.Hint)
		}
		p.placeholder = true
		return
	}
	for _, entry := range d.Entries {
		if _, ok := p.seen[entry.MessageID]; ok {
			continue
		}
		p.seen[entry.MessageID] = struct{}{}
		if jsonOutput {
			line := tailLine{
				ReportID:   reportID,
				MessageID:  entry.MessageID,
				AuthorType: string(entry.AuthorClass),
				AuthorName: entry.AuthorName,
				Time:       entry.Time,
				Content:    strings.Join(entry.Lines, "\n"),
			}
			payload, err := json.Marshal(line)
			if err != nil {
				continue
			}
			fmt.Fprintln(p.out, string(payload))
			continue
		}
		fmt.Fprintf(p.out, "[%s] %s: %s\n", entry.Time, entry.AuthorName, strings.Join(entry.Lines, "\n    "))
	}
}
