package batch

import (
	"fmt"
	"io"
	"sync"

	"github.com/manash/iconforge/internal/project"
)

type EventType string

const (
	EventBatchStarted  EventType = "batch_started"
	EventItem          EventType = "item"
	EventBatchFinished EventType = "batch_finished"
)

// Event reports a queue transition. Index and Total are set for items run
// as part of RunAll and zero otherwise.
type Event struct {
	Type      EventType         `json:"type"`
	ProjectID string            `json:"projectId"`
	Item      project.QueueItem `json:"item,omitzero"`
	Index     int               `json:"index,omitempty"`
	Total     int               `json:"total,omitempty"`
	Summary   *Summary          `json:"summary,omitempty"`
}

type Notifier interface {
	Notify(e Event)
}

type NotifierFunc func(e Event)

func (f NotifierFunc) Notify(e Event) { f(e) }

// Multi fans one event out to several notifiers.
type Multi []Notifier

func (m Multi) Notify(e Event) {
	for _, n := range m {
		if n != nil {
			n.Notify(e)
		}
	}
}

// WriterNotifier prints progress lines for a terminal.
type WriterNotifier struct {
	out io.Writer
	err io.Writer
	mu  sync.Mutex
}

func NewWriterNotifier(out, errOut io.Writer) *WriterNotifier {
	return &WriterNotifier{out: out, err: errOut}
}

func (w *WriterNotifier) Notify(e Event) {
	w.mu.Lock()
	defer w.mu.Unlock()

	if e.Type != EventItem {
		return
	}
	pos := ""
	if e.Total > 0 {
		pos = fmt.Sprintf("[%d/%d] ", e.Index, e.Total)
	}
	switch e.Item.Status {
	case project.StatusGenerating:
		fmt.Fprintf(w.out, "%sGenerating: %q...\n", pos, truncate(e.Item.Prompt, 50))
	case project.StatusCompleted:
		if e.Item.Result != nil && e.Item.Result.Cost > 0 {
			fmt.Fprintf(w.out, "       Completed: %s ($%.4f)\n", e.Item.Name, e.Item.Result.Cost)
		} else {
			fmt.Fprintf(w.out, "       Completed: %s\n", e.Item.Name)
		}
	case project.StatusFailed:
		fmt.Fprintf(w.err, "       Error: %s\n", e.Item.Error)
	}
}

func truncate(s string, maxLen int) string {
	r := []rune(s)
	if len(r) <= maxLen {
		return s
	}
	return string(r[:maxLen-3]) + "..."
}

func PrintSummary(out io.Writer, s *Summary) {
	var failures []ItemResult
	for _, r := range s.Results {
		if r.Status != project.StatusCompleted {
			failures = append(failures, r)
		}
	}

	fmt.Fprintln(out)
	fmt.Fprintln(out, "Summary:")
	fmt.Fprintf(out, "  Completed: %d/%d items\n", s.Completed, len(s.Results))
	if s.Failed > 0 {
		fmt.Fprintf(out, "  Failed: %d (see errors below)\n", s.Failed)
	}
	fmt.Fprintf(out, "  Total cost: $%.4f\n", s.TotalCost)

	if len(failures) > 0 {
		fmt.Fprintln(out)
		fmt.Fprintln(out, "Errors:")
		for _, f := range failures {
			label := f.Name
			if label == "" {
				label = f.ItemID
			}
			fmt.Fprintf(out, "  %q: %s\n", truncate(label, 40), f.Error)
		}
	}
}
