package ui

import (
	"github.com/charmbracelet/bubbles/list"
	tea "github.com/charmbracelet/bubbletea"

	"github.com/desertthunder/ampsync/internal/models"
)

// pane identifies which list a stream feeds. Detail panes carry a generation so
// emissions from a view the user already left are dropped.
type pane struct {
	kind   models.ResourceType
	detail bool
	gen    int
}

// streamMsg is one emission of a reconciliation stream, already converted to list items.
type streamMsg struct {
	pane    pane
	status  models.Status
	loading bool
	items   []list.Item
	network bool
	message string
	next    tea.Cmd
}

// streamDoneMsg reports that a stream closed.
type streamDoneMsg struct {
	pane pane
}

// likedMsg reports the outcome of a like toggle.
type likedMsg struct {
	kind    models.ResourceType
	id      string
	flag    int
	message string
	err     error
}

// listen reads one emission from stream and returns it with a command for the next.
func listen[T any](p pane, stream <-chan models.Resource[T], toItems func(T) []list.Item) tea.Cmd {
	return func() tea.Msg {
		res, ok := <-stream
		if !ok {
			return streamDoneMsg{pane: p}
		}

		msg := streamMsg{
			pane:    p,
			status:  res.Status,
			loading: res.Loading,
			network: res.HasNetwork,
			message: res.Message,
			next:    listen(p, stream, toItems),
		}
		if res.IsSuccess() {
			msg.items = toItems(res.Data)
		}
		return msg
	}
}
