package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"github.com/rawrobot/robot-mqtt-simulator/internal/telemetry"
)

const (
	// Text Truncation
	EllipsisLength       = 3  // length of "..."
	MaxTopicDisplayWidth = 25 // maximum width for topic before truncation
	TruncatedTopicWidth  = 22 // topic width after truncation (25 - 3 for "...")
	MinimumPayloadWidth  = 10
	FallbackDisplayWidth = 120
	MaxDisplayedMessages = 1000 // maximum messages to keep in display
	MaxDisplayedEvents   = 200
)

// UI is the live view shown with -tui: published messages, connection
// events and per-topic counters.
type UI struct {
	app          *tview.Application
	messagesView *tview.TextView
	eventsView   *tview.TextView
	countsView   *tview.TextView
	statusView   *tview.TextView
	flex         *tview.Flex
	truncate     bool
}

func NewUI(truncate bool) *UI {
	app := tview.NewApplication()

	messagesView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(MaxDisplayedMessages)
	messagesView.SetBorder(true).SetTitle(" Published ")

	countsView := tview.NewTextView().
		SetDynamicColors(true)
	countsView.SetBorder(true).SetTitle(" Topics ")

	eventsView := tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetMaxLines(MaxDisplayedEvents)
	eventsView.SetBorder(true).SetTitle(" Connection ")

	statusView := tview.NewTextView().
		SetDynamicColors(true)
	statusView.SetBorder(true).SetTitle(" Status ")

	top := tview.NewFlex().
		AddItem(messagesView, 0, 3, true).
		AddItem(countsView, 34, 0, false)

	flex := tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(top, 0, 3, true).
		AddItem(eventsView, 0, 1, false).
		AddItem(statusView, 3, 0, false)

	return &UI{
		app:          app,
		messagesView: messagesView,
		eventsView:   eventsView,
		countsView:   countsView,
		statusView:   statusView,
		flex:         flex,
		truncate:     truncate,
	}
}

// Start blocks until the user quits or ctx is cancelled.
func (ui *UI) Start(ctx context.Context) error {
	ui.app.SetRoot(ui.flex, true)

	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		switch event.Key() {
		case tcell.KeyCtrlC, tcell.KeyEscape:
			ui.app.Stop()
			return nil
		case tcell.KeyTab:
			if ui.app.GetFocus() == ui.messagesView {
				ui.app.SetFocus(ui.eventsView)
			} else {
				ui.app.SetFocus(ui.messagesView)
			}
			return nil
		}
		return event
	})

	go func() {
		<-ctx.Done()
		ui.app.QueueUpdateDraw(func() {
			ui.app.Stop()
		})
	}()

	return ui.app.Run()
}

func (ui *UI) Stop() {
	go func() {
		time.Sleep(10 * time.Millisecond)
		ui.app.Stop()
	}()
}

func (ui *UI) AddMessages(msgs []PublishedMessage) {
	ui.app.QueueUpdateDraw(func() {
		width := ui.payloadWidth()
		for _, msg := range msgs {
			fmt.Fprintf(ui.messagesView, "%s\n", ui.formatMessage(msg, width))
		}
		ui.messagesView.ScrollToEnd()
	})
}

func (ui *UI) AddEvent(connected bool, err error) {
	timestamp := time.Now().Format("15:04:05.000")

	color, text := "green", "connected"
	if !connected {
		color, text = "red", "disconnected"
		if err != nil {
			text = err.Error()
		}
	}

	ui.app.QueueUpdateDraw(func() {
		fmt.Fprintf(ui.eventsView, "[yellow]%s[white] [%s]%s[white]\n", timestamp, color, text)
		ui.eventsView.ScrollToEnd()
	})
}

func (ui *UI) UpdateCounts(counts map[telemetry.Kind]int) {
	text := formatCounts(counts)
	ui.app.QueueUpdateDraw(func() {
		ui.countsView.SetText(text)
	})
}

func (ui *UI) UpdateStatus(status string) {
	ui.app.QueueUpdateDraw(func() {
		ui.statusView.Clear()
		fmt.Fprintf(ui.statusView, " %s | Press Ctrl+C or Esc to quit | Tab to switch views", status)
	})
}

// payloadWidth must run on the UI goroutine.
func (ui *UI) payloadWidth() int {
	_, _, width, _ := ui.messagesView.GetInnerRect()
	if width < 50 {
		return FallbackDisplayWidth
	}
	return width
}

func (ui *UI) formatMessage(msg PublishedMessage, width int) string {
	timestamp := msg.Timestamp.Format("15:04:05.000")

	if !ui.truncate {
		return fmt.Sprintf("[yellow]%s[white] [cyan]#%d[white] [green]%s[white] %s",
			timestamp, msg.Round, msg.DisplayTopic, tview.Escape(msg.Payload))
	}

	displayTopic := msg.DisplayTopic
	if len(displayTopic) > MaxTopicDisplayWidth {
		displayTopic = truncateText(displayTopic, TruncatedTopicWidth)
	}

	prefix := fmt.Sprintf("[yellow]%s[white] [cyan]#%d[white] [green]%s[white] ",
		timestamp, msg.Round, displayTopic)

	available := width - getVisibleLength(prefix)
	if available < MinimumPayloadWidth {
		available = MinimumPayloadWidth
	}

	return prefix + tview.Escape(truncateText(msg.Payload, available))
}

func formatCounts(counts map[telemetry.Kind]int) string {
	var b strings.Builder
	for _, kind := range telemetry.Kinds {
		fmt.Fprintf(&b, " [green]%-15s[white] %6d\n", kind, counts[kind])
	}
	return b.String()
}

func truncateText(text string, maxWidth int) string {
	if maxWidth <= 0 {
		return ""
	}
	if len(text) <= maxWidth {
		return text
	}
	if maxWidth <= EllipsisLength {
		return text[:maxWidth]
	}
	return text[:maxWidth-EllipsisLength] + "..."
}

// getVisibleLength strips tview color tags.
func getVisibleLength(text string) int {
	result := text
	for {
		start := strings.Index(result, "[")
		if start == -1 {
			break
		}
		end := strings.Index(result[start:], "]")
		if end == -1 {
			break
		}
		result = result[:start] + result[start+end+1:]
	}
	return len(result)
}
