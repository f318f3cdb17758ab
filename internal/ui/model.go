package ui

import (
	"reflect"
	"time"

	"github.com/atomicstack/openhab-popup/internal/backend"
	"github.com/atomicstack/openhab-popup/internal/command"
	"github.com/atomicstack/openhab-popup/internal/data/dispatcher"
	"github.com/atomicstack/openhab-popup/internal/state"
	"github.com/atomicstack/openhab-popup/internal/theme"
	uistate "github.com/atomicstack/openhab-popup/internal/ui/state"
	"github.com/charmbracelet/bubbles/cursor"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
)

type level = uistate.Level

const (
	levelID      = "sitemap"
	defaultTitle = "openHAB"
)

var styles = theme.Default()

type msgHandler func(tea.Msg) tea.Cmd

// Options configures a Model.
type Options struct {
	Width      int
	Height     int
	ShowFooter bool
	// Refresh keeps the sitemap live by re-arming long polls after each page.
	Refresh bool
	// Watcher drives fetching. A nil watcher leaves the model static.
	Watcher *backend.Watcher
	// Seed is shown before any fetch completes, or alone in preview mode.
	Seed *state.Page
}

// CommandResultMsg reports the outcome of a command sent for a widget.
type CommandResultMsg struct {
	Result command.Result
}

// RestartMsg restarts the sync loop with a fresh short fetch.
type RestartMsg struct{}

// Model implements the Bubble Tea model for the sitemap popup.
type Model struct {
	level             *level
	title             string
	errMsg            string
	infoMsg           string
	infoExpire        time.Time
	width             int
	height            int
	fixedWidth        bool
	fixedHeight       bool
	showFooter        bool
	refresh           bool
	backend           *backend.Watcher
	widgets           state.WidgetStore
	dispatcher        *dispatcher.Dispatcher
	pending           map[string]string
	confirmations     map[string]func()
	spinner           spinner.Model
	spinning          bool
	filterCursor      cursor.Model
	filterCursorDirty bool

	handlers   map[reflect.Type]msgHandler
	awaitEvent func(*backend.Watcher) tea.Cmd
}

// NewModel initialises the UI state for one sitemap page.
func NewModel(opts Options) *Model {
	widgets := state.NewWidgetStore()
	var current dispatcher.GenerationSource
	if opts.Watcher != nil {
		current = opts.Watcher
	}
	m := &Model{
		level:         uistate.NewLevel(levelID, defaultTitle, nil),
		title:         defaultTitle,
		showFooter:    opts.ShowFooter,
		refresh:       opts.Refresh,
		backend:       opts.Watcher,
		widgets:       widgets,
		dispatcher:    dispatcher.New(widgets, current),
		pending:       make(map[string]string),
		confirmations: make(map[string]func()),
		awaitEvent:    waitForBackendEvent,
	}
	if opts.Width > 0 {
		m.width = opts.Width
		m.fixedWidth = true
	}
	if opts.Height > 0 {
		m.height = opts.Height
		m.fixedHeight = true
	}
	s := spinner.New(spinner.WithSpinner(spinner.MiniDot))
	if styles.Spinner != nil {
		s.Style = styles.Spinner.Copy()
	}
	m.spinner = s
	c := cursor.New()
	if styles.Cursor != nil {
		c.Style = styles.Cursor.Copy()
	}
	if styles.Filter != nil {
		c.TextStyle = styles.Filter.Copy()
	}
	c.SetChar(" ")
	m.filterCursor = c
	if opts.Seed != nil {
		widgets.Replace(opts.Seed)
		m.rebuildItems()
	}
	m.registerHandlers()
	return m
}

// Init is part of the tea.Model interface.
func (m *Model) Init() tea.Cmd {
	cmds := []tea.Cmd{}
	if m.backend != nil {
		if cmd := m.restart(); cmd != nil {
			cmds = append(cmds, cmd)
		}
		if cmd := m.awaitEvent(m.backend); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if cmd := m.filterCursor.Focus(); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Update responds to Bubble Tea messages.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	cmds := make([]tea.Cmd, 0, 4)
	if cmd := m.updateFilterCursorModel(msg); cmd != nil {
		cmds = append(cmds, cmd)
	}
	if handler := m.handlerFor(msg); handler != nil {
		if cmd := handler(msg); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	return m, m.finishUpdate(cmds)
}

func (m *Model) registerHandlers() {
	m.handlers = map[reflect.Type]msgHandler{
		reflect.TypeOf(tea.KeyMsg{}):        m.handleKeyMsg,
		reflect.TypeOf(tea.WindowSizeMsg{}): m.handleWindowSizeMsg,
		reflect.TypeOf(backendEventMsg{}):   m.handleBackendEventMsg,
		reflect.TypeOf(backendDoneMsg{}):    m.handleBackendDoneMsg,
		reflect.TypeOf(CommandResultMsg{}):  m.handleCommandResultMsg,
		reflect.TypeOf(RestartMsg{}):        m.handleRestartMsg,
		reflect.TypeOf(spinner.TickMsg{}):   m.handleSpinnerTickMsg,
	}
}

func (m *Model) handlerFor(msg tea.Msg) msgHandler {
	if msg == nil || m.handlers == nil {
		return nil
	}
	t := reflect.TypeOf(msg)
	if handler, ok := m.handlers[t]; ok {
		return handler
	}
	if t.Kind() == reflect.Ptr {
		if handler, ok := m.handlers[t.Elem()]; ok {
			return handler
		}
	}
	return nil
}

func (m *Model) finishUpdate(cmds []tea.Cmd) tea.Cmd {
	if m.filterCursorDirty {
		m.filterCursorDirty = false
		m.filterCursor.Blink = false
		if cmd := m.filterCursor.BlinkCmd(); cmd != nil {
			cmds = append(cmds, cmd)
		}
	}
	if len(cmds) == 0 {
		return nil
	}
	return tea.Batch(cmds...)
}

// Widgets exposes the store the model renders from.
func (m *Model) Widgets() state.WidgetStore {
	return m.widgets
}

// Pending reports the command awaiting confirmation for item, if any.
func (m *Model) Pending(item string) (string, bool) {
	cmd, ok := m.pending[item]
	return cmd, ok
}

func (m *Model) rebuildItems() {
	page := m.widgets.Page()
	if page == nil {
		m.level.UpdateItems(nil)
		return
	}
	if page.Title != "" {
		m.title = page.Title
	}
	flat := page.Flatten()
	items := make([]uistate.Item, 0, len(flat))
	for _, w := range flat {
		items = append(items, widgetItem(w))
	}
	m.level.UpdateItems(items)
	m.syncViewport(m.level)
}

// widgetItem is the filterable row for w. Rows match on the bound item name
// and the displayed value as well as the label.
func widgetItem(w *state.Widget) uistate.Item {
	row := uistate.Item{ID: w.ID(), Label: w.LabelText()}
	if parent := w.Parent(); parent != nil {
		row.Parent = parent.ID()
	}
	if item := w.Item(); item != nil && item.Name != "" {
		row.Terms = append(row.Terms, item.Name)
	}
	if value := w.LabelValue(); value != "" {
		row.Terms = append(row.Terms, value)
	}
	return row
}

func (m *Model) busy() bool {
	if m.backend == nil {
		return false
	}
	return m.backend.State() == backend.StateFetching && !m.backend.LongPolling()
}
