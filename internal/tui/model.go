// Package tui renders the mounted dashboard pages in the terminal.
package tui

import (
	"context"
	"fmt"
	"strings"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/Domenick1991/airdash/internal/apiclient"
	"github.com/Domenick1991/airdash/internal/dashboard"
	"github.com/Domenick1991/airdash/internal/domain"
	"github.com/Domenick1991/airdash/internal/notify"
	"github.com/Domenick1991/airdash/internal/view"
)

const actionTimeout = 15 * time.Second

// Dashboard is what the terminal UI reads from and acts on.
type Dashboard interface {
	Pages() []string
	Snapshot(name string) (interface{}, error)
	Watch(name string) (<-chan struct{}, func(), error)
	Book(ctx context.Context, flightID int64) (*apiclient.PurchaseReceipt, error)
	Approve(ctx context.Context, id int64) (*domain.Flight, error)
	CancelTicket(ctx context.Context, ticketID int64) error
}

type Notifications interface {
	Subscribe(buffer int) (<-chan notify.Notification, func())
}

// pageChangedMsg reports that a page's state changed; closed means the
// page was unmounted.
type pageChangedMsg struct {
	page   string
	closed bool
}

type notificationMsg struct {
	n notify.Notification
}

type actionResultMsg struct {
	what string
	err  error
}

type row struct {
	id   int64
	text string
}

type Model struct {
	dash    Dashboard
	changes chan pageChangedMsg
	toasts  <-chan notify.Notification

	pages  []string
	active int
	cursor int
	rows   []row
	header string
	toast  *notify.Notification
	status string
	width  int
}

var (
	tabStyle       = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("245"))
	activeTabStyle = tabStyle.Foreground(lipgloss.Color("15")).Background(lipgloss.Color("62")).Bold(true)
	cursorStyle    = lipgloss.NewStyle().Reverse(true)
	helpStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("241"))
	headerStyle    = lipgloss.NewStyle().Bold(true).MarginBottom(1)
	toastStyles    = map[notify.Level]lipgloss.Style{
		notify.LevelSuccess: lipgloss.NewStyle().Foreground(lipgloss.Color("42")),
		notify.LevelError:   lipgloss.NewStyle().Foreground(lipgloss.Color("196")),
		notify.LevelWarning: lipgloss.NewStyle().Foreground(lipgloss.Color("214")),
		notify.LevelInfo:    lipgloss.NewStyle().Foreground(lipgloss.Color("39")),
	}
)

// NewModel watches every mounted page. The returned stop func releases
// the watches; call it after the program exits.
func NewModel(dash Dashboard, notifications Notifications) (Model, func()) {
	m := Model{dash: dash, changes: make(chan pageChangedMsg, 16), pages: dash.Pages()}

	var cancels []func()
	for _, page := range m.pages {
		ticks, cancel, err := dash.Watch(page)
		if err != nil {
			continue
		}
		cancels = append(cancels, cancel)
		go forward(page, ticks, m.changes)
	}
	if notifications != nil {
		toasts, cancel := notifications.Subscribe(8)
		m.toasts = toasts
		cancels = append(cancels, cancel)
	}
	m.reload()
	return m, func() {
		for _, cancel := range cancels {
			cancel()
		}
	}
}

func forward(page string, ticks <-chan struct{}, out chan<- pageChangedMsg) {
	for range ticks {
		select {
		case out <- pageChangedMsg{page: page}:
		default:
		}
	}
	out <- pageChangedMsg{page: page, closed: true}
}

func listen(changes <-chan pageChangedMsg) tea.Cmd {
	return func() tea.Msg { return <-changes }
}

func listenToasts(toasts <-chan notify.Notification) tea.Cmd {
	if toasts == nil {
		return nil
	}
	return func() tea.Msg {
		n, ok := <-toasts
		if !ok {
			return nil
		}
		return notificationMsg{n: n}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(listen(m.changes), listenToasts(m.toasts))
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		return m, nil

	case pageChangedMsg:
		if msg.closed {
			m.pages = m.dash.Pages()
			if m.active >= len(m.pages) {
				m.active = 0
			}
		}
		if msg.closed || msg.page == m.page() {
			m.reload()
		}
		return m, listen(m.changes)

	case notificationMsg:
		n := msg.n
		m.toast = &n
		return m, listenToasts(m.toasts)

	case actionResultMsg:
		if msg.err != nil {
			m.status = fmt.Sprintf("%s failed: %s", msg.what, apiclient.Message(msg.err, msg.err.Error()))
		} else {
			m.status = msg.what + " sent"
		}
		m.reload()
		return m, nil

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

func (m Model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	switch msg.String() {
	case "q", "ctrl+c":
		return m, tea.Quit
	case "tab", "right", "l":
		if len(m.pages) > 0 {
			m.active = (m.active + 1) % len(m.pages)
			m.cursor = 0
			m.reload()
		}
	case "shift+tab", "left", "h":
		if len(m.pages) > 0 {
			m.active = (m.active - 1 + len(m.pages)) % len(m.pages)
			m.cursor = 0
			m.reload()
		}
	case "down", "j":
		if m.cursor < len(m.rows)-1 {
			m.cursor++
		}
	case "up", "k":
		if m.cursor > 0 {
			m.cursor--
		}
	case "enter", "b", "a", "x":
		return m, m.act(msg.String())
	}
	return m, nil
}

// act runs the page's primary action on the selected row.
func (m Model) act(key string) tea.Cmd {
	if m.cursor >= len(m.rows) {
		return nil
	}
	id := m.rows[m.cursor].id
	dash := m.dash
	var what string
	var run func(ctx context.Context) error

	switch {
	case m.page() == dashboard.PageFlights && (key == "enter" || key == "b"):
		what = "Booking"
		run = func(ctx context.Context) error { _, err := dash.Book(ctx, id); return err }
	case m.page() == dashboard.PagePending && (key == "enter" || key == "a"):
		what = "Approval"
		run = func(ctx context.Context) error { _, err := dash.Approve(ctx, id); return err }
	case m.page() == dashboard.PageTickets && key == "x":
		what = "Ticket cancellation"
		run = func(ctx context.Context) error { return dash.CancelTicket(ctx, id) }
	default:
		return nil
	}
	return func() tea.Msg {
		ctx, cancel := context.WithTimeout(context.Background(), actionTimeout)
		defer cancel()
		return actionResultMsg{what: what, err: run(ctx)}
	}
}

func (m Model) page() string {
	if m.active < len(m.pages) {
		return m.pages[m.active]
	}
	return ""
}

func (m *Model) reload() {
	m.rows, m.header = nil, ""
	page := m.page()
	if page == "" {
		return
	}
	snap, err := m.dash.Snapshot(page)
	if err != nil {
		m.header = err.Error()
		return
	}
	m.header, m.rows = render(snap)
	if m.cursor >= len(m.rows) {
		m.cursor = max(len(m.rows)-1, 0)
	}
}

func (m Model) View() string {
	var b strings.Builder

	tabs := make([]string, 0, len(m.pages))
	for i, p := range m.pages {
		if i == m.active {
			tabs = append(tabs, activeTabStyle.Render(p))
		} else {
			tabs = append(tabs, tabStyle.Render(p))
		}
	}
	b.WriteString(lipgloss.JoinHorizontal(lipgloss.Top, tabs...))
	b.WriteString("\n\n")
	if len(m.pages) == 0 {
		b.WriteString("Signed out. Restart to sign in again.\n")
	}
	if m.header != "" {
		b.WriteString(headerStyle.Render(m.header))
		b.WriteString("\n")
	}
	for i, r := range m.rows {
		line := r.text
		if i == m.cursor {
			line = cursorStyle.Render(line)
		}
		b.WriteString(line)
		b.WriteString("\n")
	}

	b.WriteString("\n")
	if m.toast != nil {
		style := toastStyles[m.toast.Level]
		b.WriteString(style.Render(strings.TrimSpace(m.toast.Title + ": " + m.toast.Body)))
		b.WriteString("\n")
	}
	if m.status != "" {
		b.WriteString(m.status)
		b.WriteString("\n")
	}
	b.WriteString(helpStyle.Render("tab switch page · j/k move · enter act · x cancel ticket · q quit"))
	return b.String()
}

func render(snap interface{}) (string, []row) {
	switch s := snap.(type) {
	case view.FlightsSnapshot:
		header := fmt.Sprintf("Upcoming %d · In progress %d · Finished %d", len(s.Upcoming), len(s.InProgress), len(s.Finished))
		return withStatus(header, s.Status), flightRows(s.Upcoming)
	case view.PendingSnapshot:
		return withStatus(fmt.Sprintf("Awaiting approval: %d", len(s.Pending)), s.Status), flightRows(s.Pending)
	case view.ManagerSnapshot:
		return withStatus(fmt.Sprintf("My flights: %d", len(s.Flights)), s.Status), flightRows(s.Flights)
	case view.ListSnapshot[domain.Ticket]:
		rows := make([]row, 0, len(s.Items))
		for _, t := range s.Items {
			state := "active"
			if t.Cancelled {
				state = "cancelled"
			}
			rows = append(rows, row{id: t.ID, text: fmt.Sprintf("#%-5d %-24s %8.2f EUR  %s", t.ID, t.FlightName("-"), t.Price, state)})
		}
		return withStatus(fmt.Sprintf("My tickets: %d", len(s.Items)), s.Status), rows
	case view.ListSnapshot[domain.FlightRating]:
		rows := make([]row, 0, len(s.Items))
		for _, r := range s.Items {
			rows = append(rows, row{id: r.ID, text: fmt.Sprintf("flight %-5d %s  %s", r.FlightID, strings.Repeat("*", r.Score), r.Comment)})
		}
		return withStatus(fmt.Sprintf("Ratings: %d", len(s.Items)), s.Status), rows
	case view.ListSnapshot[domain.User]:
		rows := make([]row, 0, len(s.Items))
		for _, u := range s.Items {
			rows = append(rows, row{id: u.ID, text: fmt.Sprintf("#%-5d %-28s %-14s %s", u.ID, u.FullName(), u.Role, u.Email)})
		}
		return withStatus(fmt.Sprintf("Users: %d", len(s.Items)), s.Status), rows
	case view.Summary:
		header := fmt.Sprintf("Balance %.2f EUR · Tickets %d", s.Balance, s.TicketCount)
		if s.User != nil {
			header = s.User.FullName() + " · " + header
		}
		return withStatus(header, s.Status), flightRows(s.NextFlights)
	}
	return "", nil
}

func withStatus(header string, st view.Status) string {
	switch {
	case st.Loading:
		return header + " (loading)"
	case st.Error != "":
		return header + " (" + st.Error + ")"
	}
	return header
}

func flightRows(flights []domain.Flight) []row {
	rows := make([]row, 0, len(flights))
	for _, f := range flights {
		rows = append(rows, row{id: f.ID, text: fmt.Sprintf("%-10s %s → %s  %s  %7.2f EUR  %3d seats  %s",
			f.Name, f.Origin, f.Destination, f.DepartureTime.Format("02.01 15:04"), f.Price, f.FreeSeats, f.Status.Label())})
	}
	return rows
}
