package ui

import (
	"context"
	"fmt"
	"strings"

	"github.com/atotto/clipboard"
	bspinner "github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/textarea"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/glamour"
	"github.com/charmbracelet/lipgloss"
	"github.com/rs/zerolog/log"

	"github.com/kuplace/kupletalk/pkg/api"
	"github.com/kuplace/kupletalk/pkg/guide"
	"github.com/kuplace/kupletalk/pkg/session"
)

const debugPaneWidth = 42

type focusArea int

const (
	focusComposer focusArea = iota
	focusSidebar
)

type sessionEventMsg struct {
	ev session.Event
}

type chatsLoadedMsg struct {
	chats []api.Chat
	err   error
}

type opDoneMsg struct {
	op  string
	err error
}

// Model is the bubbletea application. It renders controller state and relays
// user intent; all chat semantics live in the session controller.
type Model struct {
	ctx   context.Context
	ctrl  *session.Controller
	guide guide.Guide

	chats       []api.Chat
	cursor      int
	focus       focusArea
	sidebarOpen bool

	input    textarea.Model
	viewport viewport.Model
	spinner  bspinner.Model
	renderer *glamour.TermRenderer

	activeID  string
	messages  []api.Message
	debugText string
	debugOpen bool
	awaiting  bool
	lastBot   string
	status    string

	width  int
	height int
	ready  bool
}

func NewModel(ctx context.Context, ctrl *session.Controller, g guide.Guide, debugOpen bool) Model {
	ta := textarea.New()
	ta.Placeholder = g.Tagline
	ta.SetHeight(3)
	ta.ShowLineNumbers = false
	ta.Focus()

	sp := bspinner.New()
	sp.Spinner = bspinner.Dot
	sp.Style = lipgloss.NewStyle().Foreground(accentColor)

	return Model{
		ctx:         ctx,
		ctrl:        ctrl,
		guide:       g,
		input:       ta,
		viewport:    viewport.New(80, 20),
		spinner:     sp,
		sidebarOpen: true,
		debugOpen:   debugOpen,
	}
}

func waitForEvent(ch <-chan session.Event) tea.Cmd {
	return func() tea.Msg {
		ev, ok := <-ch
		if !ok {
			return nil
		}
		return sessionEventMsg{ev: ev}
	}
}

func (m Model) loadChatsCmd() tea.Cmd {
	return func() tea.Msg {
		chats, err := m.ctrl.ListChats(m.ctx)
		return chatsLoadedMsg{chats: chats, err: err}
	}
}

func (m Model) submitCmd(text string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "submit", err: m.ctrl.Submit(m.ctx, text)}
	}
}

func (m Model) selectCmd(chatID string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "select", err: m.ctrl.Select(m.ctx, chatID)}
	}
}

func (m Model) deleteCmd(chatID string) tea.Cmd {
	return func() tea.Msg {
		return opDoneMsg{op: "delete", err: m.ctrl.Delete(m.ctx, chatID)}
	}
}

func (m Model) newChatCmd() tea.Cmd {
	return func() tea.Msg {
		_, err := m.ctrl.Create(m.ctx, "")
		return opDoneMsg{op: "create", err: err}
	}
}

func (m Model) Init() tea.Cmd {
	return tea.Batch(
		textarea.Blink,
		m.spinner.Tick,
		waitForEvent(m.ctrl.Events()),
		m.loadChatsCmd(),
	)
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch ev := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = ev.Width
		m.height = ev.Height
		m.ready = true
		m.layout()
		m.refreshViewport()
		return m, nil

	case sessionEventMsg:
		cmd := m.applyEvent(ev.ev)
		return m, tea.Batch(cmd, waitForEvent(m.ctrl.Events()))

	case chatsLoadedMsg:
		if ev.err != nil {
			m.status = errorStyle.Render("대화 목록을 불러오지 못했습니다: " + ev.err.Error())
			return m, nil
		}
		m.chats = ev.chats
		if m.cursor >= len(m.chats) {
			m.cursor = max(0, len(m.chats)-1)
		}
		return m, nil

	case opDoneMsg:
		if ev.err != nil {
			m.status = errorStyle.Render(ev.op + ": " + ev.err.Error())
		}
		return m, nil

	case bspinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.KeyMsg:
		return m.handleKey(ev)
	}

	var cmd tea.Cmd
	m.input, cmd = m.input.Update(msg)
	return m, cmd
}

func (m Model) handleKey(key tea.KeyMsg) (tea.Model, tea.Cmd) {
	m.status = ""
	switch key.Type {
	case tea.KeyCtrlC:
		return m, tea.Quit

	case tea.KeyCtrlB:
		m.sidebarOpen = !m.sidebarOpen
		if !m.sidebarOpen {
			m.focus = focusComposer
			m.input.Focus()
		}
		m.layout()
		return m, nil

	case tea.KeyCtrlD:
		m.debugOpen = !m.debugOpen
		m.layout()
		m.refreshViewport()
		return m, nil

	case tea.KeyCtrlN:
		return m, m.newChatCmd()

	case tea.KeyCtrlY:
		if m.lastBot == "" {
			m.status = statusStyle.Render("복사할 답변이 없습니다")
			return m, nil
		}
		if err := clipboard.WriteAll(m.lastBot); err != nil {
			m.status = errorStyle.Render("클립보드 복사 실패: " + err.Error())
		} else {
			m.status = statusStyle.Render("마지막 답변을 복사했습니다")
		}
		return m, nil

	case tea.KeyTab:
		if m.sidebarOpen {
			if m.focus == focusComposer {
				m.focus = focusSidebar
				m.input.Blur()
			} else {
				m.focus = focusComposer
				m.input.Focus()
			}
		}
		return m, nil

	case tea.KeyUp:
		if m.focus == focusSidebar {
			if m.cursor > 0 {
				m.cursor--
			}
			return m, nil
		}

	case tea.KeyDown:
		if m.focus == focusSidebar {
			if m.cursor < len(m.chats)-1 {
				m.cursor++
			}
			return m, nil
		}

	case tea.KeyPgUp, tea.KeyPgDown:
		var cmd tea.Cmd
		m.viewport, cmd = m.viewport.Update(key)
		return m, cmd

	case tea.KeyCtrlX:
		if m.focus == focusSidebar && m.cursor < len(m.chats) {
			return m, m.deleteCmd(m.chats[m.cursor].ID)
		}
		return m, nil

	case tea.KeyF1, tea.KeyF2, tea.KeyF3, tea.KeyF4:
		if m.activeID == "" {
			idx := int(key.Type - tea.KeyF1)
			if idx >= 0 && idx < len(m.guide.Questions) {
				return m, m.submitCmd(m.guide.Questions[idx])
			}
		}
		return m, nil

	case tea.KeyEnter:
		if m.focus == focusSidebar {
			if m.cursor < len(m.chats) {
				return m, m.selectCmd(m.chats[m.cursor].ID)
			}
			return m, nil
		}
		text := m.input.Value()
		m.input.Reset()
		// fire and forget: the input clears regardless of the outcome
		return m, m.submitCmd(text)
	}

	if m.focus == focusComposer {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(key)
		return m, cmd
	}
	return m, nil
}

// applyEvent folds one controller notification into the view state and
// returns any follow-up command.
func (m *Model) applyEvent(ev session.Event) tea.Cmd {
	switch e := ev.(type) {
	case session.ActiveChanged:
		m.activeID = e.ChatID
		m.debugText = ""
		m.refreshViewport()
	case session.HistoryReplaced:
		m.messages = e.Messages
		m.refreshViewport()
	case session.MessageAppended:
		m.messages = append(m.messages, e.Message)
		if !e.Message.IsUser() {
			m.lastBot = e.Message.Content
		}
		m.refreshViewport()
	case session.DebugAppended:
		m.debugText = e.Buffer
	case session.AwaitingChanged:
		m.awaiting = e.Awaiting
		if e.Awaiting {
			return m.spinner.Tick
		}
	case session.ChatCreated, session.ChatDeleted:
		return m.loadChatsCmd()
	case session.Failure:
		log.Warn().Err(e.Err).Str("component", "ui").Str("op", e.Op).Msg("controller failure")
		m.status = errorStyle.Render(e.Op + ": " + e.Err.Error())
	}
	return nil
}

func (m *Model) layout() {
	mainWidth := m.width
	if m.sidebarOpen {
		mainWidth -= sidebarWidth + 2
	}
	if m.debugOpen {
		mainWidth -= debugPaneWidth + 2
	}
	if mainWidth < 20 {
		mainWidth = 20
	}
	bodyHeight := m.height - m.input.Height() - 4
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	m.viewport.Width = mainWidth
	m.viewport.Height = bodyHeight
	m.input.SetWidth(mainWidth)

	renderer, err := glamour.NewTermRenderer(
		glamour.WithAutoStyle(),
		glamour.WithWordWrap(mainWidth-2),
	)
	if err != nil {
		log.Warn().Err(err).Str("component", "ui").Msg("markdown renderer unavailable, falling back to plain text")
		m.renderer = nil
		return
	}
	m.renderer = renderer
}

func (m *Model) refreshViewport() {
	var b strings.Builder
	for _, msg := range m.messages {
		if msg.IsUser() {
			b.WriteString(userLabelStyle.Render("나") + "\n")
			b.WriteString(msg.Content + "\n\n")
			continue
		}
		content := msg.Content
		if m.renderer != nil {
			if out, err := m.renderer.Render(content); err == nil {
				content = strings.TrimRight(out, "\n") + "\n"
			}
		}
		b.WriteString(botLabelStyle.Render("쿠플봇") + "\n")
		b.WriteString(content + "\n")
	}
	m.viewport.SetContent(b.String())
	m.viewport.GotoBottom()
}

func (m Model) View() string {
	if !m.ready {
		return "로딩 중..."
	}

	header := titleStyle.Render("쿠플톡")
	if m.activeID != "" {
		header += statusStyle.Render("  ·  " + m.activeID)
	}

	var main string
	if m.activeID == "" {
		main = m.guideView()
	} else {
		main = m.viewport.View()
	}

	columns := []string{}
	if m.sidebarOpen {
		columns = append(columns, renderSidebar(m.chats, m.activeID, m.cursor, m.focus == focusSidebar, m.viewport.Height))
	}
	columns = append(columns, lipgloss.NewStyle().Width(m.viewport.Width).Height(m.viewport.Height).Render(main))
	if m.debugOpen {
		columns = append(columns, m.debugView())
	}
	body := lipgloss.JoinHorizontal(lipgloss.Top, columns...)

	typing := ""
	if m.awaiting {
		typing = m.spinner.View() + statusStyle.Render(" 쿠플봇이 입력 중입니다...")
	}

	help := helpStyle.Render("enter 전송 · tab 목록 · ctrl+n 새 대화 · ctrl+x 삭제 · ctrl+d 디버그 · ctrl+y 복사 · ctrl+c 종료")

	parts := []string{header, body, typing, m.input.View(), m.status, help}
	return strings.Join(parts, "\n")
}

func (m Model) guideView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(m.guide.Title) + "\n\n")
	b.WriteString(guideStyle.Render(m.guide.Tagline) + "\n\n")
	for i, q := range m.guide.Questions {
		b.WriteString(fmt.Sprintf("%s %s\n", titleStyle.Render(fmt.Sprintf("F%d", i+1)), q))
	}
	b.WriteString("\n" + guideStyle.Render("예시 질문을 누르거나 아래에 직접 입력해 보세요."))
	return b.String()
}

func (m Model) debugView() string {
	title := titleStyle.Render("디버그")
	body := debugForDisplay(m.debugText)
	if body == "" {
		body = guideStyle.Render("디버그 출력이 없습니다")
	}
	return debugPaneStyle.Width(debugPaneWidth).Height(m.viewport.Height).Render(title + "\n\n" + body)
}
