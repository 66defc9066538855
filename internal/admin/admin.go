// Package admin is the terminal console for operating the system: inspect
// indexed documents, run indexing, test connections, reset the stores, and
// chat against the pipeline without the HTTP layer.
package admin

import (
	"context"
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/textinput"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"docsearch/internal/chat"
	"docsearch/internal/config"
	"docsearch/internal/indexing"
	"docsearch/internal/store"
	"docsearch/internal/vector"
)

var (
	titleStyle    = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("13")).Border(lipgloss.DoubleBorder()).Padding(0, 2)
	menuStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	selectedStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("205"))
	okStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	errStyle      = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle      = lipgloss.NewStyle().Faint(true)
)

type screen int

const (
	screenMenu screen = iota
	screenOutput
	screenChat
)

var menuItems = []string{
	"Chat with documents",
	"View indexed documents",
	"Index documents",
	"Test store connections",
	"Reset stores",
	"View configuration",
	"Exit",
}

// HealthChecker reports whether the external converter service is up.
type HealthChecker interface {
	Healthy(ctx context.Context) bool
}

// Console owns the collaborators the menu actions need.
type Console struct {
	cfg          *config.Config
	docs         store.DocumentStore
	index        vector.Index
	converter    HealthChecker
	pipeline     *indexing.Pipeline
	orchestrator *chat.Orchestrator
}

// NewConsole builds the admin console.
func NewConsole(cfg *config.Config, docs store.DocumentStore, index vector.Index, converter HealthChecker, pipeline *indexing.Pipeline, orchestrator *chat.Orchestrator) *Console {
	return &Console{
		cfg:          cfg,
		docs:         docs,
		index:        index,
		converter:    converter,
		pipeline:     pipeline,
		orchestrator: orchestrator,
	}
}

// Run blocks in the terminal UI until the user exits.
func (c *Console) Run(ctx context.Context) error {
	m := newModel(ctx, c)
	_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
	return err
}

type actionDoneMsg struct {
	output string
}

type chatReplyMsg struct {
	reply string
	err   error
}

type model struct {
	ctx     context.Context
	console *Console

	screen   screen
	cursor   int
	output   string
	waiting  bool
	input    textinput.Model
	messages []chat.Message
}

func newModel(ctx context.Context, c *Console) model {
	ti := textinput.New()
	ti.Placeholder = "Ask a question (or 'exit' to return)"
	ti.CharLimit = 512
	ti.Width = 80

	return model{
		ctx:     ctx,
		console: c,
		input:   ti,
	}
}

func (m model) Init() tea.Cmd {
	return nil
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		return m.handleKey(msg)
	case actionDoneMsg:
		m.waiting = false
		m.screen = screenOutput
		m.output = msg.output
		return m, nil
	case chatReplyMsg:
		m.waiting = false
		if msg.err != nil {
			m.messages = append(m.messages, chat.Message{Role: "assistant", Content: "Error: " + msg.err.Error()})
		} else {
			m.messages = append(m.messages, chat.Message{Role: "assistant", Content: msg.reply})
		}
		return m, nil
	}

	if m.screen == screenChat {
		var cmd tea.Cmd
		m.input, cmd = m.input.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	if m.waiting {
		return m, nil
	}

	switch m.screen {
	case screenMenu:
		switch msg.String() {
		case "ctrl+c", "q":
			return m, tea.Quit
		case "up", "k":
			if m.cursor > 0 {
				m.cursor--
			}
		case "down", "j":
			if m.cursor < len(menuItems)-1 {
				m.cursor++
			}
		case "enter":
			return m.selectItem()
		}
		return m, nil

	case screenOutput:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		default:
			m.screen = screenMenu
			m.output = ""
		}
		return m, nil

	case screenChat:
		switch msg.String() {
		case "ctrl+c":
			return m, tea.Quit
		case "enter":
			text := strings.TrimSpace(m.input.Value())
			m.input.SetValue("")
			if text == "" {
				return m, nil
			}
			if strings.EqualFold(text, "exit") {
				m.screen = screenMenu
				m.messages = nil
				m.input.Blur()
				return m, nil
			}
			m.messages = append(m.messages, chat.Message{Role: "user", Content: text})
			m.waiting = true
			return m, m.sendChat()
		default:
			var cmd tea.Cmd
			m.input, cmd = m.input.Update(msg)
			return m, cmd
		}
	}
	return m, nil
}

func (m model) selectItem() (tea.Model, tea.Cmd) {
	switch m.cursor {
	case 0:
		m.screen = screenChat
		m.input.Focus()
		return m, textinput.Blink
	case 1:
		m.waiting = true
		return m, m.runAction(m.viewDocuments)
	case 2:
		m.waiting = true
		return m, m.runAction(m.runIndexing)
	case 3:
		m.waiting = true
		return m, m.runAction(m.testConnections)
	case 4:
		m.waiting = true
		return m, m.runAction(m.resetStores)
	case 5:
		m.waiting = true
		return m, m.runAction(m.viewConfig)
	case 6:
		return m, tea.Quit
	}
	return m, nil
}

func (m model) runAction(action func() string) tea.Cmd {
	return func() tea.Msg {
		return actionDoneMsg{output: action()}
	}
}

func (m model) sendChat() tea.Cmd {
	messages := make([]chat.Message, len(m.messages))
	copy(messages, m.messages)

	return func() tea.Msg {
		resp, err := m.console.orchestrator.Completion(m.ctx, &chat.Request{
			Model:    chat.DefaultModelID,
			Messages: messages,
		})
		if err != nil {
			return chatReplyMsg{err: err}
		}
		return chatReplyMsg{reply: resp.Choices[0].Message.Content}
	}
}

func (m model) viewDocuments() string {
	rows, err := m.console.docs.ListAll(m.ctx)
	if err != nil {
		return errStyle.Render(fmt.Sprintf("Failed to list documents: %v", err))
	}
	if len(rows) == 0 {
		return "No documents indexed yet."
	}

	var b strings.Builder
	b.WriteString(fmt.Sprintf("%-30s %-40s %-20s %s\n", "Name", "Path", "Created At", "Nodes"))
	b.WriteString(strings.Repeat("-", 100) + "\n")
	for _, row := range rows {
		b.WriteString(fmt.Sprintf("%-30s %-40s %-20s %d\n",
			row.Name, row.Path, row.CreatedAt.Format("2006-01-02 15:04:05"), row.NumNodes))
	}
	return b.String()
}

func (m model) runIndexing() string {
	results, err := m.console.pipeline.Run(m.ctx)
	if err != nil {
		return errStyle.Render(fmt.Sprintf("Indexing failed: %v", err))
	}

	counts := map[indexing.FileState]int{}
	var b strings.Builder
	for _, r := range results {
		counts[r.State]++
		line := fmt.Sprintf("%-10s %s", r.State, r.Path)
		if r.Err != nil {
			line += "  (" + r.Err.Error() + ")"
		}
		b.WriteString(line + "\n")
	}
	b.WriteString(fmt.Sprintf("\nprocessed=%d cached=%d skipped=%d failed=%d\n",
		counts[indexing.StateProcessed], counts[indexing.StateCached],
		counts[indexing.StateSkipped], counts[indexing.StateFailed]))
	return b.String()
}

func (m model) testConnections() string {
	var b strings.Builder

	if err := m.console.docs.Ping(m.ctx); err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Document store: FAILED (%v)", err)) + "\n")
	} else {
		b.WriteString(okStyle.Render("Document store: OK") + "\n")
	}

	if count, err := m.console.index.Count(m.ctx); err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Vector index: FAILED (%v)", err)) + "\n")
	} else {
		b.WriteString(okStyle.Render(fmt.Sprintf("Vector index: OK (%d chunks)", count)) + "\n")
	}

	if m.console.converter.Healthy(m.ctx) {
		b.WriteString(okStyle.Render("Converter service: OK") + "\n")
	} else {
		b.WriteString(errStyle.Render("Converter service: UNREACHABLE") + "\n")
	}

	return b.String()
}

func (m model) resetStores() string {
	var b strings.Builder

	if err := m.console.docs.DeleteAll(m.ctx); err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Document store reset failed: %v", err)) + "\n")
	} else {
		b.WriteString(okStyle.Render("Document store reset.") + "\n")
	}

	if err := m.console.index.DeleteAll(m.ctx); err != nil {
		b.WriteString(errStyle.Render(fmt.Sprintf("Vector index reset failed: %v", err)) + "\n")
	} else {
		b.WriteString(okStyle.Render("Vector index reset.") + "\n")
	}

	return b.String()
}

func (m model) viewConfig() string {
	cfg := m.console.cfg
	var b strings.Builder
	b.WriteString(fmt.Sprintf("server:      %s:%d (prefix %s)\n", cfg.Server.Host, cfg.Server.Port, cfg.Server.RESTAPIPrefix))
	b.WriteString(fmt.Sprintf("data:        raw=%s processed=%s\n", cfg.Data.FolderRaw, cfg.Data.FolderProcessed))
	b.WriteString(fmt.Sprintf("postgres:    %s:%d/%s\n", cfg.Postgres.Host, cfg.Postgres.Port, cfg.Postgres.Database))
	b.WriteString(fmt.Sprintf("redis:       %s (index %s)\n", cfg.Redis.Addr, cfg.Redis.IndexName))
	b.WriteString(fmt.Sprintf("embedding:   %s (dim %d)\n", cfg.Embedding.Model, cfg.Embedding.Dim))
	b.WriteString(fmt.Sprintf("chunking:    size=%d overlap=%d\n", cfg.Index.ChunkSize, cfg.Index.ChunkOverlap))
	b.WriteString(fmt.Sprintf("retrieval:   top_k=%d rerank_k=%d\n", cfg.Index.TopKRetrieval, cfg.Index.TopKRerank))
	b.WriteString(fmt.Sprintf("llm:         provider=%s model=%s\n", cfg.LLM.Provider, cfg.LLM.Model))
	b.WriteString(fmt.Sprintf("domain:      %s\n", cfg.BusinessDomain))
	return b.String()
}

func (m model) View() string {
	title := titleStyle.Render("Agentic AI Document Search") + "\n\n"

	switch m.screen {
	case screenOutput:
		return title + m.output + "\n\n" + dimStyle.Render("Press any key to return to menu.")

	case screenChat:
		var b strings.Builder
		b.WriteString(title)
		b.WriteString("Chat with documents (enter 'exit' to return)\n\n")
		for _, msg := range m.messages {
			switch msg.Role {
			case "user":
				b.WriteString(selectedStyle.Render("You: ") + msg.Content + "\n")
			case "assistant":
				b.WriteString(menuStyle.Render("AI:  ") + msg.Content + "\n")
			}
		}
		if m.waiting {
			b.WriteString(dimStyle.Render("Processing...") + "\n")
		}
		b.WriteString("\n" + m.input.View())
		return b.String()

	default:
		var b strings.Builder
		b.WriteString(title)
		b.WriteString(menuStyle.Render("Menu Options:") + "\n")
		for i, item := range menuItems {
			cursor := "  "
			line := fmt.Sprintf("%d. %s", i+1, item)
			if i == m.cursor {
				cursor = "> "
				line = selectedStyle.Render(line)
			}
			b.WriteString(cursor + line + "\n")
		}
		if m.waiting {
			b.WriteString("\n" + dimStyle.Render("Working..."))
		}
		b.WriteString("\n" + dimStyle.Render("up/down to move, enter to select, q to quit"))
		return b.String()
	}
}
