package main

import (
	"fmt"
	"strings"

	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
)

type keyMap struct {
	Up   key.Binding
	Down key.Binding
	Quit key.Binding
}

var keys = keyMap{
	Up:   key.NewBinding(key.WithKeys("up", "k"), key.WithHelp("↑/k", "previous")),
	Down: key.NewBinding(key.WithKeys("down", "j"), key.WithHelp("↓/j", "next")),
	Quit: key.NewBinding(key.WithKeys("q", "esc", "ctrl+c"), key.WithHelp("q", "quit")),
}

const listWidth = 32

type browserModel struct {
	title    string
	entries  []entry
	detail   viewport.Model
	selected int
	height   int
	ready    bool
}

func newBrowserModel(title string, entries []entry) *browserModel {
	return &browserModel{title: title, entries: entries}
}

func (m *browserModel) Init() tea.Cmd {
	return nil
}

func (m *browserModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.height = msg.Height - 3
		width := max(msg.Width-listWidth-2, 10)
		if !m.ready {
			m.detail = viewport.New(width, m.height)
			m.ready = true
		} else {
			m.detail.Width = width
			m.detail.Height = m.height
		}
		m.refresh()
		return m, nil

	case tea.KeyMsg:
		switch {
		case key.Matches(msg, keys.Quit):
			return m, tea.Quit
		case key.Matches(msg, keys.Up):
			if m.selected > 0 {
				m.selected--
				m.refresh()
			}
			return m, nil
		case key.Matches(msg, keys.Down):
			if m.selected < len(m.entries)-1 {
				m.selected++
				m.refresh()
			}
			return m, nil
		}
	}

	var cmd tea.Cmd
	m.detail, cmd = m.detail.Update(msg)
	return m, cmd
}

func (m *browserModel) refresh() {
	if !m.ready || len(m.entries) == 0 {
		return
	}
	e := m.entries[m.selected]
	m.detail.SetContent(strings.Join(sectorDetail(e.sector), "\n"))
	m.detail.GotoTop()
}

func (m *browserModel) View() string {
	if !m.ready {
		return "Loading..."
	}

	var list strings.Builder
	first := 0
	if m.selected >= m.height {
		first = m.selected - m.height + 1
	}
	for i := first; i < len(m.entries) && i < first+m.height; i++ {
		e := m.entries[i]
		line := fmt.Sprintf("%s%s (%d)", strings.Repeat("  ", e.depth), e.title, e.sector.PrimitiveCount())
		if len(line) > listWidth {
			line = line[:listWidth]
		}
		line = fmt.Sprintf("%-*s", listWidth, line)
		if i == m.selected {
			line = selectedStyle.Render(line)
		} else {
			line = countStyle.Render(line)
		}
		list.WriteString(line)
		list.WriteByte('\n')
	}

	body := lipgloss.JoinHorizontal(lipgloss.Top, list.String(), "  ", m.detail.View())
	help := helpStyle.Render(fmt.Sprintf("%s • %s • %s",
		keys.Up.Help().Key+" "+keys.Up.Help().Desc,
		keys.Down.Help().Key+" "+keys.Down.Help().Desc,
		keys.Quit.Help().Key+" "+keys.Quit.Help().Desc))
	return titleStyle.Render(m.title) + "\n" + body + "\n" + help
}

func runInteractive(title string, entries []entry) error {
	p := tea.NewProgram(newBrowserModel(title, entries), tea.WithAltScreen())
	_, err := p.Run()
	return err
}
