// Copyright 2026 The Tapproof Authors
// SPDX-License-Identifier: Apache-2.0

package main

import (
	"context"
	"fmt"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"

	"github.com/tapproof/tapproof-go/lib/challenge"
)

// successLinger is how long the success confirmation stays on screen
// before the program exits on its own.
const successLinger = 1200 * time.Millisecond

var (
	titleStyle = lipgloss.NewStyle().
			Bold(true).
			Foreground(lipgloss.Color("15"))

	challengeStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("14")).
			Bold(true)

	dimStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("8"))

	successStyle = lipgloss.NewStyle().
			Foreground(lipgloss.Color("10")).
			Bold(true)

	frameStyle = lipgloss.NewStyle().
			Border(lipgloss.RoundedBorder()).
			BorderForeground(lipgloss.Color("8")).
			Padding(1, 3)
)

// tuiPresenter renders the flow as a bubbletea program. The verifier
// drives it from its own goroutines; all cross-goroutine interaction
// goes through program.Send.
type tuiPresenter struct {
	closed chan struct{}
	done   chan struct{}

	mu      sync.Mutex
	program *tea.Program
}

func newTUIPresenter() *tuiPresenter {
	return &tuiPresenter{
		closed: make(chan struct{}),
		done:   make(chan struct{}),
	}
}

func (p *tuiPresenter) Present(ctx context.Context, token string, claims *challenge.Claims) error {
	m := newFlowModel(claims)

	p.mu.Lock()
	p.program = tea.NewProgram(m, tea.WithOutput(os.Stderr))
	program := p.program
	p.mu.Unlock()

	go func() {
		defer close(p.done)
		final, err := program.Run()
		if err != nil {
			return
		}
		if fm, ok := final.(flowModel); ok && fm.userClosed {
			close(p.closed)
		}
	}()
	return nil
}

func (p *tuiPresenter) ShowSuccess(ctx context.Context) error {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program == nil {
		return nil
	}
	program.Send(flowSucceededMsg{})

	// Wait for the linger to play out; cap it so a wedged terminal
	// cannot stall the flow result.
	select {
	case <-p.done:
	case <-time.After(successLinger + 3*time.Second):
	case <-ctx.Done():
	}
	return nil
}

func (p *tuiPresenter) Hide(immediate bool) {
	p.mu.Lock()
	program := p.program
	p.mu.Unlock()
	if program == nil {
		return
	}
	program.Quit()
	if immediate {
		return
	}
	select {
	case <-p.done:
	case <-time.After(time.Second):
	}
}

func (p *tuiPresenter) Closed() <-chan struct{} {
	return p.closed
}

type flowSucceededMsg struct{}

type lingerDoneMsg struct{}

// flowModel is the bubbletea model for one verification flow.
type flowModel struct {
	spinner    spinner.Model
	domain     string
	challenge  string
	expiresAt  time.Time
	succeeded  bool
	userClosed bool
}

func newFlowModel(claims *challenge.Claims) flowModel {
	s := spinner.New()
	s.Spinner = spinner.Dot
	s.Style = lipgloss.NewStyle().Foreground(lipgloss.Color("14"))
	return flowModel{
		spinner:   s,
		domain:    claims.Domain,
		challenge: claims.ChallengeID,
		expiresAt: claims.Expiry(),
	}
}

func (m flowModel) Init() tea.Cmd {
	return m.spinner.Tick
}

func (m flowModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.KeyMsg:
		switch msg.String() {
		case "q", "esc", "ctrl+c":
			m.userClosed = true
			return m, tea.Quit
		}
		return m, nil

	case flowSucceededMsg:
		m.succeeded = true
		return m, tea.Tick(successLinger, func(time.Time) tea.Msg {
			return lingerDoneMsg{}
		})

	case lingerDoneMsg:
		return m, tea.Quit

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd
	}
	return m, nil
}

func (m flowModel) View() string {
	var b strings.Builder

	b.WriteString(titleStyle.Render("Tapproof verification"))
	b.WriteString("\n\n")

	if m.succeeded {
		b.WriteString(successStyle.Render("✓ Verified"))
		b.WriteString("\n")
	} else {
		b.WriteString("Challenge  ")
		b.WriteString(challengeStyle.Render(m.challenge))
		b.WriteString("\n")
		if m.domain != "" {
			b.WriteString("Domain     ")
			b.WriteString(m.domain)
			b.WriteString("\n")
		}
		b.WriteString("Expires    ")
		b.WriteString(m.expiresAt.Local().Format(time.Kitchen))
		b.WriteString("\n\n")
		b.WriteString(fmt.Sprintf("%s waiting for confirmation on your device",
			m.spinner.View()))
		b.WriteString("\n")
		b.WriteString(dimStyle.Render("press q to cancel"))
		b.WriteString("\n")
	}

	return frameStyle.Render(b.String()) + "\n"
}
