package main

import (
	"fmt"
	"os"

	"tipjar-tui/config"

	tea "github.com/charmbracelet/bubbletea"
)

// -------------------- MAIN --------------------

func main() {
	env, err := config.LoadEnv()
	if err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}

	m := newModel(env, config.Path())
	defer m.shutdown()

	p := tea.NewProgram(m, tea.WithAltScreen(), tea.WithMouseCellMotion())
	if _, err := p.Run(); err != nil {
		fmt.Println("error:", err)
		os.Exit(1)
	}
}
