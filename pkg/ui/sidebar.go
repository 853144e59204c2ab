package ui

import (
	"fmt"

	"github.com/charmbracelet/lipgloss"

	"github.com/kuplace/kupletalk/pkg/api"
)

const sidebarWidth = 26

// renderSidebar draws the chat list, newest first, with the active chat and
// the keyboard cursor highlighted.
func renderSidebar(chats []api.Chat, activeID string, cursor int, focused bool, height int) string {
	header := titleStyle.Render("대화 목록")
	lines := []string{header, ""}
	if len(chats) == 0 {
		lines = append(lines, guideStyle.Render("아직 대화가 없습니다"))
	}
	for i, chat := range chats {
		label := FormatCreatedAt(chat.CreatedAt)
		marker := "  "
		if chat.ID == activeID {
			marker = "* "
		}
		line := marker + label
		if focused && i == cursor {
			line = selectedStyle.Render(line)
		} else if chat.ID == activeID {
			line = titleStyle.Render(line)
		}
		lines = append(lines, line)
	}
	lines = append(lines, "", helpStyle.Render(fmt.Sprintf("%d개 대화", len(chats))))

	body := lipgloss.JoinVertical(lipgloss.Left, lines...)
	return sidebarStyle.Width(sidebarWidth).Height(height).Render(body)
}
