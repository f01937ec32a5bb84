package tui

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/sirupsen/logrus"

	"dealercrm/internal/backup"
	"dealercrm/internal/importer"
)

type Screen int

const (
	MenuScreen Screen = iota
	ImportScreen
	ExportScreen
	BackupScreen
	RestoreScreen
	StorageScreen
)

// Services are the storage-backed operations the screens drive.
type Services struct {
	Backup    *backup.Service
	Customers *importer.CustomerStore
	Logger    logrus.FieldLogger
	BackupDir string
}

type Model struct {
	currentScreen Screen
	menuModel     *MenuModel
	importModel   *ImportModel
	exportModel   *ExportModel
	backupModel   *BackupModel
	restoreModel  *RestoreModel
	storageModel  *StorageModel
	err           error
	quitting      bool
	width         int
	height        int
}

func NewModel(svc Services) Model {
	if svc.Logger == nil {
		svc.Logger = logrus.StandardLogger()
	}
	if svc.BackupDir == "" {
		svc.BackupDir = "./backups"
	}
	return Model{
		currentScreen: MenuScreen,
		menuModel:     NewMenuModel(),
		importModel:   NewImportModel(svc),
		exportModel:   NewExportModel(svc),
		backupModel:   NewBackupModel(svc),
		restoreModel:  NewRestoreModel(svc),
		storageModel:  NewStorageModel(svc),
	}
}

func (m Model) Init() tea.Cmd {
	return nil
}

func (m Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.menuModel.SetSize(msg.Width, msg.Height)
		m.importModel.SetSize(msg.Width, msg.Height)
		m.exportModel.SetSize(msg.Width, msg.Height)
		m.backupModel.SetSize(msg.Width, msg.Height)
		m.restoreModel.SetSize(msg.Width, msg.Height)
		m.storageModel.SetSize(msg.Width, msg.Height)
		return m, nil

	case tea.KeyMsg:
		switch msg.String() {
		case "ctrl+c":
			m.quitting = true
			return m, tea.Quit
		case "q":
			if m.currentScreen == MenuScreen {
				m.quitting = true
				return m, tea.Quit
			}
		case "esc":
			if m.currentScreen != MenuScreen && !m.capturesEsc() {
				m.currentScreen = MenuScreen
				m.err = nil
				return m, nil
			}
		}

	case ScreenChangeMsg:
		m.currentScreen = msg.Screen
		m.err = nil
		if msg.Screen == StorageScreen {
			return m, m.storageModel.Refresh()
		}
		return m, nil

	case ErrorMsg:
		m.err = msg.Err
		return m, nil
	}

	var cmd tea.Cmd
	switch m.currentScreen {
	case MenuScreen:
		_, cmd = m.menuModel.Update(msg)
	case ImportScreen:
		_, cmd = m.importModel.Update(msg)
	case ExportScreen:
		_, cmd = m.exportModel.Update(msg)
	case BackupScreen:
		_, cmd = m.backupModel.Update(msg)
	case RestoreScreen:
		_, cmd = m.restoreModel.Update(msg)
	case StorageScreen:
		_, cmd = m.storageModel.Update(msg)
	}
	return m, cmd
}

// capturesEsc reports whether the current screen uses esc itself, either
// to leave a nested state or because a storage call is in flight.
func (m Model) capturesEsc() bool {
	switch m.currentScreen {
	case ImportScreen:
		return m.importModel.state != ImportInputState && m.importModel.state != ImportResultState
	case ExportScreen:
		return m.exportModel.working
	case BackupScreen:
		return m.backupModel.state == BackupKeySelectState || m.backupModel.state == BackupProgressState
	case RestoreScreen:
		return m.restoreModel.state != RestoreInputState && m.restoreModel.state != RestoreResultState
	case StorageScreen:
		return m.storageModel.state == StorageConfirmClearState
	}
	return false
}

func (m Model) View() string {
	if m.quitting {
		return "Thanks for using dealercrm! 👋\n"
	}

	var content string
	switch m.currentScreen {
	case MenuScreen:
		content = m.menuModel.View()
	case ImportScreen:
		content = m.importModel.View()
	case ExportScreen:
		content = m.exportModel.View()
	case BackupScreen:
		content = m.backupModel.View()
	case RestoreScreen:
		content = m.restoreModel.View()
	case StorageScreen:
		content = m.storageModel.View()
	}

	if m.err != nil {
		content = lipgloss.JoinVertical(lipgloss.Left, content, errorStyle.Render(fmt.Sprintf("Error: %v", m.err)))
	}
	return content
}

type ScreenChangeMsg struct {
	Screen Screen
}

type ErrorMsg struct {
	Err error
}

func ChangeScreen(screen Screen) tea.Cmd {
	return func() tea.Msg {
		return ScreenChangeMsg{Screen: screen}
	}
}

func ShowError(err error) tea.Cmd {
	return func() tea.Msg {
		return ErrorMsg{Err: err}
	}
}

// globFiles lists files in the working directory matching any pattern,
// relative to it.
func globFiles(patterns ...string) ([]string, error) {
	cwd, err := os.Getwd()
	if err != nil {
		return nil, err
	}
	var files []string
	for _, p := range patterns {
		if !filepath.IsAbs(p) {
			p = filepath.Join(cwd, p)
		}
		matches, err := filepath.Glob(p)
		if err != nil {
			return nil, err
		}
		for _, match := range matches {
			if rel, err := filepath.Rel(cwd, match); err == nil {
				match = rel
			}
			files = append(files, match)
		}
	}
	sort.Strings(files)
	return files, nil
}

// picker is a cursor over a list of strings.
type picker struct {
	items    []string
	selected int
}

func (p *picker) move(key string) {
	switch key {
	case "up", "k":
		if p.selected > 0 {
			p.selected--
		}
	case "down", "j":
		if p.selected < len(p.items)-1 {
			p.selected++
		}
	}
}

func (p *picker) current() (string, bool) {
	if len(p.items) == 0 {
		return "", false
	}
	return p.items[p.selected], true
}

func (p *picker) View(title, empty string) string {
	header := titleStyle.Render(title)
	if len(p.items) == 0 {
		return lipgloss.JoinVertical(lipgloss.Left, header, warningStyle.Render(empty), helpStyle.Render("Esc: Back to form"))
	}

	var list string
	for i, item := range p.items {
		cursor := " "
		style := menuItemStyle
		if i == p.selected {
			cursor = ">"
			style = selectedMenuItemStyle
		}
		list += fmt.Sprintf("%s %s\n", cursor, style.Render(item))
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, list, helpStyle.Render("↑/↓: Navigate • Enter: Select • Esc: Cancel"))
}

// place centres content once the terminal size is known.
func place(width, height int, vertical lipgloss.Position, content string) string {
	if width > 0 && height > 0 {
		return lipgloss.Place(width, height, lipgloss.Center, vertical, content)
	}
	return content
}
