package ui

import (
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/charmbracelet/bubbles/help"
	"github.com/charmbracelet/bubbles/key"
	"github.com/charmbracelet/bubbles/spinner"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/muesli/reflow/wordwrap"

	"github.com/dgnsrekt/storycast/playback"
)

type changeMsg playback.Change

type hideControlsMsg struct{ seq int }

// changeFeed coalesces store notifications for the Tea loop. The subscriber
// runs inside the store's dispatch loop and must not block, so it only
// records the latest change and pokes the kick channel.
type changeFeed struct {
	mu     sync.Mutex
	latest *playback.Change
	kick   chan struct{}
}

func newChangeFeed(store *playback.Store) *changeFeed {
	f := &changeFeed{kick: make(chan struct{}, 1)}
	store.Subscribe(func(change playback.Change) {
		f.mu.Lock()
		// Exits must not be coalesced away; everything else carries a full
		// snapshot and the latest one wins.
		if f.latest == nil || f.latest.Kind != playback.ChangeExited {
			f.latest = &change
		}
		f.mu.Unlock()
		select {
		case f.kick <- struct{}{}:
		default:
		}
	})
	return f
}

func (f *changeFeed) wait() tea.Cmd {
	return func() tea.Msg {
		<-f.kick
		f.mu.Lock()
		change := f.latest
		f.latest = nil
		f.mu.Unlock()
		if change == nil {
			return nil
		}
		return changeMsg(*change)
	}
}

type model struct {
	cfg  Config
	feed *changeFeed

	keys keyMap
	help help.Model
	spin spinner.Model

	width  int
	height int

	state    playback.Session
	settings playback.Settings

	settingsCursor int
	touchSeq       int
	quitting       bool
}

func newModel(cfg Config) model {
	sp := spinner.New()
	sp.Spinner = spinner.Dot
	sp.Style = statusWaitStyle
	return model{
		cfg:      cfg,
		feed:     newChangeFeed(cfg.Store),
		keys:     newKeyMap(),
		help:     help.New(),
		spin:     sp,
		state:    cfg.Store.State(),
		settings: cfg.Store.Settings(),
	}
}

func (m model) Init() tea.Cmd {
	return tea.Batch(m.feed.wait(), m.spin.Tick)
}

func (m model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		m.help.Width = msg.Width
		return m, nil

	case changeMsg:
		m.state = msg.State
		m.settings = msg.Settings
		if msg.Kind == playback.ChangeExited {
			m.quitting = true
			return m, tea.Quit
		}
		return m, m.feed.wait()

	case hideControlsMsg:
		if msg.seq == m.touchSeq {
			m.cfg.Store.HideControls()
		}
		return m, nil

	case spinner.TickMsg:
		var cmd tea.Cmd
		m.spin, cmd = m.spin.Update(msg)
		return m, cmd

	case tea.MouseMsg:
		return m, m.touch()

	case tea.KeyMsg:
		return m.handleKey(msg)
	}
	return m, nil
}

// touch reveals the controls and schedules them to hide again.
func (m *model) touch() tea.Cmd {
	m.cfg.Store.Touch()
	m.touchSeq++
	seq := m.touchSeq
	delay := m.settings.ControlsHideDelay
	if delay <= 0 {
		return nil
	}
	return tea.Tick(delay, func(time.Time) tea.Msg {
		return hideControlsMsg{seq: seq}
	})
}

func (m model) handleKey(msg tea.KeyMsg) (tea.Model, tea.Cmd) {
	touchCmd := m.touch()

	if m.state.ShowSettings {
		return m.handleSettingsKey(msg, touchCmd)
	}

	switch {
	case key.Matches(msg, m.keys.Quit):
		m.quitting = true
		m.cfg.Store.Exit()
		return m, tea.Quit

	case key.Matches(msg, m.keys.TogglePlay):
		m.cfg.Store.TogglePlay()

	case key.Matches(msg, m.keys.Next):
		m.cfg.Store.Next()

	case key.Matches(msg, m.keys.Prev):
		m.cfg.Store.Prev()

	case key.Matches(msg, m.keys.Retry):
		if m.cfg.Prefetch != nil && m.state.PrefetchError != "" {
			m.cfg.Prefetch.Retry()
		}

	case key.Matches(msg, m.keys.Settings):
		m.cfg.Store.SetShowSettings(true)

	case key.Matches(msg, m.keys.StartNow):
		if m.cfg.Chapter != nil && m.state.ShowChapterTransition {
			m.cfg.Chapter.StartNow()
		}

	case key.Matches(msg, m.keys.HoldCount):
		if m.cfg.Chapter != nil && m.state.ShowChapterTransition {
			m.cfg.Chapter.ToggleCountdownPause()
		}

	case key.Matches(msg, m.keys.EndSaga):
		if m.cfg.Chapter != nil && m.state.ShowChapterTransition {
			m.quitting = true
			m.cfg.Chapter.StopTransition()
			return m, tea.Quit
		}

	case key.Matches(msg, m.keys.Help):
		m.help.ShowAll = !m.help.ShowAll
	}
	return m, touchCmd
}

// settingsRows are the entries of the settings overlay, in display order.
var settingsRows = []string{
	"narration",
	"saga mode",
	"auto generate",
	"pause on end",
	"scene numbers",
	"text position",
	"text size",
}

func (m model) handleSettingsKey(msg tea.KeyMsg, touchCmd tea.Cmd) (tea.Model, tea.Cmd) {
	switch {
	case key.Matches(msg, m.keys.Quit), key.Matches(msg, m.keys.Settings):
		m.cfg.Store.SetShowSettings(false)

	case key.Matches(msg, m.keys.Up):
		if m.settingsCursor > 0 {
			m.settingsCursor--
		}

	case key.Matches(msg, m.keys.Down):
		if m.settingsCursor < len(settingsRows)-1 {
			m.settingsCursor++
		}

	case key.Matches(msg, m.keys.Select), key.Matches(msg, m.keys.TogglePlay):
		m.applySettingsRow(m.settingsCursor)
	}
	return m, touchCmd
}

func (m *model) applySettingsRow(row int) {
	s := m.settings
	var patch playback.SettingsPatch
	switch settingsRows[row] {
	case "narration":
		v := !s.NarrationEnabled
		patch.NarrationEnabled = &v
	case "saga mode":
		v := !s.SagaMode
		patch.SagaMode = &v
	case "auto generate":
		v := !s.AutoGenerate
		patch.AutoGenerate = &v
	case "pause on end":
		v := !s.PauseOnEnd
		patch.PauseOnEnd = &v
	case "scene numbers":
		v := !s.ShowSceneNumber
		patch.ShowSceneNumber = &v
	case "text position":
		v := nextChoice(s.TextPosition, []string{
			playback.TextPositionBottom, playback.TextPositionTop, playback.TextPositionCenter,
		})
		patch.TextPosition = &v
	case "text size":
		v := nextChoice(s.TextSize, []string{
			playback.TextSizeSmall, playback.TextSizeMedium, playback.TextSizeLarge,
		})
		patch.TextSize = &v
	}
	m.cfg.Store.UpdateSettings(patch)
}

func nextChoice(current string, choices []string) string {
	for i, c := range choices {
		if c == current {
			return choices[(i+1)%len(choices)]
		}
	}
	return choices[0]
}

func (m model) View() string {
	if m.quitting {
		return ""
	}
	if m.width == 0 {
		return "loading..."
	}

	if m.state.ShowSettings {
		return m.centered(m.settingsView())
	}
	if m.state.ShowChapterTransition {
		return m.centered(m.transitionView())
	}
	if m.state.ShowEndScreen {
		return m.centered(m.endScreenView())
	}
	return m.playerView()
}

func (m model) centered(content string) string {
	return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, content)
}

func (m model) playerView() string {
	header := m.headerView()
	footer := m.footerView()
	bodyHeight := m.height - lipgloss.Height(header) - lipgloss.Height(footer)
	if bodyHeight < 3 {
		bodyHeight = 3
	}
	return lipgloss.JoinVertical(lipgloss.Left, header, m.sceneView(bodyHeight), footer)
}

func (m model) headerView() string {
	title := m.state.Title
	if title == "" {
		title = "storycast"
	}
	left := titleStyle.Render(title)
	if m.state.ChapterNumber > 1 {
		left += chapterStyle.Render(fmt.Sprintf(" chapter %d", m.state.ChapterNumber))
	}
	right := ""
	if !m.state.IsPlaying {
		right = pausedBadgeStyle.Render("⏸ paused ")
	}
	gap := m.width - lipgloss.Width(left) - lipgloss.Width(right)
	if gap < 1 {
		gap = 1
	}
	return left + strings.Repeat(" ", gap) + right
}

func (m model) sceneView(height int) string {
	scene, ok := m.state.CurrentScene()
	if !ok {
		return m.centeredIn(height, settingsDimStyle.Render("no scenes"))
	}

	innerWidth := m.width - 8
	if innerWidth < 20 {
		innerWidth = 20
	}

	var parts []string
	if m.settings.ShowSceneNumber {
		parts = append(parts, sceneNumberStyle.Render(
			fmt.Sprintf("scene %d of %d", m.state.CurrentIndex+1, len(m.state.Scenes))))
	}
	parts = append(parts, m.imageStatusLine(scene))
	parts = append(parts, "")
	parts = append(parts, m.narrationBlock(scene, innerWidth))

	content := strings.Join(parts, "\n")
	frame := sceneFrameStyle.Width(innerWidth + 4).Render(
		m.placeNarration(content, innerWidth, height-4))
	return m.centeredIn(height, frame)
}

func (m model) placeNarration(content string, width, height int) string {
	if height < lipgloss.Height(content) {
		return content
	}
	pos := lipgloss.Bottom
	switch m.settings.TextPosition {
	case playback.TextPositionTop:
		pos = lipgloss.Top
	case playback.TextPositionCenter:
		pos = lipgloss.Center
	}
	return lipgloss.PlaceVertical(height, pos, content)
}

func (m model) narrationBlock(scene playback.Scene, width int) string {
	text := wordwrap.String(scene.NarrationText, width)
	switch m.settings.TextSize {
	case playback.TextSizeLarge:
		return narrationLargeStyle.Render(text)
	case playback.TextSizeSmall:
		return narrationSmallStyle.Render(text)
	default:
		return narrationStyle.Render(text)
	}
}

func (m model) imageStatusLine(scene playback.Scene) string {
	switch {
	case scene.ImageReady():
		return statusReadyStyle.Render("✔ image ready")
	case scene.ImageStatus == playback.StatusError:
		return statusErrStyle.Render("✗ image unavailable")
	default:
		return m.spin.View() + statusWaitStyle.Render(" fetching image")
	}
}

func (m model) footerView() string {
	var lines []string
	switch {
	case m.state.PrefetchError != "":
		lines = append(lines, statusErrStyle.Render(m.state.PrefetchError+" Press r to retry."))
	case m.state.IsPrefetching:
		lines = append(lines, m.spin.View()+statusWaitStyle.Render(" writing the next scene"))
	case m.state.IsLoadingNextChapter:
		lines = append(lines, m.spin.View()+statusWaitStyle.Render(" preparing the next chapter"))
	}
	if m.state.ControlsVisible {
		lines = append(lines, m.help.View(m.keys))
	}
	if len(lines) == 0 {
		return ""
	}
	return strings.Join(lines, "\n")
}

func (m model) settingsView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("settings") + "\n\n")
	for i, name := range settingsRows {
		cursor := "  "
		style := settingsDimStyle
		if i == m.settingsCursor {
			cursor = "> "
			style = settingsSelectedStyle
		}
		b.WriteString(style.Render(fmt.Sprintf("%s%-14s %s", cursor, name, m.settingsValue(name))))
		b.WriteString("\n")
	}
	b.WriteString("\n" + settingsDimStyle.Render("enter toggles · s closes"))
	return overlayStyle.Render(b.String())
}

func (m model) settingsValue(name string) string {
	s := m.settings
	onOff := func(v bool) string {
		if v {
			return statusReadyStyle.Render("on")
		}
		return settingsDimStyle.Render("off")
	}
	switch name {
	case "narration":
		return onOff(s.NarrationEnabled)
	case "saga mode":
		return onOff(s.SagaMode)
	case "auto generate":
		return onOff(s.AutoGenerate)
	case "pause on end":
		return onOff(s.PauseOnEnd)
	case "scene numbers":
		return onOff(s.ShowSceneNumber)
	case "text position":
		return s.TextPosition
	case "text size":
		return s.TextSize
	}
	return ""
}

func (m model) transitionView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("chapter complete") + "\n\n")
	if m.state.IsLoadingNextChapter {
		b.WriteString(m.spin.View() + statusWaitStyle.Render(" preparing the next chapter"))
	} else {
		b.WriteString(fmt.Sprintf("next chapter in %d...\n\n", m.state.TransitionCountdown))
		b.WriteString(settingsDimStyle.Render("c start now · x hold · e end story"))
	}
	return overlayStyle.Render(b.String())
}

func (m model) endScreenView() string {
	var b strings.Builder
	b.WriteString(titleStyle.Render("the end") + "\n\n")
	b.WriteString(fmt.Sprintf("%d scenes", len(m.state.Scenes)))
	if m.state.ChapterNumber > 1 {
		b.WriteString(fmt.Sprintf(" across %d chapters", m.state.ChapterNumber))
	}
	b.WriteString("\n\n")
	b.WriteString(settingsDimStyle.Render("p replay previous · q quit"))
	return overlayStyle.Render(b.String())
}

func (m model) centeredIn(height int, content string) string {
	return lipgloss.Place(m.width, height, lipgloss.Center, lipgloss.Center, content)
}
