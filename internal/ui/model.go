package ui

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/charmbracelet/bubbles/spinner"
	"github.com/charmbracelet/bubbles/viewport"
	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/x/ansi"

	"github.com/kyaoi/mdupload/internal/preview"
	"github.com/kyaoi/mdupload/internal/tree"
	"github.com/kyaoi/mdupload/internal/upload"
)

const (
	minContentWidth = 20
	chromeHeight    = 5
)

var (
	accentColor      = lipgloss.Color("#7aa2f7")
	dimColor         = lipgloss.Color("#3b4261")
	titleStyle       = lipgloss.NewStyle().Bold(true).Foreground(accentColor)
	statusStyle      = lipgloss.NewStyle().Padding(0, 1).Foreground(lipgloss.Color("#a9b1d6")).Background(lipgloss.Color("#1f2335"))
	hintStyle        = lipgloss.NewStyle().Foreground(lipgloss.Color("#565f89"))
	errorStyle       = lipgloss.NewStyle().Foreground(lipgloss.Color("#ff6b6b")).Bold(true)
	warningStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#e0af68"))
	successStyle     = lipgloss.NewStyle().Foreground(lipgloss.Color("#9ece6a")).Bold(true)
	treeLineStyle    = lipgloss.NewStyle().Foreground(lipgloss.Color("#a9b1d6"))
	treeSelected     = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a1b26")).Background(accentColor).Bold(true)
	styleChosenStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("#1a1b26")).Background(accentColor)
	helpBoxStyle     = lipgloss.NewStyle().
				Padding(1, 2).
				BorderStyle(lipgloss.RoundedBorder()).
				BorderForeground(accentColor).
				Background(lipgloss.Color("#1f2335"))
)

// Model implements the Bubble Tea program for the upload client. It is the
// upload.Surface of its controller and feeds terminal input into the
// controller's event registry.
type Model struct {
	ctx    context.Context
	ctrl   *upload.Controller
	events *upload.Registry

	width      int
	height     int
	showHelp   bool
	warning    string
	serverInfo string
	err        error

	spinner spinner.Model

	treeRoot   *tree.Node
	loader     *tree.FSLoader
	selectPath string
	pickerOpen bool
	flatTree   []tree.Entry
	selection  int
	pickerVP   viewport.Model

	previewVP   viewport.Model
	previewKey  string
	previewDoc  *preview.Document
	previewErr  error
	previewText string

	health func(ctx context.Context) (string, error)
	drops  <-chan upload.File
}

type transitionMsg struct {
	apply upload.Transition
}

type healthMsg struct {
	info string
	err  error
}

type dropMsg struct {
	file upload.File
}

type previewMsg struct {
	key string
	doc preview.Document
	err error
}

// NewModel builds the model and binds a fresh controller for client to it.
func NewModel(client *upload.Client, state State) *Model {
	ctx := state.Context
	if ctx == nil {
		ctx = context.Background()
	}

	pickerVP := viewport.New(0, 0)
	pickerVP.Style = lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderForeground(accentColor)
	pickerVP.MouseWheelEnabled = false

	previewVP := viewport.New(0, 0)
	previewVP.Style = lipgloss.NewStyle().
		Padding(0, 1).
		BorderStyle(lipgloss.NormalBorder()).
		BorderLeft(true).
		BorderForeground(dimColor)

	m := &Model{
		ctx:        ctx,
		events:     upload.NewRegistry(),
		spinner:    spinner.New(spinner.WithSpinner(spinner.Dot), spinner.WithStyle(titleStyle)),
		treeRoot:   state.TreeRoot,
		loader:     state.Loader,
		selectPath: state.SelectionPath,
		pickerVP:   pickerVP,
		previewVP:  previewVP,
		health:     state.Health,
		drops:      state.Drops,
	}
	m.ctrl = upload.NewController(client, m)
	m.ctrl.Bind(m.events)
	if state.Notice != "" {
		m.err = errors.New(state.Notice)
	}

	if len(state.Preselected) > 0 {
		m.dispatch(upload.Event{Kind: upload.Change, Target: upload.TargetFileInput, Files: state.Preselected})
	}
	return m
}

// Session returns the controller's current session.
func (m *Model) Session() upload.Session {
	return m.ctrl.Session()
}

// OpenPicker implements upload.Surface.
func (m *Model) OpenPicker() {
	if m.treeRoot == nil {
		m.err = fmt.Errorf("ファイルを選択するにはディレクトリを指定して起動してください")
		return
	}
	m.pickerOpen = true
	if m.selectPath != "" {
		m.revealSelection()
	}
	m.refreshTree()
}

// revealSelection opens the tree down to selectPath and moves the cursor
// onto it. It runs once.
func (m *Model) revealSelection() {
	path := m.selectPath
	m.selectPath = ""
	node, err := m.treeRoot.Reveal(path)
	if err != nil {
		m.err = err
		return
	}
	if node == nil {
		return
	}
	entries, err := m.treeRoot.Flatten()
	if err != nil {
		m.err = err
	}
	for i, e := range entries {
		if e.Node == node {
			m.selection = i
			break
		}
	}
}

// ClearFileInput implements upload.Surface.
func (m *Model) ClearFileInput() {
	m.pickerOpen = false
	m.selection = 0
	m.previewKey = ""
	m.previewDoc = nil
	m.previewErr = nil
	m.previewText = ""
	if m.treeRoot != nil {
		if m.loader != nil {
			m.loader.Invalidate()
		}
		m.treeRoot.Reload()
	}
}

// Init implements tea.Model.
func (m *Model) Init() tea.Cmd {
	return tea.Batch(m.checkHealth(), m.waitForDrop(), m.loadPreview())
}

// Update implements tea.Model.
func (m *Model) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.resize(msg.Width, msg.Height)
		return m, nil

	case transitionMsg:
		m.ctrl.Apply(msg.apply)
		return m, m.afterEvent()

	case healthMsg:
		if msg.err != nil {
			m.warning = fmt.Sprintf("警告: バックエンドに接続できません。サーバーが起動しているか確認してください (%v)", msg.err)
			m.serverInfo = ""
		} else {
			m.warning = ""
			m.serverInfo = msg.info
		}
		return m, nil

	case dropMsg:
		if !m.acceptsDrop() {
			m.err = fmt.Errorf("%s は無視されました: ファイルを選択できる画面ではありません", msg.file.Name)
			return m, m.waitForDrop()
		}
		cmd := m.dispatch(upload.Event{Kind: upload.Drop, Target: upload.TargetDropZone, Files: []upload.File{msg.file}})
		return m, tea.Batch(cmd, m.waitForDrop())

	case previewMsg:
		if msg.key != m.previewKey {
			return m, nil
		}
		if msg.err != nil {
			m.previewErr = msg.err
			m.previewDoc = nil
		} else {
			doc := msg.doc
			m.previewDoc = &doc
			m.previewErr = nil
		}
		m.renderPreview()
		return m, nil

	case spinner.TickMsg:
		if !m.Session().Visible(upload.PanelProgress) {
			return m, nil
		}
		var cmd tea.Cmd
		m.spinner, cmd = m.spinner.Update(msg)
		return m, cmd

	case tea.FocusMsg:
		if m.Session().Visible(upload.PanelUpload) {
			return m, m.dispatch(upload.Event{Kind: upload.DragEnter, Target: upload.TargetDropZone})
		}
		return m, nil

	case tea.BlurMsg:
		if m.Session().DropActive {
			return m, m.dispatch(upload.Event{Kind: upload.DragLeave, Target: upload.TargetDropZone})
		}
		return m, nil

	case tea.KeyMsg:
		return m, m.handleKey(msg)
	}
	return m, nil
}

func (m *Model) handleKey(msg tea.KeyMsg) tea.Cmd {
	if msg.Paste {
		return m.handlePaste(string(msg.Runes))
	}

	key := msg.String()
	if m.showHelp {
		switch key {
		case "q", "?", "esc":
			m.showHelp = false
		}
		return nil
	}

	switch key {
	case "ctrl+c":
		return tea.Quit
	case "?":
		m.showHelp = true
		return nil
	}

	if m.pickerOpen {
		return m.handlePickerKey(key)
	}
	if key == "q" {
		return tea.Quit
	}

	m.err = nil
	s := m.Session()
	switch s.Panel {
	case upload.PanelUpload:
		switch key {
		case "o", "enter":
			return m.click(upload.TargetClickHere)
		}
	case upload.PanelOptions:
		switch key {
		case "enter", "c":
			return m.click(upload.TargetConvert)
		case "r":
			return m.click(upload.TargetReset)
		case "t", " ":
			return m.dispatch(upload.Event{Kind: upload.Change, Target: upload.TargetGenerateTOC, Checked: !s.Options.GenerateTOC})
		case "s", "right":
			return m.cycleStyle(1)
		case "S", "left":
			return m.cycleStyle(-1)
		case "j", "down":
			m.previewVP.ScrollDown(1)
		case "k", "up":
			m.previewVP.ScrollUp(1)
		case "ctrl+d":
			m.previewVP.HalfPageDown()
		case "ctrl+u":
			m.previewVP.HalfPageUp()
		}
	case upload.PanelResult:
		switch key {
		case "d", "enter":
			return m.click(upload.TargetDownload)
		case "n":
			return m.click(upload.TargetNewConvert)
		}
	case upload.PanelError:
		switch key {
		case "r", "enter":
			return m.click(upload.TargetRetry)
		}
	}
	return nil
}

func (m *Model) handlePickerKey(key string) tea.Cmd {
	switch key {
	case "esc", "q":
		m.pickerOpen = false
	case "j", "down":
		m.moveSelection(1)
	case "k", "up":
		m.moveSelection(-1)
	case "ctrl+d":
		m.moveSelection(max(1, m.pickerVP.Height/2))
	case "ctrl+u":
		m.moveSelection(-max(1, m.pickerVP.Height/2))
	case "g":
		m.moveSelection(-len(m.flatTree))
	case "G":
		m.moveSelection(len(m.flatTree))
	case "l", "right", "enter":
		return m.openOrSelect()
	case "h", "left":
		m.closeOrAscend()
	}
	return nil
}

func (m *Model) handlePaste(text string) tea.Cmd {
	if !m.acceptsDrop() {
		return nil
	}
	var files []upload.File
	for _, p := range droppedPaths(text) {
		f, err := upload.LocalFile(p)
		if err != nil {
			m.err = err
			continue
		}
		files = append(files, f)
	}
	if len(files) == 0 {
		return nil
	}
	m.err = nil
	return m.dispatch(upload.Event{Kind: upload.Drop, Target: upload.TargetDropZone, Files: files})
}

// acceptsDrop reports whether the drop zone or the file input is on screen.
func (m *Model) acceptsDrop() bool {
	s := m.Session()
	return s.Visible(upload.PanelUpload) || s.Visible(upload.PanelOptions)
}

// droppedPaths extracts file paths from text a terminal pastes when a file
// is dragged onto it: one path per line, optionally quoted, shell-escaped or
// given as a file:// URL.
func droppedPaths(text string) []string {
	var paths []string
	for _, line := range strings.Split(text, "\n") {
		p := strings.TrimSpace(line)
		if len(p) >= 2 && (p[0] == '\'' || p[0] == '"') && p[len(p)-1] == p[0] {
			p = p[1 : len(p)-1]
		} else {
			p = strings.ReplaceAll(p, `\ `, " ")
		}
		if strings.HasPrefix(p, "file://") {
			if u, err := url.Parse(p); err == nil {
				p = u.Path
			}
		}
		if p != "" {
			paths = append(paths, p)
		}
	}
	return paths
}

func (m *Model) click(target upload.Target) tea.Cmd {
	return m.dispatch(upload.Event{Kind: upload.Click, Target: target})
}

func (m *Model) cycleStyle(delta int) tea.Cmd {
	current := m.Session().Options.HighlightStyle
	idx := 0
	for i, name := range upload.HighlightStyles {
		if name == current {
			idx = i
			break
		}
	}
	n := len(upload.HighlightStyles)
	next := upload.HighlightStyles[((idx+delta)%n+n)%n]
	return m.dispatch(upload.Event{Kind: upload.Change, Target: upload.TargetHighlightStyle, Value: next})
}

// dispatch feeds ev to the registry and turns the tasks it starts into
// commands whose results come back as transitions.
func (m *Model) dispatch(ev upload.Event) tea.Cmd {
	tasks := m.events.Dispatch(ev)
	cmds := make([]tea.Cmd, 0, len(tasks)+2)
	for _, task := range tasks {
		task := task
		ctx := m.ctx
		cmds = append(cmds, func() tea.Msg {
			return transitionMsg{apply: task(ctx)}
		})
	}
	cmds = append(cmds, m.afterEvent())
	return tea.Batch(cmds...)
}

// afterEvent keeps the spinner and the preview in step with the session.
func (m *Model) afterEvent() tea.Cmd {
	var cmds []tea.Cmd
	s := m.Session()
	if s.Visible(upload.PanelProgress) {
		cmds = append(cmds, m.spinner.Tick)
	}
	if s.SelectedFile != nil && previewKey(*s.SelectedFile) != m.previewKey {
		cmds = append(cmds, m.loadPreview())
	} else if s.SelectedFile != nil {
		m.renderPreview()
	}
	return tea.Batch(cmds...)
}

func previewKey(f upload.File) string {
	return fmt.Sprintf("%s|%s|%d", f.Path, f.Name, f.Size)
}

func (m *Model) loadPreview() tea.Cmd {
	s := m.Session()
	if s.SelectedFile == nil {
		return nil
	}
	f := *s.SelectedFile
	key := previewKey(f)
	m.previewKey = key
	m.previewDoc = nil
	m.previewErr = nil
	m.previewText = ""
	return func() tea.Msg {
		doc, err := preview.Load(f)
		return previewMsg{key: key, doc: doc, err: err}
	}
}

func (m *Model) renderPreview() {
	if m.previewErr != nil {
		m.previewText = errorStyle.Render(fmt.Sprintf("プレビューできません: %v", m.previewErr))
		m.previewVP.SetContent(m.previewText)
		return
	}
	if m.previewDoc == nil {
		return
	}
	opts := m.Session().Options
	var sections []string
	if opts.GenerateTOC {
		outline := preview.Outline(m.previewDoc.Body, opts.TOCDepth)
		sections = append(sections, titleStyle.Render("目次")+"\n"+preview.FormatOutline(outline))
	}
	if sample, err := preview.StyleSample(opts.HighlightStyle); err == nil {
		sections = append(sections, titleStyle.Render("コードハイライト: "+opts.HighlightStyle)+"\n"+strings.TrimRight(sample, "\n"))
	}
	wrap := m.previewVP.Width - m.previewVP.Style.GetHorizontalFrameSize()
	if rendered, err := preview.Render(m.previewDoc.Body, max(wrap, 0)); err == nil {
		sections = append(sections, rendered)
	} else {
		sections = append(sections, errorStyle.Render(err.Error()))
	}
	m.previewText = strings.Join(sections, "\n\n")
	m.previewVP.SetContent(m.previewText)
}

func (m *Model) checkHealth() tea.Cmd {
	if m.health == nil {
		return nil
	}
	check := m.health
	ctx := m.ctx
	return func() tea.Msg {
		info, err := check(ctx)
		return healthMsg{info: info, err: err}
	}
}

func (m *Model) waitForDrop() tea.Cmd {
	if m.drops == nil {
		return nil
	}
	drops := m.drops
	return func() tea.Msg {
		f, ok := <-drops
		if !ok {
			return nil
		}
		return dropMsg{file: f}
	}
}

func (m *Model) resize(width, height int) {
	if width <= 0 || height <= chromeHeight {
		return
	}
	m.width = width
	m.height = height

	bodyHeight := max(height-chromeHeight, 1)
	m.pickerVP.Width = max(width, minContentWidth)
	m.pickerVP.Height = max(bodyHeight-m.pickerVP.Style.GetVerticalFrameSize(), 1)
	m.ensureSelectionVisible()

	m.previewVP.Width = max(width/2, minContentWidth)
	m.previewVP.Height = bodyHeight
	m.renderPreview()
}

// View implements tea.Model.
func (m *Model) View() string {
	if m.showHelp {
		overlay := helpBoxStyle.Render(helpText)
		if m.width > 0 && m.height > 0 {
			return lipgloss.Place(m.width, m.height, lipgloss.Center, lipgloss.Center, overlay)
		}
		return overlay
	}

	s := m.Session()
	header := titleStyle.Render("Markdown → Word 変換")
	if m.serverInfo != "" {
		header += hintStyle.Render("  " + m.serverInfo)
	}
	if m.warning != "" {
		header = lipgloss.JoinVertical(lipgloss.Left, header, warningStyle.Render(m.fit(m.warning)))
	}

	var body string
	if m.pickerOpen {
		body = m.pickerVP.View()
	} else {
		body = m.panelView(s)
	}

	lines := []string{header, body}
	if m.err != nil {
		lines = append(lines, errorStyle.Render(m.fit(m.err.Error())))
	}
	lines = append(lines, statusStyle.Render(m.fit(s.Status)), hintStyle.Render(m.fit(m.hint(s))))
	return lipgloss.JoinVertical(lipgloss.Left, lines...)
}

func (m *Model) panelView(s upload.Session) string {
	switch s.Panel {
	case upload.PanelOptions:
		return m.optionsView(s)
	case upload.PanelProgress:
		return fmt.Sprintf("%s 変換中です…", m.spinner.View())
	case upload.PanelResult:
		return lipgloss.JoinVertical(lipgloss.Left,
			successStyle.Render(s.ResultText),
			fmt.Sprintf("ファイル: %s", s.Filename),
		)
	case upload.PanelError:
		return errorStyle.Render(s.ErrorText)
	default:
		return m.dropZoneView(s)
	}
}

func (m *Model) dropZoneView(s upload.Session) string {
	border := dimColor
	if s.DropActive {
		border = accentColor
	}
	zone := lipgloss.NewStyle().
		BorderStyle(lipgloss.RoundedBorder()).
		BorderForeground(border).
		Padding(1, 4).
		Align(lipgloss.Center)
	if m.width > 4 {
		zone = zone.Width(m.width - 2)
	}
	return zone.Render(PromptHint)
}

// PromptHint is shown inside the drop zone.
const PromptHint = "ファイルのパスをここに貼り付けるかドラッグ&ドロップ\nまたは o キーでファイルを選択"

func (m *Model) optionsView(s upload.Session) string {
	var b strings.Builder
	if f := s.SelectedFile; f != nil {
		fmt.Fprintf(&b, "ファイル: %s (%s)\n", f.Name, formatSize(f.Size))
	}
	if m.previewDoc != nil && m.previewDoc.Meta.Title != "" {
		fmt.Fprintf(&b, "タイトル: %s\n", m.previewDoc.Meta.Title)
	}
	if m.previewDoc != nil && len(m.previewDoc.Meta.Tags) > 0 {
		fmt.Fprintf(&b, "タグ: %s\n", strings.Join(m.previewDoc.Meta.Tags, ", "))
	}
	check := "[ ]"
	if s.Options.GenerateTOC {
		check = "[x]"
	}
	fmt.Fprintf(&b, "\n%s 目次を生成 (深さ %d)\n\nハイライト:\n", check, upload.TOCDepth)
	for _, name := range upload.HighlightStyles {
		if name == s.Options.HighlightStyle {
			b.WriteString("  " + styleChosenStyle.Render("> "+name) + "\n")
		} else {
			b.WriteString("    " + name + "\n")
		}
	}
	left := b.String()
	if m.width == 0 {
		return left
	}
	leftWidth := max(m.width-m.previewVP.Width, minContentWidth)
	return lipgloss.JoinHorizontal(lipgloss.Top,
		lipgloss.NewStyle().Width(leftWidth).Render(left),
		m.previewVP.View(),
	)
}

func (m *Model) hint(s upload.Session) string {
	if m.pickerOpen {
		return "j/k: 移動  l/Enter: 開く・選択  h: 閉じる  Esc: キャンセル  ?: ヘルプ"
	}
	switch s.Panel {
	case upload.PanelOptions:
		return "Enter/c: 変換  t: 目次  s/S: ハイライト  j/k: プレビュー  r: リセット  q: 終了"
	case upload.PanelProgress:
		return "変換中…  ctrl+c: 終了"
	case upload.PanelResult:
		return "d: ダウンロード  n: 新しく変換  q: 終了"
	case upload.PanelError:
		return "r/Enter: やり直す  q: 終了"
	default:
		return "o/Enter: ファイルを選択  ?: ヘルプ  q: 終了"
	}
}

const helpText = `ヘルプ (?:閉じる / Esc)
o / Enter        : ファイルを選択 (アップロード画面)
パスを貼り付け   : ドラッグ&ドロップとして扱う
j / k            : 移動 / プレビューのスクロール
l / h            : ディレクトリを開く / 閉じる
t                : 目次生成の切替
s / S            : ハイライトスタイルの切替
Enter / c        : 変換
d                : ダウンロード
n / r            : 新しく変換 / やり直す
q / Ctrl+c       : 終了`

func (m *Model) fit(text string) string {
	if m.width <= 0 {
		return text
	}
	return ansi.Truncate(text, m.width-2, "…")
}

func formatSize(n int64) string {
	const unit = 1024
	switch {
	case n < unit:
		return fmt.Sprintf("%d B", n)
	case n < unit*unit:
		return fmt.Sprintf("%.1f KB", float64(n)/unit)
	default:
		return fmt.Sprintf("%.1f MB", float64(n)/(unit*unit))
	}
}

func (m *Model) refreshTree() {
	if m.treeRoot == nil {
		return
	}
	entries, err := m.treeRoot.Flatten()
	if err != nil {
		m.err = err
	}
	m.flatTree = entries
	m.selection = clamp(m.selection, 0, max(len(m.flatTree)-1, 0))
	m.updateTreeContent()
}

func (m *Model) updateTreeContent() {
	var b strings.Builder
	for i, e := range m.flatTree {
		style := treeLineStyle
		if i == m.selection {
			style = treeSelected
		}
		b.WriteString(style.Render(e.Label()))
		if !e.Node.IsDir {
			b.WriteString(hintStyle.Render("  " + formatSize(e.Node.Size)))
		}
		if i < len(m.flatTree)-1 {
			b.WriteByte('\n')
		}
	}
	m.pickerVP.SetContent(b.String())
	m.ensureSelectionVisible()
}

func (m *Model) moveSelection(delta int) {
	if len(m.flatTree) == 0 {
		return
	}
	m.selection = clamp(m.selection+delta, 0, len(m.flatTree)-1)
	m.updateTreeContent()
}

func (m *Model) currentEntry() *tree.Node {
	if m.selection < 0 || m.selection >= len(m.flatTree) {
		return nil
	}
	return m.flatTree[m.selection].Node
}

func (m *Model) openOrSelect() tea.Cmd {
	node := m.currentEntry()
	if node == nil {
		return nil
	}
	if node.IsDir {
		if !node.Open {
			node.Open = true
			m.refreshTree()
			return nil
		}
		if len(node.Children) > 0 {
			m.moveSelection(1)
		}
		return nil
	}
	f, err := m.loader.File(node)
	if err != nil {
		m.err = err
		return nil
	}
	m.pickerOpen = false
	return m.dispatch(upload.Event{Kind: upload.Change, Target: upload.TargetFileInput, Files: []upload.File{f}})
}

func (m *Model) closeOrAscend() {
	node := m.currentEntry()
	if node == nil {
		return
	}
	if node.IsDir && node.Open && node.Parent != nil {
		node.Open = false
		m.refreshTree()
		return
	}
	if node.Parent != nil {
		for i, e := range m.flatTree {
			if e.Node == node.Parent {
				m.selection = i
				break
			}
		}
		m.updateTreeContent()
	}
}

func (m *Model) ensureSelectionVisible() {
	if len(m.flatTree) == 0 || m.pickerVP.Height == 0 {
		return
	}
	if m.selection < m.pickerVP.YOffset {
		m.pickerVP.SetYOffset(m.selection)
		return
	}
	bottom := m.pickerVP.YOffset + m.pickerVP.Height - 1
	if m.selection > bottom {
		m.pickerVP.SetYOffset(m.selection - m.pickerVP.Height + 1)
	}
}

func clamp(value, low, high int) int {
	if value < low {
		return low
	}
	if value > high {
		return high
	}
	return value
}
