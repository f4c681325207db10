package coach

import (
	"fmt"
	"log"
	"math"
	"strings"
	"time"

	"github.com/gdamore/tcell/v2"
	"github.com/rivo/tview"

	"breathtrainer/internal/engine"
	"breathtrainer/internal/exercise"
	"breathtrainer/internal/journal"
)

// Page names for tview.Pages
const (
	pageExerciseSelection = "exercise_selection"
	pageLiveSession       = "live_session"
	pageJournal           = "journal"
)

const (
	progressBarWidth   = 24
	detailPhasePreview = 8 // structure rows shown before truncating
)

// CursesUIViewImpl implements UIViewImpl using tview (curses-based terminal UI)
type CursesUIViewImpl struct {
	logger      *log.Logger
	app         *tview.Application
	currentMode UIMode

	// Root container that holds all pages
	pages *tview.Pages

	// Shared components (visible in all modes)
	logView  *tview.TextView
	mainFlex *tview.Flex

	// Exercise Selection mode components
	exerciseSelectionFlex       *tview.Flex
	exerciseSelectionTabWidgets []*tview.Box
	exerciseList                *tview.List
	exerciseDetailsPanel        *tview.TextView
	exercises                   []exercise.Definition

	// Live Session mode components
	liveSessionFlex       *tview.Flex
	liveSessionTabWidgets []*tview.Box
	sessionPanel          *tview.TextView
	vitalsPanel           *tview.TextView
	sessionState          SessionState
	heartRate             int

	// Journal mode components
	journalFlex         *tview.Flex
	journalTabWidgets   []*tview.Box
	journalList         *tview.List
	journalDetailsPanel *tview.TextView
	records             []journal.Record
}

func NewCursesUIView(logger *log.Logger, app *tview.Application) *CursesUIViewImpl {
	return &CursesUIViewImpl{
		logger:      logger,
		app:         app,
		currentMode: UIModeExerciseSelection,
		sessionState: SessionState{
			Status: engine.StatusIdle,
		},
	}
}

// Initialize sets up the tview widgets
func (ui *CursesUIViewImpl) Initialize(controller *UIController) {
	// Create shared log view
	// Note: Don't use SetChangedFunc with app.Draw() - it can cause hangs during shutdown
	// when the app has been stopped but log messages are still being written.
	// The BaseUIView's event listeners already call Draw() after updating content.
	ui.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(false)
	ui.logView.SetBorder(true).SetTitle(" Logs ")

	// Create pages container for mode switching
	ui.pages = tview.NewPages()

	// Initialize each mode
	ui.initExerciseSelectionMode(controller)
	ui.initLiveSessionMode(controller)
	ui.initJournalMode(controller)

	// Add pages
	ui.pages.AddPage(pageExerciseSelection, ui.exerciseSelectionFlex, true, true)
	ui.pages.AddPage(pageLiveSession, ui.liveSessionFlex, true, false)
	ui.pages.AddPage(pageJournal, ui.journalFlex, true, false)

	// Create main layout: pages on the left, logs on the right
	ui.mainFlex = tview.NewFlex().
		AddItem(ui.pages, 0, 2, true).
		AddItem(ui.logView, 0, 1, false)

	// Set initial focus
	ui.setFocusForCurrentMode()
}

// initExerciseSelectionMode sets up the Exercise Selection mode UI
func (ui *CursesUIViewImpl) initExerciseSelectionMode(controller *UIController) {
	// Create instructions box at the top
	instructionsText := tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	instructionsText.SetText("[yellow]Enter[white] Start Exercise  |  [yellow]Tab[white] Cycle Panes  |  [yellow]Esc[white] Quit\n[yellow]1[white] Exercises  |  [yellow]2[white] Session  |  [yellow]3[white] Journal")

	// Create exercise list
	ui.exerciseList = tview.NewList().
		ShowSecondaryText(true).
		SetSelectedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			ui.logger.Printf("UI: exercise chosen: index=%d, name=%s", index, mainText)
			controller.OnExerciseChosen(index)
		}).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			// Update details panel when selection changes
			ui.updateExerciseDetailsDisplay(index)
		})
	ui.exerciseList.SetBorder(true).SetTitle(" Exercises ")

	// Create exercise details panel
	ui.exerciseDetailsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.exerciseDetailsPanel.SetBorder(true).SetTitle(" Details ")
	ui.updateExerciseDetailsDisplay(-1) // Initialize with no selection

	ui.exerciseSelectionTabWidgets = append(ui.exerciseSelectionTabWidgets, ui.exerciseList.Box)
	ui.exerciseSelectionTabWidgets = append(ui.exerciseSelectionTabWidgets, ui.exerciseDetailsPanel.Box)

	// Create exercise selection layout: instructions on top, list and
	// details side by side below
	listRowFlex := tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.exerciseList, 0, 1, true).
		AddItem(ui.exerciseDetailsPanel, 0, 1, false)

	ui.exerciseSelectionFlex = tview.NewFlex().
		SetDirection(tview.FlexRow).
		AddItem(instructionsText, 2, 0, false).
		AddItem(listRowFlex, 0, 1, true)
}

// initLiveSessionMode sets up the Live Session mode UI
func (ui *CursesUIViewImpl) initLiveSessionMode(controller *UIController) {
	// Create session panel for phase and countdown display
	ui.sessionPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.sessionPanel.SetBorder(true).SetTitle(" Session ")
	ui.updateSessionDisplay()

	// Create vitals panel for heart rate and hold info
	ui.vitalsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.vitalsPanel.SetBorder(true).SetTitle(" Vitals ")
	ui.updateVitalsDisplay()

	ui.liveSessionTabWidgets = append(ui.liveSessionTabWidgets, ui.sessionPanel.Box)
	ui.liveSessionTabWidgets = append(ui.liveSessionTabWidgets, ui.vitalsPanel.Box)

	// Create live session layout: session panel takes most space
	ui.liveSessionFlex = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.sessionPanel, 0, 2, true).
		AddItem(ui.vitalsPanel, 0, 1, false)
}

// initJournalMode sets up the Journal mode UI
func (ui *CursesUIViewImpl) initJournalMode(controller *UIController) {
	// Create journal list, newest entries first
	ui.journalList = tview.NewList().
		ShowSecondaryText(true).
		SetChangedFunc(func(index int, mainText, secondaryText string, shortcut rune) {
			// Update details panel when selection changes
			ui.updateJournalDetailsDisplay(index)
		})
	ui.journalList.SetBorder(true).SetTitle(" Sessions ")

	// Create journal details panel
	ui.journalDetailsPanel = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	ui.journalDetailsPanel.SetBorder(true).SetTitle(" Record ")
	ui.updateJournalDetailsDisplay(-1) // Initialize with no selection

	ui.journalTabWidgets = append(ui.journalTabWidgets, ui.journalList.Box)
	ui.journalTabWidgets = append(ui.journalTabWidgets, ui.journalDetailsPanel.Box)

	// Create journal layout
	ui.journalFlex = tview.NewFlex().
		SetDirection(tview.FlexColumn).
		AddItem(ui.journalList, 0, 1, true).
		AddItem(ui.journalDetailsPanel, 0, 1, false)
}

// SetMode switches the UI to the specified mode
func (ui *CursesUIViewImpl) SetMode(mode UIMode) {
	if ui.currentMode == mode {
		return
	}

	ui.currentMode = mode

	switch mode {
	case UIModeExerciseSelection:
		ui.pages.SwitchToPage(pageExerciseSelection)
	case UIModeLiveSession:
		ui.pages.SwitchToPage(pageLiveSession)
	case UIModeJournal:
		ui.pages.SwitchToPage(pageJournal)
	}

	ui.setFocusForCurrentMode()
	ui.app.Draw()
}

// GetCurrentMode returns the currently active UI mode
func (ui *CursesUIViewImpl) GetCurrentMode() UIMode {
	return ui.currentMode
}

// setFocusForCurrentMode sets focus to the first widget in the current mode
func (ui *CursesUIViewImpl) setFocusForCurrentMode() {
	widgets := ui.getTabWidgetsForCurrentMode()
	if len(widgets) > 0 {
		ui.app.SetFocus(widgets[0])
	}
}

// getTabWidgetsForCurrentMode returns the tab widgets for the current mode
func (ui *CursesUIViewImpl) getTabWidgetsForCurrentMode() []*tview.Box {
	switch ui.currentMode {
	case UIModeExerciseSelection:
		return ui.exerciseSelectionTabWidgets
	case UIModeLiveSession:
		return ui.liveSessionTabWidgets
	case UIModeJournal:
		return ui.journalTabWidgets
	default:
		return nil
	}
}

// SetupKeyboardHandlers sets up keyboard event handlers
func (ui *CursesUIViewImpl) SetupKeyboardHandlers(controller *UIController) {
	ui.app.SetInputCapture(func(event *tcell.EventKey) *tcell.EventKey {
		// Number keys for mode switching (1-9)
		if event.Key() == tcell.KeyRune {
			if mode, ok := GetUIModeByKey(event.Rune()); ok {
				// Delegate to controller - it will update the model, which will notify us
				controller.OnModeChange(mode)
				return nil
			}
		}

		// Tab to switch focus between widgets in current mode
		if event.Key() == tcell.KeyTab {
			widgets := ui.getTabWidgetsForCurrentMode()
			widgetCount := len(widgets)
			if widgetCount > 0 {
				for i := 0; i < widgetCount+1; i++ {
					idx := i % widgetCount
					if widgets[idx].HasFocus() {
						nextIdx := (idx + 1) % widgetCount
						ui.app.SetFocus(widgets[nextIdx])
						break
					}
				}
			}
			return nil
		}

		// Escape to quit
		if event.Key() == tcell.KeyEscape {
			controller.OnEscapeKey()
			return nil
		}

		// Mode-specific key handlers
		if ui.currentMode == UIModeLiveSession && event.Key() == tcell.KeyRune {
			switch event.Rune() {
			case ' ':
				controller.OnToggleSession()
				return nil
			case 'x':
				controller.OnStopSession()
				return nil
			case 'r':
				controller.OnRestartSession()
				return nil
			case 'm':
				controller.OnMarkContraction()
				return nil
			case 'h':
				controller.OnCompleteHold()
				return nil
			}
		}

		return event
	})
}

// GetLogViewHeight returns the visible height of the log view
func (ui *CursesUIViewImpl) GetLogViewHeight() int {
	_, _, _, height := ui.logView.GetInnerRect()
	return height
}

// ClearLogView clears the log view
func (ui *CursesUIViewImpl) ClearLogView() {
	ui.logView.Clear()
}

// WriteLogLine writes a line to the log view
func (ui *CursesUIViewImpl) WriteLogLine(line string) error {
	_, err := fmt.Fprint(ui.logView, line)
	return err
}

// SetExerciseList populates the exercise selection list, preserving the
// current selection across reloads when possible
func (ui *CursesUIViewImpl) SetExerciseList(defs []exercise.Definition) {
	ui.exercises = defs

	currentSelectionIndex := ui.exerciseList.GetCurrentItem()

	var currentSelectionText *string
	if currentSelectionIndex < ui.exerciseList.GetItemCount() {
		main, _ := ui.exerciseList.GetItemText(currentSelectionIndex)
		currentSelectionText = &main
	}

	ui.exerciseList.Clear()

	selectedIdx := -1
	for i, def := range defs {
		if currentSelectionText != nil && *currentSelectionText == def.Name {
			selectedIdx = i
		}
		ui.exerciseList.AddItem(def.Name, formatExerciseSummary(def), 0, nil)
	}
	if selectedIdx > -1 {
		ui.exerciseList.SetCurrentItem(selectedIdx)
	}
}

// updateExerciseDetailsDisplay formats and displays the exercise details
func (ui *CursesUIViewImpl) updateExerciseDetailsDisplay(index int) {
	if ui.exerciseDetailsPanel == nil {
		return
	}

	var text string

	if index < 0 || index >= len(ui.exercises) {
		text = "\n\n  [yellow]Exercise Selection[white]\n\n"
		text += "  Select an exercise from the list to view details.\n\n"
		text += "  [gray]Press Enter to start the selected exercise.[white]\n"
	} else {
		def := ui.exercises[index]
		text = "\n"
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", def.Name)
		if def.Description != "" {
			text += fmt.Sprintf("  %s\n\n", def.Description)
		}
		text += fmt.Sprintf("  [gray]Family:[white] %s\n", def.Family)

		seq, err := def.Expand()
		if err != nil {
			text += fmt.Sprintf("\n  [red]Definition error:[white] %v\n", err)
		} else {
			if seq.HasOpenEnded() {
				text += "  [gray]Duration:[white] open-ended\n"
			} else {
				text += fmt.Sprintf("  [gray]Duration:[white] %s\n", formatDuration(seq.TotalDuration()))
			}
			text += fmt.Sprintf("  [gray]Cycles:[white] %d x %d phases\n\n", seq.Cycles, len(seq.Phases))

			// Show one cycle of the structure
			text += "  [gray]Structure:[white]\n"
			for i, phase := range seq.Phases {
				if i == detailPhasePreview {
					text += fmt.Sprintf("    ... and %d more\n", len(seq.Phases)-detailPhasePreview)
					break
				}
				text += fmt.Sprintf("    %d. %s\n", i+1, formatPhaseRow(phase))
			}
			text += "\n  [green]Press Enter to start this exercise[white]\n"
		}
	}

	ui.exerciseDetailsPanel.SetText(text)
}

// UpdateSessionState updates the session display
func (ui *CursesUIViewImpl) UpdateSessionState(state SessionState) {
	ui.sessionState = state
	ui.updateSessionDisplay()
	ui.updateVitalsDisplay()
}

// UpdateHeartRate updates the live heart rate display
func (ui *CursesUIViewImpl) UpdateHeartRate(bpm int) {
	ui.heartRate = bpm
	ui.updateVitalsDisplay()
}

// updateSessionDisplay formats and displays the session state
func (ui *CursesUIViewImpl) updateSessionDisplay() {
	if ui.sessionPanel == nil {
		return
	}

	state := ui.sessionState
	var text string

	switch state.Status {
	case engine.StatusIdle:
		text = "\n  [gray]No session yet[white]\n\n"
		text += "  Choose an exercise in Exercise Selection mode (press 1).\n"

	case engine.StatusCompleted:
		text = ui.formatFinishedSessionDisplay(state, "[green]Completed[white]")

	case engine.StatusStopped:
		text = ui.formatFinishedSessionDisplay(state, "[yellow]Stopped[white]")

	case engine.StatusPaused:
		text = ui.formatActiveSessionDisplay(state, true)

	case engine.StatusRunning:
		text = ui.formatActiveSessionDisplay(state, false)
	}

	ui.sessionPanel.SetText(text)
}

// formatActiveSessionDisplay formats the display for a running or paused session
func (ui *CursesUIViewImpl) formatActiveSessionDisplay(state SessionState, paused bool) string {
	if state.Exercise == nil {
		return "\n  [gray]No session data[white]\n"
	}

	var text string
	text = "\n"

	// Exercise name and status
	if paused {
		text += fmt.Sprintf("  [yellow]%s[white] [gray](PAUSED)[white]\n\n", state.Exercise.Name)
	} else {
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", state.Exercise.Name)
	}

	// Current phase
	text += fmt.Sprintf("  [cyan]%s[white]  [gray](%s)[white]\n\n", strings.ToUpper(state.Phase.Label), state.Phase.Kind)

	if state.OpenEnded {
		text += fmt.Sprintf("  [gray]Held for:[white] [yellow]%s[white] s\n", formatSeconds(state.PhaseElapsed))
		text += fmt.Sprintf("  [gray]Contractions:[white] %d\n", state.Contractions)
	} else {
		text += fmt.Sprintf("  [gray]Remaining:[white] [yellow]%s[white] s\n", formatSeconds(state.PhaseRemaining))
		text += fmt.Sprintf("  %s\n", formatProgressBar(state.Progress, progressBarWidth))
	}
	if state.Phase.Kind == exercise.KindGuided && state.Phase.Text != "" {
		text += fmt.Sprintf("\n  [gray]%q[white]\n", state.Phase.Text)
	}

	text += fmt.Sprintf("\n  [gray]Phase:[white] %d/%d    [gray]Cycle:[white] %d/%d\n",
		state.PhaseIndex+1, state.TotalPhases, state.CycleIndex+1, state.TotalCycles)

	// Controls hint
	text += "\n  [gray]------------------------[white]\n"
	if paused {
		text += "  [yellow]Space[white] Resume  |  [yellow]X[white] Stop  |  [yellow]R[white] Restart\n"
	} else {
		text += "  [yellow]Space[white] Pause  |  [yellow]X[white] Stop  |  [yellow]R[white] Restart\n"
	}
	if state.OpenEnded {
		text += "  [yellow]M[white] Mark Contraction  |  [yellow]H[white] Finish Hold\n"
	}

	return text
}

// formatFinishedSessionDisplay formats the display for a finished session
func (ui *CursesUIViewImpl) formatFinishedSessionDisplay(state SessionState, statusLabel string) string {
	if state.Exercise == nil {
		return "\n  [gray]No session data[white]\n"
	}

	var text string
	text = "\n"
	text += fmt.Sprintf("  [yellow]%s[white]\n\n", state.Exercise.Name)
	text += fmt.Sprintf("  %s\n\n", statusLabel)
	text += fmt.Sprintf("  [gray]Reached:[white] phase %d/%d, cycle %d/%d\n\n",
		state.PhaseIndex+1, state.TotalPhases, state.CycleIndex+1, state.TotalCycles)
	text += "  [gray]Press[white] [yellow]R[white] [gray]to repeat, or pick another exercise (press 1).[white]\n"
	text += "  [gray]The session was recorded in the Journal (press 3).[white]\n"
	return text
}

// updateVitalsDisplay formats and displays heart rate and hold info
func (ui *CursesUIViewImpl) updateVitalsDisplay() {
	if ui.vitalsPanel == nil {
		return
	}

	var text string
	text = "\n"

	if ui.heartRate > 0 {
		text += fmt.Sprintf("  [red]♥[white] Heart Rate: [yellow]%d[white] bpm\n", ui.heartRate)
	} else {
		text += "  [gray]No heart rate monitor[white]\n"
	}

	state := ui.sessionState
	if state.OpenEnded && (state.Status == engine.StatusRunning || state.Status == engine.StatusPaused) {
		text += "\n  [cyan]Open-ended hold[white]\n"
		text += fmt.Sprintf("  [gray]Contractions:[white] %d\n", state.Contractions)
		text += "\n  Mark the first contraction with [yellow]M[white];\n"
		text += "  the hold winds down on its own afterwards.\n"
	}

	ui.vitalsPanel.SetText(text)
}

// SetJournal populates the journal list, newest first, preserving the
// current selection across updates when possible
func (ui *CursesUIViewImpl) SetJournal(records []journal.Record) {
	ui.records = records

	currentSelectionIndex := ui.journalList.GetCurrentItem()

	var currentSelectionText *string
	if currentSelectionIndex < ui.journalList.GetItemCount() {
		main, _ := ui.journalList.GetItemText(currentSelectionIndex)
		currentSelectionText = &main
	}

	ui.journalList.Clear()

	selectedIdx := -1
	for i, rec := range records {
		title := formatRecordTitle(rec)
		if currentSelectionText != nil && *currentSelectionText == title {
			selectedIdx = i
		}
		ui.journalList.AddItem(title, formatRecordSummary(rec), 0, nil)
	}
	if selectedIdx > -1 {
		ui.journalList.SetCurrentItem(selectedIdx)
	} else if len(records) == 0 {
		ui.updateJournalDetailsDisplay(-1)
	}
}

// updateJournalDetailsDisplay formats and displays one journal record
func (ui *CursesUIViewImpl) updateJournalDetailsDisplay(index int) {
	if ui.journalDetailsPanel == nil {
		return
	}

	var text string

	if index < 0 || index >= len(ui.records) {
		text = "\n\n  [yellow]Journal[white]\n\n"
		text += "  No sessions recorded yet.\n\n"
		text += "  [gray]Finished sessions appear here automatically.[white]\n"
	} else {
		rec := ui.records[index]
		text = "\n"
		text += fmt.Sprintf("  [yellow]%s[white]\n\n", rec.Exercise)
		text += fmt.Sprintf("  [gray]Family:[white] %s\n", rec.Family)
		text += fmt.Sprintf("  [gray]Started:[white] %s\n", rec.Started.Format("Mon Jan 2 15:04:05"))
		text += fmt.Sprintf("  [gray]Duration:[white] %s\n", formatDurationMMSS(rec.Ended.Sub(rec.Started)))
		if rec.Completion == "natural" {
			text += "  [gray]Outcome:[white] [green]completed[white]\n"
		} else {
			text += fmt.Sprintf("  [gray]Outcome:[white] [yellow]%s[white]\n", rec.Completion)
		}
		text += fmt.Sprintf("  [gray]Phases:[white] %d    [gray]Cycles:[white] %d\n", rec.PhasesDone, rec.Cycles)
		if rec.AvgHeartRate > 0 {
			text += fmt.Sprintf("  [red]♥[white] [gray]Avg Heart Rate:[white] %d bpm\n", rec.AvgHeartRate)
		}

		if len(rec.Holds) > 0 {
			text += "\n  [gray]Holds:[white]\n"
			for i, hold := range rec.Holds {
				text += fmt.Sprintf("    %d. %.1fs, %d contractions\n", i+1, hold.AchievedSeconds, hold.Contractions)
			}
		}
	}

	ui.journalDetailsPanel.SetText(text)
}

// Draw refreshes/redraws the UI
func (ui *CursesUIViewImpl) Draw() error {
	ui.app.Draw()
	return nil
}

// Run starts the UI and blocks until it exits
func (ui *CursesUIViewImpl) Run() error {
	// SetRoot must be called before setting focus, otherwise focus may be reset
	ui.app.SetRoot(ui.mainFlex, true)
	ui.setFocusForCurrentMode()
	return ui.app.Run()
}

// Stop stops the UI framework
func (ui *CursesUIViewImpl) Stop() {
	ui.app.Stop()
}

// formatExerciseSummary builds the secondary list line for a definition
func formatExerciseSummary(def exercise.Definition) string {
	seq, err := def.Expand()
	if err != nil {
		return def.Family.String()
	}
	if seq.HasOpenEnded() {
		return fmt.Sprintf("%s · open-ended", def.Family)
	}
	return fmt.Sprintf("%s · %s", def.Family, formatDuration(seq.TotalDuration()))
}

// formatPhaseRow renders one phase for the structure preview
func formatPhaseRow(phase exercise.Phase) string {
	switch {
	case phase.Kind == exercise.KindOpenEnded:
		return fmt.Sprintf("%s (until contractions)", phase.Label)
	case phase.Kind == exercise.KindGuided:
		return fmt.Sprintf("%s: %s", phase.Label, truncate(phase.Text, 40))
	default:
		return fmt.Sprintf("%s %ss", phase.Label, formatSeconds(phase.Duration))
	}
}

// formatRecordTitle builds the primary journal list line
func formatRecordTitle(rec journal.Record) string {
	return fmt.Sprintf("%s  %s", rec.Started.Format("Jan 2 15:04"), rec.Exercise)
}

// formatRecordSummary builds the secondary journal list line
func formatRecordSummary(rec journal.Record) string {
	outcome := rec.Completion
	if outcome == "natural" {
		outcome = "completed"
	}
	return fmt.Sprintf("%s · %d phases · %d cycles", outcome, rec.PhasesDone, rec.Cycles)
}

// formatDuration formats a duration for display
func formatDuration(d time.Duration) string {
	minutes := int(d.Minutes())
	if minutes >= 60 {
		hours := minutes / 60
		mins := minutes % 60
		if mins > 0 {
			return fmt.Sprintf("%dh %dm", hours, mins)
		}
		return fmt.Sprintf("%dh", hours)
	}
	if minutes == 0 {
		return fmt.Sprintf("%ds", int(d.Seconds()))
	}
	secs := int(d.Seconds()) % 60
	if secs > 0 {
		return fmt.Sprintf("%dm %ds", minutes, secs)
	}
	return fmt.Sprintf("%d min", minutes)
}

// formatDurationMMSS formats a duration as MM:SS
func formatDurationMMSS(d time.Duration) string {
	totalSeconds := int(d.Seconds())
	minutes := totalSeconds / 60
	seconds := totalSeconds % 60
	return fmt.Sprintf("%02d:%02d", minutes, seconds)
}

// formatSeconds renders a duration as seconds with one decimal,
// rounding half up so 3.96s reads as 4.0
func formatSeconds(d time.Duration) string {
	secs := math.Floor(d.Seconds()*10+0.5) / 10
	return fmt.Sprintf("%.1f", secs)
}

// formatProgressBar renders phase progress as a fixed-width bar
func formatProgressBar(progress float64, width int) string {
	if progress < 0 {
		progress = 0
	}
	if progress > 1 {
		progress = 1
	}
	filled := int(progress * float64(width))
	bar := strings.Repeat("=", filled)
	if filled < width {
		bar += ">" + strings.Repeat(" ", width-filled-1)
	}
	// The bar always contains "=" or ">", so tview never mistakes it
	// for a color tag.
	return "[" + bar + "]"
}

// truncate shortens s to at most n runes
func truncate(s string, n int) string {
	runes := []rune(s)
	if len(runes) <= n {
		return s
	}
	return string(runes[:n-3]) + "..."
}
