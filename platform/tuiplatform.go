package platform

import (
	"fmt"
	"log/slog"
	"os"
	"strings"
	"sync"
	"sync/atomic"

	"github.com/gdamore/tcell/v2"
	"github.com/lucasb-eyer/go-colorful"
	"github.com/rivo/tview"

	c "lautenbacher.net/piezoleds/config"
	"lautenbacher.net/piezoleds/glow"
	"lautenbacher.net/piezoleds/logging"
	u "lautenbacher.net/piezoleds/util"
)

var barBlocks = []string{" ", "▁", "▂", "▃", "▄", "▅", "▆", "▇", "█"}

// TUIPlatform simulates the lamp in the terminal. The sensor is either
// driven by key presses or by the loudness of an audio input.
type TUIPlatform struct {
	*AbstractPlatform
	tviewapp     *tview.Application
	intro        *tview.TextView
	ledDisplay   *tview.TextView
	statusView   *tview.TextView
	logView      *tview.TextView
	ossignalChan chan os.Signal
	logFlushOnce sync.Once
	running      atomic.Bool
	drawQueued   atomic.Bool
	frameMu      sync.Mutex
	pending      []glow.Led
	shown        []glow.Led
	audio        *audioSensor
}

func NewTUIPlatform(conf *c.Config, ossignalchan chan os.Signal) *TUIPlatform {
	return &TUIPlatform{
		AbstractPlatform: newAbstractPlatform(conf),
		ossignalChan:     ossignalchan,
		pending:          make([]glow.Led, conf.Glow.LedsTotal),
		shown:            make([]glow.Led, conf.Glow.LedsTotal),
	}
}

func (s *TUIPlatform) audioInput() bool {
	return strings.EqualFold(s.config.Simulation.SensorInput, "audio")
}

func (s *TUIPlatform) Start() error {
	s.tviewapp = tview.NewApplication()
	layout := s.initWidgets()

	if s.audioInput() {
		s.audio = newAudioSensor(s.config.Simulation.Audio, s.recordReading)
		if err := s.audio.start(); err != nil {
			return err
		}
	}

	// --- Flush logs after first draw ---
	s.tviewapp.SetAfterDrawFunc(func(screen tcell.Screen) {
		s.logFlushOnce.Do(func() {
			if err := logging.SetOutput(tview.ANSIWriter(s.logView)); err != nil {
				slog.Warn("Could not flush buffered log output", "error", err)
			}
			s.running.Store(true)
			close(s.readyChan) // Signal that the TUI is ready
		})
	})
	s.tviewapp.SetInputCapture(s.handleKey)

	go func() {
		if err := s.tviewapp.SetRoot(layout, true).Run(); err != nil {
			slog.Error("Error running TUI", "error", err)
			s.ossignalChan <- os.Interrupt
		}
	}()
	return nil
}

func (s *TUIPlatform) Stop() {
	if s.audio != nil {
		s.audio.stop()
	}
	s.stopWorkers()
	if s.tviewapp != nil {
		s.tviewapp.Stop()
	}
}

func (s *TUIPlatform) SetPixel(index int, led glow.Led) {
	if index >= 0 && index < len(s.pending) {
		s.pending[index] = led
	}
}

// Show publishes the pending frame and schedules a redraw unless one is
// still queued.
func (s *TUIPlatform) Show() error {
	if s.inShutdown() || !s.running.Load() {
		return nil
	}
	s.frameMu.Lock()
	copy(s.shown, s.pending)
	s.frameMu.Unlock()

	if s.drawQueued.CompareAndSwap(false, true) {
		s.tviewapp.QueueUpdateDraw(func() {
			s.drawQueued.Store(false)
			s.simulateLedDisplay()
		})
	}
	return nil
}

// WatchStatus redraws the status pane whenever the engine publishes.
func (s *TUIPlatform) WatchStatus(status *u.AtomicEvent[glow.Status]) {
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		for {
			select {
			case <-s.stopChan:
				return
			case <-status.Channel():
				text := s.statusText(status.Value())
				if s.running.Load() {
					s.tviewapp.QueueUpdateDraw(func() {
						s.statusView.SetText(text)
					})
				}
			}
		}
	}()
}

func (s *TUIPlatform) getIntroText() string {
	line1 := fmt.Sprintf("Sensor reading: [#ffff00]%-4d[white]", s.ReadSensor())
	var line2 string
	if s.audioInput() {
		line2 = fmt.Sprintf("Sensor follows the audio input [blue]%s[-]", s.config.Simulation.Audio.Device)
	} else {
		line2 = fmt.Sprintf("Hit [#ff0000]+[white]/[#ff0000]-[white] to change by %d, [blue]0[-] for silence, [blue]9[-] for a full hit",
			s.config.Simulation.KeyStep)
	}
	line3 := "Hit [#ff0000]q[-] to exit, [#ff0000]Up/Down[-] to scroll logs"
	return fmt.Sprintf("%s\n%s\n%s", line1, line2, line3)
}

func (s *TUIPlatform) initWidgets() *tview.Flex {
	// --- Intro Pane ---
	s.intro = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignCenter)
	s.intro.SetText(s.getIntroText())
	s.intro.SetBorder(true).SetTitle(" PIEZOLEDS Simulation ").SetTitleColor(tcell.ColorLightBlue)
	s.intro.SetBackgroundColor(tcell.NewRGBColor(20, 20, 20))

	// --- LED Display Pane ---
	s.ledDisplay = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.ledDisplay.SetBorder(true)
	s.ledDisplay.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	// --- Status Pane ---
	s.statusView = tview.NewTextView().
		SetDynamicColors(true).
		SetTextAlign(tview.AlignLeft)
	s.statusView.SetBorder(true).SetTitle(" Engine ").SetTitleColor(tcell.ColorLightBlue)
	s.statusView.SetBackgroundColor(tcell.NewRGBColor(30, 30, 30))

	// --- Log Pane ---
	s.logView = tview.NewTextView().
		SetDynamicColors(true).
		SetScrollable(true).
		SetChangedFunc(func() {
			s.logView.ScrollToEnd()
			if s.tviewapp != nil {
				s.tviewapp.Draw()
			}
		})
	s.logView.SetBorder(true).SetTitle(" Logs ").SetTitleColor(tcell.ColorLightBlue)
	s.logView.SetBackgroundColor(tcell.NewRGBColor(40, 40, 40))

	return tview.NewFlex().SetDirection(tview.FlexRow).
		AddItem(s.intro, 5, 0, false).
		AddItem(s.ledDisplay, 4, 0, false).
		AddItem(s.statusView, 4, 0, false).
		AddItem(s.logView, 0, 1, true)
}

func (s *TUIPlatform) handleKey(event *tcell.EventKey) *tcell.EventKey {
	switch event.Key() {
	case tcell.KeyCtrlC:
		s.ossignalChan <- os.Interrupt
		return nil
	case tcell.KeyRune:
		switch event.Rune() {
		case 'q', 'Q':
			s.ossignalChan <- os.Interrupt
			return nil
		}
		if s.audioInput() {
			return event
		}
		reading := s.ReadSensor()
		switch event.Rune() {
		case '+':
			reading += s.config.Simulation.KeyStep
		case '-':
			reading -= s.config.Simulation.KeyStep
		case '0':
			reading = 0
		case '9':
			reading = c.SensorMax
		default:
			return event
		}
		reading = s.recordReading(reading)
		slog.Debug("Simulated sensor reading", "value", reading)
		s.intro.SetText(s.getIntroText())
		return nil
	case tcell.KeyUp:
		row, col := s.logView.GetScrollOffset()
		s.logView.ScrollTo(row-1, col)
		return nil
	case tcell.KeyDown:
		row, col := s.logView.GetScrollOffset()
		s.logView.ScrollTo(row+1, col)
		return nil
	}
	return event
}

func (s *TUIPlatform) statusText(st glow.Status) string {
	return fmt.Sprintf(" Mode: [yellow]%-12s[-] Reading: [yellow]%4d[-] Speed: %7.1f FPS: %4d\n Sensor [min|mean|max]: %s",
		st.Mode, st.Reading, st.Speed, st.FPS, s.history.stats())
}

// simulateLedDisplay redraws the LED display pane.
// This function must be called on the main TUI thread via app.QueueUpdateDraw().
func (s *TUIPlatform) simulateLedDisplay() {
	s.frameMu.Lock()
	top, bottom := renderStrip(s.shown, s.config.Glow.Brightness)
	s.frameMu.Unlock()
	s.ledDisplay.SetText(" " + top + "\n " + bottom)
}

// renderStrip draws each pixel as a two row bar whose height follows its
// brightest channel, colored with the pixel's hue at full value.
func renderStrip(leds []glow.Led, brightness int) (string, string) {
	var buf1, buf2 strings.Builder
	levels := 2 * (len(barBlocks) - 1)
	for _, v := range leds {
		if v.IsEmpty() {
			buf1.WriteString(" ")
			buf2.WriteString(" ")
			continue
		}
		value := max(v.Red, v.Green, v.Blue)
		level := min(int(value)*levels/max(brightness, 1), levels)
		level = max(level, 1)
		colorStr := scaledColor(v)
		buf1.WriteString(colorStr)
		buf2.WriteString(colorStr)
		buf1.WriteString(barBlocks[max(level-(len(barBlocks)-1), 0)])
		buf2.WriteString(barBlocks[min(level, len(barBlocks)-1)])
		buf1.WriteString("[-]")
		buf2.WriteString("[-]")
	}
	return buf1.String(), buf2.String()
}

func scaledColor(led glow.Led) string {
	if led.IsEmpty() {
		return "[#000000]"
	}
	col := colorful.Color{R: float64(led.Red) / 255, G: float64(led.Green) / 255, B: float64(led.Blue) / 255}
	h, sat, _ := col.Hsv()
	return "[" + colorful.Hsv(h, sat, 1).Clamped().Hex() + "]"
}
