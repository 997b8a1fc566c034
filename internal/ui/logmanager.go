package ui

import (
	"fygallery/internal/notice"

	"fyne.io/fyne/v2"
	"fyne.io/fyne/v2/widget"
)

// statusLog shows the notice history in the status bar with buttons to step
// through older messages.
type statusLog struct {
	log *notice.Log

	// UI elements it controls
	label   *widget.Label
	upBtn   *widget.Button
	downBtn *widget.Button
}

func newStatusLog(l *notice.Log, label *widget.Label, upBtn, downBtn *widget.Button) *statusLog {
	sl := &statusLog{log: l, label: label, upBtn: upBtn, downBtn: downBtn}
	upBtn.OnTapped = l.Previous
	downBtn.OnTapped = l.Next
	l.OnChange(func(v notice.View) {
		fyne.Do(func() { sl.show(v) })
	})
	sl.show(l.Current())
	return sl
}

func (sl *statusLog) show(v notice.View) {
	sl.label.SetText(v.Text)
	if v.CanPrev {
		sl.upBtn.Enable()
	} else {
		sl.upBtn.Disable()
	}
	if v.CanNext {
		sl.downBtn.Enable()
	} else {
		sl.downBtn.Disable()
	}
}

// bindTransient mirrors the auto-dismissing notification into label.
func bindTransient(t *notice.Transient, label *widget.Label) {
	t.OnChange(func(text string) {
		fyne.Do(func() {
			label.SetText(text)
			if text == "" {
				label.Hide()
			} else {
				label.Show()
			}
		})
	})
	label.Hide()
}
