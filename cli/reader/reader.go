package reader

import (
	"errors"

	"github.com/pithecene-io/segwire/stamp"
)

// PreviewLen caps the payload preview in a UnitView.
const PreviewLen = 48

// InspectUnit decodes one unit without touching any registry.
// A malformed stamped unit is reported in the view, not as an error.
func InspectUnit(unit string) *UnitView {
	view := &UnitView{Size: len(unit)}

	u, err := stamp.Parse(unit)
	if err != nil {
		view.Kind = "malformed"
		view.Malformed = true
		view.MalformedWhy = malformedReason(err)
		view.PayloadSize = len(unit)
		view.Preview = preview(unit)
		return view
	}

	view.Kind = u.Kind.String()
	view.PayloadSize = len(u.Payload)
	view.Preview = preview(u.Payload)
	if u.IsStamped() {
		index := u.Stamp.Index
		view.ID = u.Stamp.ID
		view.Index = &index
	}
	return view
}

// SummarizeStream inspects each unit and groups stamped units by identifier,
// in order of first appearance.
func SummarizeStream(units []string) *StreamView {
	view := &StreamView{Messages: []MessageSummary{}}
	byID := make(map[string]int)
	seen := make(map[string]map[int]bool)

	for _, unit := range units {
		view.Units++
		u, err := stamp.Parse(unit)
		if err != nil {
			view.Malformed++
			continue
		}
		if !u.IsStamped() {
			view.Plain++
			continue
		}
		view.Stamped++

		i, ok := byID[u.Stamp.ID]
		if !ok {
			i = len(view.Messages)
			byID[u.Stamp.ID] = i
			view.Messages = append(view.Messages, MessageSummary{ID: u.Stamp.ID})
			seen[u.Stamp.ID] = make(map[int]bool)
		}
		m := &view.Messages[i]
		if u.Kind == stamp.KindAnnouncement {
			last := u.Stamp.Index
			m.Announced = true
			m.LastIndex = &last
			continue
		}
		m.DataUnits++
		m.PayloadBytes += len(u.Payload)
		seen[u.Stamp.ID][u.Stamp.Index] = true
	}

	for i := range view.Messages {
		m := &view.Messages[i]
		if m.LastIndex == nil {
			continue
		}
		m.Complete = true
		for k := 0; k <= *m.LastIndex; k++ {
			if !seen[m.ID][k] {
				m.Complete = false
				break
			}
		}
	}
	return view
}

func malformedReason(err error) string {
	var me *stamp.MalformedUnitError
	if errors.As(err, &me) {
		return me.Reason
	}
	return err.Error()
}

func preview(s string) string {
	if len(s) <= PreviewLen {
		return s
	}
	return s[:PreviewLen] + "..."
}
