// Package hotkey triggers a scan from a global key combination, so the game
// window can keep focus while the tool runs in the background.
package hotkey

import (
	"fmt"
	"log"
	"strings"

	gohook "github.com/robotn/gohook"
)

// Rawcodes of the modifier keys as gohook reports them on Windows.
var modifierCodes = map[string][]uint16{
	"ctrl":  {162, 163},
	"alt":   {164, 165},
	"shift": {160, 161},
}

type combo struct {
	modifiers []string
	key       uint16
	label     string
}

// parseCombo turns a config string like "Ctrl+Alt+G" into tracked rawcodes.
// The final part must be a single letter or digit; everything before it a
// modifier.
func parseCombo(spec string) (combo, error) {
	parts := strings.Split(strings.ToLower(spec), "+")
	c := combo{label: spec}
	for i, part := range parts {
		part = strings.TrimSpace(part)
		if _, ok := modifierCodes[part]; ok {
			c.modifiers = append(c.modifiers, part)
			continue
		}
		if i != len(parts)-1 || len(part) != 1 {
			return combo{}, fmt.Errorf("unsupported hotkey %q", spec)
		}
		r := part[0]
		switch {
		case r >= 'a' && r <= 'z':
			c.key = uint16(r - 'a' + 'A')
		case r >= '0' && r <= '9':
			c.key = uint16(r)
		default:
			return combo{}, fmt.Errorf("unsupported hotkey %q", spec)
		}
	}
	if c.key == 0 {
		return combo{}, fmt.Errorf("hotkey %q has no trigger key", spec)
	}
	return c, nil
}

// Listen watches for the combination and calls trigger each time it is
// completed. The trigger runs on the hook goroutine, so callers that start a
// scan should hand it off.
func Listen(spec string, trigger func()) error {
	c, err := parseCombo(spec)
	if err != nil {
		return err
	}

	go func() {
		defer func() {
			if r := recover(); r != nil {
				log.Printf("Hotkey: PANIC in listener: %v", r)
			}
		}()

		evChan := gohook.Start()
		if evChan == nil {
			log.Printf("Hotkey: gohook.Start() returned nil channel")
			return
		}
		log.Printf("Hotkey: listening for %s", c.label)

		down := map[uint16]bool{}
		for ev := range evChan {
			switch ev.Kind {
			case gohook.KeyDown:
				down[ev.Rawcode] = true
				if c.satisfied(down) {
					log.Printf("Hotkey: %s activated", c.label)
					trigger()
					down = map[uint16]bool{}
				}
			case gohook.KeyUp:
				delete(down, ev.Rawcode)
			}
		}
		log.Printf("Hotkey: event channel closed")
	}()
	return nil
}

func (c combo) satisfied(down map[uint16]bool) bool {
	if !down[c.key] {
		return false
	}
	for _, mod := range c.modifiers {
		pressed := false
		for _, code := range modifierCodes[mod] {
			if down[code] {
				pressed = true
				break
			}
		}
		if !pressed {
			return false
		}
	}
	return true
}
