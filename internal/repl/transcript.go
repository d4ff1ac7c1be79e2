// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package repl

import (
	"fmt"
	"io"
	"strings"
	"sync"

	"github.com/jeranaias/cradle-tui/internal/app"
	"github.com/jeranaias/cradle-tui/internal/model"
	"github.com/jeranaias/cradle-tui/internal/reconcile"
	"github.com/jeranaias/cradle-tui/internal/util"
)

// Transcript prints the reply of one exchange incrementally from
// controller snapshots.
type Transcript struct {
	mu  sync.Mutex
	out io.Writer

	active  bool
	id      string
	printed string
	open    bool
}

// NewTranscript writes to out.
func NewTranscript(out io.Writer) *Transcript {
	return &Transcript{out: out}
}

// Begin starts tracking the reply with the given message id.
func (t *Transcript) Begin(id string) {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.active = true
	t.id = id
	t.printed = ""
	t.open = false
}

// Update prints whatever part of the reply became visible since the last
// snapshot. A reply that no longer extends what was printed starts over on
// a fresh line.
func (t *Transcript) Update(s app.Snapshot) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if !t.active {
		return
	}

	msg := find(s.Messages, t.id)
	if msg == nil {
		return
	}

	text := msg.Content
	if text == t.printed {
		return
	}
	if !t.open {
		fmt.Fprint(t.out, assistantStyle.Render("cradle")+" ")
		t.open = true
	}
	if rest, ok := strings.CutPrefix(text, t.printed); ok {
		fmt.Fprint(t.out, rest)
	} else {
		fmt.Fprint(t.out, "\n"+assistantStyle.Render("cradle")+" "+text)
	}
	t.printed = text
}

// End finishes the current reply and reports failures.
func (t *Transcript) End(s reconcile.Settlement) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.open {
		fmt.Fprintln(t.out)
	}
	t.active = false
	t.open = false

	if s.Outcome == reconcile.Failed && s.Err != nil {
		fmt.Fprintf(t.out, "%s %s\n", errorStyle.Render("[Not sent]"), util.FirstLine(s.Err.Error()))
	}
}

// PrintHistory writes a whole conversation.
func (t *Transcript) PrintHistory(msgs []model.Message) {
	t.mu.Lock()
	defer t.mu.Unlock()
	for _, m := range msgs {
		label := userStyle.Render("you")
		if m.Role == model.RoleAssistant {
			label = assistantStyle.Render("cradle")
		}
		fmt.Fprintf(t.out, "%s %s\n", label, m.Content)
	}
}

// Println writes one line of session output.
func (t *Transcript) Println(a ...interface{}) {
	t.mu.Lock()
	defer t.mu.Unlock()
	fmt.Fprintln(t.out, a...)
}

func find(msgs []model.Message, id string) *model.Message {
	for i := len(msgs) - 1; i >= 0; i-- {
		if msgs[i].ID == id {
			return &msgs[i]
		}
	}
	return nil
}
