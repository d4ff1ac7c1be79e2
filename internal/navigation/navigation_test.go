// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

package navigation

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/jeranaias/cradle-tui/internal/eventloop"
	"github.com/jeranaias/cradle-tui/internal/model"
)

// =============================================================================
// DERIVE TESTS
// =============================================================================

func TestDerive(t *testing.T) {
	entry := func(e Entry) *Entry { return &e }

	tests := []struct {
		name     string
		entry    *Entry
		fragment string
		want     State
	}{
		{"welcome entry", entry(WelcomeEntry()), "#welcome", State{View: ViewWelcome}},
		{"conversation with messages", entry(ConversationEntry("c_1", true)), "#chat/c_1", State{ViewConversation, "c_1"}},
		{"unsaved conversation", entry(ConversationEntry("", true)), "#chat", State{View: ViewConversation}},
		{"conversation without messages", entry(ConversationEntry("c_1", false)), "#chat/c_1", State{View: ViewWelcome}},
		{"payload wins over fragment", entry(WelcomeEntry()), "#chat/c_9", State{View: ViewWelcome}},
		{"bare fragment with id", nil, "#chat/c_2", State{ViewConversation, "c_2"}},
		{"fragment without hash", nil, "chat/c_2", State{ViewConversation, "c_2"}},
		{"bare chat fragment", nil, "#chat", State{View: ViewWelcome}},
		{"welcome marker", nil, "#welcome", State{View: ViewWelcome}},
		{"empty fragment", nil, "", State{View: ViewWelcome}},
		{"garbage", nil, "#settings/profile", State{View: ViewWelcome}},
		{"nested path", nil, "#chat/c_1/extra", State{View: ViewWelcome}},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Derive(tc.entry, tc.fragment))
		})
	}
}

func TestEntryFragment(t *testing.T) {
	assert.Equal(t, "#welcome", WelcomeEntry().Fragment())
	assert.Equal(t, "#chat", ConversationEntry("", true).Fragment())
	assert.Equal(t, "#chat/42", ConversationEntry("42", true).Fragment())

	for _, e := range []Entry{ConversationEntry("42", true), ConversationEntry("abc-def", true)} {
		assert.Equal(t, State{ViewConversation, e.ConversationID}, Derive(nil, e.Fragment()))
	}
}

// =============================================================================
// FAKES
// =============================================================================

// fakeConversation records resets and opens like the reconciler would.
type fakeConversation struct {
	id     model.ID
	count  int
	resets int
	opened []model.ID
}

func (c *fakeConversation) Reset() {
	c.resets++
	c.id = ""
	c.count = 0
}

func (c *fakeConversation) Open(id model.ID) {
	c.resets++
	c.id = id
	c.count = 0
	c.opened = append(c.opened, id)
}

func (c *fakeConversation) HasMessages() bool        { return c.count > 0 }
func (c *fakeConversation) ConversationID() model.ID { return c.id }

type fixture struct {
	rt      *eventloop.Manual
	history *MemoryHistory
	conv    *fakeConversation
	m       *Machine
}

func newFixture() *fixture {
	rt := eventloop.NewManual()
	f := &fixture{
		rt:      rt,
		history: NewMemoryHistory(rt),
		conv:    &fakeConversation{},
	}
	f.m = New(f.history, f.conv, nil)
	f.history.Listen(f.m.HandleEvent)
	return f
}

// firstSend simulates the reconciler's optimistic insert and a reply that
// names the conversation.
func (f *fixture) firstSend(id model.ID) {
	f.conv.count = 2
	f.m.EnterConversation()
	if !id.IsZero() {
		f.conv.id = id
		f.m.Sync(id, true)
	}
}

func (f *fixture) fragments() []string {
	slots, _ := f.history.Slots()
	out := make([]string, len(slots))
	for i, s := range slots {
		out[i] = s.Fragment
	}
	return out
}

func (f *fixture) back(t *testing.T) {
	t.Helper()
	require.True(t, f.history.Back())
	f.rt.RunPending()
}

func (f *fixture) forward(t *testing.T) {
	t.Helper()
	require.True(t, f.history.Forward())
	f.rt.RunPending()
}

// =============================================================================
// MACHINE TESTS
// =============================================================================

func TestMachine_SeedsWelcomeEntry(t *testing.T) {
	f := newFixture()
	assert.Equal(t, ViewWelcome, f.m.View())
	assert.Equal(t, []string{"#welcome"}, f.fragments())
}

func TestMachine_FirstInsertPushesSynchronously(t *testing.T) {
	f := newFixture()
	f.conv.count = 2
	f.m.EnterConversation()

	assert.Equal(t, ViewConversation, f.m.View())
	assert.Equal(t, []string{"#welcome", "#chat"}, f.fragments())

	cur, ok := f.history.Current()
	require.True(t, ok)
	assert.True(t, cur.HasMessages)
}

func TestMachine_SyncAdoptsConversationID(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")

	assert.Equal(t, []string{"#welcome", "#chat/c_1"}, f.fragments())
	assert.Equal(t, State{ViewConversation, "c_1"}, f.m.State())

	// Agreeing sync is a no-op.
	f.m.Sync("c_1", true)
	assert.Equal(t, []string{"#welcome", "#chat/c_1"}, f.fragments())
}

func TestMachine_RevertToWelcomeAfterFailedFirstSend(t *testing.T) {
	f := newFixture()
	f.firstSend("")
	f.conv.count = 0
	f.m.RevertToWelcome()

	assert.Equal(t, ViewWelcome, f.m.View())
	cur, ok := f.history.Current()
	require.True(t, ok)
	assert.Equal(t, WelcomeEntry(), cur)
	assert.Equal(t, 0, f.rt.RunPending(), "revert does not trigger a navigation event")
	assert.Equal(t, []string{"#welcome", "#welcome"}, f.fragments())

	f.back(t)
	assert.Equal(t, ViewWelcome, f.m.View())
	assert.False(t, f.history.CanBack())
}

func TestMachine_NewConversationPushesWelcome(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")
	f.m.NewConversation()

	assert.Equal(t, ViewWelcome, f.m.View())
	assert.Equal(t, 1, f.conv.resets)
	assert.Equal(t, []string{"#welcome", "#chat/c_1", "#welcome"}, f.fragments())

	// Already on welcome: nothing happens.
	f.m.NewConversation()
	assert.Equal(t, 1, f.conv.resets)
	assert.Len(t, f.fragments(), 3)
}

func TestMachine_SelectPushesThenReplaces(t *testing.T) {
	f := newFixture()

	f.m.Select("c_1")
	assert.Equal(t, []string{"#welcome", "#chat/c_1"}, f.fragments())
	assert.Equal(t, []model.ID{"c_1"}, f.conv.opened)

	f.conv.count = 3
	f.m.Sync("c_1", true)
	f.m.Select("c_2")
	assert.Equal(t, []string{"#welcome", "#chat/c_2"}, f.fragments(), "switching replaces the entry")
	assert.Equal(t, State{ViewConversation, "c_2"}, f.m.State())

	// Reselecting the open conversation does nothing.
	f.m.Select("c_2")
	assert.Equal(t, []model.ID{"c_1", "c_2"}, f.conv.opened)
}

func TestMachine_BackToWelcomeResets(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")

	f.back(t)
	assert.Equal(t, ViewWelcome, f.m.View())
	assert.Equal(t, 1, f.conv.resets)
	assert.False(t, f.conv.HasMessages())
}

func TestMachine_ForwardReopensSavedConversation(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")
	f.back(t)
	f.forward(t)

	assert.Equal(t, State{ViewConversation, "c_1"}, f.m.State())
	assert.Equal(t, []model.ID{"c_1"}, f.conv.opened)
}

func TestMachine_BackToSavedConversationClearsHasMessages(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")
	f.m.NewConversation()
	f.back(t)

	assert.Equal(t, State{ViewConversation, "c_1"}, f.m.State())
	cur, ok := f.history.Current()
	require.True(t, ok)
	assert.Equal(t, ConversationEntry("c_1", false), cur, "entry matches the empty list while reloading")
	assert.False(t, f.conv.HasMessages())

	// The reload lands.
	f.conv.count = 2
	f.m.Sync("c_1", true)
	cur, _ = f.history.Current()
	assert.Equal(t, ConversationEntry("c_1", true), cur)
}

func TestMachine_ForwardToUnsavedConversationFallsBack(t *testing.T) {
	f := newFixture()
	f.firstSend("")
	f.back(t)
	f.forward(t)

	assert.Equal(t, ViewWelcome, f.m.View())
	cur, _ := f.history.Current()
	assert.Equal(t, WelcomeEntry(), cur, "stale entry normalized to welcome")
}

func TestMachine_EntryWithoutMessagesDerivesWelcome(t *testing.T) {
	f := newFixture()
	f.m.Select("c_1") // entry pushed with hasMessages=false, load never finished
	f.history.Push(WelcomeEntry())
	f.back(t)

	assert.Equal(t, ViewWelcome, f.m.View())
}

func TestMachine_FragmentNavigation(t *testing.T) {
	f := newFixture()

	f.history.Go("#chat/c_7")
	f.rt.RunPending()
	assert.Equal(t, State{ViewConversation, "c_7"}, f.m.State())
	assert.Equal(t, []model.ID{"c_7"}, f.conv.opened)

	cur, ok := f.history.Current()
	require.True(t, ok, "payload-less entry gets a payload")
	assert.Equal(t, ConversationEntry("c_7", false), cur)

	f.history.Go("#nonsense")
	f.rt.RunPending()
	assert.Equal(t, ViewWelcome, f.m.View())
	cur, _ = f.history.Current()
	assert.Equal(t, WelcomeEntry(), cur)
}

func TestMachine_FragmentForOpenConversationKeepsList(t *testing.T) {
	f := newFixture()
	f.firstSend("c_1")
	resets := f.conv.resets

	f.history.Go("#chat/c_1")
	f.rt.RunPending()
	assert.Equal(t, resets, f.conv.resets)
	assert.Empty(t, f.conv.opened)
}

func TestMachine_OnChange(t *testing.T) {
	f := newFixture()
	var views []View
	f.m.OnChange(func(s State) { views = append(views, s.View) })

	f.firstSend("c_1")
	f.back(t)
	assert.Equal(t, []View{ViewConversation, ViewConversation, ViewWelcome}, views)
}

// =============================================================================
// MEMORY HISTORY TESTS
// =============================================================================

func TestMemoryHistory_PushTruncatesForward(t *testing.T) {
	rt := eventloop.NewManual()
	h := NewMemoryHistory(rt)
	h.Push(WelcomeEntry())
	h.Push(ConversationEntry("a", true))
	h.Push(ConversationEntry("b", true))

	require.True(t, h.Back())
	require.True(t, h.Back())
	assert.False(t, h.Back())
	h.Push(ConversationEntry("c", true))

	slots, idx := h.Slots()
	require.Len(t, slots, 2)
	assert.Equal(t, 1, idx)
	assert.Equal(t, "#chat/c", slots[1].Fragment)
	assert.False(t, h.CanForward())
	assert.True(t, h.CanBack())
}

func TestMemoryHistory_NotifiesAsynchronously(t *testing.T) {
	rt := eventloop.NewManual()
	h := NewMemoryHistory(rt)
	h.Push(WelcomeEntry())
	h.Push(ConversationEntry("a", true))

	var got []Event
	h.Listen(func(ev Event) { got = append(got, ev) })

	require.True(t, h.Back())
	assert.Empty(t, got, "delivery waits for the loop")
	rt.RunPending()

	require.Len(t, got, 1)
	require.NotNil(t, got[0].Entry)
	assert.Equal(t, ViewWelcome, got[0].Entry.View)
	assert.Equal(t, "#welcome", got[0].Fragment)

	// Mutating the delivered entry does not touch the stack.
	got[0].Entry.View = ViewConversation
	cur, _ := h.Current()
	assert.Equal(t, ViewWelcome, cur.View)
}

func TestMemoryHistory_EmptyStack(t *testing.T) {
	h := NewMemoryHistory(eventloop.NewManual())
	_, ok := h.Current()
	assert.False(t, ok)
	assert.False(t, h.Back())
	assert.False(t, h.Forward())

	h.Replace(WelcomeEntry())
	_, ok = h.Current()
	assert.True(t, ok)
}
