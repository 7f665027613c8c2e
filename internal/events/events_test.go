package events

import (
	"testing"

	"github.com/localnerve/docstore/internal/document"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
)

func TestBusPublish(t *testing.T) {
	bus := NewBus(zerolog.Nop())

	var got []Event
	bus.Subscribe(ListenerFunc(func(e Event) { panic("listener bug") }))
	bus.Subscribe(ListenerFunc(func(e Event) { got = append(got, e) }))

	e := Event{Kind: DocumentUpdated, Wiki: "xwiki", Reference: document.NewReference("xwiki", "Main", "WebHome"), Remote: true}
	bus.Publish(e)
	bus.Publish(Event{Kind: WikiDeleted, Wiki: "sub"})

	assert.Len(t, got, 2)
	assert.Equal(t, e, got[0])
	assert.Equal(t, "wiki.deleted", got[1].Kind.String())
}
