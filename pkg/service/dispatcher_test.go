package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/cloudwego/eino/schema"
)

// serialModel fails if two generations for it ever overlap.
type serialModel struct {
	busy       int32
	violations int32
	calls      int32
}

func (m *serialModel) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if !atomic.CompareAndSwapInt32(&m.busy, 0, 1) {
		atomic.AddInt32(&m.violations, 1)
	}
	time.Sleep(2 * time.Millisecond)
	atomic.AddInt32(&m.calls, 1)
	atomic.StoreInt32(&m.busy, 0)
	return `{"scenario":"discussion","topic":null,"question":null,"understanding_level":5}`, nil
}

func TestDispatcher_SerializesTurnsPerChat(t *testing.T) {
	model := &serialModel{}
	p, st := newTestProcessor(model, model)
	d := NewDispatcher(p)

	const turns = 8
	var wg sync.WaitGroup
	for i := 0; i < turns; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := d.Submit(context.Background(), "chat-1", fmt.Sprintf("turn-%d", i)); err != nil {
				t.Errorf("Submit() error = %v", err)
			}
		}(i)
	}
	wg.Wait()

	if v := atomic.LoadInt32(&model.violations); v != 0 {
		t.Fatalf("concurrent generations for one chat = %d, want 0", v)
	}

	_, history, err := st.Load(context.Background(), "chat-1")
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if len(history) != turns*2 {
		t.Fatalf("len(history) = %d, want %d", len(history), turns*2)
	}
	// Turns never interleave: strict user/assistant alternation.
	for i, m := range history {
		wantRole := "user"
		if i%2 == 1 {
			wantRole = "assistant"
		}
		if m.Role != wantRole {
			t.Fatalf("history[%d].Role = %s, want %s", i, m.Role, wantRole)
		}
	}
}

// gatedModel blocks generations whose turn mentions the gate word until the
// gate channel is closed; everything else answers immediately.
type gatedModel struct {
	gate chan struct{}
}

func (m *gatedModel) Generate(ctx context.Context, messages []*schema.Message) (string, error) {
	if len(messages) > 0 && strings.Contains(messages[len(messages)-1].Content, "медленно") {
		<-m.gate
	}
	return `{"scenario":"discussion","topic":null,"question":null,"understanding_level":5}`, nil
}

func TestDispatcher_FullQueueDoesNotBlockOtherChats(t *testing.T) {
	model := &gatedModel{gate: make(chan struct{})}
	p, _ := newTestProcessor(model, model)
	d := NewDispatcher(p)

	// One in-flight turn, a full queue behind it, and one more submitter
	// blocked on the send itself.
	var wg sync.WaitGroup
	for i := 0; i < chatQueueSize+2; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			if _, err := d.Submit(context.Background(), "chat-1", fmt.Sprintf("медленно %d", i)); err != nil {
				t.Errorf("Submit(chat-1) error = %v", err)
			}
		}(i)
	}
	time.Sleep(100 * time.Millisecond)

	done := make(chan struct{})
	go func() {
		defer close(done)
		if _, err := d.Submit(context.Background(), "chat-b", "привет"); err != nil {
			t.Errorf("Submit(chat-b) error = %v", err)
		}
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Submit for an idle chat blocked behind another chat's full queue")
	}

	close(model.gate)
	wg.Wait()
}

func TestDispatcher_ChatsProceedIndependently(t *testing.T) {
	model := &fakeModel{replies: []string{
		`{"scenario":"discussion","topic":null,"question":null,"understanding_level":5}`,
	}}
	p, st := newTestProcessor(model, model)
	d := NewDispatcher(p)

	var wg sync.WaitGroup
	for _, chatID := range []string{"chat-a", "chat-b", "chat-c"} {
		wg.Add(1)
		go func(chatID string) {
			defer wg.Done()
			if _, err := d.Submit(context.Background(), chatID, "привет"); err != nil {
				t.Errorf("Submit(%s) error = %v", chatID, err)
			}
		}(chatID)
	}
	wg.Wait()

	for _, chatID := range []string{"chat-a", "chat-b", "chat-c"} {
		_, history, err := st.Load(context.Background(), chatID)
		if err != nil {
			t.Fatalf("Load(%s) error = %v", chatID, err)
		}
		if len(history) != 2 {
			t.Fatalf("len(history) for %s = %d, want 2", chatID, len(history))
		}
	}
}
