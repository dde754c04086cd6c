package batchq_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/bft-labs/batchq/pkg/batchq"
	"github.com/bft-labs/batchq/pkg/sender"
)

// upper is a sender that answers every request with its upper-cased body.
var upper = sender.Func[string, string](
	func(ctx context.Context, meta sender.Metadata, entries []sender.Entry[string]) (map[string]sender.Result[string], error) {
		results := make(map[string]sender.Result[string], len(entries))
		for _, e := range entries {
			results[e.ID] = sender.Result[string]{Response: strings.ToUpper(e.Request)}
		}
		return results, nil
	})

// ExampleNew demonstrates submitting requests and waiting for their results.
func ExampleNew() {
	maxItems := 2
	m, err := batchq.New[string, string](upper,
		batchq.WithOverride(&batchq.Override{MaxBatchItems: &maxItems}),
	)
	if err != nil {
		fmt.Printf("failed to create manager: %v\n", err)
		return
	}
	defer m.Close()

	// The second submission fills the batch and releases both
	first, _ := m.Submit("greetings", "hello")
	second, _ := m.Submit("greetings", "world")

	ctx := context.Background()
	a, _ := first.Wait(ctx)
	b, _ := second.Wait(ctx)
	fmt.Println(a, b)

	// Output: HELLO WORLD
}

// Example_withEventHandler demonstrates how to receive manager events.
func Example_withEventHandler() {
	m, err := batchq.New[string, string](upper, batchq.WithEventHandler(&closeLogger{}))
	if err != nil {
		fmt.Printf("failed to create manager: %v\n", err)
		return
	}
	_ = m.Close()

	// Output:
	// Running -> Closing
	// Closing -> Closed
}

// closeLogger prints lifecycle transitions and ignores batch events.
type closeLogger struct {
	batchq.BaseEventHandler // Embed for no-op defaults
}

func (h *closeLogger) OnStateChange(event batchq.StateChangeEvent) {
	fmt.Printf("%s -> %s\n", event.Previous, event.Current)
}

// Example_flushPredicate demonstrates releasing a batch early.
func Example_flushPredicate() {
	m, err := batchq.New[string, string](upper,
		batchq.WithFlushPredicate(func(req string) bool { return strings.HasSuffix(req, "!") }),
	)
	if err != nil {
		fmt.Printf("failed to create manager: %v\n", err)
		return
	}
	defer m.Close()

	c, _ := m.Submit("alerts", "fire!")
	resp, _ := c.Wait(context.Background())
	fmt.Println(resp)

	// Output: FIRE!
}
