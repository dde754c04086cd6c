// Package sender defines the transport port batchq hands drained batches to,
// and an HTTP implementation of it.
//
// # Usage
//
// Send batches to an HTTP batch endpoint:
//
//	s := sender.NewHTTP[Order, Ack](sender.HTTPConfig{
//	    ServiceURL: "https://batches.example.com",
//	    AuthKey:    "api-key",
//	}, &http.Client{Timeout: 15 * time.Second}, logger)
//
// Or adapt a function, for example in tests:
//
//	s := sender.Func[Order, Ack](func(ctx context.Context, meta sender.Metadata, entries []sender.Entry[Order]) (map[string]sender.Result[Ack], error) {
//	    results := make(map[string]sender.Result[Ack], len(entries))
//	    for _, e := range entries {
//	        results[e.ID] = sender.Result[Ack]{Response: Ack{ID: e.ID}}
//	    }
//	    return results, nil
//	})
//
// A Sender is called once per drained batch. The engine never retries; the
// HTTP sender retries server errors internally.
package sender
