package logging

import (
	"context"
	"fmt"
	"time"

	"github.com/d5h-foss/hwtest"
)

// EventAppender is the slice of the event repository the store backend
// needs. Satisfied by repository.EventSQLite.
type EventAppender interface {
	Append(ctx context.Context, e hwtest.EventRecord) error
}

const storeWriteTimeout = 5 * time.Second

// StoreBackend persists events through the repository layer, so runs can
// be queried by time range and type after the fact.
type StoreBackend struct {
	appender EventAppender
}

func NewStoreBackend(appender EventAppender) *StoreBackend {
	return &StoreBackend{appender: appender}
}

func (b *StoreBackend) Write(e hwtest.Event) error {
	ctx, cancel := context.WithTimeout(context.Background(), storeWriteTimeout)
	defer cancel()

	rec := RecordFromEvent(e)
	if err := b.appender.Append(ctx, rec); err != nil {
		return fmt.Errorf("store event %s: %w", rec.Type, err)
	}
	return nil
}

// RecordFromEvent flattens an event into its persisted form. The third
// column is the component (or device) name for every current variant.
func RecordFromEvent(e hwtest.Event) hwtest.EventRecord {
	cols := e.Columns()
	component := ""
	if len(cols) > 2 {
		component = cols[2]
	}
	return hwtest.EventRecord{
		OccurredAt: e.Time(),
		Type:       string(e.Type()),
		Component:  component,
		Line:       hwtest.Line(e),
	}
}

var _ Backend = (*StoreBackend)(nil)
