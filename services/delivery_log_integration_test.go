package services

import (
	"context"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/lib/pq"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"diary/models"
)

func TestPostgresDeliveryLogRecordsDeliveries(t *testing.T) {
	dsn := strings.TrimSpace(os.Getenv("DIARY_TEST_POSTGRES_DSN"))
	if dsn == "" {
		t.Skip("DIARY_TEST_POSTGRES_DSN is not set")
	}

	deliveries, err := NewPostgresDeliveryLog(dsn)
	require.NoError(t, err)
	deliveries.tableName = fmt.Sprintf("webhook_deliveries_it_%d", time.Now().UnixNano())
	require.NoError(t, deliveries.ensureTable(context.Background()))
	t.Cleanup(func() {
		_, _ = deliveries.db.Exec("DROP TABLE IF EXISTS " + pq.QuoteIdentifier(deliveries.tableName))
		_ = deliveries.Close()
	})

	ctx := context.Background()
	require.NoError(t, deliveries.Record(ctx, models.Delivery{
		RequestID:      "req-1",
		UID:            "user-1",
		ConversationID: "abc12345",
		Date:           "2025-01-15",
		Documents:      pq.StringArray{"diary=created", "transcript=created", "raw=created"},
	}))
	require.NoError(t, deliveries.Record(ctx, models.Delivery{
		RequestID: "req-2",
		Date:      "2025-01-15",
		Documents: pq.StringArray{"diary=conflict"},
	}))

	recent, err := deliveries.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, recent, 2)
	assert.Equal(t, "req-2", recent[0].RequestID)
	assert.Equal(t, []string{"diary=conflict"}, []string(recent[0].Documents))
	assert.Equal(t, "abc12345", recent[1].ConversationID)
}

func TestNopDeliveryLog(t *testing.T) {
	assert.NoError(t, NopDeliveryLog{}.Record(context.Background(), models.Delivery{}))
}
