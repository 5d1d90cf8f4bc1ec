//go:build integration

package audit_test

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"github.com/twmb/franz-go/pkg/kgo"

	"provdir/internal/audit"
	"provdir/pkg/testutil/containers"
)

// TestKafkaPublisherRoundTrip produces an event and consumes it back from the
// audit topic.
func TestKafkaPublisherRoundTrip(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping integration test in short mode")
	}

	ctx, cancel := context.WithTimeout(context.Background(), time.Minute)
	defer cancel()

	redpanda := containers.GetManager().GetRedpanda(t)
	topic := "provdir.audit.test"

	publisher, err := audit.NewKafkaPublisher(ctx, []string{redpanda.Broker}, topic, nil)
	require.NoError(t, err)
	defer publisher.Close()

	want := audit.Event{
		Action:           audit.ActionProviderRegistered,
		NPI:              "1234567890",
		RemoteProviderID: "remote-1",
		Outcome:          "ok",
	}
	require.NoError(t, publisher.Emit(ctx, want))

	consumer, err := kgo.NewClient(
		kgo.SeedBrokers(redpanda.Broker),
		kgo.ConsumeTopics(topic),
		kgo.ConsumeResetOffset(kgo.NewOffset().AtStart()),
	)
	require.NoError(t, err)
	defer consumer.Close()

	fetches := consumer.PollFetches(ctx)
	require.NoError(t, fetches.Err())
	records := fetches.Records()
	require.Len(t, records, 1)
	require.Equal(t, "1234567890", string(records[0].Key))

	var got audit.Event
	require.NoError(t, json.Unmarshal(records[0].Value, &got))
	require.Equal(t, want.Action, got.Action)
	require.Equal(t, want.RemoteProviderID, got.RemoteProviderID)
	require.False(t, got.Timestamp.IsZero())
}
