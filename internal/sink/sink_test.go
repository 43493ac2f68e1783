package sink

import (
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"

	"github.com/aws/aws-sdk-go-v2/aws"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"
)

func samplePayload() map[string]any {
	return map[string]any{
		"event_id":      "evt-1",
		"event_type":    "purchase",
		"amount_micros": json.Number("4990000"),
		"currency":      "EUR",
		"properties":    map[string]any{"note": "<b>café</b> & co"},
	}
}

func TestEncode_CompactJSONWithTrailingNewline(t *testing.T) {
	data, err := Encode(samplePayload())
	require.NoError(t, err)

	assert.Equal(t,
		`{"amount_micros":4990000,"currency":"EUR","event_id":"evt-1","event_type":"purchase","properties":{"note":"<b>café</b> & co"}}`+"\n",
		string(data))
	assert.Equal(t, byte('\n'), data[len(data)-1])
	assert.NotContains(t, string(data[:len(data)-1]), "\n")
}

func TestEncode_RejectsUnencodableValues(t *testing.T) {
	_, err := Encode(map[string]any{"bad": make(chan int)})
	assert.Error(t, err)
}

type fakeFirehose struct {
	mu     sync.Mutex
	inputs []*firehose.PutRecordInput
	err    error
}

func (f *fakeFirehose) PutRecord(_ context.Context, in *firehose.PutRecordInput, _ ...func(*firehose.Options)) (*firehose.PutRecordOutput, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return nil, f.err
	}
	f.inputs = append(f.inputs, in)
	return &firehose.PutRecordOutput{RecordId: aws.String("rec-1")}, nil
}

func TestFirehose_PutsOneFramedRecord(t *testing.T) {
	fake := &fakeFirehose{}
	s := NewFirehose(fake, "game-events")

	require.NoError(t, s.PutEvent(context.Background(), samplePayload()))
	require.Len(t, fake.inputs, 1)

	in := fake.inputs[0]
	assert.Equal(t, "game-events", aws.ToString(in.DeliveryStreamName))

	want, _ := Encode(samplePayload())
	assert.Equal(t, want, in.Record.Data)
	assert.Equal(t, "firehose", s.Name())
}

func TestFirehose_WrapsFailuresAsDeliveryError(t *testing.T) {
	cause := errors.New("ResourceNotFoundException: stream not found")
	s := NewFirehose(&fakeFirehose{err: cause}, "missing")

	err := s.PutEvent(context.Background(), samplePayload())
	require.Error(t, err)

	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "firehose", derr.Sink)
	assert.Equal(t, "evt-1", derr.EventID)
	assert.ErrorIs(t, err, cause)
}

type fakeWriter struct {
	msgs   []kafka.Message
	err    error
	closed bool
}

func (w *fakeWriter) WriteMessages(_ context.Context, msgs ...kafka.Message) error {
	if w.err != nil {
		return w.err
	}
	w.msgs = append(w.msgs, msgs...)
	return nil
}

func (w *fakeWriter) Close() error {
	w.closed = true
	return nil
}

func TestKafka_WritesOneMessageKeyedByEventID(t *testing.T) {
	w := &fakeWriter{}
	s := NewKafkaWithWriter(w, "game-events")

	require.NoError(t, s.PutEvent(context.Background(), samplePayload()))
	require.Len(t, w.msgs, 1)
	assert.Equal(t, []byte("evt-1"), w.msgs[0].Key)

	want, _ := Encode(samplePayload())
	assert.Equal(t, want, w.msgs[0].Value)

	require.NoError(t, s.Close())
	assert.True(t, w.closed)
}

func TestKafka_WrapsFailures(t *testing.T) {
	s := NewKafkaWithWriter(&fakeWriter{err: kafka.LeaderNotAvailable}, "game-events")

	err := s.PutEvent(context.Background(), samplePayload())
	var derr *DeliveryError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "kafka", derr.Sink)
	assert.ErrorIs(t, err, kafka.LeaderNotAvailable)
}

func TestNewKafka_RequiresBrokers(t *testing.T) {
	_, err := NewKafka(nil, "t")
	assert.Error(t, err)

	k, err := NewKafka([]string{"localhost:9092"}, "t")
	require.NoError(t, err)
	assert.Equal(t, "kafka", k.Name())
}

func TestLog_LogsRecordAndNeverFails(t *testing.T) {
	core, logs := observer.New(zap.InfoLevel)
	s := NewLog(zap.New(core))

	require.NoError(t, s.PutEvent(context.Background(), samplePayload()))
	require.NoError(t, s.PutEvent(context.Background(), map[string]any{"bad": make(chan int)}))

	entries := logs.FilterMessage("mock sink would send").All()
	require.Len(t, entries, 1)
	assert.Equal(t, "evt-1", entries[0].ContextMap()["event_id"])
}
