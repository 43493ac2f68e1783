package sink

import (
	"context"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/firehose"
	"github.com/aws/aws-sdk-go-v2/service/firehose/types"
)

// FirehoseAPI is the slice of the Firehose client the sink needs.
type FirehoseAPI interface {
	PutRecord(ctx context.Context, params *firehose.PutRecordInput, optFns ...func(*firehose.Options)) (*firehose.PutRecordOutput, error)
}

// Firehose puts one record per event on a Kinesis Data Firehose delivery stream.
type Firehose struct {
	client FirehoseAPI
	stream string
}

// NewFirehose wraps an existing client, typically a fake in tests.
func NewFirehose(client FirehoseAPI, stream string) *Firehose {
	return &Firehose{client: client, stream: stream}
}

// NewFirehoseFromEnv builds a client from the default AWS credential chain.
// An empty region leaves region resolution to the SDK.
func NewFirehoseFromEnv(ctx context.Context, stream, region string) (*Firehose, error) {
	var opts []func(*awsconfig.LoadOptions) error
	if region != "" {
		opts = append(opts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, opts...)
	if err != nil {
		return nil, err
	}
	return NewFirehose(firehose.NewFromConfig(cfg), stream), nil
}

func (f *Firehose) Name() string { return "firehose" }

func (f *Firehose) PutEvent(ctx context.Context, payload map[string]any) error {
	data, err := Encode(payload)
	if err != nil {
		return &DeliveryError{Sink: f.Name(), EventID: eventID(payload), Err: err}
	}

	_, err = f.client.PutRecord(ctx, &firehose.PutRecordInput{
		DeliveryStreamName: aws.String(f.stream),
		Record:             &types.Record{Data: data},
	})
	if err != nil {
		return &DeliveryError{Sink: f.Name(), EventID: eventID(payload), Err: err}
	}
	return nil
}
