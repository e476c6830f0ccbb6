package events

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/pubsub/gochannel"
	"github.com/pkg/errors"
)

// EventRouter carries session events from WatermillSinks to the registered handlers
// over an in-process pub/sub. A publish returns once every handler acked the event,
// so handlers that ack after their work see the events of a topic one at a time.
type EventRouter struct {
	logger watermill.LoggerAdapter
	pubSub *gochannel.GoChannel
	router *message.Router

	verbose bool
	out     io.Writer
}

type EventRouterOption func(*EventRouter)

func WithLogger(logger watermill.LoggerAdapter) EventRouterOption {
	return func(r *EventRouter) {
		r.logger = logger
	}
}

// WithVerbose keeps metadata and transcripts in DumpRawEvents output.
func WithVerbose(verbose bool) EventRouterOption {
	return func(r *EventRouter) {
		r.verbose = verbose
	}
}

// WithDumpWriter sets where DumpRawEvents writes. Defaults to stdout.
func WithDumpWriter(w io.Writer) EventRouterOption {
	return func(r *EventRouter) {
		r.out = w
	}
}

func NewEventRouter(options ...EventRouterOption) (*EventRouter, error) {
	ret := &EventRouter{
		logger: watermill.NopLogger{},
		out:    os.Stdout,
	}
	for _, o := range options {
		o(ret)
	}

	ret.pubSub = gochannel.NewGoChannel(gochannel.Config{
		BlockPublishUntilSubscriberAck: true,
	}, ret.logger)

	router, err := message.NewRouter(message.RouterConfig{}, ret.logger)
	if err != nil {
		return nil, errors.Wrap(err, "creating event router")
	}
	ret.router = router

	return ret, nil
}

// AddHandler subscribes f to topic. Handlers must ack, or return nil, for the next
// event to be delivered.
func (e *EventRouter) AddHandler(name string, topic string, f func(msg *message.Message) error) {
	e.router.AddNoPublisherHandler(name, topic, e.pubSub, f)
}

// NewSink returns a WatermillSink publishing on topic.
func (e *EventRouter) NewSink(topic string) *WatermillSink {
	return NewWatermillSink(e.pubSub, topic)
}

// DumpRawEvents prints every event as indented JSON. Unless verbose, the transcript
// snapshot is dropped and the metadata is reduced to the inference id.
func (e *EventRouter) DumpRawEvents(msg *message.Message) error {
	defer msg.Ack()

	var fields map[string]interface{}
	if err := json.Unmarshal(msg.Payload, &fields); err != nil {
		return errors.Wrap(err, "decoding event")
	}
	if !e.verbose {
		if meta, ok := fields["meta"].(map[string]interface{}); ok {
			fields["inference_id"] = meta["inference_id"]
		}
		delete(fields, "meta")
		delete(fields, "transcript")
	}

	b, err := json.MarshalIndent(fields, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(e.out, string(b))
	return err
}

// Running is closed once every handler is subscribed.
func (e *EventRouter) Running() chan struct{} {
	return e.router.Running()
}

func (e *EventRouter) Run(ctx context.Context) error {
	return e.router.Run(ctx)
}

// Close stops the pub/sub first, so publishers waiting for an ack return, then the
// router.
func (e *EventRouter) Close() error {
	pubSubErr := e.pubSub.Close()
	routerErr := e.router.Close()
	if pubSubErr != nil {
		return errors.Wrap(pubSubErr, "closing event pub/sub")
	}
	return errors.Wrap(routerErr, "closing event router")
}
