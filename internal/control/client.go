package control

import (
	"context"
	"errors"
	"io"

	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"
)

// Client talks to a running deskchat over its control socket.
type Client struct {
	conn *grpc.ClientConn
}

// Event is one streamed bus event.
type Event struct {
	ID      string
	Kind    string
	TS      string
	Payload any
}

// Dial connects to the control socket at socketPath. The connection is
// established lazily on the first call.
func Dial(socketPath string) (*Client, error) {
	conn, err := grpc.NewClient(
		"unix://"+socketPath,
		grpc.WithTransportCredentials(insecure.NewCredentials()),
	)
	if err != nil {
		return nil, err
	}
	return &Client{conn: conn}, nil
}

// Close closes the connection.
func (c *Client) Close() error {
	return c.conn.Close()
}

// State returns the chat view state as a plain map.
func (c *Client) State(ctx context.Context) (map[string]any, error) {
	out := new(structpb.Struct)
	if err := c.conn.Invoke(ctx, methodGetState, &emptypb.Empty{}, out); err != nil {
		return nil, err
	}
	return out.AsMap(), nil
}

// Send sends text as a chat message.
func (c *Client) Send(ctx context.Context, text string) error {
	return c.conn.Invoke(ctx, methodSendText, wrapperspb.String(text), new(emptypb.Empty))
}

// Refresh asks the chat view to re-resolve its room.
func (c *Client) Refresh(ctx context.Context) error {
	return c.conn.Invoke(ctx, methodRefresh, &emptypb.Empty{}, new(emptypb.Empty))
}

// Watch calls fn for every event until ctx is done, the server closes the
// stream, or fn returns an error.
func (c *Client) Watch(ctx context.Context, fn func(Event) error) error {
	stream, err := c.conn.NewStream(ctx, &serviceDesc.Streams[0], methodWatchEvents)
	if err != nil {
		return err
	}
	if err := stream.SendMsg(&emptypb.Empty{}); err != nil {
		return err
	}
	if err := stream.CloseSend(); err != nil {
		return err
	}

	for {
		msg := new(structpb.Struct)
		if err := stream.RecvMsg(msg); err != nil {
			if errors.Is(err, io.EOF) {
				return nil
			}
			return err
		}
		m := msg.AsMap()
		evt := Event{Payload: m["payload"]}
		evt.ID, _ = m["id"].(string)
		evt.Kind, _ = m["kind"].(string)
		evt.TS, _ = m["ts"].(string)
		if err := fn(evt); err != nil {
			return err
		}
	}
}
