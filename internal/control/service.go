package control

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	grpcstatus "google.golang.org/grpc/status"
	"google.golang.org/protobuf/types/known/emptypb"
	"google.golang.org/protobuf/types/known/structpb"
	"google.golang.org/protobuf/types/known/wrapperspb"

	"github.com/matheus3301/deskchat/internal/backend"
	"github.com/matheus3301/deskchat/internal/bus"
	"github.com/matheus3301/deskchat/internal/chat"
	"github.com/matheus3301/deskchat/internal/model"
)

// Chat is the part of the chat controller the control service drives.
type Chat interface {
	Snapshot() chat.Snapshot
	Identity() model.Identity
	Say(text string) error
	Refresh(ctx context.Context) error
}

// Service implements the control service.
type Service struct {
	profile string
	chat    Chat
	bus     *bus.Bus
	logger  *zap.Logger

	done      chan struct{}
	closeOnce sync.Once
}

// NewService creates a control service for one profile's chat view.
func NewService(profile string, c Chat, b *bus.Bus, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{profile: profile, chat: c, bus: b, logger: logger, done: make(chan struct{})}
}

// close ends every open WatchEvents stream.
func (s *Service) close() {
	s.closeOnce.Do(func() { close(s.done) })
}

func (s *Service) GetState(_ context.Context, _ *emptypb.Empty) (*structpb.Struct, error) {
	snap := s.chat.Snapshot()
	ident := s.chat.Identity()

	state := map[string]any{
		"profile":       s.profile,
		"user_id":       ident.UserID,
		"username":      ident.Username,
		"mounted":       snap.Mounted,
		"loading":       snap.Loading,
		"blocked":       snap.Blocked,
		"connection":    string(snap.Conn),
		"agent_typing":  snap.AgentTyping,
		"uploading":     snap.Uploading,
		"draft":         snap.Draft,
		"message_count": len(snap.Messages),
	}
	if snap.Room != nil {
		state["room_id"] = snap.Room.ID
		state["room_status"] = string(snap.Room.Status)
	}
	if n := len(snap.Messages); n > 0 {
		last, err := toValueMap(snap.Messages[n-1])
		if err == nil {
			state["last_message"] = last
		}
	}

	out, err := structpb.NewStruct(state)
	if err != nil {
		return nil, grpcstatus.Errorf(codes.Internal, "encode state: %v", err)
	}
	return out, nil
}

func (s *Service) SendText(_ context.Context, req *wrapperspb.StringValue) (*emptypb.Empty, error) {
	text := strings.TrimSpace(req.GetValue())
	if text == "" {
		return nil, grpcstatus.Error(codes.InvalidArgument, "message is empty")
	}
	if err := s.chat.Say(text); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

func (s *Service) Refresh(ctx context.Context, _ *emptypb.Empty) (*emptypb.Empty, error) {
	if err := s.chat.Refresh(ctx); err != nil {
		return nil, toStatus(err)
	}
	return &emptypb.Empty{}, nil
}

// WatchEvents streams bus events until the client goes away.
func (s *Service) WatchEvents(_ *emptypb.Empty, stream grpc.ServerStream) error {
	ch, unsub := s.bus.Subscribe("", 128)
	defer unsub()

	ctx := stream.Context()
	for {
		select {
		case evt := <-ch:
			msg, err := eventToStruct(evt)
			if err != nil {
				s.logger.Warn("dropping unencodable event", zap.String("kind", evt.Kind), zap.Error(err))
				continue
			}
			if err := stream.SendMsg(msg); err != nil {
				return err
			}
		case <-ctx.Done():
			return nil
		case <-s.done:
			return nil
		}
	}
}

func eventToStruct(evt bus.Event) (*structpb.Struct, error) {
	m := map[string]any{
		"id":   uuid.NewString(),
		"kind": evt.Kind,
		"ts":   evt.Timestamp.Format(time.RFC3339Nano),
	}
	if evt.Payload != nil {
		p, err := toValue(evt.Payload)
		if err != nil {
			return nil, err
		}
		m["payload"] = p
	}
	return structpb.NewStruct(m)
}

// toValue converts v into the plain JSON shapes structpb accepts.
func toValue(v any) (any, error) {
	b, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var out any
	if err := json.Unmarshal(b, &out); err != nil {
		return nil, err
	}
	return out, nil
}

func toValueMap(v any) (map[string]any, error) {
	out, err := toValue(v)
	if err != nil {
		return nil, err
	}
	m, ok := out.(map[string]any)
	if !ok {
		return nil, errors.New("not an object")
	}
	return m, nil
}

func toStatus(err error) error {
	switch {
	case errors.Is(err, chat.ErrNoRoom):
		return grpcstatus.Error(codes.FailedPrecondition, err.Error())
	case errors.Is(err, chat.ErrNotMounted), errors.Is(err, chat.ErrStopped):
		return grpcstatus.Error(codes.Unavailable, err.Error())
	case errors.Is(err, chat.ErrBlocked), errors.Is(err, backend.ErrForbidden):
		return grpcstatus.Error(codes.PermissionDenied, err.Error())
	case errors.Is(err, backend.ErrUnauthorized):
		return grpcstatus.Error(codes.Unauthenticated, err.Error())
	}
	return grpcstatus.Error(codes.Internal, err.Error())
}
