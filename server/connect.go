package server

import (
	"context"
	"encoding/json"
	"net/http"

	"connectrpc.com/connect"
	"google.golang.org/protobuf/types/known/structpb"

	"github.com/tailored-agentic-units/movi/core/protocol"
)

// ChatProcedure is the Connect procedure for streamed turns. Requests and
// events use the JSON field names of ChatRequest and protocol.Event.
const ChatProcedure = "/movi.v1.AssistantService/Chat"

// ConnectHandler returns the mount path and handler for ChatProcedure.
func (s *Server) ConnectHandler() (string, http.Handler) {
	return ChatProcedure, connect.NewServerStreamHandler(ChatProcedure, s.chatStream)
}

func (s *Server) chatStream(ctx context.Context, req *connect.Request[structpb.Struct], stream *connect.ServerStream[structpb.Struct]) error {
	var chat ChatRequest
	if err := fromStruct(req.Msg, &chat); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}
	if err := chat.validate(); err != nil {
		return connect.NewError(connect.CodeInvalidArgument, err)
	}

	return s.turn(ctx, chat, func(ev protocol.Event) error {
		msg, err := toStruct(ev)
		if err != nil {
			return err
		}
		return stream.Send(msg)
	})
}

func fromStruct(msg *structpb.Struct, v any) error {
	data, err := json.Marshal(msg.AsMap())
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func toStruct(v any) (*structpb.Struct, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, err
	}
	var fields map[string]any
	if err := json.Unmarshal(data, &fields); err != nil {
		return nil, err
	}
	return structpb.NewStruct(fields)
}
