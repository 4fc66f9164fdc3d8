package server

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"

	"github.com/gorilla/websocket"
	"github.com/vmihailenco/msgpack/v5"
)

// Envelope 统一的消息外壳：T 为类型，P 为原始载荷
type Envelope struct {
	T string
	P []byte
}

// Codec 线上编码。JSON 走文本帧，msgpack 走二进制帧
type Codec interface {
	Name() string
	FrameType() int
	Encode(t string, payload any) ([]byte, error)
	DecodeEnvelope(b []byte) (Envelope, error)
	DecodePayload(env Envelope, out any) error
}

var (
	JSONCodec    Codec = jsonCodec{}
	MsgpackCodec Codec = msgpackCodec{}
)

// CodecByName 按 ?enc= 查询参数选择编码，未知时用 JSON
func CodecByName(name string) Codec {
	if name == MsgpackCodec.Name() {
		return MsgpackCodec
	}
	return JSONCodec
}

// DecodePayload 把载荷解到 T
func DecodePayload[T any](c Codec, env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("empty payload for type %q", env.T)
	}
	err := c.DecodePayload(env, &out)
	return out, err
}

var errEmptyFrame = errors.New("empty frame")

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p,omitempty"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string   { return "json" }
func (jsonCodec) FrameType() int { return websocket.TextMessage }

func (jsonCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("encode: empty message type")
	}
	e := jsonEnvelope{T: t}
	if payload != nil {
		pb, err := json.Marshal(payload)
		if err != nil {
			return nil, err
		}
		e.P = pb
	}
	return json.Marshal(e)
}

func (jsonCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errEmptyFrame
	}
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P}, nil
}

func (jsonCodec) DecodePayload(env Envelope, out any) error {
	return json.Unmarshal(env.P, out)
}

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p,omitempty"`
}

// msgpackCodec 载荷沿用 json 标签，两种编码字段名一致
type msgpackCodec struct{}

func (msgpackCodec) Name() string   { return "msgpack" }
func (msgpackCodec) FrameType() int { return websocket.BinaryMessage }

func (msgpackCodec) Encode(t string, payload any) ([]byte, error) {
	if t == "" {
		return nil, errors.New("encode: empty message type")
	}
	e := msgpackEnvelope{T: t}
	if payload != nil {
		pb, err := msgpackMarshal(payload)
		if err != nil {
			return nil, err
		}
		e.P = pb
	}
	return msgpack.Marshal(&e)
}

func (msgpackCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, errEmptyFrame
	}
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P}, nil
}

func (msgpackCodec) DecodePayload(env Envelope, out any) error {
	dec := msgpack.NewDecoder(bytes.NewReader(env.P))
	dec.SetCustomStructTag("json")
	return dec.Decode(out)
}

func msgpackMarshal(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := msgpack.NewEncoder(&buf)
	enc.SetCustomStructTag("json")
	if err := enc.Encode(v); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}
