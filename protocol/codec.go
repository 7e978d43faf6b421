package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/vmihailenco/msgpack/v5"
)

// ErrEmptyPayload 信封内没有载荷
var ErrEmptyPayload = errors.New("protocol: empty payload")

// Envelope 线上信封：T 为消息类型，P 为按同一编解码器编码的载荷
type Envelope struct {
	T string
	P []byte

	codec Codec
}

// Codec 每条连接选定一种编解码器
type Codec interface {
	Name() string
	// Binary 为 true 时使用 WebSocket 二进制帧
	Binary() bool
	Encode(t string, payload any) ([]byte, error)
	DecodeEnvelope(b []byte) (Envelope, error)
	unmarshal(b []byte, v any) error
}

var (
	JSON    Codec = jsonCodec{}
	MsgPack Codec = msgpackCodec{}
)

// CodecByName 空名称取 JSON
func CodecByName(name string) (Codec, error) {
	switch name {
	case "", "json":
		return JSON, nil
	case "msgpack":
		return MsgPack, nil
	default:
		return nil, fmt.Errorf("protocol: unknown codec %q", name)
	}
}

// Encode 使用 JSON 编码
func Encode(t string, payload any) ([]byte, error) {
	return JSON.Encode(t, payload)
}

// DecodeEnvelope 使用 JSON 解码
func DecodeEnvelope(b []byte) (Envelope, error) {
	return JSON.DecodeEnvelope(b)
}

// DecodePayload 按信封自带的编解码器解出 T
func DecodePayload[T any](env Envelope) (T, error) {
	var out T
	if len(env.P) == 0 {
		return out, fmt.Errorf("%w for type %q", ErrEmptyPayload, env.T)
	}
	c := env.codec
	if c == nil {
		c = JSON
	}
	err := c.unmarshal(env.P, &out)
	return out, err
}

func checkEncode(t string, payload any) error {
	if t == "" {
		return fmt.Errorf("protocol: encode envelope with empty type")
	}
	if payload == nil {
		return fmt.Errorf("protocol: encode nil payload for %q", t)
	}
	return nil
}

type jsonEnvelope struct {
	T string          `json:"t"`
	P json.RawMessage `json:"p"`
}

type jsonCodec struct{}

func (jsonCodec) Name() string { return "json" }
func (jsonCodec) Binary() bool { return false }

func (jsonCodec) Encode(t string, payload any) ([]byte, error) {
	if err := checkEncode(t, payload); err != nil {
		return nil, err
	}
	pb, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(jsonEnvelope{T: t, P: pb})
}

func (c jsonCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("protocol: decode envelope of size 0")
	}
	var e jsonEnvelope
	if err := json.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P, codec: c}, nil
}

func (jsonCodec) unmarshal(b []byte, v any) error { return json.Unmarshal(b, v) }

type msgpackEnvelope struct {
	T string             `msgpack:"t"`
	P msgpack.RawMessage `msgpack:"p"`
}

type msgpackCodec struct{}

func (msgpackCodec) Name() string { return "msgpack" }
func (msgpackCodec) Binary() bool { return true }

func (msgpackCodec) Encode(t string, payload any) ([]byte, error) {
	if err := checkEncode(t, payload); err != nil {
		return nil, err
	}
	pb, err := msgpack.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return msgpack.Marshal(&msgpackEnvelope{T: t, P: pb})
}

func (c msgpackCodec) DecodeEnvelope(b []byte) (Envelope, error) {
	if len(b) == 0 {
		return Envelope{}, fmt.Errorf("protocol: decode envelope of size 0")
	}
	var e msgpackEnvelope
	if err := msgpack.Unmarshal(b, &e); err != nil {
		return Envelope{}, err
	}
	return Envelope{T: e.T, P: e.P, codec: c}, nil
}

func (msgpackCodec) unmarshal(b []byte, v any) error { return msgpack.Unmarshal(b, v) }
