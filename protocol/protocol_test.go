package protocol

import (
	"bytes"
	"errors"
	"testing"

	"github.com/go-gl/mathgl/mgl64"

	"tickhost/sim"
)

func TestTimingSanity(t *testing.T) {
	if SimTickHz <= 0 || BroadcastHz <= 0 || RenderHz <= 0 {
		t.Fatalf("timing constants must be > 0")
	}
	if SimTickHz%BroadcastHz != 0 {
		t.Fatalf("SimTickHz %% BroadcastHz != 0 (%d %% %d)", SimTickHz, BroadcastHz)
	}
}

func TestStateSurvivesBothCodecs(t *testing.T) {
	st := State{
		Version: 3,
		Tick:    42,
		Actors: []sim.ActorState{{
			ID:            "alice",
			Authority:     sim.Authority{State: sim.HostID, Input: "alice"},
			Position:      mgl64.Vec3{1, 0, 2},
			Facing:        sim.Forward,
			AbilityToggle: true,
			Cooldown:      sim.TimerFromTicks(40, 10),
		}},
		Projectiles: []sim.Projectile{{
			ID:          "p1",
			Template:    sim.TemplatePhysxBall,
			Owner:       "alice",
			Orientation: mgl64.QuatIdent(),
			Velocity:    mgl64.Vec3{0, 0, 10},
		}},
	}
	for _, c := range []Codec{JSON, MsgPack} {
		b, err := c.Encode(MsgState, st)
		if err != nil {
			t.Fatalf("%s encode: %v", c.Name(), err)
		}
		env, err := c.DecodeEnvelope(b)
		if err != nil {
			t.Fatalf("%s decode envelope: %v", c.Name(), err)
		}
		if env.T != MsgState {
			t.Fatalf("%s envelope type = %q", c.Name(), env.T)
		}
		got, err := DecodePayload[State](env)
		if err != nil {
			t.Fatalf("%s decode payload: %v", c.Name(), err)
		}
		if got.Version != 3 || got.Tick != 42 || len(got.Actors) != 1 || len(got.Projectiles) != 1 {
			t.Fatalf("%s decoded %+v", c.Name(), got)
		}
		if got.Actors[0] != st.Actors[0] {
			t.Fatalf("%s actor = %+v, want %+v", c.Name(), got.Actors[0], st.Actors[0])
		}
		if got.Projectiles[0].Velocity != st.Projectiles[0].Velocity {
			t.Fatalf("%s projectile velocity = %v", c.Name(), got.Projectiles[0].Velocity)
		}
	}
}

func TestEncodeRejectsEmptyTypeAndNilPayload(t *testing.T) {
	if _, err := Encode("", Chat{}); err == nil {
		t.Fatalf("expected error for empty type")
	}
	if _, err := MsgPack.Encode(MsgChat, nil); err == nil {
		t.Fatalf("expected error for nil payload")
	}
	if _, err := DecodeEnvelope(nil); err == nil {
		t.Fatalf("expected error for empty frame")
	}
}

func TestDecodePayloadEmpty(t *testing.T) {
	_, err := DecodePayload[Chat](Envelope{T: MsgChat})
	if !errors.Is(err, ErrEmptyPayload) {
		t.Fatalf("err = %v, want ErrEmptyPayload", err)
	}
}

func TestCodecByName(t *testing.T) {
	for name, want := range map[string]Codec{"": JSON, "json": JSON, "msgpack": MsgPack} {
		c, err := CodecByName(name)
		if err != nil || c != want {
			t.Fatalf("CodecByName(%q) = %v, %v", name, c, err)
		}
	}
	if _, err := CodecByName("xml"); err == nil {
		t.Fatalf("expected error for unknown codec")
	}
}

func TestSchemaListsMessages(t *testing.T) {
	b, err := Schema()
	if err != nil {
		t.Fatalf("schema: %v", err)
	}
	for _, name := range []string{"chatRelay", "abilityToggle", "participantId"} {
		if !bytes.Contains(b, []byte(name)) {
			t.Fatalf("schema missing %q", name)
		}
	}
}
