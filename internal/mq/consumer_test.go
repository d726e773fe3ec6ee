package mq

import (
	"strings"
	"testing"

	"github.com/google/uuid"
)

// envelope собирает Delivery так, как его видит handler после
// Unmarshal конверта: payload — map[string]any.
func envelope(msgType MessageType, payload map[string]any) *Delivery {
	return &Delivery{
		Message: Message{
			ID:      uuid.NewString(),
			Type:    msgType,
			Payload: payload,
		},
	}
}

func TestDelivery_ExecutionPending(t *testing.T) {
	execID := uuid.New()

	d := envelope(MessageTypeExecutionPending, map[string]any{
		"execution_id": execID.String(),
	})

	payload, err := d.ExecutionPending()
	if err != nil {
		t.Fatalf("ExecutionPending: %v", err)
	}
	if payload.ExecutionID != execID {
		t.Errorf("ExecutionID = %s, want %s", payload.ExecutionID, execID)
	}
}

func TestDelivery_ExecutionPending_WrongType(t *testing.T) {
	// Сообщение другого типа не должно парситься как pending
	d := envelope(MessageTypeExecutionControl, map[string]any{
		"execution_id": uuid.New().String(),
		"command":      ControlPause,
	})

	if _, err := d.ExecutionPending(); err == nil {
		t.Fatal("ожидалась ошибка для сообщения типа execution.control")
	}
}

func TestDelivery_Control(t *testing.T) {
	execID := uuid.New()

	for _, command := range []string{ControlPause, ControlResume, ControlStop} {
		d := envelope(MessageTypeExecutionControl, map[string]any{
			"execution_id": execID.String(),
			"command":      command,
		})

		payload, err := d.Control()
		if err != nil {
			t.Fatalf("Control(%s): %v", command, err)
		}
		if payload.Command != command {
			t.Errorf("Command = %q, want %q", payload.Command, command)
		}
		if payload.ExecutionID != execID {
			t.Errorf("ExecutionID = %s, want %s", payload.ExecutionID, execID)
		}
	}
}

func TestDelivery_Control_UnknownCommand(t *testing.T) {
	d := envelope(MessageTypeExecutionControl, map[string]any{
		"execution_id": uuid.New().String(),
		"command":      "restart",
	})

	_, err := d.Control()
	if err == nil {
		t.Fatal("ожидалась ошибка для неизвестной команды")
	}
	if !strings.Contains(err.Error(), "restart") {
		t.Errorf("ошибка должна называть команду: %v", err)
	}
}

func TestDelivery_Control_WrongType(t *testing.T) {
	d := envelope(MessageTypeExecutionPending, map[string]any{
		"execution_id": uuid.New().String(),
	})

	if _, err := d.Control(); err == nil {
		t.Fatal("ожидалась ошибка для сообщения типа execution.pending")
	}
}

func TestParsePayload_Snapshot(t *testing.T) {
	execID := uuid.New()

	msg := &Message{
		ID:   uuid.NewString(),
		Type: MessageTypeSnapshot,
		Payload: map[string]any{
			"execution_id": execID.String(),
			"tick":         7,
			"status":       "RUNNING",
			"node_states":  map[string]any{"sensor": 21.5},
		},
	}

	payload, err := ParsePayload[SnapshotPayload](msg)
	if err != nil {
		t.Fatalf("ParsePayload: %v", err)
	}
	if payload.Tick != 7 {
		t.Errorf("Tick = %d, want 7", payload.Tick)
	}
	if payload.NodeStates["sensor"] != 21.5 {
		t.Errorf("NodeStates[sensor] = %v, want 21.5", payload.NodeStates["sensor"])
	}
}
