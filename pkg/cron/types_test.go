package cron

import (
	"encoding/json"
	"testing"
)

func TestSchedule_MarshalsAsCronTaggedUnion(t *testing.T) {
	s := Schedule{Kind: ScheduleCron, Expr: "0 9 * * *", TZ: "UTC"}
	data, err := json.Marshal(s)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]interface{}
	if err := json.Unmarshal(data, &got); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got["kind"] != "cron" || got["expr"] != "0 9 * * *" || got["tz"] != "UTC" {
		t.Fatalf("unexpected wire shape: %s", data)
	}
	if _, present := got["everyMs"]; present {
		t.Fatalf("expected everyMs to be omitted for a cron schedule, got %s", data)
	}
}

func TestSchedule_MarshalsAsEveryTaggedUnion(t *testing.T) {
	s := Schedule{Kind: ScheduleEvery, EveryMs: 60_000}
	data, _ := json.Marshal(s)
	var got map[string]interface{}
	_ = json.Unmarshal(data, &got)
	if got["kind"] != "every" || got["everyMs"].(float64) != 60_000 {
		t.Fatalf("unexpected wire shape: %s", data)
	}
}

func TestSchedule_MarshalsAsAtTaggedUnion(t *testing.T) {
	s := Schedule{Kind: ScheduleAt, AtMs: 123456789}
	data, _ := json.Marshal(s)
	var got map[string]interface{}
	_ = json.Unmarshal(data, &got)
	if got["kind"] != "at" || got["atMs"].(float64) != 123456789 {
		t.Fatalf("unexpected wire shape: %s", data)
	}
}

func TestSchedule_RoundTripsThroughWireFormat(t *testing.T) {
	original := Schedule{Kind: ScheduleCron, Expr: "*/5 * * * *", TZ: "America/New_York"}
	data, err := json.Marshal(original)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var restored Schedule
	if err := json.Unmarshal(data, &restored); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if restored != original {
		t.Fatalf("expected round trip, got %+v want %+v", restored, original)
	}
}

func TestSchedule_UnmarshalUnknownKindFails(t *testing.T) {
	var s Schedule
	err := json.Unmarshal([]byte(`{"kind":"bogus"}`), &s)
	if err == nil {
		t.Fatal("expected an error for an unknown schedule kind")
	}
}

func TestJob_MarshalsFieldsAsCamelCase(t *testing.T) {
	next := int64(1000)
	job := Job{
		ID:          "abc123",
		Name:        "daily digest",
		Enabled:     true,
		Schedule:    Schedule{Kind: ScheduleEvery, EveryMs: 60_000},
		Payload:     Payload{Message: "hi", Channel: "telegram", To: "chat-1"},
		State:       State{NextRunAtMs: &next},
		CreatedAtMs: 10,
		UpdatedAtMs: 20,
	}
	data, err := json.Marshal(job)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	var got map[string]interface{}
	_ = json.Unmarshal(data, &got)

	for _, key := range []string{"id", "name", "enabled", "schedule", "payload", "state", "createdAtMs", "updatedAtMs"} {
		if _, ok := got[key]; !ok {
			t.Fatalf("expected camelCase field %q in %s", key, data)
		}
	}
	for _, key := range []string{"ID", "Name", "Enabled", "CreatedAtMs", "UpdatedAtMs"} {
		if _, ok := got[key]; ok {
			t.Fatalf("unexpected PascalCase field %q leaked into %s", key, data)
		}
	}

	state := got["state"].(map[string]interface{})
	if _, ok := state["nextRunAtMs"]; !ok {
		t.Fatalf("expected camelCase nextRunAtMs in %s", data)
	}
}
