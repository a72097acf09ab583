package amqp

import "testing"

func TestLedgerChangedMessageRoundTrip(t *testing.T) {
	msg := NewLedgerChangedMessage(42, "add_deposit")
	data, err := msg.ToJSON()
	if err != nil {
		t.Fatalf("ToJSON: %v", err)
	}

	got, err := LedgerChangedMessageFromJSON(data)
	if err != nil {
		t.Fatalf("FromJSON: %v", err)
	}
	if got.Revision != 42 || got.Operation != "add_deposit" {
		t.Errorf("round trip = %+v", got)
	}
	if got.Timestamp.IsZero() {
		t.Error("timestamp not carried")
	}
}

func TestLedgerChangedMessageFromJSONRejectsGarbage(t *testing.T) {
	if _, err := LedgerChangedMessageFromJSON([]byte("{")); err == nil {
		t.Fatal("expected error")
	}
}
