package live

import "testing"

func TestTransitions(t *testing.T) {
	for _, scenario := range []struct {
		name    string
		from    SessionState
		event   sessionEvent
		want    SessionState
		wantErr bool
	}{
		{name: "connect from disconnected", from: StateDisconnected, event: eventConnect, want: StateConnecting},
		{name: "connect from error", from: StateError, event: eventConnect, want: StateConnecting},
		{name: "connect while connecting", from: StateConnecting, event: eventConnect, want: StateConnecting, wantErr: true},
		{name: "connect while ready", from: StateReady, event: eventConnect, want: StateReady, wantErr: true},
		{name: "transport open while connecting", from: StateConnecting, event: eventTransportOpen, want: StateSettingUp},
		{name: "transport open while disconnected", from: StateDisconnected, event: eventTransportOpen, want: StateDisconnected, wantErr: true},
		{name: "setup complete while setting up", from: StateSettingUp, event: eventSetupComplete, want: StateReady},
		{name: "setup complete while ready", from: StateReady, event: eventSetupComplete, want: StateReady, wantErr: true},
		{name: "disconnect is always valid", from: StateReady, event: eventDisconnect, want: StateDisconnected},
		{name: "disconnect while disconnected", from: StateDisconnected, event: eventDisconnect, want: StateDisconnected},
		{name: "failure is always valid", from: StateSettingUp, event: eventFailure, want: StateError},
	} {
		t.Run(scenario.name, func(t *testing.T) {
			got, err := transition(scenario.from, scenario.event)
			if scenario.wantErr && err == nil {
				t.Fatalf("expected an error, got none")
			} else if !scenario.wantErr && err != nil {
				t.Fatalf("expected no error, got %v", err)
			}
			if got != scenario.want {
				t.Fatalf("expected state %v, got %v", scenario.want, got)
			}
		})
	}
}
