package types

import (
	"encoding/json"
	"testing"
)

func TestParseRole(t *testing.T) {
	tests := []struct {
		name    string
		role    string
		want    Role
		wantErr bool
	}{
		{name: "provider", role: "provider", want: RoleProvider},
		{name: "provides", role: "provides", want: RoleProvider},
		{name: "requirer", role: "Requirer", want: RoleRequirer},
		{name: "requires", role: " requires ", want: RoleRequirer},
		{name: "random", role: "peer", want: RoleUnknown, wantErr: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := ParseRole(tt.role)
			if (err != nil) != tt.wantErr {
				t.Fatalf("ParseRole() error = %v, wantErr %v", err, tt.wantErr)
			}
			if got != tt.want {
				t.Errorf("ParseRole() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestStatusJSON(t *testing.T) {
	bts, err := json.Marshal(Status{Type: StatusBlocked, Message: "missing relation"})
	if err != nil {
		t.Fatalf("failed to marshal status: %s", err)
	}

	if string(bts) != `{"type":"blocked","message":"missing relation"}` {
		t.Errorf("unexpected status JSON: %s", string(bts))
	}
}

func TestServiceInfoString(t *testing.T) {
	info := ServiceInfo{Name: "metadata-grpc-service", Port: "8080"}
	if info.String() != "metadata-grpc-service:8080" {
		t.Errorf("unexpected string: %s", info.String())
	}
}
