package core

import (
	"errors"
	"fmt"
	"testing"
)

func TestStructZeroValues(t *testing.T) {
	t.Run("EthernetHeader", func(t *testing.T) {
		var eth EthernetHeader
		if eth.EtherType != 0 {
			t.Errorf("expected EtherType=0, got %d", eth.EtherType)
		}
		if eth.SrcMAC != nil || eth.DstMAC != nil {
			t.Errorf("expected nil MACs, got src=%v dst=%v", eth.SrcMAC, eth.DstMAC)
		}
	})

	t.Run("ARPHeader", func(t *testing.T) {
		var arp ARPHeader
		if arp.SenderIP.IsValid() {
			t.Errorf("expected invalid SenderIP, got %v", arp.SenderIP)
		}
		if arp.TargetIP.IsValid() {
			t.Errorf("expected invalid TargetIP, got %v", arp.TargetIP)
		}
	})
}

func TestARPOperationString(t *testing.T) {
	tests := []struct {
		op   ARPOperation
		want string
	}{
		{ARPRequest, "request"},
		{ARPReply, "reply"},
		{ARPOperation(9), "op(9)"},
	}
	for _, tt := range tests {
		if got := tt.op.String(); got != tt.want {
			t.Errorf("ARPOperation(%d).String() = %q, want %q", uint16(tt.op), got, tt.want)
		}
	}
}

func TestSentinelErrorsWrap(t *testing.T) {
	sentinels := []error{
		ErrMalformedFrame,
		ErrUnsupportedEtherType,
		ErrNotIPv4,
		ErrInterfaceNotFound,
		ErrNoHardwareAddr,
		ErrTransportClosed,
		ErrConfigInvalid,
	}
	for _, sentinel := range sentinels {
		wrapped := fmt.Errorf("context: %w", sentinel)
		if !errors.Is(wrapped, sentinel) {
			t.Errorf("errors.Is failed for %v", sentinel)
		}
	}
}
