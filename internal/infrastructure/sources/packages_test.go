package sources

import (
	"context"
	"testing"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFindPackages(t *testing.T) {
	tests := []struct {
		name    string
		subject string
		body    string
		want    []briefing.Package
	}{
		{
			name:    "ups",
			subject: "Your order has shipped",
			body:    "Tracking: 1Z999AA10123456784",
			want:    []briefing.Package{{Carrier: "UPS", TrackingNumber: "1Z999AA10123456784", Description: "Your order has shipped"}},
		},
		{
			name:    "usps",
			subject: "Out for delivery",
			body:    "USPS 9400111899223856924172 arriving today",
			want:    []briefing.Package{{Carrier: "USPS", TrackingNumber: "9400111899223856924172", Description: "Out for delivery"}},
		},
		{
			name:    "amazon",
			subject: "Shipped: headphones",
			body:    "Track with TBA123456789012",
			want:    []briefing.Package{{Carrier: "Amazon", TrackingNumber: "TBA123456789012", Description: "Shipped: headphones"}},
		},
		{
			name:    "fedex needs hint",
			subject: "Shipping update",
			body:    "Order 123456789012 confirmed",
		},
		{
			name:    "fedex with hint",
			subject: "FedEx shipment",
			body:    "Tracking number 123456789012",
			want:    []briefing.Package{{Carrier: "FedEx", TrackingNumber: "123456789012", Description: "FedEx shipment"}},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, FindPackages(tt.subject, tt.body))
		})
	}
}

func TestScanForPackagesDeduplicates(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	box := &fakeMailbox{messages: map[string][]mailMessage{
		"a": {
			{UID: 1, Subject: "Your package shipped", Body: "1Z999AA10123456784"},
			{UID: 2, Subject: "Out for delivery", Body: "1Z999AA10123456784"},
			{UID: 3, Subject: "Team offsite", Body: "1Z999AA10123456799"},
		},
	}}

	p := NewPackages(newTestMail(box, "a"))
	p.now = func() time.Time { return now }

	pkgs, err := p.ScanForPackages(context.Background())
	require.NoError(t, err)
	require.Len(t, pkgs, 1)
	assert.Equal(t, "1Z999AA10123456784", pkgs[0].TrackingNumber)

	require.Len(t, box.criteria, 1)
	assert.Equal(t, now.Add(-packageLookback), box.criteria[0].Since)
}
