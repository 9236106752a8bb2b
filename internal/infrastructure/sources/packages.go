package sources

import (
	"context"
	"regexp"
	"strings"
	"time"

	"github.com/angelonej/daily-planner-agent-sub000/internal/domain/briefing"
	"github.com/emersion/go-imap"
)

const (
	packageLookback     = 7 * 24 * time.Hour
	maxScannedPerAccount = 50
)

var shippingMarkers = []string{"shipped", "shipping", "tracking", "delivery", "out for delivery", "package", "order"}

type carrierPattern struct {
	carrier string
	re      *regexp.Regexp
	// hint must appear in the text for patterns too generic to trust alone
	hint string
}

var carrierPatterns = []carrierPattern{
	{carrier: "UPS", re: regexp.MustCompile(`\b1Z[0-9A-Z]{16}\b`)},
	{carrier: "Amazon", re: regexp.MustCompile(`\bTBA[0-9]{12}\b`)},
	{carrier: "USPS", re: regexp.MustCompile(`\b9[2-5][0-9]{20}\b`)},
	{carrier: "FedEx", re: regexp.MustCompile(`\b[0-9]{12}\b|\b[0-9]{15}\b`), hint: "fedex"},
	{carrier: "DHL", re: regexp.MustCompile(`\b[0-9]{10}\b`), hint: "dhl"},
}

// Packages scans recent mail for shipment tracking numbers
type Packages struct {
	mail *Mail
	now  func() time.Time
}

// NewPackages creates a package scanner over the mail adapter's accounts
func NewPackages(mail *Mail) *Packages {
	return &Packages{mail: mail, now: time.Now}
}

// ScanForPackages returns one record per distinct tracking number found in the last week of mail
func (p *Packages) ScanForPackages(ctx context.Context) ([]briefing.Package, error) {
	criteria := imap.NewSearchCriteria()
	criteria.Since = p.now().Add(-packageLookback)

	msgs, err := p.mail.searchAll(ctx, criteria, maxScannedPerAccount)
	if err != nil {
		return nil, err
	}

	seen := make(map[string]struct{})
	var out []briefing.Package
	for _, am := range msgs {
		if !looksLikeShipping(am.msg.Subject) {
			continue
		}
		for _, pkg := range FindPackages(am.msg.Subject, plainText(am.msg.Body)) {
			if _, dup := seen[pkg.TrackingNumber]; dup {
				continue
			}
			seen[pkg.TrackingNumber] = struct{}{}
			out = append(out, pkg)
		}
	}
	return out, nil
}

func looksLikeShipping(subject string) bool {
	s := strings.ToLower(subject)
	for _, m := range shippingMarkers {
		if strings.Contains(s, m) {
			return true
		}
	}
	return false
}

// FindPackages extracts tracking numbers from a message. Each number is
// attributed to the first carrier whose pattern matches it.
func FindPackages(subject, body string) []briefing.Package {
	text := subject + "\n" + body
	lower := strings.ToLower(text)

	claimed := make(map[string]struct{})
	var out []briefing.Package
	for _, cp := range carrierPatterns {
		if cp.hint != "" && !strings.Contains(lower, cp.hint) {
			continue
		}
		for _, num := range cp.re.FindAllString(text, -1) {
			if _, ok := claimed[num]; ok {
				continue
			}
			claimed[num] = struct{}{}
			out = append(out, briefing.Package{
				Carrier:        cp.carrier,
				TrackingNumber: num,
				Description:    strings.TrimSpace(subject),
			})
		}
	}
	return out
}
