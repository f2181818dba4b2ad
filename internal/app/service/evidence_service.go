package service

import "regexp"

var (
	ipPattern    = regexp.MustCompile(`\b\d{1,3}(?:\.\d{1,3}){3}\b`)
	emailPattern = regexp.MustCompile(`[a-zA-Z0-9_.+-]+@[a-zA-Z0-9-]+\.[a-zA-Z0-9.-]+`)
)

// Evidence is what the extraction tool found in a block of text.
type Evidence struct {
	IPs    []string `json:"ips"`
	Emails []string `json:"emails"`
}

type EvidenceService struct{}

func NewEvidenceService() *EvidenceService {
	return &EvidenceService{}
}

// Extract returns the IPv4-looking addresses and email addresses in text, each
// once, in order of first appearance.
func (s *EvidenceService) Extract(text string) Evidence {
	return Evidence{
		IPs:    unique(ipPattern.FindAllString(text, -1)),
		Emails: unique(emailPattern.FindAllString(text, -1)),
	}
}

func unique(items []string) []string {
	out := make([]string, 0, len(items))
	seen := make(map[string]bool, len(items))
	for _, item := range items {
		if !seen[item] {
			seen[item] = true
			out = append(out, item)
		}
	}
	return out
}
