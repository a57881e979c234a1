package scorer

import (
	"fmt"

	"github.com/briannafare/local-authority-snapshot-sub000/internal/model"
)

// LeadCapture scores how easily a homepage visitor can become a lead.
func LeadCapture(s model.SiteFacts) Result {
	var r Result
	if !s.Fetched() {
		r.issue("Homepage could not be fetched to check lead capture", "")
		r.Score = siteUnavailable
		return r
	}

	score := 0
	if s.Forms > 0 {
		score += 25
		r.strength("Contact form on the homepage")
	} else {
		r.issue("No contact form on the homepage", "Add a short quote request form above the fold")
	}
	if s.TelLinks > 0 {
		score += 20
	} else {
		r.issue("No click-to-call link", "Wrap the phone number in a tel: link for mobile visitors")
	}
	if s.HasChatWidget {
		score += 20
		r.strength(fmt.Sprintf("Live chat widget (%s)", s.ChatProvider))
	} else {
		r.issue("No live chat widget", "Add live chat or text-back to catch after-hours visitors")
	}
	switch {
	case s.Buttons >= 3:
		score += 15
	case s.Buttons >= 1:
		score += 10
		r.issue(fmt.Sprintf("Only %d call-to-action buttons", s.Buttons), "Repeat the main call to action in each section")
	default:
		r.issue("No call-to-action buttons", "Add clear call-to-action buttons")
	}
	if s.Phone != "" {
		score += 15
	}
	if s.MailtoLinks > 0 {
		score += 5
	}

	r.Score = clamp(score)
	return r
}

// FollowUp scores how leads are handled after first contact, from the
// self-reported flags and what the homepage shows.
func FollowUp(flags model.OperationalFlags, s model.SiteFacts) Result {
	var r Result
	score := 0

	if flags.UsesAutomation {
		score += 35
		r.strength("Automated follow-up in place")
	} else {
		r.issue("No automated lead follow-up", "Set up an instant text and email reply for new leads")
	}
	if flags.HasCallCoverage {
		score += 30
		r.strength("Calls are covered during business hours")
	} else {
		r.issue("Missed calls are not covered", "Add missed-call text-back or an answering service")
	}
	if s.HasChatWidget {
		score += 15
	}
	if s.Forms > 0 {
		score += 10
	}
	if flags.ActiveSocial {
		score += 10
	} else {
		r.issue("No active social presence", "Post weekly on the main social channel")
	}

	r.Score = clamp(score)
	return r
}
