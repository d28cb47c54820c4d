package dlna

import (
	"testing"
	"time"
)

func TestContentFeaturesString(t *testing.T) {
	for _, tc := range []struct {
		cf       ContentFeatures
		expected string
	}{
		{ContentFeatures{}, "DLNA.ORG_OP=00;DLNA.ORG_CI=0"},
		{ContentFeatures{SupportRange: true}, "DLNA.ORG_OP=01;DLNA.ORG_CI=0"},
		{ContentFeatures{SupportTimeSeek: true, SupportRange: true}, "DLNA.ORG_OP=11;DLNA.ORG_CI=0"},
		{ContentFeatures{Transcoded: true}, "DLNA.ORG_OP=00;DLNA.ORG_CI=1"},
		{ContentFeatures{ProfileName: "AVC_MP4_HP_HD_AAC"}, "DLNA.ORG_OP=00;DLNA.ORG_CI=0;DLNA_PN=AVC_MP4_HP_HD_AAC"},
	} {
		if actual := tc.cf.String(); actual != tc.expected {
			t.Errorf("got %q, expected %q", actual, tc.expected)
		}
	}
}

func TestTranscoded(t *testing.T) {
	for _, tc := range []struct {
		protocolInfo string
		expected     bool
	}{
		{"http-get:*:video/mpeg:DLNA.ORG_CI=1", true},
		{"http-get:*:video/mpeg:dlna.org_ci=1", true},
		{"http-get:*:video/mpeg:DLNA.ORG_CI = 1", true},
		{"http-get:*:video/x-matroska:DLNA.ORG_CI=0", false},
		{"http-get:*:video/x-matroska:*", false},
		{"", false},
	} {
		if actual := Transcoded(tc.protocolInfo); actual != tc.expected {
			t.Errorf("Transcoded(%q) = %v", tc.protocolInfo, actual)
		}
	}
}

func TestFormatDuration(t *testing.T) {
	for _, tc := range []struct {
		d        time.Duration
		expected string
	}{
		{0, "0:00:00"},
		{61 * time.Second, "0:01:01"},
		{117 * time.Minute, "1:57:00"},
		{25*time.Hour + 4*time.Minute + 5*time.Second, "25:04:05"},
	} {
		if actual := FormatDuration(tc.d); actual != tc.expected {
			t.Errorf("FormatDuration(%v) = %q, expected %q", tc.d, actual, tc.expected)
		}
	}
}
