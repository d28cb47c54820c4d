package dlna

import (
	"fmt"
	"strings"
	"time"
)

type ContentFeatures struct {
	ProfileName     string
	SupportTimeSeek bool
	SupportRange    bool
	Transcoded      bool
}

// "DLNA.ORG_OP=" time-seek-range-supp bytes-range-header-supp
func (cf ContentFeatures) String() (ret string) {
	ret = fmt.Sprintf("DLNA.ORG_OP=%02b;DLNA.ORG_CI=%b", func() (ret uint) {
		if cf.SupportTimeSeek {
			ret |= 2
		}
		if cf.SupportRange {
			ret |= 1
		}
		return
	}(), func() uint {
		if cf.Transcoded {
			return 1
		}
		return 0
	}())
	if cf.ProfileName != "" {
		ret += ";DLNA_PN=" + cf.ProfileName
	}
	return
}

// Transcoded reports whether a protocolInfo string declares a lossy
// server-side conversion (DLNA.ORG_CI=1). Devices vary case and spacing.
func Transcoded(protocolInfo string) bool {
	stripped := strings.ToUpper(strings.ReplaceAll(protocolInfo, " ", ""))
	return strings.Contains(stripped, "DLNA.ORG_CI=1")
}

// FormatDuration renders a duration as H:MM:SS for res@duration attributes.
func FormatDuration(d time.Duration) string {
	d /= time.Second
	s := d % 60
	d /= 60
	m := d % 60
	d /= 60
	return fmt.Sprintf("%d:%02d:%02d", d, m, s)
}
