package shipkit

import (
	"strings"
	"testing"
)

func TestReporterWarningsByKind(t *testing.T) {
	rep, out := newTestReporter()
	rep.Stage(1, 2, "Collecting resources")
	rep.Step("found %s", "assets")
	rep.Warn(KindMissingResource, "no icon")
	rep.Warn(KindOptionalStep, "ditto failed")

	if n := len(rep.Warnings(KindMissingResource)); n != 1 {
		t.Errorf("missing-resource warnings = %d", n)
	}
	if n := len(rep.Warnings(KindAudit)); n != 0 {
		t.Errorf("audit warnings = %d", n)
	}
	notices := rep.Notices()
	if len(notices) != 3 || notices[1].Stage != "Collecting resources" {
		t.Errorf("notices = %+v", notices)
	}
	if !strings.Contains(out.String(), "[1/2] Collecting resources") {
		t.Errorf("output = %q", out.String())
	}
}
