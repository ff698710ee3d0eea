package operators

import (
	"regexp"
	"testing"

	"go.mongodb.org/mongo-driver/bson"
)

func TestEmailFilterIgnoresCase(t *testing.T) {
	f := emailFilter(" admin+ops@tribe.org ")
	cond, ok := f["email"].(bson.M)
	if !ok {
		t.Fatalf("expected a condition document, got %#v", f["email"])
	}
	if cond["$options"] != "i" {
		t.Fatalf("expected case-insensitive option, got %v", cond["$options"])
	}
	pattern, _ := cond["$regex"].(string)
	re := regexp.MustCompile("(?i)" + pattern)
	for _, stored := range []string{"Admin+Ops@Tribe.org", "admin+ops@tribe.org", "ADMIN+OPS@TRIBE.ORG"} {
		if !re.MatchString(stored) {
			t.Errorf("pattern %q should match %q", pattern, stored)
		}
	}
	// metacharacters are literal and the match is anchored
	for _, other := range []string{"adminnops@tribe.org", "admin+ops@tribeXorg", "x-admin+ops@tribe.org", "admin+ops@tribe.org.evil"} {
		if re.MatchString(other) {
			t.Errorf("pattern %q should not match %q", pattern, other)
		}
	}
}
