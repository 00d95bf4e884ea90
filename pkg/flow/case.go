package flow

// Case is a labeled branch target. The ID is compared as a string: literal
// values, "True"/"False", stringified status codes ("200", "500"), or the
// sentinel "default". An empty OConnection means "end of flow".
type Case struct {
	ID          string `yaml:"id" json:"id"`
	OConnection string `yaml:"o_connection" json:"o_connection"`
}

// CaseTable is an ordered case list. Order is the scan order for the
// first-match rule; when duplicate IDs exist the first wins.
type CaseTable []Case

// Lookup returns the target of the first case whose ID equals caseID. When
// no exact match exists the scan repeats for "default". When neither
// exists it returns "", signaling no transition: the session cursor stays
// put and the caller decides whether that is a dead end. Lookup itself
// never fails.
func (t CaseTable) Lookup(caseID string) string {
	target, _ := t.LookupCase(caseID)
	return target
}

// LookupCase is Lookup plus a found flag. A found case with an empty
// target means "end of flow"; no match at all means "stay put". Callers
// that must tell those apart use this form.
func (t CaseTable) LookupCase(caseID string) (string, bool) {
	for _, c := range t {
		if c.ID == caseID {
			return c.OConnection, true
		}
	}
	for _, c := range t {
		if c.ID == "default" {
			return c.OConnection, true
		}
	}
	return "", false
}

// Has reports whether any case carries the given ID (no "default"
// fallback).
func (t CaseTable) Has(caseID string) bool {
	for _, c := range t {
		if c.ID == caseID {
			return true
		}
	}
	return false
}
