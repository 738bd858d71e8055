package domain

// PersonIdentifier is one identifier of a person as reported by the
// identity-change stream, flagged current or former.
type PersonIdentifier struct {
	Ident   string `json:"ident"`
	Current bool   `json:"current"`
}

// IdentityChange is an ephemeral instruction to rewrite message ownership from
// former identifiers to the current one. It is never persisted.
type IdentityChange struct {
	Identifiers []PersonIdentifier `json:"identifiers"`
}

// CurrentIdent returns the current identifier, if exactly one can be determined.
func (c IdentityChange) CurrentIdent() (string, bool) {
	var current string
	var found bool
	for _, id := range c.Identifiers {
		if !id.Current {
			continue
		}
		if found {
			return "", false
		}
		current = id.Ident
		found = true
	}
	return current, found
}

// FormerIdents returns every identifier flagged as former.
func (c IdentityChange) FormerIdents() []string {
	var former []string
	for _, id := range c.Identifiers {
		if !id.Current {
			former = append(former, id.Ident)
		}
	}
	return former
}
