package marketplace

// notaryEnforced reports whether the notary co-signature is demanded for a
// call happening at now, given an enforcement probability in whole percent.
// The draw comes from the caller-visible clock, so enforcement is
// probabilistic across calls rather than per-caller.
func notaryEnforced(now int64, enforcePct uint8) bool {
	if enforcePct == 0 {
		return false
	}
	if enforcePct >= 100 {
		return true
	}
	tick := now
	if tick < 0 {
		tick = -tick
	}
	return tick%100 < int64(enforcePct)
}

// assertValidNotary enforces the marketplace's notary policy for an
// offer-shaping call: when the marketplace requires a notary and this call
// drew enforcement, the configured notary must be among the signers.
func assertValidNotary(m *Marketplace, sig Signers, now int64) error {
	if !m.RequiresNotary {
		return nil
	}
	if !notaryEnforced(now, m.NotaryEnforcePct) {
		return nil
	}
	if m.Notary == ([20]byte{}) || !sig.Signed(m.Notary) {
		return ErrInvalidNotary
	}
	return nil
}

// cancelAuthorized decides who may retire an offer: its owner, the
// network-wide emergency key, or — on notary marketplaces — the notary when
// this call drew enforcement.
func cancelAuthorized(m *Marketplace, owner [20]byte, sig Signers, now int64) bool {
	if sig.Signed(owner) || sig.Signed(CancelAuthority) {
		return true
	}
	if m.RequiresNotary && m.Notary != ([20]byte{}) && sig.Signed(m.Notary) {
		return notaryEnforced(now, m.NotaryEnforcePct)
	}
	return false
}

// effectiveFeeBps lets a co-signing notary override the platform fee rates
// for a settlement; without the notary's signature the defaults apply.
func effectiveFeeBps(m *Marketplace, sig Signers, makerFeeBp int16, takerFeeBp uint16) (int16, uint16) {
	if m.Notary != ([20]byte{}) && sig.Signed(m.Notary) {
		return makerFeeBp, takerFeeBp
	}
	return DefaultMakerFeeBp, DefaultTakerFeeBp
}
