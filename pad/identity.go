package pad

// Identity tags which protocol is currently driving the bridge.
type Identity uint8

const (
	IdentityNone Identity = iota
	IdentityXbox360Wired
	IdentityXboxOneWired
	IdentityPS3Wired
	IdentityPS4Wired
)

// PlayStation reports whether the identity is one of the DualShock variants.
func (i Identity) PlayStation() bool {
	return i == IdentityPS3Wired || i == IdentityPS4Wired
}

// SupportsMotion reports whether the motion remap can run for this identity.
func (i Identity) SupportsMotion() bool {
	return i.PlayStation()
}

func (i Identity) String() string {
	switch i {
	case IdentityXbox360Wired:
		return "xbox360"
	case IdentityXboxOneWired:
		return "xboxone"
	case IdentityPS3Wired:
		return "ps3"
	case IdentityPS4Wired:
		return "ps4"
	default:
		return "none"
	}
}
