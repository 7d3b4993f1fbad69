package host

import (
	"github.com/google/gousb"

	"github.com/ogxbridge/ogxbridge/pad"
)

// Model is a supported physical controller.
type Model struct {
	Vendor    gousb.ID
	Product   gousb.ID
	Identity  pad.Identity
	Interface int
	Name      string
}

// Models lists every USB product the bridge drives.
var Models = []Model{
	{Vendor: 0x045e, Product: 0x028e, Identity: pad.IdentityXbox360Wired, Interface: 0, Name: "Xbox 360 Controller"},
	{Vendor: 0x045e, Product: 0x02d1, Identity: pad.IdentityXboxOneWired, Interface: 0, Name: "Xbox One Controller"},
	{Vendor: 0x045e, Product: 0x02dd, Identity: pad.IdentityXboxOneWired, Interface: 0, Name: "Xbox One Controller (2015)"},
	{Vendor: 0x045e, Product: 0x02ea, Identity: pad.IdentityXboxOneWired, Interface: 0, Name: "Xbox One S Controller"},
	{Vendor: 0x045e, Product: 0x0b12, Identity: pad.IdentityXboxOneWired, Interface: 0, Name: "Xbox Series X|S Controller"},
	{Vendor: 0x054c, Product: 0x0268, Identity: pad.IdentityPS3Wired, Interface: 0, Name: "DualShock 3"},
	{Vendor: 0x054c, Product: 0x05c4, Identity: pad.IdentityPS4Wired, Interface: 3, Name: "DualShock 4"},
	{Vendor: 0x054c, Product: 0x09cc, Identity: pad.IdentityPS4Wired, Interface: 3, Name: "DualShock 4 (v2)"},
}

// Lookup finds the model for a vendor/product pair.
func Lookup(vid, pid gousb.ID) (Model, bool) {
	for _, m := range Models {
		if m.Vendor == vid && m.Product == pid {
			return m, true
		}
	}
	return Model{}, false
}

// Found is a supported controller present on the bus.
type Found struct {
	Model   Model
	Bus     int
	Address int
}

// Enumerate lists supported controllers without opening them.
func Enumerate(ctx *gousb.Context) ([]Found, error) {
	var found []Found
	_, err := ctx.OpenDevices(func(desc *gousb.DeviceDesc) bool {
		if m, ok := Lookup(desc.Vendor, desc.Product); ok {
			found = append(found, Found{Model: m, Bus: desc.Bus, Address: desc.Address})
		}
		return false
	})
	return found, err
}
